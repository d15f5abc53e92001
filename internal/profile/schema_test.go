package profile

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchemaShape(t *testing.T) {
	secs := DefaultSchema.Sections()
	require.Len(t, secs, 3)

	var keys []string
	var counts [][2]int
	for _, s := range secs {
		keys = append(keys, s.Key)
		req := 0
		for _, f := range s.Fields {
			if f.Required {
				req++
			}
			assert.Empty(t, f.Value)
			assert.NotEmpty(t, f.Label)
		}
		counts = append(counts, [2]int{len(s.Fields), req})
	}
	assert.Equal(t, []string{"business_profile", "contact", "payments"}, keys)
	assert.Equal(t, [][2]int{{5, 4}, {4, 3}, {4, 3}}, counts)
}

func TestSchemaSectionsIsACopy(t *testing.T) {
	secs := DefaultSchema.Sections()
	secs[0].Fields[0].Value = "tampered"
	secs[0].Title = "tampered"

	again := DefaultSchema.Sections()
	assert.Empty(t, again[0].Fields[0].Value)
	assert.Equal(t, "Business profile", again[0].Title)
}

func TestNewSchemaValidation(t *testing.T) {
	tests := []struct {
		name     string
		sections []Section
		wantErr  string
	}{
		{"empty", nil, "no sections"},
		{"blank section key", []Section{{Key: " "}}, "empty key"},
		{"duplicate section", []Section{{Key: "a"}, {Key: "a"}}, `duplicate section key "a"`},
		{"blank field key", []Section{{Key: "a", Fields: []Field{{Key: ""}}}}, "empty key"},
		{"duplicate field", []Section{{Key: "a", Fields: []Field{{Key: "x"}, {Key: "x"}}}}, `duplicate field key "x"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchema(tt.sections)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewSchemaDropsValues(t *testing.T) {
	s, err := NewSchema([]Section{{Key: "a", Fields: []Field{{Key: "x", Value: "preset"}}}})
	require.NoError(t, err)
	assert.Empty(t, s.Sections()[0].Fields[0].Value)
}

func TestNewProfile(t *testing.T) {
	local := time.Date(2025, 6, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	p := DefaultSchema.NewProfile("acct-1", local)

	assert.Equal(t, "acct-1", p.AccountID)
	assert.Equal(t, StatusInProgress, p.OnboardingStatus)
	assert.Equal(t, time.UTC, p.LastSavedAt.Location())
	assert.True(t, p.LastSavedAt.Equal(local))
	if diff := cmp.Diff(DefaultSchema.Sections(), p.Sections); diff != "" {
		t.Errorf("sections mismatch (-want +got):\n%s", diff)
	}
}

func TestConformRestoresSchemaOrderAndCarriesValues(t *testing.T) {
	stored := &Profile{
		AccountID: "acct-1",
		Sections: []Section{
			{Key: "payments", Fields: []Field{{Key: "bank", Value: "First Bank"}, {Key: "iban", Value: "legacy"}}},
			{Key: "retired", Fields: []Field{{Key: "x", Value: "y"}}},
			{Key: "business_profile", Title: "Old title", Fields: []Field{{Key: "legalName", Label: "Old", Value: "Acme LLC"}}},
		},
	}

	changed := DefaultSchema.Conform(stored)
	assert.True(t, changed)

	var keys []string
	for _, s := range stored.Sections {
		keys = append(keys, s.Key)
	}
	assert.Equal(t, []string{"business_profile", "contact", "payments"}, keys)

	bp := stored.Section("business_profile")
	assert.Equal(t, "Business profile", bp.Title)
	assert.Equal(t, "Legal business name", bp.Field("legalName").Label)
	assert.Equal(t, "Acme LLC", bp.Field("legalName").Value)
	assert.Len(t, bp.Fields, 5)

	pay := stored.Section("payments")
	assert.Equal(t, "First Bank", pay.Field("bank").Value)
	assert.Nil(t, pay.Field("iban"))
	assert.Nil(t, stored.Section("retired"))
}

func TestConformIsNoopOnCurrentDocument(t *testing.T) {
	p := DefaultSchema.NewProfile("acct-1", fixedNow)
	fill(p, "contact", "email")
	before := p.Clone()

	assert.False(t, DefaultSchema.Conform(p))
	if diff := cmp.Diff(before, p); diff != "" {
		t.Errorf("conform changed a current document (-want +got):\n%s", diff)
	}
}

func TestMustSchemaPanics(t *testing.T) {
	assert.Panics(t, func() { MustSchema(nil) })
}

func TestProfileClone(t *testing.T) {
	p := DefaultSchema.NewProfile("acct-1", fixedNow)
	c := p.Clone()
	c.Section("contact").Field("email").Value = "changed@x.co"

	assert.Empty(t, p.Section("contact").Field("email").Value)
	assert.Nil(t, (*Profile)(nil).Clone())
}
