package profile

import (
	"fmt"
	"strings"
	"time"
)

// Schema is the ordered, fixed set of sections every profile starts with.
// Order is slice order; nothing here is ever keyed by map iteration.
type Schema struct {
	sections []Section
}

// NewSchema validates and captures a schema definition. Field values in the
// definition are discarded.
func NewSchema(sections []Section) (*Schema, error) {
	s := &Schema{sections: cloneSections(sections)}
	for i := range s.sections {
		for j := range s.sections[i].Fields {
			s.sections[i].Fields[j].Value = ""
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustSchema is NewSchema for package-level definitions.
func MustSchema(sections []Section) *Schema {
	s, err := NewSchema(sections)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks key uniqueness.
func (s *Schema) Validate() error {
	if len(s.sections) == 0 {
		return fmt.Errorf("schema has no sections")
	}
	seen := make(map[string]bool, len(s.sections))
	for _, sec := range s.sections {
		if strings.TrimSpace(sec.Key) == "" {
			return fmt.Errorf("schema section with empty key")
		}
		if seen[sec.Key] {
			return fmt.Errorf("duplicate section key %q", sec.Key)
		}
		seen[sec.Key] = true

		fields := make(map[string]bool, len(sec.Fields))
		for _, f := range sec.Fields {
			if strings.TrimSpace(f.Key) == "" {
				return fmt.Errorf("section %q has a field with empty key", sec.Key)
			}
			if fields[f.Key] {
				return fmt.Errorf("duplicate field key %q in section %q", f.Key, sec.Key)
			}
			fields[f.Key] = true
		}
	}
	return nil
}

// Sections returns a copy of the schema sections, all values empty.
func (s *Schema) Sections() []Section {
	return cloneSections(s.sections)
}

// NewProfile returns a blank profile for accountID stamped at now.
func (s *Schema) NewProfile(accountID string, now time.Time) *Profile {
	p := &Profile{
		AccountID:   accountID,
		Sections:    s.Sections(),
		LastSavedAt: now.UTC(),
	}
	p.OnboardingStatus = Summarize(p).OnboardingStatus
	return p
}

// Conform rebuilds p.Sections to match the schema exactly: schema order, every
// schema section and field present, labels/helpers/required taken from the
// schema, stored values carried over by key, unknown keys dropped. It reports
// whether anything changed.
func (s *Schema) Conform(p *Profile) bool {
	out := s.Sections()
	changed := len(out) != len(p.Sections)
	for i := range out {
		stored := p.Section(out[i].Key)
		if stored == nil {
			changed = true
			continue
		}
		if i >= len(p.Sections) || p.Sections[i].Key != out[i].Key || len(stored.Fields) != len(out[i].Fields) {
			changed = true
		}
		for j := range out[i].Fields {
			f := stored.Field(out[i].Fields[j].Key)
			if f == nil {
				changed = true
				continue
			}
			if f.Label != out[i].Fields[j].Label || f.Helper != out[i].Fields[j].Helper || f.Required != out[i].Fields[j].Required {
				changed = true
			}
			out[i].Fields[j].Value = f.Value
		}
	}
	p.Sections = out
	return changed
}

// DefaultSchema is the business onboarding form: 3 sections holding 5/4/4
// fields of which 4/3/3 are required.
var DefaultSchema = MustSchema([]Section{
	{
		Key:         "business_profile",
		Title:       "Business profile",
		Description: "Ownership, entity basics, and brand information used during onboarding.",
		Fields: []Field{
			{Key: "legalName", Label: "Legal business name", Required: true, Helper: "Matches your government registration."},
			{Key: "entityType", Label: "Entity type", Required: true, Helper: "LLC, corporation, nonprofit, or sole proprietorship."},
			{Key: "ein", Label: "Tax ID (EIN)", Required: true, Helper: "Nine digits with no dashes."},
			{Key: "website", Label: "Website", Required: true, Helper: "Use your primary marketing or ordering site."},
			{Key: "brands", Label: "Brands sold", Required: false, Helper: "Comma-separated list of consumer-facing names."},
		},
	},
	{
		Key:         "contact",
		Title:       "Contact & operations",
		Description: "Details that appear on invoices and in the Portal profile.",
		Fields: []Field{
			{Key: "contactName", Label: "Primary contact name", Required: true, Helper: "Person responsible for payment communications."},
			{Key: "email", Label: "Contact email", Required: true, Helper: "Used for statements and account alerts."},
			{Key: "phone", Label: "Phone number", Required: true, Helper: "Include country code if international."},
			{Key: "supportHours", Label: "Support hours", Required: false, Helper: "Displayed in the portal profile card."},
		},
	},
	{
		Key:         "payments",
		Title:       "Settlement & payments",
		Description: "Where we send payouts and who signs the merchant agreement.",
		Fields: []Field{
			{Key: "bank", Label: "Bank name", Required: true, Helper: "Financial institution for settlements."},
			{Key: "routing", Label: "Routing number", Required: true, Helper: "Nine digits for ACH transfers."},
			{Key: "account", Label: "Account number", Required: true, Helper: "Do not include spaces or dashes."},
			{Key: "signer", Label: "Authorized signer", Required: false, Helper: "Person with authority to sign for the entity."},
		},
	},
})
