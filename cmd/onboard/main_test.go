package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"bizonboard/internal/config"
	"bizonboard/internal/logging"
	"bizonboard/internal/onboarding"
	"bizonboard/internal/profile"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// useSQLite points the global config at a fresh database so separate
// commands share state.
func useSQLite(t *testing.T) {
	t.Helper()
	logging.UseLogger(zap.NewNop(), logging.Config{})
	cfg = config.DefaultConfig()
	cfg.Store.Backend = config.BackendSQLite
	cfg.Store.SQLite.Path = filepath.Join(t.TempDir(), "onboard.db")
	t.Cleanup(func() {
		cfg = nil
		plainOutput, jsonOutput = false, false
		fillURL, fillRestart, fillOptional = "", false, false
	})
}

func testCmd(input string) (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetIn(strings.NewReader(input))
	return cmd, out
}

func TestProfileSetThenShow(t *testing.T) {
	useSQLite(t)
	plainOutput = true

	cmd, out := testCmd("")
	require.NoError(t, runProfileSet(cmd, []string{"acct-1", "business_profile", "legalName", "Acme LLC"}))
	assert.Contains(t, out.String(), "Saved legalName in business_profile.")

	cmd, out = testCmd("")
	require.NoError(t, runProfileShow(cmd, []string{"acct-1"}))
	text := out.String()
	assert.Contains(t, text, "Continuing onboarding with the Business profile section.")
	assert.Contains(t, text, "| Legal business name | `business_profile.legalName` | Acme LLC | yes |")
	assert.Contains(t, text, "**Required fields:** 10%")
}

func TestProfileSetRejectsUnknownField(t *testing.T) {
	useSQLite(t)
	plainOutput = true

	cmd, _ := testCmd("")
	err := runProfileSet(cmd, []string{"acct-1", "contact", "fax", "555"})
	require.Error(t, err)
	assert.ErrorIs(t, err, profile.ErrUnknownField)
}

func TestProfileResetJSON(t *testing.T) {
	useSQLite(t)
	plainOutput = true

	cmd, _ := testCmd("")
	require.NoError(t, runProfileSet(cmd, []string{"acct-1", "contact", "email", "a@b.example"}))

	jsonOutput = true
	cmd, out := testCmd("")
	require.NoError(t, runProfileReset(cmd, []string{"acct-1"}))

	var env onboarding.Envelope
	require.NoError(t, json.Unmarshal(out.Bytes(), &env))
	assert.Equal(t, "Started a fresh onboarding session.", env.Message())
	assert.Equal(t, 0, env.StructuredContent.CompletionPercent)
}

func TestSchemaPlain(t *testing.T) {
	plainOutput = true
	t.Cleanup(func() { plainOutput = false })

	cmd, out := testCmd("")
	require.NoError(t, runSchema(cmd, nil))
	text := out.String()
	for _, s := range profile.DefaultSchema.Sections() {
		assert.Contains(t, text, "`"+s.Key+"`")
	}
	assert.Contains(t, text, "| `ein` | Tax ID (EIN) | yes |")
}

func TestFillInProcess(t *testing.T) {
	useSQLite(t)
	plainOutput = true

	answers := []string{
		"Acme LLC", "LLC", "123456789", "https://acme.example",
		"Dana Smith", "ops@acme.example", "+1 555 0100",
		"First Bank", "", "000123",
	}
	cmd, out := testCmd(strings.Join(answers, "\n") + "\n")
	require.NoError(t, runFill(cmd, []string{"acct-fill"}))

	text := out.String()
	assert.Contains(t, text, "Account acct-fill:")
	assert.Contains(t, text, "Saved legalName in business_profile. 10% of required fields done.")
	assert.Contains(t, text, "next section: Settlement & payments.")

	// Only the skipped routing number is left.
	cmd, out = testCmd("021000021\n")
	require.NoError(t, runFill(cmd, []string{"acct-fill"}))
	assert.Contains(t, out.String(), "Profile acct-fill is complete.")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "-", cell("  "))
	assert.Equal(t, `a\|b`, cell("a|b"))

	md, err := render("# hi", true)
	require.NoError(t, err)
	assert.Equal(t, "# hi", md)
}
