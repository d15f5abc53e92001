package main

import (
	"fmt"
	"strings"

	"bizonboard/internal/profile"

	"github.com/charmbracelet/glamour"
)

// profileMarkdown renders the compact summary followed by every field.
func profileMarkdown(sc profile.StructuredContent, md profile.Metadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Business profile `%s`\n\n", sc.AccountID)
	fmt.Fprintf(&b, "**Status:** %s  \n", sc.OnboardingStatus)
	fmt.Fprintf(&b, "**Required fields:** %d%%  \n", sc.RequiredCompletionPercent)
	fmt.Fprintf(&b, "**All fields:** %d%%  \n", sc.CompletionPercent)
	if sc.NextSection != nil {
		fmt.Fprintf(&b, "**Next section:** %s  \n", sc.NextSection.Title)
	}
	if !md.LastSavedAt.IsZero() {
		fmt.Fprintf(&b, "**Last saved:** %s\n", md.LastSavedAt.Format("2006-01-02 15:04:05 MST"))
	}

	for i, s := range md.Sections {
		digest := profile.SectionDigest{Title: s.Title}
		if i < len(sc.Sections) {
			digest = sc.Sections[i]
		}
		fmt.Fprintf(&b, "\n## %s (%d/%d required)\n\n", s.Title, digest.RequiredFieldsCompleted, digest.TotalRequiredFields)
		b.WriteString("| Field | Key | Value | Required |\n|---|---|---|---|\n")
		for _, f := range s.Fields {
			req := ""
			if f.Required {
				req = "yes"
			}
			fmt.Fprintf(&b, "| %s | `%s.%s` | %s | %s |\n", f.Label, s.Key, f.Key, cell(f.Value), req)
		}
	}
	return b.String()
}

// schemaMarkdown lists the sections and fields the form asks for.
func schemaMarkdown(schema *profile.Schema) string {
	var b strings.Builder
	b.WriteString("# Onboarding form\n")
	for _, s := range schema.Sections() {
		fmt.Fprintf(&b, "\n## %s `%s`\n\n%s\n\n", s.Title, s.Key, s.Description)
		b.WriteString("| Key | Label | Required | Helper |\n|---|---|---|---|\n")
		for _, f := range s.Fields {
			req := "no"
			if f.Required {
				req = "yes"
			}
			fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n", f.Key, f.Label, req, cell(f.Helper))
		}
	}
	return b.String()
}

func cell(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", `\|`)
}

// render passes markdown through glamour unless plain output was requested.
func render(md string, plain bool) (string, error) {
	if plain {
		return md, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
