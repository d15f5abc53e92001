package profile

import "time"

// SectionDigest is the per-section progress line of StructuredContent.
type SectionDigest struct {
	Key                     string `json:"key"`
	Title                   string `json:"title"`
	RequiredFieldsCompleted int    `json:"requiredFieldsCompleted"`
	TotalRequiredFields     int    `json:"totalRequiredFields"`
}

// StructuredContent is the compact tool-call payload. It carries no field values.
type StructuredContent struct {
	AccountID                 string          `json:"accountId"`
	OnboardingStatus          Status          `json:"onboardingStatus"`
	CompletionPercent         int             `json:"completionPercent"`
	RequiredCompletionPercent int             `json:"requiredCompletionPercent"`
	NextSection               *NextSection    `json:"nextSection"`
	UpdatedAt                 time.Time       `json:"updatedAt"`
	Sections                  []SectionDigest `json:"sections"`
}

// Metadata is the full payload a widget needs to draw editable inputs.
type Metadata struct {
	AccountID   string    `json:"accountId"`
	Sections    []Section `json:"sections"`
	LastSavedAt time.Time `json:"lastSavedAt"`
}

// BuildStructuredContent projects p into the compact payload.
func BuildStructuredContent(p *Profile) StructuredContent {
	sum := Summarize(p)
	digests := make([]SectionDigest, 0, len(p.Sections))
	for _, s := range p.Sections {
		d := SectionDigest{Key: s.Key, Title: s.Title}
		for _, f := range s.Fields {
			if !f.Required {
				continue
			}
			d.TotalRequiredFields++
			if f.Filled() {
				d.RequiredFieldsCompleted++
			}
		}
		digests = append(digests, d)
	}
	return StructuredContent{
		AccountID:                 p.AccountID,
		OnboardingStatus:          sum.OnboardingStatus,
		CompletionPercent:         sum.CompletionPercent,
		RequiredCompletionPercent: sum.RequiredCompletionPercent,
		NextSection:               sum.NextSection,
		UpdatedAt:                 p.LastSavedAt,
		Sections:                  digests,
	}
}

// BuildMetadata projects p into the widget hydration payload.
func BuildMetadata(p *Profile) Metadata {
	return Metadata{
		AccountID:   p.AccountID,
		Sections:    cloneSections(p.Sections),
		LastSavedAt: p.LastSavedAt,
	}
}
