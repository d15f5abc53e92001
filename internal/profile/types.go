// Package profile holds the business profile onboarding model: the fixed
// section/field schema, completion math, the caller-facing projections, and
// the Profile Store that owns every mutation.
package profile

import "time"

// Status is the derived onboarding state of a profile.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
)

// Field is one form input. An empty Value means unset.
type Field struct {
	Key      string `json:"key" firestore:"key"`
	Label    string `json:"label" firestore:"label"`
	Required bool   `json:"required" firestore:"required"`
	Value    string `json:"value" firestore:"value"`
	Helper   string `json:"helper" firestore:"helper"`
}

// Filled reports whether the field holds a non-blank value.
func (f Field) Filled() bool {
	return !isBlank(f.Value)
}

// Section groups fields. Sections are fixed by the schema.
type Section struct {
	Key         string  `json:"key" firestore:"key"`
	Title       string  `json:"title" firestore:"title"`
	Description string  `json:"description" firestore:"description"`
	Fields      []Field `json:"fields" firestore:"fields"`
}

// Field returns a pointer to the field with the given key, or nil.
func (s *Section) Field(key string) *Field {
	for i := range s.Fields {
		if s.Fields[i].Key == key {
			return &s.Fields[i]
		}
	}
	return nil
}

// Profile is the persisted document, one per account.
//
// OnboardingStatus is a cache written alongside each mutation; readers must
// use Summarize for the authoritative value.
type Profile struct {
	AccountID        string    `json:"accountId" firestore:"accountId"`
	OnboardingStatus Status    `json:"onboardingStatus" firestore:"onboardingStatus"`
	Sections         []Section `json:"sections" firestore:"sections"`
	LastSavedAt      time.Time `json:"lastSavedAt" firestore:"lastSavedAt"`
}

// Section returns a pointer to the section with the given key, or nil.
func (p *Profile) Section(key string) *Section {
	for i := range p.Sections {
		if p.Sections[i].Key == key {
			return &p.Sections[i]
		}
	}
	return nil
}

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	out := *p
	out.Sections = cloneSections(p.Sections)
	return &out
}

// NextSection points at the first section that still needs input.
type NextSection struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

// Summary is derived on every read and never persisted.
type Summary struct {
	AccountID                 string       `json:"accountId"`
	OnboardingStatus          Status       `json:"onboardingStatus"`
	NextSection               *NextSection `json:"nextSection"`
	CompletionPercent         int          `json:"completionPercent"`
	RequiredCompletionPercent int          `json:"requiredCompletionPercent"`
}

func cloneSections(in []Section) []Section {
	if in == nil {
		return nil
	}
	out := make([]Section, len(in))
	for i, s := range in {
		out[i] = s
		out[i].Fields = append([]Field(nil), s.Fields...)
	}
	return out
}
