package profile

import "strings"

// Completion holds the two percentages shown to callers.
type Completion struct {
	Completion         int
	RequiredCompletion int
}

// ComputeCompletion counts filled fields across all sections. Each percentage
// is rounded half-up and is 0 when its denominator is 0.
func ComputeCompletion(sections []Section) Completion {
	var total, filled, required, requiredFilled int
	for _, s := range sections {
		for _, f := range s.Fields {
			total++
			if f.Required {
				required++
			}
			if f.Filled() {
				filled++
				if f.Required {
					requiredFilled++
				}
			}
		}
	}
	return Completion{
		Completion:         percent(filled, total),
		RequiredCompletion: percent(requiredFilled, required),
	}
}

// Summarize derives the summary of p. It is the only place onboarding status
// is computed.
func Summarize(p *Profile) Summary {
	c := ComputeCompletion(p.Sections)
	sum := Summary{
		AccountID:                 p.AccountID,
		OnboardingStatus:          StatusComplete,
		CompletionPercent:         c.Completion,
		RequiredCompletionPercent: c.RequiredCompletion,
	}
	if next := firstIncomplete(p.Sections); next != nil {
		sum.NextSection = &NextSection{Key: next.Key, Title: next.Title}
		sum.OnboardingStatus = StatusInProgress
	}
	return sum
}

// firstIncomplete returns the first section, in schema order, holding a
// required field that is still blank.
func firstIncomplete(sections []Section) *Section {
	for i := range sections {
		if RequiredRemaining(sections[i]) > 0 {
			return &sections[i]
		}
	}
	return nil
}

// RequiredRemaining counts the blank required fields of a section.
func RequiredRemaining(s Section) int {
	n := 0
	for _, f := range s.Fields {
		if f.Required && !f.Filled() {
			n++
		}
	}
	return n
}

func percent(n, d int) int {
	if d == 0 {
		return 0
	}
	return (200*n + d) / (2 * d)
}

func isBlank(v string) bool {
	return strings.TrimSpace(v) == ""
}
