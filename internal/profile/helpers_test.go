package profile

import "time"

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fill sets every named field of a section to a non-blank value.
func fill(p *Profile, section string, keys ...string) {
	s := p.Section(section)
	for _, k := range keys {
		s.Field(k).Value = k + "-value"
	}
}
