// Package widget holds the onboarding widget: the HTML bundle a host renders
// and Mirror, a Go client that follows the same synchronization rules.
package widget

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed profile-onboarding.html
var bundle string

// Template returns the widget HTML. A non-empty override path is read on
// every call, so edits show up without a restart.
func Template(override string) (string, error) {
	if override == "" {
		return bundle, nil
	}
	data, err := os.ReadFile(override)
	if err != nil {
		return "", fmt.Errorf("read widget template: %w", err)
	}
	return string(data), nil
}
