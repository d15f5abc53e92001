// Package store provides the document store backends the Profile Store is
// layered on. Each backend keeps one document per account in a single flat
// collection or table and implements profile.Repository, including an atomic
// per-key read-modify-write for Update.
package store

import (
	"encoding/json"
	"fmt"
	"regexp"

	"bizonboard/internal/profile"
)

// identPattern restricts collection names used as SQL table names or key
// prefixes.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkCollection(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid collection name %q", name)
	}
	return nil
}

func encode(p *profile.Profile) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode profile %s: %w", p.AccountID, err)
	}
	return data, nil
}

func decode(data []byte) (*profile.Profile, error) {
	var p profile.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w: %w", profile.ErrPersistenceUnavailable, err)
	}
	return &p, nil
}

// unavailable tags a driver failure as persistence-class.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, profile.ErrPersistenceUnavailable, err)
}

// prepare pins the account id on a document about to be written. A mutation
// closure may not move a document to a different key.
func prepare(accountID string, p *profile.Profile) (*profile.Profile, error) {
	if p == nil {
		return nil, fmt.Errorf("update %s: mutation returned no profile", accountID)
	}
	p.AccountID = accountID
	return p, nil
}
