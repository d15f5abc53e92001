package widget

import (
	"context"
	"errors"
	"strings"
	"sync"

	"bizonboard/internal/logging"
	"bizonboard/internal/onboarding"
	"bizonboard/internal/profile"
)

// ErrNotHydrated means an edit was attempted before any profile was loaded.
var ErrNotHydrated = errors.New("widget has no account loaded")

// Snapshot is the mirror's view after the last successful response.
type Snapshot struct {
	AccountID string
	Metadata  profile.Metadata
	Summary   profile.StructuredContent
	Message   string
}

// Mirror keeps a local copy of the last metadata and summary received and
// issues one tool call per user action. It never batches edits and never
// computes completion itself; every figure it exposes came from the server.
// A failed call leaves the previous snapshot in place.
type Mirror struct {
	caller   ToolCaller
	onChange func(Snapshot)

	mu   sync.Mutex
	snap Snapshot
	ok   bool
}

// NewMirror returns an empty mirror. onChange, if non-nil, runs after every
// applied response, which is where a renderer redraws.
func NewMirror(caller ToolCaller, onChange func(Snapshot)) *Mirror {
	return &Mirror{caller: caller, onChange: onChange}
}

// Hydrate loads accountID, or a new account when it is blank. restart resets
// the profile first.
func (m *Mirror) Hydrate(ctx context.Context, accountID string, restart bool) error {
	args := map[string]any{}
	if id := strings.TrimSpace(accountID); id != "" {
		args["accountId"] = id
	}
	if restart {
		args["restart"] = true
	}
	return m.call(ctx, onboarding.ToolLoad, args)
}

// Edit saves one field of the loaded account.
func (m *Mirror) Edit(ctx context.Context, sectionKey, fieldKey string, value any) error {
	id := m.AccountID()
	if id == "" {
		return ErrNotHydrated
	}
	return m.call(ctx, onboarding.ToolUpdate, map[string]any{
		"accountId":  id,
		"sectionKey": sectionKey,
		"fieldKey":   fieldKey,
		"value":      value,
	})
}

// Reset blanks the loaded account, or starts a fresh one if none is loaded.
func (m *Mirror) Reset(ctx context.Context) error {
	id := m.AccountID()
	if id == "" {
		return m.call(ctx, onboarding.ToolLoad, map[string]any{"restart": true})
	}
	return m.call(ctx, onboarding.ToolReset, map[string]any{"accountId": id})
}

// AccountID returns the loaded account, or "".
func (m *Mirror) AccountID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.AccountID
}

// Snapshot returns the current state and whether anything has been loaded.
func (m *Mirror) Snapshot() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, m.ok
}

// Value returns the mirrored value of one field.
func (m *Mirror) Value(sectionKey, fieldKey string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.snap.Metadata.Sections {
		if s.Key != sectionKey {
			continue
		}
		for _, f := range s.Fields {
			if f.Key == fieldKey {
				return f.Value, true
			}
		}
	}
	return "", false
}

func (m *Mirror) call(ctx context.Context, tool string, args map[string]any) error {
	res, err := m.caller.CallTool(ctx, tool, args)
	if err != nil {
		logging.Get(logging.CategoryWidget).Warn("%s failed, keeping previous state: %v", tool, err)
		return err
	}
	if len(res.Metadata.Sections) == 0 {
		logging.Get(logging.CategoryWidget).Warn("%s returned no sections, keeping previous state", tool)
		return ErrNoMetadata
	}

	m.mu.Lock()
	m.snap = Snapshot{
		AccountID: res.Metadata.AccountID,
		Metadata:  res.Metadata,
		Summary:   res.StructuredContent,
		Message:   res.Message,
	}
	m.ok = true
	snap := m.snap
	m.mu.Unlock()

	if m.onChange != nil {
		m.onChange(snap)
	}
	return nil
}
