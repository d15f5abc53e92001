// Package onboarding is the transport-neutral tool layer over the Profile
// Store: it resolves account ids, coerces arguments, and shapes every result
// into the uniform envelope the MCP binding and the widget consume.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bizonboard/internal/logging"
	"bizonboard/internal/metrics"
	"bizonboard/internal/profile"

	"github.com/google/uuid"
)

// Tool names as exposed to agents.
const (
	ToolLoad   = "load_business_profile"
	ToolUpdate = "update_business_profile_field"
	ToolReset  = "reset_business_profile"
)

var (
	// ErrMissingArgument means a required tool argument was absent or blank.
	ErrMissingArgument = errors.New("missing required argument")
	// ErrInvalidValue means a field value could not be coerced to text.
	ErrInvalidValue = errors.New("invalid field value")
)

// IsValidation reports whether err is a caller mistake rather than a
// persistence failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingArgument) ||
		errors.Is(err, ErrInvalidValue) ||
		profile.IsValidation(err)
}

// LoadInput are the arguments of load_business_profile.
type LoadInput struct {
	AccountID string `json:"accountId,omitempty"`
	Restart   bool   `json:"restart,omitempty"`
}

// UpdateInput are the arguments of update_business_profile_field. Value may
// be a string, number, bool or nil.
type UpdateInput struct {
	AccountID  string `json:"accountId"`
	SectionKey string `json:"sectionKey"`
	FieldKey   string `json:"fieldKey"`
	Value      any    `json:"value"`
}

// ResetInput are the arguments of reset_business_profile.
type ResetInput struct {
	AccountID string `json:"accountId"`
}

// TextContent is one human-readable content item.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Envelope is the uniform result of every tool.
type Envelope struct {
	StructuredContent profile.StructuredContent `json:"structuredContent"`
	Content           []TextContent             `json:"content"`
	Metadata          profile.Metadata          `json:"metadata"`
}

// Message returns the text of the first content item.
func (e *Envelope) Message() string {
	if len(e.Content) == 0 {
		return ""
	}
	return e.Content[0].Text
}

// Service implements the three onboarding tools.
type Service struct {
	store *profile.Store
	newID func() string
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator overrides uuid.NewString for new accounts.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// NewService wires the tools to store.
func NewService(store *profile.Store, opts ...Option) *Service {
	s := &Service{store: store, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying Profile Store.
func (s *Service) Store() *profile.Store {
	return s.store
}

// LoadProfile loads (or, with Restart, resets) a profile. A blank account id
// starts a brand-new account.
func (s *Service) LoadProfile(ctx context.Context, in LoadInput) (env *Envelope, err error) {
	accountID := strings.TrimSpace(in.AccountID)
	defer s.observe(ToolLoad, &accountID, time.Now(), &err)

	created := accountID == ""
	if created {
		accountID = s.newID()
		logging.ToolsDebug("generated account id %s", accountID)
	}

	var p *profile.Profile
	if in.Restart {
		p, err = s.store.Reset(ctx, accountID)
	} else {
		p, err = s.store.Load(ctx, accountID)
	}
	if err != nil {
		return nil, err
	}

	sum := profile.Summarize(p)
	var msg string
	switch {
	case created:
		msg = "Created a new account and loaded onboarding."
	case sum.OnboardingStatus == profile.StatusComplete:
		msg = "Profile is complete."
	default:
		msg = fmt.Sprintf("Continuing onboarding with the %s section.", sum.NextSection.Title)
	}
	return envelope(p, msg), nil
}

// UpdateField coerces the value to text and saves one field.
func (s *Service) UpdateField(ctx context.Context, in UpdateInput) (env *Envelope, err error) {
	accountID := strings.TrimSpace(in.AccountID)
	defer s.observe(ToolUpdate, &accountID, time.Now(), &err)

	if err := requireArgs(
		"accountId", accountID,
		"sectionKey", in.SectionKey,
		"fieldKey", in.FieldKey,
	); err != nil {
		return nil, err
	}
	value, err := CoerceValue(in.Value)
	if err != nil {
		return nil, err
	}

	p, err := s.store.UpdateField(ctx, accountID, in.SectionKey, in.FieldKey, value)
	if err != nil {
		return nil, err
	}
	return envelope(p, fmt.Sprintf("Saved %s in %s.", in.FieldKey, in.SectionKey)), nil
}

// ResetProfile replaces the profile with a blank one.
func (s *Service) ResetProfile(ctx context.Context, in ResetInput) (env *Envelope, err error) {
	accountID := strings.TrimSpace(in.AccountID)
	defer s.observe(ToolReset, &accountID, time.Now(), &err)

	if err := requireArgs("accountId", accountID); err != nil {
		return nil, err
	}
	p, err := s.store.Reset(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return envelope(p, "Started a fresh onboarding session."), nil
}

func (s *Service) observe(tool string, accountID *string, start time.Time, errp *error) {
	elapsed := time.Since(start)
	err := *errp

	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case IsValidation(err):
		outcome = metrics.OutcomeRejected
	default:
		outcome = metrics.OutcomeError
		logging.Get(logging.CategoryTools).Error("%s failed for %s: %v", tool, *accountID, err)
	}
	metrics.ObserveTool(tool, outcome, elapsed)
	logging.Audit().ToolCompleted(tool, *accountID, elapsed, err)
	logging.ToolsDebug("%s %s -> %s in %v", tool, *accountID, outcome, elapsed)
}

func envelope(p *profile.Profile, msg string) *Envelope {
	return &Envelope{
		StructuredContent: profile.BuildStructuredContent(p),
		Content:           []TextContent{{Type: "text", Text: msg}},
		Metadata:          profile.BuildMetadata(p),
	}
}

// requireArgs takes name/value pairs and fails on the first blank value.
func requireArgs(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return fmt.Errorf("%w: %s", ErrMissingArgument, pairs[i])
		}
	}
	return nil
}
