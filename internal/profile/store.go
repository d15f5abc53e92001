package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bizonboard/internal/logging"
	"bizonboard/internal/metrics"

	"golang.org/x/sync/singleflight"
)

// Store owns creation, retrieval, reset and atomic field mutation of
// profiles. It is the sole writer of persisted state and holds no profile
// between calls.
type Store struct {
	repo      Repository
	schema    *Schema
	now       func() time.Time
	opTimeout time.Duration
	loads     singleflight.Group
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithSchema overrides DefaultSchema.
func WithSchema(s *Schema) StoreOption {
	return func(st *Store) { st.schema = s }
}

// WithClock overrides time.Now for lastSavedAt stamps.
func WithClock(now func() time.Time) StoreOption {
	return func(st *Store) { st.now = now }
}

// WithOpTimeout bounds each repository operation. Zero means no bound.
func WithOpTimeout(d time.Duration) StoreOption {
	return func(st *Store) { st.opTimeout = d }
}

// NewStore layers a Store on repo.
func NewStore(repo Repository, opts ...StoreOption) *Store {
	s := &Store{
		repo:   repo,
		schema: DefaultSchema,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schema returns the schema profiles are created from.
func (s *Store) Schema() *Schema {
	return s.schema
}

// Backend names the repository in use.
func (s *Store) Backend() string {
	return s.repo.Name()
}

// Load returns the profile for accountID, creating and persisting a blank one
// if none exists. Concurrent loads of one id share a single round trip, and a
// lost create race falls back to reading the winner's document.
func (s *Store) Load(ctx context.Context, accountID string) (*Profile, error) {
	if err := checkAccountID(accountID); err != nil {
		return nil, err
	}

	v, err, _ := s.loads.Do(accountID, func() (interface{}, error) {
		ctx, cancel := s.detach(ctx)
		defer cancel()
		return s.loadOrCreate(ctx, accountID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Profile).Clone(), nil
}

func (s *Store) loadOrCreate(ctx context.Context, accountID string) (*Profile, error) {
	p, err := s.repo.Get(ctx, accountID)
	if err == nil {
		s.schema.Conform(p)
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("load profile %s: %w", accountID, err)
	}

	blank := s.schema.NewProfile(accountID, s.now())
	err = s.repo.Create(ctx, blank)
	switch {
	case err == nil:
		logging.Get(logging.CategoryProfile).Debug("created blank profile %s", accountID)
		logging.Audit().ProfileCreated(accountID)
		return blank, nil
	case errors.Is(err, ErrAlreadyExists):
		p, err = s.repo.Get(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("load profile %s after create race: %w", accountID, err)
		}
		s.schema.Conform(p)
		return p, nil
	default:
		return nil, fmt.Errorf("create profile %s: %w", accountID, err)
	}
}

// Reset overwrites any profile for accountID with a fresh blank copy.
func (s *Store) Reset(ctx context.Context, accountID string) (*Profile, error) {
	if err := checkAccountID(accountID); err != nil {
		return nil, err
	}
	ctx, cancel := s.detach(ctx)
	defer cancel()

	blank := s.schema.NewProfile(accountID, s.now())
	if err := s.repo.Put(ctx, blank); err != nil {
		return nil, fmt.Errorf("reset profile %s: %w", accountID, err)
	}
	logging.Audit().ProfileReset(accountID)
	return blank.Clone(), nil
}

// UpdateField sets one field value in a single transaction. The profile is
// created first when absent. Unknown section or field keys abort the
// transaction and nothing is written.
func (s *Store) UpdateField(ctx context.Context, accountID, sectionKey, fieldKey, value string) (*Profile, error) {
	if err := checkAccountID(accountID); err != nil {
		return nil, err
	}

	ctx, cancel := s.detach(ctx)
	defer cancel()

	var before Status
	updated, err := s.repo.Update(ctx, accountID, func(cur *Profile) (*Profile, error) {
		now := s.now()
		if cur == nil {
			cur = s.schema.NewProfile(accountID, now)
		} else {
			s.schema.Conform(cur)
		}
		before = Summarize(cur).OnboardingStatus

		sec := cur.Section(sectionKey)
		if sec == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSection, sectionKey)
		}
		f := sec.Field(fieldKey)
		if f == nil {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, sectionKey, fieldKey)
		}

		f.Value = value
		cur.LastSavedAt = now.UTC()
		cur.OnboardingStatus = Summarize(cur).OnboardingStatus
		return cur, nil
	})
	if err != nil {
		if IsValidation(err) {
			logging.Audit().FieldRejected(accountID, sectionKey, fieldKey, err)
			return nil, err
		}
		return nil, fmt.Errorf("update profile %s: %w", accountID, err)
	}

	audit := logging.AuditWithAccount(accountID)
	audit.FieldUpdated(accountID, sectionKey, fieldKey)
	if after := Summarize(updated).OnboardingStatus; after != before {
		audit.StatusChanged(accountID, string(before), string(after))
		if after == StatusComplete {
			metrics.ProfileCompleted()
		}
	}
	return updated.Clone(), nil
}

// detach keeps an operation running after the caller goes away. Only the
// store's own timeout bounds it.
func (s *Store) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if s.opTimeout > 0 {
		return context.WithTimeout(ctx, s.opTimeout)
	}
	return ctx, func() {}
}

func checkAccountID(accountID string) error {
	if strings.TrimSpace(accountID) == "" {
		return ErrInvalidAccountID
	}
	return nil
}
