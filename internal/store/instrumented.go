package store

import (
	"context"
	"errors"
	"time"

	"bizonboard/internal/logging"
	"bizonboard/internal/metrics"
	"bizonboard/internal/profile"
)

// Instrumented wraps a repository with Prometheus timings and slow-call
// warnings.
type Instrumented struct {
	next profile.Repository
	slow time.Duration
}

// Instrument decorates repo. Calls slower than slow are logged as warnings.
func Instrument(repo profile.Repository, slow time.Duration) *Instrumented {
	return &Instrumented{next: repo, slow: slow}
}

// Unwrap returns the decorated repository.
func (i *Instrumented) Unwrap() profile.Repository { return i.next }

func (i *Instrumented) Name() string { return i.next.Name() }

func (i *Instrumented) Get(ctx context.Context, accountID string) (*profile.Profile, error) {
	start := time.Now()
	p, err := i.next.Get(ctx, accountID)
	i.observe("get", start, err)
	return p, err
}

func (i *Instrumented) Create(ctx context.Context, p *profile.Profile) error {
	start := time.Now()
	err := i.next.Create(ctx, p)
	i.observe("create", start, err)
	return err
}

func (i *Instrumented) Put(ctx context.Context, p *profile.Profile) error {
	start := time.Now()
	err := i.next.Put(ctx, p)
	i.observe("put", start, err)
	return err
}

func (i *Instrumented) Update(ctx context.Context, accountID string, fn profile.UpdateFunc) (*profile.Profile, error) {
	start := time.Now()
	p, err := i.next.Update(ctx, accountID, fn)
	i.observe("update", start, err)
	return p, err
}

func (i *Instrumented) Close() error { return i.next.Close() }

func (i *Instrumented) observe(op string, start time.Time, err error) {
	elapsed := time.Since(start)
	metrics.ObserveStore(i.next.Name(), op, outcome(err), elapsed)
	if i.slow > 0 && elapsed > i.slow {
		logging.StoreWarn("%s %s took %v (threshold: %v)", i.next.Name(), op, elapsed, i.slow)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, profile.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, profile.ErrAlreadyExists):
		return metrics.OutcomeDuplicated
	case errors.Is(err, profile.ErrTransactionConflict):
		return metrics.OutcomeConflict
	case profile.IsValidation(err):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}
