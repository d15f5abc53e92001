package profile

import "context"

// UpdateFunc mutates the current document inside a backend transaction.
// current is nil when no document exists. Returning an error aborts the
// transaction without writing. Backends may call it more than once when they
// retry a conflicted transaction, so it must not have side effects beyond
// the profile it returns.
type UpdateFunc func(current *Profile) (*Profile, error)

// Repository is the per-key document store the Profile Store is layered on.
// Implementations live in internal/store.
type Repository interface {
	// Get returns the stored document or ErrNotFound.
	Get(ctx context.Context, accountID string) (*Profile, error)

	// Create stores p only if no document exists for p.AccountID, otherwise
	// it returns ErrAlreadyExists.
	Create(ctx context.Context, p *Profile) error

	// Put overwrites the document for p.AccountID.
	Put(ctx context.Context, p *Profile) error

	// Update performs an atomic read-modify-write of one document. The read
	// happens inside the transaction, never from a cached snapshot.
	Update(ctx context.Context, accountID string, fn UpdateFunc) (*Profile, error)

	// Name identifies the backend in logs and health output.
	Name() string

	Close() error
}
