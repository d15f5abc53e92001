package profile

import "errors"

var (
	// ErrUnknownSection means an update named a section the schema does not define.
	ErrUnknownSection = errors.New("unknown section")
	// ErrUnknownField means an update named a field its section does not define.
	ErrUnknownField = errors.New("unknown field")
	// ErrInvalidAccountID means the account id was empty.
	ErrInvalidAccountID = errors.New("invalid account id")

	// ErrNotFound is returned by repositories for a missing document.
	ErrNotFound = errors.New("profile not found")
	// ErrAlreadyExists is returned by Repository.Create when the key is taken.
	ErrAlreadyExists = errors.New("profile already exists")

	// ErrPersistenceUnavailable wraps every backend failure.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	// ErrTransactionConflict means the backend gave up retrying a contended update.
	ErrTransactionConflict error = &conflictError{}
)

type conflictError struct{}

func (*conflictError) Error() string { return "transaction conflict: retry budget exhausted" }

// Is lets errors.Is(ErrTransactionConflict, ErrPersistenceUnavailable) hold.
func (*conflictError) Is(target error) bool {
	return target == ErrPersistenceUnavailable
}

// IsValidation reports whether err is a deterministic input error that
// retrying cannot fix.
func IsValidation(err error) bool {
	return errors.Is(err, ErrUnknownSection) ||
		errors.Is(err, ErrUnknownField) ||
		errors.Is(err, ErrInvalidAccountID)
}
