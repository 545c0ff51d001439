package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a due or charge id does not exist. Deletes
	// of missing ids surface it wrapped in a RepositoryError; callers treat
	// it as a reportable condition, never a crash.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicatePeriod is returned when a due already exists for the same
	// (unit, month, year). The business expects at most one due per cell and
	// the repository enforces it at insert time.
	ErrDuplicatePeriod = errors.New("due already recorded for this unit and period")
)

// RepositoryError wraps a failed read or write against the data service.
// Reads that fail leave the caller's prior in-memory state untouched; no
// operation is retried automatically.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// repoErr keeps call sites short inside implementations.
func repoErr(op string, err error) error {
	return &RepositoryError{Op: op, Err: err}
}

// Errf wraps a formatted error into a RepositoryError for the given op.
func Errf(op string, format string, args ...any) error {
	return repoErr(op, fmt.Errorf(format, args...))
}

// Wrap returns err wrapped in a RepositoryError unless it already is one.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *RepositoryError
	if errors.As(err, &re) {
		return err
	}
	return repoErr(op, err)
}

// IsRepositoryError reports whether err carries a RepositoryError.
func IsRepositoryError(err error) bool {
	var re *RepositoryError
	return errors.As(err, &re)
}
