package types

import (
	"errors"
	"fmt"
)

// ValidationError rejects a raw record at the ingestion boundary. The
// record is not stored; the offending field is reported to the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// ConflictError reports an exact-fingerprint uniqueness violation, the
// single serialization point between concurrent ingest workers. The
// loser of the race retries once as an update.
type ConflictError struct {
	Fingerprint string
	Err         error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("fingerprint conflict on %s: %v", e.Fingerprint, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// StoreUnavailableError wraps a transient store failure. Callers retry
// with backoff up to a configured attempt count, then surface it as
// fatal for that record without aborting the batch.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// InconsistentMergeError aborts a group consolidation whose merged vote
// totals do not reconcile. The group is left unconsolidated rather than
// committing inconsistent data.
type InconsistentMergeError struct {
	MeasureFingerprint string
	Detail             string
}

func (e *InconsistentMergeError) Error() string {
	return fmt.Sprintf("inconsistent merge for group %s: %s", e.MeasureFingerprint, e.Detail)
}

// IsValidation reports whether err is a rejection at the ingestion boundary.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is an exact-fingerprint race.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsRetryable reports whether err is a transient store failure worth
// retrying with backoff.
func IsRetryable(err error) bool {
	var se *StoreUnavailableError
	return errors.As(err, &se)
}
