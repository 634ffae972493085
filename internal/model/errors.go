package model

import "fmt"

// ScopeError means the authorization boundary is invalid. Fatal: the run
// aborts before any collection.
type ScopeError struct {
	Reason string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("scope error: %s", e.Reason)
}

// CollectionError degrades a single source's contribution. Non-fatal: the run
// continues and the degradation is recorded in the manifest.
type CollectionError struct {
	Source SourceKind
	Err    error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("collection error (%s): %v", e.Source, e.Err)
}

func (e *CollectionError) Unwrap() error { return e.Err }

// NormalizationError skips one malformed raw evidence record. Non-fatal,
// counted in the manifest.
type NormalizationError struct {
	Ref    string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalization error (ref=%s): %s", e.Ref, e.Reason)
}

// HashingError must not occur on well-formed input; determinism would break
// silently otherwise, so callers treat it as fatal.
type HashingError struct {
	Err error
}

func (e *HashingError) Error() string {
	return fmt.Sprintf("hashing error: %v", e.Err)
}

func (e *HashingError) Unwrap() error { return e.Err }

// PersistenceError is surfaced to the caller but never corrupts in-memory run
// results; signals, findings, and the manifest can still be emitted to files.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
