package services

import "fmt"

// MalformedProbeError is returned when a required probe signal is missing.
// It is fatal to the single verification and never retried.
type MalformedProbeError struct {
	Field string
}

func (e *MalformedProbeError) Error() string {
	return fmt.Sprintf("malformed probe: %s is required", e.Field)
}

// CorpusUnavailableError wraps a corpus read failure. The engine degrades to
// an empty corpus when it sees one.
type CorpusUnavailableError struct {
	DomainHint string
	Err        error
}

func (e *CorpusUnavailableError) Error() string {
	return fmt.Sprintf("corpus unavailable for %q: %v", e.DomainHint, e.Err)
}

func (e *CorpusUnavailableError) Unwrap() error {
	return e.Err
}

// ScoringInvariantViolation signals an internal scoring bug
type ScoringInvariantViolation struct {
	Check    string
	Expected int
	Actual   int
}

func (e *ScoringInvariantViolation) Error() string {
	return fmt.Sprintf("scoring invariant violated (%s): expected %d, got %d", e.Check, e.Expected, e.Actual)
}
