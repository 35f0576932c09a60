package common

import (
	"errors"
	"fmt"
)

// ErrNotFound marks lookups for corpora, documents, or nodes that do not
// exist. An empty query result is not a miss and does not carry this error.
var ErrNotFound = errors.New("not found")

// RejectReason names the ontology constraint an edge candidate violated.
type RejectReason string

const (
	RejectUnknownType     RejectReason = "unknown_type"
	RejectUnknownRelation RejectReason = "unknown_relation"
	RejectDomainMismatch  RejectReason = "domain_mismatch"
	RejectRangeMismatch   RejectReason = "range_mismatch"
)

// ValidationError is returned when a graph mutation fails ontology
// validation. Nothing is written in that case; the caller decides whether
// to skip, log, or retry with a corrected type.
type ValidationError struct {
	Reason   RejectReason
	Relation string
	Source   string
	Target   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation rejected (%s): relation=%q source=%q target=%q",
		e.Reason, e.Relation, e.Source, e.Target)
}

// ConfigurationError marks a deployment defect: a requested mode needs a
// collaborator (vector index, embedder) that was never wired up. It is not
// retried and never silently degraded.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Msg
}

// NotFoundf wraps ErrNotFound with a formatted description.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}
