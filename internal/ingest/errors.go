package ingest

import "fmt"

// TransportError marks a network or timeout failure talking to a source.
// Retryable by re-invocation; never retried automatically mid-job.
type TransportError struct {
	Source string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error for %s (%s): %v", e.Source, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError marks a malformed source payload. Isolated to the offending
// record; the batch continues.
type ParseError struct {
	Source string
	Detail string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error for %s: %s: %v", e.Source, e.Detail, e.Err)
	}
	return fmt.Sprintf("parse error for %s: %s", e.Source, e.Detail)
}

func (e *ParseError) Unwrap() error { return e.Err }

// QualityRejection marks a record scored below the validity threshold. The
// record still lands in the audit trail, flagged invalid.
type QualityRejection struct {
	Source string
	Score  float64
}

func (e *QualityRejection) Error() string {
	return fmt.Sprintf("record from %s rejected: quality %.2f below threshold", e.Source, e.Score)
}
