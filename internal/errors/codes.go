// Package errors provides the structured error type used across every
// component of the search engine, plus the retry helper the embedding
// queue uses to re-drive transient failures.
//
// Kind is the wire-level taxonomy from the streaming protocol's error
// message (validation, not_found, already_exists, queue_full, timeout,
// model_unavailable, internal, duplicate_req_id) - every error surfaced to
// a client carries one of these.
package errors

// Kind classifies an error for both logging and the wire protocol's
// error.code field.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindAlreadyExists   Kind = "already_exists"
	KindQueueFull       Kind = "queue_full"
	KindTimeout         Kind = "timeout"
	KindModelUnavailable Kind = "model_unavailable"
	KindDuplicateReqID  Kind = "duplicate_req_id"
	KindInternal        Kind = "internal"
)

// Severity defines error severity levels, independent of Kind: two errors
// of the same Kind can differ in how urgently they need attention.
type Severity string

const (
	SeverityFatal   Severity = "FATAL"
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// retryableKinds are the Kinds the embedding queue and write queue will
// re-drive via Retry. Validation/not_found/already_exists/duplicate_req_id
// are caller mistakes - retrying them would just fail the same way again.
var retryableKinds = map[Kind]bool{
	KindTimeout:          true,
	KindModelUnavailable: true,
	KindQueueFull:        true,
}

func severityForKind(k Kind) Severity {
	switch k {
	case KindInternal:
		return SeverityFatal
	case KindTimeout, KindModelUnavailable, KindQueueFull:
		return SeverityWarning
	default:
		return SeverityError
	}
}

func isRetryableKind(k Kind) bool {
	return retryableKinds[k]
}
