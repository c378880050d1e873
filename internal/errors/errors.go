package errors

import "fmt"

// SearchError is the structured error type threaded through every
// component. It carries enough context to become both a log line and a
// wire protocol error message without translation.
type SearchError struct {
	// Kind is the wire-level error code (see codes.go).
	Kind Kind

	// Message is the human-readable error message.
	Message string

	// Severity classifies how urgently this error needs attention.
	Severity Severity

	// Details contains additional context as key-value pairs, surfaced
	// verbatim in the wire protocol's error.details field.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SearchError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by Kind. This enables
// errors.Is() to work with SearchError.
func (e *SearchError) Is(target error) bool {
	t, ok := target.(*SearchError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetail adds a key-value detail to the error. Returns the error for
// method chaining.
func (e *SearchError) WithDetail(key, value string) *SearchError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a SearchError of the given Kind. Severity and retryability
// are derived from the Kind unless overridden afterward.
func New(kind Kind, message string, cause error) *SearchError {
	return &SearchError{
		Kind:      kind,
		Message:   message,
		Severity:  severityForKind(kind),
		Cause:     cause,
		Retryable: isRetryableKind(kind),
	}
}

// Wrap creates a SearchError from an existing error, keeping err as the
// cause. Returns nil if err is nil, so call sites can write
// `return errors.Wrap(errors.KindInternal, err)` unconditionally.
func Wrap(kind Kind, err error) *SearchError {
	if err == nil {
		return nil
	}
	return New(kind, err.Error(), err)
}

func Validation(message string, cause error) *SearchError {
	return New(KindValidation, message, cause)
}

func NotFound(message string, cause error) *SearchError {
	return New(KindNotFound, message, cause)
}

func AlreadyExists(message string, cause error) *SearchError {
	return New(KindAlreadyExists, message, cause)
}

func QueueFull(message string) *SearchError {
	return New(KindQueueFull, message, nil)
}

func Timeout(message string, cause error) *SearchError {
	return New(KindTimeout, message, cause)
}

func ModelUnavailable(message string, cause error) *SearchError {
	return New(KindModelUnavailable, message, cause)
}

func Internal(message string, cause error) *SearchError {
	return New(KindInternal, message, cause)
}

// IsRetryable reports whether err is a SearchError with Retryable set.
func IsRetryable(err error) bool {
	var se *SearchError
	if !As(err, &se) {
		return false
	}
	return se.Retryable
}

// KindOf extracts the Kind from err, defaulting to KindInternal for any
// error that isn't a SearchError.
func KindOf(err error) Kind {
	var se *SearchError
	if !As(err, &se) {
		return KindInternal
	}
	return se.Kind
}

// As reports whether err's chain holds a *SearchError and stores it in
// target. It walks single-error Unwrap links only, without calling the
// standard library's errors.As.
func As(err error, target **SearchError) bool {
	for err != nil {
		if se, ok := err.(*SearchError); ok {
			*target = se
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
