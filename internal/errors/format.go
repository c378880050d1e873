package errors

// WireError is the JSON shape of the streaming protocol's error message
// payload: {"code": "...", "message": "...", "details": {...}}.
type WireError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// ToWire converts err into the wire protocol's error payload. Any error
// that isn't a *SearchError is reported as an internal error with no
// details, so a stray stdlib error never leaks an unclassified code to a
// client.
func ToWire(err error) WireError {
	var se *SearchError
	if !As(err, &se) {
		return WireError{Code: string(KindInternal), Message: err.Error()}
	}
	return WireError{
		Code:    string(se.Kind),
		Message: se.Message,
		Details: se.Details,
	}
}

// FormatForLog formats an error for structured logging. Returns key-value
// pairs suitable for slog attributes via slog.Any/slog.Group.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	var se *SearchError
	if !As(err, &se) {
		return map[string]any{"error": err.Error()}
	}

	result := map[string]any{
		"error_kind": string(se.Kind),
		"message":    se.Message,
		"severity":   string(se.Severity),
		"retryable":  se.Retryable,
	}

	if se.Cause != nil {
		result["cause"] = se.Cause.Error()
	}

	for k, v := range se.Details {
		result["detail_"+k] = v
	}

	return result
}
