package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrNetwork is returned when no response reached the client.
	ErrNetwork = errors.New("network failure")
	// ErrAuthorizationExpired marks a first 401. It is recovered by a refresh and
	// replay and only surfaces when no token source is configured.
	ErrAuthorizationExpired = errors.New("authorization expired")
	// ErrAuthorizationDenied is returned when a request is still rejected after a
	// refresh, when the refresh fails, or when no credentials are held.
	ErrAuthorizationDenied = errors.New("authorization denied")
	// ErrValidation is returned for 4xx responses other than 401.
	ErrValidation = errors.New("validation failure")
	// ErrServer is returned for 5xx responses.
	ErrServer = errors.New("server failure")
)

// HTTPError describes a non-2xx response.
type HTTPError struct {
	Kind   error
	Status int
	Method string
	Path   string
	Body   []byte
}

func (e *HTTPError) Error() string {
	msg := e.Message()
	if msg == "" {
		return fmt.Sprintf("%s %s: %v (%d)", e.Method, e.Path, e.Kind, e.Status)
	}
	return fmt.Sprintf("%s %s: %v (%d): %s", e.Method, e.Path, e.Kind, e.Status, msg)
}

// Is supports errors.Is(err, ErrValidation) and friends.
func (e *HTTPError) Is(target error) bool {
	return target == e.Kind
}

// Message extracts a human readable message from the response body. The API
// reports failures as {"error": "..."} or {"detail": "..."}; field validation
// errors are flattened as "field: reason".
func (e *HTTPError) Message() string {
	if len(e.Body) == 0 {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal(e.Body, &payload); err != nil {
		text := strings.TrimSpace(string(e.Body))
		if len(text) > 200 {
			text = text[:200]
		}
		return text
	}
	for _, key := range []string{"error", "detail", "message"} {
		if v, ok := payload[key].(string); ok && v != "" {
			return v
		}
	}
	var parts []string
	for field, v := range payload {
		switch reasons := v.(type) {
		case []any:
			for _, r := range reasons {
				parts = append(parts, fmt.Sprintf("%s: %v", field, r))
			}
		case string:
			parts = append(parts, fmt.Sprintf("%s: %s", field, reasons))
		}
	}
	return strings.Join(parts, "; ")
}

// NetworkError wraps a failure to obtain any response.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: network failure: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is supports errors.Is(err, ErrNetwork).
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

func classify(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrAuthorizationExpired
	case status >= 500:
		return ErrServer
	default:
		return ErrValidation
	}
}

// IsStatus reports whether err is an HTTPError carrying the status.
func IsStatus(err error, status int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == status
}

// UserMessage returns the text a UI should show for err.
func UserMessage(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if msg := httpErr.Message(); msg != "" {
			return msg
		}
	}
	switch {
	case errors.Is(err, ErrAuthorizationDenied):
		return "your session has ended, please log in again"
	case errors.Is(err, ErrNetwork):
		return "could not reach the server"
	case err == nil:
		return ""
	default:
		return err.Error()
	}
}
