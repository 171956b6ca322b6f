package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrConnection     = errors.New("connection error")
	ErrTimeout        = errors.New("request timeout")
	ErrServer         = errors.New("server error")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrRejected       = errors.New("request rejected")
	ErrSessionExpired = errors.New("session expired")
)

// APIError is a failed API call. Err is the class sentinel, Cause the
// underlying transport or refresh error when there is one.
type APIError struct {
	StatusCode int
	Body       []byte
	Message    string
	Err        error
	Cause      error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

func (e *APIError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// IsCanceled reports whether err comes from a cancelled request rather than
// a real failure.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// Message returns the text to show for err: the APIError message, or the
// error string otherwise.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

func statusError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status, Body: body}
	switch {
	case status >= http.StatusInternalServerError:
		e.Message = "server error"
		e.Err = ErrServer
	case status == http.StatusUnauthorized:
		e.Message = serverMessage(body, "unauthorized")
		e.Err = ErrUnauthorized
	default:
		e.Message = serverMessage(body, strings.ToLower(http.StatusText(status)))
		e.Err = ErrRejected
	}
	return e
}

// serverMessage extracts the "detail", "error" or "message" field of a JSON
// error body.
func serverMessage(body []byte, fallback string) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return fallback
	}
	for _, k := range []string{"detail", "error", "message"} {
		var s string
		if raw, ok := fields[k]; ok && json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}
	return fallback
}

// ServerDetail returns the "detail", "error" or "message" field the server
// put in the body of a failed response, if any.
func ServerDetail(err error) (string, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode == 0 {
		return "", false
	}
	msg := serverMessage(apiErr.Body, "")
	return msg, msg != ""
}
