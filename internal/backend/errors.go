package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingField = errors.New("missing_field")
	ErrUnavailable  = errors.New("backend_unavailable")
	ErrNoActivity   = errors.New("no_activity")
)

// APIError is a non-2xx backend reply. Body is the parsed JSON body, or
// {"message": text} when the body was not JSON.
type APIError struct {
	Status int
	Body   json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend status %d: %s", e.Status, e.Detail())
}

// Detail extracts the most specific human message: the first detail[].msg,
// then a string detail, then message, then the raw body.
func (e *APIError) Detail() string {
	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(e.Body, &body); err != nil {
		return strings.TrimSpace(string(e.Body))
	}
	if len(body.Detail) > 0 {
		var items []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(body.Detail, &items) == nil {
			for _, it := range items {
				if it.Msg != "" {
					return it.Msg
				}
			}
		}
		var s string
		if json.Unmarshal(body.Detail, &s) == nil && s != "" {
			return s
		}
	}
	if body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(e.Body))
}

// Message returns Detail, or fallback for any other error.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if d := apiErr.Detail(); d != "" && d != "{}" {
			return d
		}
	}
	return fallback
}
