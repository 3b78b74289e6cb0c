package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const (
	// UnreachableMessage is shown when the API produced no response at all.
	UnreachableMessage = "Unable to connect to the server. Please check your connection and try again."
	// DefaultMessage is used when neither the envelope nor the caller has a message.
	DefaultMessage = "Something went wrong. Please try again."
)

var (
	ErrUnreachable  = errors.New("api unreachable")
	ErrUnauthorized = errors.New("api session expired")
)

// ValidationError is one entry of the envelope's validationErrors list. The
// API sends either bare strings or {field, message} objects.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (v *ValidationError) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &v.Message)
	}
	type plain ValidationError
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*v = ValidationError(p)
	return nil
}

// Envelope is the structured error body returned by the API.
type Envelope struct {
	Timestamp        string            `json:"timestamp"`
	Status           int               `json:"status"`
	Error            string            `json:"error"`
	Message          string            `json:"message"`
	Path             string            `json:"path"`
	ValidationErrors []ValidationError `json:"validationErrors,omitempty"`
}

// Error is returned for every non-2xx response.
type Error struct {
	StatusCode int
	Envelope   *Envelope // nil when the body wasn't an envelope
}

func (e *Error) Error() string {
	if e.Envelope != nil && e.Envelope.Message != "" {
		return fmt.Sprintf("api responded %d: %s", e.StatusCode, e.Envelope.Message)
	}
	return fmt.Sprintf("api responded %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// Message picks the most specific user-facing message for err: the first
// validation error, then the envelope message, then fallback. Errors without
// any response map to UnreachableMessage.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrUnreachable) {
		return UnreachableMessage
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Envelope != nil {
		env := apiErr.Envelope
		if len(env.ValidationErrors) > 0 && env.ValidationErrors[0].Message != "" {
			return env.ValidationErrors[0].Message
		}
		if env.Message != "" {
			return env.Message
		}
	}
	if fallback != "" {
		return fallback
	}
	return DefaultMessage
}

func decodeError(status int, body []byte) error {
	apiErr := &Error{StatusCode: status}
	if len(bytes.TrimSpace(body)) > 0 {
		var env Envelope
		if err := json.Unmarshal(body, &env); err == nil && (env.Message != "" || env.Error != "" || len(env.ValidationErrors) > 0) {
			apiErr.Envelope = &env
		}
	}
	return apiErr
}
