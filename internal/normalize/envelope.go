// Package normalize turns upstream responses into canonical values.
//
// Every upstream endpoint answers with the same wrapper:
//
//	{"success": true, "message": "...", "data": ...}
//
// Unwrap extracts data or fails with an ApiError carrying the server message.
// UnwrapPaged accepts both historical list shapes (a nested array under an
// endpoint specific key, or a bare array) and never fails. Identifier and
// display-name lookups go through one table per entity kind (see Kind).
package normalize

import (
	"bytes"
	"encoding/json"

	"ctf-portal/pkg/errors"
)

// Envelope is the wire wrapper shared by all endpoints.
type Envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// ParseEnvelope decodes body and reports whether it is a recognised
// envelope, i.e. a JSON object carrying a boolean "success" field.
func ParseEnvelope(body []byte) (*Envelope, bool) {
	var probe struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || probe.Success == nil {
		return nil, false
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, false
	}
	return &env, true
}

// HasData reports whether the envelope carries a non-null payload.
func (e *Envelope) HasData() bool {
	d := bytes.TrimSpace(e.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

// Unwrap returns the payload of a successful envelope. A failed envelope
// yields an ApiError with the server's message verbatim.
func Unwrap(env *Envelope) (json.RawMessage, error) {
	if env == nil {
		return nil, errors.NewApiError("")
	}
	if !env.Success {
		return nil, errors.NewApiError(env.Message)
	}
	return env.Data, nil
}

// UnwrapInto decodes the payload of a successful envelope into v.
// A success envelope without data leaves v untouched.
func UnwrapInto(env *Envelope, v any) error {
	data, err := Unwrap(env)
	if err != nil {
		return err
	}
	if !env.HasData() {
		return nil
	}
	return json.Unmarshal(data, v)
}

// UnwrapRequired is UnwrapInto for endpoints where a missing payload is a
// failure. The server message, if any, is kept.
func UnwrapRequired(env *Envelope, v any) error {
	if env != nil && env.Success && !env.HasData() {
		return errors.NewApiError(env.Message)
	}
	return UnwrapInto(env, v)
}
