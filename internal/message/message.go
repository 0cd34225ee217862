// Package message defines the JSON bodies exchanged with HTTP clients.
//
// Every response uses the same envelope:
//
//	{"success": bool, "message": string, "timestamp": RFC3339, "data": {...}}
//
// Failed responses also carry error_code, e.g. "HTTP_404".
package message

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Response is the uniform response envelope.
type Response struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
	ErrorCode string         `json:"error_code,omitempty"`
}

// OK returns a successful envelope stamped with now.
func OK(msg string, data map[string]any) *Response {
	return &Response{
		Success:   true,
		Message:   msg,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// Fail returns a failed envelope for the given HTTP status.
func Fail(status int, msg string) *Response {
	return &Response{
		Success:   false,
		Message:   msg,
		Timestamp: time.Now(),
		ErrorCode: fmt.Sprintf("HTTP_%d", status),
	}
}

// DeviceRequest is the body of a registration request.
//
// devices_id is the historical field name; device_id is accepted as an alias.
type DeviceRequest struct {
	RequestID string     `json:"request_id,omitempty"`
	DevicesID string     `json:"devices_id,omitempty"`
	DeviceID  string     `json:"device_id,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Device returns the device id carried by the request.
func (r *DeviceRequest) Device() string {
	if r.DevicesID != "" {
		return r.DevicesID
	}
	return r.DeviceID
}

// SetRequest is the body of a content write. An empty device id broadcasts.
type SetRequest struct {
	DeviceRequest
	Content *string `json:"content"`
}

// Decode reads a single JSON object from r into v, rejecting trailing data.
func Decode(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("message decode: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("message decode: unexpected data after JSON object")
	}
	return nil
}

// ResolveRequestID validates a client-supplied request id, generating one
// when none was sent.
func ResolveRequestID(s string) (string, error) {
	if s == "" {
		return uuid.NewString(), nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("request_id: %w", err)
	}
	return id.String(), nil
}
