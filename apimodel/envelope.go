package apimodel

import (
	"encoding/json"
	"io"

	internalerrors "github.com/jrsteele09/mento-client/internal/errors"
	"github.com/pkg/errors"
)

// Envelope is the wrapper every backend response is delivered in.
// Example: {"success": true, "message": null, "data": {...}}
type Envelope[T any] struct {
	// Success is false for application level failures, which also carry a non 2xx status.
	Success bool `json:"success"`

	// Message is a human readable explanation. Usually only present on failures.
	Message *string `json:"message,omitempty"`

	// Data is the payload. Absent on failures.
	Data *T `json:"data,omitempty"`
}

// DecodeEnvelope reads an envelope from r and requires a successful payload.
func DecodeEnvelope[T any](r io.Reader) (*T, error) {
	var env Envelope[T]
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, internalerrors.Wrapf(internalerrors.ErrInvalidResponse, "decode envelope: %v", err)
	}
	if !env.Success || env.Data == nil {
		msg := "missing data"
		if env.Message != nil && *env.Message != "" {
			msg = *env.Message
		}
		return nil, errors.Wrap(internalerrors.ErrInvalidResponse, msg)
	}
	return env.Data, nil
}

// NewEnvelope builds a successful envelope around data.
func NewEnvelope[T any](data T) Envelope[T] {
	return Envelope[T]{Success: true, Data: &data}
}

// NewErrorEnvelope builds a failed envelope carrying message.
func NewErrorEnvelope(message string) Envelope[struct{}] {
	return Envelope[struct{}]{Success: false, Message: &message}
}
