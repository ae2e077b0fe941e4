package embedding

import (
	"context"
	"errors"
	"fmt"
)

// Provider generates a vector embedding for one composed course text.
// Composition happens before the call; providers only ever see raw text.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Config holds embedding provider configuration.
type Config struct {
	Provider       string `json:"provider"` // "huggingface" or "openai"
	Endpoint       string `json:"endpoint"`
	Model          string `json:"model"`
	APIKey         string `json:"api_key"`
	Dimension      int    `json:"dimension"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Kind classifies an embedding failure.
type Kind string

const (
	// KindTransport covers network failures and non-200 responses from
	// the endpoint.
	KindTransport Kind = "transport"
	// KindShape covers malformed bodies and wrong-dimension vectors.
	// A short or oversized vector must never be accepted: it would
	// corrupt all downstream similarity math.
	KindShape Kind = "shape"
)

// Error is a classified embedding failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("embedding: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("embedding: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// IsShape reports whether err is a shape-kind embedding error.
func IsShape(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindShape
}

// IsTransport reports whether err is a transport-kind embedding error.
func IsTransport(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindTransport
}
