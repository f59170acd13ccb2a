package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Attachment is a binary payload sent alongside the text prompt, typically
// a medical image. Data is the raw (decoded) bytes; providers re-encode it
// however their wire format requires.
type Attachment struct {
	MediaType string
	Data      []byte
}

// GenerationRequest is a single-turn generation request: a system
// instruction, a user message and any multimodal attachments. It carries no
// conversation state; retries resend it unchanged.
type GenerationRequest struct {
	System      string
	User        string
	Attachments []Attachment
}

// Client is the generative model capability the rest of the server depends
// on. Implementations wrap one concrete provider API and return the raw
// generated text with no guarantee of structure.
type Client interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// ErrRefused marks a non-transient rejection by the provider, such as a
// safety block. Calls failing with it must not be retried.
var ErrRefused = errors.New("generation refused by provider")

// RefusalError wraps ErrRefused with the provider's stated reason.
type RefusalError struct {
	Reason string
}

func (e *RefusalError) Error() string {
	return fmt.Sprintf("generation refused by provider: %s", e.Reason)
}

func (e *RefusalError) Unwrap() error { return ErrRefused }

// HTTPError is a non-2xx provider response. It keeps the status code so the
// retry policy can tell transient failures from terminal ones, and the
// Retry-After delay when the provider sent one.
type HTTPError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("provider http %d: %s", e.StatusCode, e.Body)
}

// HTTPStatusCode implements the status-coder contract used by IsRetryable.
func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}
