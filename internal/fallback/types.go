// Package fallback defines the contract for escalating locally unparseable
// input to an external AI service, and the policy that keeps escalation
// from ever corrupting a deterministic result.
package fallback

import (
	"context"

	"github.com/shopspring/decimal"
)

// Adapter is the sole network-facing collaborator of the engine. Retry and
// backoff policy is the adapter's own responsibility.
type Adapter interface {
	Process(ctx context.Context, req Request) Response
}

// Request is the shape the engine sends to the adapter.
type Request struct {
	Input        string `json:"input"`
	SystemPrompt string `json:"systemPrompt"`
}

// Response is the shape the engine expects back. OK with a Value means the
// adapter produced a usable numeric interpretation.
type Response struct {
	OK        bool             `json:"success"`
	Value     *decimal.Decimal `json:"value,omitempty"`
	Unit      string           `json:"unit,omitempty"`
	Formatted string           `json:"formatted,omitempty"`
	Err       *AdapterError    `json:"error,omitempty"`
}

// AdapterError classifies adapter-side failures. These never surface to the
// engine's caller; they only decide that the local error is retained.
type AdapterError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

const (
	CodeTimeout        = "timeout"
	CodeNetwork        = "network"
	CodeRateLimit      = "rate_limit"
	CodeParseError     = "parse_error"
	CodeNotProcessable = "not_processable"
	CodeServerError    = "server_error"
)

func failure(code, message string, retryable bool) Response {
	return Response{Err: &AdapterError{Code: code, Message: message, Retryable: retryable}}
}
