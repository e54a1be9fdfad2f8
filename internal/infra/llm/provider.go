// Package llm defines the model-agnostic inference provider abstraction.
// Adapters (Ollama, etc.) implement Provider so the application is never
// coupled to a specific serving runtime.
package llm

import (
	"context"
	"errors"
)

// Failure modes every adapter must surface. Callers branch on these with
// errors.Is; the wrapped message carries transport detail.
var (
	// ErrBackendUnavailable means the inference process/connection could not be reached.
	ErrBackendUnavailable = errors.New("llm backend unavailable")

	// ErrBackendTimeout means the call exceeded its wall-clock budget.
	ErrBackendTimeout = errors.New("llm backend timeout")
)

// Provider is the model-agnostic interface for completion calls.
type Provider interface {
	// Complete performs a non-streaming completion. The context carries the
	// hard wall-clock deadline; adapters must honor it and map expiry to
	// ErrBackendTimeout.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// ModelInfo returns static metadata about the provider/model.
	ModelInfo() ModelMeta

	// HealthCheck returns nil if the provider is reachable and operational.
	HealthCheck(ctx context.Context) error
}

// Message represents a single turn in a conversation (role + content).
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// CompletionRequest is the input for a non-streaming completion.
type CompletionRequest struct {
	// Model overrides the provider default when non-empty.
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// CompletionResponse is the output from a non-streaming completion.
type CompletionResponse struct {
	Content    string // The assistant message text.
	StopReason string // "stop" | "length" | "error"
}

// ModelMeta describes the model / provider identity.
type ModelMeta struct {
	ID        string // e.g. "llama3.2:3b"
	Provider  string // e.g. "ollama"
	MaxTokens int    // Maximum context window size.
}
