// Package llm implements the text-generation capability with interchangeable
// upstream providers (Anthropic Claude and OpenAI) behind a common interface,
// plus the factory that selects a primary and fallback adapter from the
// available credentials.
package llm

import (
	"context"
)

// Provider is the contract every text-generation adapter satisfies.
// Implementations encapsulate one vendor's request/response shape; call sites
// never branch on provider identity.
type Provider interface {
	// ID returns the provider identifier (for logging and metrics).
	ID() string

	// Model returns the model identifier this adapter targets.
	Model() string

	// Generate produces text for prompt. systemPrompt may be empty.
	Generate(ctx context.Context, prompt, systemPrompt string) (string, error)

	// Probe checks reachability with a minimal request. It returns nil when
	// the provider is reachable and an error otherwise; it never panics.
	Probe(ctx context.Context) error

	// Close cleans up provider resources (idle HTTP connections).
	Close() error
}
