// Package llmclient is the optional transport for the LLM judge
// detector: an OpenAI-compatible chat client, wrapped with the shared
// resiliency patterns (circuit breaker, retry) and a local-first
// fallback cache so a model-provider outage degrades the judge rather
// than blocking the whole verification call.
package llmclient

import "context"

// Message is one turn in a chat completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is anything that can run a chat completion. Implementations:
// OpenAIClient talks to a real OpenAI-compatible endpoint.
type Client interface {
	Chat(ctx context.Context, messages []Message, options *SamplingOptions) (*Response, error)
}

// SamplingOptions controls generation determinism. The judge always
// sets Seed and Temperature 0 so repeated calls on the same input are
// reproducible, per the detector determinism requirement.
type SamplingOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	Seed        int64   `json:"seed"`
}

// Response is a chat completion result.
type Response struct {
	Content string `json:"content"`
}
