package llmclient

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/trustwrapper/core/pkg/llmclient/modelpolicy"
)

// ResilientClient wraps a Client with policy enforcement and a
// local-first fallback cache. The underlying Client (normally
// OpenAIClient) already carries its own circuit breaker and retry via
// resiliency.EnhancedClient, so ResilientClient itself only adds:
// budget/rate gating before the call, and cache-fallback after it.
type ResilientClient struct {
	client   Client
	cache    *FallbackCache
	enforcer *modelpolicy.Enforcer
	provider string
	model    string
}

// NewResilientClient builds a ResilientClient. cache and enforcer may
// both be nil: a nil cache disables fallback-on-failure, a nil
// enforcer disables budget/rate gating.
func NewResilientClient(client Client, cache *FallbackCache, enforcer *modelpolicy.Enforcer, provider, model string) *ResilientClient {
	return &ResilientClient{
		client:   client,
		cache:    cache,
		enforcer: enforcer,
		provider: provider,
		model:    model,
	}
}

// Chat runs the underlying Client, falling back to the cached answer
// for an identical request when the call fails. A failure with no
// cached answer is returned to the caller unchanged.
func (r *ResilientClient) Chat(ctx context.Context, messages []Message, options *SamplingOptions) (*Response, error) {
	key := RequestKey(messages, options)

	if r.enforcer != nil {
		temperature := 0.0
		if options != nil {
			temperature = options.Temperature
		}
		check := r.enforcer.CheckRequest(ctx, r.provider, r.model, 0, 0, temperature, 0)
		if !check.Allowed {
			if cached, err := r.fallback(ctx, key); err == nil {
				return cached, nil
			}
			return nil, fmt.Errorf("llmclient: policy denied request and no cached fallback: %v", check.Violations)
		}
	}

	resp, err := r.client.Chat(ctx, messages, options)
	if err != nil {
		cached, cacheErr := r.fallback(ctx, key)
		if cacheErr == nil {
			slog.WarnContext(ctx, "llmclient: serving cached judge response after live failure", "error", err)
			return cached, nil
		}
		return nil, fmt.Errorf("llmclient: live call failed and no cached fallback: %w", err)
	}

	if r.enforcer != nil {
		r.enforcer.RecordUsage(0, len(resp.Content))
	}
	if r.cache != nil {
		if err := r.cache.Put(ctx, key, *resp); err != nil {
			slog.WarnContext(ctx, "llmclient: failed to persist fallback cache entry", "error", err)
		}
	}
	return resp, nil
}

func (r *ResilientClient) fallback(ctx context.Context, key string) (*Response, error) {
	if r.cache == nil {
		return nil, fmt.Errorf("llmclient: no fallback cache configured")
	}
	resp, ok := r.cache.Get(ctx, key)
	if !ok {
		return nil, fmt.Errorf("llmclient: no cached response for request")
	}
	return &resp, nil
}
