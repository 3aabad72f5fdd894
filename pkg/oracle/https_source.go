package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/trustwrapper/core/pkg/contracts"
	"github.com/trustwrapper/core/pkg/util/resiliency"
)

// httpsFeedResponse is the wire shape a signed HTTPS price feed is
// expected to return for a GET /price/{symbol} request.
type httpsFeedResponse struct {
	Price      float64   `json:"price"`
	Volume     float64   `json:"volume"`
	ReportedAt time.Time `json:"reported_at"`
	Signature  string    `json:"signature"`
}

// HTTPSSource polls a signed HTTPS price feed through the resilient
// client (circuit breaker + exponential backoff + traceparent
// injection), so a flaky feed degrades gracefully instead of stalling
// the whole consensus tick.
type HTTPSSource struct {
	id      string
	baseURL string
	client  *resiliency.EnhancedClient
}

// NewHTTPSSource builds an HTTPSSource polling baseURL + "/price/{symbol}".
func NewHTTPSSource(id, baseURL string) *HTTPSSource {
	return &HTTPSSource{id: id, baseURL: baseURL, client: resiliency.NewEnhancedClient()}
}

func (s *HTTPSSource) ID() string { return s.id }

func (s *HTTPSSource) Poll(ctx context.Context, symbol string) (contracts.OracleSample, error) {
	url := fmt.Sprintf("%s/price/%s", s.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return contracts.OracleSample{}, fmt.Errorf("%w: build request: %v", ErrSourceUnavailable, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return contracts.OracleSample{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return contracts.OracleSample{}, fmt.Errorf("%w: status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	var body httpsFeedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return contracts.OracleSample{}, fmt.Errorf("%w: decode response: %v", ErrSourceUnavailable, err)
	}

	return contracts.OracleSample{
		SourceID:   s.id,
		Symbol:     symbol,
		Price:      body.Price,
		Volume:     body.Volume,
		ReportedAt: body.ReportedAt,
		Signature:  body.Signature,
	}, nil
}
