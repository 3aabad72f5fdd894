package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/trustwrapper/core/pkg/contracts"
)

// JSONRPCSource speaks bare JSON-RPC 2.0 over HTTP. It exists for
// chains that have no dedicated Go SDK available (e.g. Solana), where
// there is no third-party client library to wire: the protocol itself
// is the entire "library" a caller needs.
type JSONRPCSource struct {
	id      string
	url     string
	method  string
	params  []any
	decimal int
	http    *http.Client
}

// NewJSONRPCSource builds a source that calls method with params
// against the JSON-RPC endpoint at url, expecting a numeric price
// scaled by 10^decimal in the "result" field.
func NewJSONRPCSource(id, url, method string, params []any, decimal int) *JSONRPCSource {
	return &JSONRPCSource{
		id:      id,
		url:     url,
		method:  method,
		params:  params,
		decimal: decimal,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *JSONRPCSource) ID() string { return s.id }

type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type jsonrpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *JSONRPCSource) Poll(ctx context.Context, symbol string) (contracts.OracleSample, error) {
	payload, err := json.Marshal(jsonrpcRequest{JSONRPC: "2.0", ID: 1, Method: s.method, Params: s.params})
	if err != nil {
		return contracts.OracleSample{}, fmt.Errorf("%w: encode request: %v", ErrSourceUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return contracts.OracleSample{}, fmt.Errorf("%w: build request: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return contracts.OracleSample{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	var rpcResp jsonrpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return contracts.OracleSample{}, fmt.Errorf("%w: decode response: %v", ErrSourceUnavailable, err)
	}
	if rpcResp.Error != nil {
		return contracts.OracleSample{}, fmt.Errorf("%w: rpc error %d: %s", ErrSourceUnavailable, rpcResp.Error.Code, rpcResp.Error.Message)
	}

	var raw float64
	if err := json.Unmarshal(rpcResp.Result, &raw); err != nil {
		return contracts.OracleSample{}, fmt.Errorf("%w: result not numeric: %v", ErrSourceUnavailable, err)
	}

	return contracts.OracleSample{
		SourceID:   s.id,
		Symbol:     symbol,
		Price:      raw / pow10(s.decimal),
		ReportedAt: time.Now(),
	}, nil
}
