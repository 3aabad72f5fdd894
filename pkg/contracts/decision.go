// Package contracts holds the wire-level data model shared by every
// TrustWrapper component: Decision, MarketContext, the oracle types,
// Verdict, Attestation and AuditRecord.
package contracts

import "time"

// AgentHandle is an opaque, stable identifier for the AI agent whose
// output is being verified. TrustWrapper owns no identity beyond this
// bytestring; callers are responsible for its provenance.
type AgentHandle string

// DecisionKind tags the two shapes a Decision can take.
type DecisionKind string

const (
	DecisionKindTrade    DecisionKind = "trade"
	DecisionKindResponse DecisionKind = "response"
)

// TradeAction enumerates the actions a Trade decision may propose.
type TradeAction string

const (
	ActionBuy             TradeAction = "buy"
	ActionSell            TradeAction = "sell"
	ActionHold            TradeAction = "hold"
	ActionBridge          TradeAction = "bridge"
	ActionProvideLiquidity TradeAction = "provide_liquidity"
)

// Trade is the decision shape for autonomous trading agents.
type Trade struct {
	Action      TradeAction `json:"action"`
	AssetSymbol string      `json:"asset_symbol"`
	Quantity    float64     `json:"quantity"`
	Price       float64     `json:"price"`
	Confidence  float64     `json:"confidence"`
	StrategyTag string      `json:"strategy_tag,omitempty"`
	Timeframe   string      `json:"timeframe,omitempty"`
	Venue       string      `json:"venue,omitempty"`
}

// Response is the decision shape for LLM-based assistants: a piece of
// text emitted by a model, submitted for hallucination screening.
type Response struct {
	PromptHash string    `json:"prompt_hash"`
	Text       string    `json:"text"`
	ModelTag   string    `json:"model_tag,omitempty"`
	EmittedAt  time.Time `json:"emitted_at"`
}

// Decision is an immutable, tagged-union request for verification. Exactly
// one of Trade or Response is populated, selected by Kind.
//
//nolint:govet // fieldalignment: struct layout kept human-readable
type Decision struct {
	Kind    DecisionKind `json:"kind"`
	Agent   AgentHandle  `json:"agent"`
	Trade   *Trade       `json:"trade,omitempty"`
	Response *Response   `json:"response,omitempty"`
	IssuedAt time.Time   `json:"issued_at"`
}

// Fingerprint returns the canonical 32-byte content hash of this
// Decision, used for caching and idempotency.
func (d *Decision) Fingerprint(canon func(any) ([]byte, error)) ([32]byte, error) {
	bytes, err := canon(d)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256Sum(bytes), nil
}

// Validate checks the Decision has exactly one shape populated for its
// Kind, and that shape's own field constraints hold.
func (d *Decision) Validate() error {
	switch d.Kind {
	case DecisionKindTrade:
		if d.Trade == nil || d.Response != nil {
			return errInputMalformed("trade decision must carry exactly a Trade payload")
		}
		t := d.Trade
		if t.Quantity < 0 || t.Price < 0 {
			return errInputMalformed("trade quantity and price must be non-negative")
		}
		if t.Confidence < 0 || t.Confidence > 1 {
			return errInputMalformed("trade confidence must be in [0,1]")
		}
		if t.AssetSymbol == "" {
			return errInputMalformed("trade asset_symbol is required")
		}
	case DecisionKindResponse:
		if d.Response == nil || d.Trade != nil {
			return errInputMalformed("response decision must carry exactly a Response payload")
		}
		if d.Response.Text == "" {
			return errInputMalformed("response text is required")
		}
	default:
		return errInputMalformed("unknown decision kind: " + string(d.Kind))
	}
	if d.Agent == "" {
		return errInputMalformed("agent handle is required")
	}
	return nil
}
