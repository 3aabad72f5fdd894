package wrapper

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/trustwrapper/core/pkg/auth"
	"github.com/trustwrapper/core/pkg/contracts"
	"github.com/trustwrapper/core/pkg/tiers"
)

// Server is the optional thin HTTP adapter over a Wrapper, gated by
// tier: the out-of-process surface is a Professional-and-above feature
// (tiers.FeatureHTTPAdapter).
type Server struct {
	wrapper *Wrapper
	handler http.Handler
}

// NewServer builds the HTTP adapter around w. It returns an error if
// w's policy config's tier does not carry tiers.FeatureHTTPAdapter.
// limiter may be nil to disable rate limiting.
func NewServer(w *Wrapper, validator *auth.CallerValidator, limiter *auth.LimiterStore) (*Server, error) {
	profile := tiers.Get(w.cfg.Tier)
	if profile == nil || !profile.HasFeature(tiers.FeatureHTTPAdapter) {
		return nil, contracts.NewVerifyError(contracts.ErrConfigInvalid, "http adapter requires at least the professional tier", nil)
	}

	s := &Server{wrapper: w}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/readiness", handleHealth)
	mux.HandleFunc("/startup", handleHealth)
	mux.HandleFunc("/v1/verify", s.handleVerify)
	mux.HandleFunc("/v1/verify-batch", s.handleVerifyBatch)

	var handler http.Handler = mux
	handler = auth.RequireScope("verify")(handler)
	if limiter != nil {
		handler = auth.RateLimitMiddleware(limiter)(handler)
	}
	handler = auth.NewMiddleware(validator)(handler)
	handler = auth.RequestIDMiddleware(handler)
	s.handler = handler
	return s, nil
}

// ServeHTTP lets *Server satisfy http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

type verifyHTTPRequest struct {
	Decision        contracts.Decision `json:"decision"`
	DeadlineMS      int64              `json:"deadline_ms,omitempty"`
	SkipAttestation bool               `json:"skip_attestation,omitempty"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body verifyHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	req := Request{
		Decision:        body.Decision,
		CallerToken:     bearerToken(r),
		SkipAttestation: body.SkipAttestation,
	}
	if body.DeadlineMS > 0 {
		req.Deadline = time.Now().Add(time.Duration(body.DeadlineMS) * time.Millisecond)
	}

	result, err := s.wrapper.Verify(r.Context(), req)
	writeVerifyResult(w, result, err)
}

type verifyBatchHTTPRequest struct {
	Decisions       []contracts.Decision `json:"decisions"`
	DeadlineMS      int64                `json:"deadline_ms,omitempty"`
	SkipAttestation bool                 `json:"skip_attestation,omitempty"`
}

func (s *Server) handleVerifyBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body verifyBatchHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	token := bearerToken(r)
	var deadline time.Time
	if body.DeadlineMS > 0 {
		deadline = time.Now().Add(time.Duration(body.DeadlineMS) * time.Millisecond)
	}

	reqs := make([]Request, len(body.Decisions))
	for i, d := range body.Decisions {
		reqs[i] = Request{Decision: d, CallerToken: token, Deadline: deadline, SkipAttestation: body.SkipAttestation}
	}

	results, errs := s.wrapper.VerifyBatch(r.Context(), reqs)
	writeVerifyBatchResult(w, results, errs)
}

func writeVerifyResult(w http.ResponseWriter, result Result, err error) {
	if err != nil {
		writeVerifyError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func writeVerifyBatchResult(w http.ResponseWriter, results []Result, errs []error) {
	type item struct {
		Result *Result `json:"result,omitempty"`
		Error  string  `json:"error,omitempty"`
	}
	out := make([]item, len(results))
	for i := range results {
		if errs[i] != nil {
			out[i] = item{Error: errs[i].Error()}
			continue
		}
		r := results[i]
		out[i] = item{Result: &r}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func writeVerifyError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if ve, ok := err.(*contracts.VerifyError); ok {
		switch ve.Code {
		case contracts.ErrInputMalformed, contracts.ErrConfigInvalid:
			status = http.StatusBadRequest
		case contracts.ErrDeadlineTooTight:
			status = http.StatusRequestTimeout
		}
	}
	http.Error(w, err.Error(), status)
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
