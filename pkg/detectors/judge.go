package detectors

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/trustwrapper/core/pkg/contracts"
	"github.com/trustwrapper/core/pkg/llmclient"
)

// JudgeDetector is the optional fifth detector: it asks an
// OpenAI-compatible model whether a Response's factual claims hold up,
// and folds the answer into the same (factor, confidence, evidence)
// shape the deterministic detectors use. Unlike those detectors it is
// not required to be reproducible across knowledge-base versions —
// model outputs vary by provider and over time — which is why its
// absence or failure never blocks a recommendation on its own.
type JudgeDetector struct {
	client llmclient.Client
}

// NewJudgeDetector wraps an llmclient.Client as a Detector. client is
// typically a *llmclient.ResilientClient so a provider outage degrades
// to a cached answer rather than losing the judge's signal outright.
func NewJudgeDetector(client llmclient.Client) *JudgeDetector {
	return &JudgeDetector{client: client}
}

func (d *JudgeDetector) Name() string { return "llm_judge" }

const judgePrompt = `You are a fact-checking judge. Given the text below, reply with exactly two lines:
VERDICT: CONSISTENT or CONTRADICTION
CONFIDENCE: a number between 0 and 1

Text:
%s`

func (d *JudgeDetector) Detect(ctx context.Context, resp *contracts.Response, now time.Time) Finding {
	messages := []llmclient.Message{
		{Role: "user", Content: fmt.Sprintf(judgePrompt, resp.Text)},
	}
	reply, err := d.client.Chat(ctx, messages, &llmclient.SamplingOptions{Temperature: 0, Seed: 1})
	if err != nil {
		// The judge is optional: a failure here is silence, not a
		// negative signal, so it returns a zero Finding rather than a
		// DETECTOR_TIMEOUT — that bit is reserved for the deadline and
		// panic paths in Run, which already cover availability.
		return Finding{}
	}
	return parseJudgeReply(reply.Content)
}

func parseJudgeReply(content string) Finding {
	var verdict string
	var confidence float64

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(strings.ToUpper(line), "VERDICT:"):
			verdict = strings.ToUpper(strings.TrimSpace(line[len("VERDICT:"):]))
		case strings.HasPrefix(strings.ToUpper(line), "CONFIDENCE:"):
			if v, err := strconv.ParseFloat(strings.TrimSpace(line[len("CONFIDENCE:"):]), 64); err == nil {
				confidence = v
			}
		}
	}

	if verdict != "CONTRADICTION" {
		return Finding{}
	}
	if confidence <= 0 {
		confidence = 0.5
	}
	if confidence > 1 {
		confidence = 1
	}
	return Finding{
		Factor:     contracts.FactorHallucinationDetected,
		Confidence: confidence,
		Evidence:   "llm judge flagged a contradiction: " + content,
	}
}
