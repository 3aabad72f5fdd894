package detectors

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/trustwrapper/core/pkg/contracts"
)

// KnowledgeBase is a curated entity-attribute fact store. Entries are
// lowercase-normalized; lookups are case-insensitive.
type KnowledgeBase struct {
	// Capitals maps a lowercase country name to its lowercase capital.
	Capitals map[string]string
}

// DefaultKnowledgeBase returns a small, offline knowledge base
// sufficient to catch the canonical capital-city hallucination.
// Operators extend it by constructing their own KnowledgeBase and
// passing it to NewFactualDetector.
func DefaultKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		Capitals: map[string]string{
			"germany":        "berlin",
			"france":         "paris",
			"japan":          "tokyo",
			"united kingdom": "london",
			"united states":  "washington",
			"canada":         "ottawa",
			"australia":      "canberra",
			"brazil":         "brasília",
			"india":          "new delhi",
			"china":          "beijing",
		},
	}
}

var capitalClaim = regexp.MustCompile(`(?i)\b([A-Z][a-zA-Z ]+?)\s+is\s+the\s+capital\s+of\s+([A-Z][a-zA-Z ]+?)[.\s]`)

// FactualDetector flags text asserting an entity-attribute fact that
// contradicts the knowledge base (e.g. a wrong national capital).
type FactualDetector struct {
	KB *KnowledgeBase
}

// NewFactualDetector builds a FactualDetector over kb. A nil kb uses
// DefaultKnowledgeBase.
func NewFactualDetector(kb *KnowledgeBase) *FactualDetector {
	if kb == nil {
		kb = DefaultKnowledgeBase()
	}
	return &FactualDetector{KB: kb}
}

func (d *FactualDetector) Name() string { return "factual" }

func (d *FactualDetector) Detect(ctx context.Context, resp *contracts.Response, now time.Time) Finding {
	text := normalize(resp.Text) + " "

	for _, m := range capitalClaim.FindAllStringSubmatch(text, -1) {
		claimedCapital := strings.ToLower(strings.TrimSpace(m[1]))
		country := strings.ToLower(strings.TrimSpace(m[2]))

		actualCapital, known := d.KB.Capitals[country]
		if !known {
			continue
		}
		if claimedCapital != actualCapital {
			return Finding{
				Factor:     contracts.FactorFactualContradiction,
				Confidence: 0.95,
				Evidence:   fmt.Sprintf("claimed %q is the capital of %q, knowledge base says %q", claimedCapital, country, actualCapital),
			}
		}
	}
	return Finding{}
}
