package detectors

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/trustwrapper/core/pkg/contracts"
)

// citationSpan matches a parenthetical or "Journal, Vol N" style
// citation span, the shape fabricated references usually take.
var citationSpan = regexp.MustCompile(`\(([^()]{8,120})\)`)

// doiPattern is the DOI registrant/suffix scheme (10.NNNN/suffix);
// anything claiming to be a DOI but not matching this shape is
// fabricated.
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

var doiClaim = regexp.MustCompile(`(?i)doi:\s*(\S+)`)

// CitationDetector flags citation-like spans that reference a known
// nonexistent venue, or a string claiming to be a DOI that doesn't
// match the DOI registrant/suffix scheme.
type CitationDetector struct {
	// KnownBadVenues are journal/venue names that do not exist, curated
	// offline (no network egress during detection).
	KnownBadVenues []string
}

// NewCitationDetector returns a CitationDetector seeded with a small
// set of commonly-hallucinated venue names.
func NewCitationDetector() *CitationDetector {
	return &CitationDetector{
		KnownBadVenues: []string{
			"Journal of Universal Science",
			"International Review of Everything",
			"Proceedings of Advanced Studies International",
		},
	}
}

func (d *CitationDetector) Name() string { return "citation" }

func (d *CitationDetector) Detect(ctx context.Context, resp *contracts.Response, now time.Time) Finding {
	text := normalize(resp.Text)

	if m := doiClaim.FindStringSubmatch(text); m != nil {
		doi := strings.TrimRight(m[1], ".,;)")
		if !doiPattern.MatchString(doi) {
			return Finding{
				Factor:     contracts.FactorFabricatedCitation,
				Confidence: 0.85,
				Evidence:   fmt.Sprintf("claimed DOI %q does not match the 10.NNNN/suffix scheme", doi),
			}
		}
	}

	for _, span := range citationSpan.FindAllString(text, -1) {
		for _, bad := range d.KnownBadVenues {
			if strings.Contains(span, bad) {
				return Finding{
					Factor:     contracts.FactorFabricatedCitation,
					Confidence: 0.95,
					Evidence:   fmt.Sprintf("citation references known-fabricated venue %q", bad),
				}
			}
		}
	}
	return Finding{}
}
