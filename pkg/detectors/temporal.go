package detectors

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/trustwrapper/core/pkg/contracts"
)

// yearRef matches a bare four-digit year, the common shape a model
// uses when asserting "in <year>" or "the <year> Olympics".
var yearRef = regexp.MustCompile(`\b(1[5-9]\d{2}|20\d{2}|21\d{2})\b`)

// pastTenseMarkers are words that frame a year reference as something
// that has already happened.
var pastTenseMarkers = regexp.MustCompile(`(?i)\b(concluded|happened|occurred|ended|took place|was held|finished|completed)\b`)

// TemporalDetector flags a Response asserting a future year as already
// past, or citing a year further in the future than the reference
// clock allows for ordinary forward-looking claims.
type TemporalDetector struct {
	// FutureToleranceYears is how far past now a "future plan" claim
	// may reach before it counts as an anachronism rather than a
	// forward-looking statement (e.g. "the 2028 Olympics will be...").
	FutureToleranceYears int
}

// NewTemporalDetector returns a TemporalDetector with the default
// five-year forward tolerance.
func NewTemporalDetector() *TemporalDetector {
	return &TemporalDetector{FutureToleranceYears: 5}
}

func (d *TemporalDetector) Name() string { return "temporal" }

func (d *TemporalDetector) Detect(ctx context.Context, resp *contracts.Response, now time.Time) Finding {
	text := normalize(resp.Text)
	nowYear := now.Year()

	matches := yearRef.FindAllStringIndex(text, -1)
	for _, m := range matches {
		yearStr := text[m[0]:m[1]]
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			continue
		}
		if year <= nowYear {
			continue
		}

		window := windowAround(text, m[0], m[1], 60)
		if pastTenseMarkers.MatchString(window) {
			return Finding{
				Factor:     contracts.FactorTemporalError,
				Confidence: 0.9,
				Evidence:   fmt.Sprintf("year %d (in the future relative to %d) asserted in past tense: %q", year, nowYear, window),
			}
		}
		if year > nowYear+d.FutureToleranceYears {
			return Finding{
				Factor:     contracts.FactorTemporalError,
				Confidence: 0.5,
				Evidence:   fmt.Sprintf("year %d is implausibly far beyond the reference clock (%d)", year, nowYear),
			}
		}
	}
	return Finding{}
}

// windowAround returns a small slice of text around [start,end) for
// evidence strings, clamped to the string's bounds.
func windowAround(text string, start, end, radius int) string {
	lo := start - radius
	if lo < 0 {
		lo = 0
	}
	hi := end + radius
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:hi]
}
