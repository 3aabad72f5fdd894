package oracle

import (
	"math"
	"sort"
	"time"

	"github.com/trustwrapper/core/pkg/contracts"
)

// sourceDeviation is one surviving (or dropped) source's distance from
// the median, kept around for diagnostics.
type sourceDeviation struct {
	SourceID  string
	Price     float64
	Volume    float64
	Deviation float64
}

// computeConsensus runs the eight-step consensus computation over the
// samples currently live in a symbol's ring. volumeAnomalyScore is
// supplied by the caller (the engine tracks the rolling volume
// baseline across ticks; this function stays a pure transform of one
// window so it is trivial to test in isolation).
//
// staleOracle is true whenever the window could not produce a
// consensus-worthy price (fewer than MinSources distinct, fresh
// sources survived); in that case the returned ConsensusPrice carries
// ManipulationScore 1 per policy.
func computeConsensus(cfg *contracts.PolicyConfig, symbol string, samples []contracts.OracleSample, now time.Time, volumeAnomalyScore float64) (contracts.ConsensusPrice, bool) {
	maxAge := time.Duration(cfg.MaxSampleAge)

	// Step 1: discard stale samples, then step (latest per source):
	// keep only the newest sample per source_id.
	latest := make(map[string]contracts.OracleSample)
	for _, s := range samples {
		if now.Sub(s.ReportedAt) > maxAge {
			continue
		}
		cur, ok := latest[s.SourceID]
		if !ok || s.ReportedAt.After(cur.ReportedAt) {
			latest[s.SourceID] = s
		}
	}

	total := len(latest)

	// Step 2: require >= min_sources distinct sources.
	if total < cfg.MinSources {
		return staleConsensus(symbol, now), true
	}

	prices := make([]float64, 0, total)
	for _, s := range latest {
		prices = append(prices, s.Price)
	}
	// Step 3: median across latest-per-source.
	med := median(prices)
	if med == 0 {
		return staleConsensus(symbol, now), true
	}

	// Step 4: per-source deviation from the median.
	deviations := make([]sourceDeviation, 0, total)
	for id, s := range latest {
		deviations = append(deviations, sourceDeviation{
			SourceID:  id,
			Price:     s.Price,
			Volume:    s.Volume,
			Deviation: math.Abs(s.Price-med) / med,
		})
	}

	// Step 5: drop outliers beyond outlier_threshold; require
	// min_sources survivors.
	survivors := deviations[:0:0]
	for _, d := range deviations {
		if d.Deviation <= cfg.OutlierThreshold {
			survivors = append(survivors, d)
		}
	}
	if len(survivors) < cfg.MinSources {
		return staleConsensus(symbol, now), true
	}

	// Step 6: consensus_price / deviation_max / deviation_mean over
	// survivors.
	survivorPrices := make([]float64, len(survivors))
	var deviationSum, deviationMax float64
	for i, d := range survivors {
		survivorPrices[i] = d.Price
		deviationSum += d.Deviation
		if d.Deviation > deviationMax {
			deviationMax = d.Deviation
		}
	}
	consensusPrice := median(survivorPrices)
	deviationMean := deviationSum / float64(len(survivors))

	// Step 7: manipulation_score.
	survivorFrac := float64(len(survivors)) / float64(total)
	w := cfg.ManipulationWeights
	score := w.Alpha*deviationMax + w.Beta*(1-survivorFrac) + w.Gamma*volumeAnomalyScore
	score = clamp01(score)

	return contracts.ConsensusPrice{
		Symbol:                  symbol,
		ConsensusPriceValue:     consensusPrice,
		DeviationMax:            deviationMax,
		DeviationMean:           deviationMean,
		ContributingSourceCount: len(survivors),
		ManipulationScore:       score,
		ComputedAt:              now,
	}, false
}

func staleConsensus(symbol string, now time.Time) contracts.ConsensusPrice {
	return contracts.ConsensusPrice{
		Symbol:            symbol,
		ManipulationScore: 1,
		ComputedAt:        now,
	}
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
