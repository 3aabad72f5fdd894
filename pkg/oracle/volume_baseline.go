package oracle

// volumeBaselineWindow bounds how many past ticks the rolling-median
// volume baseline remembers per symbol.
const volumeBaselineWindow = 20

// volumeBaseline tracks a rolling median of total window volume for
// one symbol, used to derive the volume_anomaly_score term of the
// manipulation score. Not safe for concurrent use; the engine owns one
// per symbol behind its per-symbol lock.
type volumeBaseline struct {
	history []float64
	next    int
}

func newVolumeBaseline() *volumeBaseline {
	return &volumeBaseline{history: make([]float64, 0, volumeBaselineWindow)}
}

// Observe folds currentVolume into the rolling window and returns the
// anomaly score for it: the fraction by which currentVolume exceeds
// the median of prior ticks, clipped to [0,1]. The baseline is updated
// with currentVolume regardless, so the next tick compares against a
// window that includes this one.
func (v *volumeBaseline) Observe(currentVolume float64) float64 {
	var score float64
	if len(v.history) > 0 {
		baseline := median(v.history)
		if baseline > 0 && currentVolume > baseline {
			score = clamp01((currentVolume - baseline) / baseline)
		}
	}

	if len(v.history) < volumeBaselineWindow {
		v.history = append(v.history, currentVolume)
	} else {
		v.history[v.next] = currentVolume
		v.next = (v.next + 1) % volumeBaselineWindow
	}
	return score
}
