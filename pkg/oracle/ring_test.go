package oracle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustwrapper/core/pkg/contracts"
)

func sampleAt(id string, price float64, at time.Time) contracts.OracleSample {
	return contracts.OracleSample{SourceID: id, Symbol: "SOL", Price: price, ReportedAt: at}
}

func TestRingEvictsOldestWhenFull(t *testing.T) {
	r := newRing(3)
	base := time.Now()
	r.Add(sampleAt("a", 1, base))
	r.Add(sampleAt("b", 2, base.Add(time.Second)))
	r.Add(sampleAt("c", 3, base.Add(2*time.Second)))
	r.Add(sampleAt("d", 4, base.Add(3*time.Second)))

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	require.Equal(t, "b", snap[0].SourceID)
	require.Equal(t, "d", snap[2].SourceID)
}

func TestRingSnapshotPreservesInsertionOrderBeforeFull(t *testing.T) {
	r := newRing(5)
	base := time.Now()
	r.Add(sampleAt("a", 1, base))
	r.Add(sampleAt("b", 2, base.Add(time.Second)))

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, "a", snap[0].SourceID)
	require.Equal(t, "b", snap[1].SourceID)
}
