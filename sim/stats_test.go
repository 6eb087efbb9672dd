package sim

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedFlow(id uint64, startMs, completionMs float64) *Flow {
	return &Flow{
		ID:               id,
		SrcRack:          0,
		DstRack:          1,
		StartTimeMs:      startMs,
		Completed:        true,
		CompletionTimeMs: completionMs,
	}
}

func TestStatistics_CountsCompletedAndIncomplete(t *testing.T) {
	s := NewStatistics()
	s.AddFlow(completedFlow(0, 1, 3))
	s.AddFlow(&Flow{ID: 1, SrcRack: 0, DstRack: 1}) // never completed

	assert.Equal(t, 2, s.TotalFlows)
	assert.Equal(t, 1, s.CompletedFlows)
}

func TestStatistics_MeanFCT(t *testing.T) {
	s := NewStatistics()
	s.AddFlow(completedFlow(0, 0, 2)) // FCT 2
	s.AddFlow(completedFlow(1, 0, 4)) // FCT 4
	s.AddFlow(completedFlow(2, 0, 6)) // FCT 6

	assert.InDelta(t, 4.0, s.MeanFCT(), 1e-12)
}

func TestStatistics_MeanFCT_NoSamples(t *testing.T) {
	s := NewStatistics()
	assert.Equal(t, 0.0, s.MeanFCT())
	assert.Equal(t, 0.0, s.PercentileFCT(0.99))
}

func TestStatistics_PercentileFCT_SortedIndexRule(t *testing.T) {
	// GIVEN FCTs 1..10 added out of order
	s := NewStatistics()
	for _, fct := range []float64{7, 1, 10, 3, 9, 2, 8, 4, 6, 5} {
		s.AddFlow(completedFlow(0, 0, fct))
	}

	// THEN the percentile uses idx = floor(p*n), clamped
	assert.Equal(t, 6.0, s.PercentileFCT(0.5))   // idx 5
	assert.Equal(t, 10.0, s.PercentileFCT(0.95)) // idx 9
	assert.Equal(t, 10.0, s.PercentileFCT(0.99)) // idx 9
	assert.Equal(t, 10.0, s.PercentileFCT(1.0))  // clamped to last
	assert.Equal(t, 1.0, s.PercentileFCT(0.0))
}

func TestStatistics_SaveToFile(t *testing.T) {
	s := NewStatistics()
	s.AddFlow(completedFlow(0, 0, 2))
	s.AddFlow(&Flow{ID: 1})
	s.AddDroppedPacket()
	s.AddDroppedPacket()
	s.SetThroughputGbps(1.25)
	s.SetSimTime(100)

	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, s.SaveToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")

	assert.Equal(t, "metric,value", lines[0])
	assert.Contains(t, lines, "total_flows,2")
	assert.Contains(t, lines, "completed_flows,1")
	assert.Contains(t, lines, "dropped_packets,2")
	assert.Contains(t, lines, "throughput_gbps,1.25")
	assert.Contains(t, lines, "mean_fct_ms,2")
	assert.Contains(t, lines, "median_fct_ms,2")
	assert.Contains(t, lines, "p95_fct_ms,2")
	assert.Contains(t, lines, "p99_fct_ms,2")
}

func TestStatistics_SaveToFile_NoCompletedFlows(t *testing.T) {
	s := NewStatistics()
	s.AddFlow(&Flow{ID: 0})

	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, s.SaveToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "mean_fct_ms")
	assert.Contains(t, string(data), "total_flows,1")
}
