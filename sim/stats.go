// Statistics collection and reporting: flow-completion-time aggregates,
// throughput, and drop counts, printed to stdout and saved as a
// "metric,value" CSV.

package sim

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// Statistics aggregates per-run results for final reporting. Flows are
// added once, after the event loop terminates; dropped packets are counted
// live by the engine.
type Statistics struct {
	TotalFlows     int
	CompletedFlows int
	DroppedPackets int
	ThroughputGbps float64
	SimTimeMs      float64

	fcts []float64 // completion times of completed flows, in ms
}

// NewStatistics creates an empty collector.
func NewStatistics() *Statistics {
	return &Statistics{}
}

// AddFlow records one flow's outcome. Incomplete flows count toward
// TotalFlows only.
func (s *Statistics) AddFlow(f *Flow) {
	s.TotalFlows++
	if f.Completed {
		s.CompletedFlows++
		s.fcts = append(s.fcts, f.FCT())
	}
}

// AddDroppedPacket counts one tail-dropped packet.
func (s *Statistics) AddDroppedPacket() {
	s.DroppedPackets++
}

// SetThroughputGbps records the run's average goodput.
func (s *Statistics) SetThroughputGbps(gbps float64) {
	s.ThroughputGbps = gbps
}

// SetSimTime records the simulated horizon in milliseconds.
func (s *Statistics) SetSimTime(ms float64) {
	s.SimTimeMs = ms
}

// MeanFCT returns the mean flow completion time in ms, 0 with no samples.
func (s *Statistics) MeanFCT() float64 {
	if len(s.fcts) == 0 {
		return 0.0
	}
	return stat.Mean(s.fcts, nil)
}

// PercentileFCT returns the p-th quantile (p in [0,1]) of the completion
// times using the sorted-index rule idx = floor(p*n) clamped to n-1. Not
// interpolated; chosen to report the same numbers as the reference
// implementation.
func (s *Statistics) PercentileFCT(p float64) float64 {
	if len(s.fcts) == 0 {
		return 0.0
	}
	sorted := make([]float64, len(s.fcts))
	copy(sorted, s.fcts)
	sort.Float64s(sorted)

	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Print displays aggregated metrics at the end of the simulation.
func (s *Statistics) Print() {
	fmt.Println("\n========== Simulation Results ==========")
	fmt.Println("\nFlow Statistics:")
	fmt.Printf("  Total flows: %d\n", s.TotalFlows)
	if s.TotalFlows > 0 {
		fmt.Printf("  Completed flows: %d (%.3f%%)\n", s.CompletedFlows,
			100.0*float64(s.CompletedFlows)/float64(s.TotalFlows))
	} else {
		fmt.Printf("  Completed flows: %d\n", s.CompletedFlows)
	}
	fmt.Printf("  Dropped packets: %d\n", s.DroppedPackets)

	if len(s.fcts) > 0 {
		fmt.Println("\nFlow Completion Times (all flows):")
		fmt.Printf("  Mean: %.3f ms\n", s.MeanFCT())
		fmt.Printf("  Median: %.3f ms\n", s.PercentileFCT(0.5))
		fmt.Printf("  95th: %.3f ms\n", s.PercentileFCT(0.95))
		fmt.Printf("  99th: %.3f ms\n", s.PercentileFCT(0.99))
		fmt.Printf("  Max: %.3f ms\n", s.PercentileFCT(1.0))
	}

	fmt.Println("\nThroughput:")
	fmt.Printf("  Average: %.3f Gb/s\n", s.ThroughputGbps)
	fmt.Println("\n========================================")
}

// SaveToFile writes the results CSV: header "metric,value", counters, then
// FCT aggregates when any flow completed.
func (s *Statistics) SaveToFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot open %s for writing: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	records := [][]string{
		{"metric", "value"},
		{"total_flows", strconv.Itoa(s.TotalFlows)},
		{"completed_flows", strconv.Itoa(s.CompletedFlows)},
		{"dropped_packets", strconv.Itoa(s.DroppedPackets)},
		{"throughput_gbps", formatFloat(s.ThroughputGbps)},
	}
	if len(s.fcts) > 0 {
		records = append(records,
			[]string{"mean_fct_ms", formatFloat(s.MeanFCT())},
			[]string{"median_fct_ms", formatFloat(s.PercentileFCT(0.5))},
			[]string{"p95_fct_ms", formatFloat(s.PercentileFCT(0.95))},
			[]string{"p99_fct_ms", formatFloat(s.PercentileFCT(0.99))},
		)
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
