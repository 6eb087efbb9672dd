// Published flow-size distributions. Each workload is a piecewise-linear
// CDF in log(size) between fixed breakpoints; the tables reproduce the
// VL2 datamining, DCTCP websearch, and Facebook Hadoop curves.

package workload

import (
	"math"
	"math/rand"

	"github.com/rotor-sim/rotor-sim/sim"
)

// CDFPoint is one breakpoint of a flow-size CDF.
type CDFPoint struct {
	SizeBytes uint64
	Prob      float64
}

// CDFForWorkload returns the breakpoint table for a workload type.
func CDFForWorkload(wl sim.WorkloadType) []CDFPoint {
	switch wl {
	case sim.WorkloadDatamining:
		// From the VL2 paper - Datamining workload
		return []CDFPoint{
			{100, 0.0},
			{1000, 0.5},
			{10000, 0.6},
			{100000, 0.7},
			{1000000, 0.8},
			{10000000, 0.9},
			{100000000, 0.97},
			{1000000000, 1.0},
		}
	case sim.WorkloadWebsearch:
		// From the DCTCP paper - Websearch workload
		return []CDFPoint{
			{100, 0.0},
			{1000, 0.15},
			{10000, 0.2},
			{100000, 0.3},
			{1000000, 0.4},
			{10000000, 0.53},
			{100000000, 0.6},
			{300000000, 1.0},
		}
	case sim.WorkloadHadoop:
		// From the Facebook paper - Hadoop workload
		return []CDFPoint{
			{1000, 0.0},
			{10000, 0.05},
			{100000, 0.2},
			{1000000, 0.5},
			{10000000, 0.7},
			{100000000, 0.85},
			{1000000000, 1.0},
		}
	}
	return nil
}

// AvgFlowSizeBytes returns the nominal mean flow size used to derive the
// Poisson arrival rate from the target load factor.
func AvgFlowSizeBytes(wl sim.WorkloadType) float64 {
	switch wl {
	case sim.WorkloadDatamining:
		return 50e6
	case sim.WorkloadWebsearch:
		return 5e6
	case sim.WorkloadHadoop:
		return 30e6
	}
	return 10e6
}

// SampleFlowSize draws a flow size from the CDF: pick u uniform in [0,1),
// find the segment with prob[i-1] < u <= prob[i], and interpolate linearly
// in log10(size) within it.
func SampleFlowSize(rng *rand.Rand, cdf []CDFPoint) uint64 {
	u := rng.Float64()

	for i := 1; i < len(cdf); i++ {
		if u <= cdf[i].Prob {
			frac := (u - cdf[i-1].Prob) / (cdf[i].Prob - cdf[i-1].Prob)
			logSize := math.Log10(float64(cdf[i-1].SizeBytes)) +
				frac*(math.Log10(float64(cdf[i].SizeBytes))-math.Log10(float64(cdf[i-1].SizeBytes)))
			return uint64(math.Pow(10.0, logSize))
		}
	}
	return cdf[len(cdf)-1].SizeBytes
}
