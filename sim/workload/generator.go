package workload

import (
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/rotor-sim/rotor-sim/sim"
)

// Generator synthesizes a flow list for one run: flow sizes drawn from the
// configured workload CDF, sources and destinations uniform over distinct
// racks, arrivals forming a Poisson process sized to the target load factor.
// Deterministic given the same config (the generator owns the "workload"
// RNG subsystem of the run's master seed).
type Generator struct {
	cfg        *sim.Config
	rng        *rand.Rand
	nextFlowID uint64
}

// NewGenerator creates a generator for the given config.
func NewGenerator(cfg *sim.Config) *Generator {
	rngs := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.RandomSeed))
	return &Generator{
		cfg: cfg,
		rng: rngs.ForSubsystem(sim.SubsystemWorkload),
	}
}

// GenerateFlows produces the run's flow list. The arrival rate is
// lambda = load_factor * (hosts * link_rate) / avg_flow_size_bits flows per
// second; inter-arrival gaps are exponential. Generation stops at the
// simulated horizon. A zero load factor yields no flows.
func (g *Generator) GenerateFlows() []*sim.Flow {
	var flows []*sim.Flow

	if g.cfg.LoadFactor <= 0 {
		logrus.Infof("Generated 0 flows (load_factor=0)")
		return flows
	}

	totalHosts := g.cfg.NumRacks * g.cfg.HostsPerRack
	totalCapacityBps := float64(totalHosts) * g.cfg.LinkRateBps()
	avgFlowSizeBits := AvgFlowSizeBytes(g.cfg.Workload) * 8.0

	lambda := g.cfg.LoadFactor * totalCapacityBps / avgFlowSizeBits // flows/s
	lambdaPerMs := lambda / 1000.0

	cdf := CDFForWorkload(g.cfg.Workload)

	currentTimeMs := 0.0
	for currentTimeMs < g.cfg.SimTimeMs {
		srcRack := g.rng.Intn(g.cfg.NumRacks)
		dstRack := g.rng.Intn(g.cfg.NumRacks)
		// inter-rack traffic only
		for dstRack == srcRack {
			dstRack = g.rng.Intn(g.cfg.NumRacks)
		}

		flow := &sim.Flow{
			ID:          g.nextFlowID,
			StartTimeMs: currentTimeMs,
			SrcRack:     srcRack,
			DstRack:     dstRack,
			SrcHost:     g.rng.Intn(g.cfg.HostsPerRack),
			DstHost:     g.rng.Intn(g.cfg.HostsPerRack),
			SizeBytes:   SampleFlowSize(g.rng, cdf),
			// Every flow on the rotor fabric is bulk; low-latency traffic
			// rides the packet switch, which is outside this simulation.
			Type: sim.FlowBulk,
		}
		g.nextFlowID++

		flows = append(flows, flow)

		currentTimeMs += g.rng.ExpFloat64() / lambdaPerMs
	}

	logrus.Infof("Generated %d flows", len(flows))
	return flows
}
