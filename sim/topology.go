// Rotor schedule oracle. The fabric's connectivity is fully deterministic in
// time: each switch cycles through a fixed sequence of disjoint matchings,
// and each slot opens with a reconfiguration dead phase. Queries are O(S).

package sim

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Down is returned by ConnectedRack when the queried link carries no traffic
// at the queried instant (reconfiguration phase, idle phantom slot, or a
// switch with no matching at the current index).
const Down = -1

// RotorTopology answers instantaneous connectivity queries and predicts the
// next time a direct circuit opens between two racks.
type RotorTopology struct {
	numRacks    int
	numSwitches int

	// per-switch count; switches may carry one fewer matching when the
	// pair-cover total does not divide evenly
	numMatchings    int
	slotTimeUs      float64
	cycleTimeUs     float64
	reconfigDelayUs float64

	// matchings[switch][matchingIndex][rack] = peer rack
	matchings [][][]int
}

// NewRotorTopology builds the matching schedule for the given config.
func NewRotorTopology(cfg *Config) *RotorTopology {
	rt := &RotorTopology{
		numRacks:        cfg.NumRacks,
		numSwitches:     cfg.NumSwitches,
		numMatchings:    cfg.NumMatchings(),
		slotTimeUs:      cfg.SlotTimeUs(),
		cycleTimeUs:     cfg.CycleTimeUs(),
		reconfigDelayUs: cfg.ReconfigDelayUs,
	}
	rt.generateMatchings(cfg.totalMatchings())

	logrus.Infof("Topology initialized: %d matchings/switch, slot=%gus, cycle=%gus",
		rt.numMatchings, rt.slotTimeUs, rt.cycleTimeUs)
	return rt
}

// generateMatchings produces the pair-cover matchings with round-robin
// tournament scheduling and deals them out to the switches round-robin:
// switch s carries global rounds s, s+S, s+2S, ...
func (rt *RotorTopology) generateMatchings(totalRounds int) {
	all := make([][]int, totalRounds)
	for m := 0; m < totalRounds; m++ {
		all[m] = tournamentRound(rt.numRacks, m)
	}

	rt.matchings = make([][][]int, rt.numSwitches)
	for s := 0; s < rt.numSwitches; s++ {
		for m := s; m < totalRounds; m += rt.numSwitches {
			rt.matchings[s] = append(rt.matchings[s], all[m])
		}
	}
}

// tournamentRound returns round m of the circle-method tournament over n
// racks as a peer array. For even n the round is a perfect matching; for odd
// n one rack sits out (peer == itself, treated as idle). Rack 0 stays fixed
// while the others rotate, so the n-1 (or n) rounds are pairwise disjoint
// and jointly cover every rack pair.
func tournamentRound(n, m int) []int {
	peer := make([]int, n)
	players := n
	if n%2 == 1 {
		players = n + 1 // phantom opponent; its partner idles
	}
	k := players - 1 // racks 1..players-1 live on a rotating circle of size k
	idx := func(j int) int { return ((j % k) + k) % k }

	// everyone defaults to idle; pairs below overwrite
	for i := range peer {
		peer[i] = i
	}

	pair := func(u, v int) {
		if u < n && v < n {
			peer[u], peer[v] = v, u
		}
	}
	pair(0, idx(m)+1)
	for d := 1; d <= (players-2)/2; d++ {
		pair(idx(m+d)+1, idx(m-d)+1)
	}
	return peer
}

// ConnectedRack returns the rack src is circuit-connected to via the given
// switch at time t, or Down during the reconfiguration phase or when the
// switch presents no usable matching.
func (rt *RotorTopology) ConnectedRack(src, switchID int, tUs float64) int {
	tCycle := math.Mod(tUs, rt.cycleTimeUs)
	matchingIdx := int(tCycle/rt.slotTimeUs) % rt.numMatchings

	phase := math.Mod(tCycle, rt.slotTimeUs)
	if phase < rt.reconfigDelayUs {
		return Down
	}

	if switchID < 0 || switchID >= len(rt.matchings) {
		return Down
	}
	sw := rt.matchings[switchID]
	if matchingIdx >= len(sw) {
		return Down // this switch carries fewer matchings than the longest
	}
	peer := sw[matchingIdx][src]
	if peer == src {
		return Down // idle phantom slot (odd rack count)
	}
	return peer
}

// HasDirectPath reports whether any switch currently connects src to dst
// with an active (non-reconfiguring) link.
func (rt *RotorTopology) HasDirectPath(src, dst int, tUs float64) bool {
	for s := 0; s < rt.numSwitches; s++ {
		if rt.ConnectedRack(src, s, tUs) == dst {
			return true
		}
	}
	return false
}

// NextDirectPathTime returns the earliest t' >= t within one cycle at which
// src has a direct path to dst. Probes land on the first active instant of
// each slot so the reconfiguration phase never masks a hit. Falls back to
// t + cycle for a schedule with no hit (impossible for a well-formed one).
func (rt *RotorTopology) NextDirectPathTime(src, dst int, tUs float64) float64 {
	if rt.HasDirectPath(src, dst, tUs) {
		return tUs
	}

	slotStart := math.Floor(tUs/rt.slotTimeUs) * rt.slotTimeUs
	probe := slotStart + rt.reconfigDelayUs
	if probe <= tUs {
		// current slot is already active and did not match; try the next
		probe = slotStart + rt.slotTimeUs + rt.reconfigDelayUs
	}
	for ; probe < tUs+rt.cycleTimeUs; probe += rt.slotTimeUs {
		if rt.HasDirectPath(src, dst, probe) {
			return probe
		}
	}
	return tUs + rt.cycleTimeUs
}

// NextSlotActiveTime returns the next instant at which links come up: the
// end of the current reconfiguration phase, or of the next slot's.
func (rt *RotorTopology) NextSlotActiveTime(tUs float64) float64 {
	slotStart := math.Floor(tUs/rt.slotTimeUs) * rt.slotTimeUs
	if tUs < slotStart+rt.reconfigDelayUs {
		return slotStart + rt.reconfigDelayUs
	}
	return slotStart + rt.slotTimeUs + rt.reconfigDelayUs
}

// CycleTimeUs returns the schedule period.
func (rt *RotorTopology) CycleTimeUs() float64 { return rt.cycleTimeUs }

// SlotTimeUs returns the slot duration.
func (rt *RotorTopology) SlotTimeUs() float64 { return rt.slotTimeUs }
