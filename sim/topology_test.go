package sim

import (
	"testing"
)

func testTopologyConfig(numRacks, numSwitches int) *Config {
	cfg := DefaultConfig()
	cfg.NumRacks = numRacks
	cfg.NumSwitches = numSwitches
	cfg.HostsPerRack = 1
	return &cfg
}

func TestTournamentRound_PerfectMatching_EvenRacks(t *testing.T) {
	// GIVEN an even rack count
	n := 8
	for m := 0; m < n-1; m++ {
		peer := tournamentRound(n, m)

		// THEN every rack is paired with a distinct partner, symmetrically
		for u := 0; u < n; u++ {
			v := peer[u]
			if v == u {
				t.Errorf("round %d: rack %d left unpaired", m, u)
			}
			if peer[v] != u {
				t.Errorf("round %d: pairing not symmetric: peer[%d]=%d but peer[%d]=%d", m, u, v, v, peer[v])
			}
		}
	}
}

func TestTournamentRound_Disjoint_CoversAllPairs(t *testing.T) {
	// GIVEN all rounds of an 8-rack tournament
	n := 8
	seen := make(map[[2]int]int)
	for m := 0; m < n-1; m++ {
		peer := tournamentRound(n, m)
		for u := 0; u < n; u++ {
			seen[[2]int{u, peer[u]}]++
		}
	}

	// THEN every ordered pair appears exactly once across the rounds
	for u := 0; u < n; u++ {
		for v := 0; v < n; v++ {
			if u == v {
				continue
			}
			if got := seen[[2]int{u, v}]; got != 1 {
				t.Errorf("pair (%d,%d) appears %d times across rounds, want 1", u, v, got)
			}
		}
	}
}

func TestTournamentRound_OddRacks_OneIdlePerRound(t *testing.T) {
	// GIVEN an odd rack count (phantom opponent)
	n := 5
	for m := 0; m < n; m++ {
		peer := tournamentRound(n, m)

		idle := 0
		for u := 0; u < n; u++ {
			if peer[u] == u {
				idle++
			} else if peer[peer[u]] != u {
				t.Errorf("round %d: pairing not symmetric at rack %d", m, u)
			}
		}
		// THEN exactly one rack sits out each round
		if idle != 1 {
			t.Errorf("round %d: %d idle racks, want 1", m, idle)
		}
	}
}

func TestConnectedRack_DownDuringReconfig(t *testing.T) {
	// GIVEN the canonical 4-rack, 2-switch schedule (reconfig 20us, slot 200us)
	rt := NewRotorTopology(testTopologyConfig(4, 2))

	// THEN links are down inside the reconfiguration phase of every slot
	for _, tUs := range []float64{0, 5, 19.9, 200, 219.9} {
		for s := 0; s < 2; s++ {
			if got := rt.ConnectedRack(0, s, tUs); got != Down {
				t.Errorf("ConnectedRack(0,%d,%g) = %d during reconfig, want Down", s, tUs, got)
			}
		}
	}

	// AND up once the phase passes the reconfiguration delay
	up := 0
	for s := 0; s < 2; s++ {
		if rt.ConnectedRack(0, s, 30) != Down {
			up++
		}
	}
	if up == 0 {
		t.Error("no switch connects rack 0 in the active phase of slot 0")
	}
}

func TestConnectedRack_Symmetric(t *testing.T) {
	rt := NewRotorTopology(testTopologyConfig(8, 3))

	for _, tUs := range []float64{30, 230, 430, 630} {
		for s := 0; s < 3; s++ {
			for u := 0; u < 8; u++ {
				v := rt.ConnectedRack(u, s, tUs)
				if v == Down {
					continue
				}
				if back := rt.ConnectedRack(v, s, tUs); back != u {
					t.Errorf("t=%g switch %d: %d->%d but %d->%d", tUs, s, u, v, v, back)
				}
			}
		}
	}
}

func TestHasDirectPath_PeriodicInCycleTime(t *testing.T) {
	// Schedule periodicity: connectivity repeats every cycle
	rt := NewRotorTopology(testTopologyConfig(6, 2))
	cycle := rt.CycleTimeUs()

	for _, tUs := range []float64{0, 25, 137, 301, 555} {
		for u := 0; u < 6; u++ {
			for v := 0; v < 6; v++ {
				if u == v {
					continue
				}
				if rt.HasDirectPath(u, v, tUs) != rt.HasDirectPath(u, v, tUs+cycle) {
					t.Errorf("HasDirectPath(%d,%d) differs between t=%g and t=%g", u, v, tUs, tUs+cycle)
				}
			}
		}
	}
}

func TestNextDirectPathTime_CoverageWithinOneCycle(t *testing.T) {
	// Schedule coverage: every pair gets a direct slot within one cycle
	for _, tc := range []struct{ racks, switches int }{
		{4, 2}, {8, 4}, {6, 2}, {5, 1}, {16, 4},
	} {
		rt := NewRotorTopology(testTopologyConfig(tc.racks, tc.switches))
		cycle := rt.CycleTimeUs()

		for _, t0 := range []float64{0, 37, 111, 449} {
			for u := 0; u < tc.racks; u++ {
				for v := 0; v < tc.racks; v++ {
					if u == v {
						continue
					}
					next := rt.NextDirectPathTime(u, v, t0)
					if next < t0 {
						t.Fatalf("R=%d S=%d: NextDirectPathTime(%d,%d,%g) = %g is in the past",
							tc.racks, tc.switches, u, v, t0, next)
					}
					if next-t0 >= cycle {
						t.Errorf("R=%d S=%d: pair (%d,%d) not served within one cycle from t=%g (next=%g, cycle=%g)",
							tc.racks, tc.switches, u, v, t0, next, cycle)
					}
					if !rt.HasDirectPath(u, v, next) {
						t.Errorf("R=%d S=%d: NextDirectPathTime(%d,%d,%g) = %g but no direct path there",
							tc.racks, tc.switches, u, v, t0, next)
					}
				}
			}
		}
	}
}

func TestNextDirectPathTime_ReturnsNowWhenActive(t *testing.T) {
	rt := NewRotorTopology(testTopologyConfig(4, 2))

	// find an active pair at t=30 and confirm the wait is zero
	found := false
	for v := 1; v < 4; v++ {
		if rt.HasDirectPath(0, v, 30) {
			if got := rt.NextDirectPathTime(0, v, 30); got != 30 {
				t.Errorf("NextDirectPathTime(0,%d,30) = %g, want 30", v, got)
			}
			found = true
		}
	}
	if !found {
		t.Fatal("no pair active at t=30")
	}
}

func TestNextSlotActiveTime(t *testing.T) {
	// slot 200us, reconfig 20us
	rt := NewRotorTopology(testTopologyConfig(4, 2))

	cases := []struct{ t, want float64 }{
		{0, 20},    // inside the first reconfig phase
		{5, 20},    // still inside
		{20, 220},  // active phase already begun
		{150, 220}, // mid-slot
		{219, 220}, // inside the second reconfig phase
	}
	for _, tc := range cases {
		if got := rt.NextSlotActiveTime(tc.t); got != tc.want {
			t.Errorf("NextSlotActiveTime(%g) = %g, want %g", tc.t, got, tc.want)
		}
	}
}

func TestTopology_DerivedTiming(t *testing.T) {
	// R=4, S=2, reconfig=20us, duty=0.9: slot 200us, 2 matchings, cycle 400us
	cfg := testTopologyConfig(4, 2)
	if got := cfg.SlotTimeUs(); got != 200.0 {
		t.Errorf("SlotTimeUs = %g, want 200", got)
	}
	if got := cfg.NumMatchings(); got != 2 {
		t.Errorf("NumMatchings = %d, want 2", got)
	}
	if got := cfg.CycleTimeUs(); got != 400.0 {
		t.Errorf("CycleTimeUs = %g, want 400", got)
	}
}
