// Defines the Flow and Packet records shared between the workload generator,
// the simulation engine, and the statistics collector.

package sim

import (
	"fmt"
)

// FlowType distinguishes bulk transfers from latency-sensitive flows.
// Every flow carried on the rotor fabric is bulk; the low-latency tag exists
// so externally produced flow files round-trip through the CSV codec
// unchanged.
type FlowType string

const (
	FlowBulk       FlowType = "bulk"
	FlowLowLatency FlowType = "low_latency"
)

// Flow models a single host-to-host transfer. A flow is created once by the
// workload generator and mutated only by the engine as its packets are
// produced and delivered. Flows live until the end of the run so the
// statistics collector can inspect them.
type Flow struct {
	ID          uint64
	SrcRack     int
	DstRack     int
	SrcHost     int
	DstHost     int
	SizeBytes   uint64
	StartTimeMs float64
	Type        FlowType

	PacketIDs        []uint64 // ids of packets shredded from this flow, in creation order
	PacketsReceived  int
	Completed        bool
	CompletionTimeMs float64
}

// FCT returns the flow completion time in milliseconds, or -1 if the flow
// never completed within the simulated horizon.
func (f *Flow) FCT() float64 {
	if !f.Completed {
		return -1.0
	}
	return f.CompletionTimeMs - f.StartTimeMs
}

// NumPackets returns how many packets the flow shreds into at the given MTU.
func (f *Flow) NumPackets(mtuBytes int) int {
	return int((f.SizeBytes + uint64(mtuBytes) - 1) / uint64(mtuBytes))
}

func (f *Flow) String() string {
	return fmt.Sprintf("Flow: (ID: %d, %d->%d, %d bytes, start: %.3fms, completed: %v)",
		f.ID, f.SrcRack, f.DstRack, f.SizeBytes, f.StartTimeMs, f.Completed)
}

// Packet is the unit of transmission on the fabric. FinalDst never changes
// after creation; CurrentRack and CurrentDst track the pending hop.
// HopCount is 0 while the packet waits at its source, 1 after the first
// transmission, and 2 after a second (VLB) hop. A packet is present in at
// most one VOQ at any time.
type Packet struct {
	ID      uint64
	FlowID  uint64
	SrcRack int // origin rack, immutable
	SrcHost int
	DstHost int

	FinalDst    int // ultimate destination rack, immutable
	CurrentRack int // rack that presently holds or is transmitting the packet
	CurrentDst  int // next-hop rack for the pending transmission

	SizeBytes      int
	CreationTimeMs float64
	SentTimeMs     float64
	ArrivalTimeMs  float64

	Type     FlowType
	HopCount int
	Dropped  bool
}

// Delivered reports whether the packet has reached its final destination.
func (p *Packet) Delivered() bool {
	return p.HopCount >= 1 && p.CurrentRack == p.FinalDst && !p.Dropped
}
