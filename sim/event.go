package sim

import "github.com/sirupsen/logrus"

// Event defines the interface for all simulation events. Each event has a
// timestamp in simulated microseconds and an Execute method that advances
// simulation state when invoked.
type Event interface {
	Timestamp() float64
	Execute(*Simulator)
}

// FlowArrivalEvent fires when a flow starts: the engine shreds it into
// packets and enqueues them at the source rack.
type FlowArrivalEvent struct {
	time   float64
	FlowID uint64
}

// Timestamp returns the scheduled time of the FlowArrivalEvent.
func (e *FlowArrivalEvent) Timestamp() float64 {
	return e.time
}

// Execute materializes the flow's packets at its source rack.
func (e *FlowArrivalEvent) Execute(sim *Simulator) {
	logrus.Debugf("<< FlowArrival: flow %d at %.3fus", e.FlowID, e.time)
	sim.handleFlowArrival(e.FlowID)
}

// PacketArrivalEvent fires when a packet lands at an intermediate rack after
// its first hop and must be queued for forwarding.
type PacketArrivalEvent struct {
	time     float64
	PacketID uint64
}

// Timestamp returns the scheduled time of the PacketArrivalEvent.
func (e *PacketArrivalEvent) Timestamp() float64 {
	return e.time
}

// Execute enqueues the packet at the rack it just reached.
func (e *PacketArrivalEvent) Execute(sim *Simulator) {
	logrus.Debugf("<< PacketArrival: packet %d at %.3fus", e.PacketID, e.time)
	sim.handlePacketArrival(e.PacketID)
}

// TransmissionCompleteEvent fires when a packet finishes leaving its rack's
// uplink. The packet is then either delivered or in flight to an
// intermediate, and the rack is free to pump its next packet.
type TransmissionCompleteEvent struct {
	time     float64
	PacketID uint64
}

// Timestamp returns the scheduled time of the TransmissionCompleteEvent.
func (e *TransmissionCompleteEvent) Timestamp() float64 {
	return e.time
}

// Execute resolves the transmission and re-pumps the freed rack.
func (e *TransmissionCompleteEvent) Execute(sim *Simulator) {
	logrus.Debugf("<< TransmissionComplete: packet %d at %.3fus", e.PacketID, e.time)
	sim.handleTransmissionComplete(e.PacketID)
}

// SlotWakeupEvent retries transmission at a rack that went idle with queued
// packets, at the instant the next matching becomes active. Only scheduled
// when Config.SlotWakeup is enabled; at most one is outstanding per rack.
type SlotWakeupEvent struct {
	time float64
	Rack int
}

// Timestamp returns the scheduled time of the SlotWakeupEvent.
func (e *SlotWakeupEvent) Timestamp() float64 {
	return e.time
}

// Execute re-runs the transmission scan if the rack is still idle.
func (e *SlotWakeupEvent) Execute(sim *Simulator) {
	logrus.Debugf("<< SlotWakeup: rack %d at %.3fus", e.Rack, e.time)
	sim.handleSlotWakeup(e.Rack)
}
