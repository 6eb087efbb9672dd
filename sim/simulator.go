// sim/simulator.go
package sim

import (
	"container/heap"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"
)

// queuedEvent pairs an event with its insertion sequence number. The
// sequence is the documented tie-break: events at equal times pop in the
// order they were scheduled, so runs with the same seed are bit-reproducible.
type queuedEvent struct {
	ev  Event
	seq uint64
}

// EventQueue implements heap.Interface and orders events by (timestamp,
// insertion order). See canonical Golang example here:
// https://pkg.go.dev/container/heap#example-package-IntHeap
type EventQueue []queuedEvent

func (eq EventQueue) Len() int { return len(eq) }
func (eq EventQueue) Less(i, j int) bool {
	if eq[i].ev.Timestamp() != eq[j].ev.Timestamp() {
		return eq[i].ev.Timestamp() < eq[j].ev.Timestamp()
	}
	return eq[i].seq < eq[j].seq
}
func (eq EventQueue) Swap(i, j int) { eq[i], eq[j] = eq[j], eq[i] }

func (eq *EventQueue) Push(x any) {
	*eq = append(*eq, x.(queuedEvent))
}

func (eq *EventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	*eq = old[0 : n-1]
	return item
}

// Simulator is the core object that holds simulated time, the rotor
// topology oracle, all per-rack transmission state, and the event loop.
// All mutable state is owned exclusively by the engine; the run is
// single-threaded and advances cooperatively through the event heap.
type Simulator struct {
	Config   *Config
	Topology *RotorTopology
	Stats    *Statistics

	Clock     float64 // simulated time in microseconds
	EndTimeUs float64

	EventQueue EventQueue
	nextSeq    uint64

	// arena-style ownership: flows and packets live in these tables for the
	// whole run; VOQs and events carry only ids
	Flows   map[uint64]*Flow
	Packets map[uint64]*Packet

	VOQs          []*VOQBank
	rackBusy      []bool
	rackNextFree  []float64
	wakeupPending []bool

	nextPacketID        uint64
	TotalBytesDelivered uint64

	// rng drives VLB intermediate selection; seeded with random_seed+1000 so
	// traffic generation and path exploration stay independent
	rng *rand.Rand

	eventCount int
}

// NewSimulator builds the engine for one run and schedules the arrival of
// every flow in the list. The flow list is typically produced by the
// workload package or loaded from a flow CSV.
func NewSimulator(cfg *Config, flows []*Flow) *Simulator {
	rngs := NewPartitionedRNG(NewSimulationKey(cfg.RandomSeed))

	s := &Simulator{
		Config:        cfg,
		Topology:      NewRotorTopology(cfg),
		Stats:         NewStatistics(),
		EndTimeUs:     cfg.SimTimeMs * 1000.0,
		EventQueue:    make(EventQueue, 0),
		Flows:         make(map[uint64]*Flow, len(flows)),
		Packets:       make(map[uint64]*Packet),
		VOQs:          make([]*VOQBank, cfg.NumRacks),
		rackBusy:      make([]bool, cfg.NumRacks),
		rackNextFree:  make([]float64, cfg.NumRacks),
		wakeupPending: make([]bool, cfg.NumRacks),
		rng:           rngs.ForSubsystem(SubsystemEngine),
	}

	for i := 0; i < cfg.NumRacks; i++ {
		s.VOQs[i] = NewVOQBank(i, cfg.NumRacks, cfg.QueueSizePkts)
	}

	for _, f := range flows {
		s.Flows[f.ID] = f
		s.Schedule(&FlowArrivalEvent{time: f.StartTimeMs * 1000.0, FlowID: f.ID})
	}
	return s
}

// Schedule pushes an event into the simulator's event heap.
func (sim *Simulator) Schedule(ev Event) {
	heap.Push(&sim.EventQueue, queuedEvent{ev: ev, seq: sim.nextSeq})
	sim.nextSeq++
}

// Run drives the event loop until the heap drains or the next event falls
// past the simulated horizon, then folds the flow table into Stats.
func (sim *Simulator) Run() {
	logrus.Infof("Running simulation: %d flows, horizon=%gus", len(sim.Flows), sim.EndTimeUs)

	progressInterval := len(sim.EventQueue) / 20
	if progressInterval == 0 {
		progressInterval = 1000
	}

	for len(sim.EventQueue) > 0 {
		next := heap.Pop(&sim.EventQueue).(queuedEvent)
		if next.ev.Timestamp() > sim.EndTimeUs {
			logrus.Infof("Next event at %.3fus exceeds horizon %.3fus, stopping",
				next.ev.Timestamp(), sim.EndTimeUs)
			break
		}
		sim.Clock = next.ev.Timestamp()
		next.ev.Execute(sim)

		sim.eventCount++
		if sim.eventCount%progressInterval == 0 {
			logrus.Debugf("Progress: %.1f%%", 100.0*sim.Clock/sim.EndTimeUs)
		}
	}

	sim.collectStatistics()
	logrus.Infof("Simulation ended at %.3fus after %d events", sim.Clock, sim.eventCount)
}

// collectStatistics hands every flow to the collector in id order and
// computes the run's average throughput over the configured horizon.
func (sim *Simulator) collectStatistics() {
	ids := make([]uint64, 0, len(sim.Flows))
	for id := range sim.Flows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		sim.Stats.AddFlow(sim.Flows[id])
	}

	simTimeS := sim.Config.SimTimeMs / 1000.0
	sim.Stats.SetThroughputGbps(float64(sim.TotalBytesDelivered) * 8.0 / (simTimeS * 1e9))
	sim.Stats.SetSimTime(sim.Config.SimTimeMs)
}

// handleFlowArrival shreds a flow into MTU-sized packets (the last packet
// carries the residual bytes) and enqueues each at the source rack.
func (sim *Simulator) handleFlowArrival(flowID uint64) {
	flow := sim.Flows[flowID]
	numPackets := flow.NumPackets(sim.Config.MTUBytes)
	remaining := flow.SizeBytes

	for i := 0; i < numPackets; i++ {
		size := uint64(sim.Config.MTUBytes)
		if remaining < size {
			size = remaining
		}
		remaining -= size

		pkt := &Packet{
			ID:             sim.nextPacketID,
			FlowID:         flowID,
			SrcRack:        flow.SrcRack,
			SrcHost:        flow.SrcHost,
			DstHost:        flow.DstHost,
			FinalDst:       flow.DstRack,
			CurrentRack:    flow.SrcRack,
			SizeBytes:      int(size),
			CreationTimeMs: sim.Clock / 1000.0,
			Type:           flow.Type,
		}
		sim.nextPacketID++

		flow.PacketIDs = append(flow.PacketIDs, pkt.ID)
		sim.Packets[pkt.ID] = pkt

		sim.enqueueAt(pkt, flow.SrcRack)
	}
}

// enqueueAt places a packet into the right VOQ class at a rack and pumps the
// rack if it is idle. Second-hop packets always target their final
// destination in the NONLOCAL bank; first-hop packets go through the VLB
// decision. A failed enqueue is a tail drop: the packet leaves scheduling
// for good and is counted exactly once.
func (sim *Simulator) enqueueAt(pkt *Packet, rack int) {
	voq := sim.VOQs[rack]
	ok := false

	if pkt.HopCount == 1 {
		pkt.CurrentDst = pkt.FinalDst
		ok = voq.Enqueue(pkt.ID, pkt.FinalDst, VOQNonlocal)
	} else {
		if sim.shouldUseDirect(pkt, rack) {
			pkt.CurrentDst = pkt.FinalDst
			ok = voq.Enqueue(pkt.ID, pkt.FinalDst, VOQLocal)
		} else {
			intermediate := sim.selectIntermediateRack(rack, pkt.FinalDst)
			pkt.CurrentDst = intermediate
			ok = voq.Enqueue(pkt.ID, intermediate, VOQLocal)
		}
	}

	if !ok {
		pkt.Dropped = true
		sim.Stats.AddDroppedPacket()
		logrus.Warnf("Drop: packet %d (flow %d) at rack %d, %s VOQ for %d full",
			pkt.ID, pkt.FlowID, rack, sim.voqClassFor(pkt), pkt.CurrentDst)
		return
	}

	if !sim.rackBusy[rack] {
		sim.startTransmission(rack)
	}
}

func (sim *Simulator) voqClassFor(pkt *Packet) VOQClass {
	if pkt.HopCount == 1 {
		return VOQNonlocal
	}
	return VOQLocal
}

// startTransmission arbitrates among the rack's VOQs and launches one packet
// if any queued destination has an active circuit right now. NONLOCAL
// traffic outranks LOCAL traffic, and within a class destinations are
// scanned in ascending rack-id order with the first match winning. When
// nothing is eligible the rack goes idle; transmission resumes on the next
// enqueue, or at the next slot boundary when slot wake-ups are enabled.
func (sim *Simulator) startTransmission(rack int) {
	voq := sim.VOQs[rack]

	var pkt *Packet
	for _, class := range []VOQClass{VOQNonlocal, VOQLocal} {
		for _, dst := range voq.NonemptyDestinations(class) {
			if !sim.Topology.HasDirectPath(rack, dst, sim.Clock) {
				continue
			}
			packetID, ok := voq.Dequeue(dst, class)
			if !ok {
				continue
			}
			pkt = sim.Packets[packetID]
			break
		}
		if pkt != nil {
			break
		}
	}

	if pkt == nil {
		sim.rackBusy[rack] = false
		sim.maybeScheduleWakeup(rack)
		return
	}

	sim.rackBusy[rack] = true
	txTimeUs := float64(pkt.SizeBytes) * 8.0 / sim.Config.LinkRateBps() * 1e6
	pkt.SentTimeMs = sim.Clock / 1000.0

	sim.Schedule(&TransmissionCompleteEvent{time: sim.Clock + txTimeUs, PacketID: pkt.ID})
}

// maybeScheduleWakeup arms a retry at the next active slot instant for a
// rack that idles with queued packets. No-op unless slot_wakeup is set.
func (sim *Simulator) maybeScheduleWakeup(rack int) {
	if !sim.Config.SlotWakeup || sim.wakeupPending[rack] {
		return
	}
	if sim.VOQs[rack].TotalPackets() == 0 {
		return
	}
	wake := sim.Topology.NextSlotActiveTime(sim.Clock)
	if wake > sim.EndTimeUs {
		return
	}
	sim.wakeupPending[rack] = true
	sim.Schedule(&SlotWakeupEvent{time: wake, Rack: rack})
}

func (sim *Simulator) handleSlotWakeup(rack int) {
	sim.wakeupPending[rack] = false
	if !sim.rackBusy[rack] {
		sim.startTransmission(rack)
	}
}

// handleTransmissionComplete resolves a finished uplink transmission. The
// packet is delivered when its pending hop targeted the final destination;
// otherwise it is in flight to an intermediate rack and a PacketArrival is
// scheduled there after the propagation delay. Either way the rack that
// just went free pumps its next packet.
func (sim *Simulator) handleTransmissionComplete(packetID uint64) {
	pkt := sim.Packets[packetID]
	fromRack := pkt.CurrentRack

	pkt.HopCount++
	arrivalUs := sim.Clock + sim.Config.PropagationDelayUs

	if pkt.CurrentDst == pkt.FinalDst {
		pkt.CurrentRack = pkt.FinalDst
		pkt.ArrivalTimeMs = arrivalUs / 1000.0
		sim.TotalBytesDelivered += uint64(pkt.SizeBytes)

		flow := sim.Flows[pkt.FlowID]
		flow.PacketsReceived++
		if flow.PacketsReceived == len(flow.PacketIDs) {
			flow.Completed = true
			flow.CompletionTimeMs = pkt.ArrivalTimeMs
			logrus.Debugf("Flow %d completed at %.3fms", flow.ID, flow.CompletionTimeMs)
		}
	} else {
		pkt.CurrentRack = pkt.CurrentDst
		pkt.CurrentDst = pkt.FinalDst
		if arrivalUs <= sim.EndTimeUs {
			sim.Schedule(&PacketArrivalEvent{time: arrivalUs, PacketID: pkt.ID})
		} else {
			logrus.Infof("Packet %d (flow %d) arrival at %.3fus exceeds horizon %.3fus, not queuing",
				pkt.ID, pkt.FlowID, arrivalUs, sim.EndTimeUs)
		}
	}

	sim.rackNextFree[fromRack] = sim.Clock
	sim.startTransmission(fromRack)
}

// handlePacketArrival queues a packet that just landed at an intermediate
// rack for its second hop. Tail drop on overflow; no backpressure to the
// first hop.
func (sim *Simulator) handlePacketArrival(packetID uint64) {
	pkt := sim.Packets[packetID]
	sim.enqueueAt(pkt, pkt.CurrentRack)
}

// shouldUseDirect is the first-hop VLB decision: take the direct path when
// the circuit opens within one slot, spray via an intermediate only when the
// direct queue is congested, and default to direct otherwise.
func (sim *Simulator) shouldUseDirect(pkt *Packet, rack int) bool {
	wait := sim.Topology.NextDirectPathTime(rack, pkt.FinalDst, sim.Clock) - sim.Clock
	if wait < sim.Config.SlotTimeUs() {
		return true
	}
	if sim.VOQs[rack].QueueSize(pkt.FinalDst, VOQLocal) > sim.Config.QueueThreshold {
		return false
	}
	return true
}

// selectIntermediateRack draws a VLB intermediate uniformly from the racks
// other than the source and the final destination.
func (sim *Simulator) selectIntermediateRack(src, dst int) int {
	for {
		intermediate := sim.rng.Intn(sim.Config.NumRacks)
		if intermediate != src && intermediate != dst {
			return intermediate
		}
	}
}
