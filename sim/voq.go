// Per-rack virtual output queues. Each rack keeps two banks of
// per-destination FIFOs: LOCAL for packets originating here (first hop) and
// NONLOCAL for packets that arrived here as a VLB intermediate (second hop
// pending). Keeping the classes physically separate lets the transmission
// scheduler express its priority rule as two independent destination scans.

package sim

// VOQClass selects one of the two queue banks at a rack.
type VOQClass int

const (
	VOQLocal VOQClass = iota
	VOQNonlocal
)

func (c VOQClass) String() string {
	if c == VOQLocal {
		return "local"
	}
	return "nonlocal"
}

// VOQBank holds the virtual output queues of a single rack. FIFOs are
// indexed by destination rack, so destination scans run in ascending rack-id
// order by construction. Each FIFO is individually bounded; enqueue on a
// full FIFO fails (tail drop, the head is never displaced).
type VOQBank struct {
	rackID   int
	numRacks int
	capacity int

	local    [][]uint64 // local[dst] = FIFO of packet ids, dst != rackID
	nonlocal [][]uint64

	totalPackets int
}

// NewVOQBank creates the VOQ bank for one rack.
func NewVOQBank(rackID, numRacks, capacity int) *VOQBank {
	return &VOQBank{
		rackID:   rackID,
		numRacks: numRacks,
		capacity: capacity,
		local:    make([][]uint64, numRacks),
		nonlocal: make([][]uint64, numRacks),
	}
}

func (b *VOQBank) bank(class VOQClass) [][]uint64 {
	if class == VOQLocal {
		return b.local
	}
	return b.nonlocal
}

// Enqueue appends a packet id to the FIFO for nexthop in the given class.
// Returns false without modifying the bank when the destination is invalid
// (the rack itself, or out of range) or the FIFO is at capacity.
func (b *VOQBank) Enqueue(packetID uint64, nexthop int, class VOQClass) bool {
	if nexthop == b.rackID || nexthop < 0 || nexthop >= b.numRacks {
		return false
	}
	bank := b.bank(class)
	if len(bank[nexthop]) >= b.capacity {
		return false
	}
	bank[nexthop] = append(bank[nexthop], packetID)
	b.totalPackets++
	return true
}

// Dequeue removes and returns the head of the FIFO for nexthop in the given
// class. The second return is false when the FIFO is empty.
func (b *VOQBank) Dequeue(nexthop int, class VOQClass) (uint64, bool) {
	if nexthop < 0 || nexthop >= b.numRacks {
		return 0, false
	}
	bank := b.bank(class)
	q := bank[nexthop]
	if len(q) == 0 {
		return 0, false
	}
	packetID := q[0]
	bank[nexthop] = q[1:]
	b.totalPackets--
	return packetID, true
}

// HasPackets reports whether the FIFO for nexthop is nonempty.
func (b *VOQBank) HasPackets(nexthop int, class VOQClass) bool {
	return b.QueueSize(nexthop, class) > 0
}

// QueueSize returns the occupancy of the FIFO for nexthop.
func (b *VOQBank) QueueSize(nexthop int, class VOQClass) int {
	if nexthop < 0 || nexthop >= b.numRacks {
		return 0
	}
	return len(b.bank(class)[nexthop])
}

// NonemptyDestinations returns the destinations with waiting packets in the
// given class, in ascending rack-id order.
func (b *VOQBank) NonemptyDestinations(class VOQClass) []int {
	bank := b.bank(class)
	var dests []int
	for dst, q := range bank {
		if len(q) > 0 {
			dests = append(dests, dst)
		}
	}
	return dests
}

// TotalPackets returns the packet count across both classes.
func (b *VOQBank) TotalPackets() int {
	return b.totalPackets
}
