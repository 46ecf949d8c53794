package core

import "github.com/sarchlab/ramarbiter/ram"

// cplSlot is one entry of the shared completion store.
type cplSlot struct {
	reqID string
	addr  uint64
	data  uint64
	eof   bool
}

// cplPtr is the pointer pair of one logical FIFO. Pointers run freely and are
// masked when forming an address, so wptr-rptr is always the occupancy.
type cplPtr struct {
	wptr uint64
	rptr uint64
}

// cplStore is a single array split into one circular FIFO per port. The slot
// of a port lives at port<<depthLog2 | ptr. It serves at most one write and
// one read per cycle.
type cplStore struct {
	depthLog2 uint
	slots     []cplSlot
	ptrs      []cplPtr

	writes int
	reads  int
}

func newCplStore(numPorts int, depthLog2 int) *cplStore {
	return &cplStore{
		depthLog2: uint(depthLog2),
		slots:     make([]cplSlot, numPorts<<uint(depthLog2)),
		ptrs:      make([]cplPtr, numPorts),
	}
}

func (s *cplStore) depth() uint64 {
	return 1 << s.depthLog2
}

func (s *cplStore) address(port ram.PortID, ptr uint64) uint64 {
	return uint64(port)<<s.depthLog2 | ptr&(s.depth()-1)
}

func (s *cplStore) occupancy(port ram.PortID) int {
	p := s.ptrs[port]
	return int(p.wptr - p.rptr)
}

func (s *cplStore) full(port ram.PortID) bool {
	return uint64(s.occupancy(port)) >= s.depth()
}

func (s *cplStore) empty(port ram.PortID) bool {
	return s.occupancy(port) == 0
}

func (s *cplStore) write(port ram.PortID, slot cplSlot) {
	if s.writes > 0 {
		panic("completion store written twice in one cycle")
	}

	if s.full(port) {
		panic("completion store written while full")
	}

	s.writes++

	p := &s.ptrs[port]
	s.slots[s.address(port, p.wptr)] = slot
	p.wptr++
}

func (s *cplStore) read(port ram.PortID) cplSlot {
	if s.reads > 0 {
		panic("completion store read twice in one cycle")
	}

	if s.empty(port) {
		panic("completion store read while empty")
	}

	s.reads++

	p := &s.ptrs[port]
	slot := s.slots[s.address(port, p.rptr)]
	p.rptr++

	return slot
}

func (s *cplStore) endCycle() {
	s.writes = 0
	s.reads = 0
}
