// Package mem provides the memory bus that sits behind the arbiter.
package mem

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/ramarbiter/ram"
)

type transaction struct {
	req ram.BusReq
	due uint64
}

// Memory is an in-order memory with a fixed latency. A request issued in one
// cycle completes exactly Latency cycles later. Completions come back in the
// order the requests were issued.
type Memory struct {
	name string

	Storage   *mem.Storage
	wordBytes int
	latency   int
	stall     []bool
	keepIDs   bool

	cycle    uint64
	inflight sim.Buffer

	reads  uint64
	writes uint64
}

// Name returns the name of the memory.
func (m *Memory) Name() string {
	return m.name
}

// Latency returns the number of cycles between issuing a request and its
// completion.
func (m *Memory) Latency() int {
	return m.latency
}

// Outstanding returns the number of requests in flight.
func (m *Memory) Outstanding() int {
	return m.inflight.Size()
}

// Reads returns the number of completed reads.
func (m *Memory) Reads() uint64 {
	return m.reads
}

// Writes returns the number of completed writes.
func (m *Memory) Writes() uint64 {
	return m.writes
}

func (m *Memory) stalled() bool {
	if len(m.stall) == 0 {
		return false
	}

	return !m.stall[m.cycle%uint64(len(m.stall))]
}

// Ready reports whether the memory can accept a request in this cycle.
func (m *Memory) Ready() bool {
	return !m.stalled() && m.inflight.CanPush()
}

// Issue starts a request.
func (m *Memory) Issue(req ram.BusReq) {
	if !m.inflight.CanPush() {
		panic(fmt.Sprintf("%s: too many outstanding requests", m.name))
	}

	m.inflight.Push(&transaction{
		req: req,
		due: m.cycle + uint64(m.latency),
	})
}

// Step advances the memory by one cycle.
func (m *Memory) Step() (ram.BusCpl, bool) {
	m.cycle++

	item := m.inflight.Peek()
	if item == nil {
		return ram.BusCpl{}, false
	}

	t := item.(*transaction)
	if t.due > m.cycle {
		return ram.BusCpl{}, false
	}

	m.inflight.Pop()

	cpl := ram.BusCpl{}
	if m.keepIDs {
		cpl.ReqID = t.req.ID
	}

	if t.req.Write {
		m.WriteWord(t.req.Addr, t.req.Data)
		m.writes++
		cpl.Data = t.req.Data
	} else {
		cpl.Data = m.ReadWord(t.req.Addr)
		m.reads++
	}

	return cpl, true
}

// ReadWord returns the word stored at addr. Words never written read as 0.
func (m *Memory) ReadWord(addr uint64) uint64 {
	data, err := m.Storage.Read(addr, uint64(m.wordBytes))
	if err != nil {
		panic(err)
	}

	buf := make([]byte, 8)
	copy(buf, data)

	return binary.LittleEndian.Uint64(buf)
}

// WriteWord stores a word at addr.
func (m *Memory) WriteWord(addr, value uint64) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, value)

	err := m.Storage.Write(addr, buf[:m.wordBytes])
	if err != nil {
		panic(err)
	}
}

// Fill writes n consecutive words starting from addr with values taken from
// gen.
func (m *Memory) Fill(addr uint64, n int, gen func() uint64) {
	for i := 0; i < n; i++ {
		m.WriteWord(addr+uint64(i*m.wordBytes), gen())
	}
}
