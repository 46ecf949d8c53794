package core

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/ramarbiter/ram"
)

// seqEntry remembers which port a dispatched word belongs to.
type seqEntry struct {
	port  ram.PortID
	eof   bool
	reqID string
	addr  uint64
}

// seqTracker records the order in which words are sent to the bus. Since the
// bus completes requests in order, the head of the tracker always names the
// port of the next completion.
type seqTracker struct {
	buf sim.Buffer
}

func newSeqTracker(parent string, depth int) *seqTracker {
	return &seqTracker{
		buf: sim.NewBuffer(parent+".SeqFIFO", depth),
	}
}

func (t *seqTracker) canPush() bool {
	return t.buf.CanPush()
}

func (t *seqTracker) push(e seqEntry) {
	t.buf.Push(e)
}

func (t *seqTracker) head() (seqEntry, bool) {
	item := t.buf.Peek()
	if item == nil {
		return seqEntry{}, false
	}

	return item.(seqEntry), true
}

func (t *seqTracker) pop() {
	t.buf.Pop()
}

func (t *seqTracker) size() int {
	return t.buf.Size()
}
