package mem

import (
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/ramarbiter/util/valgen"
)

// Builder can create memories.
type Builder struct {
	latency        int
	capacity       uint64
	wordBytes      int
	maxOutstanding int
	stallPattern   string
	keepIDs        bool
	storage        *mem.Storage
}

// MakeBuilder returns a new Builder.
func MakeBuilder() Builder {
	return Builder{
		latency:        10,
		capacity:       4 * mem.GB,
		wordBytes:      8,
		maxOutstanding: 64,
		keepIDs:        true,
	}
}

// WithLatency sets the number of cycles a request takes.
func (b Builder) WithLatency(latency int) Builder {
	b.latency = latency
	return b
}

// WithNewStorage sets the capacity of the memory.
func (b Builder) WithNewStorage(capacity uint64) Builder {
	b.capacity = capacity
	return b
}

// WithStorage lets the memory use an existing storage.
func (b Builder) WithStorage(storage *mem.Storage) Builder {
	b.storage = storage
	return b
}

// WithWordBytes sets the size of a word.
func (b Builder) WithWordBytes(n int) Builder {
	b.wordBytes = n
	return b
}

// WithMaxOutstanding sets how many requests can be in flight.
func (b Builder) WithMaxOutstanding(n int) Builder {
	b.maxOutstanding = n
	return b
}

// WithStallPattern makes the memory not ready on the cycles where the
// repeating pattern is '0'.
func (b Builder) WithStallPattern(pattern string) Builder {
	b.stallPattern = pattern
	return b
}

// WithoutReqIDs makes the memory return completions without the request ID,
// like a bus that does not carry tags.
func (b Builder) WithoutReqIDs() Builder {
	b.keepIDs = false
	return b
}

// Build creates a memory.
func (b Builder) Build(name string) *Memory {
	if b.latency < 1 {
		panic(fmt.Sprintf("memory latency must be at least 1, got %d", b.latency))
	}

	if b.wordBytes < 1 || b.wordBytes > 8 {
		panic(fmt.Sprintf("word size must be 1 to 8 bytes, got %d", b.wordBytes))
	}

	if b.maxOutstanding < 1 {
		panic(fmt.Sprintf("max outstanding must be at least 1, got %d",
			b.maxOutstanding))
	}

	m := &Memory{
		name:      name,
		wordBytes: b.wordBytes,
		latency:   b.latency,
		keepIDs:   b.keepIDs,
		inflight:  sim.NewBuffer(name+".InflightBuf", b.maxOutstanding),
	}

	if b.stallPattern != "" {
		stall, err := valgen.ParsePattern(b.stallPattern)
		if err != nil {
			panic(err)
		}

		m.stall = stall
	}

	if b.storage == nil {
		m.Storage = mem.NewStorage(b.capacity)
	} else {
		m.Storage = b.storage
	}

	return m
}
