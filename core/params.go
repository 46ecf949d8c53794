package core

import (
	"errors"
	"fmt"

	"github.com/sarchlab/ramarbiter/ram"
)

// Errors reported for arbiter configurations that cannot work.
var (
	ErrNumPorts      = errors.New("invalid number of ports")
	ErrBurstSize     = errors.New("invalid burst size")
	ErrFIFODepth     = errors.New("request FIFO too shallow")
	ErrCplDepth      = errors.New("invalid completion FIFO depth")
	ErrSeqDepth      = errors.New("invalid sequence FIFO depth")
	ErrReadLatency   = errors.New("invalid read latency")
	ErrWordBytes     = errors.New("invalid word size")
	ErrBurstBoundary = errors.New("burst crosses a 4 KiB boundary")
	ErrAddrRange     = errors.New("invalid address range")
)

// PageBytes is the boundary a burst may never cross.
const PageBytes = 4096

// Params are the structural parameters of an arbiter.
type Params struct {
	NumPorts      int
	BurstSize     int
	FIFODepthLog2 int
	CplDepthLog2  int
	SeqDepth      int
	ReadLatency   int
	WordBytes     int
	Mode          ram.Mode
	AddrRanges    []AddrRange
}

// DefaultParams returns the parameters of a two-port read arbiter with bursts
// of eight words.
func DefaultParams() Params {
	return Params{
		NumPorts:      2,
		BurstSize:     8,
		FIFODepthLog2: 4,
		CplDepthLog2:  5,
		ReadLatency:   2,
		WordBytes:     8,
		Mode:          ram.ModeRead,
	}
}

// FIFODepth returns the capacity of each request FIFO.
func (p Params) FIFODepth() int {
	return 1 << uint(p.FIFODepthLog2)
}

// SeqFIFODepth returns the depth of the sequence FIFO. A zero SeqDepth means
// two bursts.
func (p Params) SeqFIFODepth() int {
	if p.SeqDepth == 0 {
		return 2 * p.BurstSize
	}

	return p.SeqDepth
}

// BurstBytes returns the number of bytes a full burst covers.
func (p Params) BurstBytes() uint64 {
	return uint64(p.BurstSize) * uint64(p.WordBytes)
}

// Validate checks that an arbiter can be built with the parameters.
func (p Params) Validate() error {
	if p.NumPorts < 1 || p.NumPorts > ram.MaxPorts {
		return fmt.Errorf("%w: %d, must be 1 to %d",
			ErrNumPorts, p.NumPorts, ram.MaxPorts)
	}

	if p.BurstSize < 2 {
		return fmt.Errorf("%w: %d, must be at least 2", ErrBurstSize, p.BurstSize)
	}

	if p.FIFODepthLog2 < 1 || p.FIFODepthLog2 > 20 {
		return fmt.Errorf("%w: log2 depth %d out of range",
			ErrFIFODepth, p.FIFODepthLog2)
	}

	if p.FIFODepth() < 2*p.BurstSize {
		return fmt.Errorf("%w: depth %d < 2 * burst size %d",
			ErrFIFODepth, p.FIFODepth(), p.BurstSize)
	}

	if p.CplDepthLog2 < 1 || p.CplDepthLog2 > 20 {
		return fmt.Errorf("%w: log2 depth %d out of range",
			ErrCplDepth, p.CplDepthLog2)
	}

	if p.SeqDepth < 0 {
		return fmt.Errorf("%w: %d", ErrSeqDepth, p.SeqDepth)
	}

	if p.ReadLatency < 1 {
		return fmt.Errorf("%w: %d, must be at least 1",
			ErrReadLatency, p.ReadLatency)
	}

	if p.WordBytes < 1 || p.WordBytes > 8 || p.WordBytes&(p.WordBytes-1) != 0 {
		return fmt.Errorf("%w: %d, must be a power of two up to 8",
			ErrWordBytes, p.WordBytes)
	}

	if p.BurstBytes() > PageBytes {
		return fmt.Errorf("%w: a burst covers %d bytes",
			ErrBurstBoundary, p.BurstBytes())
	}

	if p.Mode == ram.ModeWrite {
		return p.validateAddrRanges()
	}

	return nil
}

func (p Params) validateAddrRanges() error {
	if len(p.AddrRanges) != p.NumPorts {
		return fmt.Errorf("%w: %d ranges for %d ports",
			ErrAddrRange, len(p.AddrRanges), p.NumPorts)
	}

	word := uint64(p.WordBytes)

	for i, r := range p.AddrRanges {
		if r.First > r.Last || r.First%word != 0 || r.Last%word != 0 {
			return fmt.Errorf("%w: port %d [%#x, %#x] with %d-byte words",
				ErrAddrRange, i, r.First, r.Last, word)
		}

		span := r.Last - r.First + word
		if r.Repeat && span%p.BurstBytes() != 0 {
			return fmt.Errorf(
				"%w: port %d repeats a range of %d bytes, not a whole number of bursts",
				ErrAddrRange, i, span)
		}

		if err := p.burstsStayInPage(ram.PortID(i), r); err != nil {
			return err
		}
	}

	return nil
}

func (p Params) burstsStayInPage(port ram.PortID, r AddrRange) error {
	word := uint64(p.WordBytes)

	for start := r.First; start <= r.Last; start += p.BurstBytes() {
		end := start + p.BurstBytes() - word
		if end > r.Last {
			end = r.Last
		}

		if start/PageBytes != end/PageBytes {
			return fmt.Errorf("%w: port %d burst [%#x, %#x]",
				ErrBurstBoundary, port, start, end)
		}
	}

	return nil
}
