package core

// AddrRange is the address window a write port fills. First and Last are byte
// addresses of the first and the last word. With Repeat the port wraps around
// to First after Last; otherwise it stops after Last.
type AddrRange struct {
	First  uint64
	Last   uint64
	Repeat bool
}

type addrGen struct {
	rng       AddrRange
	step      uint64
	next      uint64
	exhausted bool
}

func newAddrGen(rng AddrRange, step uint64) *addrGen {
	return &addrGen{
		rng:  rng,
		step: step,
		next: rng.First,
	}
}

// peek returns the next address, as if the generator was restarted when
// restart is true.
func (g *addrGen) peek(restart bool) (addr uint64, closed bool) {
	if restart {
		return g.rng.First, false
	}

	return g.next, g.exhausted
}

// isLast tells if the address returned by peek is the last one of a
// single-shot range.
func (g *addrGen) isLast(restart bool) bool {
	addr, _ := g.peek(restart)
	return !g.rng.Repeat && addr+g.step > g.rng.Last
}

func (g *addrGen) restart() {
	g.next = g.rng.First
	g.exhausted = false
}

func (g *addrGen) advance() {
	if g.next+g.step <= g.rng.Last {
		g.next += g.step
		return
	}

	if g.rng.Repeat {
		g.next = g.rng.First
		return
	}

	g.exhausted = true
}
