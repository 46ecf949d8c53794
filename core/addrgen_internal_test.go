package core

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Address generator", func() {
	collect := func(g *addrGen, n int) []uint64 {
		var out []uint64
		for i := 0; i < n; i++ {
			addr, closed := g.peek(false)
			if closed {
				break
			}

			out = append(out, addr)
			g.advance()
		}

		return out
	}

	It("should wrap a repeating range", func() {
		g := newAddrGen(AddrRange{First: 0x100, Last: 0x110, Repeat: true}, 8)
		Expect(collect(g, 5)).To(Equal([]uint64{0x100, 0x108, 0x110, 0x100, 0x108}))
	})

	It("should stop after a single-shot range", func() {
		g := newAddrGen(AddrRange{First: 0x100, Last: 0x110}, 8)
		Expect(collect(g, 5)).To(Equal([]uint64{0x100, 0x108, 0x110}))

		_, closed := g.peek(false)
		Expect(closed).To(BeTrue())
	})

	It("should tell the last address of a single-shot range", func() {
		g := newAddrGen(AddrRange{First: 0, Last: 8}, 8)
		Expect(g.isLast(false)).To(BeFalse())
		g.advance()
		Expect(g.isLast(false)).To(BeTrue())
	})

	It("should never be last when repeating", func() {
		g := newAddrGen(AddrRange{First: 0, Last: 0, Repeat: true}, 8)
		Expect(g.isLast(false)).To(BeFalse())
	})

	It("should restart", func() {
		g := newAddrGen(AddrRange{First: 0, Last: 8}, 8)
		g.advance()
		g.advance()

		addr, closed := g.peek(true)
		Expect(addr).To(BeZero())
		Expect(closed).To(BeFalse())

		g.restart()
		Expect(collect(g, 3)).To(Equal([]uint64{0, 8}))
	})
})
