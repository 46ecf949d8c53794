package mem_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/ramarbiter/mem"
	"github.com/sarchlab/ramarbiter/ram"
	"github.com/sarchlab/ramarbiter/util/valgen"
)

// stepUntilCpl steps the memory until a completion comes out and returns the
// number of steps it took.
func stepUntilCpl(m *mem.Memory, limit int) (ram.BusCpl, int) {
	for i := 1; i <= limit; i++ {
		cpl, ok := m.Step()
		if ok {
			return cpl, i
		}
	}

	Fail("no completion")

	return ram.BusCpl{}, 0
}

var _ = Describe("Memory", func() {
	var m *mem.Memory

	BeforeEach(func() {
		m = mem.MakeBuilder().
			WithLatency(3).
			WithNewStorage(4096).
			Build("Mem")
	})

	It("should complete a read after the latency", func() {
		m.WriteWord(0x40, 0xdead)
		m.Step()

		req := ram.BusReqBuilder{}.WithID("R0").WithAddress(0x40).Build()
		Expect(m.Ready()).To(BeTrue())
		m.Issue(req)

		cpl, steps := stepUntilCpl(m, 10)
		Expect(steps).To(Equal(3))
		Expect(cpl.ReqID).To(Equal("R0"))
		Expect(cpl.Data).To(Equal(uint64(0xdead)))
		Expect(m.Reads()).To(Equal(uint64(1)))
	})

	It("should return completions in issue order", func() {
		m.Fill(0, 4, valgen.MakeIncreasingGen(100))

		for i := 0; i < 4; i++ {
			m.Step()
			m.Issue(ram.BusReqBuilder{}.WithAddress(uint64(i * 8)).Build())
		}

		var data []uint64
		for i := 0; i < 10; i++ {
			if cpl, ok := m.Step(); ok {
				data = append(data, cpl.Data)
			}
		}

		Expect(data).To(Equal([]uint64{100, 101, 102, 103}))
	})

	It("should store writes", func() {
		m.Step()
		m.Issue(ram.BusReqBuilder{}.
			WithAddress(0x80).
			WithData(42).
			AsWrite().
			Build())

		cpl, _ := stepUntilCpl(m, 10)
		Expect(cpl.Data).To(Equal(uint64(42)))
		Expect(m.ReadWord(0x80)).To(Equal(uint64(42)))
		Expect(m.Writes()).To(Equal(uint64(1)))
	})

	It("should read unwritten words as zero", func() {
		Expect(m.ReadWord(0x100)).To(BeZero())
	})

	It("should not be ready with too many requests in flight", func() {
		m = mem.MakeBuilder().
			WithLatency(5).
			WithMaxOutstanding(2).
			Build("Mem")

		m.Step()
		m.Issue(ram.BusReqBuilder{}.Build())
		m.Issue(ram.BusReqBuilder{}.Build())

		Expect(m.Ready()).To(BeFalse())
		Expect(m.Outstanding()).To(Equal(2))
		Expect(func() { m.Issue(ram.BusReqBuilder{}.Build()) }).To(Panic())
	})

	It("should stall following the pattern", func() {
		m = mem.MakeBuilder().
			WithStallPattern("10").
			Build("Mem")

		var ready []bool
		for i := 0; i < 4; i++ {
			m.Step()
			ready = append(ready, m.Ready())
		}

		Expect(ready).To(Equal([]bool{false, true, false, true}))
	})

	It("should drop request IDs if asked to", func() {
		m = mem.MakeBuilder().
			WithLatency(1).
			WithoutReqIDs().
			Build("Mem")

		m.Step()
		m.Issue(ram.BusReqBuilder{}.WithID("R1").Build())

		cpl, _ := stepUntilCpl(m, 2)
		Expect(cpl.ReqID).To(BeEmpty())
	})

	It("should refuse a zero latency", func() {
		Expect(func() {
			mem.MakeBuilder().WithLatency(0).Build("Mem")
		}).To(Panic())
	})

	It("should keep narrow words narrow", func() {
		m = mem.MakeBuilder().
			WithWordBytes(4).
			WithNewStorage(4096).
			Build("Mem")

		m.WriteWord(0, 0x1122334455667788)
		Expect(m.ReadWord(0)).To(Equal(uint64(0x55667788)))
	})
})
