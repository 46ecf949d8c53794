package core

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Completion store", func() {
	var s *cplStore

	BeforeEach(func() {
		s = newCplStore(4, 2)
	})

	It("should keep the logical FIFOs apart", func() {
		Expect(s.address(0, 3)).To(Equal(uint64(3)))
		Expect(s.address(1, 0)).To(Equal(uint64(4)))
		Expect(s.address(3, 5)).To(Equal(uint64(13)))
		Expect(s.slots).To(HaveLen(16))
	})

	It("should return slots of a port in order", func() {
		for i := 0; i < 3; i++ {
			s.write(2, cplSlot{data: uint64(i)})
			s.endCycle()
		}

		Expect(s.occupancy(2)).To(Equal(3))
		Expect(s.occupancy(1)).To(Equal(0))

		for i := 0; i < 3; i++ {
			Expect(s.read(2).data).To(Equal(uint64(i)))
			s.endCycle()
		}

		Expect(s.empty(2)).To(BeTrue())
	})

	It("should wrap around", func() {
		for i := 0; i < 10; i++ {
			s.write(1, cplSlot{data: uint64(i)})
			Expect(s.read(1).data).To(Equal(uint64(i)))
			s.endCycle()
		}
	})

	It("should report full", func() {
		for i := 0; i < 4; i++ {
			s.write(0, cplSlot{})
			s.endCycle()
		}

		Expect(s.full(0)).To(BeTrue())
		Expect(s.full(1)).To(BeFalse())
		Expect(func() { s.write(0, cplSlot{}) }).To(Panic())
	})

	It("should serve one write and one read per cycle", func() {
		s.write(0, cplSlot{})
		s.endCycle()

		s.write(1, cplSlot{})
		s.read(0)
		Expect(func() { s.write(2, cplSlot{}) }).To(Panic())
		Expect(func() { s.read(1) }).To(Panic())
	})

	It("should not read an empty FIFO", func() {
		Expect(func() { s.read(0) }).To(Panic())
	})
})
