package ram_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/ramarbiter/ram"
)

var _ = Describe("Mode", func() {
	DescribeTable("parsing",
		func(s string, want ram.Mode, ok bool) {
			m, err := ram.ParseMode(s)
			if !ok {
				Expect(err).To(HaveOccurred())
				return
			}

			Expect(err).NotTo(HaveOccurred())
			Expect(m).To(Equal(want))
			Expect(ram.ParseMode(m.String())).To(Equal(want))
		},
		Entry("read", "read", ram.ModeRead, true),
		Entry("empty", "", ram.ModeRead, true),
		Entry("write", "write", ram.ModeWrite, true),
		Entry("unknown", "erase", ram.ModeRead, false),
	)

	It("should name unknown modes", func() {
		Expect(ram.Mode(7).String()).To(Equal("Mode(7)"))
	})
})

var _ = Describe("PortFlags", func() {
	It("should tell if any flag is raised", func() {
		Expect(ram.PortFlags{}.Any()).To(BeFalse())
		Expect(ram.PortFlags{Done: true}.Any()).To(BeTrue())
		Expect(ram.PortFlags{AckOverflow: true}.Any()).To(BeTrue())
	})
})

var _ = Describe("BusReqBuilder", func() {
	It("should build a write with burst markers", func() {
		req := ram.BusReqBuilder{}.
			WithID("w0").
			WithAddress(0x40).
			WithData(9).
			AsWrite().
			WithBurstMarkers(true, false).
			Build()

		Expect(req).To(Equal(ram.BusReq{
			ID: "w0", Addr: 0x40, Data: 9, Write: true, SOB: true,
		}))
	})

	It("should generate an ID", func() {
		a := ram.BusReqBuilder{}.WithAddress(8).Build()
		b := ram.BusReqBuilder{}.WithAddress(8).Build()

		Expect(a.ID).NotTo(BeEmpty())
		Expect(a.ID).NotTo(Equal(b.ID))
		Expect(a.Write).To(BeFalse())
	})
})
