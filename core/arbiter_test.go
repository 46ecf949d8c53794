package core_test

import (
	"fmt"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/ramarbiter/api"
	"github.com/sarchlab/ramarbiter/core"
	"github.com/sarchlab/ramarbiter/mem"
	"github.com/sarchlab/ramarbiter/ram"
	"github.com/sarchlab/ramarbiter/util/valgen"
)

type dispatchRecorder struct {
	events []core.DispatchEvent
}

func (r *dispatchRecorder) Func(ctx sim.HookCtx) {
	if ctx.Pos != core.HookPosDispatch {
		return
	}

	r.events = append(r.events, ctx.Item.(core.DispatchEvent))
}

// bursts returns the lengths of the bursts sent for a port.
func (r *dispatchRecorder) bursts(port ram.PortID) []int {
	var lengths []int

	for _, e := range r.events {
		if e.Port != port {
			continue
		}

		if e.Req.SOB {
			lengths = append(lengths, 0)
		}

		lengths[len(lengths)-1]++
	}

	return lengths
}

func makeReqs(port ram.PortID, n int) []ram.Request {
	reqs := make([]ram.Request, n)
	for i := range reqs {
		reqs[i] = ram.Request{
			ID:   fmt.Sprintf("P%dR%d", port, i),
			Addr: uint64(port)*0x1000 + uint64(i*8),
			Data: uint64(port)*1000 + uint64(i),
		}
	}

	return reqs
}

func reqIDs(cpls []ram.Completion) []string {
	ids := make([]string, len(cpls))
	for i, c := range cpls {
		ids[i] = c.ReqID
	}

	return ids
}

func submittedIDs(reqs []ram.Request) []string {
	ids := make([]string, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ID
	}

	return ids
}

var _ = Describe("Arbiter", func() {
	var (
		engine   sim.Engine
		memory   *mem.Memory
		driver   api.Driver
		builder  core.Builder
		recorder *dispatchRecorder
	)

	build := func() *core.Arbiter {
		a := builder.WithBus(memory).Build("Arbiter")
		a.AcceptHook(recorder)
		driver.RegisterDevice(a)

		return a
	}

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		memory = mem.MakeBuilder().
			WithLatency(4).
			WithNewStorage(1 * 1024 * 1024).
			Build("Mem")
		driver = api.DriverBuilder{}.
			WithEngine(engine).
			WithFrameGap(20).
			Build("Driver")
		builder = core.NewBuilder().
			WithEngine(engine).
			WithFreq(1 * sim.GHz).
			WithNumPorts(2).
			WithBurstSize(8).
			WithFIFODepthLog2(4)
		recorder = &dispatchRecorder{}

		memory.Fill(0, 32, valgen.MakeIncreasingGen(0))
		memory.Fill(0x1000, 32, valgen.MakeIncreasingGen(1000))
	})

	Context("with two read ports", func() {
		var (
			a     *core.Arbiter
			reqs0 []ram.Request
			reqs1 []ram.Request
		)

		BeforeEach(func() {
			a = build()

			reqs0 = makeReqs(0, 18)
			reqs1 = makeReqs(1, 10)

			driver.FeedIn(0, reqs0, "1")
			driver.FeedIn(1, reqs1, "1100")
			driver.Collect(0, "1")
			driver.Collect(1, "1")

			driver.Run()
		})

		It("should pack port 0 into two full bursts and one flush", func() {
			Expect(recorder.bursts(0)).To(Equal([]int{8, 8, 2}))
		})

		It("should pack port 1 into one full burst and one flush", func() {
			Expect(recorder.bursts(1)).To(Equal([]int{8, 2}))
		})

		It("should return completions in submission order", func() {
			Expect(reqIDs(driver.Completions(0))).To(Equal(submittedIDs(reqs0)))
			Expect(reqIDs(driver.Completions(1))).To(Equal(submittedIDs(reqs1)))
		})

		It("should attribute the read data to the right port", func() {
			for i, c := range driver.Completions(0) {
				Expect(c.Port).To(Equal(ram.PortID(0)))
				Expect(c.Data).To(Equal(uint64(i)))
			}

			for i, c := range driver.Completions(1) {
				Expect(c.Port).To(Equal(ram.PortID(1)))
				Expect(c.Data).To(Equal(uint64(1000 + i)))
			}
		})

		It("should mark only the last completion of each frame with EOF", func() {
			for p := ram.PortID(0); p < 2; p++ {
				cpls := driver.Completions(p)
				for i, c := range cpls {
					Expect(c.EOF).To(Equal(i == len(cpls)-1),
						"port %d completion %d", p, i)
				}
			}
		})

		It("should dispatch at most one word per cycle", func() {
			seen := map[uint64]bool{}
			for _, e := range recorder.events {
				Expect(seen[e.Cycle]).To(BeFalse())
				seen[e.Cycle] = true
			}
		})

		It("should count what happened", func() {
			stats := a.Stats()

			Expect(stats[0].Submitted).To(Equal(uint64(18)))
			Expect(stats[0].Bursts).To(Equal(uint64(3)))
			Expect(stats[0].FlushBursts).To(Equal(uint64(1)))
			Expect(stats[0].EOFs).To(Equal(uint64(1)))
			Expect(stats[0].Delivered).To(Equal(uint64(18)))
			Expect(stats[1].Submitted).To(Equal(uint64(10)))
			Expect(stats[1].Delivered).To(Equal(uint64(10)))
			Expect(stats[1].ReqOverflows).To(BeZero())
			Expect(driver.Flags(0)).To(Equal(api.FlagCounts{}))
			Expect(a.CplOccupancy(0)).To(BeZero())
		})
	})

	It("should resume normal packing after a flush", func() {
		builder = builder.WithNumPorts(1)
		build()

		driver.FeedIn(0, makeReqs(0, 3), "1")
		driver.FeedIn(0, makeReqs(0, 8), "1")
		driver.Collect(0, "1")
		driver.Run()

		Expect(recorder.bursts(0)).To(Equal([]int{3, 8}))

		var eofs []int
		for i, c := range driver.Completions(0) {
			if c.EOF {
				eofs = append(eofs, i)
			}
		}

		Expect(eofs).To(Equal([]int{2, 10}))
	})

	It("should flag request overflow while the bus is stalled", func() {
		memory = mem.MakeBuilder().WithStallPattern("0").Build("Mem")
		builder = builder.
			WithNumPorts(1).
			WithBurstSize(2).
			WithFIFODepthLog2(2)
		a := build()

		driver.FeedIn(0, makeReqs(0, 6), "1")
		for i := 0; i < 8; i++ {
			a.Tick()
		}

		Expect(a.QueueLevel(0)).To(Equal(4))
		Expect(a.Stats()[0].Submitted).To(Equal(uint64(4)))
		Expect(a.Stats()[0].ReqOverflows).To(Equal(uint64(2)))
		Expect(a.Stats()[0].Dispatched).To(BeZero())
		Expect(driver.Flags(0).ReqOverflow).To(Equal(2))
	})

	It("should drop completions into a full completion FIFO", func() {
		builder = builder.
			WithNumPorts(1).
			WithBurstSize(2).
			WithFIFODepthLog2(2).
			WithCplDepthLog2(1)
		a := build()

		driver.FeedIn(0, makeReqs(0, 4), "1")
		driver.Run()

		Expect(a.Stats()[0].BusCompletions).To(Equal(uint64(4)))
		Expect(a.Stats()[0].CplOverflows).To(Equal(uint64(2)))
		Expect(driver.Flags(0).CplOverflow).To(Equal(2))
		Expect(a.CplOccupancy(0)).To(Equal(2))
	})

	It("should flag an ack that arrives while the previous one is pending", func() {
		a := build()

		driver.FeedIn(0, makeReqs(0, 8), "1")
		driver.FeedIn(1, makeReqs(1, 8), "1")

		for i := 0; i < 40; i++ {
			a.Tick()
		}

		Expect(a.CplOccupancy(0)).To(Equal(8))
		Expect(a.CplOccupancy(1)).To(Equal(8))

		driver.CollectGreedy(0, "1")
		driver.CollectGreedy(1, "1")
		driver.Run()

		Expect(driver.Flags(0).AckOverflow).To(BeZero())
		Expect(driver.Flags(1).AckOverflow).To(BeNumerically(">", 0))
		Expect(a.Stats()[1].AckOverflows).
			To(Equal(uint64(driver.Flags(1).AckOverflow)))
		Expect(reqIDs(driver.Completions(1))).
			To(Equal(submittedIDs(makeReqs(1, 8))))
	})

	Context("in write mode", func() {
		BeforeEach(func() {
			builder = builder.
				WithNumPorts(1).
				WithBurstSize(2).
				WithFIFODepthLog2(2).
				WithMode(ram.ModeWrite)
		})

		It("should write a single-shot range once", func() {
			a := builder.
				WithAddrRange(0, core.AddrRange{First: 0x2000, Last: 0x2018}).
				WithBus(memory).
				Build("Arbiter")
			a.AcceptHook(recorder)
			driver.RegisterDevice(a)

			reqs := makeReqs(0, 6)
			driver.FeedIn(0, reqs, "1")
			driver.Collect(0, "1")
			driver.Run()

			for i := 0; i < 4; i++ {
				Expect(memory.ReadWord(0x2000 + uint64(i*8))).
					To(Equal(reqs[i].Data))
			}

			Expect(a.Stats()[0].Ignored).To(Equal(uint64(2)))
			Expect(driver.Flags(0).ReqIgnored).To(Equal(2))
			Expect(driver.Flags(0).Done).To(Equal(1))
			Expect(driver.Completions(0)).To(HaveLen(4))
			Expect(recorder.events[0].Req.Write).To(BeTrue())
		})

		It("should wrap a repeating range", func() {
			a := builder.
				WithAddrRange(0, core.AddrRange{
					First:  0x3000,
					Last:   0x3018,
					Repeat: true,
				}).
				WithBus(memory).
				Build("Arbiter")
			a.AcceptHook(recorder)
			driver.RegisterDevice(a)

			driver.FeedIn(0, makeReqs(0, 6), "1")
			driver.Collect(0, "1")
			driver.Run()

			var addrs []uint64
			for _, e := range recorder.events {
				addrs = append(addrs, e.Req.Addr)
			}

			Expect(addrs).To(Equal([]uint64{
				0x3000, 0x3008, 0x3010, 0x3018, 0x3000, 0x3008,
			}))
			Expect(driver.Flags(0).Done).To(BeZero())
		})
	})

	It("should refuse to build a structurally invalid arbiter", func() {
		Expect(func() {
			builder.WithBurstSize(1).Build("Arbiter")
		}).To(Panic())

		Expect(func() {
			builder.WithFIFODepthLog2(3).Build("Arbiter")
		}).To(Panic())

		Expect(func() {
			builder.WithPolicy("lottery").Build("Arbiter")
		}).To(Panic())
	})
})

var _ = Describe("Arbiter with a mocked bus", func() {
	var (
		mockCtrl   *gomock.Controller
		bus        *MockBus
		portDriver *MockPortDriver
		a          *core.Arbiter
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		bus = NewMockBus(mockCtrl)
		portDriver = NewMockPortDriver(mockCtrl)

		a = core.NewBuilder().
			WithEngine(sim.NewSerialEngine()).
			WithNumPorts(1).
			WithBurstSize(2).
			WithFIFODepthLog2(2).
			WithBus(bus).
			WithDriver(portDriver).
			Build("Arbiter")

		portDriver.EXPECT().Pending().Return(true).AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should hold a burst while the bus is not ready", func() {
		bus.EXPECT().Step().Return(ram.BusCpl{}, false).AnyTimes()

		portDriver.EXPECT().Sample(ram.PortID(0)).
			Return(submit(0, "A")).Times(2)
		bus.EXPECT().Ready().Return(false).Times(2)
		a.Tick()
		a.Tick()

		portDriver.EXPECT().Sample(ram.PortID(0)).
			Return(ram.PortInputs{Frame: true}).AnyTimes()
		bus.EXPECT().Ready().Return(false)
		a.Tick()

		bus.EXPECT().Ready().Return(true).Times(2)
		gomock.InOrder(
			bus.EXPECT().Issue(gomock.Any()).Do(func(req ram.BusReq) {
				Expect(req.ID).To(Equal("A"))
				Expect(req.SOB).To(BeTrue())
				Expect(req.EOB).To(BeFalse())
			}),
			bus.EXPECT().Issue(gomock.Any()).Do(func(req ram.BusReq) {
				Expect(req.ID).To(Equal("A"))
				Expect(req.EOB).To(BeTrue())
			}),
		)
		a.Tick()
		a.Tick()

		Expect(a.QueueLevel(0)).To(BeZero())
	})

	It("should end the frame on a burst that drains as the frame falls", func() {
		bus.EXPECT().Step().Return(ram.BusCpl{}, false).AnyTimes()
		bus.EXPECT().Ready().Return(true).AnyTimes()

		gomock.InOrder(
			portDriver.EXPECT().Sample(ram.PortID(0)).Return(submit(0, "A")),
			portDriver.EXPECT().Sample(ram.PortID(0)).Return(submit(0, "B")),
			portDriver.EXPECT().Sample(ram.PortID(0)).
				Return(ram.PortInputs{Frame: true}),
			portDriver.EXPECT().Sample(ram.PortID(0)).
				Return(ram.PortInputs{}).AnyTimes(),
		)

		var issued []ram.BusReq
		bus.EXPECT().Issue(gomock.Any()).Do(func(req ram.BusReq) {
			issued = append(issued, req)
		}).Times(2)

		for i := 0; i < 5; i++ {
			a.Tick()
		}

		Expect(issued).To(HaveLen(2))
		Expect(issued[1].ID).To(Equal("B"))
		Expect(issued[1].EOB).To(BeTrue())
		Expect(a.Stats()[0].EOFs).To(Equal(uint64(1)))
		Expect(a.Active(0)).To(BeFalse())
	})

	It("should flag a request offered while the port drains", func() {
		bus.EXPECT().Step().Return(ram.BusCpl{}, false).AnyTimes()
		bus.EXPECT().Ready().Return(false).AnyTimes()

		gomock.InOrder(
			portDriver.EXPECT().Sample(ram.PortID(0)).Return(submit(0, "A")),
			portDriver.EXPECT().Sample(ram.PortID(0)).
				Return(ram.PortInputs{}),
			portDriver.EXPECT().Sample(ram.PortID(0)).Return(submit(0, "B")),
		)
		portDriver.EXPECT().Deliver(ram.PortID(0), ram.PortOutputs{
			Flags: ram.PortFlags{ReqIgnored: true},
		})

		a.Tick()
		a.Tick()
		Expect(a.Active(0)).To(BeTrue())
		a.Tick()

		Expect(a.QueueLevel(0)).To(Equal(1))
		Expect(a.Stats()[0].Ignored).To(Equal(uint64(1)))
	})

	It("should panic on a completion with nothing outstanding", func() {
		portDriver.EXPECT().Sample(ram.PortID(0)).Return(ram.PortInputs{})
		bus.EXPECT().Step().Return(ram.BusCpl{ReqID: "X"}, true)

		Expect(func() { a.Tick() }).To(Panic())
	})

	It("should panic when not connected", func() {
		b := core.NewBuilder().
			WithEngine(sim.NewSerialEngine()).
			Build("Arbiter")

		Expect(func() { b.Tick() }).To(Panic())
	})
})

func submit(port ram.PortID, id string) ram.PortInputs {
	return ram.PortInputs{
		Frame:     true,
		ReqEnable: true,
		Req:       ram.Request{ID: id, Addr: uint64(port) * 8},
	}
}
