package core

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/ramarbiter/ram"
)

func submit(id string) ram.PortInputs {
	return ram.PortInputs{
		Frame:     true,
		ReqEnable: true,
		Req:       ram.Request{ID: id},
	}
}

var _ = Describe("Port queue", func() {
	var q *portQueue

	step := func(in ram.PortInputs, reading bool) queueDecision {
		d := q.decide(in, reading, false, 2)
		q.commit(d)
		return d
	}

	BeforeEach(func() {
		q = newPortQueue("Arb", 0, 4)
	})

	It("should activate on a rising frame and accept in the same cycle", func() {
		d := step(submit("A"), false)

		Expect(d.activate).To(BeTrue())
		Expect(d.accept).To(BeTrue())
		Expect(q.active).To(BeTrue())
		Expect(q.level()).To(Equal(1))
	})

	It("should ignore requests without a frame", func() {
		d := step(ram.PortInputs{ReqEnable: true}, false)

		Expect(d.ignored).To(BeTrue())
		Expect(q.level()).To(Equal(0))
		Expect(q.active).To(BeFalse())
	})

	It("should flag overflow and keep the stored requests", func() {
		for _, id := range []string{"A", "B", "C", "D"} {
			step(submit(id), false)
		}

		d := step(submit("E"), false)

		Expect(d.overflow).To(BeTrue())
		Expect(d.accept).To(BeFalse())
		Expect(q.level()).To(Equal(4))
		Expect(q.head().ID).To(Equal("A"))
	})

	It("should trigger a flush when the frame drops", func() {
		step(submit("A"), false)
		d := step(ram.PortInputs{}, false)

		Expect(d.trigger).To(BeTrue())
		Expect(q.flushTrigger).To(BeTrue())
		Expect(q.flushing).To(BeFalse())
	})

	It("should not trigger a flush on an inactive port", func() {
		d := step(ram.PortInputs{}, false)
		Expect(d.trigger).To(BeFalse())
	})

	It("should ignore requests while draining", func() {
		step(submit("A"), false)
		step(ram.PortInputs{}, false)

		d := step(submit("B"), false)

		Expect(d.ignored).To(BeTrue())
		Expect(q.level()).To(Equal(1))
	})

	It("should not start flushing while a burst reads the queue", func() {
		step(submit("A"), false)
		step(ram.PortInputs{}, false)

		d := step(ram.PortInputs{}, true)
		Expect(d.startFlush).To(BeFalse())

		d = step(ram.PortInputs{}, false)
		Expect(d.startFlush).To(BeTrue())
		Expect(q.flushing).To(BeTrue())
	})

	It("should not start flushing while a full burst is pending", func() {
		step(submit("A"), false)
		step(submit("B"), false)
		step(ram.PortInputs{}, false)

		d := step(ram.PortInputs{}, false)
		Expect(d.startFlush).To(BeFalse())
	})

	It("should deactivate once drained and start clean", func() {
		step(submit("A"), false)
		step(ram.PortInputs{}, false)
		step(ram.PortInputs{}, false)

		d := q.decide(ram.PortInputs{}, false, false, 2)
		d.pop = true
		q.commit(d)
		Expect(q.level()).To(Equal(0))

		d = step(ram.PortInputs{}, false)
		Expect(d.deactivate).To(BeTrue())
		Expect(q.active).To(BeFalse())
		Expect(q.flushTrigger).To(BeFalse())
		Expect(q.flushing).To(BeFalse())

		d = step(submit("B"), false)
		Expect(d.activate).To(BeTrue())
		Expect(d.accept).To(BeTrue())
	})

	It("should ignore requests on a closed port", func() {
		d := q.decide(submit("A"), false, true, 2)
		Expect(d.ignored).To(BeTrue())
		Expect(d.activate).To(BeTrue())
	})
})
