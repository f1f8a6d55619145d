package station

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"scanstation/internal/scanqueue"
)

type eventMatcher struct {
	kind scanqueue.EventKind
	id   string
}

func (m eventMatcher) Matches(x any) bool {
	evt, ok := x.(scanqueue.Event)
	return ok && evt.Kind == m.kind && evt.Request.ID() == m.id
}

func (m eventMatcher) String() string {
	return fmt.Sprintf("%s event for %q", m.kind, m.id)
}

func eventFor(kind scanqueue.EventKind, id string) gomock.Matcher {
	return eventMatcher{kind: kind, id: id}
}

var timing = scanqueue.Config{ScanDuration: 2 * time.Second, CooldownDuration: time.Second}

var _ = Describe("Station", func() {
	var (
		mockCtrl *gomock.Controller
		st       *Station
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		st = New(timing)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should start scanning the first arrival immediately", func() {
		st.Enter("a", map[string]string{"variant": "1"})
		st.Enter("b", nil)

		status := st.Status()
		Expect(status.Phase).To(Equal(scanqueue.PhaseScanning))
		Expect(status.Active).To(Equal("a"))
		Expect(status.ActiveAttrs).To(HaveKeyWithValue("variant", "1"))
		Expect(status.Queued).To(Equal([]string{"b"}))
		Expect(status.Known).To(Equal(2))
	})

	It("should serve after the full scan duration and then hand off", func() {
		st.Enter("a", nil)
		st.Enter("b", nil)

		st.Advance(2 * time.Second)
		status := st.Status()
		Expect(status.Phase).To(Equal(scanqueue.PhaseCooling))
		Expect(status.Active).To(Equal("a"))
		Expect(status.Served).To(Equal([]string{"a"}))
		Expect(status.Remaining()).To(Equal(time.Second))

		st.Advance(time.Second)
		status = st.Status()
		Expect(status.Phase).To(Equal(scanqueue.PhaseScanning))
		Expect(status.Active).To(Equal("b"))
		Expect(status.Counters.Served).To(BeEquivalentTo(1))
	})

	It("should preempt a scanning item that leaves and forget it", func() {
		st.Enter("a", nil)
		st.Enter("b", nil)
		st.Advance(1500 * time.Millisecond)

		st.Exit("a")
		status := st.Status()
		Expect(status.Active).To(Equal("b"))
		Expect(status.Elapsed).To(BeZero())
		Expect(status.Known).To(Equal(1))
		Expect(status.Counters.Preempted).To(BeEquivalentTo(1))

		st.Enter("a", nil)
		Expect(st.Status().Queued).To(Equal([]string{"a"}))
	})

	It("should ignore a served item that is still present", func() {
		st.Enter("a", nil)
		st.Advance(2 * time.Second)
		st.Advance(time.Second)
		Expect(st.Status().Phase).To(Equal(scanqueue.PhaseIdle))

		st.Enter("a", nil)
		status := st.Status()
		Expect(status.Phase).To(Equal(scanqueue.PhaseIdle))
		Expect(status.Queued).To(BeEmpty())
		Expect(status.Served).To(Equal([]string{"a"}))
	})

	It("should scan a new item arriving under a served handle that left", func() {
		const port = "/devices/pci0000:00/usb1/1-1"
		st.Enter(port, map[string]string{"id_serial": "first"})
		st.Advance(2 * time.Second)
		st.Advance(time.Second)
		st.Exit(port)

		st.Enter(port, map[string]string{"id_serial": "second"})
		status := st.Status()
		Expect(status.Phase).To(Equal(scanqueue.PhaseScanning))
		Expect(status.Active).To(Equal(port))
		Expect(status.ActiveAttrs).To(HaveKeyWithValue("id_serial", "second"))
		Expect(status.Served).To(BeEmpty())
		Expect(status.Known).To(Equal(1))

		st.Advance(2 * time.Second)
		Expect(st.Status().Counters.Served).To(BeEquivalentTo(2))
	})

	It("should keep the registry bounded as served items come and go", func() {
		st = New(timing, WithDisposalBacklog(8))
		for i := range 1000 {
			handle := "item-" + strconv.Itoa(i)
			st.Enter(handle, nil)
			st.Advance(2 * time.Second)
			st.Exit(handle)
			st.Advance(time.Second)
		}
		status := st.Status()
		Expect(status.Counters.Served).To(BeEquivalentTo(1000))
		Expect(status.Known).To(Equal(8))
		Expect(status.Served).To(HaveLen(8))
		Expect(status.Served).To(ContainElement("item-999"))
		Expect(status.Served).NotTo(ContainElement("item-0"))
	})

	It("should forget served items on exit when disposal is disabled", func() {
		st = New(timing, WithDisposal(false))
		st.Enter("a", nil)
		st.Advance(2 * time.Second)
		st.Advance(time.Second)
		st.Exit("a")
		Expect(st.Status().Known).To(BeZero())
		Expect(st.Forget("a")).To(BeFalse())
	})

	It("should keep the cooldown when the served item leaves", func() {
		st.Enter("a", nil)
		st.Enter("b", nil)
		st.Advance(2 * time.Second)

		st.Exit("a")
		status := st.Status()
		Expect(status.Phase).To(Equal(scanqueue.PhaseCooling))
		Expect(status.ActiveDeparted).To(BeTrue())
		Expect(status.Counters.DepartedCooling).To(BeEquivalentTo(1))

		st.Advance(999 * time.Millisecond)
		Expect(st.Status().Active).To(Equal("a"))
		st.Advance(time.Millisecond)
		Expect(st.Status().Active).To(Equal("b"))
	})

	It("should ignore unknown and empty handles", func() {
		st.Exit("ghost")
		st.Enter("", nil)
		st.DisposalEnter("ghost")
		Expect(st.Forget("ghost")).To(BeFalse())
		Expect(st.Status().Known).To(BeZero())
		Expect(st.Status().Phase).To(Equal(scanqueue.PhaseIdle))
	})

	It("should forget an item even while it scans", func() {
		st.Enter("a", nil)
		Expect(st.Forget("a")).To(BeTrue())
		status := st.Status()
		Expect(status.Phase).To(Equal(scanqueue.PhaseIdle))
		Expect(status.Known).To(BeZero())
	})

	It("should reset everything but the counters", func() {
		st.Enter("a", nil)
		st.Advance(2 * time.Second)
		st.DisposalEnter("a")
		st.Enter("b", nil)

		st.Reset()
		status := st.Status()
		Expect(status.Phase).To(Equal(scanqueue.PhaseIdle))
		Expect(status.Active).To(BeEmpty())
		Expect(status.Queued).To(BeEmpty())
		Expect(status.Known).To(BeZero())
		Expect(status.Disposal.Highlighted).To(BeFalse())
		Expect(status.Counters.Resets).To(BeEquivalentTo(1))
		Expect(status.Counters.Served).To(BeEquivalentTo(1))

		st.Enter("a", nil)
		Expect(st.Status().Active).To(Equal("a"), "reset forgets served items too")
	})

	Context("with observers", func() {
		var observer *MockObserver

		BeforeEach(func() {
			observer = NewMockObserver(mockCtrl)
			st = New(timing, WithObserver(observer))
		})

		It("should report the lifecycle in order", func() {
			gomock.InOrder(
				observer.EXPECT().OnEvent(eventFor(scanqueue.EventEnqueued, "a")),
				observer.EXPECT().OnEvent(eventFor(scanqueue.EventScanStarted, "a")),
				observer.EXPECT().OnEvent(eventFor(scanqueue.EventEnqueued, "b")),
				observer.EXPECT().OnEvent(eventFor(scanqueue.EventPreempted, "a")),
				observer.EXPECT().OnEvent(eventFor(scanqueue.EventScanStarted, "b")),
				observer.EXPECT().OnEvent(eventFor(scanqueue.EventServed, "b")),
				observer.EXPECT().OnEvent(eventFor(scanqueue.EventCooldownDone, "b")),
			)

			st.Enter("a", nil)
			st.Enter("b", nil)
			st.Advance(time.Second)
			st.Exit("a")
			st.Advance(2 * time.Second)
			st.Advance(time.Second)
		})
	})

	Context("disposal zone", func() {
		var recorder *MockDisposalRecorder

		BeforeEach(func() {
			recorder = NewMockDisposalRecorder(mockCtrl)
			st = New(timing, WithDisposalRecorder(recorder))
		})

		It("should only count served items", func() {
			st.Enter("a", nil)
			st.Enter("b", nil)
			st.Advance(2 * time.Second)

			recorder.EXPECT().Disposed(gomock.Any()).Do(func(req *scanqueue.Request) {
				Expect(req.ID()).To(Equal("a"))
				Expect(req.Served()).To(BeTrue())
			})

			st.DisposalEnter("b")
			Expect(st.Status().Disposal.Highlighted).To(BeFalse())

			st.DisposalEnter("a")
			st.DisposalEnter("a")
			status := st.Status()
			Expect(status.Disposal.Highlighted).To(BeTrue())
			Expect(status.Disposal.Occupants).To(Equal([]string{"a"}))
			Expect(status.Counters.Disposed).To(BeEquivalentTo(1))

			st.DisposalExit("a")
			Expect(st.Status().Disposal.Highlighted).To(BeFalse())
		})

		It("should count a served item after it left the scan zone, then forget it", func() {
			st.Enter("a", nil)
			st.Advance(2 * time.Second)
			st.Advance(time.Second)
			st.Exit("a")
			Expect(st.Status().Known).To(Equal(1))

			recorder.EXPECT().Disposed(gomock.Any()).Do(func(req *scanqueue.Request) {
				Expect(req.ID()).To(Equal("a"))
			})
			st.DisposalEnter("a")
			status := st.Status()
			Expect(status.Counters.Disposed).To(BeEquivalentTo(1))
			Expect(status.Disposal.Occupants).To(Equal([]string{"a"}))
			Expect(status.Known).To(BeZero())

			st.DisposalExit("a")
			st.DisposalEnter("a")
			Expect(st.Status().Counters.Disposed).To(BeEquivalentTo(1))
		})

		It("should ignore everything when disabled", func() {
			st = New(timing, WithDisposal(false), WithDisposalRecorder(recorder))
			st.Enter("a", nil)
			st.Advance(2 * time.Second)
			st.DisposalEnter("a")
			status := st.Status()
			Expect(status.Disposal.Enabled).To(BeFalse())
			Expect(status.Disposal.Highlighted).To(BeFalse())
		})
	})

	Context("run loop", func() {
		It("should tick on its own until cancelled", func() {
			st = New(scanqueue.Config{ScanDuration: 20 * time.Millisecond, CooldownDuration: 20 * time.Millisecond},
				WithTickInterval(2*time.Millisecond))
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- st.Run(ctx) }()

			st.Enter("a", nil)
			Eventually(func() uint64 { return st.Status().Counters.Served }).
				WithTimeout(2 * time.Second).Should(BeEquivalentTo(1))

			cancel()
			Eventually(done).Should(Receive(BeNil()))
		})
	})
})

var _ = Describe("Disposal", func() {
	It("should stay highlighted while any served item is inside", func() {
		d := NewDisposal(true)
		Expect(d.Enter("a", true)).To(BeTrue())
		Expect(d.Enter("b", true)).To(BeTrue())
		Expect(d.Enter("c", false)).To(BeFalse())
		d.Exit("a")
		Expect(d.Highlighted()).To(BeTrue())
		d.Exit("b")
		Expect(d.Highlighted()).To(BeFalse())
	})
})

var _ = Describe("Spawner", func() {
	It("should produce unique handles with attributes in range", func() {
		sp := NewSpawner(rand.New(rand.NewSource(7)), 3)
		seen := map[string]bool{}
		for range 200 {
			handle, attrs := sp.Next()
			Expect(seen).NotTo(HaveKey(handle))
			seen[handle] = true

			variant, err := strconv.Atoi(attrs["variant"])
			Expect(err).NotTo(HaveOccurred())
			Expect(variant).To(BeNumerically(">=", 0))
			Expect(variant).To(BeNumerically("<", 3))

			channels := strings.Split(attrs["color"], ",")
			Expect(channels).To(HaveLen(3))
			for _, ch := range channels {
				v, err := strconv.Atoi(ch)
				Expect(err).NotTo(HaveOccurred())
				Expect(v).To(BeNumerically(">=", 100))
				Expect(v).To(BeNumerically("<=", 255))
			}
		}
	})

	It("should be reproducible for a fixed seed", func() {
		_, first := NewSpawner(rand.New(rand.NewSource(42)), 0).Next()
		_, second := NewSpawner(rand.New(rand.NewSource(42)), 0).Next()
		Expect(first).To(Equal(second))
	})
})
