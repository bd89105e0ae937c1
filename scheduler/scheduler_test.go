package scheduler

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestOrdering(t *testing.T) {
	Convey("Given tasks enqueued out of chronological order", t, func() {
		s := New()
		var order []string

		s.Delay(func(*Handle) { order = append(order, "A") }, 10)
		s.Delay(func(*Handle) { order = append(order, "B") }, 20)
		s.Delay(func(*Handle) { order = append(order, "C") }, 5)

		Convey("Run fires them in fire-time order", func() {
			s.Run()
			So(order, ShouldResemble, []string{"C", "A", "B"})
		})
	})
}

func TestZeroDelayFIFO(t *testing.T) {
	Convey("Given a burst of zero-delay tasks", t, func() {
		s := New()
		var order []int

		for i := 0; i < 5; i++ {
			i := i
			s.Delay(func(*Handle) { order = append(order, i) }, 0)
		}

		Convey("they run in insertion order", func() {
			s.Run()
			So(order, ShouldResemble, []int{0, 1, 2, 3, 4})
		})
	})
}

func TestCooperativeCancel(t *testing.T) {
	Convey("Given a periodic task cancelled after 100ms", t, func() {
		s := New()
		count := 0
		var handle *Handle
		handle = s.Interval(func(h *Handle) {
			count++
		}, 1)

		s.Delay(func(*Handle) {
			handle.Cancel()
		}, 100)

		Convey("its invocation count lands in the expected range", func() {
			s.Run()
			So(count, ShouldBeGreaterThanOrEqualTo, 70)
			So(count, ShouldBeLessThanOrEqualTo, 90)
		})
	})
}

func TestSelfCancel(t *testing.T) {
	Convey("Given a task that cancels itself on its first activation", t, func() {
		s := New()
		runs := 0
		s.Interval(func(h *Handle) {
			runs++
			h.Cancel()
		}, 1)

		Convey("Run returns after a single activation", func() {
			done := make(chan struct{})
			go func() {
				s.Run()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("scheduler did not terminate")
			}
			So(runs, ShouldEqual, 1)
		})
	})
}
