package navigator

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"navcore/bus"
	"navcore/scheduler"
)

type captureConsumer struct {
	ids []bus.MessageID
	all []bus.Message
}

func (c *captureConsumer) Consumed() []bus.MessageID { return c.ids }
func (c *captureConsumer) Receive(msg bus.Message)   { c.all = append(c.all, msg) }

func newTestNavigator(waypoints [][2]float64, threshold float64) (*Navigator, *bus.Hub, *scheduler.Scheduler) {
	sched := scheduler.New()
	hub := bus.NewHub(sched)
	n := New(hub, sched)
	n.waypoints = make([]waypoint, len(waypoints))
	for i, w := range waypoints {
		n.waypoints[i] = waypoint{X: w[0], Y: w[1]}
	}
	n.waypointThreshold = threshold
	n.intervalMs = 10
	n.startupWaitMs = 0
	n.waypointWaitMs = 0
	n.terminateWaitMs = 0
	return n, hub, sched
}

func TestEmitMoveRequestHeadsTowardWaypoint(t *testing.T) {
	Convey("Given a robot south of its first waypoint", t, func() {
		n, _, _ := newTestNavigator([][2]float64{{0, 10}}, 0.1)
		nav := bus.NewNavigationEstimate(0, 0, 0, 0)
		n.navEstimate = &nav

		capture := &captureConsumer{ids: []bus.MessageID{bus.MoveRequestID}}
		n.Hub.AddConsumer(capture)

		Convey("a MoveRequest with zero heading and the remaining distance is emitted", func() {
			n.emitMoveRequest()
			n.sched.Run()
			So(len(capture.all), ShouldEqual, 1)
			req := capture.all[0].(bus.MoveRequest)
			So(req.Theta, ShouldAlmostEqual, 0, 1e-9)
			So(req.Distance, ShouldAlmostEqual, 10, 1e-9)
		})
	})
}

func TestEmitMoveRequestAdvancesCursorWhenWaypointReached(t *testing.T) {
	Convey("Given a robot within threshold of a non-final waypoint", t, func() {
		n, _, _ := newTestNavigator([][2]float64{{0, 0}, {5, 5}}, 0.5)
		nav := bus.NewNavigationEstimate(0, 0.1, 0.1, math.Pi/4)
		n.navEstimate = &nav
		n.Start()

		capture := &captureConsumer{ids: []bus.MessageID{bus.MoveRequestID}}
		n.Hub.AddConsumer(capture)

		Convey("the cursor advances, the emit task restarts, and a holding MoveRequest is sent", func() {
			n.emitMoveRequest()
			// Let the restart and the hub flush run, then stop the restarted
			// emit task so Run returns.
			n.sched.Delay(func(*scheduler.Handle) { n.Stop() }, 0)
			n.sched.Run()
			So(n.cursor, ShouldEqual, 1)
			So(len(capture.all), ShouldEqual, 1)
			holding := capture.all[0].(bus.MoveRequest)
			So(holding.Distance, ShouldEqual, 0)
		})
	})
}

func TestEmitMoveRequestTerminatesWhenCursorOverruns(t *testing.T) {
	Convey("Given a robot within threshold of the final waypoint", t, func() {
		n, _, _ := newTestNavigator([][2]float64{{0, 0}}, 0.5)
		nav := bus.NewNavigationEstimate(0, 0.1, 0.1, 0)
		n.navEstimate = &nav

		capture := &captureConsumer{ids: []bus.MessageID{bus.MoveRequestID, bus.TerminateRequestID}}
		n.Hub.AddConsumer(capture)

		Convey("the cursor overruns and a TerminateRequest is eventually delivered", func() {
			n.emitMoveRequest()
			So(n.cursor, ShouldEqual, 1)

			n.sched.Run()

			var sawTerminate bool
			for _, m := range capture.all {
				if _, ok := m.(bus.TerminateRequest); ok {
					sawTerminate = true
				}
			}
			So(sawTerminate, ShouldBeTrue)
		})
	})
}

func TestEmitMoveRequestSkipsWithoutEstimate(t *testing.T) {
	Convey("Given no NavigationEstimate has been received", t, func() {
		n, _, _ := newTestNavigator([][2]float64{{1, 1}}, 0.1)

		Convey("emitMoveRequest is a no-op", func() {
			So(func() { n.emitMoveRequest() }, ShouldNotPanic)
		})
	})
}
