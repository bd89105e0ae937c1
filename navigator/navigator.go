// Package navigator implements the waypoint-following service: it tracks a
// cursor over an ordered list of waypoints and turns the latest position
// estimate into heading-and-distance move requests.
package navigator

import (
	"fmt"

	"navcore/bus"
	"navcore/config"
	"navcore/mathutil"
	"navcore/scheduler"
)

// waypoint is a single 2-D target in the route.
type waypoint struct {
	X, Y float64
}

// Navigator consumes NavigationEstimate and publishes MoveRequest, advancing
// a cursor over its configured waypoint list as each is reached.
type Navigator struct {
	bus.Publisher

	sched *scheduler.Scheduler

	waypoints        []waypoint
	cursor           int
	waypointThreshold float64
	intervalMs        int

	startupWaitMs   int64
	waypointWaitMs  int64
	terminateWaitMs int64

	navEstimate *bus.NavigationEstimate
	emitHandle  *scheduler.Handle
}

// New returns a Navigator that subscribes to hub and schedules its periodic
// task on sched. Call Initialise before use.
func New(hub *bus.Hub, sched *scheduler.Scheduler) *Navigator {
	n := &Navigator{Publisher: bus.Publisher{Hub: hub}, sched: sched}
	hub.AddConsumer(n)
	return n
}

// Consumed satisfies bus.Consumer.
func (n *Navigator) Consumed() []bus.MessageID {
	return []bus.MessageID{bus.NavigationEstimateID, bus.StartRequestID, bus.TerminateRequestID}
}

// Receive satisfies bus.Consumer.
func (n *Navigator) Receive(msg bus.Message) {
	switch m := msg.(type) {
	case bus.NavigationEstimate:
		n.navEstimate = &m
	case bus.StartRequest:
		n.sched.Delay(func(*scheduler.Handle) { n.Start() }, n.startupWaitMs)
	case bus.TerminateRequest:
		n.Stop()
	}
}

// Initialise loads the [Navigator] section of conf. Satisfies service.Configurable.
func (n *Navigator) Initialise(conf *config.Configuration) error {
	n.Stop()

	waypointsX, err := conf.GetFloatList("Navigator", "waypoints_x")
	if err != nil {
		return err
	}
	waypointsY, err := conf.GetFloatList("Navigator", "waypoints_y")
	if err != nil {
		return err
	}
	if len(waypointsX) != len(waypointsY) {
		return fmt.Errorf("[Navigator]: waypoints_x and waypoints_y must be the same length")
	}

	n.waypoints = make([]waypoint, len(waypointsX))
	for i := range waypointsX {
		n.waypoints[i] = waypoint{X: waypointsX[i], Y: waypointsY[i]}
	}
	n.cursor = 0

	if n.intervalMs, err = conf.GetInt("Navigator", "interval_ms"); err != nil {
		return err
	}
	if n.waypointThreshold, err = conf.GetFloat("Navigator", "waypoint_threshold"); err != nil {
		return err
	}

	startupWait, err := conf.GetFloat("Navigator", "startup_wait")
	if err != nil {
		return err
	}
	n.startupWaitMs = int64(startupWait)

	waypointWait, err := conf.GetFloat("Navigator", "waypoint_wait")
	if err != nil {
		return err
	}
	n.waypointWaitMs = int64(waypointWait)

	terminateWait, err := conf.GetFloat("Navigator", "stop_wait")
	if err != nil {
		return err
	}
	n.terminateWaitMs = int64(terminateWait)

	return nil
}

// Start begins the periodic emit task, first stopping any prior activation.
func (n *Navigator) Start() {
	n.Stop()
	n.emitHandle = n.sched.Interval(func(*scheduler.Handle) { n.emitMoveRequest() }, int64(n.intervalMs))
}

// Stop cancels the periodic emit task, if running.
func (n *Navigator) Stop() {
	if n.emitHandle != nil {
		n.emitHandle.Cancel()
		n.emitHandle = nil
	}
}

// emitMoveRequest checks the latest position estimate against the current
// waypoint, advancing the cursor and publishing a holding request when it is
// reached, or a heading-and-distance request otherwise.
func (n *Navigator) emitMoveRequest() {
	if n.navEstimate == nil {
		return
	}
	if n.cursor >= len(n.waypoints) {
		return
	}

	posX, posY := n.navEstimate.X, n.navEstimate.Y
	target := n.waypoints[n.cursor]

	if mathutil.Distance(target.X, target.Y, posX, posY) < n.waypointThreshold {
		n.cursor++
		if n.cursor >= len(n.waypoints) {
			n.sched.Delay(func(*scheduler.Handle) { n.Deliver(bus.NewTerminateRequest(bus.NowMs())) }, n.terminateWaitMs)
		} else {
			n.Stop()
			n.sched.Delay(func(*scheduler.Handle) { n.Start() }, n.waypointWaitMs)
		}
		n.Deliver(bus.NewMoveRequest(bus.NowMs(), n.navEstimate.Theta, 0.0))
		return
	}

	relX, relY := target.X-posX, target.Y-posY
	heading := mathutil.SignedAngleBetween(0, 1, relX, relY)
	n.Deliver(bus.NewMoveRequest(bus.NowMs(), heading, mathutil.Distance(target.X, target.Y, posX, posY)))
}
