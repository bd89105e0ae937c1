// Package sim implements a virtual physics world standing in for the motor
// and sonar hardware drivers: a background goroutine integrates differential-
// drive kinematics and serves the result through the same Driver interfaces
// the physical drivers satisfy, so the control core can run unmodified
// against either.
package sim

import (
	"math"
	"time"

	"github.com/niceyeti/channerics/channels"

	atomic_float "navcore/atomicfloat"
	"navcore/geofence"
	"navcore/motor"
	"navcore/sonar"
)

// tickInterval is the physics integration step. It is decoupled from every
// configured emit/command interval: the world always integrates at this
// resolution and the drivers simply sample its latest state.
const tickInterval = 10 * time.Millisecond

// wheelTarget holds the goal encoder position for one wheel and the angular
// rate the virtual motor approaches it at.
type wheelTarget struct {
	target *atomic_float.AtomicFloat64
	dps    *atomic_float.AtomicFloat64
}

// World integrates a two-wheel differential-drive robot's pose from wheel
// encoder targets, and exposes a read-only sonar ray against a geofence.
type World struct {
	geofence geofence.Geofence

	wheelRadius float64
	wheelBase   float64
	encoderCps  int

	leftEncoder  *atomic_float.AtomicFloat64
	rightEncoder *atomic_float.AtomicFloat64
	leftTarget   wheelTarget
	rightTarget  wheelTarget

	poseX     *atomic_float.AtomicFloat64
	poseY     *atomic_float.AtomicFloat64
	poseTheta *atomic_float.AtomicFloat64

	done chan struct{}
}

// NewWorld returns a World with its robot at the origin, heading 0.
func NewWorld(g geofence.Geofence, wheelRadius, wheelBase float64, encoderCps int) *World {
	return &World{
		geofence:     g,
		wheelRadius:  wheelRadius,
		wheelBase:    wheelBase,
		encoderCps:   encoderCps,
		leftEncoder:  atomic_float.NewAtomicFloat64(0),
		rightEncoder: atomic_float.NewAtomicFloat64(0),
		leftTarget:   wheelTarget{target: atomic_float.NewAtomicFloat64(0), dps: atomic_float.NewAtomicFloat64(180)},
		rightTarget:  wheelTarget{target: atomic_float.NewAtomicFloat64(0), dps: atomic_float.NewAtomicFloat64(180)},
		poseX:        atomic_float.NewAtomicFloat64(0),
		poseY:        atomic_float.NewAtomicFloat64(0),
		poseTheta:    atomic_float.NewAtomicFloat64(0),
	}
}

// Run integrates the world on tickInterval until done is closed.
func (w *World) Run(done <-chan struct{}) {
	w.done = make(chan struct{})
	last := time.Now()
	for range channels.NewTicker(done, tickInterval) {
		now := time.Now()
		w.step(now.Sub(last).Seconds())
		last = now
	}
}

// step advances each wheel's encoder toward its target at its configured
// angular rate, then integrates the resulting differential-drive pose update.
func (w *World) step(dt float64) {
	if dt <= 0 {
		return
	}

	leftEncoder := stepToward(w.leftEncoder, w.leftTarget.target.AtomicRead(), w.leftTarget.dps.AtomicRead(), w.encoderCps, dt)
	rightEncoder := stepToward(w.rightEncoder, w.rightTarget.target.AtomicRead(), w.rightTarget.dps.AtomicRead(), w.encoderCps, dt)

	leftDistance := 2 * w.wheelRadius * math.Pi * leftEncoder / float64(w.encoderCps)
	rightDistance := 2 * w.wheelRadius * math.Pi * rightEncoder / float64(w.encoderCps)

	distance := (leftDistance + rightDistance) / 2
	deltaTheta := (rightDistance - leftDistance) / w.wheelBase

	theta := w.poseTheta.AtomicRead()
	newTheta := theta + deltaTheta
	x := w.poseX.AtomicRead()
	y := w.poseY.AtomicRead()

	w.poseX.AtomicSet(x + math.Sin(newTheta)*distance)
	w.poseY.AtomicSet(y + math.Cos(newTheta)*distance)
	w.poseTheta.AtomicSet(newTheta)
}

// stepToward moves current's encoder ticks toward targetTicks at dps degrees
// per second for dt seconds, saturating at the target, and returns the signed
// tick delta applied this step.
func stepToward(current *atomic_float.AtomicFloat64, targetTicks, dps float64, encoderCps int, dt float64) float64 {
	maxTicks := dps * float64(encoderCps) / 360.0 * dt

	pos := current.AtomicRead()
	remaining := targetTicks - pos

	var delta float64
	switch {
	case remaining > maxTicks:
		delta = maxTicks
	case remaining < -maxTicks:
		delta = -maxTicks
	default:
		delta = remaining
	}

	current.AtomicAdd(delta)
	return delta
}

// Pose returns the world's current ground-truth pose.
func (w *World) Pose() (x, y, theta float64) {
	return w.poseX.AtomicRead(), w.poseY.AtomicRead(), w.poseTheta.AtomicRead()
}

var _ motor.Driver = (*VirtualMotorDriver)(nil)
var _ sonar.Driver = (*VirtualSonarDriver)(nil)
