package sim

import (
	atomic_float "navcore/atomicfloat"
	"navcore/motor"
)

// VirtualMotorDriver satisfies motor.Driver against a shared World, standing
// in for the physical motor hardware.
type VirtualMotorDriver struct {
	world *World

	left, right motor.Port
}

// NewVirtualMotorDriver returns a driver exposing left and right wheel motion
// through world. Every other motor.Port reports absent.
func NewVirtualMotorDriver(world *World, left, right motor.Port) *VirtualMotorDriver {
	return &VirtualMotorDriver{world: world, left: left, right: right}
}

func (d *VirtualMotorDriver) wheel(port motor.Port) *wheelTarget {
	switch port {
	case d.left:
		return &d.world.leftTarget
	case d.right:
		return &d.world.rightTarget
	default:
		return nil
	}
}

func (d *VirtualMotorDriver) encoder(port motor.Port) *atomic_float.AtomicFloat64 {
	switch port {
	case d.left:
		return d.world.leftEncoder
	case d.right:
		return d.world.rightEncoder
	default:
		return nil
	}
}

// SetMotorLimits records the angular rate the virtual motor approaches its
// target at. Power is accepted but unused: the world's kinematic model only
// needs a rate limit, not a torque curve.
func (d *VirtualMotorDriver) SetMotorLimits(port motor.Port, _, dps float64) {
	if w := d.wheel(port); w != nil {
		w.dps.AtomicSet(dps)
	}
}

// ResetMotorEncoder zeroes the wheel's encoder and its outstanding target.
func (d *VirtualMotorDriver) ResetMotorEncoder(port motor.Port) {
	if w := d.wheel(port); w != nil {
		w.target.AtomicSet(0)
	}
	if e := d.encoder(port); e != nil {
		e.AtomicSet(0)
	}
}

// SetMotorPosition sets the wheel's target absolute encoder tick; World.step
// drives the encoder toward it on every subsequent tick.
func (d *VirtualMotorDriver) SetMotorPosition(port motor.Port, absoluteTicks int) {
	if w := d.wheel(port); w != nil {
		w.target.AtomicSet(float64(absoluteTicks))
	}
}

// GetMotorEncoder returns the wheel's current encoder tick count.
func (d *VirtualMotorDriver) GetMotorEncoder(port motor.Port) (int, bool) {
	e := d.encoder(port)
	if e == nil {
		return 0, false
	}
	return int(e.AtomicRead()), true
}
