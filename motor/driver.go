// Package motor implements the motor-control service: it translates encoder
// deltas into odometry estimates and move requests into wheel-encoder targets.
package motor

import "fmt"

// Port identifies one of the four ports a Driver exposes.
type Port int

// The four motor ports a physical or virtual driver may expose.
const (
	PortA Port = iota
	PortB
	PortC
	PortD
)

func (p Port) String() string {
	switch p {
	case PortA:
		return "port_A"
	case PortB:
		return "port_B"
	case PortC:
		return "port_C"
	case PortD:
		return "port_D"
	default:
		return "unknown"
	}
}

// ParsePort converts a configuration string ("port_A".."port_D") into a Port.
func ParsePort(s string) (Port, error) {
	switch s {
	case "port_A":
		return PortA, nil
	case "port_B":
		return PortB, nil
	case "port_C":
		return PortC, nil
	case "port_D":
		return PortD, nil
	default:
		return 0, fmt.Errorf("[MotorController]: invalid motor port string: %q", s)
	}
}

// Driver is the hardware collaborator the motor controller drives. Only the
// interface is specified here; physical bindings live outside this module and
// package sim supplies a kinematic stand-in for development and tests.
type Driver interface {
	SetMotorLimits(port Port, power, dps float64)
	ResetMotorEncoder(port Port)
	SetMotorPosition(port Port, absoluteTicks int)
	// GetMotorEncoder returns the current encoder count and true, or (0, false)
	// if no reading is currently available.
	GetMotorEncoder(port Port) (int, bool)
}
