// Package sonar implements the ranging-sensor service: it reads a single
// ultrasonic sensor on a fixed interval and publishes SonarReading.
package sonar

import "fmt"

// Port identifies one of the four sensor ports a Driver exposes.
type Port int

// The four sensor ports a physical or virtual driver may expose.
const (
	Port1 Port = iota
	Port2
	Port3
	Port4
)

func (p Port) String() string {
	switch p {
	case Port1:
		return "port_1"
	case Port2:
		return "port_2"
	case Port3:
		return "port_3"
	case Port4:
		return "port_4"
	default:
		return "unknown"
	}
}

// ParsePort converts a configuration string ("port_1".."port_4") into a Port.
func ParsePort(s string) (Port, error) {
	switch s {
	case "port_1":
		return Port1, nil
	case "port_2":
		return Port2, nil
	case "port_3":
		return Port3, nil
	case "port_4":
		return Port4, nil
	default:
		return 0, fmt.Errorf("[Sonar]: invalid sonar port string: %q", s)
	}
}

// SensorType enumerates the sensor modes a Driver can be configured for.
type SensorType int

// Ultrasonic is the only sensor type this core drives.
const Ultrasonic SensorType = 0

// Driver is the hardware collaborator the sonar service drives. Only the
// interface is specified here; physical bindings live outside this module and
// package sim supplies a kinematic stand-in for development and tests.
type Driver interface {
	SetSensorType(port Port, sensorType SensorType)
	// Read returns the current range reading in metres and true, or (0, false)
	// if no reading is currently available.
	Read(port Port) (float64, bool)
}
