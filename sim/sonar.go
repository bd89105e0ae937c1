package sim

import (
	"math"

	"navcore/sonar"
)

// VirtualSonarDriver satisfies sonar.Driver against a shared World: it casts
// a ray from the world's current ground-truth pose, offset by the sensor's
// configured mounting position, and reports the distance to the nearest wall.
type VirtualSonarDriver struct {
	world *World
	port  sonar.Port

	offsetX, offsetY float64
}

// NewVirtualSonarDriver returns a driver reporting ranges on port, with the
// sensor mounted at (offsetX, offsetY) in the robot's body frame.
func NewVirtualSonarDriver(world *World, port sonar.Port, offsetX, offsetY float64) *VirtualSonarDriver {
	return &VirtualSonarDriver{world: world, port: port, offsetX: offsetX, offsetY: offsetY}
}

// SetSensorType is a no-op: the virtual sensor always behaves as ultrasonic.
func (d *VirtualSonarDriver) SetSensorType(sonar.Port, sonar.SensorType) {}

// Read casts a ray from the world's pose, translated by the sensor's body-
// frame offset, and returns the distance to the nearest wall. It reports
// absent if no wall is hit.
func (d *VirtualSonarDriver) Read(port sonar.Port) (float64, bool) {
	if port != d.port {
		return 0, false
	}

	x, y, theta := d.world.Pose()
	sensorX := x + d.offsetX*math.Cos(theta) + d.offsetY*math.Sin(theta)
	sensorY := y - d.offsetX*math.Sin(theta) + d.offsetY*math.Cos(theta)

	distance, normal := d.world.geofence.DistanceToClosestWall(sensorX, sensorY, theta)
	if distance == 0 && normal == 0 {
		return 0, false
	}
	return distance, true
}
