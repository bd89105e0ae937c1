package sim

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"navcore/geofence"
	"navcore/motor"
	"navcore/sonar"
)

func bigGeofence(t *testing.T) geofence.Geofence {
	t.Helper()
	g, err := geofence.New(
		[]float64{-100, 100, 100, -100, -100},
		[]float64{-100, -100, 100, 100, -100},
	)
	if err != nil {
		t.Fatalf("building geofence: %v", err)
	}
	return *g
}

func TestStepTowardSaturatesAtMaxRate(t *testing.T) {
	Convey("Given an encoder far from its target", t, func() {
		world := NewWorld(bigGeofence(t), 0.05, 0.2, 360)

		Convey("one step moves it by at most the rate-limited distance", func() {
			world.leftTarget.target.AtomicSet(100000)
			world.leftTarget.dps.AtomicSet(180)

			delta := stepToward(world.leftEncoder, world.leftTarget.target.AtomicRead(), world.leftTarget.dps.AtomicRead(), world.encoderCps, 1.0)
			maxTicks := 180.0 * 360.0 / 360.0
			So(delta, ShouldAlmostEqual, maxTicks, 1e-9)
		})
	})
}

func TestStepTowardReachesCloseTarget(t *testing.T) {
	Convey("Given an encoder within one tick's reach of its target", t, func() {
		world := NewWorld(bigGeofence(t), 0.05, 0.2, 360)
		world.leftEncoder.AtomicSet(10)

		Convey("one step lands exactly on the target rather than overshooting", func() {
			delta := stepToward(world.leftEncoder, 10.5, 1000, world.encoderCps, 1.0)
			So(delta, ShouldAlmostEqual, 0.5, 1e-9)
		})
	})
}

func TestWorldStepAdvancesPoseOnStraightMove(t *testing.T) {
	Convey("Given both wheels commanded an equal forward target", t, func() {
		world := NewWorld(bigGeofence(t), 0.05, 0.2, 360)
		world.leftTarget.target.AtomicSet(360)
		world.rightTarget.target.AtomicSet(360)
		world.leftTarget.dps.AtomicSet(360)
		world.rightTarget.dps.AtomicSet(360)

		Convey("repeated integration steps move the pose forward without turning", func() {
			for i := 0; i < 50; i++ {
				world.step(0.02)
			}
			x, y, theta := world.Pose()
			So(theta, ShouldAlmostEqual, 0, 1e-6)
			So(x, ShouldAlmostEqual, 0, 1e-6)
			So(y, ShouldBeGreaterThan, 0)
		})
	})
}

func TestVirtualMotorDriverRoundTrip(t *testing.T) {
	Convey("Given a virtual motor driver bound to left and right ports", t, func() {
		world := NewWorld(bigGeofence(t), 0.05, 0.2, 360)
		driver := NewVirtualMotorDriver(world, motor.PortA, motor.PortB)

		Convey("SetMotorPosition and GetMotorEncoder round-trip through the world", func() {
			driver.ResetMotorEncoder(motor.PortA)
			driver.SetMotorLimits(motor.PortA, 100, 100000)
			driver.SetMotorPosition(motor.PortA, 42)
			for i := 0; i < 100; i++ {
				world.step(0.01)
			}
			encoder, ok := driver.GetMotorEncoder(motor.PortA)
			So(ok, ShouldBeTrue)
			So(encoder, ShouldEqual, 42)
		})

		Convey("an unbound port reports absent", func() {
			_, ok := driver.GetMotorEncoder(motor.PortC)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestVirtualSonarDriverHitsWall(t *testing.T) {
	Convey("Given a robot at the centre of a 2x2 geofence, facing +y", t, func() {
		g, err := geofence.New([]float64{-1, 1, 1, -1, -1}, []float64{-1, -1, 1, 1, -1})
		if err != nil {
			t.Fatalf("building geofence: %v", err)
		}
		world := NewWorld(*g, 0.05, 0.2, 360)
		world.poseX.AtomicSet(0)
		world.poseY.AtomicSet(0)
		world.poseTheta.AtomicSet(0)

		driver := NewVirtualSonarDriver(world, sonar.Port1, 0, 0)

		Convey("Read reports the distance to the facing wall", func() {
			reading, ok := driver.Read(sonar.Port1)
			So(ok, ShouldBeTrue)
			So(reading, ShouldAlmostEqual, 1.0, 1e-9)
		})

		Convey("Read on an unbound port reports absent", func() {
			_, ok := driver.Read(sonar.Port2)
			So(ok, ShouldBeFalse)
		})
	})
}
