package estimator

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"navcore/bus"
	"navcore/geofence"
	"navcore/scheduler"
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

func newTestEstimator(t *testing.T, numParticles int, startX, startY, startTheta float64) *Estimator {
	t.Helper()
	hub := bus.NewHub(scheduler.New())
	e := New(hub)
	e.localisation = Continuous
	e.startX, e.startY, e.startTheta = startX, startY, startTheta
	e.numParticles = numParticles
	e.geofence = bigGeofence(t)
	e.initialiseParticles()
	return e
}

func TestEstimatorConvergence(t *testing.T) {
	Convey("Given particles starting at (0,0,pi/6)", t, func() {
		e := newTestEstimator(t, 20, 0, 0, math.Pi/6)

		Convey("three noise-free straight moves of 10/3m converge on the expected pose", func() {
			for i := 0; i < 3; i++ {
				e.handleMoveEstimate(bus.NewMoveEstimate(0, 10.0/3.0, 0, 0))
			}

			particles := e.Particles()
			var x, y, theta float64
			for _, p := range particles {
				x += p.X * p.Weight
				y += p.Y * p.Weight
				theta += p.Theta * p.Weight
			}

			So(x, ShouldAlmostEqual, 5.0, 0.01)
			So(y, ShouldAlmostEqual, 8.66, 0.01)
			So(theta, ShouldAlmostEqual, 0.52, 0.01)
		})
	})
}

func TestNormaliseWeightsSumToOne(t *testing.T) {
	Convey("Given particles with arbitrary nonzero weights", t, func() {
		e := newTestEstimator(t, 5, 0, 0, 0)
		for i := range e.particles {
			e.particles[i].Weight = float64(i + 1)
		}

		Convey("normalising makes them sum to 1", func() {
			e.normaliseWeights()
			total := 0.0
			for _, p := range e.particles {
				total += p.Weight
			}
			So(total, ShouldAlmostEqual, 1.0, 1e-9)
		})
	})
}

func TestNormaliseWeightsResetsOnCollapse(t *testing.T) {
	Convey("Given particles whose weights have all collapsed to zero", t, func() {
		e := newTestEstimator(t, 4, 0, 0, 0)
		for i := range e.particles {
			e.particles[i].Weight = 0
		}

		Convey("normalising resets them to uniform", func() {
			e.normaliseWeights()
			for _, p := range e.particles {
				So(p.Weight, ShouldAlmostEqual, 0.25, 1e-9)
			}
		})
	})
}

func TestResampleProducesExactlyNParticles(t *testing.T) {
	Convey("Given a particle set with skewed weights", t, func() {
		e := newTestEstimator(t, 10, 0, 0, 0)
		e.particles[0].Weight = 0.91
		for i := 1; i < 10; i++ {
			e.particles[i].Weight = 0.01
		}

		Convey("resampling yields exactly N particles each weighted 1/N", func() {
			e.resample()
			So(len(e.particles), ShouldEqual, 10)
			for _, p := range e.particles {
				So(p.Weight, ShouldAlmostEqual, 0.1, 1e-9)
			}
		})
	})
}

func TestMotionUpdateDropsParticlesOutsideGeofence(t *testing.T) {
	Convey("Given a small geofence and a large move", t, func() {
		hub := bus.NewHub(scheduler.New())
		e := New(hub)
		e.localisation = Continuous
		tight, err := geofence.New([]float64{0, 1, 1, 0, 0}, []float64{0, 0, 1, 1, 0})
		if err != nil {
			t.Fatalf("building geofence: %v", err)
		}
		e.geofence = *tight
		e.startX, e.startY, e.startTheta = 0.5, 0.5, 0
		e.numParticles = 8
		e.initialiseParticles()

		Convey("particles that leave the polygon are dropped", func() {
			e.handleMoveEstimate(bus.NewMoveEstimate(0, 10.0, 0, 0))
			for _, p := range e.Particles() {
				So(e.geofence.InsideGeofence(p.X, p.Y), ShouldBeTrue)
			}
		})
	})
}
