package mathutil

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDistance(t *testing.T) {
	Convey("Given two points", t, func() {
		Convey("Distance matches a 3-4-5 triangle and is zero for coincident points", func() {
			So(Distance(0, 0, 3, 4), ShouldEqual, 5)
			So(Distance(1, 1, 1, 1), ShouldEqual, 0)
		})
	})
}

func TestSignedAngleBetween(t *testing.T) {
	Convey("Given canonical axis vectors", t, func() {
		Convey("(1,0) to (0,1) is -pi/2", func() {
			So(SignedAngleBetween(1, 0, 0, 1), ShouldAlmostEqual, -math.Pi/2, 1e-9)
		})
		Convey("(0,1) to (1,0) is +pi/2", func() {
			So(SignedAngleBetween(0, 1, 1, 0), ShouldAlmostEqual, math.Pi/2, 1e-9)
		})
		Convey("an off-axis pair matches the worked example", func() {
			So(SignedAngleBetween(0.1, 1.0, 0.3, -0.3), ShouldAlmostEqual, 2.2565, 1e-3)
		})
	})
}

func TestQuantileNormal(t *testing.T) {
	Convey("Given a standard normal", t, func() {
		Convey("the median maps to the mean", func() {
			So(QuantileNormal(0.5, 0, 1), ShouldAlmostEqual, 0, 1e-6)
		})
		Convey("out-of-range probabilities saturate instead of producing NaN/Inf", func() {
			So(math.IsNaN(QuantileNormal(-1, 0, 1)), ShouldBeFalse)
			So(math.IsInf(QuantileNormal(2, 0, 1), 0), ShouldBeFalse)
		})
	})
}
