// Package geofence implements the polygon geometry the estimator uses to keep
// particles inside the robot's permitted region and to predict sonar returns.
package geofence

import (
	"math"
	"math/rand"

	"navcore/config"
)

// Point is a 2-D coordinate in the world frame.
type Point struct {
	X, Y float64
}

// Geofence is a closed, simple polygon defining the robot's permitted region,
// together with its precomputed axis-aligned bounding box.
type Geofence struct {
	points             []Point
	minX, maxX         float64
	minY, maxY         float64
}

// New builds a Geofence from equal-length coordinate slices. pointsX[0] must
// equal pointsX[len-1] (and likewise for y): the polygon must already be
// closed.
func New(pointsX, pointsY []float64) (*Geofence, error) {
	if len(pointsX) != len(pointsY) {
		return nil, &geofenceError{"points_x and points_y must be the same length"}
	}
	if len(pointsX) == 0 || pointsX[0] != pointsX[len(pointsX)-1] || pointsY[0] != pointsY[len(pointsY)-1] {
		return nil, errClosedPolygon
	}

	g := &Geofence{points: make([]Point, len(pointsX))}
	for i := range pointsX {
		g.points[i] = Point{X: pointsX[i], Y: pointsY[i]}
	}
	g.minX, g.maxX = pointsX[0], pointsX[0]
	g.minY, g.maxY = pointsY[0], pointsY[0]
	for _, p := range g.points {
		g.minX = math.Min(g.minX, p.X)
		g.maxX = math.Max(g.maxX, p.X)
		g.minY = math.Min(g.minY, p.Y)
		g.maxY = math.Max(g.maxY, p.Y)
	}
	return g, nil
}

var errClosedPolygon = &geofenceError{"geofence points must define a closed polygon"}

type geofenceError struct{ msg string }

func (e *geofenceError) Error() string { return e.msg }

// Initialise loads the polygon from the [Geofence] section of conf, satisfying
// service.Configurable.
func (g *Geofence) Initialise(conf *config.Configuration) error {
	pointsX, err := conf.GetFloatList("Geofence", "points_x")
	if err != nil {
		return err
	}
	pointsY, err := conf.GetFloatList("Geofence", "points_y")
	if err != nil {
		return err
	}
	built, err := New(pointsX, pointsY)
	if err != nil {
		return err
	}
	*g = *built
	return nil
}

// InsideGeofence reports whether (x,y) lies inside the polygon, using a
// bounding-box reject followed by a horizontal +x ray-cast. Boundary points
// count as inside.
func (g *Geofence) InsideGeofence(x, y float64) bool {
	if x < g.minX || x > g.maxX || y < g.minY || y > g.maxY {
		return false
	}

	intersections := 0
	for i := 0; i < len(g.points)-1; i++ {
		x1, y1 := g.points[i].X, g.points[i].Y
		x2, y2 := g.points[i+1].X, g.points[i+1].Y

		if y >= math.Min(y1, y2) && y <= math.Max(y1, y2) && x <= math.Max(x1, x2) {
			var xIntersect float64
			if y1 != y2 {
				xIntersect = (y-y1)*(x2-x1)/(y2-y1) + x1
			} else {
				xIntersect = math.Min(x1, x2)
			}
			if x <= xIntersect {
				intersections++
			}
		}
	}
	return intersections%2 == 1
}

// DistanceToClosestWall casts a ray from (x,y) with unit direction
// (sin theta, cos theta) and returns the distance to the nearest wall it hits
// and the angle between the ray and that wall's normal. It returns (0, 0) if
// no wall is hit in front of the ray; callers must treat that as "unknown",
// not as a genuine zero-distance reading.
func (g *Geofence) DistanceToClosestWall(x, y, theta float64) (distance, normalAngle float64) {
	minDistance := math.Inf(1)
	index := -1

	sinT, cosT := math.Sin(theta), math.Cos(theta)
	for i := 0; i < len(g.points)-1; i++ {
		x1, y1 := g.points[i].X, g.points[i].Y
		x2, y2 := g.points[i+1].X, g.points[i+1].Y

		denominator := (y2-y1)*sinT - (x2-x1)*cosT
		if math.Abs(denominator) < 1e-9 {
			continue
		}

		numerator := (y2-y1)*(x1-x) - (x2-x1)*(y1-y)
		m := numerator / denominator
		if m > 0 && m < minDistance {
			minDistance = m
			index = i
		}
	}

	if index < 0 {
		return 0, 0
	}
	return minDistance, normalAngleToWall(theta, g.points[index], g.points[index+1])
}

// normalAngleToWall returns the angle between the incidence angle theta and the
// normal of the wall running from vertex1 to vertex2.
func normalAngleToWall(theta float64, vertex1, vertex2 Point) float64 {
	x1, y1 := vertex1.X, vertex1.Y
	x2, y2 := vertex2.X, vertex2.Y

	denominator := math.Sqrt((y1-y2)*(y1-y2) + (x2-x1)*(x2-x1))
	numerator := math.Cos(theta)*(y1-y2) + math.Sin(theta)*(x2-x1)

	dot := numerator / denominator
	if dot > 1.0 {
		dot = 1.0
	} else if dot < -1.0 {
		dot = -1.0
	}
	return math.Acos(dot)
}

// GetRandomPosition rejection-samples a uniformly-distributed point inside the
// polygon's bounding box until it lands inside the polygon.
func (g *Geofence) GetRandomPosition() (x, y float64) {
	for {
		x = g.minX + rand.Float64()*(g.maxX-g.minX)
		y = g.minY + rand.Float64()*(g.maxY-g.minY)
		if g.InsideGeofence(x, y) {
			return x, y
		}
	}
}

// GetRandomPositions returns n independently-sampled random points inside the
// polygon.
func (g *Geofence) GetRandomPositions(n int) []Point {
	points := make([]Point, n)
	for i := range points {
		x, y := g.GetRandomPosition()
		points[i] = Point{X: x, Y: y}
	}
	return points
}
