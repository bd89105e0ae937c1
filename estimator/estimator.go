// Package estimator implements the Monte Carlo particle-filter position
// estimator: particles are propagated by odometry estimates, weighted by
// sonar readings against the geofence, and periodically resampled.
package estimator

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"navcore/bus"
	"navcore/config"
	"navcore/geofence"
	"navcore/mathutil"
)

// Particle is a single pose hypothesis with a scalar weight.
type Particle struct {
	X, Y, Theta float64
	Weight      float64
}

// LocalisationMethod selects how particles are seeded.
type LocalisationMethod int

const (
	// Continuous seeds every particle at a single known starting pose.
	Continuous LocalisationMethod = iota
	// Global seeds particles uniformly across the geofence.
	Global
)

// ParseLocalisationMethod converts a configuration string into a
// LocalisationMethod, returning an error for anything else.
func ParseLocalisationMethod(s string) (LocalisationMethod, error) {
	switch strings.ToLower(s) {
	case "continuous":
		return Continuous, nil
	case "global":
		return Global, nil
	default:
		return 0, fmt.Errorf("[MCPositionEstimator]: invalid localisation option %q - must be 'continuous' or 'global'", s)
	}
}

// resampleEveryNReadings controls how often the estimator resamples on sonar
// updates. The source leaves the cadence to the implementer; five balances
// particle diversity against unnecessary resampling noise for the sensor rates
// this core runs at.
const resampleEveryNReadings = 5

// Estimator is the Monte Carlo particle-filter position estimator. It
// consumes MoveEstimate, TurnEstimate, and SonarReading messages and publishes
// NavigationEstimate.
//
// CircularMoveEstimate is intentionally not consumed: see DESIGN.md for the
// resolution of that open design point.
type Estimator struct {
	bus.Publisher

	localisation LocalisationMethod
	startX       float64
	startY       float64
	startTheta   float64
	numParticles int

	geofence geofence.Geofence
	particles []Particle

	readingsSinceResample int
}

// New returns an Estimator that subscribes to hub. Call Initialise before use.
func New(hub *bus.Hub) *Estimator {
	e := &Estimator{Publisher: bus.Publisher{Hub: hub}}
	hub.AddConsumer(e)
	return e
}

// Consumed satisfies bus.Consumer.
func (e *Estimator) Consumed() []bus.MessageID {
	return []bus.MessageID{bus.SonarReadingID, bus.MoveEstimateID, bus.TurnEstimateID}
}

// Receive satisfies bus.Consumer.
func (e *Estimator) Receive(msg bus.Message) {
	switch m := msg.(type) {
	case bus.SonarReading:
		e.handleSonarReading(m)
	case bus.MoveEstimate:
		e.handleMoveEstimate(m)
	case bus.TurnEstimate:
		e.handleTurnEstimate(m)
	}
}

// Initialise loads the [MCPositionEstimator] section, builds the geofence, and
// seeds the initial particle set. Satisfies service.Configurable.
func (e *Estimator) Initialise(conf *config.Configuration) error {
	localisationStr, err := conf.GetString("MCPositionEstimator", "localisation")
	if err != nil {
		return err
	}
	e.localisation, err = ParseLocalisationMethod(localisationStr)
	if err != nil {
		return err
	}

	if e.localisation == Continuous {
		if e.startX, err = conf.GetFloat("MCPositionEstimator", "start_x"); err != nil {
			return err
		}
		if e.startY, err = conf.GetFloat("MCPositionEstimator", "start_y"); err != nil {
			return err
		}
		startHedDeg, err := conf.GetFloat("MCPositionEstimator", "start_hed")
		if err != nil {
			return err
		}
		e.startTheta = startHedDeg * math.Pi / 180
	}

	if e.numParticles, err = conf.GetInt("MCPositionEstimator", "num_particles"); err != nil {
		return err
	}

	if err := e.geofence.Initialise(conf); err != nil {
		return err
	}

	e.initialiseParticles()
	return nil
}

func (e *Estimator) initialiseParticles() {
	e.particles = make([]Particle, e.numParticles)
	weight := 0.0
	if e.numParticles > 0 {
		weight = 1.0 / float64(e.numParticles)
	}

	switch e.localisation {
	case Continuous:
		for i := range e.particles {
			e.particles[i] = Particle{X: e.startX, Y: e.startY, Theta: e.startTheta, Weight: weight}
		}
	case Global:
		positions := e.geofence.GetRandomPositions(e.numParticles)
		for i := range e.particles {
			e.particles[i] = Particle{
				X:      positions[i].X,
				Y:      positions[i].Y,
				Theta:  rand.Float64() * 2 * math.Pi,
				Weight: weight,
			}
		}
	}
}

// handleMoveEstimate propagates every particle by a noisy straight-line move
// and publishes the resulting weighted-mean pose.
func (e *Estimator) handleMoveEstimate(m bus.MoveEstimate) {
	for i := range e.particles {
		p := &e.particles[i]
		distance := rand.NormFloat64()*m.DistanceStd + m.Distance
		p.Theta += rand.NormFloat64() * m.ThetaStd
		p.X += math.Sin(p.Theta) * distance
		p.Y += math.Cos(p.Theta) * distance
	}
	e.dropOutsideGeofence()
	e.publishEstimate()
}

// handleTurnEstimate rotates every particle in place, per the symmetric
// treatment the source's MoveEstimate handler implies for pure rotation.
func (e *Estimator) handleTurnEstimate(m bus.TurnEstimate) {
	for i := range e.particles {
		e.particles[i].Theta += rand.NormFloat64()*m.ThetaStd + m.Theta
	}
	e.publishEstimate()
}

// handleSonarReading reweights every particle by the likelihood of observing
// reading given that particle's pose against the geofence.
func (e *Estimator) handleSonarReading(m bus.SonarReading) {
	for i := range e.particles {
		p := &e.particles[i]
		predicted, normal := e.geofence.DistanceToClosestWall(p.X, p.Y, p.Theta)
		if predicted == 0 && normal == 0 {
			continue
		}
		delta := predicted - m.ReadingM
		likelihood := math.Exp(-(delta*delta)/(2*m.Std*m.Std)) * mathutil.QuantileNormal(normal, 0, m.NormalStd)
		likelihood += m.ConstantStd
		p.Weight *= likelihood
	}
	e.normaliseWeights()

	e.readingsSinceResample++
	if e.readingsSinceResample >= resampleEveryNReadings {
		e.resample()
		e.readingsSinceResample = 0
	}
}

// dropOutsideGeofence removes particles that left the permitted region after a
// motion update, renormalising weights if any were dropped.
func (e *Estimator) dropOutsideGeofence() {
	survivors := e.particles[:0]
	for _, p := range e.particles {
		if e.geofence.InsideGeofence(p.X, p.Y) {
			survivors = append(survivors, p)
		}
	}
	dropped := len(e.particles) != len(survivors)
	e.particles = survivors
	if dropped {
		e.normaliseWeights()
	}
}

// normaliseWeights scales every particle's weight so they sum to 1, or resets
// to a uniform distribution if the total weight has collapsed to zero.
func (e *Estimator) normaliseWeights() {
	total := 0.0
	for _, p := range e.particles {
		total += p.Weight
	}

	if total == 0 {
		uniform := 0.0
		if len(e.particles) > 0 {
			uniform = 1.0 / float64(len(e.particles))
		}
		for i := range e.particles {
			e.particles[i].Weight = uniform
		}
		return
	}

	for i := range e.particles {
		e.particles[i].Weight /= total
	}
}

// resample draws numParticles new particles from the current weighted set via
// cumulative-weight binary search, replacing the particle set wholesale.
func (e *Estimator) resample() {
	n := len(e.particles)
	if n == 0 || e.numParticles <= 0 {
		return
	}

	cumulative := make([]float64, n)
	running := 0.0
	for i, p := range e.particles {
		running += p.Weight
		cumulative[i] = running
	}
	total := cumulative[n-1]

	weight := 1.0 / float64(e.numParticles)
	resampled := make([]Particle, e.numParticles)
	for i := range resampled {
		u := rand.Float64() * total
		idx := sortSearchFloat64(cumulative, u)
		src := e.particles[idx]
		resampled[i] = Particle{X: src.X, Y: src.Y, Theta: src.Theta, Weight: weight}
	}
	e.particles = resampled
}

// sortSearchFloat64 returns the smallest index i such that cumulative[i] >= target.
func sortSearchFloat64(cumulative []float64, target float64) int {
	lo, hi := 0, len(cumulative)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if cumulative[mid] >= target {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// publishEstimate computes the weighted mean pose and delivers it as a
// NavigationEstimate.
func (e *Estimator) publishEstimate() {
	var x, y, theta float64
	for _, p := range e.particles {
		x += p.X * p.Weight
		y += p.Y * p.Weight
		theta += p.Theta * p.Weight
	}
	e.Deliver(bus.NewNavigationEstimate(bus.NowMs(), x, y, theta))
}

// Particles returns a copy of the current particle set, primarily for tests.
func (e *Estimator) Particles() []Particle {
	out := make([]Particle, len(e.particles))
	copy(out, e.particles)
	return out
}
