// Package bus implements the in-process publish/subscribe message hub that
// connects every service in the robot control core.
package bus

// MessageID is a stable small integer identifying a message kind. Equality and
// subscription indexing both key off this value alone.
type MessageID int

const (
	SonarReadingID MessageID = iota
	NavigationEstimateID
	MoveEstimateID
	TurnEstimateID
	CircularMoveEstimateID
	MoveRequestID
	StartRequestID
	TerminateRequestID
)

// Message is the common interface every payload type satisfies.
type Message interface {
	ID() MessageID
	TimestampMs() int64
}

// base carries the fields common to every message: its kind and creation time.
// Messages are immutable after publication; base is copied by value into each
// payload struct's embedding.
type base struct {
	id        MessageID
	timestamp int64
}

func (b base) ID() MessageID      { return b.id }
func (b base) TimestampMs() int64 { return b.timestamp }

func newBase(id MessageID, nowMs int64) base {
	return base{id: id, timestamp: nowMs}
}

// SonarReading reports a single range measurement and its noise model.
type SonarReading struct {
	base
	ReadingM     float64
	Std          float64
	ConstantStd  float64
	NormalStd    float64
}

// NewSonarReading constructs a SonarReading timestamped at nowMs.
func NewSonarReading(nowMs int64, readingM, std, constantStd, normalStd float64) SonarReading {
	return SonarReading{base: newBase(SonarReadingID, nowMs), ReadingM: readingM, Std: std, ConstantStd: constantStd, NormalStd: normalStd}
}

// MoveEstimate is an incremental straight-line odometry estimate.
type MoveEstimate struct {
	base
	Distance    float64
	DistanceStd float64
	ThetaStd    float64
}

// NewMoveEstimate constructs a MoveEstimate timestamped at nowMs.
func NewMoveEstimate(nowMs int64, distance, distanceStd, thetaStd float64) MoveEstimate {
	return MoveEstimate{base: newBase(MoveEstimateID, nowMs), Distance: distance, DistanceStd: distanceStd, ThetaStd: thetaStd}
}

// TurnEstimate is an incremental pure-rotation odometry estimate.
type TurnEstimate struct {
	base
	Theta    float64
	ThetaStd float64
}

// NewTurnEstimate constructs a TurnEstimate timestamped at nowMs.
func NewTurnEstimate(nowMs int64, theta, thetaStd float64) TurnEstimate {
	return TurnEstimate{base: newBase(TurnEstimateID, nowMs), Theta: theta, ThetaStd: thetaStd}
}

// CircularMoveEstimate is an incremental arc-motion odometry estimate.
type CircularMoveEstimate struct {
	base
	Radius    float64
	Angle     float64
	RadiusStd float64
	ThetaStd  float64
}

// NewCircularMoveEstimate constructs a CircularMoveEstimate timestamped at nowMs.
func NewCircularMoveEstimate(nowMs int64, radius, angle, radiusStd, thetaStd float64) CircularMoveEstimate {
	return CircularMoveEstimate{base: newBase(CircularMoveEstimateID, nowMs), Radius: radius, Angle: angle, RadiusStd: radiusStd, ThetaStd: thetaStd}
}

// NavigationEstimate is the estimator's published belief about the robot's pose.
type NavigationEstimate struct {
	base
	X     float64
	Y     float64
	Theta float64
}

// NewNavigationEstimate constructs a NavigationEstimate timestamped at nowMs.
func NewNavigationEstimate(nowMs int64, x, y, theta float64) NavigationEstimate {
	return NavigationEstimate{base: newBase(NavigationEstimateID, nowMs), X: x, Y: y, Theta: theta}
}

// MoveRequest asks the motor controller to drive toward an absolute world heading.
type MoveRequest struct {
	base
	Theta    float64
	Distance float64
}

// NewMoveRequest constructs a MoveRequest timestamped at nowMs.
func NewMoveRequest(nowMs int64, theta, distance float64) MoveRequest {
	return MoveRequest{base: newBase(MoveRequestID, nowMs), Theta: theta, Distance: distance}
}

// StartRequest activates every service subscribed to it.
type StartRequest struct{ base }

// NewStartRequest constructs a StartRequest timestamped at nowMs.
func NewStartRequest(nowMs int64) StartRequest {
	return StartRequest{base: newBase(StartRequestID, nowMs)}
}

// TerminateRequest stops every service subscribed to it and, conventionally,
// ends the program once the task queue drains.
type TerminateRequest struct{ base }

// NewTerminateRequest constructs a TerminateRequest timestamped at nowMs.
func NewTerminateRequest(nowMs int64) TerminateRequest {
	return TerminateRequest{base: newBase(TerminateRequestID, nowMs)}
}
