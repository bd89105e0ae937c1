package motor

import (
	"math"
	"time"

	"navcore/bus"
	"navcore/config"
	"navcore/scheduler"
)

// degreeInRadians is the motor controller's heading-alignment tolerance: a
// move request whose heading is within one degree of the current estimate is
// treated as a straight move rather than a turn.
const degreeInRadians = math.Pi / 180

// Controller consumes NavigationEstimate and MoveRequest, and periodically
// emits odometry estimates and wheel-encoder commands.
type Controller struct {
	bus.Publisher

	sched  *scheduler.Scheduler
	driver Driver

	navEstimate  *bus.NavigationEstimate
	moveRequest  *bus.MoveRequest
	emitHandle   *scheduler.Handle
	commandHandle *scheduler.Handle

	emitIntervalMs    int
	commandIntervalMs int

	leftPort, rightPort Port

	maxPower, maxDps float64
	encoderCps       int
	wheelRadius      float64
	wheelBase        float64

	turnEncoderA, turnEncoderB float64
	moveEncoderA, moveEncoderB float64

	turnStdA, turnStdB   float64
	moveStdA, moveStdB   float64
	radiusStdA, radiusStdB float64

	leftEncoder, rightEncoder int

	lastTime, thisTime time.Time
}

// New returns a Controller that subscribes to hub and schedules its periodic
// tasks on sched. Call Initialise before Start.
func New(hub *bus.Hub, sched *scheduler.Scheduler, driver Driver) *Controller {
	c := &Controller{Publisher: bus.Publisher{Hub: hub}, sched: sched, driver: driver}
	hub.AddConsumer(c)
	return c
}

// Consumed satisfies bus.Consumer.
func (c *Controller) Consumed() []bus.MessageID {
	return []bus.MessageID{bus.NavigationEstimateID, bus.MoveRequestID, bus.StartRequestID, bus.TerminateRequestID}
}

// Receive satisfies bus.Consumer.
func (c *Controller) Receive(msg bus.Message) {
	switch m := msg.(type) {
	case bus.NavigationEstimate:
		c.navEstimate = &m
	case bus.MoveRequest:
		c.moveRequest = &m
	case bus.StartRequest:
		c.Start()
	case bus.TerminateRequest:
		c.Stop()
	}
}

// Initialise loads the [MotorController] section of conf and resets the
// driver's encoders. Satisfies service.Configurable.
func (c *Controller) Initialise(conf *config.Configuration) error {
	c.Stop()

	var err error
	if c.emitIntervalMs, err = conf.GetInt("MotorController", "emit_interval_ms"); err != nil {
		return err
	}
	if c.commandIntervalMs, err = conf.GetInt("MotorController", "command_interval_ms"); err != nil {
		return err
	}

	leftPortStr, err := conf.GetString("MotorController", "left_motor_port")
	if err != nil {
		return err
	}
	if c.leftPort, err = ParsePort(leftPortStr); err != nil {
		return err
	}
	rightPortStr, err := conf.GetString("MotorController", "right_motor_port")
	if err != nil {
		return err
	}
	if c.rightPort, err = ParsePort(rightPortStr); err != nil {
		return err
	}

	if c.maxPower, err = conf.GetFloat("MotorController", "max_power"); err != nil {
		return err
	}
	if c.maxDps, err = conf.GetFloat("MotorController", "max_dps"); err != nil {
		return err
	}

	c.driver.SetMotorLimits(c.leftPort, c.maxPower, c.maxDps)
	c.driver.SetMotorLimits(c.rightPort, c.maxPower, c.maxDps)
	c.driver.ResetMotorEncoder(c.leftPort)
	c.driver.ResetMotorEncoder(c.rightPort)
	c.leftEncoder, c.rightEncoder = 0, 0

	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"turn_encoder_a", &c.turnEncoderA}, {"turn_encoder_b", &c.turnEncoderB},
		{"move_encoder_a", &c.moveEncoderA}, {"move_encoder_b", &c.moveEncoderB},
		{"wheel_radius", &c.wheelRadius}, {"wheel_base", &c.wheelBase},
		{"turn_std_a", &c.turnStdA}, {"move_std_a", &c.moveStdA}, {"move_std_b", &c.moveStdB},
		{"radius_std_a", &c.radiusStdA}, {"radius_std_b", &c.radiusStdB},
	} {
		v, err := conf.GetFloat("MotorController", f.name)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	turnStdBDeg, err := conf.GetFloat("MotorController", "turn_std_b")
	if err != nil {
		return err
	}
	c.turnStdB = turnStdBDeg * math.Pi / 180

	if c.encoderCps, err = conf.GetInt("MotorController", "encoder_cps"); err != nil {
		return err
	}

	c.lastTime = time.Now()
	c.thisTime = time.Now()
	return nil
}

// Start begins the periodic emit and command tasks, first stopping any prior
// activation.
func (c *Controller) Start() {
	c.Stop()
	c.emitHandle = c.sched.Interval(func(*scheduler.Handle) { c.emitMoveEstimate() }, int64(c.emitIntervalMs))
	c.commandHandle = c.sched.Interval(func(*scheduler.Handle) { c.emitCommand() }, int64(c.commandIntervalMs))
}

// Stop cancels the periodic emit and command tasks, if running.
func (c *Controller) Stop() {
	if c.emitHandle != nil {
		c.emitHandle.Cancel()
		c.emitHandle = nil
	}
	if c.commandHandle != nil {
		c.commandHandle.Cancel()
		c.commandHandle = nil
	}
}

// emitMoveEstimate reads both encoders, classifies the motion since the last
// read as a turn, a straight move, or an arc, and publishes the matching
// odometry estimate.
func (c *Controller) emitMoveEstimate() {
	leftEncoder, ok := c.driver.GetMotorEncoder(c.leftPort)
	if !ok {
		return
	}
	rightEncoder, ok := c.driver.GetMotorEncoder(c.rightPort)
	if !ok {
		return
	}

	c.lastTime = c.thisTime
	c.thisTime = time.Now()

	leftDiff := float64(leftEncoder - c.leftEncoder)
	rightDiff := float64(rightEncoder - c.rightEncoder)
	c.leftEncoder = leftEncoder
	c.rightEncoder = rightEncoder

	deltaTheta := (2.0 * c.wheelRadius * math.Pi) * (rightDiff - leftDiff) / float64(c.encoderCps)

	switch {
	case math.Abs(leftDiff+rightDiff) <= 5.0:
		c.Deliver(bus.NewTurnEstimate(bus.NowMs(), deltaTheta, deltaTheta*c.turnStdA+c.turnStdB))
	case math.Abs(leftDiff-rightDiff) <= 5.0:
		encoderTurns := (leftDiff + rightDiff) / 2.0
		distance := 2.0 * c.wheelRadius * math.Pi * encoderTurns / float64(c.encoderCps)
		c.Deliver(bus.NewMoveEstimate(bus.NowMs(), distance, distance*c.moveStdA+c.moveStdB, deltaTheta*c.turnStdA+c.turnStdB))
	default:
		elapsed := c.thisTime.Sub(c.lastTime).Seconds()
		if elapsed == 0 {
			return
		}
		vr := rightDiff / elapsed
		vl := leftDiff / elapsed
		if vr == vl {
			return
		}
		radius := c.wheelBase * (vr + vl) / (2.0 * (vr - vl))
		c.Deliver(bus.NewCircularMoveEstimate(bus.NowMs(), radius, deltaTheta, radius*c.radiusStdA+c.radiusStdB, deltaTheta*c.turnStdA+c.turnStdB))
	}
}

// emitCommand issues the wheel-encoder targets needed to satisfy the latest
// MoveRequest given the latest NavigationEstimate, skipping the tick if either
// is unknown or the encoders cannot currently be read.
func (c *Controller) emitCommand() {
	if c.navEstimate == nil || c.moveRequest == nil {
		return
	}

	leftEncoder, ok := c.driver.GetMotorEncoder(c.leftPort)
	if !ok {
		return
	}
	rightEncoder, ok := c.driver.GetMotorEncoder(c.rightPort)
	if !ok {
		return
	}

	currentHeading := c.navEstimate.Theta
	requestedHeading := c.moveRequest.Theta

	if math.Abs(currentHeading-requestedHeading) > degreeInRadians {
		c.requestTurn(leftEncoder, rightEncoder)
	} else {
		c.requestMove(leftEncoder, rightEncoder)
	}
}

// requestTurn issues equal-and-opposite wheel-encoder targets to rotate the
// robot in place toward the requested heading.
func (c *Controller) requestTurn(leftEncoder, rightEncoder int) {
	angleToTurn := c.moveRequest.Theta - c.navEstimate.Theta
	distance := angleToTurn * c.wheelBase / 2.0
	encoderTurns := float64(c.encoderCps) * distance / (2.0 * c.wheelRadius * math.Pi)
	encoderTurns = math.Round(encoderTurns*c.turnEncoderA + c.turnEncoderB)
	c.driver.SetMotorPosition(c.leftPort, leftEncoder+int(encoderTurns))
	c.driver.SetMotorPosition(c.rightPort, rightEncoder-int(encoderTurns))
}

// requestMove issues matching wheel-encoder targets to advance both wheels the
// same distance. Straight-move scaling uses move_encoder_a/b, the fields the
// configuration schema defines for exactly this purpose (see DESIGN.md).
func (c *Controller) requestMove(leftEncoder, rightEncoder int) {
	distance := c.moveRequest.Distance
	encoderTurns := float64(c.encoderCps) * distance / (2.0 * c.wheelRadius * math.Pi)
	encoderTurns = math.Round(encoderTurns*c.moveEncoderA + c.moveEncoderB)
	c.driver.SetMotorPosition(c.leftPort, leftEncoder+int(encoderTurns))
	c.driver.SetMotorPosition(c.rightPort, rightEncoder+int(encoderTurns))
}
