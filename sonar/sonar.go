package sonar

import (
	"navcore/bus"
	"navcore/config"
	"navcore/scheduler"
)

// Sonar is the ranging-sensor service. It holds no consumed estimates — it
// only reads its driver on an interval and publishes SonarReading — but still
// subscribes to the lifecycle messages like every other Service.
type Sonar struct {
	bus.Publisher

	sched  *scheduler.Scheduler
	driver Driver

	emitHandle *scheduler.Handle

	intervalMs int
	port       Port

	std         float64
	constantStd float64
	normalStd   float64

	positionX, positionY float64
}

// New returns a Sonar that subscribes to hub and schedules its periodic task
// on sched. Call Initialise before use.
func New(hub *bus.Hub, sched *scheduler.Scheduler, driver Driver) *Sonar {
	s := &Sonar{Publisher: bus.Publisher{Hub: hub}, sched: sched, driver: driver}
	hub.AddConsumer(s)
	return s
}

// Consumed satisfies bus.Consumer.
func (s *Sonar) Consumed() []bus.MessageID {
	return []bus.MessageID{bus.StartRequestID, bus.TerminateRequestID}
}

// Receive satisfies bus.Consumer.
func (s *Sonar) Receive(msg bus.Message) {
	switch msg.(type) {
	case bus.StartRequest:
		s.Start()
	case bus.TerminateRequest:
		s.Stop()
	}
}

// Initialise loads the [Sonar] section of conf and arms the driver's sensor
// type. Satisfies service.Configurable.
func (s *Sonar) Initialise(conf *config.Configuration) error {
	s.Stop()

	var err error
	if s.intervalMs, err = conf.GetInt("Sonar", "interval_ms"); err != nil {
		return err
	}
	if s.std, err = conf.GetFloat("Sonar", "std"); err != nil {
		return err
	}
	if s.constantStd, err = conf.GetFloat("Sonar", "constant_std"); err != nil {
		return err
	}
	if s.normalStd, err = conf.GetFloat("Sonar", "normal_std"); err != nil {
		return err
	}

	portStr, err := conf.GetString("Sonar", "sonar_port")
	if err != nil {
		return err
	}
	if s.port, err = ParsePort(portStr); err != nil {
		return err
	}
	s.driver.SetSensorType(s.port, Ultrasonic)

	if s.positionX, err = conf.GetFloat("Sonar", "position_x"); err != nil {
		return err
	}
	if s.positionY, err = conf.GetFloat("Sonar", "position_y"); err != nil {
		return err
	}

	return nil
}

// Start begins the periodic read-and-emit task, first stopping any prior
// activation.
func (s *Sonar) Start() {
	s.Stop()
	s.emitHandle = s.sched.Interval(func(*scheduler.Handle) { s.readAndEmit() }, int64(s.intervalMs))
}

// Stop cancels the periodic read-and-emit task, if running.
func (s *Sonar) Stop() {
	if s.emitHandle != nil {
		s.emitHandle.Cancel()
		s.emitHandle = nil
	}
}

// readAndEmit reads the driver and publishes a SonarReading, skipping the tick
// silently if no reading is currently available.
func (s *Sonar) readAndEmit() {
	readingM, ok := s.driver.Read(s.port)
	if !ok {
		return
	}
	s.Deliver(bus.NewSonarReading(bus.NowMs(), readingM, s.std, s.constantStd, s.normalStd))
}
