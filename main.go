// Command navcore runs the two-wheel differential-drive robot's navigation
// and localisation control loop: a single-threaded cooperative task scheduler
// driving a message bus that connects the motor controller, navigator, sonar,
// and Monte Carlo position estimator.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"navcore/bus"
	"navcore/config"
	"navcore/estimator"
	"navcore/geofence"
	"navcore/motor"
	"navcore/navigator"
	"navcore/scheduler"
	"navcore/sim"
	"navcore/sonar"
	"navcore/telemetry"
)

var (
	configPath    = flag.String("config", "./navcore.toml", "path to the TOML configuration file")
	telemetryAddr = flag.String("telemetry-addr", ":8090", "address the telemetry HTTP/websocket server listens on")
)

// queueDepthIntervalMs is how often the scheduler reports its own queue
// length into the telemetry gauge, from within the scheduler goroutine. The
// same task polls for os.Interrupt/SIGTERM, so the resulting TerminateRequest
// is delivered from the scheduler goroutine as well.
const queueDepthIntervalMs = 500

// terminationWatcher cancels a context the first time a TerminateRequest is
// observed, giving every background goroutine (the virtual world, the
// telemetry server) a shutdown signal alongside the scheduler's own natural
// drain-to-empty exit. It also cancels the queue-depth gauge's repeating
// task, which has no service of its own to stop it: left armed, it would
// re-enqueue itself forever and sched.Run would never return.
type terminationWatcher struct {
	cancel    context.CancelFunc
	gaugeTask *scheduler.Handle
}

func (w *terminationWatcher) Consumed() []bus.MessageID {
	return []bus.MessageID{bus.TerminateRequestID}
}

func (w *terminationWatcher) Receive(bus.Message) {
	w.cancel()
	w.gaugeTask.Cancel()
}

// virtualHardware reads the sections the physical motor and sonar drivers
// would otherwise bind to, and builds the kinematic world and driver pair
// standing in for them.
type virtualHardware struct {
	world       *sim.World
	motorDriver *sim.VirtualMotorDriver
	sonarDriver *sim.VirtualSonarDriver
}

func buildVirtualHardware(conf *config.Configuration, gf geofence.Geofence) (*virtualHardware, error) {
	wheelRadius, err := conf.GetFloat("MotorController", "wheel_radius")
	if err != nil {
		return nil, err
	}
	wheelBase, err := conf.GetFloat("MotorController", "wheel_base")
	if err != nil {
		return nil, err
	}
	encoderCps, err := conf.GetInt("MotorController", "encoder_cps")
	if err != nil {
		return nil, err
	}

	leftPortStr, err := conf.GetString("MotorController", "left_motor_port")
	if err != nil {
		return nil, err
	}
	leftPort, err := motor.ParsePort(leftPortStr)
	if err != nil {
		return nil, err
	}
	rightPortStr, err := conf.GetString("MotorController", "right_motor_port")
	if err != nil {
		return nil, err
	}
	rightPort, err := motor.ParsePort(rightPortStr)
	if err != nil {
		return nil, err
	}

	sonarPortStr, err := conf.GetString("Sonar", "sonar_port")
	if err != nil {
		return nil, err
	}
	sonarPort, err := sonar.ParsePort(sonarPortStr)
	if err != nil {
		return nil, err
	}
	offsetX, err := conf.GetFloat("Sonar", "position_x")
	if err != nil {
		return nil, err
	}
	offsetY, err := conf.GetFloat("Sonar", "position_y")
	if err != nil {
		return nil, err
	}

	world := sim.NewWorld(gf, wheelRadius, wheelBase, encoderCps)
	return &virtualHardware{
		world:       world,
		motorDriver: sim.NewVirtualMotorDriver(world, leftPort, rightPort),
		sonarDriver: sim.NewVirtualSonarDriver(world, sonarPort, offsetX, offsetY),
	}, nil
}

func run() error {
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	var gf geofence.Geofence
	if err := gf.Initialise(conf); err != nil {
		return fmt.Errorf("initialising geofence: %w", err)
	}

	hw, err := buildVirtualHardware(conf, gf)
	if err != nil {
		return fmt.Errorf("wiring virtual hardware: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hw.world.Run(ctx.Done())

	sched := scheduler.New()
	hub := bus.NewHub(sched)
	watcher := &terminationWatcher{cancel: cancel}
	hub.AddConsumer(watcher)

	motorController := motor.New(hub, sched, hw.motorDriver)
	nav := navigator.New(hub, sched)
	est := estimator.New(hub)
	sonarService := sonar.New(hub, sched, hw.sonarDriver)

	for _, configurable := range []interface {
		Initialise(conf *config.Configuration) error
	}{motorController, nav, est, sonarService} {
		if err := configurable.Initialise(conf); err != nil {
			return fmt.Errorf("initialising service: %w", err)
		}
	}

	feed := telemetry.NewFeed(hub)
	queueDepth := telemetry.NewQueueDepthGauge()
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	watcher.gaugeTask = sched.Interval(func(*scheduler.Handle) {
		queueDepth.Set(sched.Len())
		select {
		case <-signals:
			hub.Deliver(bus.NewTerminateRequest(bus.NowMs()))
		default:
		}
	}, queueDepthIntervalMs)
	telemetryServer := telemetry.NewServer(*telemetryAddr, feed, queueDepth.Get)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return telemetryServer.Serve(groupCtx) })

	hub.Deliver(bus.NewStartRequest(bus.NowMs()))
	sched.Run()
	cancel()

	if err := group.Wait(); err != nil {
		log.Printf("telemetry server: %v", err)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}
