package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/tigerbot-team/tigerbot/pantilt/pkg/actuation"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/camera"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/config"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/maestro"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/pantilthat"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/pca9685"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/perception"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/pid"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/screen"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/servo"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/sharedstate"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/sound"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/supervisor"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/tunable"
)

func main() {
	app := cli.NewApp()
	app.Name = "pantilt"
	app.Usage = "keep a detected face centred with a pan/tilt camera"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "cascade, c",
			Usage: "path to the Haar cascade XML used for detection",
		},
		cli.StringFlag{
			Name:  "config",
			Value: config.DefaultPath,
			Usage: "YAML config file; missing means defaults",
		},
		cli.StringFlag{
			Name:  "driver",
			Usage: "servo driver: pantilthat, pca9685, maestro or dummy",
		},
		cli.StringFlag{
			Name:  "video",
			Usage: "read frames from a video file instead of the camera",
		},
		cli.BoolFlag{
			Name:  "no-window",
			Usage: "don't show the annotated video",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Println("pantilt:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	fmt.Println("---- Pan/Tilt ----")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	cfgPath := c.String("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if v := c.String("cascade"); v != "" {
		cfg.Cascade = v
	}
	if v := c.String("driver"); v != "" {
		cfg.Driver.Kind = v
	}
	if c.Bool("no-window") {
		cfg.Camera.ShowWindow = false
	}
	if err := cfg.Validate(); err != nil {
		return cli.NewExitError(err.Error(), 2)
	}
	if err := cfg.WriteInUse(config.InUsePath(cfgPath)); err != nil {
		fmt.Println("Failed to record config in use:", err)
	}

	driver, err := openDriver(cfg.Driver)
	if err != nil {
		return err
	}
	defer driver.Close()

	var source interface {
		perception.Source
		Close() error
	}
	if video := c.String("video"); video != "" {
		source, err = camera.OpenFile(video)
	} else {
		source, err = camera.Open(cfg.Camera.Device)
	}
	if err != nil {
		return err
	}
	defer source.Close()

	cascade, err := camera.NewCascade(cfg.Cascade)
	if err != nil {
		return err
	}
	defer cascade.Close()

	state := &sharedstate.State{}
	perceiver := &perception.Loop{
		Source:   source,
		Detector: cascade,
		State:    state,
	}
	if cfg.Camera.Flip {
		perceiver.Reorienter = camera.Flipper{Code: cfg.Camera.FlipCode}
	}
	if cfg.Camera.ShowWindow {
		w := camera.NewWindow("Pan/Tilt")
		defer w.Close()
		perceiver.Display = w
	}

	units := []supervisor.Unit{perceiver}
	for _, axis := range []struct {
		name  string
		cells sharedstate.AxisCells
	}{
		{"pan", state.Pan()},
		{"tilt", state.Tilt()},
	} {
		law, err := pid.NewLaw(cfg.Law)
		if err != nil {
			return err
		}
		units = append(units, pid.NewController(axis.name, axis.cells, law, cfg.ControlInterval))
	}

	act := actuation.New(state, driver, cfg.Range())
	act.InvertPan = cfg.Pan.Invert
	act.InvertTilt = cfg.Tilt.Invert
	act.Interval = cfg.ActuationInterval
	act.MaxErrors = cfg.MaxServoErrors
	units = append(units, act)

	if cfg.ScreenDevice != "" {
		units = append(units, &screen.Display{Device: cfg.ScreenDevice, State: state})
	}
	if cfg.JoystickDevice != "" {
		units = append(units, tunable.NewTuner(cfg.JoystickDevice, tunable.ForGains(state, cfg.TuneStep)))
	}

	sup := &supervisor.Supervisor{
		Driver:        driver,
		State:         state,
		PanGains:      cfg.Pan.Gains(),
		TiltGains:     cfg.Tilt.Gains(),
		Units:         units,
		StartupSound:  cfg.StartupSound,
		ShutdownSound: cfg.ShutdownSound,
	}
	if cfg.StartupSound != "" || cfg.ShutdownSound != "" {
		player := sound.New()
		defer player.Close()
		sup.Announcer = player
	}

	// Hook Ctrl-C to cause shut down.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go supervisor.WatchSignals(ctx, sup.Stop, syscall.SIGTERM, syscall.SIGINT)

	if err := sup.Run(ctx); err != nil {
		return errors.Wrap(err, "tracking stopped on a fault")
	}
	return nil
}

func openDriver(cfg config.DriverConfig) (servo.Driver, error) {
	switch cfg.Kind {
	case config.DriverHAT:
		return pantilthat.New(cfg.I2CBus)
	case config.DriverPCA:
		bus := cfg.I2CBus
		if bus == "" {
			bus = "/dev/i2c-1"
		}
		board, err := pca9685.New(bus)
		if err != nil {
			return nil, errors.Wrap(err, "opening PCA9685")
		}
		if err := board.Configure(); err != nil {
			board.Close()
			return nil, errors.Wrap(err, "configuring PCA9685")
		}
		return pca9685.NewServos(board, cfg.PanChannel, cfg.TiltChannel), nil
	case config.DriverSerial:
		return maestro.Open(cfg.SerialPort, cfg.BaudRate, cfg.PanChannel, cfg.TiltChannel)
	case config.DriverDummy:
		return servo.Dummy(), nil
	}
	return nil, errors.Errorf("unknown servo driver %q", cfg.Kind)
}
