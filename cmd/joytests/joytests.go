package main

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/tigerbot-team/tigerbot/pantilt/pkg/config"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/joystick"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/sharedstate"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/supervisor"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/tunable"
)

// Prints joystick events and the gain changes they would make, starting from the default
// gains.  Nothing is moved.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hook Ctrl-C etc.
	go supervisor.WatchSignals(ctx, cancel, syscall.SIGTERM, syscall.SIGINT)

	jDev := os.Getenv("JOYSTICK_DEVICE")
	if jDev == "" {
		jDev = "/dev/input/js0"
	}

	cfg := config.Default()
	state := &sharedstate.State{}
	state.Init(cfg.Pan.Gains(), cfg.Tilt.Gains())

	tuner := tunable.NewTuner(jDev, tunable.ForGains(state, cfg.TuneStep))
	open := tuner.Open
	tuner.Open = func(device string) (*joystick.Joystick, error) {
		j, err := open(device)
		if err == nil {
			fmt.Printf("Opened joystick %s\n", device)
		}
		return j, err
	}
	_ = tuner.Run(ctx)

	pp, pi, pd := state.PanGains.Load()
	tp, ti, td := state.TiltGains.Load()
	fmt.Printf("pan:  {p: %.4f, i: %.4f, d: %.4f}\n", pp, pi, pd)
	fmt.Printf("tilt: {p: %.4f, i: %.4f, d: %.4f}\n", tp, ti, td)
}
