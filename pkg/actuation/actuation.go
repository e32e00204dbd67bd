// Package actuation turns the controllers' latest outputs into servo commands.
package actuation

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerbot-team/tigerbot/pantilt/pkg/servo"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/sharedstate"
)

const (
	DefaultInterval  = 20 * time.Millisecond
	DefaultMaxErrors = 10
)

type Loop struct {
	State  *sharedstate.State
	Driver servo.Driver
	Range  servo.Range

	// The camera is mounted upside down on both axes, so outputs are negated by default.
	InvertPan, InvertTilt bool

	Interval time.Duration
	// Number of consecutive cycles with a driver error before the loop gives up.
	MaxErrors int

	failedCycles int
}

func New(state *sharedstate.State, driver servo.Driver, r servo.Range) *Loop {
	return &Loop{
		State:      state,
		Driver:     driver,
		Range:      r,
		InvertPan:  true,
		InvertTilt: true,
		Interval:   DefaultInterval,
		MaxErrors:  DefaultMaxErrors,
	}
}

func (l *Loop) Name() string {
	return "actuation"
}

func (l *Loop) Run(ctx context.Context) error {
	fmt.Println("Actuation loop started, range", l.Range)
	defer fmt.Println("Actuation loop exited")

	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		// Don't move anything once we've been asked to stop.
		if ctx.Err() != nil {
			return nil
		}
		if err := l.Step(); err != nil {
			return err
		}
	}
}

// Angle applies the mount inversion to a controller output.
func Angle(output float64, invert bool) float64 {
	if invert {
		return -1 * output
	}
	return output
}

// Step reads both outputs and commands each servo whose angle is inside the range.  An
// out-of-range angle is skipped for this cycle, the servo keeps its last position.
func (l *Loop) Step() error {
	commands := [...]struct {
		axis  servo.Axis
		angle float64
	}{
		{servo.Pan, Angle(l.State.PanOutput.Load(), l.InvertPan)},
		{servo.Tilt, Angle(l.State.TiltOutput.Load(), l.InvertTilt)},
	}

	var cycleErr error
	for _, c := range commands {
		if !l.Range.Contains(c.angle) {
			continue
		}
		if err := l.Driver.SetAngle(c.axis, c.angle); err != nil {
			fmt.Printf("Actuation: failed to set %v to %.1f: %v\n", c.axis, c.angle, err)
			cycleErr = err
		}
	}

	if cycleErr == nil {
		l.failedCycles = 0
		return nil
	}
	l.failedCycles++
	maxErrors := l.MaxErrors
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrors
	}
	if l.failedCycles >= maxErrors {
		return fmt.Errorf("servo driver failed %d cycles in a row: %w", l.failedCycles, cycleErr)
	}
	return nil
}
