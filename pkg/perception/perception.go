// Package perception turns camera frames into target and centre coordinates.
//
// The camera, the detector and any on-screen display are pluggable; see pkg/camera for
// the OpenCV-backed ones.
package perception

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime/debug"

	"github.com/tigerbot-team/tigerbot/pantilt/pkg/sharedstate"
)

// ErrNoFrame is returned by a Source when a read produced nothing usable but the source
// is still healthy.  The loop just moves on to the next frame.
var ErrNoFrame = errors.New("no frame available")

type Frame interface {
	Size() image.Point
	Close() error
}

type Source interface {
	// Next blocks until a frame is available or ctx is done.
	Next(ctx context.Context) (Frame, error)
}

// Reorienter applies a fixed geometric fix-up, e.g. for a camera mounted upside down.
type Reorienter interface {
	Reorient(f Frame) error
}

type Detection struct {
	Target image.Point
	Region image.Rectangle
}

type Detector interface {
	// Detect returns found=false when there is no target in the frame.  That is not an
	// error.
	Detect(f Frame, center image.Point) (det Detection, found bool, err error)
}

type Display interface {
	// Show is given the detection for this frame, or nil.
	Show(f Frame, det *Detection)
}

type Loop struct {
	Source     Source
	Detector   Detector
	Reorienter Reorienter
	Display    Display
	State      *sharedstate.State
}

func (l *Loop) Name() string {
	return "perception"
}

// Run processes frames until ctx is cancelled or the source fails.
func (l *Loop) Run(ctx context.Context) error {
	fmt.Println("Perception loop started")
	defer fmt.Println("Perception loop exited")

	for ctx.Err() == nil {
		if err := l.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return nil
}

// Step handles one frame.  Only source failures are returned; everything else is turned
// into an idle cycle.
func (l *Loop) Step(ctx context.Context) error {
	frame, err := l.Source.Next(ctx)
	if errors.Is(err, ErrNoFrame) {
		return nil
	} else if err != nil {
		return fmt.Errorf("frame source failed: %w", err)
	}
	defer frame.Close()

	if l.Reorienter != nil {
		if !guard("reorienter", func() { err = l.Reorienter.Reorient(frame) }) {
			return nil
		}
		if err != nil {
			fmt.Println("Perception: failed to reorient frame:", err)
			return nil
		}
	}

	size := frame.Size()
	center := image.Pt(size.X/2, size.Y/2)
	l.State.CenterX.Store(center.X)
	l.State.CenterY.Store(center.Y)

	det, found := l.detect(frame, center)
	if found {
		l.State.TargetX.Store(det.Target.X)
		l.State.TargetY.Store(det.Target.Y)
	}
	// On a miss the target cells keep the last known position so the controllers carry on
	// towards it.

	if l.Display != nil {
		var shown *Detection
		if found {
			shown = &det
		}
		guard("display", func() { l.Display.Show(frame, shown) })
	}
	return nil
}

// guard runs fn, turning a panic into a logged failure.  It reports whether fn finished.
func guard(what string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Perception: %s panicked: %v\n%s", what, r, debug.Stack())
			ok = false
		}
	}()
	fn()
	return true
}

func (l *Loop) detect(frame Frame, center image.Point) (Detection, bool) {
	var (
		det   Detection
		found bool
		err   error
	)
	if !guard("detector", func() { det, found, err = l.Detector.Detect(frame, center) }) {
		return Detection{}, false
	}
	if err != nil {
		fmt.Println("Perception: detection failed:", err)
		return Detection{}, false
	}
	return det, found
}
