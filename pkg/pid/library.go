package pid

import (
	"time"

	"github.com/felixge/pidctrl"
)

// LibraryPID drives github.com/felixge/pidctrl with the frame centre as the setpoint.  The
// library differentiates the measurement rather than the error; with a fixed centre the two
// are the same.  It differs from PID in two ways:
//   - a cycle with no elapsed time contributes no derivative at all, where PID holds the
//     previous one;
//   - the library folds I into its accumulator each cycle, so a new I gain only applies to
//     error collected from then on.  PID scales the whole integral by the current gain.
//
// With fixed gains and a steady cycle time the two give the same output.
type LibraryPID struct {
	ctrl     *pidctrl.PIDController
	prevTime time.Time
	primed   bool
}

func (l *LibraryPID) Initialize(now time.Time) {
	l.ctrl = pidctrl.NewPIDController(0, 0, 0).Set(0)
	l.prevTime = now
	l.primed = false
}

func (l *LibraryPID) Update(g Gains, err float64, now time.Time) float64 {
	elapsed := now.Sub(l.prevTime)
	if !l.primed || elapsed < 0 {
		elapsed = 0
	}
	l.primed = true
	l.prevTime = now

	l.ctrl.SetPID(g.P, g.I, g.D)
	// setpoint(0) - value == err
	return l.ctrl.UpdateDuration(-err, elapsed)
}
