package pid

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerbot-team/tigerbot/pantilt/pkg/sharedstate"
)

const DefaultInterval = 10 * time.Millisecond

// Controller runs one ControlLaw against one axis' shared cells.
type Controller struct {
	Axis     string
	Cells    sharedstate.AxisCells
	Law      ControlLaw
	Interval time.Duration

	// Now is the clock; time.Now when nil.
	Now func() time.Time
}

func NewController(axis string, cells sharedstate.AxisCells, law ControlLaw, interval time.Duration) *Controller {
	return &Controller{
		Axis:     axis,
		Cells:    cells,
		Law:      law,
		Interval: interval,
	}
}

func (c *Controller) Name() string {
	return "pid-" + c.Axis
}

// Error is the signed offset for one axis; positive when the target is left of, or
// above, the centre.
func Error(center, target int) float64 {
	return float64(center - target)
}

func (c *Controller) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Run initialises the law and then cycles until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	fmt.Println("PID", c.Axis, "loop started")
	defer fmt.Println("PID", c.Axis, "loop exited")

	interval := c.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Law.Initialize(c.now())
	for ctx.Err() == nil {
		c.Step(c.now())

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
	return nil
}

// Step does one control cycle: the gains are read once, the output cell written once.
func (c *Controller) Step(now time.Time) float64 {
	p, i, d := c.Cells.Gains.Load()
	err := Error(c.Cells.Center.Load(), c.Cells.Target.Load())
	out := c.Law.Update(Gains{P: p, I: i, D: d}, err, now)
	c.Cells.Output.Store(out)
	return out
}
