package tunable

import (
	"context"
	"fmt"
	"io"

	"github.com/tigerbot-team/tigerbot/pantilt/pkg/joystick"
)

// Tuner is a unit that feeds joystick events into a set of tunables.  L1/R1 or D-pad
// left/right picks the gain, up/down changes it.
type Tuner struct {
	Device   string
	Tunables *Tunables

	// Open defaults to joystick.NewJoystick.
	Open func(device string) (*joystick.Joystick, error)
}

func NewTuner(device string, tunables *Tunables) *Tuner {
	return &Tuner{
		Device:   device,
		Tunables: tunables,
		Open:     joystick.NewJoystick,
	}
}

func (t *Tuner) Name() string {
	return "tuner"
}

// Run reads events until ctx is done.  A missing joystick is not an error, the tracker
// just runs with the configured gains.
func (t *Tuner) Run(ctx context.Context) error {
	if t.Device == "" || len(t.Tunables.All) == 0 {
		return nil
	}
	j, err := t.Open(t.Device)
	if err != nil {
		fmt.Println("No joystick, gain tuning disabled:", err)
		return nil
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		// Unblocks ReadEvent.
		_ = j.Close()
	}()

	for {
		event, err := j.ReadEvent()
		if err != nil {
			if ctx.Err() != nil || err == io.EOF {
				return nil
			}
			fmt.Println("Joystick read failed, gain tuning stopped:", err)
			return nil
		}
		t.Apply(event)
	}
}

// Apply handles one joystick event.
func (t *Tuner) Apply(event *joystick.Event) {
	if event.Type == joystick.EventTypeButton {
		if event.IsPress(joystick.ButtonL1) {
			t.Tunables.SelectPrev()
		} else if event.IsPress(joystick.ButtonR1) {
			t.Tunables.SelectNext()
		}
		return
	}
	if event.Type != joystick.EventTypeAxis {
		return
	}
	switch event.Number {
	case joystick.AxisDPadX:
		if event.Value > 0 {
			// Right
			t.Tunables.SelectNext()
		} else if event.Value < 0 {
			// Left
			t.Tunables.SelectPrev()
		}
	case joystick.AxisDPadY:
		if event.Value < 0 {
			// Up
			t.Tunables.Current().Add(1)
		} else if event.Value > 0 {
			// Down
			t.Tunables.Current().Add(-1)
		}
	}
}
