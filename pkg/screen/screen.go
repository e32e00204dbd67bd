package screen

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fogleman/gg"

	"github.com/tigerbot-team/tigerbot/pantilt/pkg/sharedstate"
)

const (
	S = 128

	RefreshInterval = 500 * time.Millisecond
)

// Display shows the tracker's state on the little SPI screen (/dev/fb1).
type Display struct {
	Device string
	State  *sharedstate.State
}

func (d *Display) Name() string {
	return "screen"
}

// Run redraws the screen until ctx is done and then blanks it.  A missing screen is not a
// fault, the tracker runs fine without one.
func (d *Display) Run(ctx context.Context) error {
	f, err := os.OpenFile(d.Device, os.O_RDWR, 0666)
	if err != nil {
		fmt.Println("Failed to open screen, ignoring:", err)
		return nil
	}
	defer f.Close()

	ticker := time.NewTicker(RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			var blank [S * S * 2]byte
			_ = writeFrame(f, blank[:])
			return nil
		case <-ticker.C:
		}
		buf := toRGB565(Render(d.State))
		if err := writeFrame(f, buf[:]); err != nil {
			fmt.Println("Screen failure: ", err)
			return nil
		}
	}
}

// Render draws the current state.
func Render(s *sharedstate.State) *gg.Context {
	dc := gg.NewContext(S, S)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	dc.SetRGBA(1, 0.9, 0, 1)
	dc.DrawString("PAN/TILT", 4, 12)

	pan, tilt := s.PanOutput.Load(), s.TiltOutput.Load()
	dc.DrawString(fmt.Sprintf("P %+6.1f", pan), 4, 28)
	dc.DrawString(fmt.Sprintf("T %+6.1f", tilt), 4, 42)

	tx, ty := s.TargetX.Load(), s.TargetY.Load()
	cx, cy := s.CenterX.Load(), s.CenterY.Load()
	dc.DrawString(fmt.Sprintf("tgt %d,%d", tx, ty), 4, 58)
	dc.DrawString(fmt.Sprintf("ctr %d,%d", cx, cy), 4, 72)

	// Crosshair box at the bottom: where the target is relative to the centre of frame.
	const boxX, boxY, boxS = 34, 80, 44
	dc.DrawRectangle(boxX, boxY, boxS, boxS)
	dc.Stroke()
	if cx > 0 && cy > 0 {
		dx := float64(tx-cx) / float64(2*cx)
		dy := float64(ty-cy) / float64(2*cy)
		dc.DrawCircle(boxX+boxS/2+dx*boxS, boxY+boxS/2+dy*boxS, 3)
		dc.Fill()
	}
	return dc
}

func toRGB565(dc *gg.Context) (buf [S * S * 2]byte) {
	img := dc.Image()
	for y := 0; y < S; y++ {
		for x := 0; x < S; x++ {
			r, g, b, _ := img.At(x, y).RGBA() // 16-bit pre-multiplied

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6)) // Green has 6 bits
			bb := byte(b >> (16 - 5))

			// The panel is mounted rotated.
			buf[(S-1-y)*2+x*S*2+1] = (rb << 3) | (gb >> 3)
			buf[(S-1-y)*2+x*S*2] = bb | (gb << 5)
		}
	}
	return
}

func writeFrame(f io.WriteSeeker, buf []byte) error {
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	for i := 0; i < S; i++ {
		if _, err := f.Write(buf[i*S*2 : (i+1)*S*2]); err != nil {
			return err
		}
		time.Sleep(10 * time.Microsecond)
	}
	return nil
}
