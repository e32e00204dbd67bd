// Package camera provides the OpenCV-backed frame source, detector and display used by
// the perception loop.
package camera

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"runtime"

	"gocv.io/x/gocv"

	"github.com/tigerbot-team/tigerbot/pantilt/pkg/perception"
)

// Frame owns one captured image.
type Frame struct {
	Mat gocv.Mat
}

func (f *Frame) Size() image.Point {
	return image.Pt(f.Mat.Cols(), f.Mat.Rows())
}

func (f *Frame) Close() error {
	return f.Mat.Close()
}

type Capture struct {
	webcam *gocv.VideoCapture
}

func Open(device int) (*Capture, error) {
	webcam, err := gocv.VideoCaptureDevice(device)
	if err != nil {
		return nil, fmt.Errorf("error opening video capture device %d: %w", device, err)
	}
	return &Capture{webcam: webcam}, nil
}

// OpenFile reads frames from a video file instead of a camera.
func OpenFile(path string) (*Capture, error) {
	webcam, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("error opening video file %s: %w", path, err)
	}
	return &Capture{webcam: webcam}, nil
}

var _ perception.Source = (*Capture)(nil)

// Next blocks until the next frame is ready.  An empty frame is reported as
// perception.ErrNoFrame; a failed read means the camera has gone away.
func (c *Capture) Next(ctx context.Context) (perception.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img := gocv.NewMat()
	if ok := c.webcam.Read(&img); !ok {
		img.Close()
		return nil, fmt.Errorf("cannot read device")
	}
	if img.Empty() {
		img.Close()
		return nil, perception.ErrNoFrame
	}
	return &Frame{Mat: img}, nil
}

func (c *Capture) Close() error {
	return c.webcam.Close()
}

// Flipper mirrors frames in place.  Code follows OpenCV: 0 flips vertically, 1
// horizontally, -1 both.
type Flipper struct {
	Code int
}

func (fl Flipper) Reorient(f perception.Frame) error {
	cf, ok := f.(*Frame)
	if !ok {
		return fmt.Errorf("can't flip %T", f)
	}
	gocv.Flip(cf.Mat, &cf.Mat, fl.Code)
	return nil
}

// Cascade finds faces (or whatever the cascade was trained on) with a Haar classifier.
type Cascade struct {
	classifier gocv.CascadeClassifier

	ScaleFactor  float64
	MinNeighbors int
	MinSize      image.Point
}

func NewCascade(path string) (*Cascade, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("error reading cascade file: %v", path)
	}
	return &Cascade{
		classifier:   classifier,
		ScaleFactor:  1.05,
		MinNeighbors: 9,
		MinSize:      image.Pt(30, 30),
	}, nil
}

// Detect returns the centre of the first match.
func (c *Cascade) Detect(f perception.Frame, center image.Point) (perception.Detection, bool, error) {
	cf, ok := f.(*Frame)
	if !ok {
		return perception.Detection{}, false, fmt.Errorf("can't run cascade on %T", f)
	}
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(cf.Mat, &gray, gocv.ColorBGRToGray)

	rects := c.classifier.DetectMultiScaleWithParams(gray, c.ScaleFactor, c.MinNeighbors, 0, c.MinSize, image.Point{})
	if len(rects) == 0 {
		return perception.Detection{}, false, nil
	}
	r := rects[0]
	return perception.Detection{
		Target: image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2),
		Region: r,
	}, true, nil
}

func (c *Cascade) Close() error {
	return c.classifier.Close()
}

// Window shows frames with the detected region outlined.  HighGUI wants every call on
// the same OS thread, so the window is created lazily from the perception goroutine.
type Window struct {
	Title string

	window *gocv.Window
}

func NewWindow(title string) *Window {
	return &Window{Title: title}
}

func (w *Window) Show(f perception.Frame, det *perception.Detection) {
	cf, ok := f.(*Frame)
	if !ok {
		return
	}
	if w.window == nil {
		runtime.LockOSThread()
		w.window = gocv.NewWindow(w.Title)
	}
	if det != nil {
		gocv.Rectangle(&cf.Mat, det.Region, color.RGBA{0, 255, 0, 0}, 2)
	}
	w.window.IMShow(cf.Mat)
	w.window.WaitKey(1)
}

func (w *Window) Close() error {
	if w.window == nil {
		return nil
	}
	return w.window.Close()
}
