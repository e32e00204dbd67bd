package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"strings"

	"gocv.io/x/gocv"

	"github.com/tigerbot-team/tigerbot/pantilt/pkg/camera"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/perception"
)

func main() {
	cascadePath := flag.String("cascade", "", "Haar cascade XML")
	flip := flag.Bool("flip", true, "flip frames vertically before detection")
	flag.Parse()
	if *cascadePath == "" || flag.NArg() != 1 {
		fmt.Println("usage: detecttest -cascade <xml> camera|<video>|<image>")
		os.Exit(2)
	}

	cascade, err := camera.NewCascade(*cascadePath)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer cascade.Close()

	filename := flag.Arg(0)
	switch {
	case filename == "camera":
		loopReading(cascade, *flip, func() (*camera.Capture, error) { return camera.Open(0) })
	case strings.HasSuffix(filename, ".jpg"), strings.HasSuffix(filename, ".png"):
		analyzeFile(cascade, *flip, filename)
	default:
		loopReading(cascade, *flip, func() (*camera.Capture, error) { return camera.OpenFile(filename) })
	}
}

func loopReading(cascade *camera.Cascade, flip bool, open func() (*camera.Capture, error)) {
	capture, err := open()
	if err != nil {
		fmt.Println(err)
		return
	}
	defer capture.Close()

	ctx := context.Background()
	for n := 0; ; n++ {
		// This blocks until the next frame is ready.
		frame, err := capture.Next(ctx)
		if err == perception.ErrNoFrame {
			fmt.Printf("no image on device\n")
			continue
		} else if err != nil {
			fmt.Println(err)
			return
		}
		report(cascade, flip, n, frame)
		frame.Close()
	}
}

func analyzeFile(cascade *camera.Cascade, flip bool, filename string) {
	// Read that file (as BGR).
	img := gocv.IMRead(filename, gocv.IMReadColor)
	if img.Empty() {
		fmt.Println("Failed to read", filename)
		return
	}
	frame := &camera.Frame{Mat: img}
	defer frame.Close()
	fmt.Printf("Input size = %v x %v\n", img.Cols(), img.Rows())
	report(cascade, flip, 0, frame)
}

func report(cascade *camera.Cascade, flip bool, n int, frame perception.Frame) {
	if flip {
		if err := (camera.Flipper{Code: 0}).Reorient(frame); err != nil {
			fmt.Println(err)
			return
		}
	}
	size := frame.Size()
	center := image.Pt(size.X/2, size.Y/2)
	det, found, err := cascade.Detect(frame, center)
	switch {
	case err != nil:
		fmt.Printf("%d: detection failed: %v\n", n, err)
	case found:
		fmt.Printf("%d: found at %v (%v), error from centre %v\n", n, det.Target, det.Region, det.Target.Sub(center))
	default:
		fmt.Printf("%d: not found\n", n)
	}
}
