package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tigerbot-team/tigerbot/pantilt/pkg/config"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/screen"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/sharedstate"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Default()
	state := &sharedstate.State{}
	state.Init(cfg.Pan.Gains(), cfg.Tilt.Gains())
	state.CenterX.Store(320)
	state.CenterY.Store(240)

	dev := "/dev/fb1"
	if len(os.Args) > 1 {
		dev = os.Args[1]
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = (&screen.Display{Device: dev, State: state}).Run(ctx)
	}()

	fmt.Println("Enter a target as <x> <y>; the screen shows where it sits in a 640x480 frame.")
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			break
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			fmt.Println("Expected <x> <y>")
			continue
		}
		x, errX := strconv.Atoi(parts[0])
		y, errY := strconv.Atoi(parts[1])
		if errX != nil || errY != nil {
			fmt.Println("Expected ints")
			continue
		}
		state.TargetX.Store(x)
		state.TargetY.Store(y)
	}
	cancel()
	<-done
}
