package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tigerbot-team/tigerbot/pantilt/pkg/maestro"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/pantilthat"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/pca9685"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/servo"
)

func main() {
	driverName := flag.String("driver", "pantilthat", "pantilthat, pca9685, maestro or dummy")
	bus := flag.String("bus", "", "I2C bus (pantilthat, pca9685)")
	port := flag.String("port", "/dev/ttyACM0", "serial port (maestro)")
	flag.Parse()

	var driver servo.Driver
	var err error
	switch *driverName {
	case "pantilthat":
		driver, err = pantilthat.New(*bus)
	case "pca9685":
		if *bus == "" {
			*bus = "/dev/i2c-1"
		}
		var board *pca9685.PCA9685
		board, err = pca9685.New(*bus)
		if err == nil {
			err = board.Configure()
			driver = pca9685.NewServos(board, 0, 1)
		}
	case "maestro":
		driver, err = maestro.Open(*port, 9600, 0, 1)
	case "dummy":
		driver = servo.Dummy()
	default:
		err = fmt.Errorf("unknown driver %q", *driverName)
	}
	if err != nil {
		fmt.Println("Failed to open servo driver", err)
		return
	}
	defer func() {
		for _, axis := range servo.Axes {
			_ = driver.Enable(axis, false)
		}
		driver.Close()
	}()

	fmt.Println(
		`Commands:
    e <axis> on|off   # Enable or release a servo
    a <axis> <angle>  # Move an enabled servo

<axis>   pan or tilt
<angle>  Degrees -90.0-90.0; 0=centre`)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "e", "a":
			if len(parts) < 3 {
				fmt.Println("Not enough parameters")
				continue
			}
			axis, err := servo.ParseAxis(parts[1])
			if err != nil {
				fmt.Println(err)
				continue
			}
			if parts[0] == "e" {
				on := parts[2] == "on"
				fmt.Printf("Setting %v enabled=%v\n", axis, on)
				err = driver.Enable(axis, on)
			} else {
				v, perr := strconv.ParseFloat(parts[2], 64)
				if perr != nil {
					fmt.Println("Expected float, not ", parts[2])
					continue
				}
				fmt.Printf("Moving %v to %f\n", axis, v)
				err = driver.SetAngle(axis, v)
			}
			if err != nil {
				fmt.Println("Servo command failed: ", err)
			}
		default:
			fmt.Println("Unknown command", parts[0])
		}
	}
}
