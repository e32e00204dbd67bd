package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/tigerbot-team/tigerbot/pantilt/pkg/servo"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/sharedstate"
)

const (
	DefaultPath  = "/cfg/pantilt.yaml"
	InUseSuffix  = "-in-use.yaml"
	DriverHAT    = "pantilthat"
	DriverPCA    = "pca9685"
	DriverSerial = "maestro"
	DriverDummy  = "dummy"
)

type AxisConfig struct {
	P, I, D float64
	Invert  bool
}

func (a AxisConfig) Gains() sharedstate.GainValues {
	return sharedstate.GainValues{P: a.P, I: a.I, D: a.D}
}

type CameraConfig struct {
	Device int
	// Flip the frame before detection; FlipCode is passed to OpenCV (0 = vertical).
	Flip       bool
	FlipCode   int
	ShowWindow bool
}

type DriverConfig struct {
	Kind        string
	I2CBus      string
	SerialPort  string
	BaudRate    int
	PanChannel  int
	TiltChannel int
}

type Config struct {
	Cascade string

	Camera CameraConfig
	Pan    AxisConfig
	Tilt   AxisConfig
	Law    string

	ServoMin, ServoMax float64

	ControlInterval   time.Duration
	ActuationInterval time.Duration
	MaxServoErrors    int

	Driver DriverConfig

	ScreenDevice   string
	StartupSound   string
	ShutdownSound  string
	JoystickDevice string
	TuneStep       float64
}

func Default() Config {
	return Config{
		Camera: CameraConfig{
			Device:     0,
			Flip:       true,
			FlipCode:   0,
			ShowWindow: true,
		},
		Pan:  AxisConfig{P: 0.09, I: 0.08, D: 0.002, Invert: true},
		Tilt: AxisConfig{P: 0.11, I: 0.10, D: 0.002, Invert: true},
		Law:  "pid",

		ServoMin: -90,
		ServoMax: 90,

		ControlInterval:   10 * time.Millisecond,
		ActuationInterval: 20 * time.Millisecond,
		MaxServoErrors:    10,

		Driver: DriverConfig{
			Kind:        DriverHAT,
			I2CBus:      "",
			SerialPort:  "/dev/ttyACM0",
			BaudRate:    9600,
			PanChannel:  0,
			TiltChannel: 1,
		},

		TuneStep: 0.005,
	}
}

func (c Config) Range() servo.Range {
	return servo.Range{Min: c.ServoMin, Max: c.ServoMax}
}

// Load returns the defaults overlaid with the YAML file at path.  A missing file is not an
// error, the defaults are used as they are.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		fmt.Println("No config at", path, "using defaults")
		return cfg, nil
	} else if err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}

// WriteInUse dumps the effective config next to the one it was loaded from, so that it's
// easy to see what the tracker actually ran with.
func (c Config) WriteInUse(path string) error {
	data, err := yaml.Marshal(&c)
	if err != nil {
		return errors.Wrap(err, "marshalling config")
	}
	return errors.Wrapf(ioutil.WriteFile(path, data, 0666), "writing %s", path)
}

func InUsePath(path string) string {
	if len(path) > 5 && path[len(path)-5:] == ".yaml" {
		path = path[:len(path)-5]
	}
	return path + InUseSuffix
}

func (c Config) Validate() error {
	if c.Cascade == "" {
		return errors.New("a detector cascade is required")
	}
	if c.ServoMin >= c.ServoMax {
		return errors.Errorf("servo range [%v, %v] is empty", c.ServoMin, c.ServoMax)
	}
	// The drivers only accept angles inside the default range.
	if !servo.DefaultRange.Contains(c.ServoMin) || !servo.DefaultRange.Contains(c.ServoMax) {
		return errors.Errorf("servo range %v is wider than the servos' %v", c.Range(), servo.DefaultRange)
	}
	if c.ControlInterval <= 0 || c.ActuationInterval <= 0 {
		return errors.New("loop intervals must be positive")
	}
	switch c.Law {
	case "pid", "pidctrl":
	default:
		return errors.Errorf("unknown control law %q", c.Law)
	}
	switch c.Driver.Kind {
	case DriverHAT, DriverPCA, DriverSerial, DriverDummy:
	default:
		return errors.Errorf("unknown servo driver %q", c.Driver.Kind)
	}
	if c.Driver.PanChannel == c.Driver.TiltChannel && c.Driver.Kind != DriverHAT && c.Driver.Kind != DriverDummy {
		return errors.Errorf("pan and tilt share channel %d", c.Driver.PanChannel)
	}
	return nil
}
