// Package supervisor starts the tracking loops, stops them together, and makes sure the
// servos are released whatever way the process is going down.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/tigerbot-team/tigerbot/pantilt/pkg/servo"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/sharedstate"
)

// Unit is one independently-paced loop.  Run must return promptly once ctx is done; a
// non-nil error means the unit hit something it can't recover from.
type Unit interface {
	Name() string
	Run(ctx context.Context) error
}

// Announcer plays a sound on start up and shut down.  Optional.
type Announcer interface {
	Play(path string)
}

type Supervisor struct {
	Driver    servo.Driver
	State     *sharedstate.State
	PanGains  sharedstate.GainValues
	TiltGains sharedstate.GainValues
	Units     []Unit

	Announcer     Announcer
	StartupSound  string
	ShutdownSound string

	// StopTimeout bounds how long Run waits for the units after cancelling them.  Units
	// still running after it are abandoned and the servos are released anyway.
	StopTimeout time.Duration

	lock     sync.Mutex
	cancel   context.CancelFunc
	stopped  bool
	faultErr error
	running  map[string]int

	shutdownOnce sync.Once
}

const DefaultStopTimeout = 2 * time.Second

var ErrAlreadyRunning = errors.New("supervisor already running")

// Run enables the servos, runs every unit until ctx is done, Stop is called or a unit
// fails, and then releases the servos.  It returns the first unit failure, or nil.
func (s *Supervisor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.lock.Lock()
	if s.cancel != nil {
		s.lock.Unlock()
		return ErrAlreadyRunning
	}
	s.cancel = cancel
	if s.stopped {
		cancel()
	}
	s.lock.Unlock()

	s.State.Init(s.PanGains, s.TiltGains)

	if err := s.enableServos(); err != nil {
		return err
	}
	s.announce(s.StartupSound)

	var wg sync.WaitGroup
	s.lock.Lock()
	s.running = map[string]int{}
	for _, u := range s.Units {
		s.running[u.Name()]++
	}
	s.lock.Unlock()
	for _, u := range s.Units {
		wg.Add(1)
		go s.runUnit(ctx, &wg, u)
	}

	<-ctx.Done()
	fmt.Println("Supervisor: stopping", len(s.Units), "units")
	s.waitUnits(&wg)
	s.shutdown()

	s.lock.Lock()
	err := s.faultErr
	s.lock.Unlock()
	if err != nil {
		fmt.Println("[MESSAGE] Tracking stopped after a fault:", err)
	} else {
		fmt.Println("[MESSAGE] Tracking stopped, servos disabled. Now exiting...")
	}
	return err
}

// Stop asks Run to wind down.  Safe to call any number of times, from anywhere, before
// or after Run.
func (s *Supervisor) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Supervisor) enableServos() error {
	var enabled []servo.Axis
	for _, axis := range servo.Axes {
		if err := s.Driver.Enable(axis, true); err != nil {
			for _, a := range enabled {
				if derr := s.Driver.Enable(a, false); derr != nil {
					fmt.Printf("Supervisor: failed to disable %v: %v\n", a, derr)
				}
			}
			return fmt.Errorf("failed to enable %v servo: %w", axis, err)
		}
		enabled = append(enabled, axis)
	}
	return nil
}

// waitUnits waits for every unit to return, or for StopTimeout to pass.
func (s *Supervisor) waitUnits(wg *sync.WaitGroup) {
	timeout := s.StopTimeout
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}
	allDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(allDone)
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-allDone:
	case <-timer.C:
		s.lock.Lock()
		var stuck []string
		for name, n := range s.running {
			if n > 0 {
				stuck = append(stuck, name)
			}
		}
		s.lock.Unlock()
		sort.Strings(stuck)
		fmt.Printf("Supervisor: %v still running after %v, releasing servos anyway\n", stuck, timeout)
	}
}

func (s *Supervisor) runUnit(ctx context.Context, wg *sync.WaitGroup, u Unit) {
	defer wg.Done()
	defer func() {
		s.lock.Lock()
		s.running[u.Name()]--
		s.lock.Unlock()
	}()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				fmt.Printf("Supervisor: %s panicked: %v\n%s", u.Name(), r, debug.Stack())
				err = fmt.Errorf("%s panicked: %v", u.Name(), r)
			}
		}()
		return u.Run(ctx)
	}()
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	fmt.Printf("Supervisor: %s failed: %v\n", u.Name(), err)
	s.lock.Lock()
	if s.faultErr == nil {
		s.faultErr = fmt.Errorf("%s: %w", u.Name(), err)
	}
	s.lock.Unlock()
	s.Stop()
}

// shutdown releases both servos.  It runs once per Supervisor however many times it is
// reached.
func (s *Supervisor) shutdown() {
	s.shutdownOnce.Do(func() {
		fmt.Println("Supervisor: disabling servos")
		for _, axis := range servo.Axes {
			if err := s.Driver.Enable(axis, false); err != nil {
				fmt.Printf("Supervisor: failed to disable %v: %v\n", axis, err)
			}
		}
		s.announce(s.ShutdownSound)
	})
}

func (s *Supervisor) announce(path string) {
	if s.Announcer != nil && path != "" {
		s.Announcer.Play(path)
	}
}

// WatchSignals calls stop on the first of sigs received and only logs the ones after it.
// It returns when ctx is done.
func WatchSignals(ctx context.Context, stop func(), sigs ...os.Signal) {
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, sigs...)
	defer signal.Stop(signals)
	relaySignals(ctx, signals, stop)
}

func relaySignals(ctx context.Context, signals <-chan os.Signal, stop func()) {
	first := true
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			if !first {
				log.Println("Signal:", sig, "(already shutting down)")
				continue
			}
			first = false
			log.Println("Signal:", sig)
			stop()
		}
	}
}
