package supervisor

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/tigerbot/pantilt/pkg/servo"
	"github.com/tigerbot-team/tigerbot/pantilt/pkg/sharedstate"
)

type enableCall struct {
	axis servo.Axis
	on   bool
}

type fakeDriver struct {
	lock      sync.Mutex
	enables   []enableCall
	enableErr map[servo.Axis]error
}

func (d *fakeDriver) Enable(axis servo.Axis, on bool) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if on && d.enableErr[axis] != nil {
		return d.enableErr[axis]
	}
	d.enables = append(d.enables, enableCall{axis, on})
	return nil
}

func (d *fakeDriver) SetAngle(servo.Axis, float64) error { return nil }
func (d *fakeDriver) Close() error                       { return nil }

func (d *fakeDriver) Enables() []enableCall {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]enableCall(nil), d.enables...)
}

func (d *fakeDriver) disableCount(axis servo.Axis) int {
	n := 0
	for _, e := range d.Enables() {
		if e.axis == axis && !e.on {
			n++
		}
	}
	return n
}

// loopUnit cycles until cancelled, like the real loops.
type loopUnit struct {
	name    string
	started chan struct{}
	stopped chan struct{}
	fail    error
	panics  bool
}

func newLoopUnit(name string) *loopUnit {
	return &loopUnit{name: name, started: make(chan struct{}), stopped: make(chan struct{})}
}

func (u *loopUnit) Name() string { return u.name }

func (u *loopUnit) Run(ctx context.Context) error {
	close(u.started)
	defer close(u.stopped)
	if u.panics {
		panic("boom")
	}
	if u.fail != nil {
		return u.fail
	}
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for ctx.Err() == nil {
		<-ticker.C
	}
	return nil
}

func newSupervisor(d *fakeDriver, units ...*loopUnit) *Supervisor {
	s := &Supervisor{
		Driver:    d,
		State:     &sharedstate.State{},
		PanGains:  sharedstate.GainValues{P: 0.09, I: 0.08, D: 0.002},
		TiltGains: sharedstate.GainValues{P: 0.11, I: 0.10, D: 0.002},
	}
	for _, u := range units {
		s.Units = append(s.Units, u)
	}
	return s
}

func fourUnits() []*loopUnit {
	return []*loopUnit{
		newLoopUnit("perception"),
		newLoopUnit("pid-pan"),
		newLoopUnit("pid-tilt"),
		newLoopUnit("actuation"),
	}
}

func waitStarted(t *testing.T, units []*loopUnit) {
	t.Helper()
	for _, u := range units {
		select {
		case <-u.started:
		case <-time.After(time.Second):
			t.Fatalf("%s never started", u.name)
		}
	}
}

func runAsync(s *Supervisor, ctx context.Context) chan error {
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return done
}

func waitDone(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not finish")
		return nil
	}
}

func TestCancelStopsAllUnitsThenDisablesServosOnce(t *testing.T) {
	d := &fakeDriver{}
	units := fourUnits()
	s := newSupervisor(d, units...)

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(s, ctx)
	waitStarted(t, units)
	assert.Equal(t, []enableCall{{servo.Pan, true}, {servo.Tilt, true}}, d.Enables())

	cancel()
	require.NoError(t, waitDone(t, done))
	for _, u := range units {
		select {
		case <-u.stopped:
		default:
			t.Errorf("%s still running after Run returned", u.name)
		}
	}
	assert.Equal(t, 1, d.disableCount(servo.Pan))
	assert.Equal(t, 1, d.disableCount(servo.Tilt))
	assert.Equal(t, []enableCall{{servo.Pan, false}, {servo.Tilt, false}}, d.Enables()[2:])
}

func TestRepeatedStopIsNoOp(t *testing.T) {
	d := &fakeDriver{}
	units := fourUnits()
	s := newSupervisor(d, units...)

	done := runAsync(s, context.Background())
	waitStarted(t, units)
	for i := 0; i < 5; i++ {
		s.Stop()
	}
	require.NoError(t, waitDone(t, done))
	s.Stop()
	s.shutdown()

	assert.Equal(t, 1, d.disableCount(servo.Pan))
	assert.Equal(t, 1, d.disableCount(servo.Tilt))
}

func TestStopBeforeRun(t *testing.T) {
	d := &fakeDriver{}
	s := newSupervisor(d, fourUnits()...)
	s.Stop()
	require.NoError(t, waitDone(t, runAsync(s, context.Background())))
	assert.Equal(t, 1, d.disableCount(servo.Pan))
}

func TestUnitFaultShutsEverythingDown(t *testing.T) {
	d := &fakeDriver{}
	units := fourUnits()
	camErr := errors.New("camera disconnected")
	units[0].fail = camErr
	s := newSupervisor(d, units...)

	err := waitDone(t, runAsync(s, context.Background()))
	require.Error(t, err)
	assert.ErrorIs(t, err, camErr)
	assert.Contains(t, err.Error(), "perception")
	assert.Equal(t, 1, d.disableCount(servo.Pan))
	assert.Equal(t, 1, d.disableCount(servo.Tilt))
}

func TestUnitPanicShutsEverythingDown(t *testing.T) {
	d := &fakeDriver{}
	units := fourUnits()
	units[3].panics = true
	s := newSupervisor(d, units...)

	err := waitDone(t, runAsync(s, context.Background()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "actuation panicked")
	assert.Equal(t, 1, d.disableCount(servo.Tilt))
}

func TestEnableFailureStartsNothing(t *testing.T) {
	d := &fakeDriver{enableErr: map[servo.Axis]error{servo.Tilt: errors.New("no ack")}}
	units := fourUnits()
	s := newSupervisor(d, units...)

	err := s.Run(context.Background())
	require.Error(t, err)
	for _, u := range units {
		select {
		case <-u.started:
			t.Errorf("%s was started", u.name)
		default:
		}
	}
	// Pan had been enabled, so it gets released again.
	assert.Equal(t, []enableCall{{servo.Pan, true}, {servo.Pan, false}}, d.Enables())
}

func TestRunInitialisesState(t *testing.T) {
	d := &fakeDriver{}
	s := newSupervisor(d)
	s.State.TargetX.Store(99)
	s.Stop()
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, 0, s.State.TargetX.Load())
	p, i, dd := s.State.PanGains.Load()
	assert.Equal(t, [3]float64{0.09, 0.08, 0.002}, [3]float64{p, i, dd})
}

type recordingAnnouncer struct {
	lock   sync.Mutex
	played []string
}

func (a *recordingAnnouncer) Play(path string) {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.played = append(a.played, path)
}

func TestAnnouncesStartAndStop(t *testing.T) {
	a := &recordingAnnouncer{}
	s := newSupervisor(&fakeDriver{})
	s.Announcer = a
	s.StartupSound = "/sounds/start.wav"
	s.ShutdownSound = "/sounds/stop.wav"
	s.Stop()
	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []string{"/sounds/start.wav", "/sounds/stop.wav"}, a.played)
}

func TestRelaySignalsStopsOnce(t *testing.T) {
	signals := make(chan os.Signal)
	var stops int
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		relaySignals(ctx, signals, func() { stops++ })
	}()

	signals <- syscall.SIGINT
	signals <- syscall.SIGTERM
	signals <- syscall.SIGINT
	cancel()
	<-done
	assert.Equal(t, 1, stops)
}

func TestWatchSignalsRelaysProcessSignal(t *testing.T) {
	// Until the watcher has registered, SIGUSR1 would otherwise kill the test binary.
	hold := make(chan os.Signal, 1)
	signal.Notify(hold, syscall.SIGUSR1)
	defer signal.Stop(hold)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopped := make(chan struct{})
	var once sync.Once
	done := make(chan struct{})
	go func() {
		defer close(done)
		WatchSignals(ctx, func() { once.Do(func() { close(stopped) }) }, syscall.SIGUSR1)
	}()

	// Keep signalling until the watcher has registered and seen one.
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(2 * time.Second)
	for waiting := true; waiting; {
		require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))
		select {
		case <-stopped:
			waiting = false
		case <-ticker.C:
		case <-deadline:
			t.Fatal("stop was never called")
		}
	}
	cancel()
	<-done
}

// stuckUnit ignores cancellation, like a camera read that never returns.
type stuckUnit struct {
	started chan struct{}
	release chan struct{}
}

func (u *stuckUnit) Name() string { return "perception" }

func (u *stuckUnit) Run(ctx context.Context) error {
	close(u.started)
	<-u.release
	return nil
}

func TestStuckUnitDoesNotBlockServoRelease(t *testing.T) {
	d := &fakeDriver{}
	units := fourUnits()[1:]
	stuck := &stuckUnit{started: make(chan struct{}), release: make(chan struct{})}
	defer close(stuck.release)
	s := newSupervisor(d, units...)
	s.Units = append(s.Units, stuck)
	s.StopTimeout = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(s, ctx)
	waitStarted(t, units)
	<-stuck.started

	cancel()
	require.NoError(t, waitDone(t, done))
	for _, u := range units {
		select {
		case <-u.stopped:
		default:
			t.Errorf("%s still running after Run returned", u.name)
		}
	}
	assert.Equal(t, 1, d.disableCount(servo.Pan))
	assert.Equal(t, 1, d.disableCount(servo.Tilt))
}
