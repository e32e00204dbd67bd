package sound

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// MaxDrain caps how long Close waits for the last sound to finish.
const MaxDrain = 3 * time.Second

// Player plays WAV files on a background goroutine, one at a time; a new sound cuts off
// the one that is playing.
type Player struct {
	soundsToPlay chan string
	done         chan struct{}
	closeOnce    sync.Once

	lock         sync.Mutex
	playingUntil time.Time
}

func New() *Player {
	p := &Player{
		soundsToPlay: make(chan string),
		done:         make(chan struct{}),
	}
	go p.loop()
	return p
}

func (p *Player) loop() {
	defer close(p.done)
	defer func() {
		// The speaker library panics if there is no audio device.
		if r := recover(); r != nil {
			fmt.Println("Sound player failed:", r)
		}
		for s := range p.soundsToPlay {
			fmt.Println("Unable to play", s)
		}
	}()

	sampleRate := beep.SampleRate(44100)
	err := speaker.Init(sampleRate, sampleRate.N(time.Second/5))
	if err != nil {
		fmt.Println("Failed to open speaker", err)
		return
	}
	var ctrl *beep.Ctrl
	var s beep.StreamSeekCloser
	for soundToPlay := range p.soundsToPlay {
		if ctrl != nil {
			speaker.Lock()
			ctrl.Paused = true
			ctrl.Streamer = nil
			speaker.Unlock()
			ctrl = nil
		}
		if s != nil {
			s.Close()
			s = nil
		}

		f, err := os.Open(soundToPlay)
		if err != nil {
			fmt.Println("Failed to open sound", err)
			continue
		}
		var format beep.Format
		s, format, err = wav.Decode(f)
		if err != nil {
			fmt.Println("Failed to decode sound", err)
			f.Close()
			s = nil
			continue
		}
		p.lock.Lock()
		p.playingUntil = time.Now().Add(time.Duration(s.Len()) * time.Second / time.Duration(format.SampleRate))
		p.lock.Unlock()
		ctrl = &beep.Ctrl{Streamer: s}
		speaker.Play(ctrl)
	}
}

// Play queues a sound without blocking the caller for more than a moment.
func (p *Player) Play(path string) {
	defer func() {
		recover() // Don't die if the player is already closed.
	}()
	select {
	case p.soundsToPlay <- path:
	case <-time.After(10 * time.Millisecond):
		fmt.Println("Timed out trying to play sound: ", path)
	}
}

// Close stops accepting sounds and then waits, for at most MaxDrain, for whatever is
// playing to finish.
func (p *Player) Close() {
	p.closeOnce.Do(func() {
		close(p.soundsToPlay)
	})
	<-p.done
	if d := p.remaining(time.Now()); d > 0 {
		time.Sleep(d)
	}
}

// remaining is how much longer Close should wait at now.
func (p *Player) remaining(now time.Time) time.Duration {
	p.lock.Lock()
	defer p.lock.Unlock()
	d := p.playingUntil.Sub(now)
	if d > MaxDrain {
		d = MaxDrain
	}
	return d
}
