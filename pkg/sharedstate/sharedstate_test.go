package sharedstate

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroValueCellsAreNeutral(t *testing.T) {
	var s State
	assert.Equal(t, 0, s.TargetX.Load())
	assert.Equal(t, 0.0, s.PanOutput.Load())
	p, i, d := s.TiltGains.Load()
	assert.Equal(t, [3]float64{0, 0, 0}, [3]float64{p, i, d})
}

func TestFloatKeepsExactValue(t *testing.T) {
	var c Float
	for _, v := range []float64{4.5, -95, math.SmallestNonzeroFloat64, math.Inf(-1)} {
		c.Store(v)
		assert.Equal(t, v, c.Load())
	}
}

func TestInitResetsCells(t *testing.T) {
	var s State
	s.TargetX.Store(30)
	s.CenterY.Store(240)
	s.TiltOutput.Store(12.5)

	s.Init(GainValues{0.09, 0.08, 0.002}, GainValues{0.11, 0.10, 0.002})

	assert.Equal(t, 0, s.TargetX.Load())
	assert.Equal(t, 0, s.CenterY.Load())
	assert.Equal(t, 0.0, s.TiltOutput.Load())
	p, i, d := s.PanGains.Load()
	assert.Equal(t, [3]float64{0.09, 0.08, 0.002}, [3]float64{p, i, d})
	p, i, d = s.TiltGains.Load()
	assert.Equal(t, [3]float64{0.11, 0.10, 0.002}, [3]float64{p, i, d})
}

func TestAxisViewsPointAtTheRightCells(t *testing.T) {
	var s State
	pan, tilt := s.Pan(), s.Tilt()

	s.TargetX.Store(1)
	s.CenterX.Store(2)
	s.TargetY.Store(3)
	s.CenterY.Store(4)
	pan.Output.Store(5)
	tilt.Output.Store(6)

	require.Equal(t, 1, pan.Target.Load())
	require.Equal(t, 2, pan.Center.Load())
	require.Equal(t, 3, tilt.Target.Load())
	require.Equal(t, 4, tilt.Center.Load())
	require.Equal(t, 5.0, s.PanOutput.Load())
	require.Equal(t, 6.0, s.TiltOutput.Load())
	require.Same(t, &s.PanGains, pan.Gains)
	require.Same(t, &s.TiltGains, tilt.Gains)
}

// One writer, several readers, run with -race.
func TestConcurrentSingleWriter(t *testing.T) {
	var c Float
	var wg sync.WaitGroup
	const n = 10000

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= n; i++ {
			c.Store(float64(i))
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := 0.0
			for i := 0; i < n; i++ {
				v := c.Load()
				if v < last {
					t.Errorf("cell went backwards: %v after %v", v, last)
					return
				}
				last = v
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, float64(n), c.Load())
}
