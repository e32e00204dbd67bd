package servo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeContains(t *testing.T) {
	r := DefaultRange
	for _, v := range []float64{-90, -45.5, 0, 89.99, 90} {
		assert.True(t, r.Contains(v), "%v should be in range", v)
	}
	for _, v := range []float64{-95, -90.001, 90.001, 95} {
		assert.False(t, r.Contains(v), "%v should be out of range", v)
	}
}

func TestRangeFraction(t *testing.T) {
	r := DefaultRange
	assert.Equal(t, 0.0, r.Fraction(-90))
	assert.Equal(t, 0.5, r.Fraction(0))
	assert.Equal(t, 1.0, r.Fraction(90))
	assert.Equal(t, 1.0, r.Fraction(120))
	assert.Equal(t, 0.0, r.Fraction(-120))
	assert.Equal(t, 0.5, Range{Min: 1, Max: 1}.Fraction(1))
}

func TestParseAxis(t *testing.T) {
	a, err := ParseAxis("pan")
	assert.NoError(t, err)
	assert.Equal(t, Pan, a)
	a, err = ParseAxis("t")
	assert.NoError(t, err)
	assert.Equal(t, Tilt, a)
	_, err = ParseAxis("roll")
	assert.Error(t, err)
	assert.Equal(t, "axis(7)", Axis(7).String())
}
