package fixed

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Angle encodes a full turn in 256 steps, so -128..127 covers -180..+180
// degrees. Arithmetic on the underlying int8 wraps around the turn.
type Angle int8

const (
	QuarterTurn Angle = 64
	HalfTurn    Angle = -128
)

var sineTable = sync.OnceValue(func() *[256]float32 {
	var tbl [256]float32
	for i := range tbl {
		tbl[i] = float32(math.Sin(float64(i) * 2 * math.Pi / 256))
	}
	return &tbl
})

func (a Angle) Sin() float32 {
	return sineTable()[uint8(a)]
}

// Cos uses the quarter-turn phase shift: cos(x) = sin(64 - x).
func (a Angle) Cos() float32 {
	return sineTable()[uint8(QuarterTurn-a)]
}

func (a Angle) Degrees() float32 {
	return float32(a) * 360 / 256
}

func (a Angle) Radians() float32 {
	return mgl32.DegToRad(a.Degrees())
}

// AngleFromDegrees rounds to the nearest step and wraps into one turn.
func AngleFromDegrees(deg float32) Angle {
	steps := int64(math.Round(float64(deg) * 256 / 360))
	return Angle(int8(uint8(steps & 0xff)))
}

func AngleFromRadians(rad float32) Angle {
	return AngleFromDegrees(mgl32.RadToDeg(rad))
}
