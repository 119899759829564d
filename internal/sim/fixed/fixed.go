package fixed

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// All scalars carry 8 fractional bits: One is one meter (or one meter per
// tick for Speed).
const (
	FracBits = 8
	One      = 1 << FracBits
)

// Meters is a signed position component.
type Meters int64

// Speed is a signed velocity component.
type Speed int32

// Extent is an unsigned size: half-extent, radius or mass.
type Extent uint32

func MetersFromFloat(f float64) Meters { return Meters(math.Round(f * One)) }
func SpeedFromFloat(f float64) Speed   { return Speed(math.Round(f * One)) }

func ExtentFromFloat(f float64) Extent {
	if f <= 0 {
		return 0
	}
	return Extent(math.Round(f * One))
}

func (m Meters) Float() float64 { return float64(m) / One }
func (s Speed) Float() float64  { return float64(s) / One }
func (e Extent) Float() float64 { return float64(e) / One }

// Over is the distance covered at speed s during dt. The product is taken in
// integer nanoseconds and truncated toward zero. When carry is non-nil the
// truncated part is kept there (in unit-nanoseconds) and added to the next
// call, so a run of steps covers exactly the distance of one step over the
// summed duration.
func (s Speed) Over(dt time.Duration, carry *int64) Meters {
	return Meters(scaleByDuration(int64(s), dt, carry))
}

// Scale is s multiplied by dt in seconds, with the same carry rule as Over.
func (s Speed) Scale(dt time.Duration, carry *int64) Speed {
	return Speed(scaleByDuration(int64(s), dt, carry))
}

func scaleByDuration(v int64, dt time.Duration, carry *int64) int64 {
	sec := int64(dt / time.Second)
	part := v * int64(dt%time.Second)
	if carry != nil {
		part += *carry
		*carry = part % int64(time.Second)
	}
	return v*sec + part/int64(time.Second)
}

// Remainder holds per-axis sub-unit carries for Velocity.Over and
// Velocity.Scale. The zero value carries nothing.
type Remainder struct {
	X, Y, Z int64
}

type Position struct {
	X, Y, Z Meters
}

type Velocity struct {
	X, Y, Z Speed
}

type Dimension struct {
	X, Y, Z Extent
}

func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y, Z: p.Z - o.Z}
}

// Less orders positions z-major: z, then y, then x.
func (p Position) Less(o Position) bool {
	if p.Z != o.Z {
		return p.Z < o.Z
	}
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.X < o.X
}

// Vec3 converts to float meters for render collaborators.
func (p Position) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{float32(p.X.Float()), float32(p.Y.Float()), float32(p.Z.Float())}
}

func (v Velocity) Add(o Velocity) Velocity {
	return Velocity{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Scale multiplies v by dt in seconds. r may be nil.
func (v Velocity) Scale(dt time.Duration, r *Remainder) Velocity {
	x, y, z := r.axes()
	return Velocity{X: v.X.Scale(dt, x), Y: v.Y.Scale(dt, y), Z: v.Z.Scale(dt, z)}
}

// Over integrates the velocity over dt, per axis with the same scalar. r may
// be nil.
func (v Velocity) Over(dt time.Duration, r *Remainder) Position {
	x, y, z := r.axes()
	return Position{X: v.X.Over(dt, x), Y: v.Y.Over(dt, y), Z: v.Z.Over(dt, z)}
}

func (r *Remainder) axes() (x, y, z *int64) {
	if r == nil {
		return nil, nil, nil
	}
	return &r.X, &r.Y, &r.Z
}
