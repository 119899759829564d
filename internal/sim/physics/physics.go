package physics

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"voxelcore.ai/internal/sim/fixed"
)

type CollisionType int

const (
	None CollisionType = iota
	Contact
	Intrusion
)

func (c CollisionType) String() string {
	switch c {
	case None:
		return "none"
	case Contact:
		return "contact"
	case Intrusion:
		return "intrusion"
	default:
		return fmt.Sprintf("collision(%d)", int(c))
	}
}

// Epsilon is the half-width of the touching band, about 1% of a meter.
// Separations inside (-Epsilon, +Epsilon) classify as Contact so that exact
// touching does not flicker between None and Intrusion.
const Epsilon fixed.Extent = 3

// ErrUnsupportedPair means no test exists for the shape combination; the
// accompanying None is not a verified miss.
var ErrUnsupportedPair = errors.New("unsupported collision pair")

var DefaultGravity = fixed.Velocity{Y: -6 * fixed.One}

type Physics struct {
	gravity fixed.Velocity
	log     *log.Logger
}

type Option func(*Physics)

func WithGravity(g fixed.Velocity) Option {
	return func(p *Physics) { p.gravity = g }
}

func WithLogger(l *log.Logger) Option {
	return func(p *Physics) {
		if l != nil {
			p.log = l
		}
	}
}

func New(opts ...Option) *Physics {
	p := &Physics{
		gravity: DefaultGravity,
		log:     log.New(io.Discard, "", 0),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Physics) Gravity() fixed.Velocity { return p.gravity }

type kindPair struct{ a, b Kind }

// Classify reports how a and b relate. Mixed shape pairs return None together
// with an error wrapping ErrUnsupportedPair.
func (p *Physics) Classify(a, b *Body) (CollisionType, error) {
	switch (kindPair{a.Volume.Kind, b.Volume.Kind}) {
	case kindPair{AABB, AABB}:
		return boxBox(a, b), nil
	case kindPair{Sphere, Sphere}:
		return sphereSphere(a, b), nil
	case kindPair{Capsule, Capsule}:
		return capsuleCapsule(a, b), nil
	}
	return None, fmt.Errorf("%w: %v/%v", ErrUnsupportedPair, a.Volume.Kind, b.Volume.Kind)
}

// CheckCollision is Classify with unsupported pairs logged and reported as None.
func (p *Physics) CheckCollision(a, b *Body) CollisionType {
	c, err := p.Classify(a, b)
	if err != nil {
		p.log.Printf("collision: %v", err)
	}
	return c
}

// band classifies a signed separation against the symmetric Epsilon band.
func band(sep int64) CollisionType {
	eps := int64(Epsilon)
	switch {
	case sep >= eps:
		return None
	case sep > -eps:
		return Contact
	default:
		return Intrusion
	}
}

func boxBox(a, b *Body) CollisionType {
	gaps := [3]int64{
		axisGap(a.Position.X, a.Volume.Dimensions.X, b.Position.X, b.Volume.Dimensions.X),
		axisGap(a.Position.Y, a.Volume.Dimensions.Y, b.Position.Y, b.Volume.Dimensions.Y),
		axisGap(a.Position.Z, a.Volume.Dimensions.Z, b.Position.Z, b.Volume.Dimensions.Z),
	}
	out := Intrusion
	for _, g := range gaps {
		switch band(g) {
		case None:
			return None
		case Contact:
			out = Contact
		}
	}
	return out
}

// axisGap is the distance between two intervals on one axis; negative when
// they overlap.
func axisGap(ca fixed.Meters, ha fixed.Extent, cb fixed.Meters, hb fixed.Extent) int64 {
	minA, maxA := int64(ca)-int64(ha), int64(ca)+int64(ha)
	minB, maxB := int64(cb)-int64(hb), int64(cb)+int64(hb)
	return max(minA, minB) - min(maxA, maxB)
}

func sphereSphere(a, b *Body) CollisionType {
	d := a.Position.Sub(b.Position)
	return radial(int64(d.X), int64(d.Y), int64(d.Z), a.Volume.Radius(), b.Volume.Radius())
}

// capsuleCapsule only tests the horizontal circular cross-section; the
// vertical extent is not checked yet.
func capsuleCapsule(a, b *Body) CollisionType {
	d := a.Position.Sub(b.Position)
	return radial(int64(d.X), 0, int64(d.Z), a.Volume.Radius(), b.Volume.Radius())
}

func radial(dx, dy, dz int64, ra, rb fixed.Extent) CollisionType {
	r := int64(ra) + int64(rb)
	return band(dx*dx + dy*dy + dz*dz - r*r)
}

// Update moves b by its velocity over dt.
func (p *Physics) Update(b *Body, dt time.Duration) {
	b.Position = b.Position.Add(b.Velocity.Over(dt, &b.posCarry))
}

func (p *Physics) Accelerate(b *Body, dv fixed.Velocity) {
	b.Velocity = b.Velocity.Add(dv)
}

func (p *Physics) Gravitate(b *Body) {
	p.Accelerate(b, p.gravity)
}

// Impulse applies v scaled by dt, unlike Accelerate which applies it whole.
func (p *Physics) Impulse(b *Body, v fixed.Velocity, dt time.Duration) {
	b.Velocity = b.Velocity.Add(v.Scale(dt, &b.velCarry))
}
