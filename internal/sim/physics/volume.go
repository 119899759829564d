package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"voxelcore.ai/internal/sim/fixed"
)

type Kind uint8

const (
	AABB Kind = iota
	Sphere
	Capsule
)

func (k Kind) String() string {
	switch k {
	case AABB:
		return "aabb"
	case Sphere:
		return "sphere"
	case Capsule:
		return "capsule"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Volume is a bounding shape centered on its body's position.
//
//	AABB:    Dimensions are the half-extents.
//	Sphere:  Dimensions.X is the radius (mirrored into Y and Z).
//	Capsule: Dimensions.X is the radius, Dimensions.Y the half-height.
//
// The zero Volume is a zero-extent AABB; build real shapes with the
// constructors below.
type Volume struct {
	Kind       Kind
	Dimensions fixed.Dimension
}

func NewAABB(half fixed.Dimension) Volume {
	return Volume{Kind: AABB, Dimensions: half}
}

func NewSphere(radius fixed.Extent) Volume {
	return Volume{Kind: Sphere, Dimensions: fixed.Dimension{X: radius, Y: radius, Z: radius}}
}

func NewCapsule(radius, halfHeight fixed.Extent) Volume {
	return Volume{Kind: Capsule, Dimensions: fixed.Dimension{X: radius, Y: halfHeight, Z: radius}}
}

func (v Volume) Radius() fixed.Extent { return v.Dimensions.X }

// Body is the minimal kinematic object physics works on. Bodies do not
// reference each other.
type Body struct {
	Position fixed.Position
	Velocity fixed.Velocity
	Mass     fixed.Extent
	Volume   Volume

	// Sub-unit leftovers of Update and Impulse, so that splitting a step
	// into smaller ones never loses distance.
	posCarry fixed.Remainder
	velCarry fixed.Remainder
}

// Model is the body's translation as a float matrix for render collaborators.
func (b *Body) Model() mgl32.Mat4 {
	p := b.Position.Vec3()
	return mgl32.Translate3D(p.X(), p.Y(), p.Z())
}
