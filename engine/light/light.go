package light

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// DirectionalLight is the single shadow-casting sun light. It sits at Position and always
// shines toward the world origin.
type DirectionalLight struct {
	Position  mgl32.Vec3
	Color     mgl32.Vec3
	Intensity float32

	AmbientColor     mgl32.Vec3
	AmbientIntensity float32

	// SpecularPower is the Blinn-Phong exponent applied in the lighting pass.
	SpecularPower float32
}

// NewDirectionalLight creates a white light above and in front of the origin with a dim ambient term.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - DirectionalLight: the configured light
func NewDirectionalLight(options ...LightBuilderOption) DirectionalLight {
	l := DirectionalLight{
		Position:         mgl32.Vec3{20, 40, 20},
		Color:            mgl32.Vec3{1, 1, 1},
		Intensity:        1,
		AmbientColor:     mgl32.Vec3{1, 1, 1},
		AmbientIntensity: 0.1,
		SpecularPower:    32,
	}
	for _, opt := range options {
		opt(&l)
	}
	return l
}

// Direction returns the normalized direction the light travels, from Position toward the origin.
// A light at the origin has no direction and returns straight down.
func (l DirectionalLight) Direction() mgl32.Vec3 {
	if l.Position.Len() == 0 {
		return mgl32.Vec3{0, -1, 0}
	}
	return l.Position.Mul(-1).Normalize()
}

// Degenerate reports whether the light direction is parallel to +Y, where a look-at with a
// +Y up vector has no defined orientation.
func (l DirectionalLight) Degenerate() bool {
	d := l.Direction()
	return math32.Abs(d.Y()) > 0.9999
}

// View returns the light's view matrix: eye at Position, looking at the origin, up +Y.
// The result is undefined when Degenerate is true.
func (l DirectionalLight) View() mgl32.Mat4 {
	return mgl32.LookAtV(l.Position, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
}

// ToGPU converts the light into its uniform representation.
func (l DirectionalLight) ToGPU() GPUDirectionalLight {
	return GPUDirectionalLight{
		Direction:        l.Direction(),
		Intensity:        l.Intensity,
		Color:            l.Color,
		AmbientIntensity: l.AmbientIntensity,
		AmbientColor:     l.AmbientColor,
		SpecularPower:    l.SpecularPower,
	}
}
