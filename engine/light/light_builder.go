package light

import "github.com/go-gl/mathgl/mgl32"

// LightBuilderOption is a function that configures a DirectionalLight during construction.
type LightBuilderOption func(*DirectionalLight)

// WithPosition is an option builder that sets the world-space position of the light.
// The light shines from this point toward the origin.
//
// Parameters:
//   - x: the x position component
//   - y: the y position component
//   - z: the z position component
//
// Returns:
//   - LightBuilderOption: a function that applies the position option to a light
func WithPosition(x, y, z float32) LightBuilderOption {
	return func(l *DirectionalLight) {
		l.Position = mgl32.Vec3{x, y, z}
	}
}

// WithColor is an option builder that sets the RGB color of the light.
//
// Parameters:
//   - r: the red color component
//   - g: the green color component
//   - b: the blue color component
//
// Returns:
//   - LightBuilderOption: a function that applies the color option to a light
func WithColor(r, g, b float32) LightBuilderOption {
	return func(l *DirectionalLight) {
		l.Color = mgl32.Vec3{r, g, b}
	}
}

// WithIntensity is an option builder that sets the scalar intensity multiplier.
//
// Parameters:
//   - intensity: the intensity value
//
// Returns:
//   - LightBuilderOption: a function that applies the intensity option to a light
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *DirectionalLight) {
		l.Intensity = intensity
	}
}

// WithAmbient sets the ambient color and intensity added to every lit pixel.
func WithAmbient(r, g, b, intensity float32) LightBuilderOption {
	return func(l *DirectionalLight) {
		l.AmbientColor = mgl32.Vec3{r, g, b}
		l.AmbientIntensity = intensity
	}
}

// WithSpecularPower sets the specular exponent.
func WithSpecularPower(power float32) LightBuilderOption {
	return func(l *DirectionalLight) {
		l.SpecularPower = power
	}
}
