package camera

import "github.com/go-gl/mathgl/mgl32"

// ControllerBuilderOption is a functional option for configuring a Controller.
type ControllerBuilderOption func(*controllerImpl)

// WithRadius sets the initial orbit radius (distance from target).
//
// Parameters:
//   - radius: distance from the orbit target
//
// Returns:
//   - ControllerBuilderOption: functional option to set the radius
func WithRadius(radius float32) ControllerBuilderOption {
	return func(cc *controllerImpl) {
		cc.radius = radius
	}
}

// WithRadiusRange sets the zoom limits.
func WithRadiusRange(minRadius, maxRadius float32) ControllerBuilderOption {
	return func(cc *controllerImpl) {
		cc.minRadius, cc.maxRadius = minRadius, maxRadius
	}
}

// WithAzimuth sets the initial horizontal angle around the Y axis.
//
// Parameters:
//   - azimuth: horizontal angle in radians (0 = +Z axis)
//
// Returns:
//   - ControllerBuilderOption: functional option to set the azimuth
func WithAzimuth(azimuth float32) ControllerBuilderOption {
	return func(cc *controllerImpl) {
		cc.azimuth = azimuth
	}
}

// WithElevation sets the initial vertical angle from the horizontal plane.
//
// Parameters:
//   - elevation: vertical angle in radians (0 = horizontal)
//
// Returns:
//   - ControllerBuilderOption: functional option to set the elevation
func WithElevation(elevation float32) ControllerBuilderOption {
	return func(cc *controllerImpl) {
		cc.elevation = elevation
	}
}

// WithTarget sets the look-at/pivot point.
func WithTarget(target mgl32.Vec3) ControllerBuilderOption {
	return func(cc *controllerImpl) {
		cc.target = target
	}
}

// WithSpeeds sets the orbit, zoom and pan multipliers.
func WithSpeeds(orbit, zoom, pan float32) ControllerBuilderOption {
	return func(cc *controllerImpl) {
		cc.orbitSpeed, cc.zoomSpeed, cc.panSpeed = orbit, zoom, pan
	}
}
