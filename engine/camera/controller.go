package camera

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Controller owns the camera's positional state. It orbits a target on spherical coordinates
// (radius, azimuth, elevation) and pans position and target together along the camera's local axes.
type Controller interface {
	// Position returns the camera's world-space position.
	Position() mgl32.Vec3

	// Target returns the orbit pivot and look-at point.
	Target() mgl32.Vec3

	// SetTarget moves the pivot and recomputes position from the spherical coordinates.
	SetTarget(target mgl32.Vec3)

	// Orbit rotates around the target by the given angle deltas in radians, scaled by the orbit speed.
	// Elevation is clamped to the configured range.
	//
	// Parameters:
	//   - dAzimuth: horizontal delta, positive orbits right
	//   - dElevation: vertical delta, positive orbits up
	Orbit(dAzimuth, dElevation float32)

	// Zoom moves toward (positive delta) or away from the target, clamped to the radius range.
	Zoom(delta float32)

	// Pan translates position and target along the local right, up and forward axes, scaled by the pan speed.
	Pan(right, up, forward float32)

	Radius() float32
	Azimuth() float32
	Elevation() float32
}

type controllerImpl struct {
	mu *sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3

	radius    float32
	azimuth   float32
	elevation float32

	minRadius, maxRadius       float32
	minElevation, maxElevation float32

	orbitSpeed float32
	zoomSpeed  float32
	panSpeed   float32
}

var _ Controller = &controllerImpl{}

// NewController creates an orbit controller looking at the origin from 10 units away at 30 degrees elevation.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - Controller: the newly created controller
func NewController(options ...ControllerBuilderOption) Controller {
	cc := &controllerImpl{
		mu:           &sync.Mutex{},
		radius:       10,
		elevation:    math32.Pi / 6,
		minRadius:    1,
		maxRadius:    500,
		minElevation: -math32.Pi/2 + 0.05,
		maxElevation: math32.Pi/2 - 0.05,
		orbitSpeed:   1,
		zoomSpeed:    1,
		panSpeed:     1,
	}
	for _, option := range options {
		option(cc)
	}
	cc.radius = mgl32.Clamp(cc.radius, cc.minRadius, cc.maxRadius)
	cc.elevation = mgl32.Clamp(cc.elevation, cc.minElevation, cc.maxElevation)
	cc.updatePosition()
	return cc
}

// updatePosition recomputes the position from spherical coordinates. Caller must hold the mutex.
func (cc *controllerImpl) updatePosition() {
	sinE, cosE := math32.Sincos(cc.elevation)
	sinA, cosA := math32.Sincos(cc.azimuth)
	cc.position = cc.target.Add(mgl32.Vec3{cc.radius * cosE * sinA, cc.radius * sinE, cc.radius * cosE * cosA})
}

// localAxes returns right, up and forward consistent with a +Y up look-at. All three are zero when
// position and target coincide or the view is vertical. Caller must hold the mutex.
func (cc *controllerImpl) localAxes() (right, up, forward mgl32.Vec3) {
	back := cc.position.Sub(cc.target)
	if back.Len() < 1e-8 {
		return
	}
	back = back.Normalize()
	right = mgl32.Vec3{0, 1, 0}.Cross(back)
	if right.Len() < 1e-8 {
		return mgl32.Vec3{}, mgl32.Vec3{}, mgl32.Vec3{}
	}
	right = right.Normalize()
	return right, back.Cross(right), back.Mul(-1)
}

func (cc *controllerImpl) Position() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *controllerImpl) Target() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *controllerImpl) SetTarget(target mgl32.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = target
	cc.updatePosition()
}

func (cc *controllerImpl) Orbit(dAzimuth, dElevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth += dAzimuth * cc.orbitSpeed
	cc.elevation = mgl32.Clamp(cc.elevation+dElevation*cc.orbitSpeed, cc.minElevation, cc.maxElevation)
	cc.updatePosition()
}

func (cc *controllerImpl) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = mgl32.Clamp(cc.radius-delta*cc.zoomSpeed, cc.minRadius, cc.maxRadius)
	cc.updatePosition()
}

func (cc *controllerImpl) Pan(right, up, forward float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	r, u, f := cc.localAxes()
	offset := r.Mul(right * cc.panSpeed).Add(u.Mul(up * cc.panSpeed)).Add(f.Mul(forward * cc.panSpeed))
	cc.target = cc.target.Add(offset)
	cc.position = cc.position.Add(offset)
}

func (cc *controllerImpl) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *controllerImpl) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *controllerImpl) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}
