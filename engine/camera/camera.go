package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type cameraImpl struct {
	mu *sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3
	up       mgl32.Vec3

	fov    float32
	aspect float32
	near   float32
	far    float32

	view       mgl32.Mat4
	projection mgl32.Mat4
	viewProj   mgl32.Mat4

	controller Controller
}

// Camera is a perspective camera. It holds the perspective settings and recomputes its matrices
// whenever a setting changes or Update pulls a new position and target from an attached Controller.
type Camera interface {
	// Position returns the world-space eye position.
	Position() mgl32.Vec3

	// Target returns the world-space look-at point.
	Target() mgl32.Vec3

	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// View returns the current view matrix.
	View() mgl32.Mat4

	// Projection returns the current projection matrix with [0, 1] clip depth.
	Projection() mgl32.Mat4

	// ViewProjection returns projection * view.
	ViewProjection() mgl32.Mat4

	// Frustum returns the world-space view frustum of the current view-projection.
	Frustum() common.Frustum

	// SetLookAt places the eye at position looking at target. An attached controller overrides
	// this on the next Update.
	SetLookAt(position, target mgl32.Vec3)

	// SetFov sets the field of view in radians and recomputes matrices.
	SetFov(fov float32)

	// SetAspect sets the aspect ratio (width / height) and recomputes matrices.
	// Non-positive values are ignored.
	SetAspect(aspect float32)

	// SetClipPlanes sets the near and far distances. It reports false and keeps the previous planes
	// unless 0 < near < far.
	//
	// Parameters:
	//   - near: near plane distance
	//   - far: far plane distance
	//
	// Returns:
	//   - bool: whether the planes were applied
	SetClipPlanes(near, far float32) bool

	// Controller returns the attached Controller or nil.
	Controller() Controller

	// SetController attaches a Controller to the camera.
	SetController(ctrl Controller)

	// Update pulls position and target from the controller and recomputes matrices.
	// It does nothing without a controller.
	Update()

	// ToGPU builds the camera uniform for a viewport of width x height pixels.
	ToGPU(width, height int) GPUCamera
}

var _ Camera = &cameraImpl{}

// NewCamera creates a camera at (0, 2, 8) looking at the origin with a 45 degree field of view.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:       &sync.Mutex{},
		position: mgl32.Vec3{0, 2, 8},
		up:       mgl32.Vec3{0, 1, 0},
		fov:      mgl32.DegToRad(45),
		aspect:   16.0 / 9.0,
		near:     0.1,
		far:      500,
	}
	for _, option := range options {
		option(c)
	}
	if c.controller != nil {
		c.position, c.target = c.controller.Position(), c.controller.Target()
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Target() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) View() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *cameraImpl) Projection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) ViewProjection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProj
}

func (c *cameraImpl) Frustum() common.Frustum {
	c.mu.Lock()
	defer c.mu.Unlock()
	return common.ExtractFrustum(c.viewProj)
}

func (c *cameraImpl) SetLookAt(position, target mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position, c.target = position, target
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 || math32.IsNaN(aspect) || math32.IsInf(aspect, 0) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetClipPlanes(near, far float32) bool {
	if near <= 0 || far <= near {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near, c.far = near, far
	c.updateMatrices()
	return true
}

func (c *cameraImpl) Controller() Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) SetController(ctrl Controller) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return
	}
	c.position, c.target = c.controller.Position(), c.controller.Target()
	c.updateMatrices()
}

func (c *cameraImpl) ToGPU(width, height int) GPUCamera {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GPUCamera{
		View:        c.view,
		Projection:  c.projection,
		ViewProj:    c.viewProj,
		InvViewProj: c.viewProj.Inv(),
		Position:    c.position,
		Near:        c.near,
		Viewport:    [2]float32{float32(width), float32(height)},
		Far:         c.far,
	}
}

// updateMatrices recalculates view, projection and view-projection. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	c.view = mgl32.LookAtV(c.position, c.target, c.up)
	c.projection = common.PerspectiveZO(c.fov, c.aspect, c.near, c.far)
	c.viewProj = c.projection.Mul4(c.view)
}
