package game_object

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// gameObject is the implementation of the GameObject interface.
type gameObject struct {
	id      uuid.UUID
	enabled atomic.Bool
	mdl     model.Model

	mu            *sync.Mutex
	position      mgl32.Vec3
	rotation      mgl32.Vec3
	rotationSpeed mgl32.Vec3
	scale         mgl32.Vec3
}

// GameObject is one placed instance of a Model: an identity, a transform and an enabled flag.
// Transform accessors are safe to call from the game goroutine while the renderer reads WorldMatrix.
type GameObject interface {
	// ID retrieves the unique identifier of this object.
	//
	// Returns:
	//   - uuid.UUID: the object ID
	ID() uuid.UUID

	// Enabled reports whether the object is drawn.
	//
	// Returns:
	//   - bool: true if the object is enabled
	Enabled() bool

	// Model retrieves the model this object instances.
	//
	// Returns:
	//   - model.Model: the model, or nil
	Model() model.Model

	// Position retrieves the world-space position.
	Position() mgl32.Vec3

	// Rotation retrieves the Euler rotation in radians (applied X, then Y, then Z).
	Rotation() mgl32.Vec3

	// RotationSpeed retrieves the angular velocity in radians per second applied by Update.
	RotationSpeed() mgl32.Vec3

	// Scale retrieves the per-axis scale.
	Scale() mgl32.Vec3

	// WorldMatrix composes translation * rotation * scale.
	//
	// Returns:
	//   - mgl32.Mat4: the model-to-world matrix
	WorldMatrix() mgl32.Mat4

	// Update advances the rotation by RotationSpeed * dt.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Update(dt float32)

	// SetEnabled sets whether the object is drawn.
	SetEnabled(enabled bool)

	// SetPosition sets the world-space position.
	SetPosition(x, y, z float32)

	// SetRotation sets the Euler rotation in radians.
	SetRotation(rx, ry, rz float32)

	// SetRotationSpeed sets the angular velocity in radians per second.
	SetRotationSpeed(rx, ry, rz float32)

	// SetScale sets the per-axis scale.
	SetScale(sx, sy, sz float32)
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new enabled GameObject with a fresh random ID, unit scale and the
// provided options applied.
//
// Parameters:
//   - options: variadic list of GameObjectBuilderOption to configure the GameObject
//
// Returns:
//   - GameObject: the newly created GameObject
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		id:    uuid.New(),
		mu:    &sync.Mutex{},
		scale: mgl32.Vec3{1, 1, 1},
	}
	obj.enabled.Store(true)
	for _, option := range options {
		option(obj)
	}
	return obj
}

func (g *gameObject) ID() uuid.UUID {
	return g.id
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) Model() model.Model {
	return g.mdl
}

func (g *gameObject) Position() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position
}

func (g *gameObject) Rotation() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rotation
}

func (g *gameObject) RotationSpeed() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rotationSpeed
}

func (g *gameObject) Scale() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scale
}

func (g *gameObject) WorldMatrix() mgl32.Mat4 {
	g.mu.Lock()
	defer g.mu.Unlock()
	t := mgl32.Translate3D(g.position.X(), g.position.Y(), g.position.Z())
	r := mgl32.HomogRotate3DZ(g.rotation.Z()).
		Mul4(mgl32.HomogRotate3DY(g.rotation.Y())).
		Mul4(mgl32.HomogRotate3DX(g.rotation.X()))
	s := mgl32.Scale3D(g.scale.X(), g.scale.Y(), g.scale.Z())
	return t.Mul4(r).Mul4(s)
}

func (g *gameObject) Update(dt float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation = g.rotation.Add(g.rotationSpeed.Mul(dt))
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) SetPosition(x, y, z float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = mgl32.Vec3{x, y, z}
}

func (g *gameObject) SetRotation(rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation = mgl32.Vec3{rx, ry, rz}
}

func (g *gameObject) SetRotationSpeed(rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotationSpeed = mgl32.Vec3{rx, ry, rz}
}

func (g *gameObject) SetScale(sx, sy, sz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scale = mgl32.Vec3{sx, sy, sz}
}
