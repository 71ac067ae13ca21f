package scene

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/game_object"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Drawable is one mesh of one enabled object, ready to be turned into an instance record.
type Drawable struct {
	ObjectID     uuid.UUID
	MeshName     string
	MaterialName string
	World        mgl32.Mat4
}

// Scene holds the placed game objects and announces membership changes to its sinks.
// It is the renderer's drawable source. Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// CullingDisabled reports whether frustum culling is skipped in Drawables.
	CullingDisabled() bool

	// SetCullingDisabled enables or disables frustum culling.
	SetCullingDisabled(disabled bool)

	// Subscribe registers a sink for ModelAdded / ModelRemoved. Objects already in the scene
	// are announced to the new sink immediately.
	//
	// Parameters:
	//   - sink: the receiver of membership changes
	Subscribe(sink MutationSink)

	// Add places an object in the scene and announces its model.
	//
	// Parameters:
	//   - obj: the object to add
	//
	// Returns:
	//   - uuid.UUID: the object's ID
	Add(obj game_object.GameObject) uuid.UUID

	// Get returns the object with the given ID, or nil.
	Get(id uuid.UUID) game_object.GameObject

	// Remove takes an object out of the scene and announces its model's removal.
	//
	// Returns:
	//   - bool: false if the ID was not in the scene
	Remove(id uuid.UUID) bool

	// Count returns the number of objects in the scene.
	Count() int

	// Clear removes every object.
	Clear()

	// Update advances every object's animation by dt seconds.
	Update(dt float32)

	// Drawables appends one Drawable per part of every enabled, visible object to dst, in insertion order.
	//
	// Parameters:
	//   - dst: slice to append to, reused across frames
	//   - frustum: the camera frustum, or nil to skip culling
	//
	// Returns:
	//   - []Drawable: the extended slice
	Drawables(dst []Drawable, frustum *common.Frustum) []Drawable
}

type scene struct {
	mu              *sync.Mutex
	name            string
	active          bool
	cullingDisabled bool

	objects []game_object.GameObject
	index   map[uuid.UUID]int
	sinks   []MutationSink
}

var _ Scene = &scene{}

// NewScene creates an empty, active Scene.
//
// Parameters:
//   - name: the scene identifier
//   - options: builder options
//
// Returns:
//   - Scene: the scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:     &sync.Mutex{},
		name:   name,
		active: true,
		index:  make(map[uuid.UUID]int),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) CullingDisabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cullingDisabled
}

func (s *scene) SetCullingDisabled(disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cullingDisabled = disabled
}

func (s *scene) Subscribe(sink MutationSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
	for _, obj := range s.objects {
		if pairs := PairsOf(obj.Model()); len(pairs) > 0 {
			sink.OnModelAdded(ModelAdded{ObjectID: obj.ID(), Pairs: pairs})
		}
	}
}

func (s *scene) Add(obj game_object.GameObject) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := obj.ID()
	if _, exists := s.index[id]; exists {
		return id
	}
	s.index[id] = len(s.objects)
	s.objects = append(s.objects, obj)

	if pairs := PairsOf(obj.Model()); len(pairs) > 0 {
		msg := ModelAdded{ObjectID: id, Pairs: pairs}
		for _, sink := range s.sinks {
			sink.OnModelAdded(msg)
		}
	}
	return id
}

func (s *scene) Get(id uuid.UUID) game_object.GameObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[id]; ok {
		return s.objects[i]
	}
	return nil
}

func (s *scene) Remove(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(id)
}

func (s *scene) removeLocked(id uuid.UUID) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	obj := s.objects[i]
	s.objects = append(s.objects[:i], s.objects[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.objects); j++ {
		s.index[s.objects[j].ID()] = j
	}

	if pairs := PairsOf(obj.Model()); len(pairs) > 0 {
		msg := ModelRemoved{ObjectID: id, Pairs: pairs}
		for _, sink := range s.sinks {
			sink.OnModelRemoved(msg)
		}
	}
	return true
}

func (s *scene) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.objects) > 0 {
		s.removeLocked(s.objects[len(s.objects)-1].ID())
	}
}

func (s *scene) Update(dt float32) {
	s.mu.Lock()
	objects := append([]game_object.GameObject(nil), s.objects...)
	s.mu.Unlock()
	for _, obj := range objects {
		obj.Update(dt)
	}
}

func (s *scene) Drawables(dst []Drawable, frustum *common.Frustum) []Drawable {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return dst
	}
	for _, obj := range s.objects {
		if !obj.Enabled() || obj.Model() == nil {
			continue
		}
		world := obj.WorldMatrix()
		if frustum != nil && !s.cullingDisabled && !visible(frustum, obj, world) {
			continue
		}
		for _, p := range obj.Model().Parts() {
			if p.Mesh == nil {
				continue
			}
			dst = append(dst, Drawable{
				ObjectID:     obj.ID(),
				MeshName:     p.MeshName(),
				MaterialName: p.MaterialName(),
				World:        world,
			})
		}
	}
	return dst
}

// visible tests the model's bounding sphere, moved into world space, against the frustum.
func visible(f *common.Frustum, obj game_object.GameObject, world mgl32.Mat4) bool {
	center, radius := obj.Model().BoundingSphere()
	if radius == 0 {
		return true
	}
	c := world.Mul4x1(center.Vec4(1)).Vec3()
	scale := obj.Scale()
	maxScale := scale.X()
	if scale.Y() > maxScale {
		maxScale = scale.Y()
	}
	if scale.Z() > maxScale {
		maxScale = scale.Z()
	}
	return f.IntersectsSphere(c, radius*maxScale)
}
