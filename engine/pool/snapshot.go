package pool

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/go-gl/mathgl/mgl32"
)

// MeshView is a mesh's location inside the structural buffers of one snapshot.
// Offsets are only meaningful together with the snapshot that produced them.
type MeshView struct {
	Name         string
	VertexOffset uint32
	VertexCount  uint32
	IndexOffset  uint32
	IndexCount   uint32
	// Center and Radius bound the mesh in model space.
	Center mgl32.Vec3
	Radius float32
}

// Snapshot is an immutable, internally consistent view of the structural GPU resources.
// A rebuild publishes a new Snapshot only after every allocation succeeded.
type Snapshot struct {
	// Generation counts successful rebuilds; zero means nothing has been built yet.
	Generation uint64

	VertexBuffer   device.Buffer
	IndexBuffer    device.Buffer
	MaterialBuffer device.Buffer
	TextureArrays  [MaxTextureArrays]device.Texture

	// Meshes holds every known mesh in registry order.
	Meshes        []MeshView
	meshIndex     map[string]int
	materialIndex map[string]int32

	TotalVertices  uint32
	TotalIndices   uint32
	TotalMaterials uint32
	TotalLayers    uint32
}

func emptySnapshot() *Snapshot {
	return &Snapshot{meshIndex: map[string]int{}, materialIndex: map[string]int32{}}
}

// Ready reports whether the snapshot has geometry that can be drawn.
func (s *Snapshot) Ready() bool {
	return s.VertexBuffer != nil && s.IndexBuffer != nil && len(s.Meshes) > 0
}

// Mesh returns the view of a known mesh.
func (s *Snapshot) Mesh(name string) (MeshView, bool) {
	i, ok := s.meshIndex[name]
	if !ok {
		return MeshView{}, false
	}
	return s.Meshes[i], true
}

// MaterialIndex returns the material's index in MaterialBuffer, or NoMaterial when unknown.
func (s *Snapshot) MaterialIndex(name string) int32 {
	if i, ok := s.materialIndex[name]; ok {
		return i
	}
	return NoMaterial
}

func (s *Snapshot) release() {
	for _, b := range []device.Buffer{s.VertexBuffer, s.IndexBuffer, s.MaterialBuffer} {
		if b != nil {
			b.Release()
		}
	}
	for _, t := range s.TextureArrays {
		if t != nil {
			t.Release()
		}
	}
}
