// Package pool aggregates every mesh, material and texture the scene needs into shared GPU
// buffers. Membership changes are queued and applied once per frame by ReconcileIfDirty,
// which rebuilds the structural buffers wholesale and publishes a new Snapshot.
package pool

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/mesh"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/pkg/errors"
)

// NoMaterial is the material index of drawables whose material is not registered.
const NoMaterial int32 = -1

// ErrRebuildFailed matches every error returned by a failed structural rebuild.
var ErrRebuildFailed = errors.New("structural rebuild failed")

// RebuildError describes a failed rebuild. The previous snapshot stays published.
type RebuildError struct {
	Stage string
	Err   error
}

func (e *RebuildError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrRebuildFailed, e.Stage, e.Err)
}

// Unwrap returns the underlying packing or allocation error.
func (e *RebuildError) Unwrap() error { return e.Err }

// Is matches ErrRebuildFailed.
func (e *RebuildError) Is(target error) bool { return target == ErrRebuildFailed }

type pendingMesh struct {
	name   string
	record *mesh.Record
}

type pendingMaterial struct {
	name   string
	record *material.Record
}

// pool is the implementation of the Pool interface.
type pool struct {
	backend device.Backend
	logger  *slog.Logger
	label   string

	// mu guards the pending queues, the only state producers touch.
	mu              *sync.Mutex
	addMeshes       []pendingMesh
	addMaterials    []pendingMaterial
	removeMeshes    []string
	removeMaterials []string

	// stateMu guards the registries and dirty flag, owned by the render goroutine.
	stateMu   *sync.Mutex
	meshes    *Registry[*mesh.Record]
	materials *Registry[*material.Record]
	dirty     bool

	snapshot atomic.Pointer[Snapshot]
}

// Pool is the scene resource pool.
//
// RequestAdd and RequestRemove may be called from any goroutine; they only enqueue.
// ReconcileIfDirty must be called from the render goroutine once per frame before drawables
// are gathered. Consumers read offsets and indices through Snapshot, which is never half-built.
type Pool interface {
	// MutationSink forwards scene notifications to RequestAdd and RequestRemove.
	scene.MutationSink

	// RequestAdd enqueues one reference to a mesh and one to a material. The records are stored
	// when the names are new and ignored when they are already registered. An empty material
	// name enqueues only the mesh.
	//
	// Parameters:
	//   - meshName: the mesh registry key
	//   - meshData: the decoded mesh
	//   - materialName: the material registry key
	//   - mat: the material record
	RequestAdd(meshName string, meshData *mesh.Record, materialName string, mat *material.Record)

	// RequestRemove enqueues the release of one reference to a mesh and one to a material.
	RequestRemove(meshName, materialName string)

	// ReconcileIfDirty drains the queues (removals before additions) and, when anything
	// changed or a previous rebuild failed, rebuilds the structural buffers.
	//
	// Returns:
	//   - bool: true when a new snapshot was published
	//   - error: a *RebuildError matching ErrRebuildFailed; the previous snapshot stays valid
	ReconcileIfDirty() (bool, error)

	// Snapshot returns the currently published snapshot.
	Snapshot() *Snapshot

	// Mesh returns the view of a mesh in the current snapshot.
	Mesh(name string) (MeshView, bool)

	// MaterialIndex returns the material's buffer index in the current snapshot, or NoMaterial.
	MaterialIndex(name string) int32

	// MeshRefCount returns the registered reference count of a mesh.
	MeshRefCount(name string) int

	// MaterialRefCount returns the registered reference count of a material.
	MaterialRefCount(name string) int

	// Dirty reports whether a rebuild is pending.
	Dirty() bool

	// Release frees the published snapshot's GPU resources.
	Release()
}

var _ Pool = &pool{}

// NewPool creates an empty Pool that allocates through backend.
//
// Parameters:
//   - backend: the graphics backend used for buffer and texture allocation
//   - options: builder options
//
// Returns:
//   - Pool: the resource pool
func NewPool(backend device.Backend, options ...PoolBuilderOption) Pool {
	p := &pool{
		backend:   backend,
		logger:    slog.Default(),
		label:     "pool",
		mu:        &sync.Mutex{},
		stateMu:   &sync.Mutex{},
		meshes:    NewRegistry[*mesh.Record](),
		materials: NewRegistry[*material.Record](),
	}
	for _, opt := range options {
		opt(p)
	}
	p.logger = p.logger.With("component", "pool")
	p.snapshot.Store(emptySnapshot())
	return p
}

func (p *pool) RequestAdd(meshName string, meshData *mesh.Record, materialName string, mat *material.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if meshName != "" {
		p.addMeshes = append(p.addMeshes, pendingMesh{name: meshName, record: meshData})
	}
	if materialName != "" {
		p.addMaterials = append(p.addMaterials, pendingMaterial{name: materialName, record: mat})
	}
}

func (p *pool) RequestRemove(meshName, materialName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if meshName != "" {
		p.removeMeshes = append(p.removeMeshes, meshName)
	}
	if materialName != "" {
		p.removeMaterials = append(p.removeMaterials, materialName)
	}
}

// drain takes ownership of the pending queues.
func (p *pool) drain() ([]pendingMesh, []pendingMaterial, []string, []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	am, amat, rm, rmat := p.addMeshes, p.addMaterials, p.removeMeshes, p.removeMaterials
	p.addMeshes, p.addMaterials, p.removeMeshes, p.removeMaterials = nil, nil, nil, nil
	return am, amat, rm, rmat
}

func (p *pool) ReconcileIfDirty() (bool, error) {
	addMeshes, addMaterials, removeMeshes, removeMaterials := p.drain()

	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	if len(removeMeshes) > 0 || len(removeMaterials) > 0 {
		for _, name := range removeMeshes {
			if _, known := p.meshes.Release(name); !known {
				p.logger.Warn("remove of unknown mesh ignored", "mesh", name)
			}
		}
		for _, name := range removeMaterials {
			if _, known := p.materials.Release(name); !known {
				p.logger.Warn("remove of unknown material ignored", "material", name)
			}
		}
		p.dirty = true
	}

	if len(addMeshes) > 0 || len(addMaterials) > 0 {
		for _, m := range addMeshes {
			if p.meshes.RefCount(m.name) == 0 {
				if err := validMesh(m.name, m.record); err != nil {
					p.logger.Warn("mesh rejected", "mesh", m.name, "error", err)
					continue
				}
			}
			p.meshes.Acquire(m.name, m.record)
		}
		for _, m := range addMaterials {
			if p.materials.RefCount(m.name) == 0 && m.record == nil {
				p.logger.Warn("material rejected", "material", m.name, "error", "nil record")
				continue
			}
			p.materials.Acquire(m.name, m.record)
		}
		p.dirty = true
	}

	if !p.dirty {
		return false, nil
	}

	next, err := p.rebuild()
	if err != nil {
		p.logger.Warn("rebuild failed, keeping previous buffers", "error", err)
		return false, err
	}

	prev := p.snapshot.Swap(next)
	prev.release()
	p.dirty = false
	p.logger.Debug("rebuilt structural buffers",
		"generation", next.Generation,
		"meshes", len(next.Meshes),
		"vertices", next.TotalVertices,
		"indices", next.TotalIndices,
		"materials", next.TotalMaterials,
		"layers", next.TotalLayers,
	)
	return true, nil
}

func validMesh(name string, r *mesh.Record) error {
	if r == nil {
		return errors.Wrapf(mesh.ErrInvalidMesh, "%s: nil record", name)
	}
	return r.Validate()
}

// rebuild lays out every known mesh and material and allocates a complete new snapshot.
// Any allocation failure releases what was created and leaves the published snapshot alone.
func (p *pool) rebuild() (*Snapshot, error) {
	next := emptySnapshot()
	next.Generation = p.snapshot.Load().Generation + 1

	fail := func(stage string, err error) (*Snapshot, error) {
		next.release()
		return nil, &RebuildError{Stage: stage, Err: err}
	}

	var vertices, indices []byte
	p.meshes.Each(func(name string, r *mesh.Record) bool {
		center, radius := r.BoundingSphere()
		view := MeshView{
			Name:         name,
			VertexOffset: next.TotalVertices,
			VertexCount:  r.VertexCount(),
			IndexOffset:  next.TotalIndices,
			IndexCount:   r.IndexCount(),
			Center:       center,
			Radius:       radius,
		}
		for _, v := range r.Vertices() {
			vertices = v.AppendTo(vertices)
		}
		for _, idx := range r.Indices {
			indices = common.PutUint32(indices, idx)
		}
		next.meshIndex[name] = len(next.Meshes)
		next.Meshes = append(next.Meshes, view)
		next.TotalVertices += view.VertexCount
		next.TotalIndices += view.IndexCount
		return true
	})

	var records []*material.Record
	p.materials.Each(func(name string, r *material.Record) bool {
		next.materialIndex[name] = int32(len(records))
		records = append(records, r)
		return true
	})

	packed, err := PackTextures(records)
	if err != nil {
		return fail("pack textures", err)
	}

	var materials []byte
	for _, r := range records {
		g := material.GPUMaterial{BaseColor: r.BaseColor, Emissive: r.Emissive}
		for slot, ref := range r.Textures {
			if ref == nil {
				continue
			}
			if h, ok := packed.Handles[ref.Name]; ok {
				g.Textures[slot] = h
				g.TextureMask |= material.TextureSlot(slot).Mask()
			}
		}
		materials = g.AppendTo(materials)
	}
	next.TotalMaterials = uint32(len(records))
	next.TotalLayers = uint32(packed.LayerCount())

	// Empty sets still get a minimal buffer so the geometry bind group is always complete.
	if len(vertices) == 0 {
		vertices = make([]byte, mesh.GPUVertexSize)
	}
	if len(indices) == 0 {
		indices = make([]byte, 4)
	}
	if len(materials) == 0 {
		materials = make([]byte, material.GPUMaterialSize)
	}

	if next.VertexBuffer, err = p.backend.CreateBuffer(device.BufferDescriptor{
		Label:    p.label + " vertices",
		Usage:    device.BufferUsageVertex | device.BufferUsageCopyDst,
		Contents: vertices,
	}); err != nil {
		return fail("vertex buffer", err)
	}
	if next.IndexBuffer, err = p.backend.CreateBuffer(device.BufferDescriptor{
		Label:    p.label + " indices",
		Usage:    device.BufferUsageIndex | device.BufferUsageCopyDst,
		Contents: indices,
	}); err != nil {
		return fail("index buffer", err)
	}
	if next.MaterialBuffer, err = p.backend.CreateBuffer(device.BufferDescriptor{
		Label:    p.label + " materials",
		Usage:    device.BufferUsageStorage | device.BufferUsageCopyDst,
		Contents: materials,
	}); err != nil {
		return fail("material buffer", err)
	}

	for k := 0; k < MaxTextureArrays; k++ {
		tex, err := p.createTextureArray(k, packed.Layers[k])
		if err != nil {
			return fail(fmt.Sprintf("texture array %d", k), err)
		}
		next.TextureArrays[k] = tex
	}
	return next, nil
}

// createTextureArray uploads one bucket. Empty buckets get a 1x1 white placeholder layer.
func (p *pool) createTextureArray(k int, layers [][]byte) (device.Texture, error) {
	size := uint32(BucketSize(k))
	if len(layers) == 0 {
		size = 1
		layers = [][]byte{{255, 255, 255, 255}}
	}
	tex, err := p.backend.CreateTexture(device.TextureDescriptor{
		Label:  fmt.Sprintf("%s textures %d", p.label, k),
		Width:  size,
		Height: size,
		Layers: uint32(len(layers)),
		Format: common.TextureFormatRGBA8Unorm,
		Usage:  device.TextureUsageSampled | device.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	for i, pixels := range layers {
		if err := p.backend.WriteTextureLayer(tex, uint32(i), pixels); err != nil {
			tex.Release()
			return nil, err
		}
	}
	return tex, nil
}

func (p *pool) Snapshot() *Snapshot {
	return p.snapshot.Load()
}

func (p *pool) Mesh(name string) (MeshView, bool) {
	return p.snapshot.Load().Mesh(name)
}

func (p *pool) MaterialIndex(name string) int32 {
	return p.snapshot.Load().MaterialIndex(name)
}

func (p *pool) MeshRefCount(name string) int {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.meshes.RefCount(name)
}

func (p *pool) MaterialRefCount(name string) int {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.materials.RefCount(name)
}

func (p *pool) Dirty() bool {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.dirty
}

func (p *pool) Release() {
	p.snapshot.Swap(emptySnapshot()).release()
}
