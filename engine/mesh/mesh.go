// Package mesh holds decoded triangle meshes ready to be packed into the scene resource pool.
package mesh

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// ErrInvalidMesh is returned by Validate when the vertex streams or indices are inconsistent.
var ErrInvalidMesh = errors.New("invalid mesh")

// Record is a named triangle mesh. Positions is the authoritative stream; Normals, UVs,
// Tangents and Colors are optional but, when present, must match it in length.
type Record struct {
	Name      string
	Positions [][3]float32
	Normals   [][3]float32
	UVs       [][2]float32
	Tangents  [][4]float32
	Colors    [][4]float32
	Indices   []uint32
}

// NewRecord creates a Record with the given name and options applied.
//
// Parameters:
//   - name: the mesh identifier, used as the pool registry key
//   - options: builder options supplying the vertex streams and indices
//
// Returns:
//   - *Record: the mesh record
func NewRecord(name string, options ...RecordBuilderOption) *Record {
	r := &Record{Name: name}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// VertexCount returns the number of vertices.
func (r *Record) VertexCount() uint32 {
	return uint32(len(r.Positions))
}

// IndexCount returns the number of indices.
func (r *Record) IndexCount() uint32 {
	return uint32(len(r.Indices))
}

// Validate checks stream lengths, triangle completeness and index bounds.
//
// Returns:
//   - error: ErrInvalidMesh wrapped with the offending detail, or nil
func (r *Record) Validate() error {
	n := len(r.Positions)
	if n == 0 {
		return errors.Wrapf(ErrInvalidMesh, "%s: no positions", r.Name)
	}
	if len(r.Indices) == 0 || len(r.Indices)%3 != 0 {
		return errors.Wrapf(ErrInvalidMesh, "%s: index count %d is not a positive multiple of 3", r.Name, len(r.Indices))
	}
	streams := map[string]int{"normals": len(r.Normals), "uvs": len(r.UVs), "tangents": len(r.Tangents), "colors": len(r.Colors)}
	for stream, l := range streams {
		if l != 0 && l != n {
			return errors.Wrapf(ErrInvalidMesh, "%s: %d %s for %d positions", r.Name, l, stream, n)
		}
	}
	for i, idx := range r.Indices {
		if int(idx) >= n {
			return errors.Wrapf(ErrInvalidMesh, "%s: index %d at %d out of range", r.Name, idx, i)
		}
	}
	return nil
}

// Vertices interleaves the streams into GPU vertices. Missing normals default to +Y,
// missing colors to opaque white and missing tangents to +X with positive handedness.
func (r *Record) Vertices() []GPUVertex {
	out := make([]GPUVertex, len(r.Positions))
	for i, p := range r.Positions {
		v := GPUVertex{
			Position: p,
			Normal:   [3]float32{0, 1, 0},
			Color:    [4]float32{1, 1, 1, 1},
			Tangent:  [4]float32{1, 0, 0, 1},
		}
		if i < len(r.Normals) {
			v.Normal = r.Normals[i]
		}
		if i < len(r.UVs) {
			v.TexCoord = r.UVs[i]
		}
		if i < len(r.Colors) {
			v.Color = r.Colors[i]
		}
		if i < len(r.Tangents) {
			v.Tangent = r.Tangents[i]
		}
		out[i] = v
	}
	return out
}

// BoundingSphere returns the center of the axis-aligned bounds and the radius that encloses every position.
//
// Returns:
//   - mgl32.Vec3: sphere center in model space
//   - float32: sphere radius
func (r *Record) BoundingSphere() (mgl32.Vec3, float32) {
	if len(r.Positions) == 0 {
		return mgl32.Vec3{}, 0
	}
	lo := mgl32.Vec3(r.Positions[0])
	hi := lo
	for _, p := range r.Positions[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = math32.Min(lo[k], p[k])
			hi[k] = math32.Max(hi[k], p[k])
		}
	}
	center := lo.Add(hi).Mul(0.5)
	var radius float32
	for _, p := range r.Positions {
		radius = math32.Max(radius, mgl32.Vec3(p).Sub(center).Len())
	}
	return center, radius
}
