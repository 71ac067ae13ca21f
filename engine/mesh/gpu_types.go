package mesh

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
)

// GPUVertexSize is the byte stride of one GPUVertex in the pooled vertex buffer.
const GPUVertexSize = 64

// GPUVertex is the GPU-aligned representation of a single interleaved mesh vertex.
// Matches the VertexInput struct of the geometry and shadow shaders.
// Size: 64 bytes, no padding.
type GPUVertex struct {
	Position [3]float32 // offset  0, location 0
	Normal   [3]float32 // offset 12, location 1
	TexCoord [2]float32 // offset 24, location 2
	Color    [4]float32 // offset 32, location 3
	Tangent  [4]float32 // offset 48, location 4
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the vertex into a 64-byte little-endian buffer.
func (g *GPUVertex) Marshal() []byte {
	return g.AppendTo(make([]byte, 0, GPUVertexSize))
}

// AppendTo appends the serialized vertex to dst, letting callers pack many vertices into one slice.
func (g *GPUVertex) AppendTo(dst []byte) []byte {
	for _, f := range g.Position {
		dst = common.PutFloat32(dst, f)
	}
	for _, f := range g.Normal {
		dst = common.PutFloat32(dst, f)
	}
	for _, f := range g.TexCoord {
		dst = common.PutFloat32(dst, f)
	}
	for _, f := range g.Color {
		dst = common.PutFloat32(dst, f)
	}
	for _, f := range g.Tangent {
		dst = common.PutFloat32(dst, f)
	}
	return dst
}

// VertexLayout returns the pipeline vertex buffer layout matching GPUVertex.
func VertexLayout() pipeline.VertexLayout {
	return pipeline.VertexLayout{
		Stride: GPUVertexSize,
		Attributes: []pipeline.VertexAttribute{
			{Location: 0, Offset: 0, Format: pipeline.VertexFormatFloat32x3},
			{Location: 1, Offset: 12, Format: pipeline.VertexFormatFloat32x3},
			{Location: 2, Offset: 24, Format: pipeline.VertexFormatFloat32x2},
			{Location: 3, Offset: 32, Format: pipeline.VertexFormatFloat32x4},
			{Location: 4, Offset: 48, Format: pipeline.VertexFormatFloat32x4},
		},
	}
}
