package mesh

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triangle() *Record {
	return NewRecord("tri",
		WithPositions([][3]float32{{-1, 0, 0}, {1, 0, 0}, {0, 2, 0}}),
		WithUVs([][2]float32{{0, 0}, {1, 0}, {0.5, 1}}),
		WithIndices([]uint32{0, 1, 2}),
	)
}

func TestValidate(t *testing.T) {
	require.NoError(t, triangle().Validate())

	cases := map[string]func(r *Record){
		"no positions":        func(r *Record) { r.Positions = nil },
		"partial triangle":    func(r *Record) { r.Indices = []uint32{0, 1} },
		"index out of range":  func(r *Record) { r.Indices = []uint32{0, 1, 3} },
		"short normal stream": func(r *Record) { r.Normals = [][3]float32{{0, 1, 0}} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := triangle()
			mutate(r)
			assert.True(t, errors.Is(r.Validate(), ErrInvalidMesh))
		})
	}
}

func TestVerticesDefaults(t *testing.T) {
	r := triangle()
	verts := r.Vertices()

	require.Len(t, verts, 3)
	assert.Equal(t, uint32(3), r.VertexCount())
	assert.Equal(t, uint32(3), r.IndexCount())
	assert.Equal(t, [3]float32{0, 1, 0}, verts[0].Normal)
	assert.Equal(t, [4]float32{1, 1, 1, 1}, verts[1].Color)
	assert.Equal(t, [2]float32{0.5, 1}, verts[2].TexCoord)
}

func TestGPUVertexMarshal(t *testing.T) {
	v := GPUVertex{Position: [3]float32{1, 2, 3}, Tangent: [4]float32{0, 0, 0, -1}}
	buf := v.Marshal()

	require.Len(t, buf, GPUVertexSize)
	assert.Equal(t, GPUVertexSize, v.Size())
	assert.Equal(t, float32(2), math.Float32frombits(binary.LittleEndian.Uint32(buf[4:])))
	assert.Equal(t, float32(-1), math.Float32frombits(binary.LittleEndian.Uint32(buf[60:])))

	layout := VertexLayout()
	assert.Equal(t, uint64(GPUVertexSize), layout.Stride)
	assert.Len(t, layout.Attributes, 5)
}

func TestBoundingSphere(t *testing.T) {
	center, radius := triangle().BoundingSphere()
	assert.InDelta(t, 0, center.X(), 1e-6)
	assert.InDelta(t, 1, center.Y(), 1e-6)
	assert.InDelta(t, math.Sqrt2, radius, 1e-5)
}
