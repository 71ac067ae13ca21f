package model

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/mesh"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cube(name string, offset float32) *mesh.Record {
	return mesh.NewRecord(name,
		mesh.WithPositions([][3]float32{{offset - 1, -1, -1}, {offset + 1, 1, 1}, {offset - 1, 1, -1}}),
		mesh.WithIndices([]uint32{0, 1, 2}),
	)
}

func TestParts(t *testing.T) {
	red := material.NewRecord("M_Red")
	m := NewModel("pair", WithPart(cube("Cube", 0), red), WithParts(Part{Mesh: cube("Bare", 0)}))

	require.Len(t, m.Parts(), 2)
	assert.Equal(t, "pair", m.Name())
	assert.Equal(t, "Cube", m.Parts()[0].MeshName())
	assert.Equal(t, "M_Red", m.Parts()[0].MaterialName())
	assert.Equal(t, "", m.Parts()[1].MaterialName())
}

func TestBoundingSphereEnclosesParts(t *testing.T) {
	m := NewModel("spread", WithPart(cube("A", -5), nil), WithPart(cube("B", 5), nil))
	center, radius := m.BoundingSphere()

	for _, p := range m.Parts() {
		for _, pos := range p.Mesh.Positions {
			d := center.Sub([3]float32(pos)).Len()
			assert.LessOrEqual(t, d, radius+1e-4)
		}
	}
	assert.InDelta(t, 0, center.X(), 1e-4)
}
