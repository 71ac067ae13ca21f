package scene

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/mesh"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/google/uuid"
)

// Pair is one mesh and the material it is drawn with, named by their registry keys.
type Pair struct {
	MeshName     string
	Mesh         *mesh.Record
	MaterialName string
	Material     *material.Record
}

// ModelAdded announces that an object's model entered the scene.
type ModelAdded struct {
	ObjectID uuid.UUID
	Pairs    []Pair
}

// ModelRemoved announces that an object's model left the scene. Pairs mirror the matching ModelAdded.
type ModelRemoved struct {
	ObjectID uuid.UUID
	Pairs    []Pair
}

// MutationSink receives scene membership changes. Calls are made synchronously, in mutation order,
// from whichever goroutine mutated the scene; implementations should only enqueue.
type MutationSink interface {
	OnModelAdded(msg ModelAdded)
	OnModelRemoved(msg ModelRemoved)
}

// PairsOf flattens a model's parts into pairs.
func PairsOf(m model.Model) []Pair {
	if m == nil {
		return nil
	}
	parts := m.Parts()
	pairs := make([]Pair, 0, len(parts))
	for _, p := range parts {
		if p.Mesh == nil {
			continue
		}
		pairs = append(pairs, Pair{
			MeshName:     p.MeshName(),
			Mesh:         p.Mesh,
			MaterialName: p.MaterialName(),
			Material:     p.Material,
		})
	}
	return pairs
}
