package model

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/mesh"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Part pairs one mesh with the material it is drawn with.
// A nil Material draws the mesh with no material lookup.
type Part struct {
	Mesh     *mesh.Record
	Material *material.Record
}

// MeshName returns the mesh's registry key.
func (p Part) MeshName() string {
	if p.Mesh == nil {
		return ""
	}
	return p.Mesh.Name
}

// MaterialName returns the material's registry key, or "" when the part has no material.
func (p Part) MaterialName() string {
	if p.Material == nil {
		return ""
	}
	return p.Material.Name
}

// model is the implementation of the Model interface.
type model struct {
	name           string
	parts          []Part
	boundingCenter mgl32.Vec3
	boundingRadius float32
}

// Model defines the interface for a decoded 3D model: a named list of mesh/material parts.
// A Model is produced by the Loader and placed in a scene through game objects; several
// objects may share one Model and its parts are reference counted by the resource pool.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Parts retrieves the mesh/material pairs of this model.
	//
	// Returns:
	//   - []Part: the parts, in draw order
	Parts() []Part

	// BoundingSphere returns a model-space sphere enclosing every part. Used by frustum culling.
	//
	// Returns:
	//   - mgl32.Vec3: the sphere center
	//   - float32: the sphere radius
	BoundingSphere() (mgl32.Vec3, float32)
}

var _ Model = &model{}

// NewModel creates a new Model instance with the specified options applied.
//
// Parameters:
//   - name: the model identifier
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new instance of Model configured with the provided options
func NewModel(name string, options ...ModelBuilderOption) Model {
	m := &model{name: name}
	for _, opt := range options {
		opt(m)
	}
	m.computeBounds()
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Parts() []Part {
	return m.parts
}

func (m *model) BoundingSphere() (mgl32.Vec3, float32) {
	return m.boundingCenter, m.boundingRadius
}

// computeBounds merges the parts' spheres into one enclosing sphere.
func (m *model) computeBounds() {
	first := true
	for _, p := range m.parts {
		if p.Mesh == nil || len(p.Mesh.Positions) == 0 {
			continue
		}
		c, r := p.Mesh.BoundingSphere()
		if first {
			m.boundingCenter, m.boundingRadius = c, r
			first = false
			continue
		}
		d := c.Sub(m.boundingCenter).Len()
		if d+r <= m.boundingRadius {
			continue
		}
		if d+m.boundingRadius <= r {
			m.boundingCenter, m.boundingRadius = c, r
			continue
		}
		radius := (d + r + m.boundingRadius) * 0.5
		if d > 0 {
			m.boundingCenter = m.boundingCenter.Add(c.Sub(m.boundingCenter).Mul((radius - m.boundingRadius) / d))
		}
		m.boundingRadius = math32.Max(radius, m.boundingRadius)
	}
}
