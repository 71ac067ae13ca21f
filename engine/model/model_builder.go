package model

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/mesh"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
)

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithParts is an option builder that appends mesh/material parts to the Model.
//
// Parameters:
//   - parts: the parts to append
//
// Returns:
//   - ModelBuilderOption: a function that applies the parts option to a model
func WithParts(parts ...Part) ModelBuilderOption {
	return func(m *model) {
		m.parts = append(m.parts, parts...)
	}
}

// WithPart is an option builder that appends a single mesh drawn with mat.
func WithPart(msh *mesh.Record, mat *material.Record) ModelBuilderOption {
	return func(m *model) {
		m.parts = append(m.parts, Part{Mesh: msh, Material: mat})
	}
}
