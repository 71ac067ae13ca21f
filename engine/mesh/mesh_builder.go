package mesh

// RecordBuilderOption is a functional option for configuring a Record via NewRecord.
type RecordBuilderOption func(*Record)

// WithPositions sets the vertex positions.
//
// Parameters:
//   - positions: model-space positions, one per vertex
//
// Returns:
//   - RecordBuilderOption: a function that applies the positions to a record
func WithPositions(positions [][3]float32) RecordBuilderOption {
	return func(r *Record) {
		r.Positions = positions
	}
}

// WithNormals sets the vertex normals.
func WithNormals(normals [][3]float32) RecordBuilderOption {
	return func(r *Record) {
		r.Normals = normals
	}
}

// WithUVs sets the texture coordinates.
func WithUVs(uvs [][2]float32) RecordBuilderOption {
	return func(r *Record) {
		r.UVs = uvs
	}
}

// WithTangents sets the tangents (xyz) and bitangent handedness (w).
func WithTangents(tangents [][4]float32) RecordBuilderOption {
	return func(r *Record) {
		r.Tangents = tangents
	}
}

// WithColors sets per-vertex RGBA colors.
func WithColors(colors [][4]float32) RecordBuilderOption {
	return func(r *Record) {
		r.Colors = colors
	}
}

// WithIndices sets the triangle list indices.
//
// Parameters:
//   - indices: three indices per triangle, relative to this mesh's first vertex
//
// Returns:
//   - RecordBuilderOption: a function that applies the indices to a record
func WithIndices(indices []uint32) RecordBuilderOption {
	return func(r *Record) {
		r.Indices = indices
	}
}
