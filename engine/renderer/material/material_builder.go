package material

import "image"

// RecordBuilderOption configures a material Record during construction.
type RecordBuilderOption func(*Record)

// WithBaseColor is an option builder that sets the albedo RGBA factor of the material.
//
// Parameters:
//   - color: the base color as RGBA float32 values
//
// Returns:
//   - RecordBuilderOption: a function that applies the base color option to a material
func WithBaseColor(color [4]float32) RecordBuilderOption {
	return func(r *Record) {
		r.BaseColor = color
	}
}

// WithEmissive is an option builder that sets the emissive RGB factor of the material.
//
// Parameters:
//   - color: linear emissive color
//
// Returns:
//   - RecordBuilderOption: a function that applies the emissive option to a material
func WithEmissive(color [3]float32) RecordBuilderOption {
	return func(r *Record) {
		r.Emissive = color
	}
}

// WithTexture assigns a named image to a slot. A nil image leaves the slot referenced but unsampled.
//
// Parameters:
//   - slot: the slot to fill
//   - name: the texture's identity; equal names share one packed layer
//   - img: the decoded image
//
// Returns:
//   - RecordBuilderOption: a function that applies the texture option to a material
func WithTexture(slot TextureSlot, name string, img image.Image) RecordBuilderOption {
	return func(r *Record) {
		if slot < 0 || slot >= SlotCount {
			return
		}
		r.Textures[slot] = &TextureRef{Name: name, Image: img}
	}
}
