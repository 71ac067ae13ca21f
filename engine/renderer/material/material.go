// Package material holds named surface descriptions and their GPU-side record.
package material

import (
	"image"
)

// TextureSlot names the role a texture plays in a material.
type TextureSlot int

const (
	SlotBaseColor TextureSlot = iota
	SlotNormal
	SlotSpecular
	SlotMetalRoughness

	// SlotCount is the number of texture slots a material can reference.
	SlotCount
)

// String returns the slot name.
func (s TextureSlot) String() string {
	switch s {
	case SlotBaseColor:
		return "base_color"
	case SlotNormal:
		return "normal"
	case SlotSpecular:
		return "specular"
	case SlotMetalRoughness:
		return "metal_roughness"
	default:
		return "unknown"
	}
}

// Mask returns the texture_mask bit the shaders test for this slot.
func (s TextureSlot) Mask() uint32 {
	return 1 << uint32(s)
}

// TextureRef references a decoded image by name. Two references with the same
// name are the same texture and are packed once.
type TextureRef struct {
	Name  string
	Image image.Image
}

// Record is a named material: base color and emissive factors plus up to one texture per slot.
type Record struct {
	Name      string
	BaseColor [4]float32
	Emissive  [3]float32
	Textures  [SlotCount]*TextureRef
}

// NewRecord creates a material Record with an opaque white base color and no emission.
//
// Parameters:
//   - name: the material identifier, used as the pool registry key
//   - options: builder options to apply
//
// Returns:
//   - *Record: the material record
func NewRecord(name string, options ...RecordBuilderOption) *Record {
	r := &Record{
		Name:      name,
		BaseColor: [4]float32{1, 1, 1, 1},
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Texture returns the texture in slot, or nil.
func (r *Record) Texture(slot TextureSlot) *TextureRef {
	if slot < 0 || slot >= SlotCount {
		return nil
	}
	return r.Textures[slot]
}

// TextureMask returns the bit set of slots holding a texture with image data.
func (r *Record) TextureMask() uint32 {
	var mask uint32
	for slot, ref := range r.Textures {
		if ref != nil && ref.Image != nil {
			mask |= TextureSlot(slot).Mask()
		}
	}
	return mask
}
