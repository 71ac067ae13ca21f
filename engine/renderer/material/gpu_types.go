package material

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// GPUMaterialSize is the byte stride of one GPUMaterial in the material storage buffer.
const GPUMaterialSize = 64

// TextureHandle addresses one layer of a packed texture array.
type TextureHandle struct {
	ArrayIndex uint32
	Slice      uint32
}

// GPUMaterial is the GPU-aligned material record read by the geometry and lighting shaders.
// Matches the WGSL Material struct layout exactly.
// Size: 64 bytes (std430 aligned).
type GPUMaterial struct {
	BaseColor   [4]float32               // offset  0
	Emissive    [3]float32               // offset 16
	TextureMask uint32                   // offset 28: bit (1 << slot) set when Textures[slot] is valid
	Textures    [SlotCount]TextureHandle // offset 32: (array index, slice) per slot
}

// Size returns the size of the GPUMaterial struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterial) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterial struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload.
func (g *GPUMaterial) Marshal() []byte {
	return g.AppendTo(make([]byte, 0, GPUMaterialSize))
}

// AppendTo appends the serialized material to dst.
func (g *GPUMaterial) AppendTo(dst []byte) []byte {
	for _, f := range g.BaseColor {
		dst = common.PutFloat32(dst, f)
	}
	for _, f := range g.Emissive {
		dst = common.PutFloat32(dst, f)
	}
	dst = common.PutUint32(dst, g.TextureMask)
	for _, h := range g.Textures {
		dst = common.PutUint32(dst, h.ArrayIndex)
		dst = common.PutUint32(dst, h.Slice)
	}
	return dst
}
