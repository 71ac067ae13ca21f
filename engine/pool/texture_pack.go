package pool

import (
	"image"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// MaxTextureArrays is the number of packed texture array buckets, one per power of two from 1 to 2048.
const MaxTextureArrays = 12

// BucketSize returns the edge length in pixels of every layer in bucket k.
func BucketSize(k int) int {
	return 1 << uint(k)
}

// BucketFor returns the bucket for an image of the given width: floor(log2(width)), clamped to the valid range.
func BucketFor(width int) int {
	if width <= 1 {
		return 0
	}
	return common.Clamp(common.Log2Floor(width), 0, MaxTextureArrays-1)
}

// PackedTextures is the CPU-side result of packing every material texture into bucketed arrays.
type PackedTextures struct {
	// Layers holds tightly packed RGBA8 pixels per layer, per bucket.
	Layers [MaxTextureArrays][][]byte
	// Handles maps texture name to its (bucket, layer) location.
	Handles map[string]material.TextureHandle
}

// LayerCount returns the total number of packed layers across buckets.
func (p *PackedTextures) LayerCount() int {
	n := 0
	for _, layers := range p.Layers {
		n += len(layers)
	}
	return n
}

// PackTextures buckets every texture referenced by materials by floor(log2(width)) and resamples
// each image to its bucket's square size so all layers of a bucket share dimensions and format.
// Textures are deduplicated by name; the first image seen for a name is used.
//
// Parameters:
//   - materials: the materials in registry order
//
// Returns:
//   - *PackedTextures: pixel data and handles
//   - error: if a referenced image is empty
func PackTextures(materials []*material.Record) (*PackedTextures, error) {
	packed := &PackedTextures{Handles: make(map[string]material.TextureHandle)}
	for _, m := range materials {
		for slot, ref := range m.Textures {
			if ref == nil || ref.Image == nil {
				continue
			}
			if _, done := packed.Handles[ref.Name]; done {
				continue
			}
			b := ref.Image.Bounds()
			if b.Empty() {
				return nil, errors.Errorf("material %q %s texture %q has empty bounds", m.Name, material.TextureSlot(slot), ref.Name)
			}
			k := BucketFor(b.Dx())
			packed.Handles[ref.Name] = material.TextureHandle{
				ArrayIndex: uint32(k),
				Slice:      uint32(len(packed.Layers[k])),
			}
			packed.Layers[k] = append(packed.Layers[k], resample(ref.Image, BucketSize(k)))
		}
	}
	return packed, nil
}

// resample scales img to a size x size RGBA8 image and returns its pixels.
func resample(img image.Image, size int) []byte {
	rect := image.Rect(0, 0, size, size)
	if src, ok := img.(*image.RGBA); ok && src.Bounds() == rect && src.Stride == size*4 {
		return append([]byte(nil), src.Pix...)
	}
	dst := image.NewRGBA(rect)
	draw.CatmullRom.Scale(dst, rect, img, img.Bounds(), draw.Src, nil)
	return dst.Pix
}
