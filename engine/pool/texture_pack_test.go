package pool

import (
	"image"
	"image/color"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestBucketFor(t *testing.T) {
	cases := map[int]int{0: 0, 1: 0, 2: 1, 3: 1, 64: 6, 100: 6, 2048: 11, 4096: 11}
	for width, want := range cases {
		assert.Equal(t, want, BucketFor(width), "width %d", width)
	}
	assert.Equal(t, 64, BucketSize(6))
}

func TestPackTexturesBucketsAndDeduplicates(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	a := material.NewRecord("A",
		material.WithTexture(material.SlotBaseColor, "bricks", solid(64, 64, red)),
		material.WithTexture(material.SlotNormal, "wide", solid(100, 50, red)),
	)
	b := material.NewRecord("B",
		material.WithTexture(material.SlotBaseColor, "bricks", solid(8, 8, red)),
		material.WithTexture(material.SlotSpecular, "tiny", solid(4, 4, red)),
	)

	packed, err := PackTextures([]*material.Record{a, b})
	require.NoError(t, err)

	assert.Equal(t, 3, packed.LayerCount())
	assert.Equal(t, material.TextureHandle{ArrayIndex: 6, Slice: 0}, packed.Handles["bricks"])
	assert.Equal(t, material.TextureHandle{ArrayIndex: 6, Slice: 1}, packed.Handles["wide"])
	assert.Equal(t, material.TextureHandle{ArrayIndex: 2, Slice: 0}, packed.Handles["tiny"])

	for _, layer := range packed.Layers[6] {
		assert.Len(t, layer, 64*64*4, "every layer in a bucket has the bucket size")
	}
	wide := packed.Layers[6][1]
	assert.InDelta(t, 255, wide[0], 1)
	assert.InDelta(t, 0, wide[1], 1)
	assert.InDelta(t, 255, wide[3], 1)
}

func TestPackTexturesRejectsEmptyImage(t *testing.T) {
	m := material.NewRecord("broken",
		material.WithTexture(material.SlotBaseColor, "empty", image.NewRGBA(image.Rect(0, 0, 0, 0))))
	_, err := PackTextures([]*material.Record{m})
	assert.Error(t, err)
}
