package loader

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// quadDocument builds a single-node document holding one textured quad translated by +2 on X.
func quadDocument(t *testing.T) *gltf.Document {
	t.Helper()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}})
	nrm := modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}})
	uv := modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2, 0, 2, 3})

	imgIdx, err := modeler.WriteImage(doc, "bricks", "image/png", bytes.NewReader(pngBytes(t, 8, 8, color.RGBA{R: 200, A: 255})))
	require.NoError(t, err)
	doc.Textures = append(doc.Textures, &gltf.Texture{Source: gltf.Index(imgIdx)})

	base := [4]float32{0.5, 0.5, 0.5, 1}
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name:           "wall",
		EmissiveFactor: [3]float32{0.1, 0, 0},
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor:  &base,
			BaseColorTexture: &gltf.TextureInfo{Index: 0},
		},
	})
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: "quad",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idx),
			Material:   gltf.Index(0),
			Attributes: map[string]uint32{"POSITION": pos, "NORMAL": nrm, "TEXCOORD_0": uv},
		}},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: "root", Mesh: gltf.Index(0), Translation: [3]float32{2, 0, 0}})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	return doc
}

func encodeGLB(t *testing.T, doc *gltf.Document) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	require.NoError(t, enc.Encode(doc))
	return buf.Bytes()
}

func TestLoadReaderImportsQuad(t *testing.T) {
	l := NewLoader(WithDecodeWorkers(2))
	m, err := l.LoadReader("quad", bytes.NewReader(encodeGLB(t, quadDocument(t))))
	require.NoError(t, err)

	parts := m.Parts()
	require.Len(t, parts, 1)
	rec := parts[0].Mesh
	require.NoError(t, rec.Validate())
	assert.Equal(t, uint32(4), rec.VertexCount())
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, rec.Indices)
	assert.Equal(t, [3]float32{2, 0, 0}, rec.Positions[0], "node translation is baked in")
	assert.Equal(t, [3]float32{0, 0, 1}, rec.Normals[0])

	mat := parts[0].Material
	require.NotNil(t, mat)
	assert.Equal(t, "quad/wall", mat.Name)
	assert.Equal(t, [4]float32{0.5, 0.5, 0.5, 1}, mat.BaseColor)
	assert.Equal(t, [3]float32{0.1, 0, 0}, mat.Emissive)
	ref := mat.Texture(material.SlotBaseColor)
	require.NotNil(t, ref)
	require.NotNil(t, ref.Image)
	assert.Equal(t, "quad/0:bricks", ref.Name)
	assert.Equal(t, 8, ref.Image.Bounds().Dx())
	assert.Equal(t, material.SlotBaseColor.Mask(), mat.TextureMask())

	assert.Same(t, m, l.Get("quad"))
}

func TestSameNamedImagesStayDistinct(t *testing.T) {
	doc := quadDocument(t)
	imgIdx, err := modeler.WriteImage(doc, "bricks", "image/png", bytes.NewReader(pngBytes(t, 4, 4, color.RGBA{B: 200, A: 255})))
	require.NoError(t, err)
	doc.Textures = append(doc.Textures, &gltf.Texture{Source: gltf.Index(imgIdx)})
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name: "floor",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorTexture: &gltf.TextureInfo{Index: 1},
		},
	})
	first := doc.Meshes[0].Primitives[0]
	doc.Meshes[0].Primitives = append(doc.Meshes[0].Primitives, &gltf.Primitive{
		Indices:    first.Indices,
		Material:   gltf.Index(1),
		Attributes: first.Attributes,
	})

	m, err := NewLoader().LoadReader("twin", bytes.NewReader(encodeGLB(t, doc)))
	require.NoError(t, err)

	names := map[string]int{}
	for _, p := range m.Parts() {
		ref := p.Material.Texture(material.SlotBaseColor)
		require.NotNil(t, ref)
		names[ref.Name] = ref.Image.Bounds().Dx()
	}
	assert.Equal(t, map[string]int{"twin/0:bricks": 8, "twin/1:bricks": 4}, names)
}

func TestLoadFromFileIsCached(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.glb")
	require.NoError(t, os.WriteFile(path, encodeGLB(t, quadDocument(t)), 0o644))

	l := NewLoader()
	first, err := l.Load(path)
	require.NoError(t, err)
	second, err := l.Load(path)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Len(t, l.Models(), 1)
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	_, err := NewLoader().Load("scene.fbx")
	assert.True(t, errors.Is(err, ErrUnsupportedAsset))
}

func TestLoadRejectsNonTriangles(t *testing.T) {
	doc := quadDocument(t)
	doc.Meshes[0].Primitives[0].Mode = gltf.PrimitiveLines
	_, err := NewLoader().LoadReader("lines", bytes.NewReader(encodeGLB(t, doc)))
	assert.True(t, errors.Is(err, ErrUnsupportedAsset))
}

func TestMissingMaterialUsesDefault(t *testing.T) {
	doc := quadDocument(t)
	doc.Meshes[0].Primitives[0].Material = nil
	m, err := NewLoader().LoadReader("plain", bytes.NewReader(encodeGLB(t, doc)))
	require.NoError(t, err)
	assert.Equal(t, "plain/default", m.Parts()[0].MaterialName())
}

func TestCorruptImageFailsLoad(t *testing.T) {
	doc := quadDocument(t)
	_, err := modeler.WriteImage(doc, "broken", "image/png", bytes.NewReader([]byte("not a png")))
	require.NoError(t, err)
	doc.Textures = append(doc.Textures, &gltf.Texture{Source: gltf.Index(1)})
	_, err = NewLoader().LoadReader("broken", bytes.NewReader(encodeGLB(t, doc)))
	assert.Error(t, err)
}
