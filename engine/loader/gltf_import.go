package loader

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-deferred/engine/mesh"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// importDocument converts every mesh primitive reachable from the document's scene into a model part.
// Node transforms are baked into the vertex data so parts can be drawn with the object's world matrix alone.
func (l *loader) importDocument(name string, doc *gltf.Document, dir string) (model.Model, error) {
	images, err := l.decodeImages(name, doc, dir)
	if err != nil {
		return nil, err
	}

	materials := make(map[uint32]*material.Record)
	var fallback *material.Record
	materialFor := func(index *uint32) *material.Record {
		if index == nil || int(*index) >= len(doc.Materials) {
			if fallback == nil {
				fallback = material.NewRecord(name + "/default")
			}
			return fallback
		}
		if m, ok := materials[*index]; ok {
			return m
		}
		m := convertMaterial(name, *index, doc, images)
		materials[*index] = m
		return m
	}

	var parts []model.Part
	var walkErr error
	visit := func(nodeIndex uint32, world mgl32.Mat4) {
		if walkErr != nil {
			return
		}
		node := doc.Nodes[nodeIndex]
		if node.Mesh == nil || int(*node.Mesh) >= len(doc.Meshes) {
			return
		}
		gm := doc.Meshes[*node.Mesh]
		for pi, prim := range gm.Primitives {
			rec, err := readPrimitive(fmt.Sprintf("%s/node%d/%s/%d", name, nodeIndex, gm.Name, pi), doc, prim, world)
			if err != nil {
				walkErr = errors.Wrapf(err, "mesh %q primitive %d", gm.Name, pi)
				return
			}
			parts = append(parts, model.Part{Mesh: rec, Material: materialFor(prim.Material)})
		}
	}
	walkNodes(doc, visit)
	if walkErr != nil {
		return nil, walkErr
	}
	if len(parts) == 0 {
		return nil, errors.Wrap(ErrUnsupportedAsset, "no triangle primitives")
	}
	return model.NewModel(name, model.WithParts(parts...)), nil
}

// walkNodes visits every node of the default scene depth first with its world matrix. Documents
// without scenes visit every parentless node.
func walkNodes(doc *gltf.Document, visit func(uint32, mgl32.Mat4)) {
	var roots []uint32
	switch {
	case doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes):
		roots = doc.Scenes[*doc.Scene].Nodes
	case len(doc.Scenes) > 0:
		roots = doc.Scenes[0].Nodes
	default:
		child := make(map[uint32]bool)
		for _, n := range doc.Nodes {
			for _, c := range n.Children {
				child[c] = true
			}
		}
		for i := range doc.Nodes {
			if !child[uint32(i)] {
				roots = append(roots, uint32(i))
			}
		}
	}

	seen := make(map[uint32]bool)
	var walk func(uint32, mgl32.Mat4)
	walk = func(i uint32, parent mgl32.Mat4) {
		if int(i) >= len(doc.Nodes) || seen[i] {
			return
		}
		seen[i] = true
		world := parent.Mul4(localMatrix(doc.Nodes[i]))
		visit(i, world)
		for _, c := range doc.Nodes[i].Children {
			walk(c, world)
		}
	}
	for _, r := range roots {
		walk(r, mgl32.Ident4())
	}
}

func localMatrix(n *gltf.Node) mgl32.Mat4 {
	m := mgl32.Mat4(n.MatrixOrDefault())
	if m != mgl32.Ident4() {
		return m
	}
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
	return mgl32.Translate3D(t[0], t[1], t[2]).Mul4(q.Mat4()).Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}

// readPrimitive reads one triangle primitive and bakes world into its positions, normals and tangents.
func readPrimitive(name string, doc *gltf.Document, prim *gltf.Primitive, world mgl32.Mat4) (*mesh.Record, error) {
	if prim.Mode != gltf.PrimitiveTriangles {
		return nil, errors.Wrapf(ErrUnsupportedAsset, "primitive mode %v", prim.Mode)
	}
	accessor := func(attr string) *gltf.Accessor {
		idx, ok := prim.Attributes[attr]
		if !ok || int(idx) >= len(doc.Accessors) {
			return nil
		}
		return doc.Accessors[idx]
	}

	posAcc := accessor("POSITION")
	if posAcc == nil {
		return nil, errors.Wrap(ErrUnsupportedAsset, "primitive without POSITION")
	}
	positions, err := modeler.ReadPosition(doc, posAcc, nil)
	if err != nil {
		return nil, errors.Wrap(err, "read positions")
	}
	opts := []mesh.RecordBuilderOption{}

	normalMat := world.Mat3().Inv().Transpose()
	model3 := world.Mat3()
	for i, p := range positions {
		positions[i] = world.Mul4x1(mgl32.Vec3(p).Vec4(1)).Vec3()
	}
	opts = append(opts, mesh.WithPositions(positions))

	if acc := accessor("NORMAL"); acc != nil {
		normals, err := modeler.ReadNormal(doc, acc, nil)
		if err != nil {
			return nil, errors.Wrap(err, "read normals")
		}
		for i, n := range normals {
			v := normalMat.Mul3x1(mgl32.Vec3(n))
			if v.Len() > 0 {
				v = v.Normalize()
			}
			normals[i] = v
		}
		opts = append(opts, mesh.WithNormals(normals))
	}
	if acc := accessor("TEXCOORD_0"); acc != nil {
		uvs, err := modeler.ReadTextureCoord(doc, acc, nil)
		if err != nil {
			return nil, errors.Wrap(err, "read texture coordinates")
		}
		opts = append(opts, mesh.WithUVs(uvs))
	}
	if acc := accessor("TANGENT"); acc != nil {
		tangents, err := modeler.ReadTangent(doc, acc, nil)
		if err != nil {
			return nil, errors.Wrap(err, "read tangents")
		}
		for i, t := range tangents {
			v := model3.Mul3x1(mgl32.Vec3{t[0], t[1], t[2]})
			if v.Len() > 0 {
				v = v.Normalize()
			}
			tangents[i] = [4]float32{v[0], v[1], v[2], t[3]}
		}
		opts = append(opts, mesh.WithTangents(tangents))
	}
	if acc := accessor("COLOR_0"); acc != nil {
		raw, err := modeler.ReadColor(doc, acc, nil)
		if err != nil {
			return nil, errors.Wrap(err, "read colors")
		}
		colors := make([][4]float32, len(raw))
		for i, c := range raw {
			colors[i] = [4]float32{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255, float32(c[3]) / 255}
		}
		opts = append(opts, mesh.WithColors(colors))
	}

	var indices []uint32
	if prim.Indices != nil && int(*prim.Indices) < len(doc.Accessors) {
		indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, errors.Wrap(err, "read indices")
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if world.Det() < 0 {
		for i := 0; i+2 < len(indices); i += 3 {
			indices[i+1], indices[i+2] = indices[i+2], indices[i+1]
		}
	}
	opts = append(opts, mesh.WithIndices(indices))

	rec := mesh.NewRecord(name, opts...)
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// convertMaterial maps the metallic-roughness material onto the engine's material record. The
// metallic-roughness texture is carried as a plain slot; its factors are not evaluated.
func convertMaterial(name string, index uint32, doc *gltf.Document, images map[uint32]decodedImage) *material.Record {
	gm := doc.Materials[index]
	matName := fmt.Sprintf("%s/material%d", name, index)
	if gm.Name != "" {
		matName = fmt.Sprintf("%s/%s", name, gm.Name)
	}

	opts := []material.RecordBuilderOption{
		material.WithEmissive(gm.EmissiveFactor),
	}
	attach := func(slot material.TextureSlot, texture *uint32) {
		if texture == nil || int(*texture) >= len(doc.Textures) {
			return
		}
		src := doc.Textures[*texture].Source
		if src == nil {
			return
		}
		if img, ok := images[*src]; ok {
			opts = append(opts, material.WithTexture(slot, img.name, img.image))
		}
	}
	if pbr := gm.PBRMetallicRoughness; pbr != nil {
		if f := pbr.BaseColorFactor; f != nil {
			opts = append(opts, material.WithBaseColor(*f))
		}
		if pbr.BaseColorTexture != nil {
			attach(material.SlotBaseColor, &pbr.BaseColorTexture.Index)
		}
		if pbr.MetallicRoughnessTexture != nil {
			attach(material.SlotMetalRoughness, &pbr.MetallicRoughnessTexture.Index)
		}
	}
	if gm.NormalTexture != nil {
		attach(material.SlotNormal, gm.NormalTexture.Index)
	}
	return material.NewRecord(matName, opts...)
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys[V any](m map[uint32]V) []uint32 {
	keys := make([]uint32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
