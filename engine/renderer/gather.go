package renderer

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/pool"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
)

// frameData holds the per-frame submission arrays. Instances and Indirect are index aligned:
// Indirect[i] draws Instances[i] through FirstInstance i.
type frameData struct {
	Instances []GPUInstance
	Indirect  []GPUIndirect

	// Skipped counts drawables whose mesh is not in the snapshot.
	Skipped int
	// MissingMaterials counts drawables resolved to pool.NoMaterial.
	MissingMaterials int
}

func (f *frameData) reset() {
	f.Instances = f.Instances[:0]
	f.Indirect = f.Indirect[:0]
	f.Skipped = 0
	f.MissingMaterials = 0
}

// gather resolves each drawable against the snapshot in encounter order. A drawable whose mesh is
// not resident cannot be drawn and is skipped; a drawable whose material is unknown is drawn with
// the sentinel material index.
func gather(snap *pool.Snapshot, drawables []scene.Drawable, out *frameData) {
	out.reset()
	for _, d := range drawables {
		view, ok := snap.Mesh(d.MeshName)
		if !ok || view.IndexCount == 0 {
			out.Skipped++
			continue
		}
		mat := pool.NoMaterial
		if d.MaterialName != "" {
			mat = snap.MaterialIndex(d.MaterialName)
		}
		if mat == pool.NoMaterial {
			out.MissingMaterials++
		}
		first := uint32(len(out.Instances))
		out.Instances = append(out.Instances, GPUInstance{Model: d.World, Material: mat})
		out.Indirect = append(out.Indirect, GPUIndirect{
			IndexCount:    view.IndexCount,
			InstanceCount: 1,
			FirstIndex:    view.IndexOffset,
			BaseVertex:    int32(view.VertexOffset),
			FirstInstance: first,
		})
	}
}
