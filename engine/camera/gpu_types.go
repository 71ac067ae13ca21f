package camera

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUCamera is the GPU-aligned representation of the camera uniform shared by every pass.
// Size: 288 bytes.
type GPUCamera struct {
	View        mgl32.Mat4 // offset   0
	Projection  mgl32.Mat4 // offset  64
	ViewProj    mgl32.Mat4 // offset 128
	InvViewProj mgl32.Mat4 // offset 192
	Position    mgl32.Vec3 // offset 256
	Near        float32    // offset 268
	Viewport    [2]float32 // offset 272
	Far         float32    // offset 280
	_           float32    // offset 284
}

// Size returns the size of the GPUCamera struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (288)
func (g *GPUCamera) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the camera uniform for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCamera) Marshal() []byte {
	buf := make([]byte, 0, 288)
	for _, m := range []mgl32.Mat4{g.View, g.Projection, g.ViewProj, g.InvViewProj} {
		buf = common.Mat4Bytes(buf, m)
	}
	for _, f := range g.Position {
		buf = common.PutFloat32(buf, f)
	}
	buf = common.PutFloat32(buf, g.Near)
	buf = common.PutFloat32(buf, g.Viewport[0])
	buf = common.PutFloat32(buf, g.Viewport[1])
	buf = common.PutFloat32(buf, g.Far)
	buf = common.PutFloat32(buf, 0)
	return buf
}
