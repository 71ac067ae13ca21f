package renderer

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUInstanceSize is the byte size of one instance record.
const GPUInstanceSize = 80

// GPUInstance is the per-drawable record read by the geometry and shadow vertex shaders through
// instance_index. Matches the WGSL Instance struct.
//
// Layout:
//
//	mat4x4<f32> model    (64 bytes, offset 0)
//	i32         material ( 4 bytes, offset 64)
//	u32 x3      padding  (12 bytes, offset 68)
type GPUInstance struct {
	Model    mgl32.Mat4
	Material int32
	_        [3]uint32
}

// Size returns the size of the GPUInstance struct in bytes.
func (g *GPUInstance) Size() int {
	return int(unsafe.Sizeof(*g))
}

// AppendTo appends the record's bytes to dst.
func (g *GPUInstance) AppendTo(dst []byte) []byte {
	dst = common.Mat4Bytes(dst, g.Model)
	dst = common.PutInt32(dst, g.Material)
	for range 3 {
		dst = common.PutUint32(dst, 0)
	}
	return dst
}

// GPUIndirect is one indexed indirect draw: index count, instance count, first index,
// base vertex and first instance, 20 bytes.
type GPUIndirect struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	FirstInstance uint32
}

// Size returns the size of the GPUIndirect struct in bytes.
func (g *GPUIndirect) Size() int {
	return int(unsafe.Sizeof(*g))
}

// AppendTo appends the record's bytes to dst.
func (g *GPUIndirect) AppendTo(dst []byte) []byte {
	dst = common.PutUint32(dst, g.IndexCount)
	dst = common.PutUint32(dst, g.InstanceCount)
	dst = common.PutUint32(dst, g.FirstIndex)
	dst = common.PutInt32(dst, g.BaseVertex)
	return common.PutUint32(dst, g.FirstInstance)
}

// GPUResolveParams matches the WGSL ResolveParams struct, 16 bytes.
type GPUResolveParams struct {
	Exposure        float32
	SkyboxIntensity float32
	AmbientSpecular float32
	_               float32
}

// Marshal serializes the params for upload.
func (g *GPUResolveParams) Marshal() []byte {
	buf := make([]byte, 0, 16)
	buf = common.PutFloat32(buf, g.Exposure)
	buf = common.PutFloat32(buf, g.SkyboxIntensity)
	buf = common.PutFloat32(buf, g.AmbientSpecular)
	return common.PutFloat32(buf, 0)
}

// GPUDebugParams matches the WGSL DebugParams struct, 16 bytes.
type GPUDebugParams struct {
	Mode uint32
	Near float32
	Far  float32
	_    float32
}

// Marshal serializes the params for upload.
func (g *GPUDebugParams) Marshal() []byte {
	buf := make([]byte, 0, 16)
	buf = common.PutUint32(buf, g.Mode)
	buf = common.PutFloat32(buf, g.Near)
	buf = common.PutFloat32(buf, g.Far)
	return common.PutFloat32(buf, 0)
}

// GPUConvolveParams matches the WGSL ConvolveParams struct, 16 bytes.
type GPUConvolveParams struct {
	Size        uint32
	SampleCount uint32
	_           [2]uint32
}

// Marshal serializes the params for upload.
func (g *GPUConvolveParams) Marshal() []byte {
	buf := make([]byte, 0, 16)
	buf = common.PutUint32(buf, g.Size)
	buf = common.PutUint32(buf, g.SampleCount)
	buf = common.PutUint32(buf, 0)
	return common.PutUint32(buf, 0)
}
