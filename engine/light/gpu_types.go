package light

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUDirectionalLight is the GPU-aligned representation of the directional light uniform.
// Matches the WGSL DirectionalLight struct layout exactly.
//
// Layout:
//
//	vec3<f32> direction         (12 bytes, offset 0)
//	f32       intensity         ( 4 bytes, offset 12)
//	vec3<f32> color             (12 bytes, offset 16)
//	f32       ambient_intensity ( 4 bytes, offset 28)
//	vec3<f32> ambient_color     (12 bytes, offset 32)
//	f32       specular_power    ( 4 bytes, offset 44)
type GPUDirectionalLight struct {
	Direction        mgl32.Vec3
	Intensity        float32
	Color            mgl32.Vec3
	AmbientIntensity float32
	AmbientColor     mgl32.Vec3
	SpecularPower    float32
}

// Size returns the size of the GPUDirectionalLight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (48)
func (g *GPUDirectionalLight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the light into a 48-byte uniform buffer.
func (g *GPUDirectionalLight) Marshal() []byte {
	buf := appendVec3(make([]byte, 0, 48), g.Direction)
	buf = common.PutFloat32(buf, g.Intensity)
	buf = appendVec3(buf, g.Color)
	buf = common.PutFloat32(buf, g.AmbientIntensity)
	buf = appendVec3(buf, g.AmbientColor)
	buf = common.PutFloat32(buf, g.SpecularPower)
	return buf
}

// GPUShadowData is the GPU-aligned shadow uniform shared by the shadow and lighting passes.
// Matches the WGSL ShadowData struct layout exactly.
//
// Layout:
//
//	mat4x4<f32> light_vp     (64 bytes, offset 0)
//	vec2<f32>   texel_size   ( 8 bytes, offset 64)
//	f32         bias         ( 4 bytes, offset 72)
//	f32         normal_bias  ( 4 bytes, offset 76)
//	f32         slope_bias   ( 4 bytes, offset 80)
//	u32         sample_count ( 4 bytes, offset 84)
//	u32         enabled      ( 4 bytes, offset 88)
//	f32         _pad         ( 4 bytes, offset 92)
type GPUShadowData struct {
	LightVP     mgl32.Mat4
	TexelSize   [2]float32
	Bias        float32
	NormalBias  float32
	SlopeBias   float32
	SampleCount uint32
	Enabled     uint32
	_           float32
}

// Size returns the size of the GPUShadowData struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (96)
func (s *GPUShadowData) Size() int {
	return int(unsafe.Sizeof(*s))
}

// Marshal serializes the GPUShadowData struct into a byte buffer suitable for
// GPU uniform upload.
//
// Returns:
//   - []byte: 96-byte buffer ready for GPU upload
func (s *GPUShadowData) Marshal() []byte {
	buf := common.Mat4Bytes(make([]byte, 0, 96), s.LightVP)
	buf = common.PutFloat32(buf, s.TexelSize[0])
	buf = common.PutFloat32(buf, s.TexelSize[1])
	buf = common.PutFloat32(buf, s.Bias)
	buf = common.PutFloat32(buf, s.NormalBias)
	buf = common.PutFloat32(buf, s.SlopeBias)
	buf = common.PutUint32(buf, s.SampleCount)
	buf = common.PutUint32(buf, s.Enabled)
	buf = common.PutFloat32(buf, 0)
	return buf
}

func appendVec3(dst []byte, v mgl32.Vec3) []byte {
	for _, f := range v {
		dst = common.PutFloat32(dst, f)
	}
	return dst
}
