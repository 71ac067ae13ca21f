package common

import (
	"math/bits"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// PerspectiveZO creates a right-handed perspective projection that maps view depth
// into the WebGPU clip range [0, 1] (mgl32.Perspective targets OpenGL's [-1, 1]).
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func PerspectiveZO(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / math32.Tan(fovY/2.0)
	var out mgl32.Mat4
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	return out
}

// OrthoZO creates a right-handed orthographic projection with depth mapped to [0, 1].
//
// Parameters:
//   - left, right: horizontal extents of the view volume
//   - bottom, top: vertical extents of the view volume
//   - near, far: depth extents of the view volume
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func OrthoZO(left, right, bottom, top, near, far float32) mgl32.Mat4 {
	rl := right - left
	tb := top - bottom
	fn := far - near
	out := mgl32.Ident4()
	out[0] = 2.0 / rl
	out[5] = 2.0 / tb
	out[10] = -1.0 / fn
	out[12] = -(right + left) / rl
	out[13] = -(top + bottom) / tb
	out[14] = -near / fn
	return out
}

// Mat4Bytes appends the 16 floats of m (column-major) to dst in little-endian order.
func Mat4Bytes(dst []byte, m mgl32.Mat4) []byte {
	for _, v := range m {
		dst = PutFloat32(dst, v)
	}
	return dst
}

// IsPowerOfTwo reports whether v is a positive power of two.
func IsPowerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}

// Log2Floor returns floor(log2(v)) for v >= 1, and 0 for v <= 0.
//
// Parameters:
//   - v: the value to take the logarithm of
//
// Returns:
//   - int: the exponent of the highest set bit
func Log2Floor(v int) int {
	if v <= 0 {
		return 0
	}
	return bits.Len(uint(v)) - 1
}
