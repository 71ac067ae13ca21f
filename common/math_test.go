package common

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func ndcDepth(m mgl32.Mat4, z float32) float32 {
	clip := m.Mul4x1(mgl32.Vec4{0, 0, z, 1})
	return clip.Z() / clip.W()
}

func TestPerspectiveZOMapsClipPlanesToUnitDepth(t *testing.T) {
	p := PerspectiveZO(float32(math.Pi/3), 16.0/9.0, 0.5, 200)
	assert.InDelta(t, 0, ndcDepth(p, -0.5), 1e-5)
	assert.InDelta(t, 1, ndcDepth(p, -200), 1e-5)
}

func TestOrthoZOMapsClipPlanesToUnitDepth(t *testing.T) {
	o := OrthoZO(-10, 10, -10, 10, 1, 50)
	assert.InDelta(t, 0, ndcDepth(o, -1), 1e-6)
	assert.InDelta(t, 1, ndcDepth(o, -50), 1e-6)

	corner := o.Mul4x1(mgl32.Vec4{10, -10, -1, 1})
	assert.InDelta(t, 1, corner.X(), 1e-6)
	assert.InDelta(t, -1, corner.Y(), 1e-6)
}

func TestFrustumIntersectsSphere(t *testing.T) {
	f := ExtractFrustum(PerspectiveZO(float32(math.Pi/2), 1, 1, 100))

	tests := []struct {
		name   string
		center mgl32.Vec3
		radius float32
		want   bool
	}{
		{"in front", mgl32.Vec3{0, 0, -10}, 1, true},
		{"behind", mgl32.Vec3{0, 0, 10}, 1, false},
		{"past far", mgl32.Vec3{0, 0, -200}, 1, false},
		{"outside right", mgl32.Vec3{50, 0, -10}, 1, false},
		{"straddles left", mgl32.Vec3{-10.5, 0, -10}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.IntersectsSphere(tt.center, tt.radius))
		})
	}
}

func TestIntegerHelpers(t *testing.T) {
	assert.True(t, IsPowerOfTwo(2048))
	assert.False(t, IsPowerOfTwo(0))
	assert.False(t, IsPowerOfTwo(48))

	assert.Equal(t, 0, Log2Floor(0))
	assert.Equal(t, 0, Log2Floor(1))
	assert.Equal(t, 5, Log2Floor(63))
	assert.Equal(t, 6, Log2Floor(64))

	assert.Equal(t, 3, Clamp(7, 0, 3))
	assert.Equal(t, float32(-1), Clamp(float32(-4), -1, 1))
}

func TestMat4BytesIsColumnMajorLittleEndian(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3)
	b := Mat4Bytes(nil, m)
	assert.Len(t, b, 64)
	assert.Equal(t, PutFloat32(nil, 1), b[48:52])
	assert.Equal(t, PutFloat32(nil, 3), b[56:60])
}
