package camera

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCameraMatrices(t *testing.T) {
	c := NewCamera(WithLookAt(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}), WithClipPlanes(1, 100), WithAspect(1))

	clip := c.ViewProjection().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 0, clip.X()/clip.W(), 1e-5)
	assert.InDelta(t, 0, clip.Y()/clip.W(), 1e-5)
	depth := clip.Z() / clip.W()
	assert.Greater(t, depth, float32(0))
	assert.Less(t, depth, float32(1))

	near := c.ViewProjection().Mul4x1(mgl32.Vec4{0, 0, 4, 1})
	assert.InDelta(t, 0, near.Z()/near.W(), 1e-5, "near plane maps to depth 0")

	f := c.Frustum()
	assert.True(t, f.IntersectsSphere(mgl32.Vec3{}, 0.5))
	assert.False(t, f.IntersectsSphere(mgl32.Vec3{0, 0, 10}, 0.5), "behind the eye")
}

func TestSetClipPlanesRejectsInvalid(t *testing.T) {
	c := NewCamera(WithClipPlanes(0.5, 50))
	assert.False(t, c.SetClipPlanes(0, 10))
	assert.False(t, c.SetClipPlanes(10, 10))
	assert.Equal(t, float32(0.5), c.Near())
	assert.Equal(t, float32(50), c.Far())

	assert.True(t, c.SetClipPlanes(1, 1000))
	assert.Equal(t, float32(1000), c.Far())

	c.SetAspect(0)
	assert.Equal(t, float32(16.0/9.0), c.Aspect())
}

func TestCameraFollowsController(t *testing.T) {
	ctrl := NewController(WithRadius(10), WithElevation(0), WithAzimuth(0))
	c := NewCamera(WithController(ctrl))
	assert.InDelta(t, 10, c.Position().Z(), 1e-4)

	ctrl.Orbit(math.Pi/2, 0)
	assert.InDelta(t, 10, c.Position().Z(), 1e-4, "camera only moves on Update")
	c.Update()
	assert.InDelta(t, 10, c.Position().X(), 1e-4)
	assert.InDelta(t, 0, c.Position().Z(), 1e-4)
}

func TestControllerClamps(t *testing.T) {
	ctrl := NewController(WithRadius(5), WithRadiusRange(2, 8))
	ctrl.Zoom(100)
	assert.Equal(t, float32(2), ctrl.Radius())
	ctrl.Zoom(-100)
	assert.Equal(t, float32(8), ctrl.Radius())

	ctrl.Orbit(0, 10)
	assert.Less(t, ctrl.Elevation(), float32(math.Pi/2))
}

func TestControllerPanKeepsOffset(t *testing.T) {
	ctrl := NewController(WithRadius(10), WithElevation(0))
	before := ctrl.Position().Sub(ctrl.Target())
	ctrl.Pan(1, 2, 3)
	after := ctrl.Position().Sub(ctrl.Target())
	assert.True(t, before.ApproxEqualThreshold(after, 1e-4))
	assert.InDelta(t, 2, ctrl.Target().Y(), 1e-4)
	assert.InDelta(t, -3, ctrl.Target().Z(), 1e-4)
}

func TestGPUCameraLayout(t *testing.T) {
	c := NewCamera(WithLookAt(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{}), WithClipPlanes(0.25, 64))
	g := c.ToGPU(800, 600)
	buf := g.Marshal()
	require.Len(t, buf, 288)
	assert.Equal(t, 288, g.Size())

	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	assert.Equal(t, float32(1), f(256))
	assert.Equal(t, float32(3), f(264))
	assert.Equal(t, float32(0.25), f(268))
	assert.Equal(t, float32(800), f(272))
	assert.Equal(t, float32(600), f(276))
	assert.Equal(t, float32(64), f(280))

	ident := g.ViewProj.Mul4(g.InvViewProj)
	assert.True(t, ident.ApproxEqualThreshold(mgl32.Ident4(), 1e-3))
}
