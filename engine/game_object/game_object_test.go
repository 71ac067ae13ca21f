package game_object

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	obj := NewGameObject()

	assert.NotEqual(t, uuid.Nil, obj.ID())
	assert.True(t, obj.Enabled())
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, obj.Scale())
	assert.True(t, obj.WorldMatrix().ApproxEqual(mgl32.Ident4()))
}

func TestWorldMatrix(t *testing.T) {
	obj := NewGameObject(WithPosition(1, 2, 3), WithScale(2, 2, 2), WithRotation(0, mgl32.DegToRad(90), 0))

	p := obj.WorldMatrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDelta(t, 1, p.X(), 1e-5)
	assert.InDelta(t, 2, p.Y(), 1e-5)
	assert.InDelta(t, 1, p.Z(), 1e-5)
}

func TestUpdateAppliesRotationSpeed(t *testing.T) {
	obj := NewGameObject(WithRotationSpeed(0, 1, 0))
	obj.Update(0.5)
	obj.Update(0.5)

	assert.InDelta(t, 1, obj.Rotation().Y(), 1e-6)
	obj.SetEnabled(false)
	assert.False(t, obj.Enabled())
}
