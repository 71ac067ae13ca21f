package scene

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/game_object"
	"github.com/Carmen-Shannon/oxy-deferred/engine/mesh"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	added   []ModelAdded
	removed []ModelRemoved
}

func (r *recordingSink) OnModelAdded(msg ModelAdded)     { r.added = append(r.added, msg) }
func (r *recordingSink) OnModelRemoved(msg ModelRemoved) { r.removed = append(r.removed, msg) }

func unitMesh(name string) *mesh.Record {
	return mesh.NewRecord(name,
		mesh.WithPositions([][3]float32{{-1, -1, 0}, {1, -1, 0}, {0, 1, 0}}),
		mesh.WithIndices([]uint32{0, 1, 2}),
	)
}

func twoPartModel() model.Model {
	return model.NewModel("robot",
		model.WithPart(unitMesh("Body"), material.NewRecord("M_Steel")),
		model.WithPart(unitMesh("Eye"), nil),
	)
}

func TestAddRemoveNotifiesSinks(t *testing.T) {
	sink := &recordingSink{}
	s := NewScene("test", WithSink(sink))

	id := s.Add(game_object.NewGameObject(game_object.WithModel(twoPartModel())))
	require.Len(t, sink.added, 1)
	assert.Equal(t, id, sink.added[0].ObjectID)
	require.Len(t, sink.added[0].Pairs, 2)
	assert.Equal(t, "Body", sink.added[0].Pairs[0].MeshName)
	assert.Equal(t, "M_Steel", sink.added[0].Pairs[0].MaterialName)
	assert.Equal(t, "", sink.added[0].Pairs[1].MaterialName)

	assert.True(t, s.Remove(id))
	assert.False(t, s.Remove(id))
	require.Len(t, sink.removed, 1)
	assert.Equal(t, sink.added[0].Pairs, sink.removed[0].Pairs)
	assert.Zero(t, s.Count())
}

func TestSubscribeReplaysExistingObjects(t *testing.T) {
	s := NewScene("test")
	s.Add(game_object.NewGameObject(game_object.WithModel(twoPartModel())))
	s.Add(game_object.NewGameObject())

	sink := &recordingSink{}
	s.Subscribe(sink)
	assert.Len(t, sink.added, 1)

	s.Clear()
	assert.Len(t, sink.removed, 1)
	assert.Zero(t, s.Count())
}

func TestDrawablesOrderAndVisibility(t *testing.T) {
	s := NewScene("test")
	m := twoPartModel()
	a := game_object.NewGameObject(game_object.WithModel(m), game_object.WithPosition(1, 0, 0))
	b := game_object.NewGameObject(game_object.WithModel(m), game_object.WithPosition(2, 0, 0))
	hidden := game_object.NewGameObject(game_object.WithModel(m), game_object.WithEnabled(false))
	s.Add(a)
	s.Add(hidden)
	s.Add(b)

	drawables := s.Drawables(nil, nil)
	require.Len(t, drawables, 4)
	assert.Equal(t, []uuid.UUID{a.ID(), a.ID(), b.ID(), b.ID()},
		[]uuid.UUID{drawables[0].ObjectID, drawables[1].ObjectID, drawables[2].ObjectID, drawables[3].ObjectID})
	assert.Equal(t, "Eye", drawables[1].MeshName)
	assert.Equal(t, float32(2), drawables[2].World.Col(3).X())

	s.SetActive(false)
	assert.Empty(t, s.Drawables(nil, nil))
}

func TestDrawablesFrustumCulling(t *testing.T) {
	s := NewScene("test")
	m := twoPartModel()
	front := game_object.NewGameObject(game_object.WithModel(m), game_object.WithPosition(0, 0, -10))
	behind := game_object.NewGameObject(game_object.WithModel(m), game_object.WithPosition(0, 0, 10))
	s.Add(front)
	s.Add(behind)

	view := mgl32.LookAtV(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	proj := common.PerspectiveZO(mgl32.DegToRad(60), 1, 0.1, 100)
	frustum := common.ExtractFrustum(proj.Mul4(view))

	drawables := s.Drawables(nil, &frustum)
	require.Len(t, drawables, 2)
	assert.Equal(t, front.ID(), drawables[0].ObjectID)

	s.SetCullingDisabled(true)
	assert.Len(t, s.Drawables(nil, &frustum), 4)
}

func TestUpdateAdvancesObjects(t *testing.T) {
	s := NewScene("test")
	obj := game_object.NewGameObject(game_object.WithRotationSpeed(1, 0, 0))
	s.Add(obj)
	s.Update(0.25)
	assert.InDelta(t, 0.25, obj.Rotation().X(), 1e-6)
	assert.Same(t, obj, s.Get(obj.ID()))
}
