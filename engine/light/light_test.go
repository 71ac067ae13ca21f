package light

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f32At(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
}

func TestDirectionPointsAtOrigin(t *testing.T) {
	l := NewDirectionalLight(WithPosition(0, 10, 10))
	d := l.Direction()
	assert.InDelta(t, 1, d.Len(), 1e-5)
	assert.InDelta(t, 0, d.X(), 1e-6)
	assert.Less(t, d.Y(), float32(0))
	assert.Less(t, d.Z(), float32(0))
	assert.False(t, l.Degenerate())

	assert.True(t, NewDirectionalLight(WithPosition(0, 50, 0)).Degenerate())
	assert.Equal(t, mgl32.Vec3{0, -1, 0}, NewDirectionalLight(WithPosition(0, 0, 0)).Direction())
}

func TestLightVPMapsOriginIntoVolume(t *testing.T) {
	l := NewDirectionalLight(WithPosition(10, 20, 10))
	s := DefaultShadowSettings()
	vp := ComputeLightVP(l, s)

	clip := vp.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 0, clip.X(), 1e-4)
	assert.InDelta(t, 0, clip.Y(), 1e-4)
	dist := l.Position.Len()
	expected := (dist - s.Near) / (s.Far - s.Near)
	assert.InDelta(t, expected, clip.Z()/clip.W(), 1e-4)

	edge := vp.Mul4x1(mgl32.Vec4{0, 0, 0, 1}.Add(l.View().Inv().Mul4x1(mgl32.Vec4{s.OrthoWidth / 2, 0, 0, 0})))
	assert.InDelta(t, 1, edge.X(), 1e-3)
}

func TestShadowSettingsValidate(t *testing.T) {
	require.NoError(t, DefaultShadowSettings().Validate())

	cases := map[string]func(*ShadowSettings){
		"resolution not power of two": func(s *ShadowSettings) { s.Resolution = 1000 },
		"resolution too small":        func(s *ShadowSettings) { s.Resolution = 8 },
		"resolution too large":        func(s *ShadowSettings) { s.Resolution = 4096 },
		"empty volume":                func(s *ShadowSettings) { s.OrthoWidth = 0 },
		"far before near":             func(s *ShadowSettings) { s.Far = s.Near },
		"negative bias":               func(s *ShadowSettings) { s.SlopeBias = -1 },
		"zero samples":                func(s *ShadowSettings) { s.SampleCount = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := DefaultShadowSettings()
			mutate(&s)
			assert.True(t, errors.Is(s.Validate(), ErrInvalidShadowSettings))
		})
	}
}

func TestGPUDirectionalLightLayout(t *testing.T) {
	l := NewDirectionalLight(WithPosition(0, -1, 0), WithColor(1, 0.5, 0.25), WithIntensity(2),
		WithAmbient(0.1, 0.2, 0.3, 0.4), WithSpecularPower(64))
	g := l.ToGPU()
	buf := g.Marshal()

	require.Len(t, buf, 48)
	assert.Equal(t, 48, g.Size())
	assert.InDelta(t, 1, f32At(buf, 4), 1e-6, "direction.y")
	assert.Equal(t, float32(2), f32At(buf, 12))
	assert.Equal(t, float32(0.5), f32At(buf, 20))
	assert.Equal(t, float32(0.4), f32At(buf, 28))
	assert.Equal(t, float32(0.3), f32At(buf, 40))
	assert.Equal(t, float32(64), f32At(buf, 44))
}

func TestGPUShadowDataLayout(t *testing.T) {
	s := DefaultShadowSettings()
	s.SampleCount = 5
	g := s.ToGPU(mgl32.Ident4(), 1024)
	buf := g.Marshal()

	require.Len(t, buf, 96)
	assert.Equal(t, 96, g.Size())
	assert.Equal(t, float32(1), f32At(buf, 0))
	assert.Equal(t, float32(1.0/1024), f32At(buf, 64))
	assert.Equal(t, s.Bias, f32At(buf, 72))
	assert.Equal(t, s.NormalBias, f32At(buf, 76))
	assert.Equal(t, s.SlopeBias, f32At(buf, 80))
	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(buf[84:]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[88:]))

	s.Enabled = false
	off := s.ToGPU(mgl32.Ident4(), 1024)
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(off.Marshal()[88:]))
}
