package light

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// MinShadowMapResolution and MaxShadowMapResolution bound the selectable shadow map sizes.
const (
	MinShadowMapResolution = 16
	MaxShadowMapResolution = 2048
)

// ErrInvalidShadowSettings is returned by ShadowSettings.Validate.
var ErrInvalidShadowSettings = errors.New("invalid shadow settings")

// ShadowSettings are the runtime-tunable parameters of the directional shadow.
type ShadowSettings struct {
	Enabled bool `yaml:"enabled"`
	// Resolution is the shadow map edge in texels, a power of two in [16, 2048].
	Resolution int `yaml:"resolution"`

	// OrthoWidth and OrthoHeight size the light's orthographic volume in world units.
	OrthoWidth  float32 `yaml:"ortho_width"`
	OrthoHeight float32 `yaml:"ortho_height"`
	Near        float32 `yaml:"near"`
	Far         float32 `yaml:"far"`

	// Bias is the minimum depth offset subtracted before comparison.
	Bias float32 `yaml:"bias"`
	// SlopeBias scales with the angle between surface and light, taking over from Bias at grazing angles.
	SlopeBias float32 `yaml:"slope_bias"`
	// NormalBias pushes the lookup position along the surface normal, in world units.
	NormalBias float32 `yaml:"normal_bias"`

	// SampleCount is the PCF kernel width; 1 is a single hard tap.
	SampleCount uint32 `yaml:"sample_count"`
}

// DefaultShadowSettings returns settings that cover an 80x80 unit area with soft 3x3 PCF.
func DefaultShadowSettings() ShadowSettings {
	return ShadowSettings{
		Enabled:     true,
		Resolution:  MaxShadowMapResolution,
		OrthoWidth:  80,
		OrthoHeight: 80,
		Near:        0.1,
		Far:         200,
		Bias:        0.0005,
		SlopeBias:   0.005,
		NormalBias:  0.05,
		SampleCount: 3,
	}
}

// Validate checks resolution, volume and bias ranges.
//
// Returns:
//   - error: ErrInvalidShadowSettings wrapped with the failing field, or nil
func (s ShadowSettings) Validate() error {
	if !common.IsPowerOfTwo(s.Resolution) || s.Resolution < MinShadowMapResolution || s.Resolution > MaxShadowMapResolution {
		return errors.Wrapf(ErrInvalidShadowSettings, "resolution %d is not a power of two in [%d, %d]", s.Resolution, MinShadowMapResolution, MaxShadowMapResolution)
	}
	if s.OrthoWidth <= 0 || s.OrthoHeight <= 0 {
		return errors.Wrapf(ErrInvalidShadowSettings, "ortho volume %gx%g", s.OrthoWidth, s.OrthoHeight)
	}
	if s.Near < 0 || s.Far <= s.Near {
		return errors.Wrapf(ErrInvalidShadowSettings, "near %g far %g", s.Near, s.Far)
	}
	if s.Bias < 0 || s.SlopeBias < 0 || s.NormalBias < 0 {
		return errors.Wrap(ErrInvalidShadowSettings, "negative bias")
	}
	if s.SampleCount == 0 {
		return errors.Wrap(ErrInvalidShadowSettings, "sample count must be at least 1")
	}
	return nil
}

// Projection returns the orthographic projection of the shadow volume.
func (s ShadowSettings) Projection() mgl32.Mat4 {
	hw, hh := s.OrthoWidth*0.5, s.OrthoHeight*0.5
	return common.OrthoZO(-hw, hw, -hh, hh, s.Near, s.Far)
}

// ComputeLightVP builds the light's view-projection: orthographic volume from s, eye at the
// light position looking at the origin with +Y up.
//
// Parameters:
//   - l: the directional light
//   - s: the shadow settings
//
// Returns:
//   - mgl32.Mat4: projection * view
func ComputeLightVP(l DirectionalLight, s ShadowSettings) mgl32.Mat4 {
	return s.Projection().Mul4(l.View())
}

// ToGPU builds the shadow uniform for a shadow map of the given resolution.
func (s ShadowSettings) ToGPU(lightVP mgl32.Mat4, resolution int) GPUShadowData {
	texel := float32(1)
	if resolution > 0 {
		texel = 1 / float32(resolution)
	}
	var enabled uint32
	if s.Enabled {
		enabled = 1
	}
	return GPUShadowData{
		LightVP:     lightVP,
		TexelSize:   [2]float32{texel, texel},
		Bias:        s.Bias,
		NormalBias:  s.NormalBias,
		SlopeBias:   s.SlopeBias,
		SampleCount: s.SampleCount,
		Enabled:     enabled,
	}
}
