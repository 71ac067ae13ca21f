// Package config loads the renderer's runtime-tunable settings from YAML and watches the file for edits.
package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrInvalidSettings is returned by Validate and by Load for settings that fail validation.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the full set of tunables. Zero-valued sections in a file keep their defaults.
type Settings struct {
	Window   WindowSettings       `yaml:"window"`
	Camera   CameraSettings       `yaml:"camera"`
	Light    LightSettings        `yaml:"light"`
	Shadow   light.ShadowSettings `yaml:"shadow"`
	Resolve  ResolveSettings      `yaml:"resolve"`
	Debug    DebugSettings        `yaml:"debug"`
	Profiler ProfilerSettings     `yaml:"profiler"`
}

type WindowSettings struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

type CameraSettings struct {
	FovDegrees float32 `yaml:"fov_degrees"`
	Near       float32 `yaml:"near"`
	Far        float32 `yaml:"far"`
}

type LightSettings struct {
	Position         [3]float32 `yaml:"position"`
	Color            [3]float32 `yaml:"color"`
	Intensity        float32    `yaml:"intensity"`
	AmbientColor     [3]float32 `yaml:"ambient_color"`
	AmbientIntensity float32    `yaml:"ambient_intensity"`
	SpecularPower    float32    `yaml:"specular_power"`
}

// ResolveSettings tune the final composite.
type ResolveSettings struct {
	Exposure        float32 `yaml:"exposure"`
	SkyboxIntensity float32 `yaml:"skybox_intensity"`
	AmbientSpecular float32 `yaml:"ambient_specular"`
}

// DebugSettings select the resolve output. Mode is a debug mode name such as "normal" or "depth".
type DebugSettings struct {
	Mode      string `yaml:"mode"`
	Wireframe bool   `yaml:"wireframe"`
}

// ProfilerSettings control periodic frame-stat logging. A zero interval disables it.
type ProfilerSettings struct {
	LogInterval time.Duration `yaml:"log_interval"`
}

// Default returns the settings used when no file is given.
func Default() Settings {
	l := light.NewDirectionalLight()
	return Settings{
		Window: WindowSettings{Title: "oxy-deferred", Width: 1280, Height: 720},
		Camera: CameraSettings{FovDegrees: 45, Near: 0.1, Far: 500},
		Light: LightSettings{
			Position:         l.Position,
			Color:            l.Color,
			Intensity:        l.Intensity,
			AmbientColor:     l.AmbientColor,
			AmbientIntensity: l.AmbientIntensity,
			SpecularPower:    l.SpecularPower,
		},
		Shadow:   light.DefaultShadowSettings(),
		Resolve:  ResolveSettings{Exposure: 1, SkyboxIntensity: 1, AmbientSpecular: 0.2},
		Debug:    DebugSettings{Mode: "default"},
		Profiler: ProfilerSettings{LogInterval: 5 * time.Second},
	}
}

// Validate checks every section.
//
// Returns:
//   - error: ErrInvalidSettings wrapped with the failing field, or nil
func (s Settings) Validate() error {
	if s.Window.Width <= 0 || s.Window.Height <= 0 {
		return errors.Wrapf(ErrInvalidSettings, "window size %dx%d", s.Window.Width, s.Window.Height)
	}
	if s.Camera.FovDegrees <= 0 || s.Camera.FovDegrees >= 180 {
		return errors.Wrapf(ErrInvalidSettings, "camera fov %g", s.Camera.FovDegrees)
	}
	if s.Camera.Near <= 0 || s.Camera.Far <= s.Camera.Near {
		return errors.Wrapf(ErrInvalidSettings, "camera near %g far %g", s.Camera.Near, s.Camera.Far)
	}
	if s.Light.Intensity < 0 || s.Light.AmbientIntensity < 0 || s.Light.SpecularPower < 0 {
		return errors.Wrap(ErrInvalidSettings, "negative light term")
	}
	if s.Resolve.Exposure <= 0 {
		return errors.Wrapf(ErrInvalidSettings, "exposure %g", s.Resolve.Exposure)
	}
	if s.Profiler.LogInterval < 0 {
		return errors.Wrapf(ErrInvalidSettings, "profiler interval %s", s.Profiler.LogInterval)
	}
	if err := s.Shadow.Validate(); err != nil {
		return errors.Wrap(ErrInvalidSettings, err.Error())
	}
	return nil
}

// DirectionalLight builds the directional light described by s.
func (s Settings) DirectionalLight() light.DirectionalLight {
	return light.NewDirectionalLight(
		light.WithPosition(s.Light.Position[0], s.Light.Position[1], s.Light.Position[2]),
		light.WithColor(s.Light.Color[0], s.Light.Color[1], s.Light.Color[2]),
		light.WithIntensity(s.Light.Intensity),
		light.WithAmbient(s.Light.AmbientColor[0], s.Light.AmbientColor[1], s.Light.AmbientColor[2], s.Light.AmbientIntensity),
		light.WithSpecularPower(s.Light.SpecularPower),
	)
}

// Parse decodes YAML over the defaults and validates the result. Unknown keys are rejected.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - Settings: the decoded settings
//   - error: a decode error or ErrInvalidSettings
func Parse(data []byte) (Settings, error) {
	s := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Settings{}, errors.Wrap(err, "decode settings")
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Load reads and parses the settings file at path.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, errors.Wrapf(err, "read settings %s", path)
	}
	s, err := Parse(data)
	if err != nil {
		return Settings{}, errors.Wrapf(err, "load settings %s", path)
	}
	return s, nil
}
