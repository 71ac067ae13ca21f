package renderer

import (
	"strings"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/pkg/errors"
)

// ErrUnknownDebugMode is returned by ParseDebugMode.
var ErrUnknownDebugMode = errors.New("unknown debug mode")

// DebugMode selects what the resolve pass shows. The numeric values are shared with the debug shaders.
type DebugMode uint32

const (
	DebugModeDefault DebugMode = iota
	DebugModeNormal
	DebugModeDepth
	DebugModeLightBuffer
	DebugModeBaseColor
	DebugModeDirectionalShadowmap
	debugModeCount
)

var debugModeNames = [debugModeCount]string{
	DebugModeDefault:              "default",
	DebugModeNormal:               "normal",
	DebugModeDepth:                "depth",
	DebugModeLightBuffer:          "light_buffer",
	DebugModeBaseColor:            "base_color",
	DebugModeDirectionalShadowmap: "directional_shadowmap",
}

func (m DebugMode) String() string {
	if m < debugModeCount {
		return debugModeNames[m]
	}
	return "unknown"
}

// ParseDebugMode maps a settings name such as "light_buffer" to its mode. Matching ignores case
// and accepts "-" for "_". An empty name is DebugModeDefault.
func ParseDebugMode(name string) (DebugMode, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	if n == "" {
		return DebugModeDefault, nil
	}
	for i, candidate := range debugModeNames {
		if candidate == n {
			return DebugMode(i), nil
		}
	}
	return DebugModeDefault, errors.Wrapf(ErrUnknownDebugMode, "%q", name)
}

// debugView is one entry of the debug dispatch table: which blit pipeline shows which texture.
// A depth source is read with textureLoad and binds no sampler.
type debugView struct {
	depth  bool
	source func(r *renderer) device.Texture
}

// debugViews maps every non-default mode to its blit. DebugModeDefault runs the full composite instead.
var debugViews = map[DebugMode]debugView{
	DebugModeNormal:               {source: func(r *renderer) device.Texture { return r.res.targets.normal }},
	DebugModeDepth:                {depth: true, source: func(r *renderer) device.Texture { return r.res.targets.depth }},
	DebugModeLightBuffer:          {source: func(r *renderer) device.Texture { return r.res.targets.light }},
	DebugModeBaseColor:            {source: func(r *renderer) device.Texture { return r.res.targets.color }},
	DebugModeDirectionalShadowmap: {depth: true, source: func(r *renderer) device.Texture { return r.shadowMap.DepthTexture() }},
}

// bindings returns the blit pipeline and its group 0 for the view.
func (v debugView) bindings(r *renderer) (pipeline.Pipeline, device.BindGroup) {
	src := v.source(r)
	if v.depth {
		return r.res.debugDepth, device.BindGroup{Group: 0, Entries: []device.BindEntry{
			{Binding: 0, Texture: src},
			{Binding: 1, Buffer: r.res.debugParams},
		}}
	}
	return r.res.debugColor, device.BindGroup{Group: 0, Entries: []device.BindEntry{
		{Binding: 0, Texture: src},
		{Binding: 1, Sampler: r.res.debugSampler},
		{Binding: 2, Buffer: r.res.debugParams},
	}}
}
