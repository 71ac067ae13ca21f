// package common contains plain types shared across the engine packages: texture formats, sampler settings and
// other backend-neutral enums that both the pipeline builder and the device backends need to agree on.
package common

// TextureFormat is a backend-neutral pixel format. Each device backend maps it to its native enum.
type TextureFormat uint32

const (
	// TextureFormatUndefined means "no attachment" when used as a depth format.
	TextureFormatUndefined TextureFormat = iota
	TextureFormatRGBA8Unorm
	TextureFormatRGBA8UnormSrgb
	TextureFormatRGBA16Float
	TextureFormatR32Uint
	TextureFormatDepth32Float
	// TextureFormatSurface resolves to whatever format the presentation surface was configured with.
	TextureFormatSurface
)

// BytesPerPixel returns the texel size of the format, or 0 for formats without a fixed CPU layout.
func (f TextureFormat) BytesPerPixel() uint32 {
	switch f {
	case TextureFormatRGBA8Unorm, TextureFormatRGBA8UnormSrgb, TextureFormatR32Uint, TextureFormatDepth32Float:
		return 4
	case TextureFormatRGBA16Float:
		return 8
	default:
		return 0
	}
}

// IsDepth reports whether the format is a depth format.
func (f TextureFormat) IsDepth() bool {
	return f == TextureFormatDepth32Float
}

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA8Unorm:
		return "rgba8unorm"
	case TextureFormatRGBA8UnormSrgb:
		return "rgba8unorm-srgb"
	case TextureFormatRGBA16Float:
		return "rgba16float"
	case TextureFormatR32Uint:
		return "r32uint"
	case TextureFormatDepth32Float:
		return "depth32float"
	case TextureFormatSurface:
		return "surface"
	default:
		return "undefined"
	}
}

// FilterMode selects texel filtering for a sampler.
type FilterMode uint32

const (
	FilterNearest FilterMode = iota
	FilterLinear
)

// AddressMode selects how a sampler treats coordinates outside [0, 1].
type AddressMode uint32

const (
	AddressClampToEdge AddressMode = iota
	AddressRepeat
)

// CompareFunction is used for depth testing and comparison samplers.
type CompareFunction uint32

const (
	CompareUndefined CompareFunction = iota
	CompareNever
	CompareLess
	CompareLessEqual
	CompareEqual
	CompareGreater
	CompareAlways
)

// SamplerSettings holds the configuration for a sampler pending backend creation.
type SamplerSettings struct {
	// Label names the sampler in backend debug output.
	Label string
	// AddressMode applies to U, V and W.
	AddressMode AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter FilterMode
	// Compare turns the sampler into a comparison sampler when not CompareUndefined (shadow lookups).
	Compare CompareFunction
}
