package renderer

import (
	"image"
	"image/color"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// ErrInvalidSkybox is returned by Load when the skybox faces are missing, not square or differ in size.
var ErrInvalidSkybox = errors.New("invalid skybox")

// SkyboxFaces are the six cube faces in +X, -X, +Y, -Y, +Z, -Z order.
type SkyboxFaces [6]image.Image

const (
	skyboxLayers         = 6
	maxConvolvedSize     = 32
	convolveSampleCount  = 64
	placeholderFaceWidth = 1
)

// placeholderColors is a horizon gradient: sky above, ground below.
var placeholderColors = [skyboxLayers]color.RGBA{
	{R: 150, G: 180, B: 210, A: 255},
	{R: 150, G: 180, B: 210, A: 255},
	{R: 90, G: 140, B: 220, A: 255},
	{R: 60, G: 55, B: 50, A: 255},
	{R: 150, G: 180, B: 210, A: 255},
	{R: 150, G: 180, B: 210, A: 255},
}

func placeholderFaces() SkyboxFaces {
	var faces SkyboxFaces
	for i, c := range placeholderColors {
		img := image.NewRGBA(image.Rect(0, 0, placeholderFaceWidth, placeholderFaceWidth))
		img.SetRGBA(0, 0, c)
		faces[i] = img
	}
	return faces
}

// faceSize checks that every face is present, square and the same size.
func (f SkyboxFaces) faceSize() (int, error) {
	size := -1
	for i, img := range f {
		if img == nil {
			return 0, errors.Wrapf(ErrInvalidSkybox, "face %d missing", i)
		}
		b := img.Bounds()
		if b.Dx() != b.Dy() || b.Dx() == 0 {
			return 0, errors.Wrapf(ErrInvalidSkybox, "face %d is %dx%d, faces must be square", i, b.Dx(), b.Dy())
		}
		if size >= 0 && b.Dx() != size {
			return 0, errors.Wrapf(ErrInvalidSkybox, "face %d is %d pixels, face 0 is %d", i, b.Dx(), size)
		}
		size = b.Dx()
	}
	return size, nil
}

// rgbaPixels returns the face as tightly packed RGBA8.
func rgbaPixels(img image.Image) []byte {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == 4*b.Dx() && b.Min == (image.Point{}) {
		return rgba.Pix
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst.Pix
}

// loadSkybox uploads the faces into a six-layer texture and convolves them once into the
// smaller RGBA16Float texture the resolve pass samples for ambient specular.
func (r *renderer) loadSkybox() error {
	faces := placeholderFaces()
	if r.skyboxFaces != nil {
		faces = *r.skyboxFaces
	}
	size, err := faces.faceSize()
	if err != nil {
		return err
	}

	sky, err := r.backend.CreateTexture(device.TextureDescriptor{
		Label:  "skybox",
		Width:  uint32(size),
		Height: uint32(size),
		Layers: skyboxLayers,
		Format: common.TextureFormatRGBA8Unorm,
		Usage:  device.TextureUsageSampled | device.TextureUsageCopyDst,
	})
	if err != nil {
		return errors.Wrap(err, "create skybox texture")
	}
	r.res.skybox = sky
	for i, img := range faces {
		if err := r.backend.WriteTextureLayer(sky, uint32(i), rgbaPixels(img)); err != nil {
			return errors.Wrapf(err, "upload skybox face %d", i)
		}
	}

	convolvedSize := min(size, maxConvolvedSize)
	convolved, err := r.backend.CreateTexture(device.TextureDescriptor{
		Label:  "skybox convolved",
		Width:  uint32(convolvedSize),
		Height: uint32(convolvedSize),
		Layers: skyboxLayers,
		Format: common.TextureFormatRGBA16Float,
		Usage:  device.TextureUsageStorage | device.TextureUsageSampled,
	})
	if err != nil {
		return errors.Wrap(err, "create convolved skybox texture")
	}
	r.res.skyboxConvolved = convolved

	params := GPUConvolveParams{Size: uint32(convolvedSize), SampleCount: convolveSampleCount}
	paramBuf, err := r.backend.CreateBuffer(device.BufferDescriptor{
		Label:    "skybox convolve params",
		Usage:    device.BufferUsageUniform | device.BufferUsageCopyDst,
		Contents: params.Marshal(),
	})
	if err != nil {
		return errors.Wrap(err, "create convolve params")
	}
	defer paramBuf.Release()

	groups := uint32((convolvedSize + convolveWorkgroup - 1) / convolveWorkgroup)
	if err := r.backend.Dispatch(r.res.convolve, []device.BindGroup{{Group: 0, Entries: []device.BindEntry{
		{Binding: 0, Texture: sky},
		{Binding: 1, Sampler: r.res.skyboxSampler},
		{Binding: 2, Texture: convolved},
		{Binding: 3, Buffer: paramBuf},
	}}}, groups, groups, skyboxLayers); err != nil {
		return errors.Wrap(err, "convolve skybox")
	}
	r.logger.Debug("skybox loaded", "size", size, "convolved_size", convolvedSize)
	return nil
}
