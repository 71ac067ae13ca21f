package renderer

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/pkg/errors"
)

// targets holds every render target whose size follows the swapchain.
type targets struct {
	width, height int

	color    device.Texture
	normal   device.Texture
	material device.Texture
	depth    device.Texture
	light    device.Texture

	gbuffer device.Framebuffer
	lightFB device.Framebuffer
}

// createTargets allocates the G-Buffer and light accumulation targets at the given size.
// On failure every target created so far is released.
func createTargets(backend device.Backend, width, height int) (t *targets, err error) {
	t = &targets{width: width, height: height}
	defer func() {
		if err != nil {
			t.release()
			t = nil
		}
	}()

	attachment := func(label string, format common.TextureFormat) (device.Texture, error) {
		tex, err := backend.CreateTexture(device.TextureDescriptor{
			Label:  label,
			Width:  uint32(width),
			Height: uint32(height),
			Format: format,
			Usage:  device.TextureUsageRenderAttachment | device.TextureUsageSampled,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "create %s target %dx%d", label, width, height)
		}
		return tex, nil
	}

	if t.color, err = attachment("gbuffer color", gbufferFormats[0]); err != nil {
		return
	}
	if t.normal, err = attachment("gbuffer normal", gbufferFormats[1]); err != nil {
		return
	}
	if t.material, err = attachment("gbuffer material", gbufferFormats[2]); err != nil {
		return
	}
	if t.depth, err = attachment("gbuffer depth", common.TextureFormatDepth32Float); err != nil {
		return
	}
	if t.light, err = attachment("light buffer", lightFormat); err != nil {
		return
	}

	if t.gbuffer, err = backend.CreateFramebuffer(device.FramebufferDescriptor{
		Label: "gbuffer",
		Color: []device.Texture{t.color, t.normal, t.material},
		Depth: t.depth,
	}); err != nil {
		err = errors.Wrap(err, "create gbuffer framebuffer")
		return
	}
	if t.lightFB, err = backend.CreateFramebuffer(device.FramebufferDescriptor{
		Label: "light accumulation",
		Color: []device.Texture{t.light},
	}); err != nil {
		err = errors.Wrap(err, "create light framebuffer")
		return
	}
	return t, nil
}

func (t *targets) release() {
	if t == nil {
		return
	}
	for _, fb := range []device.Framebuffer{t.gbuffer, t.lightFB} {
		if fb != nil {
			fb.Release()
		}
	}
	for _, tex := range []device.Texture{t.color, t.normal, t.material, t.depth, t.light} {
		if tex != nil {
			tex.Release()
		}
	}
	t.gbuffer, t.lightFB = nil, nil
	t.color, t.normal, t.material, t.depth, t.light = nil, nil, nil, nil, nil
}
