// Package shadow owns the directional shadow map: its depth texture, the framebuffer the shadow pass
// renders into and the comparison sampler the lighting pass reads it through.
package shadow

import (
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/pkg/errors"
)

// ErrInvalidShadowMapSize is returned by CreateShadowMap for sizes that are not a power of two
// between light.MinShadowMapResolution and light.MaxShadowMapResolution.
var ErrInvalidShadowMapSize = errors.New("invalid shadow map size")

// Manager creates and replaces the shadow map.
type Manager interface {
	// CreateShadowMap allocates a width x height depth map and its framebuffer, releasing the previous
	// one on success. On any error the previous map stays valid.
	//
	// Parameters:
	//   - width: map width in texels, a power of two in [16, 2048]
	//   - height: map height in texels, a power of two in [16, 2048]
	//
	// Returns:
	//   - error: ErrInvalidShadowMapSize, or a wrapped allocation error
	CreateShadowMap(width, height int) error

	// DepthTexture returns the current depth texture, or nil before the first CreateShadowMap.
	DepthTexture() device.Texture

	// Framebuffer returns the depth-only render target of the shadow pass.
	Framebuffer() device.Framebuffer

	// Sampler returns the comparison sampler used for shadow lookups. It is created lazily with the
	// first map and survives resolution changes.
	Sampler() device.Sampler

	Width() int
	Height() int

	// Release frees the map, framebuffer and sampler.
	Release()
}

type manager struct {
	backend device.Backend
	logger  *slog.Logger
	label   string

	mu      *sync.Mutex
	depth   device.Texture
	fb      device.Framebuffer
	sampler device.Sampler
	width   int
	height  int
}

var _ Manager = &manager{}

// NewManager creates a shadow map manager with no map allocated.
//
// Parameters:
//   - backend: the graphics backend that owns the map
//   - options: builder options
//
// Returns:
//   - Manager: the manager
func NewManager(backend device.Backend, options ...ManagerBuilderOption) Manager {
	m := &manager{
		backend: backend,
		logger:  slog.Default(),
		label:   "shadow map",
		mu:      &sync.Mutex{},
	}
	for _, opt := range options {
		opt(m)
	}
	m.logger = m.logger.With("component", "shadow")
	return m
}

func validSize(v int) bool {
	return common.IsPowerOfTwo(v) && v >= light.MinShadowMapResolution && v <= light.MaxShadowMapResolution
}

func (m *manager) CreateShadowMap(width, height int) error {
	if !validSize(width) || !validSize(height) {
		return errors.Wrapf(ErrInvalidShadowMapSize, "%dx%d", width, height)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.depth != nil && m.width == width && m.height == height {
		return nil
	}

	if m.sampler == nil {
		s, err := m.backend.CreateSampler(common.SamplerSettings{
			Label:       m.label + " sampler",
			AddressMode: common.AddressClampToEdge,
			MagFilter:   common.FilterLinear,
			MinFilter:   common.FilterLinear,
			Compare:     common.CompareLessEqual,
		})
		if err != nil {
			return errors.Wrap(err, "create shadow comparison sampler")
		}
		m.sampler = s
	}

	depth, err := m.backend.CreateTexture(device.TextureDescriptor{
		Label:  m.label,
		Width:  uint32(width),
		Height: uint32(height),
		Format: common.TextureFormatDepth32Float,
		Usage:  device.TextureUsageRenderAttachment | device.TextureUsageSampled,
	})
	if err != nil {
		return errors.Wrapf(err, "create %dx%d shadow map", width, height)
	}
	fb, err := m.backend.CreateFramebuffer(device.FramebufferDescriptor{Label: m.label, Depth: depth})
	if err != nil {
		depth.Release()
		return errors.Wrap(err, "create shadow framebuffer")
	}

	m.releaseMap()
	m.depth, m.fb = depth, fb
	m.width, m.height = width, height
	m.logger.Debug("shadow map created", "width", width, "height", height)
	return nil
}

func (m *manager) releaseMap() {
	if m.fb != nil {
		m.fb.Release()
		m.fb = nil
	}
	if m.depth != nil {
		m.depth.Release()
		m.depth = nil
	}
}

func (m *manager) DepthTexture() device.Texture {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.depth
}

func (m *manager) Framebuffer() device.Framebuffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fb
}

func (m *manager) Sampler() device.Sampler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sampler
}

func (m *manager) Width() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.width
}

func (m *manager) Height() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.height
}

func (m *manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseMap()
	if m.sampler != nil {
		m.sampler.Release()
		m.sampler = nil
	}
	m.width, m.height = 0, 0
}
