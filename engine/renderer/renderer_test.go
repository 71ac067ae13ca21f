package renderer

import (
	"bytes"
	"encoding/binary"
	"image"
	"log/slog"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/pool"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device/headless"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticSource hands out a fixed drawable list and records the renderer state it was called in.
type staticSource struct {
	drawables []scene.Drawable
	onGather  func()
}

func (s *staticSource) Drawables(dst []scene.Drawable, _ *common.Frustum) []scene.Drawable {
	if s.onGather != nil {
		s.onGather()
	}
	return append(dst, s.drawables...)
}

func smallShadows() light.ShadowSettings {
	s := light.DefaultShadowSettings()
	s.Resolution = 256
	return s
}

func newTestRenderer(t *testing.T, b headless.Backend, opts ...RendererBuilderOption) Renderer {
	t.Helper()
	r := NewRenderer(b, append([]RendererBuilderOption{WithShadowSettings(smallShadows())}, opts...)...)
	require.NoError(t, r.Load())
	t.Cleanup(r.Release)
	b.ResetCommands()
	return r
}

func kinds(cmds []headless.Command) []headless.CommandKind {
	out := make([]headless.CommandKind, len(cmds))
	for i, c := range cmds {
		out[i] = c.Kind
	}
	return out
}

func passTargets(cmds []headless.Command) []string {
	var out []string
	for _, c := range cmds {
		if c.Kind == headless.CommandBeginRenderPass {
			out = append(out, c.Target)
		}
	}
	return out
}

// resolveCommands returns the commands recorded inside the swapchain pass.
func resolveCommands(cmds []headless.Command) []headless.Command {
	for i, c := range cmds {
		if c.Kind == headless.CommandBeginRenderPass && c.Target == headless.SwapchainLabel {
			for j := i; j < len(cmds); j++ {
				if cmds[j].Kind == headless.CommandEndRenderPass {
					return cmds[i+1 : j]
				}
			}
		}
	}
	return nil
}

func TestRenderFrameBeforeLoad(t *testing.T) {
	r := NewRenderer(headless.NewBackend())
	defer r.Release()

	assert.False(t, r.Loaded())
	assert.ErrorIs(t, r.RenderFrame(camera.NewCamera()), ErrNotLoaded)
	assert.ErrorIs(t, r.Resize(100, 100), ErrNotLoaded)
}

func TestLoadBuildsPipelinesAndConvolvesSkybox(t *testing.T) {
	b := headless.NewBackend()
	r := NewRenderer(b, WithShadowSettings(smallShadows()))
	defer r.Release()

	require.NoError(t, r.Load())
	assert.True(t, r.Loaded())
	for _, key := range []string{
		PipelineGBuffer, PipelineShadow, PipelineLighting, PipelineResolve,
		PipelineDebugColor, PipelineDebugDepth, PipelineSkyboxConvolve,
	} {
		assert.NotNil(t, r.Pipeline(key), key)
	}
	assert.Nil(t, r.Pipeline(PipelineGBufferWireframe))

	cmds := b.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, headless.CommandDispatch, cmds[0].Kind)
	assert.Equal(t, PipelineSkyboxConvolve, cmds[0].Target)
	assert.Equal(t, uint32(6), cmds[0].Count, "1x1 placeholder convolves one workgroup per face")

	assert.Equal(t, 256, r.ShadowMap().Width())
	require.NoError(t, r.Load(), "second load is a no-op")
}

func TestLoadWithSkyboxFaces(t *testing.T) {
	var faces SkyboxFaces
	for i := range faces {
		img := image.NewRGBA(image.Rect(0, 0, 64, 64))
		for p := 0; p < len(img.Pix); p += 4 {
			img.Pix[p], img.Pix[p+1], img.Pix[p+2], img.Pix[p+3] = uint8(i*40), 0, 0, 255
		}
		faces[i] = img
	}
	b := headless.NewBackend()
	r := NewRenderer(b, WithSkybox(faces), WithShadowSettings(smallShadows()))
	defer r.Release()
	require.NoError(t, r.Load())

	rr := r.(*renderer)
	assert.Equal(t, uint32(64), rr.res.skybox.Width())
	assert.Equal(t, uint32(6), rr.res.skybox.Layers())
	assert.Equal(t, uint32(maxConvolvedSize), rr.res.skyboxConvolved.Width())
	layer := b.Layer(rr.res.skybox, 5)
	require.Len(t, layer, 64*64*4)
	assert.Equal(t, uint8(200), layer[0])

	cmds := b.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, uint32(4*4*6), cmds[0].Count)
}

func TestLoadRejectsMismatchedSkyboxFaces(t *testing.T) {
	var faces SkyboxFaces
	for i := range faces {
		faces[i] = image.NewRGBA(image.Rect(0, 0, 16, 16))
	}
	faces[3] = image.NewRGBA(image.Rect(0, 0, 8, 8))

	b := headless.NewBackend()
	r := NewRenderer(b, WithSkybox(faces), WithShadowSettings(smallShadows()))
	defer r.Release()

	err := r.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSkybox)
	assert.False(t, r.Loaded())
	assert.ErrorIs(t, r.RenderFrame(camera.NewCamera()), ErrNotLoaded)
}

func TestLoadFailureReleasesEverything(t *testing.T) {
	b := headless.NewBackend()
	b.FailAllocations(func(label string) bool { return label == "gbuffer color" })
	r := NewRenderer(b, WithShadowSettings(smallShadows()))
	defer r.Release()

	err := r.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, device.ErrOutOfMemory)
	assert.False(t, r.Loaded())
	assert.Zero(t, b.LiveBuffers())
	assert.Zero(t, b.LiveTextures())
	assert.Empty(t, r.Pipelines())

	b.FailAllocations(nil)
	require.NoError(t, r.Load())
	assert.True(t, r.Loaded())
}

func TestLoadRejectsInvalidShadowSettings(t *testing.T) {
	s := light.DefaultShadowSettings()
	s.Resolution = 300
	r := NewRenderer(headless.NewBackend(), WithShadowSettings(s))
	defer r.Release()

	assert.ErrorIs(t, r.Load(), light.ErrInvalidShadowSettings)
}

func TestFramePassOrderAndSharedSubmission(t *testing.T) {
	b := headless.NewBackend()
	src := &staticSource{drawables: []scene.Drawable{
		drawable("Sphere", "M_Blue", 1),
		drawable("Sphere", "M_Blue", 2),
		drawable("Sphere", "M_Blue", 3),
	}}
	r := newTestRenderer(t, b, WithDrawableSource(src))
	r.Pool().RequestAdd("Sphere", sphereMesh, "M_Blue", blueMat)

	require.NoError(t, r.RenderFrame(camera.NewCamera()))

	cmds := b.Commands()
	assert.Equal(t, []headless.CommandKind{
		headless.CommandBeginFrame,
		headless.CommandBeginRenderPass, headless.CommandBindPipeline, headless.CommandBindGroup, headless.CommandBindGroup,
		headless.CommandBindVertexBuffer, headless.CommandBindIndexBuffer, headless.CommandMultiDrawIndirect, headless.CommandEndRenderPass,
		headless.CommandBeginRenderPass, headless.CommandBindPipeline, headless.CommandBindGroup,
		headless.CommandBindVertexBuffer, headless.CommandBindIndexBuffer, headless.CommandMultiDrawIndirect, headless.CommandEndRenderPass,
		headless.CommandBeginRenderPass, headless.CommandBindPipeline, headless.CommandBindGroup, headless.CommandBindGroup,
		headless.CommandDraw, headless.CommandEndRenderPass,
		headless.CommandBeginRenderPass, headless.CommandBindPipeline, headless.CommandBindGroup, headless.CommandBindGroup,
		headless.CommandDraw, headless.CommandEndRenderPass,
		headless.CommandEndFrame, headless.CommandPresent,
	}, kinds(cmds))
	assert.Equal(t, []string{"gbuffer", "shadow map", "light accumulation", headless.SwapchainLabel}, passTargets(cmds))

	var draws []headless.Command
	for _, c := range cmds {
		if c.Kind == headless.CommandMultiDrawIndirect {
			draws = append(draws, c)
		}
	}
	require.Len(t, draws, 2)
	assert.Equal(t, draws[0], draws[1], "shadow pass repeats the geometry submission")
	assert.Equal(t, "indirect", draws[0].Target)
	assert.Equal(t, uint32(3), draws[0].Count)

	sphere, ok := r.Pool().Mesh("Sphere")
	require.True(t, ok)
	rr := r.(*renderer)
	raw := b.Contents(rr.res.indirect)
	for i := 0; i < 3; i++ {
		rec := raw[i*device.IndirectRecordSize:]
		assert.Equal(t, sphere.IndexCount, binary.LittleEndian.Uint32(rec[0:]))
		assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(rec[4:]))
		assert.Equal(t, sphere.IndexOffset, binary.LittleEndian.Uint32(rec[8:]))
		assert.Equal(t, sphere.VertexOffset, binary.LittleEndian.Uint32(rec[12:]))
		assert.Equal(t, uint32(i), binary.LittleEndian.Uint32(rec[16:]))
	}

	stats := r.Stats()
	assert.Equal(t, uint64(1), stats.Frame)
	assert.Equal(t, 3, stats.Drawables)
	assert.Equal(t, 3, stats.Instances)
	assert.Equal(t, 3, stats.IndirectDraws)
	assert.Equal(t, 1, stats.Rebuilds)
	assert.Equal(t, r.Pool().Snapshot().Generation, stats.Generation)
	assert.Equal(t, FrameStateIdle, r.State())
}

func TestFrameStateDuringGather(t *testing.T) {
	b := headless.NewBackend()
	src := &staticSource{}
	r := newTestRenderer(t, b, WithDrawableSource(src))
	var seen FrameState
	src.onGather = func() { seen = r.State() }

	require.NoError(t, r.RenderFrame(camera.NewCamera()))
	assert.Equal(t, FrameStateGatherInstances, seen)
	assert.Equal(t, FrameStateIdle, r.State())
	assert.Equal(t, "ShadowPass", FrameStateShadowPass.String())
}

func TestEmptyFrameRecordsPassesWithoutDraws(t *testing.T) {
	b := headless.NewBackend()
	r := newTestRenderer(t, b)

	require.NoError(t, r.RenderFrame(camera.NewCamera()))

	cmds := b.Commands()
	assert.Equal(t, []string{"gbuffer", "shadow map", "light accumulation", headless.SwapchainLabel}, passTargets(cmds))
	assert.NotContains(t, kinds(cmds), headless.CommandMultiDrawIndirect)
	for _, c := range cmds {
		if c.Kind == headless.CommandBindGroup && c.Target == PipelineGBuffer && c.Count == 1 {
			assert.Equal(t, "fallback materials", c.Entries[0])
			assert.Equal(t, "fallback textures", c.Entries[2])
		}
	}
	assert.Zero(t, r.Stats().IndirectDraws)
}

func TestMissingMeshesAreSkippedAndCounted(t *testing.T) {
	b := headless.NewBackend()
	src := &staticSource{drawables: []scene.Drawable{
		drawable("Cube", "M_Red", 0),
		drawable("Torus", "M_Red", 0),
		drawable("Cube", "M_Unknown", 0),
	}}
	r := newTestRenderer(t, b, WithDrawableSource(src))
	r.Pool().RequestAdd("Cube", cubeMesh, "M_Red", redMat)

	require.NoError(t, r.RenderFrame(camera.NewCamera()))

	stats := r.Stats()
	assert.Equal(t, 3, stats.Drawables)
	assert.Equal(t, 1, stats.SkippedDrawables)
	assert.Equal(t, 1, stats.MissingMaterials)
	assert.Equal(t, 2, stats.Instances)

	rr := r.(*renderer)
	raw := b.Contents(rr.res.instances)
	assert.Equal(t, pool.NoMaterial, int32(binary.LittleEndian.Uint32(raw[GPUInstanceSize+64:])))
}

func TestInstanceBuffersGrowByDoubling(t *testing.T) {
	b := headless.NewBackend()
	src := &staticSource{}
	for i := 0; i < 100; i++ {
		src.drawables = append(src.drawables, drawable("Cube", "M_Red", float32(i)))
	}
	r := newTestRenderer(t, b, WithDrawableSource(src))
	r.Pool().RequestAdd("Cube", cubeMesh, "M_Red", redMat)

	rr := r.(*renderer)
	assert.Equal(t, uint64(initialInstanceCapacity*GPUInstanceSize), rr.res.instances.Size())

	require.NoError(t, r.RenderFrame(camera.NewCamera()))
	assert.Equal(t, 128, rr.res.instanceCap)
	assert.Equal(t, uint64(128*GPUInstanceSize), rr.res.instances.Size())
	assert.Equal(t, uint64(128*device.IndirectRecordSize), rr.res.indirect.Size())
	assert.Equal(t, 100, r.Stats().IndirectDraws)

	src.drawables = src.drawables[:10]
	require.NoError(t, r.RenderFrame(camera.NewCamera()))
	assert.Equal(t, 128, rr.res.instanceCap, "buffers never shrink")
}

func TestRebuildFailureKeepsRenderingPreviousSnapshot(t *testing.T) {
	b := headless.NewBackend()
	src := &staticSource{drawables: []scene.Drawable{
		drawable("Sphere", "M_Blue", 0),
		drawable("Cube", "M_Red", 0),
	}}
	r := newTestRenderer(t, b, WithDrawableSource(src))
	r.Pool().RequestAdd("Sphere", sphereMesh, "M_Blue", blueMat)
	require.NoError(t, r.RenderFrame(camera.NewCamera()))
	gen := r.Stats().Generation

	b.FailAllocations(func(label string) bool { return strings.HasPrefix(label, "pool") })
	r.Pool().RequestAdd("Cube", cubeMesh, "M_Red", redMat)
	require.NoError(t, r.RenderFrame(camera.NewCamera()))

	stats := r.Stats()
	assert.Equal(t, 1, stats.RebuildFailures)
	assert.ErrorIs(t, stats.LastRebuildError, pool.ErrRebuildFailed)
	assert.Equal(t, gen, stats.Generation)
	assert.Equal(t, 1, stats.SkippedDrawables)
	assert.Equal(t, 1, stats.Instances)

	b.FailAllocations(nil)
	require.NoError(t, r.RenderFrame(camera.NewCamera()))
	stats = r.Stats()
	assert.Equal(t, 2, stats.Rebuilds)
	assert.NoError(t, stats.LastRebuildError)
	assert.Zero(t, stats.SkippedDrawables)
	assert.Equal(t, 2, stats.Instances)
	assert.Greater(t, stats.Generation, gen)
}

func TestDebugModeTable(t *testing.T) {
	cases := []struct {
		mode     DebugMode
		pipeline string
		source   string
	}{
		{DebugModeDefault, PipelineResolve, ""},
		{DebugModeNormal, PipelineDebugColor, "gbuffer normal"},
		{DebugModeDepth, PipelineDebugDepth, "gbuffer depth"},
		{DebugModeLightBuffer, PipelineDebugColor, "light buffer"},
		{DebugModeBaseColor, PipelineDebugColor, "gbuffer color"},
		{DebugModeDirectionalShadowmap, PipelineDebugDepth, "shadow map"},
	}
	b := headless.NewBackend()
	r := newTestRenderer(t, b)
	rr := r.(*renderer)

	for _, tc := range cases {
		t.Run(tc.mode.String(), func(t *testing.T) {
			b.ResetCommands()
			r.SetDebugMode(tc.mode)
			require.NoError(t, r.RenderFrame(camera.NewCamera()))

			cmds := resolveCommands(b.Commands())
			require.NotEmpty(t, cmds)
			assert.Equal(t, headless.CommandBindPipeline, cmds[0].Kind)
			assert.Equal(t, tc.pipeline, cmds[0].Target)
			assert.Equal(t, headless.CommandDraw, cmds[len(cmds)-1].Kind)
			assert.Equal(t, uint32(3), cmds[len(cmds)-1].Count)

			if tc.mode == DebugModeDefault {
				require.Len(t, cmds, 4)
				assert.Contains(t, cmds[2].Entries, "skybox")
				assert.Contains(t, cmds[2].Entries, "skybox convolved")
			} else {
				require.Len(t, cmds, 3)
				assert.Equal(t, tc.source, cmds[1].Entries[0])
			}

			params := b.Contents(rr.res.debugParams)
			assert.Equal(t, uint32(tc.mode), binary.LittleEndian.Uint32(params))
		})
	}
}

func TestParseDebugMode(t *testing.T) {
	for mode := DebugModeDefault; mode < debugModeCount; mode++ {
		got, err := ParseDebugMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, got)
	}
	got, err := ParseDebugMode(" Light-Buffer ")
	require.NoError(t, err)
	assert.Equal(t, DebugModeLightBuffer, got)

	got, err = ParseDebugMode("")
	require.NoError(t, err)
	assert.Equal(t, DebugModeDefault, got)

	_, err = ParseDebugMode("albedo")
	assert.ErrorIs(t, err, ErrUnknownDebugMode)
}

func TestResizeRecreatesTargetsOnly(t *testing.T) {
	b := headless.NewBackend(headless.WithSurfaceSize(320, 240))
	r := newTestRenderer(t, b)
	r.Pool().RequestAdd("Cube", cubeMesh, "M_Red", redMat)
	require.NoError(t, r.RenderFrame(camera.NewCamera()))

	rr := r.(*renderer)
	oldTargets := rr.res.targets
	vertices := r.Pool().Snapshot().VertexBuffer
	shadowDepth := r.ShadowMap().DepthTexture()
	live := b.LiveTextures()

	require.NoError(t, r.Resize(640, 480))
	assert.NotSame(t, oldTargets, rr.res.targets)
	assert.Equal(t, uint32(640), rr.res.targets.color.Width())
	assert.Equal(t, uint32(480), rr.res.targets.lightFB.Height())
	w, h := b.SurfaceSize()
	assert.Equal(t, []int{640, 480}, []int{w, h})
	assert.Equal(t, live, b.LiveTextures(), "old targets released")
	assert.Same(t, vertices, r.Pool().Snapshot().VertexBuffer)
	assert.Same(t, shadowDepth, r.ShadowMap().DepthTexture())

	require.NoError(t, r.Resize(0, 480), "minimized window")
	assert.Equal(t, uint32(640), rr.res.targets.color.Width())

	require.NoError(t, r.RenderFrame(camera.NewCamera()))
}

func TestShadowResolutionChangeAppliesAtFrameBoundary(t *testing.T) {
	b := headless.NewBackend()
	r := newTestRenderer(t, b)

	s := smallShadows()
	s.Resolution = 512
	require.NoError(t, r.SetShadowSettings(s))
	assert.Equal(t, 256, r.ShadowMap().Width(), "not before the next frame")

	require.NoError(t, r.RenderFrame(camera.NewCamera()))
	assert.Equal(t, 512, r.ShadowMap().Width())
	assert.Equal(t, 512, r.ShadowSettings().Resolution)

	s.Resolution = 100
	assert.ErrorIs(t, r.SetShadowSettings(s), light.ErrInvalidShadowSettings)
	assert.Equal(t, 512, r.ShadowSettings().Resolution)
}

func TestShadowResizeFailureKeepsPreviousMap(t *testing.T) {
	b := headless.NewBackend()
	r := newTestRenderer(t, b)

	s := smallShadows()
	s.Resolution = 1024
	require.NoError(t, r.SetShadowSettings(s))
	b.FailAllocations(func(label string) bool { return label == "shadow map" })

	require.NoError(t, r.RenderFrame(camera.NewCamera()))
	assert.Equal(t, 256, r.ShadowMap().Width())
	assert.Equal(t, 256, r.ShadowSettings().Resolution)
}

func TestDisabledShadowsStillClearTheMap(t *testing.T) {
	b := headless.NewBackend()
	src := &staticSource{drawables: []scene.Drawable{drawable("Cube", "M_Red", 0)}}
	r := newTestRenderer(t, b, WithDrawableSource(src))
	r.Pool().RequestAdd("Cube", cubeMesh, "M_Red", redMat)

	s := smallShadows()
	s.Enabled = false
	require.NoError(t, r.SetShadowSettings(s))
	require.NoError(t, r.RenderFrame(camera.NewCamera()))

	cmds := b.Commands()
	assert.Contains(t, passTargets(cmds), "shadow map")
	var multiDraws int
	for _, c := range cmds {
		if c.Kind == headless.CommandMultiDrawIndirect {
			multiDraws++
		}
	}
	assert.Equal(t, 1, multiDraws)

	rr := r.(*renderer)
	raw := b.Contents(rr.res.shadowBuf)
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(raw[64+8+16:]), "enabled flag")
}

func TestWireframeUnsupportedIsDisabled(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	b := headless.NewBackend()
	r := newTestRenderer(t, b, WithWireframe(true), WithLogger(logger))

	assert.False(t, r.Wireframe())
	assert.Contains(t, logs.String(), "wireframe rendering unsupported")

	r.SetWireframe(true)
	assert.False(t, r.Wireframe())
	require.NoError(t, r.RenderFrame(camera.NewCamera()))
	for _, c := range b.Commands() {
		assert.NotEqual(t, PipelineGBufferWireframe, c.Target)
	}
}

func TestWireframeSupported(t *testing.T) {
	b := headless.NewBackend(headless.WithWireframeSupport(true))
	r := newTestRenderer(t, b, WithWireframe(true))
	require.NotNil(t, r.Pipeline(PipelineGBufferWireframe))

	require.NoError(t, r.RenderFrame(camera.NewCamera()))
	cmds := b.Commands()
	assert.Equal(t, PipelineGBufferWireframe, cmds[2].Target)

	r.SetWireframe(false)
	b.ResetCommands()
	require.NoError(t, r.RenderFrame(camera.NewCamera()))
	assert.Equal(t, PipelineGBuffer, b.Commands()[2].Target)
}

func TestApplySettings(t *testing.T) {
	b := headless.NewBackend()
	r := newTestRenderer(t, b)

	s := config.Default()
	s.Debug.Mode = "depth"
	s.Shadow.Resolution = 1024
	s.Light.Position = [3]float32{5, 10, 5}
	require.NoError(t, r.ApplySettings(s))

	assert.Equal(t, DebugModeDepth, r.DebugMode())
	assert.Equal(t, 1024, r.ShadowSettings().Resolution)
	assert.Equal(t, float32(10), r.Light().Position.Y())

	s.Debug.Mode = "albedo"
	assert.ErrorIs(t, r.ApplySettings(s), ErrUnknownDebugMode)
	assert.Equal(t, DebugModeDepth, r.DebugMode())
}

func TestDegenerateLightWarnsAndStillRenders(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	b := headless.NewBackend()
	r := newTestRenderer(t, b, WithLogger(logger))
	r.SetLight(light.NewDirectionalLight(light.WithPosition(0, 50, 0)))

	require.NoError(t, r.RenderFrame(camera.NewCamera()))
	require.NoError(t, r.RenderFrame(camera.NewCamera()))
	assert.Equal(t, 1, strings.Count(logs.String(), "light direction is parallel"))
}

// flakyBackend fails the next failDraws full-screen draws.
type flakyBackend struct {
	headless.Backend
	failDraws int
}

func (f *flakyBackend) Draw(vertexCount, instanceCount uint32) error {
	if f.failDraws > 0 {
		f.failDraws--
		return errors.New("device lost")
	}
	return f.Backend.Draw(vertexCount, instanceCount)
}

func TestFailedFrameIsClosedAndNextFrameRenders(t *testing.T) {
	hb := headless.NewBackend()
	fb := &flakyBackend{Backend: hb}
	r := NewRenderer(fb, WithShadowSettings(smallShadows()))
	defer r.Release()
	require.NoError(t, r.Load())
	hb.ResetCommands()

	fb.failDraws = 1
	err := r.RenderFrame(camera.NewCamera())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lighting pass")
	assert.Equal(t, FrameStateIdle, r.State())

	cmds := hb.Commands()
	assert.Equal(t, []headless.CommandKind{
		headless.CommandEndRenderPass, headless.CommandEndFrame, headless.CommandPresent,
	}, kinds(cmds[len(cmds)-3:]))
	assert.Zero(t, r.Stats().Frame)

	require.NoError(t, r.RenderFrame(camera.NewCamera()))
	assert.Equal(t, uint64(1), r.Stats().Frame)
}
