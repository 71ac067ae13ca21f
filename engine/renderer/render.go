package renderer

import (
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/pool"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/pkg/errors"
)

// initialInstanceCapacity is the record capacity of the instance and indirect buffers at load.
const initialInstanceCapacity = 64

func (r *renderer) RenderFrame(cam camera.Camera) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loaded {
		return ErrNotLoaded
	}
	defer r.setState(FrameStateIdle)
	start := time.Now()

	r.applyShadowResolution()
	r.reconcile()
	snap := r.pool.Snapshot()

	r.setState(FrameStateGatherInstances)
	frustum := cam.Frustum()
	r.drawables = r.drawables[:0]
	if r.source != nil {
		r.drawables = r.source.Drawables(r.drawables, &frustum)
	}
	gather(snap, r.drawables, &r.frame)
	if r.frame.Skipped != r.lastSkipped {
		if r.frame.Skipped > 0 {
			r.logger.Warn("drawables skipped, mesh not resident", "skipped", r.frame.Skipped, "generation", snap.Generation)
		}
		r.lastSkipped = r.frame.Skipped
	}
	gatherTime := time.Since(start)

	r.setState(FrameStateUploadInstanceData)
	uploadStart := time.Now()
	if err := r.upload(cam); err != nil {
		return errors.Wrap(err, "upload frame data")
	}
	uploadTime := time.Since(uploadStart)

	if err := r.backend.BeginFrame(); err != nil {
		return errors.Wrap(err, "begin frame")
	}
	if err := r.recordPasses(snap); err != nil {
		r.abortFrame()
		return err
	}
	if err := r.backend.EndFrame(); err != nil {
		r.abortFrame()
		return errors.Wrap(err, "end frame")
	}
	if err := r.backend.Present(); err != nil {
		return errors.Wrap(err, "present")
	}

	r.stats.Frame++
	r.stats.Generation = snap.Generation
	r.stats.Drawables = len(r.drawables)
	r.stats.SkippedDrawables = r.frame.Skipped
	r.stats.MissingMaterials = r.frame.MissingMaterials
	r.stats.Instances = len(r.frame.Instances)
	r.stats.IndirectDraws = r.indirectCount(snap)
	r.stats.GatherTime = gatherTime
	r.stats.UploadTime = uploadTime
	r.stats.FrameTime = time.Since(start)
	return nil
}

// reconcile applies queued pool mutations. A failed rebuild leaves the previous snapshot in
// place and is retried on the next frame.
func (r *renderer) reconcile() {
	rebuilt, err := r.pool.ReconcileIfDirty()
	switch {
	case err != nil:
		r.stats.RebuildFailures++
		r.stats.LastRebuildError = err
		r.logger.Warn("scene rebuild failed, drawing previous snapshot", "error", err)
	case rebuilt:
		r.stats.Rebuilds++
		r.stats.LastRebuildError = nil
	}
}

// applyShadowResolution recreates the shadow map when the settings resolution changed.
func (r *renderer) applyShadowResolution() {
	res := r.shadowSettings.Resolution
	if res == r.shadowMap.Width() {
		return
	}
	if err := r.shadowMap.CreateShadowMap(res, res); err != nil {
		r.logger.Warn("shadow map resize failed, keeping previous map", "resolution", res, "error", err)
		r.shadowSettings.Resolution = r.shadowMap.Width()
		return
	}
	r.logger.Debug("shadow map resized", "resolution", res)
}

// abortFrame closes whatever the failed frame left open so the next BeginFrame succeeds.
func (r *renderer) abortFrame() {
	_ = r.backend.EndRenderPass()
	_ = r.backend.EndFrame()
	_ = r.backend.Present()
}

// ensureInstanceCapacity doubles the instance and indirect buffers until they hold n records.
// Old buffers are released only after both replacements exist.
func (r *renderer) ensureInstanceCapacity(n int) error {
	if r.res.instances != nil && n <= r.res.instanceCap {
		return nil
	}
	capacity := max(r.res.instanceCap, initialInstanceCapacity)
	for capacity < n {
		capacity *= 2
	}

	instances, err := r.backend.CreateBuffer(device.BufferDescriptor{
		Label: "instances",
		Size:  uint64(capacity * GPUInstanceSize),
		Usage: device.BufferUsageStorage | device.BufferUsageCopyDst,
	})
	if err != nil {
		return errors.Wrapf(err, "grow instance buffer to %d records", capacity)
	}
	indirect, err := r.backend.CreateBuffer(device.BufferDescriptor{
		Label: "indirect",
		Size:  uint64(capacity * device.IndirectRecordSize),
		Usage: device.BufferUsageIndirect | device.BufferUsageCopyDst,
	})
	if err != nil {
		instances.Release()
		return errors.Wrapf(err, "grow indirect buffer to %d records", capacity)
	}

	if r.res.instances != nil {
		r.res.instances.Release()
		r.res.indirect.Release()
		r.logger.Debug("instance buffers grown", "capacity", capacity)
	}
	r.res.instances, r.res.indirect = instances, indirect
	r.res.instanceCap = capacity
	return nil
}

// upload writes the gathered records at offset 0 and refreshes every per-frame uniform.
func (r *renderer) upload(cam camera.Camera) error {
	if n := len(r.frame.Instances); n > 0 {
		if err := r.ensureInstanceCapacity(n); err != nil {
			return err
		}
		r.scratch = r.scratch[:0]
		for i := range r.frame.Instances {
			r.scratch = r.frame.Instances[i].AppendTo(r.scratch)
		}
		if err := r.backend.WriteBuffer(r.res.instances, 0, r.scratch); err != nil {
			return errors.Wrap(err, "write instances")
		}
		r.scratch = r.scratch[:0]
		for i := range r.frame.Indirect {
			r.scratch = r.frame.Indirect[i].AppendTo(r.scratch)
		}
		if err := r.backend.WriteBuffer(r.res.indirect, 0, r.scratch); err != nil {
			return errors.Wrap(err, "write indirect records")
		}
	}

	if r.light.Degenerate() && !r.warnedLightDir {
		r.logger.Warn("light direction is parallel to the shadow up vector, shadow view is undefined", "position", r.light.Position)
		r.warnedLightDir = true
	}

	camGPU := cam.ToGPU(r.res.targets.width, r.res.targets.height)
	lightGPU := r.light.ToGPU()
	shadowGPU := r.shadowSettings.ToGPU(light.ComputeLightVP(r.light, r.shadowSettings), r.shadowMap.Width())
	resolveGPU := GPUResolveParams{
		Exposure:        r.resolve.Exposure,
		SkyboxIntensity: r.resolve.SkyboxIntensity,
		AmbientSpecular: r.resolve.AmbientSpecular,
	}
	debugGPU := GPUDebugParams{Mode: uint32(r.debugMode), Near: cam.Near(), Far: cam.Far()}
	if r.debugMode == DebugModeDirectionalShadowmap {
		debugGPU.Near, debugGPU.Far = r.shadowSettings.Near, r.shadowSettings.Far
	}

	writes := []struct {
		buf  device.Buffer
		data []byte
	}{
		{r.res.cameraBuf, camGPU.Marshal()},
		{r.res.lightBuf, lightGPU.Marshal()},
		{r.res.shadowBuf, shadowGPU.Marshal()},
		{r.res.resolveBuf, resolveGPU.Marshal()},
		{r.res.debugParams, debugGPU.Marshal()},
	}
	for _, w := range writes {
		if err := r.backend.WriteBuffer(w.buf, 0, w.data); err != nil {
			return errors.Wrapf(err, "write %s uniform", w.buf.Label())
		}
	}
	return nil
}

// indirectCount is the number of records submitted per geometry pass.
func (r *renderer) indirectCount(snap *pool.Snapshot) int {
	if !snap.Ready() {
		return 0
	}
	return len(r.frame.Indirect)
}

func (r *renderer) recordPasses(snap *pool.Snapshot) error {
	passes := []struct {
		state FrameState
		name  string
		run   func(*pool.Snapshot) error
	}{
		{FrameStateGBufferPass, "gbuffer pass", r.gbufferPass},
		{FrameStateShadowPass, "shadow pass", r.shadowPass},
		{FrameStateLightingPass, "lighting pass", r.lightingPass},
		{FrameStateResolvePass, "resolve pass", r.resolvePass},
	}
	for _, p := range passes {
		r.setState(p.state)
		if err := p.run(snap); err != nil {
			return errors.Wrap(err, p.name)
		}
	}
	return nil
}

// renderPass brackets body with BeginRenderToFramebuffer and EndRenderPass. On error the pass
// is left open for abortFrame.
func (r *renderer) renderPass(desc device.RenderPassDescriptor, body func() error) error {
	if err := r.backend.BeginRenderToFramebuffer(desc); err != nil {
		return err
	}
	if err := body(); err != nil {
		return err
	}
	return r.backend.EndRenderPass()
}

// drawIndirect binds the pooled geometry and submits every gathered record in one call.
func (r *renderer) drawIndirect(snap *pool.Snapshot) error {
	count := r.indirectCount(snap)
	if count == 0 {
		return nil
	}
	if err := r.backend.BindVertexBuffer(snap.VertexBuffer); err != nil {
		return err
	}
	if err := r.backend.BindIndexBuffer(snap.IndexBuffer); err != nil {
		return err
	}
	return r.backend.MultiDrawIndirect(r.res.indirect, uint32(count))
}

func (r *renderer) materialBuffer(snap *pool.Snapshot) device.Buffer {
	if snap.MaterialBuffer != nil {
		return snap.MaterialBuffer
	}
	return r.res.fallbackMaterials
}

func (r *renderer) materialGroup(snap *pool.Snapshot) device.BindGroup {
	entries := make([]device.BindEntry, 0, 2+pool.MaxTextureArrays)
	entries = append(entries,
		device.BindEntry{Binding: 0, Buffer: r.materialBuffer(snap)},
		device.BindEntry{Binding: 1, Sampler: r.res.materialSampler},
	)
	for k, tex := range snap.TextureArrays {
		if tex == nil {
			tex = r.res.fallbackTextures
		}
		entries = append(entries, device.BindEntry{Binding: uint32(2 + k), Texture: tex})
	}
	return device.BindGroup{Group: 1, Entries: entries}
}

func (r *renderer) gbufferPass(snap *pool.Snapshot) error {
	p := r.res.gbuffer
	if r.wireframe && r.res.gbufferWireframe != nil {
		p = r.res.gbufferWireframe
	}
	return r.renderPass(device.RenderPassDescriptor{
		Label:           "gbuffer",
		Framebuffer:     r.res.targets.gbuffer,
		ClearColor:      true,
		ClearDepth:      true,
		DepthClearValue: 1,
	}, func() error {
		if err := r.backend.BindPipeline(p); err != nil {
			return err
		}
		if err := r.backend.BindGroup(device.BindGroup{Group: 0, Entries: []device.BindEntry{
			{Binding: 0, Buffer: r.res.cameraBuf},
			{Binding: 1, Buffer: r.res.instances},
		}}); err != nil {
			return err
		}
		if err := r.backend.BindGroup(r.materialGroup(snap)); err != nil {
			return err
		}
		return r.drawIndirect(snap)
	})
}

// shadowPass always clears the map; geometry is submitted only while shadows are enabled.
func (r *renderer) shadowPass(snap *pool.Snapshot) error {
	return r.renderPass(device.RenderPassDescriptor{
		Label:           "shadow",
		Framebuffer:     r.shadowMap.Framebuffer(),
		ClearDepth:      true,
		DepthClearValue: 1,
	}, func() error {
		if err := r.backend.BindPipeline(r.res.shadow); err != nil {
			return err
		}
		if err := r.backend.BindGroup(device.BindGroup{Group: 0, Entries: []device.BindEntry{
			{Binding: 0, Buffer: r.res.shadowBuf},
			{Binding: 1, Buffer: r.res.instances},
		}}); err != nil {
			return err
		}
		if !r.shadowSettings.Enabled {
			return nil
		}
		return r.drawIndirect(snap)
	})
}

func (r *renderer) lightingPass(snap *pool.Snapshot) error {
	t := r.res.targets
	return r.renderPass(device.RenderPassDescriptor{
		Label:       "lighting",
		Framebuffer: t.lightFB,
		ClearColor:  true,
		ClearValue:  [4]float64{0, 0, 0, 1},
	}, func() error {
		if err := r.backend.BindPipeline(r.res.lighting); err != nil {
			return err
		}
		if err := r.backend.BindGroup(device.BindGroup{Group: 0, Entries: []device.BindEntry{
			{Binding: 0, Buffer: r.res.cameraBuf},
			{Binding: 1, Buffer: r.res.lightBuf},
			{Binding: 2, Buffer: r.res.shadowBuf},
		}}); err != nil {
			return err
		}
		if err := r.backend.BindGroup(device.BindGroup{Group: 1, Entries: []device.BindEntry{
			{Binding: 0, Texture: t.color},
			{Binding: 1, Texture: t.normal},
			{Binding: 2, Texture: t.material},
			{Binding: 3, Texture: t.depth},
			{Binding: 4, Texture: r.shadowMap.DepthTexture()},
			{Binding: 5, Sampler: r.shadowMap.Sampler()},
			{Binding: 6, Buffer: r.materialBuffer(snap)},
		}}); err != nil {
			return err
		}
		return r.backend.Draw(3, 1)
	})
}

// resolvePass composites to the swapchain, or blits a single buffer when a debug mode is active.
func (r *renderer) resolvePass(_ *pool.Snapshot) error {
	t := r.res.targets
	return r.renderPass(device.RenderPassDescriptor{
		Label:      "resolve",
		ClearColor: true,
		ClearValue: [4]float64{0, 0, 0, 1},
	}, func() error {
		if view, ok := debugViews[r.debugMode]; ok {
			p, group := view.bindings(r)
			if err := r.backend.BindPipeline(p); err != nil {
				return err
			}
			if err := r.backend.BindGroup(group); err != nil {
				return err
			}
			return r.backend.Draw(3, 1)
		}

		if err := r.backend.BindPipeline(r.res.resolve); err != nil {
			return err
		}
		if err := r.backend.BindGroup(device.BindGroup{Group: 0, Entries: []device.BindEntry{
			{Binding: 0, Buffer: r.res.cameraBuf},
			{Binding: 1, Buffer: r.res.resolveBuf},
		}}); err != nil {
			return err
		}
		if err := r.backend.BindGroup(device.BindGroup{Group: 1, Entries: []device.BindEntry{
			{Binding: 0, Texture: t.color},
			{Binding: 1, Texture: t.normal},
			{Binding: 2, Texture: t.light},
			{Binding: 3, Texture: t.depth},
			{Binding: 4, Texture: r.res.skybox},
			{Binding: 5, Texture: r.res.skyboxConvolved},
			{Binding: 6, Sampler: r.res.skyboxSampler},
		}}); err != nil {
			return err
		}
		return r.backend.Draw(3, 1)
	})
}
