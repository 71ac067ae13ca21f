package wgpudevice

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndirectFeaturesRequestsFirstInstance(t *testing.T) {
	features, ok := indirectFeatures([]wgpu.FeatureName{
		wgpu.FeatureNameDepthClipControl,
		wgpu.FeatureNameIndirectFirstInstance,
	})
	assert.True(t, ok)
	assert.Equal(t, []wgpu.FeatureName{wgpu.FeatureNameIndirectFirstInstance}, features)

	features, ok = indirectFeatures([]wgpu.FeatureName{wgpu.FeatureNameDepthClipControl})
	assert.False(t, ok)
	assert.Empty(t, features)

	_, ok = indirectFeatures(nil)
	assert.False(t, ok)
}

func indirectBytes(records ...indirectRecord) []byte {
	var out []byte
	for _, r := range records {
		out = common.PutUint32(out, r.IndexCount)
		out = common.PutUint32(out, r.InstanceCount)
		out = common.PutUint32(out, r.FirstIndex)
		out = common.PutInt32(out, r.BaseVertex)
		out = common.PutUint32(out, r.FirstInstance)
	}
	return out
}

func TestDecodeIndirectKeepsFirstInstance(t *testing.T) {
	records := []indirectRecord{
		{IndexCount: 36, InstanceCount: 1, FirstIndex: 0, BaseVertex: 0, FirstInstance: 0},
		{IndexCount: 36, InstanceCount: 1, FirstIndex: 0, BaseVertex: 0, FirstInstance: 1},
		{IndexCount: 960, InstanceCount: 1, FirstIndex: 36, BaseVertex: 24, FirstInstance: 2},
	}
	data := indirectBytes(records...)
	require.Len(t, data, 3*device.IndirectRecordSize)

	for i, want := range records {
		got, ok := decodeIndirect(data, uint32(i))
		require.True(t, ok)
		assert.Equal(t, want, got, "record %d", i)
	}

	_, ok := decodeIndirect(data, 3)
	assert.False(t, ok)
}

func TestMirrorWriteTracksIndirectUploads(t *testing.T) {
	buf := &gpuBuffer{mirror: make([]byte, 2*device.IndirectRecordSize)}
	buf.mirrorWrite(device.IndirectRecordSize, indirectBytes(indirectRecord{IndexCount: 3, InstanceCount: 1, FirstInstance: 7}))

	got, ok := decodeIndirect(buf.mirror, 1)
	require.True(t, ok)
	assert.Equal(t, uint32(7), got.FirstInstance)

	plain := &gpuBuffer{}
	plain.mirrorWrite(0, []byte{1, 2, 3, 4})
	assert.Nil(t, plain.mirror)
}
