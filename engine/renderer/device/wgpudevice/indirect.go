package wgpudevice

import (
	"encoding/binary"
	"slices"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

// indirectFeatures picks the optional device features to request from what the adapter offers.
// Indirect draws may only use a non-zero first instance when indirect-first-instance is enabled.
//
// Parameters:
//   - available: the adapter's supported features
//
// Returns:
//   - []wgpu.FeatureName: features to put in DeviceDescriptor.RequiredFeatures
//   - bool: whether indirect records may carry a non-zero first instance
func indirectFeatures(available []wgpu.FeatureName) ([]wgpu.FeatureName, bool) {
	if slices.Contains(available, wgpu.FeatureNameIndirectFirstInstance) {
		return []wgpu.FeatureName{wgpu.FeatureNameIndirectFirstInstance}, true
	}
	return nil, false
}

// indirectRecord is one decoded indexed indirect draw.
type indirectRecord struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	FirstInstance uint32
}

// decodeIndirect reads record i from a CPU copy of an indirect buffer.
// ok is false when the record lies past the end of data.
func decodeIndirect(data []byte, i uint32) (indirectRecord, bool) {
	off := uint64(i) * device.IndirectRecordSize
	if off+device.IndirectRecordSize > uint64(len(data)) {
		return indirectRecord{}, false
	}
	r := data[off : off+device.IndirectRecordSize]
	return indirectRecord{
		IndexCount:    binary.LittleEndian.Uint32(r[0:]),
		InstanceCount: binary.LittleEndian.Uint32(r[4:]),
		FirstIndex:    binary.LittleEndian.Uint32(r[8:]),
		BaseVertex:    int32(binary.LittleEndian.Uint32(r[12:])),
		FirstInstance: binary.LittleEndian.Uint32(r[16:]),
	}, true
}

// mirrorWrite copies a buffer write into the CPU copy kept for indirect buffers.
func (b *gpuBuffer) mirrorWrite(offset uint64, data []byte) {
	if b.mirror == nil {
		return
	}
	copy(b.mirror[offset:], data)
}
