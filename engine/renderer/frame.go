package renderer

// FrameState is the stage of the frame currently being recorded.
type FrameState int

const (
	FrameStateIdle FrameState = iota
	FrameStateGatherInstances
	FrameStateUploadInstanceData
	FrameStateGBufferPass
	FrameStateShadowPass
	FrameStateLightingPass
	FrameStateResolvePass
)

func (s FrameState) String() string {
	switch s {
	case FrameStateIdle:
		return "Idle"
	case FrameStateGatherInstances:
		return "GatherInstances"
	case FrameStateUploadInstanceData:
		return "UploadInstanceData"
	case FrameStateGBufferPass:
		return "GBufferPass"
	case FrameStateShadowPass:
		return "ShadowPass"
	case FrameStateLightingPass:
		return "LightingPass"
	case FrameStateResolvePass:
		return "ResolvePass"
	default:
		return "Unknown"
	}
}
