package profiler

import "time"

// FrameStats describes the most recent frame recorded by the renderer.
type FrameStats struct {
	// Frame is the number of frames rendered so far.
	Frame uint64
	// Generation is the pool snapshot generation the frame was drawn against.
	Generation uint64

	Drawables int
	// SkippedDrawables counts drawables whose mesh was not resident in the snapshot.
	SkippedDrawables int
	// MissingMaterials counts drawables drawn with the sentinel material index.
	MissingMaterials int
	Instances        int
	// IndirectDraws is the number of indirect records submitted per geometry pass.
	IndirectDraws int

	// Rebuilds and RebuildFailures count structural pool rebuilds since the renderer was loaded.
	Rebuilds        int
	RebuildFailures int
	// LastRebuildError is the most recent rebuild failure, cleared by the next successful rebuild.
	LastRebuildError error

	GatherTime time.Duration
	UploadTime time.Duration
	FrameTime  time.Duration
}
