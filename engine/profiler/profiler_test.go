package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestTickLogsAtInterval(t *testing.T) {
	var out bytes.Buffer
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(
		WithLogger(slog.New(slog.NewTextHandler(&out, nil))),
		WithInterval(time.Second),
		WithClock(clock.now),
	)

	clock.t = clock.t.Add(500 * time.Millisecond)
	assert.False(t, p.Tick(FrameStats{Drawables: 3, SkippedDrawables: 1}))
	assert.Empty(t, out.String())

	clock.t = clock.t.Add(600 * time.Millisecond)
	assert.True(t, p.Tick(FrameStats{Drawables: 3, SkippedDrawables: 1, LastRebuildError: errors.New("boom")}))
	logged := out.String()
	assert.Contains(t, logged, "frame stats")
	assert.Contains(t, logged, "drawables=3")
	assert.Contains(t, logged, "skipped=2")
	assert.Contains(t, logged, "rebuild_error=boom")
	assert.Contains(t, logged, "component=profiler")
}

func TestZeroIntervalDisablesLogging(t *testing.T) {
	var out bytes.Buffer
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithLogger(slog.New(slog.NewTextHandler(&out, nil))), WithInterval(0), WithClock(clock.now))
	clock.t = clock.t.Add(time.Hour)
	assert.False(t, p.Tick(FrameStats{}))
	assert.Empty(t, out.String())
}
