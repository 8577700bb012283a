package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickLogsOncePerInterval(t *testing.T) {
	var out bytes.Buffer
	p := NewProfiler(WithLogger(slog.New(slog.NewTextHandler(&out, nil))), WithInterval(time.Second))

	start := time.Now()
	clock := start
	p.now = func() time.Time { return clock }
	p.lastTime = start

	for range 29 {
		clock = clock.Add(30 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	clock = start.Add(time.Second)
	assert.True(t, p.Tick())

	assert.InDelta(t, 30, p.Last().FPS, 1e-9)
	assert.Contains(t, out.String(), "msg=profiler")
	assert.Contains(t, out.String(), "fps=30")

	// the frame counter restarts after logging
	clock = clock.Add(500 * time.Millisecond)
	assert.False(t, p.Tick())
}

func TestWithIntervalIgnoresNonPositive(t *testing.T) {
	p := NewProfiler(WithInterval(0), WithLogger(nil))
	assert.Equal(t, time.Second, p.updateInterval)
	assert.NotNil(t, p.logger)
}
