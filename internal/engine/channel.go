// ABOUTME: Per-hand channel handle
// ABOUTME: Forwards playback requests to the matching output scheduler
package engine

import (
	"github.com/hapticore/hapticore-go/internal/haptic"
	"github.com/hapticore/hapticore-go/internal/scheduler"
)

// Channel routes haptic requests to one hand's output scheduler. Clips are
// transferred on submission: callers must not mutate a clip afterwards.
type Channel struct {
	out *scheduler.Output
}

// Preempt replaces all pending playback with clip, discarding unplayed data.
func (c *Channel) Preempt(clip *haptic.Clip) {
	c.out.Preempt(clip)
}

// Queue appends clip to play strictly after all currently pending clips.
func (c *Channel) Queue(clip *haptic.Clip) {
	c.out.Enqueue(clip)
}

// Mix blends clip additively with whatever is pending at the same relative
// time offset.
func (c *Channel) Mix(clip *haptic.Clip) {
	c.out.Mix(clip)
}

// Clear drops all pending playback.
func (c *Channel) Clear() {
	c.out.Clear()
}
