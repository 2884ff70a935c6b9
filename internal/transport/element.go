package transport

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"arena/internal/media"
	"arena/internal/media/ffprobe"
)

// Element is one variant's playback handle.
type Element interface {
	Load(ctx context.Context, h *media.Handle) error
	Play() error
	Pause() error
	Seek(seconds float64) error
	SetRate(rate float64) error
	SetMuted(muted bool)
	CurrentTime() float64
	Duration() float64
	Close() error
}

// DurationProbe resolves the playable duration of a handle in seconds.
type DurationProbe func(ctx context.Context, h *media.Handle) (float64, error)

// FFprobeDuration returns a DurationProbe backed by ffprobe.
func FFprobeDuration(binary string) DurationProbe {
	return func(ctx context.Context, h *media.Handle) (float64, error) {
		result, err := ffprobe.Inspect(ctx, binary, h.Location())
		if err != nil {
			return 0, err
		}
		if result.VideoStreamCount() == 0 {
			return 0, fmt.Errorf("%s: no video stream", h.Source().Name())
		}
		seconds := result.DurationSeconds()
		if math.IsNaN(seconds) || seconds <= 0 {
			return 0, fmt.Errorf("%s: unknown duration", h.Source().Name())
		}
		return seconds, nil
	}
}

// ClockElement is a headless element whose playhead advances with wall time
// scaled by the playback rate and stops at the probed duration.
type ClockElement struct {
	probe DurationProbe
	now   func() time.Time

	mu       sync.Mutex
	loaded   bool
	duration float64
	position float64
	since    time.Time
	playing  bool
	rate     float64
	muted    bool
}

// NewClockElement constructs a ClockElement. A nil probe yields zero-length
// media, which suits still images. A nil now uses time.Now.
func NewClockElement(probe DurationProbe, now func() time.Time) *ClockElement {
	if now == nil {
		now = time.Now
	}
	return &ClockElement{probe: probe, now: now, rate: 1}
}

func (e *ClockElement) Load(ctx context.Context, h *media.Handle) error {
	if h == nil {
		return fmt.Errorf("load: nil handle")
	}
	duration := 0.0
	if e.probe != nil {
		d, err := e.probe(ctx, h)
		if err != nil {
			return err
		}
		duration = d
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.duration = duration
	e.position = 0
	e.playing = false
	e.loaded = true
	return nil
}

func (e *ClockElement) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return errNotLoaded
	}
	if !e.playing {
		e.since = e.now()
		e.playing = true
	}
	return nil
}

func (e *ClockElement) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return errNotLoaded
	}
	e.position = e.currentLocked()
	e.playing = false
	return nil
}

func (e *ClockElement) Seek(seconds float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return errNotLoaded
	}
	e.position = clamp(seconds, 0, e.duration)
	e.since = e.now()
	return nil
}

func (e *ClockElement) SetRate(rate float64) error {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return fmt.Errorf("invalid playback rate %v", rate)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = e.currentLocked()
	e.since = e.now()
	e.rate = rate
	return nil
}

func (e *ClockElement) SetMuted(muted bool) {
	e.mu.Lock()
	e.muted = muted
	e.mu.Unlock()
}

func (e *ClockElement) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentLocked()
}

func (e *ClockElement) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

func (e *ClockElement) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loaded = false
	e.playing = false
	return nil
}

func (e *ClockElement) currentLocked() float64 {
	if !e.playing {
		return e.position
	}
	elapsed := e.now().Sub(e.since).Seconds() * e.rate
	return clamp(e.position+elapsed, 0, e.duration)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
