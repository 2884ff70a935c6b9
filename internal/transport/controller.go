package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"arena/internal/logging"
	"arena/internal/media"
	"arena/internal/services"
	"arena/internal/session"
)

// State is the transport lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

var errNotLoaded = errors.New("element not loaded")

// ErrLoading marks slots whose element is still loading.
var ErrLoading = errors.New("loading")

// ErrNoCase is returned by commands issued before a case is loaded.
var ErrNoCase = errors.New("no active case")

// ElementFactory builds a fresh element for a variant.
type ElementFactory func(variant session.Variant) Element

// Options configures a Controller.
type Options struct {
	Registry   *media.Registry
	NewElement ElementFactory
	Rand       *rand.Rand
	Logger     *slog.Logger
}

// Slot is the per-position view of the active case.
type Slot struct {
	Position
	Source media.Source
	// Err is set when the slot's media could not be loaded; the slot renders
	// as a "no source" placeholder.
	Err error
}

// Loaded reports whether the slot has playable media.
func (s Slot) Loaded() bool {
	return s.Err == nil
}

type binding struct {
	variant session.Variant
	source  media.Source
	handle  *media.Handle
	element Element
	err     error
}

// Controller drives every element of the active case as one transport.
type Controller struct {
	session  *session.Session
	registry *media.Registry
	factory  ElementFactory
	rng      *rand.Rand
	logger   *slog.Logger

	mu         sync.Mutex
	generation uint64
	state      State
	active     *session.TestCase
	bindings   []binding
	layout     Layout
	rate       float64
	muted      bool
}

// NewController constructs an idle controller for sess.
func NewController(sess *session.Session, opts Options) *Controller {
	registry := opts.Registry
	if registry == nil {
		registry = media.NewRegistry(nil)
	}
	factory := opts.NewElement
	if factory == nil {
		factory = func(session.Variant) Element { return NewClockElement(nil, nil) }
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		session:  sess,
		registry: registry,
		factory:  factory,
		rng:      rng,
		logger:   logging.NewComponentLogger(logger, "transport"),
		state:    StateIdle,
		rate:     1,
	}
}

// HasTransport reports whether play, pause, and seek do anything. Image
// sessions have no transport and those commands are no-ops.
func (c *Controller) HasTransport() bool {
	return c.session.Kind.HasTransport()
}

// SetCase makes tc the active case. Previous elements are closed and their
// handles released. Elements load concurrently without holding the lock, and
// the controller reports Loading until all of them finish. Transport commands
// issued while loading are ignored. Elements that fail to load leave their
// slot empty and the call still succeeds unless ctx is cancelled. A later
// SetCase or Close supersedes an in-flight load.
func (c *Controller) SetCase(ctx context.Context, tc session.TestCase) error {
	c.mu.Lock()
	c.teardownLocked()
	c.generation++
	gen := c.generation
	c.state = StateLoading
	active := tc
	c.active = &active
	c.layout = NewLayout(c.session.Variants, c.session.Blind, c.rng)
	variants := slices.Clone(c.session.Variants)
	c.bindings = make([]binding, len(variants))
	for i, v := range variants {
		c.bindings[i] = binding{variant: v, err: ErrLoading}
	}
	c.mu.Unlock()

	ctx = services.WithCaseID(ctx, tc.ID)
	logger := c.logger.With(logging.String(logging.FieldCaseID, tc.ID))
	loaded := make([]binding, len(variants))
	var g errgroup.Group
	for i, v := range variants {
		g.Go(func() error {
			loaded[i] = c.bind(ctx, logger, v, tc)
			return nil
		})
	}
	_ = g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		releaseBindings(loaded)
		logger.Debug("case load superseded")
		return nil
	}
	if err := ctx.Err(); err != nil {
		releaseBindings(loaded)
		c.teardownLocked()
		return err
	}

	c.bindings = loaded
	for _, b := range c.bindings {
		if b.element == nil {
			continue
		}
		if err := b.element.SetRate(c.rate); err != nil {
			logger.Debug("apply rate failed", logging.String(logging.FieldVariant, b.variant.ID), logging.Error(err))
		}
		b.element.SetMuted(c.muted)
		_ = b.element.Seek(0)
	}
	c.state = StateReady
	logger.Debug("case ready",
		logging.Int("loaded", c.loadedLocked()),
		logging.Int("variants", len(c.bindings)),
		logging.Bool("blind", c.layout.Blind),
	)
	return nil
}

func (c *Controller) bind(ctx context.Context, logger *slog.Logger, v session.Variant, tc session.TestCase) binding {
	b := binding{variant: v}
	src, ok := tc.SourceFor(v.ID)
	if !ok {
		b.err = fmt.Errorf("case %s has no source for %s", tc.ID, v.ID)
		return b
	}
	b.source = src
	handle, err := c.registry.Acquire(src)
	if err != nil {
		b.err = err
		logging.WarnWithContext(logger, "source unavailable", "transport_load_failed",
			logging.String(logging.FieldVariant, v.ID),
			logging.String(logging.FieldErrorHint, "slot shows no source"),
			logging.Error(err),
		)
		return b
	}
	element := c.factory(v)
	if err := element.Load(ctx, handle); err != nil {
		_ = element.Close()
		handle.Release()
		b.err = err
		logging.WarnWithContext(logger, "element load failed", "transport_load_failed",
			logging.String(logging.FieldVariant, v.ID),
			logging.String(logging.FieldErrorHint, "slot shows no source"),
			logging.Error(err),
		)
		return b
	}
	b.handle = handle
	b.element = element
	return b
}

func releaseBindings(bindings []binding) {
	for _, b := range bindings {
		if b.element != nil {
			_ = b.element.Close()
		}
		if b.handle != nil {
			b.handle.Release()
		}
	}
}

// Case returns the active case.
func (c *Controller) Case() (session.TestCase, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return session.TestCase{}, false
	}
	return *c.active, true
}

// State returns the lifecycle state. A playing transport whose clock reached
// the end reports Paused.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StatePlaying && c.atEndLocked() {
		return StatePaused
	}
	return c.state
}

// Play starts every element. A transport whose clock reached the end
// restarts from zero.
func (c *Controller) Play() error {
	return c.transition(StatePlaying, Element.Play)
}

// Pause stops every element.
func (c *Controller) Pause() error {
	return c.transition(StatePaused, Element.Pause)
}

// TogglePlay flips between playing and paused.
func (c *Controller) TogglePlay() error {
	if c.State() == StatePlaying {
		return c.Pause()
	}
	return c.Play()
}

func (c *Controller) transition(next State, cmd func(Element) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return ErrNoCase
	}
	if !c.HasTransport() || c.state == StateLoading {
		return nil
	}
	if next == StatePlaying && c.atEndLocked() {
		c.broadcastLocked("rewind", func(e Element) error {
			if err := e.Pause(); err != nil {
				return err
			}
			return e.Seek(0)
		})
	}
	c.broadcastLocked(string(next), cmd)
	c.state = next
	return nil
}

// Seek moves every element to seconds clamped to [0, Duration] and returns
// the clamped target. It does not wait for the elements to confirm.
func (c *Controller) Seek(seconds float64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return 0, ErrNoCase
	}
	if !c.HasTransport() || c.state == StateLoading {
		return 0, nil
	}
	target := clamp(seconds, 0, c.durationLocked())
	c.broadcastLocked("seek", func(e Element) error { return e.Seek(target) })
	return target, nil
}

// SetRate changes the playback rate. The rate carries over to later cases.
func (c *Controller) SetRate(rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("playback rate must be positive, got %v", rate)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rate = rate
	c.broadcastLocked("rate", func(e Element) error { return e.SetRate(rate) })
	return nil
}

// Rate returns the session playback rate.
func (c *Controller) Rate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

// SetMuted mutes or unmutes every element.
func (c *Controller) SetMuted(muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.muted = muted
	for _, b := range c.bindings {
		if b.element != nil {
			b.element.SetMuted(muted)
		}
	}
}

// Muted reports the session mute flag.
func (c *Controller) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// CurrentTime reports the clock element's playhead.
func (c *Controller) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if clock := c.clockLocked(); clock != nil {
		return clock.CurrentTime()
	}
	return 0
}

// Duration reports the clock element's duration.
func (c *Controller) Duration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.durationLocked()
}

// Reset pauses every element and returns all playheads to zero.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return ErrNoCase
	}
	if c.state == StateLoading {
		return nil
	}
	c.broadcastLocked("reset", func(e Element) error {
		if err := e.Pause(); err != nil {
			return err
		}
		return e.Seek(0)
	})
	c.state = StateReady
	return nil
}

// Layout returns the presentation layout of the active case.
func (c *Controller) Layout() Layout {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layout
}

// Slots returns the active case in presentation order.
func (c *Controller) Slots() []Slot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return nil
	}
	byVariant := make(map[string]binding, len(c.bindings))
	for _, b := range c.bindings {
		byVariant[b.variant.ID] = b
	}
	slots := make([]Slot, 0, len(c.layout.Positions))
	for _, pos := range c.layout.Positions {
		b := byVariant[pos.VariantID]
		slots = append(slots, Slot{Position: pos, Source: b.source, Err: b.err})
	}
	return slots
}

// Close releases every element and handle and returns to Idle.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.teardownLocked()
	return nil
}

func (c *Controller) teardownLocked() {
	releaseBindings(c.bindings)
	c.bindings = nil
	c.active = nil
	c.layout = Layout{}
	c.state = StateIdle
}

func (c *Controller) broadcastLocked(command string, cmd func(Element) error) {
	for _, b := range c.bindings {
		if b.element == nil {
			continue
		}
		if err := cmd(b.element); err != nil {
			c.logger.Debug("element command failed",
				logging.String("command", command),
				logging.String(logging.FieldVariant, b.variant.ID),
				logging.Error(err),
			)
		}
	}
}

func (c *Controller) clockLocked() Element {
	for _, b := range c.bindings {
		if b.element != nil {
			return b.element
		}
	}
	return nil
}

func (c *Controller) atEndLocked() bool {
	clock := c.clockLocked()
	return clock != nil && clock.CurrentTime() >= clock.Duration()
}

func (c *Controller) durationLocked() float64 {
	if clock := c.clockLocked(); clock != nil {
		return clock.Duration()
	}
	return 0
}

func (c *Controller) loadedLocked() int {
	n := 0
	for _, b := range c.bindings {
		if b.element != nil {
			n++
		}
	}
	return n
}
