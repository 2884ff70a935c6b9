package transport_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"arena/internal/media"
	"arena/internal/session"
	"arena/internal/transport"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func writeSource(t *testing.T, dir, variant, name string) media.Source {
	t.Helper()
	path := filepath.Join(dir, variant+"-"+name)
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return media.LocalSource(variant, path)
}

type harness struct {
	ctrl     *transport.Controller
	registry *media.Registry
	clock    *fakeClock
	tc       session.TestCase
}

func newHarness(t *testing.T, kind media.Kind, blind bool, durations map[string]float64) harness {
	t.Helper()
	dir := t.TempDir()
	sess := &session.Session{
		ID:    "s1",
		Kind:  kind,
		Blind: blind,
		Variants: []session.Variant{
			{ID: "a", Name: "Alpha", Color: "#111111"},
			{ID: "b", Name: "Beta", Color: "#222222"},
		},
	}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	registry := media.NewRegistry(nil)
	factory := func(v session.Variant) transport.Element {
		probe := func(ctx context.Context, h *media.Handle) (float64, error) {
			d, ok := durations[v.ID]
			if !ok {
				return 0, errors.New("decode failed")
			}
			return d, nil
		}
		if kind == media.KindImage {
			probe = nil
		}
		return transport.NewClockElement(probe, clock.Now)
	}
	ctrl := transport.NewController(sess, transport.Options{
		Registry:   registry,
		NewElement: factory,
		Rand:       rand.New(rand.NewSource(1)),
	})
	tc := session.TestCase{
		ID:   "clip",
		Name: "clip",
		Sources: []media.Source{
			writeSource(t, dir, "a", "clip.mp4"),
			writeSource(t, dir, "b", "clip.mp4"),
		},
	}
	return harness{ctrl: ctrl, registry: registry, clock: clock, tc: tc}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestSeekClampsAndReportsTime(t *testing.T) {
	h := newHarness(t, media.KindVideo, false, map[string]float64{"a": 10, "b": 8})
	if err := h.ctrl.SetCase(context.Background(), h.tc); err != nil {
		t.Fatalf("SetCase: %v", err)
	}
	if h.ctrl.State() != transport.StateReady {
		t.Fatalf("state = %s, want ready", h.ctrl.State())
	}
	if h.ctrl.Duration() != 10 {
		t.Fatalf("duration = %v, want 10 from the first element", h.ctrl.Duration())
	}
	tests := []struct {
		seek float64
		want float64
	}{
		{seek: 4.5, want: 4.5},
		{seek: -3, want: 0},
		{seek: 120, want: 10},
		{seek: math.NaN(), want: 0},
	}
	for _, tt := range tests {
		got, err := h.ctrl.Seek(tt.seek)
		if err != nil {
			t.Fatalf("Seek(%v): %v", tt.seek, err)
		}
		if !near(got, tt.want) || !near(h.ctrl.CurrentTime(), tt.want) {
			t.Fatalf("Seek(%v) = %v, time %v; want %v", tt.seek, got, h.ctrl.CurrentTime(), tt.want)
		}
	}
}

func TestPlayAdvancesAtRateAndRatePersists(t *testing.T) {
	h := newHarness(t, media.KindVideo, false, map[string]float64{"a": 10, "b": 10})
	ctx := context.Background()
	if err := h.ctrl.SetCase(ctx, h.tc); err != nil {
		t.Fatalf("SetCase: %v", err)
	}
	if err := h.ctrl.SetRate(2); err != nil {
		t.Fatalf("SetRate: %v", err)
	}
	if err := h.ctrl.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	h.clock.Advance(1500 * time.Millisecond)
	if got := h.ctrl.CurrentTime(); !near(got, 3) {
		t.Fatalf("time = %v, want 3", got)
	}
	if h.ctrl.State() != transport.StatePlaying {
		t.Fatalf("state = %s", h.ctrl.State())
	}
	h.clock.Advance(10 * time.Second)
	if got := h.ctrl.CurrentTime(); got != 10 {
		t.Fatalf("time = %v, want clamp to 10", got)
	}
	if h.ctrl.State() != transport.StatePaused {
		t.Fatalf("ended transport state = %s, want paused", h.ctrl.State())
	}

	if err := h.ctrl.SetCase(ctx, h.tc); err != nil {
		t.Fatalf("SetCase again: %v", err)
	}
	if h.ctrl.Rate() != 2 {
		t.Fatalf("rate = %v, want 2 after case change", h.ctrl.Rate())
	}
	if h.ctrl.CurrentTime() != 0 || h.ctrl.State() != transport.StateReady {
		t.Fatalf("new case should start paused at 0, got %v %s", h.ctrl.CurrentTime(), h.ctrl.State())
	}
	_ = h.ctrl.Play()
	h.clock.Advance(time.Second)
	if got := h.ctrl.CurrentTime(); !near(got, 2) {
		t.Fatalf("time = %v, want 2 at persisted rate", got)
	}
	if err := h.ctrl.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if h.ctrl.CurrentTime() != 0 || h.ctrl.State() != transport.StateReady {
		t.Fatalf("reset left %v %s", h.ctrl.CurrentTime(), h.ctrl.State())
	}
}

func TestPlayAfterEndRestartsFromZero(t *testing.T) {
	h := newHarness(t, media.KindVideo, false, map[string]float64{"a": 4, "b": 4})
	if err := h.ctrl.SetCase(context.Background(), h.tc); err != nil {
		t.Fatalf("SetCase: %v", err)
	}
	if err := h.ctrl.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	h.clock.Advance(6 * time.Second)
	if h.ctrl.State() != transport.StatePaused {
		t.Fatalf("state at end = %s, want paused", h.ctrl.State())
	}
	if err := h.ctrl.TogglePlay(); err != nil {
		t.Fatalf("TogglePlay: %v", err)
	}
	if h.ctrl.State() != transport.StatePlaying {
		t.Fatalf("state after toggle = %s, want playing", h.ctrl.State())
	}
	if got := h.ctrl.CurrentTime(); got != 0 {
		t.Fatalf("time after replay = %v, want 0", got)
	}
	h.clock.Advance(time.Second)
	if got := h.ctrl.CurrentTime(); !near(got, 1) {
		t.Fatalf("time = %v, want 1", got)
	}
}

func TestSetCaseLoadsConcurrentlyAndReportsLoading(t *testing.T) {
	sess := &session.Session{
		ID:   "s1",
		Kind: media.KindVideo,
		Variants: []session.Variant{
			{ID: "a", Name: "Alpha"},
			{ID: "b", Name: "Beta"},
			{ID: "c", Name: "Gamma"},
		},
	}
	started := make(chan string, len(sess.Variants))
	release := make(chan struct{})
	registry := media.NewRegistry(nil)
	ctrl := transport.NewController(sess, transport.Options{
		Registry: registry,
		NewElement: func(v session.Variant) transport.Element {
			return transport.NewClockElement(func(ctx context.Context, h *media.Handle) (float64, error) {
				started <- v.ID
				<-release
				return 5, nil
			}, nil)
		},
		Rand: rand.New(rand.NewSource(1)),
	})
	dir := t.TempDir()
	tc := session.TestCase{ID: "clip", Name: "clip"}
	for _, v := range sess.Variants {
		tc.Sources = append(tc.Sources, writeSource(t, dir, v.ID, "clip.mp4"))
	}

	done := make(chan error, 1)
	go func() { done <- ctrl.SetCase(context.Background(), tc) }()

	for range sess.Variants {
		select {
		case <-started:
		case <-time.After(5 * time.Second):
			t.Fatal("elements did not start loading concurrently")
		}
	}
	if got := ctrl.State(); got != transport.StateLoading {
		t.Fatalf("state while loading = %s, want loading", got)
	}
	for _, slot := range ctrl.Slots() {
		if !errors.Is(slot.Err, transport.ErrLoading) {
			t.Fatalf("slot %s while loading: %v", slot.VariantID, slot.Err)
		}
	}
	if err := ctrl.Play(); err != nil {
		t.Fatalf("Play while loading: %v", err)
	}
	if got := ctrl.State(); got != transport.StateLoading {
		t.Fatalf("Play while loading changed state to %s", got)
	}

	close(release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("SetCase: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("SetCase did not finish")
	}
	if got := ctrl.State(); got != transport.StateReady {
		t.Fatalf("state after load = %s, want ready", got)
	}
	for _, slot := range ctrl.Slots() {
		if !slot.Loaded() {
			t.Fatalf("slot %s not loaded: %v", slot.VariantID, slot.Err)
		}
	}
	if registry.Outstanding() != len(sess.Variants) {
		t.Fatalf("outstanding = %d", registry.Outstanding())
	}
	_ = ctrl.Close()
	if registry.Outstanding() != 0 {
		t.Fatalf("outstanding after close = %d", registry.Outstanding())
	}
}

func TestCloseDuringLoadReleasesHandles(t *testing.T) {
	sess := &session.Session{
		ID:       "s1",
		Kind:     media.KindVideo,
		Variants: []session.Variant{{ID: "a"}, {ID: "b"}},
	}
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	registry := media.NewRegistry(nil)
	ctrl := transport.NewController(sess, transport.Options{
		Registry: registry,
		NewElement: func(session.Variant) transport.Element {
			return transport.NewClockElement(func(ctx context.Context, h *media.Handle) (float64, error) {
				started <- struct{}{}
				<-release
				return 5, nil
			}, nil)
		},
	})
	dir := t.TempDir()
	tc := session.TestCase{ID: "clip", Sources: []media.Source{
		writeSource(t, dir, "a", "clip.mp4"),
		writeSource(t, dir, "b", "clip.mp4"),
	}}

	done := make(chan error, 1)
	go func() { done <- ctrl.SetCase(context.Background(), tc) }()
	<-started
	<-started
	if err := ctrl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("superseded SetCase: %v", err)
	}
	if ctrl.State() != transport.StateIdle {
		t.Fatalf("state = %s, want idle", ctrl.State())
	}
	if registry.Outstanding() != 0 {
		t.Fatalf("outstanding = %d, want 0", registry.Outstanding())
	}
}

func TestFailedElementDegradesOnlyItsSlot(t *testing.T) {
	h := newHarness(t, media.KindVideo, false, map[string]float64{"b": 6})
	if err := h.ctrl.SetCase(context.Background(), h.tc); err != nil {
		t.Fatalf("SetCase: %v", err)
	}
	slots := h.ctrl.Slots()
	if len(slots) != 2 {
		t.Fatalf("slots = %d", len(slots))
	}
	if slots[0].Loaded() || !slots[1].Loaded() {
		t.Fatalf("unexpected slot state: %+v", slots)
	}
	if h.ctrl.Duration() != 6 {
		t.Fatalf("clock should fall back to the first loaded element, duration %v", h.ctrl.Duration())
	}
	if h.registry.Outstanding() != 1 {
		t.Fatalf("outstanding = %d, want 1", h.registry.Outstanding())
	}
	if err := h.ctrl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if h.registry.Outstanding() != 0 {
		t.Fatalf("outstanding after close = %d", h.registry.Outstanding())
	}
	if h.ctrl.State() != transport.StateIdle {
		t.Fatalf("state after close = %s", h.ctrl.State())
	}
}

func TestMissingFileShowsNoSource(t *testing.T) {
	h := newHarness(t, media.KindVideo, false, map[string]float64{"a": 5, "b": 5})
	h.tc.Sources[1] = media.LocalSource("b", filepath.Join(t.TempDir(), "gone.mp4"))
	if err := h.ctrl.SetCase(context.Background(), h.tc); err != nil {
		t.Fatalf("SetCase: %v", err)
	}
	slots := h.ctrl.Slots()
	if !slots[0].Loaded() || slots[1].Loaded() {
		t.Fatalf("unexpected slots %+v", slots)
	}
	if h.registry.Outstanding() != 1 {
		t.Fatalf("outstanding = %d", h.registry.Outstanding())
	}
}

func TestImageSessionHasNoTransport(t *testing.T) {
	h := newHarness(t, media.KindImage, false, nil)
	if err := h.ctrl.Play(); !errors.Is(err, transport.ErrNoCase) {
		t.Fatalf("Play before case = %v, want ErrNoCase", err)
	}
	if err := h.ctrl.SetCase(context.Background(), h.tc); err != nil {
		t.Fatalf("SetCase: %v", err)
	}
	if h.ctrl.HasTransport() {
		t.Fatal("image session must not expose a transport")
	}
	if err := h.ctrl.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if h.ctrl.State() != transport.StateReady {
		t.Fatalf("state = %s, want ready", h.ctrl.State())
	}
	if got, _ := h.ctrl.Seek(3); got != 0 {
		t.Fatalf("Seek = %v, want 0", got)
	}
}

func TestBlindLayoutUsesPositionPalette(t *testing.T) {
	h := newHarness(t, media.KindVideo, true, map[string]float64{"a": 5, "b": 5})
	if err := h.ctrl.SetCase(context.Background(), h.tc); err != nil {
		t.Fatalf("SetCase: %v", err)
	}
	for i, slot := range h.ctrl.Slots() {
		if slot.Label != transport.BlindLabel(i) {
			t.Fatalf("slot %d label = %q", i, slot.Label)
		}
		if slot.Color != transport.Palette[i] {
			t.Fatalf("slot %d color = %q", i, slot.Color)
		}
		if strings.Contains(slot.Label, "Alpha") || strings.Contains(slot.Label, "Beta") {
			t.Fatalf("blind label leaks identity: %q", slot.Label)
		}
	}
}

func TestBlindPermutationIsUniform(t *testing.T) {
	variants := []session.Variant{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	rng := rand.New(rand.NewSource(42))
	const rounds = 6000
	counts := map[string][]int{"a": make([]int, 3), "b": make([]int, 3), "c": make([]int, 3)}
	unchanged := 0
	var prev []string
	for i := 0; i < rounds; i++ {
		order := transport.NewLayout(variants, true, rng).Order()
		for pos, id := range order {
			counts[id][pos]++
		}
		if prev != nil && strings.Join(prev, ",") == strings.Join(order, ",") {
			unchanged++
		}
		prev = order
	}
	expected := rounds / 3
	for id, perPos := range counts {
		for pos, n := range perPos {
			if math.Abs(float64(n-expected)) > float64(expected)*0.1 {
				t.Fatalf("variant %s at position %d seen %d times, expected about %d", id, pos, n, expected)
			}
		}
	}
	if float64(unchanged)/rounds > 0.25 {
		t.Fatalf("mapping repeated in %d of %d transitions", unchanged, rounds)
	}
}

func TestNonBlindLayoutKeepsSessionOrder(t *testing.T) {
	variants := []session.Variant{{ID: "a", Name: "Alpha", Color: "#111111"}, {ID: "b", Name: "Beta", Color: "#222222"}}
	layout := transport.NewLayout(variants, false, rand.New(rand.NewSource(3)))
	if got := strings.Join(layout.Order(), ","); got != "a,b" {
		t.Fatalf("order = %s", got)
	}
	pos, ok := layout.PositionOf("b")
	if !ok || pos.Index != 1 || pos.Label != "Beta" || pos.Color != "#222222" {
		t.Fatalf("PositionOf(b) = %+v, %v", pos, ok)
	}
	if transport.BlindLabel(27) != "Model AB" {
		t.Fatalf("BlindLabel(27) = %q", transport.BlindLabel(27))
	}
}
