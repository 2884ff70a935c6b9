package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
)

// ErrReleased is returned when a released handle is used.
var ErrReleased = errors.New("media handle released")

// Registry issues Handles for sources and tracks which are still outstanding.
// A handle is owned by the component that acquired it; no other component may
// release it.
type Registry struct {
	client *http.Client

	mu      sync.Mutex
	nextID  uint64
	handles map[uint64]*Handle
}

// NewRegistry constructs a registry. A nil client uses http.DefaultClient for
// remote reads.
func NewRegistry(client *http.Client) *Registry {
	if client == nil {
		client = http.DefaultClient
	}
	return &Registry{client: client, handles: make(map[uint64]*Handle)}
}

// Handle is a resolved reference to a source, the analogue of an object URL.
type Handle struct {
	id       uint64
	source   Source
	file     *os.File
	size     int64
	registry *Registry
	released atomic.Bool
}

// Acquire resolves src. Local files are opened and held until Release; remote
// references are passed through unchanged.
func (r *Registry) Acquire(src Source) (*Handle, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	h := &Handle{source: src, registry: r}
	if !src.IsRemote() {
		file, err := os.Open(src.Path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", src.Name(), err)
		}
		info, err := file.Stat()
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("stat %s: %w", src.Name(), err)
		}
		if info.IsDir() {
			_ = file.Close()
			return nil, fmt.Errorf("open %s: is a directory", src.Name())
		}
		h.file = file
		h.size = info.Size()
	}

	r.mu.Lock()
	r.nextID++
	h.id = r.nextID
	r.handles[h.id] = h
	r.mu.Unlock()
	return h, nil
}

// Outstanding returns the number of handles that have not been released.
func (r *Registry) Outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Source returns the source the handle was acquired for.
func (h *Handle) Source() Source {
	return h.source
}

// Location returns the path or URL external tools should read.
func (h *Handle) Location() string {
	return h.source.Location()
}

// Open returns a reader over the source contents. Callers close the reader;
// closing it does not release the handle.
func (h *Handle) Open(ctx context.Context) (io.ReadCloser, error) {
	if h.released.Load() {
		return nil, ErrReleased
	}
	if h.file != nil {
		return io.NopCloser(io.NewSectionReader(h.file, 0, h.size)), nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", h.source.URL, err)
	}
	resp, err := h.registry.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", h.source.URL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %s", h.source.URL, resp.Status)
	}
	return resp.Body, nil
}

// Release frees the handle. It is safe to call more than once.
func (h *Handle) Release() {
	if h == nil || !h.released.CompareAndSwap(false, true) {
		return
	}
	if h.file != nil {
		_ = h.file.Close()
	}
	h.registry.mu.Lock()
	delete(h.registry.handles, h.id)
	h.registry.mu.Unlock()
}

// AcquireAll acquires a handle for every source. On failure every handle
// acquired so far is released and the index of the failing source is returned.
func (r *Registry) AcquireAll(sources []Source) ([]*Handle, int, error) {
	handles := make([]*Handle, 0, len(sources))
	for i, src := range sources {
		h, err := r.Acquire(src)
		if err != nil {
			ReleaseAll(handles)
			return nil, i, err
		}
		handles = append(handles, h)
	}
	return handles, -1, nil
}

// ReleaseAll releases every handle in hs.
func ReleaseAll(hs []*Handle) {
	for _, h := range hs {
		h.Release()
	}
}
