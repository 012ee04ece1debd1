package pipeline

import (
	"sync/atomic"
	"time"
)

// Snapshot is one load attempt. Dataset is nil when Err is set.
type Snapshot struct {
	Path     string
	Dataset  *Dataset
	Err      error
	LoadedAt time.Time
}

// Handle holds the dataset currently on display and swaps it on reload.
type Handle struct {
	path    string
	opts    Options
	current atomic.Pointer[Snapshot]
}

// NewHandle loads path once. A failed load is kept in the snapshot rather than returned;
// the dataset section degrades instead of stopping the process.
func NewHandle(path string, opts Options) *Handle {
	h := &Handle{path: path, opts: opts}
	h.current.Store(h.load())
	return h
}

func (h *Handle) load() *Snapshot {
	ds, err := LoadDataset(h.path, h.opts)
	return &Snapshot{Path: h.path, Dataset: ds, Err: err, LoadedAt: time.Now()}
}

// Path is the CSV the handle reads.
func (h *Handle) Path() string { return h.path }

// Current returns the snapshot in use.
func (h *Handle) Current() *Snapshot {
	return h.current.Load()
}

// Reload reads the file again. On failure a previously loaded dataset stays in place;
// if nothing was loaded yet the new error replaces the old one.
func (h *Handle) Reload() error {
	next := h.load()
	if next.Err != nil {
		if prev := h.current.Load(); prev == nil || prev.Dataset == nil {
			h.current.Store(next)
		}
		return next.Err
	}
	h.current.Store(next)
	return nil
}
