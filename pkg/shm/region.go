//go:build linux

package shm

import (
	"unsafe"

	"github.com/srediag/shmregion/pkg/mem"
	"github.com/srediag/shmregion/pkg/numa"
)

// RegionOptions configures OpenRegion. There is no size field: the
// mapping is sized from the carried type.
type RegionOptions struct {
	Name     string
	Create   bool
	Backend  Backend
	Policy   numa.Policy
	Populate Populate
}

// Region is a Raw mapping carrying one value of type T at its base.
//
// T must be safe to share between processes: fixed layout, no Go
// pointers, no process-local references of any kind. Every participant
// interprets the same bytes.
type Region[T any] struct {
	raw *Raw
}

// OpenRegion opens or attaches a region whose size is the page-rounded
// size of T.
func OpenRegion[T any](opts RegionOptions) (*Region[T], error) {
	var zero T
	raw, err := OpenRaw(RawOptions{
		Name:     opts.Name,
		Size:     mem.PageCeil(unsafe.Sizeof(zero)),
		Create:   opts.Create,
		Backend:  opts.Backend,
		Policy:   opts.Policy,
		Populate: opts.Populate,
	})
	if err != nil {
		return nil, err
	}
	return &Region[T]{raw: raw}, nil
}

// Ptr returns the typed view at the region base. The pointer is invalid
// after Close.
func (g *Region[T]) Ptr() *T {
	return (*T)(unsafe.Pointer(g.raw.addr)) //nolint:govet // mmap result, not a Go pointer
}

// Addr returns the page-aligned base address.
func (g *Region[T]) Addr() uintptr { return g.raw.addr }

// Size returns the page-rounded mapped size.
func (g *Region[T]) Size() uintptr { return g.raw.size }

// Name returns the name the region was opened under.
func (g *Region[T]) Name() string { return g.raw.name }

// Created reports whether this handle freshly created the backing
// object.
func (g *Region[T]) Created() bool { return g.raw.created }

// Unlink removes the backing name; see Raw.Unlink.
func (g *Region[T]) Unlink() error { return g.raw.Unlink() }

// Close unmaps the region; see Raw.Close.
func (g *Region[T]) Close() error { return g.raw.Close() }
