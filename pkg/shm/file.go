//go:build linux

package shm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/srediag/shmregion/internal/logging"
	"github.com/srediag/shmregion/pkg/mem"
	"github.com/srediag/shmregion/pkg/numa"
)

// File is an open backing store, consumed exactly once by Map. A nil
// descriptor means the mapping will be private and anonymous; a real
// one means shared and validated.
type File struct {
	f       *os.File
	size    uintptr
	offset  int64
	created bool
}

// Created reports whether Open freshly created the backing object.
func (f *File) Created() bool { return f.created }

// Size reports the page-rounded mapping size.
func (f *File) Size() uintptr { return f.size }

func (f *File) fd() int {
	if f.f == nil {
		return -1
	}
	return int(f.f.Fd())
}

func (f *File) mapFlags() int {
	if f.f == nil {
		return unix.MAP_ANONYMOUS | unix.MAP_PRIVATE
	}
	return unix.MAP_SHARED_VALIDATE
}

func (f *File) close() {
	if f.f == nil {
		return
	}
	if err := f.f.Close(); err != nil {
		logging.Warnf("shm: backing descriptor close: %v", err)
	}
	f.f = nil
}

// Populate selects how eagerly a fresh mapping is backed.
type Populate uint8

const (
	// PopulateNone leaves faulting to first touch.
	PopulateNone Populate = iota
	// PopulatePageTable prefaults page tables at map time.
	PopulatePageTable
	// PopulatePhysical forces physical frames right after mapping.
	// Pages never faulted writable are not guaranteed backed.
	PopulatePhysical
)

// MapConfig controls placement for Map. The zero value maps at a
// kernel-chosen address with no policy and lazy faulting.
type MapConfig struct {
	// Addr, when non-zero, demands this exact base address. The caller
	// must guarantee the range overlaps no live mapping it does not
	// intend to replace; a reservation from pkg/reserve is the usual
	// source of such addresses.
	Addr uintptr
	// Policy, when set, places physical pages before any population.
	Policy numa.Policy
	// Populate selects eager backing.
	Populate Populate
}

// Map consumes f and returns the page-aligned base of a live read-write
// mapping. The descriptor is closed whatever the outcome; the mapping
// keeps the backing object alive.
//
// A fixed-address request that comes back at any other address panics:
// the process's address-space bookkeeping is already broken and
// continuing would corrupt memory. When binding or population fails the
// fresh mapping is unmapped before the error returns; a fixed-address
// target's placeholder is gone at that point, the range is a bare hole.
func (f *File) Map(cfg MapConfig) (uintptr, error) {
	flags := f.mapFlags()
	if cfg.Addr != 0 {
		flags |= unix.MAP_FIXED
	}
	if cfg.Populate == PopulatePageTable {
		flags |= unix.MAP_POPULATE
	}

	base, err := mem.Map(cfg.Addr, f.size, unix.PROT_READ|unix.PROT_WRITE, flags, f.fd(), f.offset)
	f.close()
	if err != nil {
		return 0, err
	}
	if cfg.Addr != 0 && base != cfg.Addr {
		panic(fmt.Sprintf("shm: fixed map landed at 0x%x, want 0x%x (%d bytes)", base, cfg.Addr, f.size))
	}

	// Policy first: physical placement during population must honor it.
	if !cfg.Policy.IsZero() {
		if err := numa.BindRange(cfg.Policy, base, f.size); err != nil {
			_ = mem.Unmap(base, f.size)
			return 0, err
		}
	}
	if cfg.Populate == PopulatePhysical {
		if err := populatePhysical(base, f.size); err != nil {
			_ = mem.Unmap(base, f.size)
			return 0, err
		}
	}
	return base, nil
}
