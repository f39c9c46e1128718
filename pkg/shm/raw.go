//go:build linux

package shm

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/srediag/shmregion/internal/logging"
	"github.com/srediag/shmregion/pkg/mem"
	"github.com/srediag/shmregion/pkg/numa"
)

// RawOptions configures OpenRaw. The zero Backend is Named().
type RawOptions struct {
	// Name identifies the backing object. The anonymous backend
	// ignores it.
	Name string
	// Size is the minimum region size in bytes; the mapping rounds up
	// to whole pages.
	Size uintptr
	// Create removes stale leftovers under Name and creates the object
	// when missing. When false OpenRaw only attaches: a missing object
	// is an error, nothing is created.
	Create bool
	// Backend selects the backing store.
	Backend Backend
	// Policy, when set, places physical pages.
	Policy numa.Policy
	// Populate selects eager backing.
	Populate Populate
}

// Raw is a live byte-addressed mapping of a backing store. Exactly one
// coordinating process normally calls Unlink when the name is done;
// every process Closes its own mapping.
type Raw struct {
	name    string
	backend Backend
	addr    uintptr
	size    uintptr
	created bool

	mu     sync.Mutex
	closed bool
}

// OpenRaw opens or attaches the named backing store and maps it at a
// kernel-chosen address.
//
// A create call first best-effort unlinks any leftover object under the
// name (named backend only): a previous run may have crashed and an
// inherited object has ambiguous size and contents. A missing leftover
// is fine; any other unlink failure aborts the open.
func OpenRaw(opts RawOptions) (*Raw, error) {
	if opts.Create && opts.Backend.kind == kindNamed {
		switch err := opts.Backend.Unlink(opts.Name); {
		case err == nil:
			staleUnlinks.Inc()
			emit(EventStaleUnlinked, opts.Name)
		case mem.IsNotFound(err):
		default:
			return nil, err
		}
	}

	var (
		file *File
		err  error
	)
	if opts.Create {
		file, err = opts.Backend.Open(opts.Name, opts.Size)
	} else {
		file, err = opts.Backend.attach(opts.Name, opts.Size)
	}
	if err != nil {
		return nil, err
	}

	size, created := file.Size(), file.Created()
	base, err := file.Map(MapConfig{Policy: opts.Policy, Populate: opts.Populate})
	if err != nil {
		return nil, err
	}

	r := &Raw{
		name:    opts.Name,
		backend: opts.Backend,
		addr:    base,
		size:    size,
		created: created,
	}
	registerRegion(r.registryKey())
	regionOpens.WithLabelValues(opts.Backend.Name(), outcomeLabel(created)).Inc()
	emit(EventRegionMapped, fmt.Sprintf("%s backend=%s size=%d addr=0x%x",
		r.registryKey(), opts.Backend.Name(), size, base))
	runtime.SetFinalizer(r, (*Raw).finalize)
	return r, nil
}

// Addr returns the page-aligned base address.
func (r *Raw) Addr() uintptr { return r.addr }

// Size returns the page-rounded mapped size.
func (r *Raw) Size() uintptr { return r.size }

// Name returns the name the region was opened under.
func (r *Raw) Name() string { return r.name }

// Created reports whether this handle freshly created the backing
// object.
func (r *Raw) Created() bool { return r.created }

// Bytes returns the mapped range as a byte slice sharing the region's
// storage. It returns nil once the region is closed.
func (r *Raw) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(r.addr)), r.size) //nolint:govet // mmap result, not a Go pointer
}

// Unlink removes the backing name from the OS namespace. It is
// idempotent: a name someone already removed counts as success. The
// local mapping stays valid until Close.
func (r *Raw) Unlink() error {
	err := r.backend.Unlink(r.name)
	if err != nil && !mem.IsNotFound(err) {
		return err
	}
	return nil
}

// Close unmaps the region; the range must not be touched afterwards.
// A munmap failure panics: a half-dead shared mapping would poison any
// later mapping placed at the same range. Double Close is a no-op.
func (r *Raw) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	runtime.SetFinalizer(r, nil)
	r.unmap()
	return nil
}

func (r *Raw) unmap() {
	if err := mem.Unmap(r.addr, r.size); err != nil {
		panic(fmt.Sprintf("shm: munmap 0x%x (%d bytes) of %q failed: %v",
			r.addr, r.size, r.registryKey(), err))
	}
	unregisterRegion(r.registryKey())
	regionUnmaps.Inc()
	emit(EventRegionUnmapped, fmt.Sprintf("%s size=%d addr=0x%x", r.registryKey(), r.size, r.addr))
}

// finalize backstops a forgotten Close the way os.File backstops a
// forgotten descriptor. The mapping still goes away; the warning names
// the leak.
func (r *Raw) finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	logging.Warnf("shm: region %q leaked, unmapped by finalizer", r.registryKey())
	r.unmap()
}

func (r *Raw) registryKey() string {
	if r.name == "" {
		return "(anonymous)"
	}
	return r.name
}
