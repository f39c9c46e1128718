//go:build linux

// Package reserve claims address ranges without backing them. A
// reservation is a PROT_NONE mapping: the kernel keeps the range out of
// every later allocation's way, no memory is committed, and any stray
// access faults. Regions can later be mapped over a reservation at a
// fixed address.
package reserve

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/srediag/shmregion/pkg/mem"
)

var (
	// ErrZeroSize reports a zero-byte reservation request.
	ErrZeroSize = errors.New("reserve: reservation size must be positive")
	// ErrZeroCount reports a contiguous request for no ranges.
	ErrZeroCount = errors.New("reserve: reservation count must be positive")
)

// Reservation is one claimed address range. It is released only by an
// explicit Unmap; dropping the value leaks the range for the life of
// the process.
type Reservation struct {
	start uintptr
	size  uintptr
}

// Reserve claims a page-rounded range at a kernel-chosen address.
func Reserve(size uintptr) (*Reservation, error) {
	if size == 0 {
		return nil, ErrZeroSize
	}
	size = mem.PageCeil(size)
	start, err := reserveRange(size)
	if err != nil {
		return nil, err
	}
	return &Reservation{start: start, size: size}, nil
}

// ReserveContiguous claims count adjacent ranges of size bytes each,
// ascending in address. The whole block comes from one kernel call:
// separate calls could land anywhere, and adjacency is the point.
func ReserveContiguous(size uintptr, count int) ([]*Reservation, error) {
	if size == 0 {
		return nil, ErrZeroSize
	}
	if count <= 0 {
		return nil, ErrZeroCount
	}
	size = mem.PageCeil(size)
	if uintptr(count) > ^uintptr(0)/size {
		return nil, fmt.Errorf("reserve: %d ranges of %d bytes overflow the address space", count, size)
	}
	start, err := reserveRange(size * uintptr(count))
	if err != nil {
		return nil, err
	}
	out := make([]*Reservation, count)
	for i := range out {
		out[i] = &Reservation{start: start + uintptr(i)*size, size: size}
	}
	return out, nil
}

func reserveRange(size uintptr) (uintptr, error) {
	return mem.Map(0, size, unix.PROT_NONE, unix.MAP_ANONYMOUS|unix.MAP_PRIVATE, -1, 0)
}

// Start returns the first address of the range.
func (r *Reservation) Start() uintptr { return r.start }

// End returns the first address past the range.
func (r *Reservation) End() uintptr { return r.start + r.size }

// Size returns the range's length in bytes.
func (r *Reservation) Size() uintptr { return r.size }

// Unmap releases the range. For a reservation made by
// ReserveContiguous only this sub-range is released; siblings stay
// claimed. A range something was mapped over at a fixed address no
// longer belongs to the reservation and must be unmapped by its owner.
func (r *Reservation) Unmap() error {
	return mem.Unmap(r.start, r.size)
}

func (r *Reservation) String() string {
	return fmt.Sprintf("reserved [0x%x,0x%x)", r.start, r.End())
}
