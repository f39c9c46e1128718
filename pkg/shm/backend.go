//go:build linux

package shm

import (
	"fmt"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/sys/unix"

	"github.com/srediag/shmregion/pkg/mem"
)

type backendKind uint8

// kindNamed is the zero value so a zero Backend means POSIX shm.
const (
	kindNamed backendKind = iota
	kindAnonymous
	kindDevice
)

// Backend selects how a backing store is obtained by name. The set is
// closed: named POSIX shared memory, anonymous private pages, or an
// allocation from a shared-memory device. The zero value is Named().
type Backend struct {
	kind backendKind
	dev  *Device
}

// Named returns the POSIX shared-memory backend over /dev/shm.
func Named() Backend { return Backend{kind: kindNamed} }

// Anonymous returns the backend mapping fresh private pages. Names are
// ignored and Unlink has nothing to remove.
func Anonymous() Backend { return Backend{kind: kindAnonymous} }

// OnDevice returns the backend allocating out of dev's address space.
func OnDevice(dev *Device) Backend { return Backend{kind: kindDevice, dev: dev} }

// Name reports the backend's diagnostic name.
func (b Backend) Name() string {
	switch b.kind {
	case kindAnonymous:
		return "anonymous"
	case kindDevice:
		return "ivshmem"
	}
	return "shm"
}

// Open obtains a backing store holding at least size bytes under name
// and returns its handle, to be consumed by Map. An object that does
// not exist yet is created; Created on the handle tells which happened.
func (b Backend) Open(name string, size uintptr) (*File, error) {
	if size == 0 {
		return nil, ErrZeroSize
	}
	switch b.kind {
	case kindAnonymous:
		return &File{size: mem.PageCeil(size), created: true}, nil
	case kindDevice:
		return b.dev.openRegion(name, mem.PageCeil(size))
	}
	return openNamed(name, size)
}

// Unlink removes name from the backend's namespace. Anonymous stores
// have no namespace, and the device driver's release request is not
// wired up yet, so both are no-ops.
func (b Backend) Unlink(name string) error {
	if b.kind != kindNamed {
		return nil
	}
	path, err := shmPath(name)
	if err != nil {
		return err
	}
	if err := unix.Unlink(path); err != nil {
		return &mem.OpError{Op: "shm_unlink", Err: err}
	}
	return nil
}

// openNamed creates or opens a POSIX object. An exclusive create
// decides the race between concurrent creators; the loser falls back to
// a plain open of the winner's object without resizing it, since
// truncating an object another process may already be using would
// corrupt its contents. Only the fresh object gets sized.
func openNamed(name string, size uintptr) (*File, error) {
	path, err := shmPath(name)
	if err != nil {
		return nil, err
	}
	size = mem.PageCeil(size)

	created := true
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR|unix.O_CLOEXEC, 0o666)
	if err != nil {
		if err != unix.EEXIST {
			return nil, &mem.OpError{Op: "shm_open", Err: err}
		}
		created = false
		fd, err = unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0o666)
		if err != nil {
			return nil, &mem.OpError{Op: "shm_open", Err: err}
		}
	}
	if created {
		// Attaching consumes no space, so only a fresh object is
		// prechecked. It is still empty and exclusively ours here,
		// so removing it on failure leaks nothing.
		if !canCreateOnDevShm(uint64(size), path) {
			_ = unix.Close(fd)
			_ = unix.Unlink(path)
			return nil, fmt.Errorf("%w: %s needs %d bytes", ErrNoSpace, path, size)
		}
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			_ = unix.Close(fd)
			return nil, &mem.OpError{Op: "ftruncate", Err: err}
		}
	}
	return &File{f: os.NewFile(uintptr(fd), path), size: size, created: created}, nil
}

// attach obtains an existing backing store only. The anonymous backend
// has nothing to attach to and always maps fresh pages; the device
// driver cannot look a tag up without allocating, so its handle simply
// reports whether the tag pre-existed.
func (b Backend) attach(name string, size uintptr) (*File, error) {
	if size == 0 {
		return nil, ErrZeroSize
	}
	switch b.kind {
	case kindAnonymous:
		return &File{size: mem.PageCeil(size), created: true}, nil
	case kindDevice:
		return b.dev.openRegion(name, mem.PageCeil(size))
	}
	return attachNamed(name, size)
}

// attachNamed opens an existing object only; a missing name surfaces as
// a not-found error with nothing created.
func attachNamed(name string, size uintptr) (*File, error) {
	path, err := shmPath(name)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0o666)
	if err != nil {
		return nil, &mem.OpError{Op: "shm_open", Err: err}
	}
	return &File{f: os.NewFile(uintptr(fd), path), size: mem.PageCeil(size), created: false}, nil
}

// canCreateOnDevShm reports whether path can take need more bytes.
// Paths outside /dev/shm and hosts whose usage cannot be read are
// always allowed; the kernel has the final word either way.
func canCreateOnDevShm(need uint64, path string) bool {
	if !strings.HasPrefix(path, devShmDir) {
		return true
	}
	usage, err := disk.Usage(devShmDir)
	if err != nil {
		return true
	}
	return usage.Free >= need
}
