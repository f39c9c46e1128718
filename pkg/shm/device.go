//go:build linux

package shm

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/srediag/shmregion/pkg/mem"
)

// DefaultDevicePath is the shared-memory device node opened by
// OpenDevice.
const DefaultDevicePath = "/dev/cxl_ivpci0"

// Device is an open handle to a shared-memory device node. Regions are
// carved out of the device's address space through its control
// protocol and mapped through duplicates of its descriptor.
type Device struct {
	f    *os.File
	path string
}

// OpenDevice opens the default device node.
func OpenDevice() (*Device, error) {
	return OpenDevicePath(DefaultDevicePath)
}

// OpenDevicePath opens an explicit device node.
func OpenDevicePath(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open device: %w", err)
	}
	return &Device{f: f, path: path}, nil
}

// Path reports the device node this handle was opened on.
func (d *Device) Path() string { return d.path }

// Close releases the device handle. Regions already opened keep their
// own duplicated descriptors and stay usable.
func (d *Device) Close() error { return d.f.Close() }

// openRegion asks the driver to find or allocate a region for name and
// wraps the result in a backing-store handle carrying a dup of the
// device descriptor and the driver-reported byte offset.
func (d *Device) openRegion(name string, size uintptr) (*File, error) {
	req, err := d.findOrAlloc(name, uint64(size))
	if err != nil {
		return nil, err
	}
	if req.Existing != 0 {
		emit(EventDeviceReused, fmt.Sprintf("%s tag=%s offset=0x%x", d.path, name, req.Desc.Offset))
	}
	dupFd, err := unix.Dup(int(d.f.Fd()))
	if err != nil {
		return nil, &mem.OpError{Op: "dup", Err: err}
	}
	unix.CloseOnExec(dupFd)
	return &File{
		f:       os.NewFile(uintptr(dupFd), d.path),
		size:    size,
		offset:  int64(req.Desc.Offset),
		created: req.Existing == 0,
	}, nil
}

// findOrAlloc issues the find-or-allocate request. The driver locates a
// live allocation tagged name or makes a fresh one, reporting its
// offset and whether it pre-existed.
func (d *Device) findOrAlloc(name string, length uint64) (findAllocRequest, error) {
	desc, err := newRegionDesc(name, 0, length)
	if err != nil {
		return findAllocRequest{}, err
	}
	req := findAllocRequest{Desc: desc}
	if err := mem.Ioctl(int(d.f.Fd()), reqFindAlloc, unsafe.Pointer(&req)); err != nil {
		return findAllocRequest{}, fmt.Errorf("find-or-allocate %q: %w", name, err)
	}
	return req, nil
}

// free issues the driver's release request for an allocation. The
// driver's cleanup contract is still unsettled upstream, so Unlink
// never calls this.
func (d *Device) free(name string, offset, length uint64) error {
	desc, err := newRegionDesc(name, offset, length)
	if err != nil {
		return err
	}
	if err := mem.Ioctl(int(d.f.Fd()), reqFree, unsafe.Pointer(&desc)); err != nil {
		return fmt.Errorf("free %q: %w", name, err)
	}
	return nil
}
