//go:build linux

package mem

import (
	"math"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Memory-policy modes from linux/mempolicy.h, declared locally so the
// placement syscalls work without libnuma.
const (
	MpolDefault    = 0
	MpolPreferred  = 1
	MpolBind       = 2
	MpolInterleave = 3
	MpolLocal      = 4

	// MpolStaticNodes makes the kernel treat the mask as physical node
	// numbers instead of remapping it against the task's cpuset.
	MpolStaticNodes = 1 << 15
)

// MaxNode is the width of the node bitmask handed to the placement
// syscalls. Node indices must stay below it.
const MaxNode = 64

// Futex operations from linux/futex.h, declared locally like the
// memory-policy modes above (x/sys/unix does not export them).
const (
	futexWait = 0
	futexWake = 1
)

// Map establishes a read/write mapping of length bytes and returns its
// base address. addr == 0 lets the kernel pick the base; for a mandatory
// placement the caller passes a non-zero addr and ORs MAP_FIXED into
// flags. fd < 0 together with MAP_ANONYMOUS maps memory with no backing
// descriptor.
func Map(addr, length uintptr, prot, flags, fd int, offset int64) (uintptr, error) {
	base, _, errno := unix.Syscall6(
		unix.SYS_MMAP,
		addr,
		length,
		uintptr(prot),
		uintptr(flags),
		uintptr(fd),
		uintptr(offset),
	)
	if errno != 0 {
		return 0, &OpError{Op: "mmap", Err: errno}
	}
	return base, nil
}

// Unmap releases the mapping covering [addr, addr+length).
func Unmap(addr, length uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_MUNMAP, addr, length, 0)
	return errnoErr("munmap", errno)
}

// Madvise applies advice to the mapped range [addr, addr+length).
func Madvise(addr, length uintptr, advice int) error {
	_, _, errno := unix.Syscall(unix.SYS_MADVISE, addr, length, uintptr(advice))
	return errnoErr("madvise", errno)
}

// Mlock forces physical backing for [addr, addr+length) by pinning it.
func Mlock(addr, length uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_MLOCK, addr, length, 0)
	return errnoErr("mlock", errno)
}

// Munlock lifts a pin established by Mlock. The pages stay resident.
func Munlock(addr, length uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_MUNLOCK, addr, length, 0)
	return errnoErr("munlock", errno)
}

// Mbind applies a memory policy to the existing mapped range
// [addr, addr+length). The flags argument of the syscall stays 0:
// MPOL_MF_STRICT spuriously raises EIO when several processes bind the
// same range concurrently.
func Mbind(addr, length uintptr, mode int, mask uint64) error {
	_, _, errno := unix.Syscall6(
		unix.SYS_MBIND,
		addr,
		length,
		uintptr(mode),
		uintptr(unsafe.Pointer(&mask)),
		MaxNode,
		0,
	)
	if errno != 0 {
		return &OpError{Op: "mbind", Err: errno}
	}
	return nil
}

// SetMempolicy installs a memory policy as the calling thread's default
// for future allocations, heap growth included.
func SetMempolicy(mode int, mask uint64) error {
	_, _, errno := unix.Syscall(
		unix.SYS_SET_MEMPOLICY,
		uintptr(mode),
		uintptr(unsafe.Pointer(&mask)),
		MaxNode,
	)
	if errno != 0 {
		return &OpError{Op: "set_mempolicy", Err: errno}
	}
	return nil
}

// FutexWait parks the calling thread on the word at addr while it still
// holds val. The futex is process-shared: FUTEX_PRIVATE_FLAG is
// deliberately absent so words inside shared mappings work across
// processes. A value mismatch detected by the kernel (EAGAIN) and signal
// interruption (EINTR) return nil; callers re-check the word in their own
// loop.
func FutexWait(addr *uint32, val uint32) error {
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWait,
		uintptr(val),
		0,
		0,
		0,
	)
	switch errno {
	case 0, unix.EAGAIN, unix.EINTR:
		return nil
	}
	return &OpError{Op: "futex_wait", Err: errno}
}

// FutexWakeAll wakes every thread parked on the word at addr, in any
// process, and returns how many were woken.
func FutexWakeAll(addr *uint32) (int, error) {
	n, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWake,
		uintptr(math.MaxInt32),
		0,
		0,
		0,
	)
	if errno != 0 {
		return 0, &OpError{Op: "futex_wake", Err: errno}
	}
	return int(n), nil
}

// Ioctl issues a device control request whose payload lives behind arg.
func Ioctl(fd int, req uint32, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
	return errnoErr("ioctl", errno)
}
