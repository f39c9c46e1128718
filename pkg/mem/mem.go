// Package mem provides the page-granular constants, the OS-error taxonomy
// and the raw Linux memory syscalls that the shared-memory layers build on.
//
// Everything here is a thin, allocation-free veneer over the kernel
// interface: mmap with optional fixed placement, munmap, madvise, the two
// memory-policy syscalls, shared futex wait/wake and ioctl. No libnuma, no
// cgo.
package mem

const (
	// PageSize is the universal rounding granularity for sizes and
	// addresses in this module.
	PageSize = 4096

	pageMask = PageSize - 1
)

// PageCeil rounds n up to the next multiple of PageSize. Zero stays zero;
// callers that need a positive size enforce that themselves.
func PageCeil(n uintptr) uintptr {
	return (n + pageMask) &^ uintptr(pageMask)
}

// PageAligned reports whether addr sits on a page boundary.
func PageAligned(addr uintptr) bool {
	return addr&pageMask == 0
}
