// Package shm maps named shared-memory regions into the process and
// hands them out raw or typed.
//
// A Backend obtains the backing store: anonymous private pages, a named
// POSIX object on /dev/shm, or an allocation from a shared-memory
// device node. The store is consumed by Map, which places it at a
// kernel-chosen or caller-fixed address, applies an optional NUMA
// policy, and optionally forces page population. Raw wraps the whole
// lifecycle behind one call; Region[T] fixes the mapped size to the
// page-rounded size of a carried type.
//
// Example usage:
//
//	r, err := shm.OpenRaw(shm.RawOptions{
//	  Name:   "telemetry",
//	  Size:   1 << 20,
//	  Create: true,
//	})
//	if err != nil {
//	  // ...
//	}
//	defer r.Close()
//	copy(r.Bytes(), payload)
//
// Regions are shared by independent processes; nothing here locks their
// contents. Callers that mutate concurrently bring their own
// synchronization, for example a barrier from pkg/barrier.
package shm
