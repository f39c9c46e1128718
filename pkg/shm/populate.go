//go:build linux

package shm

import (
	"errors"
	"runtime"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/panjf2000/ants/v2"
	"github.com/shirou/gopsutil/v3/host"
	"golang.org/x/sys/unix"

	"github.com/srediag/shmregion/internal/logging"
	"github.com/srediag/shmregion/pkg/mem"
)

// MADV_POPULATE_WRITE landed in 5.14.
var minPopulateKernel = semver.MustParse("5.14.0")

var (
	populateGate sync.Once
	haveAdvice   bool
)

// havePopulateWriteAdvice probes the running kernel once. An unreadable
// or unparsable release is treated optimistically; a kernel that still
// rejects the advice falls back at call time.
func havePopulateWriteAdvice() bool {
	populateGate.Do(func() {
		haveAdvice = true
		release, err := host.KernelVersion()
		if err != nil {
			return
		}
		v, err := semver.NewVersion(coreRelease(release))
		if err != nil {
			return
		}
		haveAdvice = !v.LessThan(minPopulateKernel)
	})
	return haveAdvice
}

// coreRelease strips the distro suffix from a kernel release string:
// "5.14.0-362.el9.x86_64" carries idents semver cannot digest.
func coreRelease(release string) string {
	if i := strings.IndexAny(release, "-+ "); i >= 0 {
		release = release[:i]
	}
	return release
}

// populatePhysical forces physical frames behind [addr, addr+size).
// One populate advice does it on new enough kernels; older ones take a
// lock/unlock walk, chunked and fanned out over a worker pool for big
// regions. Pages that were never writable stay unpopulated either way.
func populatePhysical(addr, size uintptr) error {
	if havePopulateWriteAdvice() {
		err := mem.Madvise(addr, size, unix.MADV_POPULATE_WRITE)
		if err == nil {
			return nil
		}
		// EINVAL here means the kernel predates the advice despite
		// the version probe, for example a vendor backport string.
		if !errors.Is(err, unix.EINVAL) {
			return err
		}
	}
	populateFallbacks.Inc()
	emit(EventPopulateFallback, "mlock/munlock walk")
	return populateByLock(addr, size)
}

// populateChunk balances syscall count against pool fan-out.
const populateChunk uintptr = 64 << 20

func populateByLock(addr, size uintptr) error {
	if size <= populateChunk {
		return lockUnlock(addr, size)
	}
	pool, err := ants.NewPool(runtime.GOMAXPROCS(0))
	if err != nil {
		logging.Warnf("shm: populate pool unavailable, walking serially: %v", err)
		return lockUnlock(addr, size)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for off := uintptr(0); off < size; off += populateChunk {
		start, length := addr+off, min(populateChunk, size-off)
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if err := lockUnlock(start, length); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}
		if err := pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()
	return firstErr
}

// lockUnlock pins a range to force frames in, then lifts the pin. The
// pages stay resident.
func lockUnlock(addr, size uintptr) error {
	if err := mem.Mlock(addr, size); err != nil {
		return err
	}
	return mem.Munlock(addr, size)
}
