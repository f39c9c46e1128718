//go:build linux

// Package health assembles liveness and readiness probes for processes
// serving shared-memory regions: the /dev/shm mount and its free
// space, the NUMA topology, and the shared-memory device node.
package health

import (
	"errors"
	"fmt"
	"os"

	"github.com/heptiolabs/healthcheck"
	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/sys/unix"

	"github.com/srediag/shmregion/api"
	"github.com/srediag/shmregion/pkg/numa"
)

const devShmDir = "/dev/shm"

// Options selects the checks Handler installs.
type Options struct {
	// MinShmFree fails readiness while /dev/shm free space is below
	// this many bytes. Zero disables the check.
	MinShmFree uint64
	// DevicePath, when set, requires the shared-memory device node to
	// exist.
	DevicePath string
	// RequireNUMA fails readiness when no NUMA node is visible in
	// sysfs.
	RequireNUMA bool
	// Extra adds caller-supplied readiness checks.
	Extra []api.Checker
}

// Handler builds the HTTP handler serving /live and /ready. The tmpfs
// mount is a liveness matter: without it nothing named can ever be
// opened. The rest gates readiness only.
func Handler(opts Options) healthcheck.Handler {
	h := healthcheck.NewHandler()
	h.AddLivenessCheck("shm-mount", CheckShmMount)
	if opts.MinShmFree > 0 {
		h.AddReadinessCheck("shm-free-space", ShmFreeSpace(opts.MinShmFree))
	}
	if opts.DevicePath != "" {
		h.AddReadinessCheck("shm-device", DeviceNode(opts.DevicePath))
	}
	if opts.RequireNUMA {
		h.AddReadinessCheck("numa-topology", CheckNUMA)
	}
	for _, c := range opts.Extra {
		h.AddReadinessCheck(c.Name(), c.Check)
	}
	return h
}

// CheckShmMount verifies /dev/shm is mounted tmpfs.
func CheckShmMount() error {
	var st unix.Statfs_t
	if err := unix.Statfs(devShmDir, &st); err != nil {
		return fmt.Errorf("statfs %s: %w", devShmDir, err)
	}
	if st.Type != unix.TMPFS_MAGIC {
		return fmt.Errorf("%s is not tmpfs (fs type 0x%x)", devShmDir, st.Type)
	}
	return nil
}

// ShmFreeSpace returns a check failing while /dev/shm has less than
// min bytes free.
func ShmFreeSpace(min uint64) healthcheck.Check {
	return func() error {
		usage, err := disk.Usage(devShmDir)
		if err != nil {
			return fmt.Errorf("usage %s: %w", devShmDir, err)
		}
		if usage.Free < min {
			return fmt.Errorf("%s has %d bytes free, need %d", devShmDir, usage.Free, min)
		}
		return nil
	}
}

// CheckNUMA verifies the node topology is readable.
func CheckNUMA() error {
	if !numa.Available() {
		return errors.New("no NUMA node visible in sysfs")
	}
	return nil
}

// DeviceNode returns a check that path exists and is a device node.
func DeviceNode(path string) healthcheck.Check {
	return func() error {
		st, err := os.Stat(path)
		if err != nil {
			return err
		}
		if st.Mode()&os.ModeDevice == 0 {
			return fmt.Errorf("%s is not a device node", path)
		}
		return nil
	}
}
