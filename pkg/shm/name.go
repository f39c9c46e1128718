package shm

import (
	"errors"
	"fmt"
	"strings"
)

// Name limits enforced before any OS call is attempted.
const (
	// MaxNameLen bounds names of POSIX shared-memory objects.
	MaxNameLen = 62
	// MaxDeviceNameLen bounds device allocation tags; the wire field is
	// 12 bytes including the terminator.
	MaxDeviceNameLen = 11
)

const devShmDir = "/dev/shm"

var (
	// ErrZeroSize reports a zero-byte region request.
	ErrZeroSize = errors.New("shm: region size must be positive")
	// ErrBadName reports an empty object name or one with interior
	// slashes.
	ErrBadName = errors.New("shm: invalid object name")
	// ErrNoSpace reports insufficient free space on /dev/shm for a
	// fresh object.
	ErrNoSpace = errors.New("shm: not enough free space on /dev/shm")
)

// NameTooLongError reports a backing-store name over its backend's hard
// limit. It surfaces before any OS call.
type NameTooLongError struct {
	Name  string
	Limit int
}

func (e *NameTooLongError) Error() string {
	return fmt.Sprintf("shm: name %q exceeds the %d byte limit", e.Name, e.Limit)
}

// normalizeName strips one leading '/' and validates what remains: the
// kernel object name must be non-empty, slash-free, and within
// MaxNameLen bytes.
func normalizeName(name string) (string, error) {
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return "", fmt.Errorf("%w: empty", ErrBadName)
	}
	if strings.ContainsRune(name, '/') {
		return "", fmt.Errorf("%w: %q contains '/'", ErrBadName, name)
	}
	if len(name) > MaxNameLen {
		return "", &NameTooLongError{Name: name, Limit: MaxNameLen}
	}
	return name, nil
}

// shmPath resolves name to its /dev/shm path.
func shmPath(name string) (string, error) {
	name, err := normalizeName(name)
	if err != nil {
		return "", err
	}
	return devShmDir + "/" + name, nil
}
