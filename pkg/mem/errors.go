package mem

import (
	"errors"

	"golang.org/x/sys/unix"
)

// OpError couples a failing OS call with the name of the operation, so
// every error surfaced by this module identifies both the syscall and the
// underlying errno. It unwraps to the raw error for errors.Is matching.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func errnoErr(op string, errno unix.Errno) error {
	if errno == 0 {
		return nil
	}
	return &OpError{Op: op, Err: errno}
}

// IsNotFound reports whether err denotes a missing object (ENOENT). The
// best-effort stale-object cleanup branches on this classification.
func IsNotFound(err error) bool {
	return errors.Is(err, unix.ENOENT)
}

// IsExist reports whether err denotes an object that already exists
// (EEXIST). The exclusive-create fallback branches on this classification.
func IsExist(err error) bool {
	return errors.Is(err, unix.EEXIST)
}
