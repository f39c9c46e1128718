//go:build linux

package shm

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/srediag/shmregion/internal/logging"
	"github.com/srediag/shmregion/pkg/mem"
)

// WaitAttach blocks until the named object exists, then attaches to it.
// It is the attach-side answer to a peer that has not created the
// region yet.
//
// The named backend watches /dev/shm for the name to appear; when the
// watch cannot be established the wait degrades to exponential-backoff
// polling. Other backends have no namespace to watch and attach
// directly. Cancel ctx to give up.
func WaitAttach(ctx context.Context, opts RawOptions) (*Raw, error) {
	opts.Create = false
	if opts.Backend.kind != kindNamed {
		return OpenRaw(opts)
	}
	path, err := shmPath(opts.Name)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err == nil {
		err = w.Add(devShmDir)
	}
	if err != nil {
		logging.Warnf("shm: no watch on %s, polling instead: %v", devShmDir, err)
		if w != nil {
			_ = w.Close()
		}
		return pollAttach(ctx, opts)
	}
	defer func() { _ = w.Close() }()

	for {
		// Attach first: the object may already exist, or appeared
		// before the watch started delivering.
		r, err := OpenRaw(opts)
		if err == nil {
			return r, nil
		}
		if !mem.IsNotFound(err) {
			return nil, err
		}

	wait:
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return pollAttach(ctx, opts)
				}
				if ev.Op&fsnotify.Create != 0 && ev.Name == path {
					break wait
				}
			case werr, ok := <-w.Errors:
				if !ok {
					return pollAttach(ctx, opts)
				}
				// An overflow may have swallowed the create; re-check.
				logging.Warnf("shm: watch error on %s: %v", devShmDir, werr)
				break wait
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
}

func pollAttach(ctx context.Context, opts RawOptions) (*Raw, error) {
	var r *Raw
	attach := func() error {
		var err error
		r, err = OpenRaw(opts)
		if err != nil && !mem.IsNotFound(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	// Poll until the name shows up; ctx is the only deadline.
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0
	if err := backoff.Retry(attach, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}
	return r, nil
}
