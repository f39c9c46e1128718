//go:build linux

// Package barrier provides a process-shared rendezvous point carried in
// named shared memory.
//
// A fixed number of participants call Wait; everyone blocks until the
// last one arrives, then all are released together and exactly one of
// them learns it was the closer. The primitive lives entirely in the
// shared words of its backing region, so any process that can open the
// name can take part.
package barrier

import (
	"errors"
	"sync/atomic"

	"github.com/srediag/shmregion/pkg/mem"
	"github.com/srediag/shmregion/pkg/numa"
	"github.com/srediag/shmregion/pkg/shm"
)

var (
	// ErrNotInitialized reports a Wait against shared state no creator
	// has published yet, or that Unlink already tore down.
	ErrNotInitialized = errors.New("barrier: not initialized")
	// ErrZeroParticipants reports a create with no participants.
	ErrZeroParticipants = errors.New("barrier: participant count must be positive")
)

// stateMagic marks the shared words as an initialized barrier.
const stateMagic uint32 = 0x62617272

// state is the shared layout. All four words are touched only through
// sync/atomic so every participating process sees the same protocol.
type state struct {
	magic uint32
	total uint32
	count uint32
	gen   uint32
}

// Options configures Open.
type Options struct {
	// Name identifies the backing shared-memory object.
	Name string
	// Create initializes fresh state under Name; attachers leave it
	// alone and adopt the creator's participant count.
	Create bool
	// Participants is the number of Wait calls that complete one
	// generation. Only the creator's value is used.
	Participants uint32
	// Policy, when set, places the state page.
	Policy numa.Policy
	// Populate selects eager backing for the state page.
	Populate shm.Populate
}

// Barrier is one process's handle on a shared barrier. A handle may be
// used by any number of goroutines, but no more than the participant
// count may block in Wait at once across all processes.
type Barrier struct {
	region *shm.Region[state]
	st     *state
}

// Open creates or attaches the named barrier.
//
// Exactly one handle initializes the shared state: the one whose
// create call freshly made the backing object. Everyone else, racing
// creators included, adopts what the initializer published.
func Open(opts Options) (*Barrier, error) {
	if opts.Create && opts.Participants == 0 {
		return nil, ErrZeroParticipants
	}
	region, err := shm.OpenRegion[state](shm.RegionOptions{
		Name:     opts.Name,
		Create:   opts.Create,
		Policy:   opts.Policy,
		Populate: opts.Populate,
	})
	if err != nil {
		return nil, err
	}
	b := &Barrier{region: region, st: region.Ptr()}
	if opts.Create && region.Created() {
		atomic.StoreUint32(&b.st.count, 0)
		atomic.StoreUint32(&b.st.gen, 0)
		atomic.StoreUint32(&b.st.total, opts.Participants)
		// The magic word goes last: a Wait that can see it can see
		// the whole initialized state.
		atomic.StoreUint32(&b.st.magic, stateMagic)
	}
	return b, nil
}

// Participants reports the count the creator published.
func (b *Barrier) Participants() uint32 {
	return atomic.LoadUint32(&b.st.total)
}

// Name reports the backing object's name.
func (b *Barrier) Name() string { return b.region.Name() }

// Wait blocks until the full participant count has arrived, then
// releases everyone. Exactly one caller per generation returns
// serial=true; the barrier is immediately reusable for the next
// generation. There is no timeout: a missing participant blocks the
// rest forever, as with its pthread counterpart.
func (b *Barrier) Wait() (serial bool, err error) {
	st := b.st
	if atomic.LoadUint32(&st.magic) != stateMagic {
		return false, ErrNotInitialized
	}

	// The generation must be read before announcing arrival. The
	// closer may reset the count the moment arrival is visible, and a
	// generation read after that could belong to the next cycle,
	// leaving this caller waiting out a generation that already ended.
	g := atomic.LoadUint32(&st.gen)
	arrived := atomic.AddUint32(&st.count, 1)
	if arrived == atomic.LoadUint32(&st.total) {
		atomic.StoreUint32(&st.count, 0)
		atomic.AddUint32(&st.gen, 1)
		if _, err := mem.FutexWakeAll(&st.gen); err != nil {
			return true, err
		}
		return true, nil
	}

	for atomic.LoadUint32(&st.gen) == g {
		if err := mem.FutexWait(&st.gen, g); err != nil {
			return false, err
		}
	}
	return false, nil
}

// Unlink destroys the barrier and removes its name. Legal only once no
// participant is blocked in Wait and before this handle's Close; later
// Waits through any process's handle report ErrNotInitialized.
func (b *Barrier) Unlink() error {
	atomic.StoreUint32(&b.st.magic, 0)
	atomic.StoreUint32(&b.st.total, 0)
	atomic.StoreUint32(&b.st.count, 0)
	return b.region.Unlink()
}

// Close drops this process's view of the barrier. The shared state and
// its name survive for other participants.
func (b *Barrier) Close() error { return b.region.Close() }
