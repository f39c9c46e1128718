//go:build linux

package reserve

import (
	"sort"
	"sync"

	"github.com/Workiva/go-datastructures/augmentedtree"
)

// span adapts a reservation to the interval tree's contract. The tree
// works in closed int64 intervals, so a span stores its last byte:
// adjacent reservations then share no point and do not overlap.
type span struct {
	res *Reservation
}

func (s span) LowAtDimension(uint64) int64  { return int64(s.res.Start()) }
func (s span) HighAtDimension(uint64) int64 { return int64(s.res.End() - 1) }

func (s span) OverlapsAtDimension(other augmentedtree.Interval, d uint64) bool {
	return s.LowAtDimension(d) <= other.HighAtDimension(d) &&
		s.HighAtDimension(d) >= other.LowAtDimension(d)
}

// ID identifies the interval for deletion. Live reservations have
// unique starts.
func (s span) ID() uint64 { return uint64(s.res.Start()) }

// probe is a query-only interval.
type probe struct {
	lo, hi int64
}

func (p probe) LowAtDimension(uint64) int64  { return p.lo }
func (p probe) HighAtDimension(uint64) int64 { return p.hi }
func (p probe) ID() uint64                   { return 0 }

func (p probe) OverlapsAtDimension(other augmentedtree.Interval, d uint64) bool {
	return p.lo <= other.HighAtDimension(d) && p.hi >= other.LowAtDimension(d)
}

// Ledger indexes live reservations by address range, so a caller about
// to map something at a fixed address can check the target falls inside
// ground it actually claimed. Tracking is explicit; Reserve does not
// know about any ledger.
type Ledger struct {
	mu   sync.Mutex
	tree augmentedtree.Tree
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{tree: augmentedtree.New(1)}
}

// Track adds r to the index.
func (l *Ledger) Track(r *Reservation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tree.Add(span{res: r})
}

// Release forgets r and unmaps its range.
func (l *Ledger) Release(r *Reservation) error {
	l.mu.Lock()
	l.tree.Delete(span{res: r})
	l.mu.Unlock()
	return r.Unmap()
}

// Covering returns the tracked reservation containing addr, or nil.
func (l *Ledger) Covering(addr uintptr) *Reservation {
	for _, r := range l.query(int64(addr), int64(addr)) {
		if r.Start() <= addr && addr < r.End() {
			return r
		}
	}
	return nil
}

// Overlapping returns the tracked reservations intersecting [lo, hi),
// ascending by start address.
func (l *Ledger) Overlapping(lo, hi uintptr) []*Reservation {
	if hi <= lo {
		return nil
	}
	out := l.query(int64(lo), int64(hi-1))
	sort.Slice(out, func(i, j int) bool { return out[i].Start() < out[j].Start() })
	return out
}

// Len reports the number of tracked reservations.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(l.tree.Len())
}

func (l *Ledger) query(lo, hi int64) []*Reservation {
	l.mu.Lock()
	defer l.mu.Unlock()
	hits := l.tree.Query(probe{lo: lo, hi: hi})
	out := make([]*Reservation, 0, len(hits))
	for _, iv := range hits {
		out = append(out, iv.(span).res)
	}
	return out
}
