// Package numa expresses physical-memory placement policies, a bind to
// one node or an interleave across a node set, and applies them to
// mapped ranges through the raw policy syscalls. No libnuma, no cgo.
package numa

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/bits"
)

// MaxNodes bounds the node indices a Policy may carry. It matches the
// 64-bit node mask handed to the placement syscalls.
const MaxNodes = 64

// Kind discriminates the placement variants.
type Kind uint8

const (
	// KindBind places every page of a range on a single node.
	KindBind Kind = iota + 1
	// KindInterleave spreads pages round-robin across a node set.
	KindInterleave
)

var (
	// ErrNoNodes reports an interleave request with an empty node set.
	ErrNoNodes = errors.New("numa: interleave needs at least one node")
	// ErrZeroPolicy reports an attempt to apply the zero Policy.
	ErrZeroPolicy = errors.New("numa: zero Policy cannot be applied")
)

// Policy is an immutable placement directive built by Bind or
// Interleave. The zero value carries no directive and is rejected by
// the apply functions.
type Policy struct {
	kind Kind
	mask uint64
}

// Bind returns a policy placing every page on node. The index must be
// below MaxNodes; out-of-range input fails here, never at syscall time.
func Bind(node int) (Policy, error) {
	if node < 0 || node >= MaxNodes {
		return Policy{}, fmt.Errorf("numa: node %d outside [0, %d)", node, MaxNodes)
	}
	return Policy{kind: KindBind, mask: 1 << uint(node)}, nil
}

// Interleave returns a policy spreading pages across nodes. Duplicates
// collapse; every index must be below MaxNodes.
func Interleave(nodes ...int) (Policy, error) {
	if len(nodes) == 0 {
		return Policy{}, ErrNoNodes
	}
	var mask uint64
	for _, node := range nodes {
		if node < 0 || node >= MaxNodes {
			return Policy{}, fmt.Errorf("numa: node %d outside [0, %d)", node, MaxNodes)
		}
		mask |= 1 << uint(node)
	}
	return Policy{kind: KindInterleave, mask: mask}, nil
}

// Kind reports the variant, zero for an unset Policy.
func (p Policy) Kind() Kind { return p.kind }

// IsZero reports whether p carries no directive.
func (p Policy) IsZero() bool { return p.kind == 0 }

// Nodes lists the selected node indices in ascending order.
func (p Policy) Nodes() []int {
	nodes := make([]int, 0, bits.OnesCount64(p.mask))
	for m := p.mask; m != 0; {
		n := bits.TrailingZeros64(m)
		nodes = append(nodes, n)
		m &^= 1 << uint(n)
	}
	return nodes
}

func (p Policy) String() string {
	switch p.kind {
	case KindBind:
		return fmt.Sprintf("bind(%d)", bits.TrailingZeros64(p.mask))
	case KindInterleave:
		return fmt.Sprintf("interleave(%v)", p.Nodes())
	}
	return "none"
}

type policyJSON struct {
	Policy string `json:"policy"`
	Node   *int   `json:"node,omitempty"`
	Nodes  []int  `json:"nodes,omitempty"`
}

// MarshalJSON encodes p in the tagged wire shape:
// {"policy":"bind","node":3} or {"policy":"interleave","nodes":[0,2]}.
func (p Policy) MarshalJSON() ([]byte, error) {
	switch p.kind {
	case KindBind:
		node := bits.TrailingZeros64(p.mask)
		return json.Marshal(policyJSON{Policy: "bind", Node: &node})
	case KindInterleave:
		return json.Marshal(policyJSON{Policy: "interleave", Nodes: p.Nodes()})
	}
	return nil, errors.New("numa: cannot encode zero Policy")
}

// UnmarshalJSON decodes the tagged wire shape. Node bounds are
// re-validated, so a config file cannot smuggle an index past the
// constructors.
func (p *Policy) UnmarshalJSON(data []byte) error {
	var w policyJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Policy {
	case "bind":
		if w.Node == nil {
			return errors.New(`numa: "bind" policy needs a "node" field`)
		}
		q, err := Bind(*w.Node)
		if err != nil {
			return err
		}
		*p = q
	case "interleave":
		q, err := Interleave(w.Nodes...)
		if err != nil {
			return err
		}
		*p = q
	default:
		return fmt.Errorf("numa: unknown policy %q", w.Policy)
	}
	return nil
}
