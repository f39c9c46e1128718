//go:build linux

package numa

import (
	"github.com/srediag/shmregion/pkg/mem"
)

// Encode lowers p to the mode and node-mask words the placement
// syscalls take. The mode carries MPOL_F_STATIC_NODES so the mask names
// physical nodes regardless of the task's cpuset. The zero Policy
// lowers to MPOL_DEFAULT with an empty mask.
func (p Policy) Encode() (mode int, mask uint64) {
	switch p.kind {
	case KindBind:
		mode = mem.MpolBind
	case KindInterleave:
		mode = mem.MpolInterleave
	default:
		return mem.MpolDefault, 0
	}
	return mode | mem.MpolStaticNodes, p.mask
}

// BindRange applies p to the already-mapped range [addr, addr+size).
// Pages faulted in after the call land per the policy; pages already
// resident stay where they are.
func BindRange(p Policy, addr, size uintptr) error {
	if p.IsZero() {
		return ErrZeroPolicy
	}
	mode, mask := p.Encode()
	return mem.Mbind(addr, size, mode, mask)
}

// SetProcessDefault installs p as the calling thread's allocation
// policy. Future anonymous memory, heap growth included, follows it
// until the policy is changed again.
func SetProcessDefault(p Policy) error {
	if p.IsZero() {
		return ErrZeroPolicy
	}
	mode, mask := p.Encode()
	return mem.SetMempolicy(mode, mask)
}
