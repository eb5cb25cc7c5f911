// SPDX-License-Identifier: GPL-2.0 OR BSD-3-Clause
package shaper

const (
	// MapName is the BPF map shared between the XDP program and the
	// control plane.
	MapName = "rate_limit_map"

	// MaxEntries is the rate-limit map capacity.
	MaxEntries = 1024

	// DefaultKey is the catch-all bucket applied to ports without an
	// explicit rule.
	DefaultKey uint16 = 0

	// RateUnlimited disables enforcement for matching traffic.
	RateUnlimited uint32 = 0xFFFFFFFF

	// MaxRateBps is the largest enforceable rate; RateUnlimited is a
	// sentinel, not a rate.
	MaxRateBps uint32 = 0xFFFFFFFE

	// TokenShift scales token amounts so slow buckets still accumulate
	// credit between closely spaced packets.
	TokenShift = 10

	// TokenScale is the fixed-point multiplier applied to byte counts.
	TokenScale uint64 = 1 << TokenShift

	nsecPerSec     = 1_000_000_000
	maxIdleSeconds = 64
)

// Stats map indices. Must match bpf/shaper.bpf.c.
const (
	StatTotal = iota
	StatPassed
	StatDropped
	StatNonIP
	StatParseAnomaly
	StatExtHeader
	StatDefaultHits
	StatMapMiss
	StatMax
)

// Entry mirrors struct rate_limit_entry in bpf/shaper.bpf.c. Field order
// and padding must match the C layout byte for byte.
type Entry struct {
	Lock         uint32 // struct bpf_spin_lock
	Bps          uint32
	Burst        uint32
	Pad          uint32
	Tokens       uint64
	LastRefillNs uint64
	PassedBytes  uint64
	DroppedBytes uint64
}

// NewEntry returns an entry with a full bucket. A freshly installed rule
// starts with its entire burst available.
func NewEntry(bps, burst uint32) Entry {
	return Entry{
		Bps:    bps,
		Burst:  burst,
		Tokens: uint64(burst) << TokenShift,
	}
}
