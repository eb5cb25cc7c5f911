// Package shaper defines the data model shared between the XDP program
// and the control plane, and a user-space implementation of the same
// enforcement semantics.
//
// # Rate-limit map
//
// The kernel map rate_limit_map is keyed by transport destination port
// (uint16). Key 0 is the catch-all bucket for ports without an explicit
// rule. Entry mirrors the C struct byte for byte and carries:
//   - bps: permitted steady-state rate in bytes/second.
//     0 drops all matching traffic, 0xFFFFFFFF bypasses enforcement.
//   - burst: bucket capacity in bytes.
//   - tokens, last_refill_ns: runtime bucket state, owned by the kernel.
//   - passed_bytes, dropped_bytes: per-entry accounting.
//
// # Fixed-point tokens
//
// Token amounts are scaled by 2^TokenShift. Without scaling, a slow
// bucket receiving closely spaced packets would round every refill down
// to zero bytes and starve.
//
// # Fail-open
//
// Every ambiguity in the datapath resolves to accepting the frame: parse
// shortfalls, unknown EtherTypes and protocols, IPv6 extension headers,
// and a map that the control plane has not populated yet. A shaper
// degrades by doing less work, never by disconnecting the host.
package shaper
