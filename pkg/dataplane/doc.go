// Package dataplane loads the XDP shaper into the kernel, attaches it to
// a network interface and exposes the shared maps to the control plane.
//
// # Architecture
//
// The datapath is a single XDP program (bpf/shaper.bpf.c, Go bindings
// generated via bpf2go) that parses each received frame, charges it
// against a per-port token bucket in rate_limit_map and returns XDP_PASS
// or XDP_DROP. The program holds no state of its own: the map is the only
// surface shared with user space.
//
// # Attachment
//
// The program attaches in XDP generic (skb) mode by default, which works
// on every driver; native driver mode is selected through configuration.
// Detaching the link releases the maps, so bucket levels and byte
// counters do not survive a restart.
//
// # Maps
//
//   - rate_limit_map: HASH, port -> rate_limit_entry (1024 entries),
//     per-entry bpf_spin_lock serializes bucket updates across CPUs
//   - stats_map: PERCPU_ARRAY with the aggregate datapath counters
//
// # Thread safety
//
// DataPlane is safe for concurrent use. Statistics queries and map
// operations can be called from multiple goroutines.
package dataplane
