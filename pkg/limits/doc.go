// Package limits binds the declarative configuration to the kernel
// rate-limit map.
//
// The manager applies the full rule set once at startup and, on reload,
// computes the set difference against its in-memory desired state.
// Insertions and updates are applied before deletions so the map never
// appears empty to the datapath, and the default bucket (key 0) is
// rewritten in place for the lifetime of the attachment.
package limits
