// SPDX-License-Identifier: GPL-2.0 OR BSD-3-Clause
package shaper

import (
	"sync"
	"time"
)

// Decision is the per-frame verdict.
type Decision int

const (
	Pass Decision = iota
	Drop
)

func (d Decision) String() string {
	if d == Drop {
		return "drop"
	}
	return "pass"
}

// Pipeline is the user-space twin of the XDP program: classification plus
// token-bucket enforcement over an in-memory entry table. It exists so the
// enforcement semantics can be exercised without a kernel, and is the
// reference the behavioral tests run against.
type Pipeline struct {
	// Now supplies monotonic nanoseconds; defaults to the wall clock.
	Now func() uint64

	mu      sync.Mutex
	entries map[uint16]*Entry
}

// NewPipeline returns an empty pipeline using the system clock.
func NewPipeline() *Pipeline {
	return &Pipeline{
		Now:     func() uint64 { return uint64(time.Now().UnixNano()) },
		entries: make(map[uint16]*Entry),
	}
}

// SetEntry installs or replaces the bucket for port.
func (p *Pipeline) SetEntry(port uint16, e Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[port] = &e
}

// DeleteEntry removes the bucket for port, if present.
func (p *Pipeline) DeleteEntry(port uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, port)
}

// Entry returns a copy of the bucket for port.
func (p *Pipeline) Entry(port uint16) (Entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[port]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Process classifies one frame and returns its verdict. Unclassifiable
// frames pass. A port without an explicit entry falls through to the
// default key; with neither present the frame passes.
func (p *Pipeline) Process(frame []byte) Decision {
	info, ok := ParseFrame(frame)
	if !ok {
		return Pass
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[info.DstPort]
	if !ok {
		e, ok = p.entries[DefaultKey]
		if !ok {
			return Pass
		}
	}
	if e.Admit(p.Now(), info.BillableLen) {
		return Pass
	}
	return Drop
}
