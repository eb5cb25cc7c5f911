// SPDX-License-Identifier: GPL-2.0 OR BSD-3-Clause
package shaper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitswing/bitswing/pkg/shaper"
	"github.com/bitswing/bitswing/pkg/testutil"
)

// fakeClock drives a Pipeline with a controllable monotonic clock.
type fakeClock struct{ ns uint64 }

func (c *fakeClock) now() uint64       { return c.ns }
func (c *fakeClock) advance(ns uint64) { c.ns += ns }

func newTestPipeline() (*shaper.Pipeline, *fakeClock) {
	clk := &fakeClock{ns: 1} // nonzero so entries with last_refill 0 refill
	p := shaper.NewPipeline()
	p.Now = clk.now
	return p, clk
}

// offer pushes count copies of frame through the pipeline, spaced gapNs
// apart, and returns how many passed.
func offer(p *shaper.Pipeline, clk *fakeClock, frame []byte, count int, gapNs uint64) int {
	passed := 0
	for i := 0; i < count; i++ {
		if p.Process(frame) == shaper.Pass {
			passed++
		}
		clk.advance(gapNs)
	}
	return passed
}

func TestBaselinePassThrough(t *testing.T) {
	p, clk := newTestPipeline()
	p.SetEntry(shaper.DefaultKey, shaper.NewEntry(shaper.RateUnlimited, 0))

	frame := testutil.TCPFrameIPv4(22, 1460)
	passed := offer(p, clk, frame, 1000, 1_000_000)
	assert.Equal(t, 1000, passed)

	// Unlimited bypasses the bucket without mutating it.
	e, ok := p.Entry(shaper.DefaultKey)
	require.True(t, ok)
	assert.Equal(t, uint64(0), e.PassedBytes)
}

func TestPortCap(t *testing.T) {
	p, clk := newTestPipeline()
	p.SetEntry(shaper.DefaultKey, shaper.NewEntry(shaper.RateUnlimited, 0))
	p.SetEntry(80, shaper.NewEntry(500_000, 500_000))

	// 2 MB toward port 80 over one second as 1500-byte IP packets.
	frame := testutil.TCPFrameIPv4(80, 1460)
	info, ok := shaper.ParseFrame(frame)
	require.True(t, ok)
	require.Equal(t, uint64(1500), info.BillableLen)

	count := 1334 // ~2 MB
	offer(p, clk, frame, count, 1_000_000_000/uint64(count))

	e, _ := p.Entry(80)
	assert.GreaterOrEqual(t, e.PassedBytes, uint64(500_000))
	assert.LessOrEqual(t, e.PassedBytes, uint64(1_000_000)+info.BillableLen)
	assert.Equal(t, uint64(count)*info.BillableLen, e.PassedBytes+e.DroppedBytes)
}

func TestCatchAllCap(t *testing.T) {
	p, clk := newTestPipeline()
	p.SetEntry(shaper.DefaultKey, shaper.NewEntry(100_000, 100_000))

	// 1 MB toward an unruled port over one second.
	frame := testutil.UDPFrameIPv4(9999, 972) // 1000 billable bytes
	offer(p, clk, frame, 1000, 1_000_000)

	e, _ := p.Entry(shaper.DefaultKey)
	assert.LessOrEqual(t, e.PassedBytes, uint64(200_000))
	assert.GreaterOrEqual(t, e.PassedBytes, uint64(100_000))
}

func TestDropAllPort(t *testing.T) {
	p, clk := newTestPipeline()
	p.SetEntry(25, shaper.NewEntry(0, 0))

	frame := testutil.TCPFrameIPv4(25, 500)
	passed := offer(p, clk, frame, 100, 10_000_000)
	assert.Equal(t, 0, passed)

	e, _ := p.Entry(25)
	assert.Equal(t, uint64(0), e.PassedBytes)
	assert.NotZero(t, e.DroppedBytes)
}

func TestUnlimitedOverride(t *testing.T) {
	p, clk := newTestPipeline()
	p.SetEntry(shaper.DefaultKey, shaper.NewEntry(1000, 1000))
	p.SetEntry(443, shaper.NewEntry(shaper.RateUnlimited, 0))

	// 10 MB toward port 443 in one second, all accepted.
	frame := testutil.TCPFrameIPv4(443, 1460)
	count := 6990
	passed := offer(p, clk, frame, count, 1_000_000_000/uint64(count))
	assert.Equal(t, count, passed)
}

func TestNonIPPassthrough(t *testing.T) {
	p, clk := newTestPipeline()
	p.SetEntry(shaper.DefaultKey, shaper.NewEntry(0, 0)) // even drop-all

	passed := offer(p, clk, testutil.ARPFrame(), 100, 1_000_000)
	assert.Equal(t, 100, passed)

	e, _ := p.Entry(shaper.DefaultKey)
	assert.Equal(t, uint64(0), e.DroppedBytes)
}

func TestDefaultFallback(t *testing.T) {
	p, clk := newTestPipeline()
	p.SetEntry(shaper.DefaultKey, shaper.NewEntry(0, 0))
	p.SetEntry(80, shaper.NewEntry(shaper.RateUnlimited, 0))

	// Ruled port bypasses, everything else hits the drop-all default.
	assert.Equal(t, 100, offer(p, clk, testutil.TCPFrameIPv4(80, 100), 100, 1000))
	assert.Equal(t, 0, offer(p, clk, testutil.TCPFrameIPv4(8080, 100), 100, 1000))
}

func TestEmptyMapFailsOpen(t *testing.T) {
	p, clk := newTestPipeline()

	// No entries at all: the initialization race resolves to accept.
	passed := offer(p, clk, testutil.TCPFrameIPv4(80, 100), 50, 1000)
	assert.Equal(t, 50, passed)
}

func TestBoundaryFramesPass(t *testing.T) {
	p, _ := newTestPipeline()
	p.SetEntry(shaper.DefaultKey, shaper.NewEntry(0, 0)) // drop-all default

	for name, frame := range map[string][]byte{
		"ethernet only":   testutil.EthernetOnlyFrame(),
		"bad ihl":         testutil.IPv4BadIHLFrame(80),
		"ipv6 ext header": testutil.IPv6ExtHeaderFrame(),
	} {
		assert.Equal(t, shaper.Pass, p.Process(frame), name)
	}

	// None of those may touch the default bucket.
	e, _ := p.Entry(shaper.DefaultKey)
	assert.Equal(t, uint64(0), e.DroppedBytes)
}
