// SPDX-License-Identifier: GPL-2.0 OR BSD-3-Clause
package shaper

// refillCredit returns the scaled token credit earned over elapsedNs at
// bps. The computation splits elapsed time into whole seconds and a
// fractional remainder so that no intermediate product overflows uint64
// for any bps <= MaxRateBps. Mirrors refill_credit in bpf/shaper.bpf.c.
func refillCredit(bps uint32, elapsedNs uint64) uint64 {
	rate := uint64(bps) << TokenShift // scaled bytes per second
	secs := elapsedNs / nsecPerSec
	frac := elapsedNs % nsecPerSec

	if secs > maxIdleSeconds {
		// Bucket saturates at burst anyway; capping only bounds the
		// multiplication below.
		secs = maxIdleSeconds
	}
	credit := rate * secs
	credit += (rate / nsecPerSec) * frac
	credit += (rate % nsecPerSec) * frac / nsecPerSec
	return credit
}

// Admit charges wireLen bytes against the bucket at time nowNs and reports
// whether the packet is accepted. It is the user-space twin of the locked
// region in the XDP program: refill, clamp to burst, then admit iff enough
// tokens remain. A clock regression refills nothing and leaves the
// timestamp in place, so last_refill_ns never decreases and the regressed
// window cannot earn credit twice.
func (e *Entry) Admit(nowNs, wireLen uint64) bool {
	if e.Bps == RateUnlimited {
		return true
	}
	if e.Bps == 0 {
		e.DroppedBytes += wireLen
		return false
	}

	var elapsed uint64
	if nowNs > e.LastRefillNs {
		elapsed = nowNs - e.LastRefillNs
		e.LastRefillNs = nowNs
	}
	capacity := uint64(e.Burst) << TokenShift
	tokens := e.Tokens + refillCredit(e.Bps, elapsed)
	if tokens > capacity {
		tokens = capacity
	}

	need := wireLen << TokenShift
	if tokens >= need {
		e.Tokens = tokens - need
		e.PassedBytes += wireLen
		return true
	}
	e.Tokens = tokens
	e.DroppedBytes += wireLen
	return false
}
