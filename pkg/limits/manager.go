// SPDX-License-Identifier: GPL-2.0 OR BSD-3-Clause
package limits

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/cilium/ebpf"
	log "github.com/sirupsen/logrus"

	"github.com/bitswing/bitswing/pkg/config"
	"github.com/bitswing/bitswing/pkg/shaper"
)

// RateMap is the subset of *ebpf.Map the manager writes through. Narrow
// on purpose: tests substitute an in-memory map.
type RateMap interface {
	Update(key, value interface{}, flags ebpf.MapUpdateFlags) error
	Lookup(key, valueOut interface{}) error
	Delete(key interface{}) error
}

// Manager owns the desired rate-limit state and keeps the kernel map in
// sync with it. The kernel map is the enforcement surface; the manager's
// in-memory copy is only used to diff reloads and to answer queries.
type Manager struct {
	m RateMap

	mu      sync.Mutex
	desired map[uint16]config.Limit
}

// NewManager creates a manager writing to m.
func NewManager(m RateMap) *Manager {
	return &Manager{
		m:       m,
		desired: make(map[uint16]config.Limit),
	}
}

// Apply populates the map from cfg at startup: the default bucket first,
// then each rule in configured order. Any insertion failure aborts the
// load; a partially populated map still fails open in the datapath.
func (mg *Manager) Apply(cfg *config.Config) error {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	def := config.Limit{
		Bps:   cfg.General.DefaultRateLimitBps,
		Burst: cfg.General.DefaultRateLimitBps,
	}
	if err := mg.writeEntry(shaper.DefaultKey, def); err != nil {
		return fmt.Errorf("installing default bucket: %w", err)
	}
	mg.desired[shaper.DefaultKey] = def

	for _, r := range cfg.Rules {
		lim := config.Limit{Bps: r.RateLimitBps, Burst: r.Burst()}
		if err := mg.writeEntry(r.Port, lim); err != nil {
			return fmt.Errorf("installing rule for port %d: %w", r.Port, err)
		}
		mg.desired[r.Port] = lim
		log.Infof("Rate limit installed: port=%d bps=%s burst=%d",
			r.Port, FormatBps(lim.Bps), lim.Burst)
	}

	log.Infof("Rate-limit map populated: %d entries, default %s",
		len(mg.desired), FormatBps(def.Bps))
	return nil
}

// Reload diffs cfg against the current desired state and applies the
// difference. Inserts and updates land before deletions so no packet ever
// observes an empty rule set, and the default bucket is rewritten, never
// removed. Transient write failures are retried with exponential backoff
// capped at 5 seconds; on persistent failure the last successful state
// stays in effect.
func (mg *Manager) Reload(cfg *config.Config) error {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	next := cfg.Limits()

	var inserted, updated, deleted int
	for port, lim := range next {
		prev, exists := mg.desired[port]
		if exists && prev == lim {
			continue
		}
		if err := mg.writeEntryRetry(port, lim); err != nil {
			return fmt.Errorf("updating port %d: %w", port, err)
		}
		mg.desired[port] = lim
		if exists {
			updated++
		} else {
			inserted++
		}
	}

	for port := range mg.desired {
		if _, keep := next[port]; keep {
			continue
		}
		if err := mg.deleteEntryRetry(port); err != nil {
			return fmt.Errorf("removing port %d: %w", port, err)
		}
		delete(mg.desired, port)
		deleted++
	}

	log.Infof("Rate-limit map reloaded: %d inserted, %d updated, %d deleted, %d total",
		inserted, updated, deleted, len(mg.desired))
	return nil
}

// PortLimit is one desired entry, for reporting.
type PortLimit struct {
	Port  uint16
	Bps   uint32
	Burst uint32
}

// Rules returns the desired state sorted by port. The default bucket is
// included as port 0.
func (mg *Manager) Rules() []PortLimit {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	out := make([]PortLimit, 0, len(mg.desired))
	for port, lim := range mg.desired {
		out = append(out, PortLimit{Port: port, Bps: lim.Bps, Burst: lim.Burst})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out
}

// PortStats is the runtime view of one bucket.
type PortStats struct {
	Port         uint16
	Bps          uint32
	Burst        uint32
	TokenBytes   uint64
	PassedBytes  uint64
	DroppedBytes uint64
}

// Stats reads the runtime bucket state for every desired port from the
// kernel map.
func (mg *Manager) Stats() ([]PortStats, error) {
	ports := mg.Rules()

	out := make([]PortStats, 0, len(ports))
	for _, pl := range ports {
		var e shaper.Entry
		port := pl.Port
		if err := mg.m.Lookup(&port, &e); err != nil {
			return nil, fmt.Errorf("reading entry for port %d: %w", port, err)
		}
		out = append(out, PortStats{
			Port:         port,
			Bps:          e.Bps,
			Burst:        e.Burst,
			TokenBytes:   e.Tokens >> shaper.TokenShift,
			PassedBytes:  e.PassedBytes,
			DroppedBytes: e.DroppedBytes,
		})
	}
	return out, nil
}

// writeEntry installs a fresh full bucket for port. BPF_F_LOCK keeps the
// copy atomic with respect to the program's spin lock.
func (mg *Manager) writeEntry(port uint16, lim config.Limit) error {
	entry := shaper.NewEntry(lim.Bps, lim.Burst)
	return mg.m.Update(&port, &entry, ebpf.UpdateLock)
}

func (mg *Manager) writeEntryRetry(port uint16, lim config.Limit) error {
	return retryMapWrite(func() error { return mg.writeEntry(port, lim) })
}

func (mg *Manager) deleteEntryRetry(port uint16) error {
	return retryMapWrite(func() error { return mg.m.Delete(&port) })
}

func retryMapWrite(op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return backoff.Retry(func() error {
		err := op()
		if err != nil {
			log.Warnf("Map write failed, retrying: %v", err)
		}
		return err
	}, b)
}

// FormatBps renders a rate for humans, spelling out the two sentinels.
func FormatBps(bps uint32) string {
	switch bps {
	case shaper.RateUnlimited:
		return "unlimited"
	case 0:
		return "drop-all"
	default:
		return fmt.Sprintf("%d B/s", bps)
	}
}
