// SPDX-License-Identifier: GPL-2.0 OR BSD-3-Clause
package dataplane

import (
	"errors"
	"fmt"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"github.com/cilium/ebpf/rlimit"
	log "github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"

	"github.com/bitswing/bitswing/pkg/config"
	"github.com/bitswing/bitswing/pkg/shaper"
)

//go:generate go run github.com/cilium/ebpf/cmd/bpf2go -cc clang -cflags "-O2 -g -Wall" -target amd64 bpf ../../bpf/shaper.bpf.c -- -I../../bpf

// Error classes the caller maps to exit codes.
var (
	// ErrInterface wraps interface lookup failures.
	ErrInterface = errors.New("interface error")
	// ErrLoad wraps program load and attach failures.
	ErrLoad = errors.New("load error")
)

// DataPlane manages the XDP shaper program: load, attach, map access and
// detach.
type DataPlane struct {
	objs     *bpfObjects
	iface    string
	ifaceIdx int
	xdpLink  link.Link
	mode     string
}

// Statistics holds the aggregate datapath counters.
type Statistics struct {
	TotalPackets      uint64
	PassedPackets     uint64
	DroppedPackets    uint64
	NonIPPackets      uint64
	ParseAnomalies    uint64
	ExtHeaderPackets  uint64
	DefaultBucketHits uint64
	MapMisses         uint64
}

// New loads the shaper and attaches it to iface. mode selects the XDP
// attachment: config.XDPModeGeneric requests the software hook available
// on every driver, config.XDPModeNative the driver hook.
func New(iface, mode string) (*DataPlane, error) {
	nl, err := netlink.LinkByName(iface)
	if err != nil {
		return nil, fmt.Errorf("%w: interface %s not found: %v", ErrInterface, iface, err)
	}
	ifaceIdx := nl.Attrs().Index

	// Pre-5.11 kernels charge map memory against RLIMIT_MEMLOCK.
	if err := rlimit.RemoveMemlock(); err != nil {
		return nil, fmt.Errorf("%w: removing memlock limit: %v", ErrLoad, err)
	}

	objs := &bpfObjects{}
	if err := loadBpfObjects(objs, nil); err != nil {
		var verr *ebpf.VerifierError
		if errors.As(err, &verr) {
			log.Errorf("Verifier rejected shaper program:\n%+v", verr)
		}
		return nil, fmt.Errorf("%w: loading eBPF objects: %v", ErrLoad, err)
	}

	log.Debugf("eBPF objects loaded successfully")

	flags := link.XDPGenericMode
	if mode == config.XDPModeNative {
		flags = link.XDPDriverMode
	}

	xdpLink, err := link.AttachXDP(link.XDPOptions{
		Program:   objs.Shaper,
		Interface: ifaceIdx,
		Flags:     flags,
	})
	if err != nil {
		objs.Close()
		return nil, fmt.Errorf("%w: attaching XDP program to %s (%s mode): %v",
			ErrLoad, iface, mode, err)
	}

	log.Infof("Shaper attached to %s ingress (XDP %s mode)", iface, mode)

	return &DataPlane{
		objs:     objs,
		iface:    iface,
		ifaceIdx: ifaceIdx,
		xdpLink:  xdpLink,
		mode:     mode,
	}, nil
}

// Close detaches the program and releases the maps. Bucket state and
// counters do not survive detach.
func (dp *DataPlane) Close() error {
	var errs []error

	if dp.xdpLink != nil {
		if err := dp.xdpLink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("detaching XDP program: %w", err))
		}
	}
	if dp.objs != nil {
		if err := dp.objs.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing eBPF objects: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	log.Infof("Shaper detached from %s", dp.iface)
	return nil
}

// GetStatistics aggregates the per-CPU datapath counters.
func (dp *DataPlane) GetStatistics() Statistics {
	readStat := func(key uint32) uint64 {
		var values []uint64
		if err := dp.objs.StatsMap.Lookup(&key, &values); err != nil {
			log.Debugf("Failed to lookup stat key %d: %v", key, err)
			return 0
		}

		var total uint64
		for _, v := range values {
			total += v
		}
		return total
	}

	return Statistics{
		TotalPackets:      readStat(shaper.StatTotal),
		PassedPackets:     readStat(shaper.StatPassed),
		DroppedPackets:    readStat(shaper.StatDropped),
		NonIPPackets:      readStat(shaper.StatNonIP),
		ParseAnomalies:    readStat(shaper.StatParseAnomaly),
		ExtHeaderPackets:  readStat(shaper.StatExtHeader),
		DefaultBucketHits: readStat(shaper.StatDefaultHits),
		MapMisses:         readStat(shaper.StatMapMiss),
	}
}

// RateLimitMap returns the shared port-to-bucket map.
func (dp *DataPlane) RateLimitMap() *ebpf.Map {
	return dp.objs.RateLimitMap
}

// InterfaceName returns the attached interface.
func (dp *DataPlane) InterfaceName() string {
	return dp.iface
}

// Mode returns the XDP attachment mode in effect.
func (dp *DataPlane) Mode() string {
	return dp.mode
}
