// SPDX-License-Identifier: GPL-2.0 OR BSD-3-Clause

// Package testutil provides frame builders for datapath tests and an
// isolated two-namespace network lab for end-to-end shaping tests.
package testutil

import (
	"fmt"
	"net"
	"os"
	"runtime"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"
)

// NetLab is an isolated network environment: a sender and a receiver
// namespace connected by a veth pair. The shaper attaches to the
// receiver side, so traffic from the sender crosses it on ingress.
//
//	[Sender NS]                  [Receiver NS]
//	    |                             |
//	veth-send  <------------->  veth-recv
//	10.200.0.1                  10.200.0.2
type NetLab struct {
	SenderNS   netns.NsHandle
	ReceiverNS netns.NsHandle

	SenderVeth   string
	ReceiverVeth string

	senderAddr   string
	receiverAddr string

	originalNS netns.NsHandle
}

// NewNetLab creates the namespaces, the veth pair and addressing.
// Requires CAP_NET_ADMIN; call CheckE2ERequirements first.
func NewNetLab() (*NetLab, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	originalNS, err := netns.Get()
	if err != nil {
		return nil, fmt.Errorf("getting current namespace: %w", err)
	}

	lab := &NetLab{
		SenderVeth:   "bsw-send",
		ReceiverVeth: "bsw-recv",
		senderAddr:   "10.200.0.1/24",
		receiverAddr: "10.200.0.2/24",
		originalNS:   originalNS,
	}

	if lab.SenderNS, err = netns.New(); err != nil {
		lab.Cleanup()
		return nil, fmt.Errorf("creating sender namespace: %w", err)
	}
	if err := netns.Set(originalNS); err != nil {
		lab.Cleanup()
		return nil, fmt.Errorf("returning to original namespace: %w", err)
	}
	if lab.ReceiverNS, err = netns.New(); err != nil {
		lab.Cleanup()
		return nil, fmt.Errorf("creating receiver namespace: %w", err)
	}
	if err := netns.Set(originalNS); err != nil {
		lab.Cleanup()
		return nil, fmt.Errorf("returning to original namespace: %w", err)
	}

	veth := &netlink.Veth{
		LinkAttrs: netlink.LinkAttrs{Name: lab.SenderVeth},
		PeerName:  lab.ReceiverVeth,
	}
	if err := netlink.LinkAdd(veth); err != nil {
		lab.Cleanup()
		return nil, fmt.Errorf("creating veth pair: %w", err)
	}

	if err := lab.moveAndConfigure(lab.SenderVeth, lab.SenderNS, lab.senderAddr); err != nil {
		lab.Cleanup()
		return nil, err
	}
	if err := lab.moveAndConfigure(lab.ReceiverVeth, lab.ReceiverNS, lab.receiverAddr); err != nil {
		lab.Cleanup()
		return nil, err
	}

	if err := netns.Set(originalNS); err != nil {
		lab.Cleanup()
		return nil, fmt.Errorf("returning to original namespace: %w", err)
	}
	return lab, nil
}

func (lab *NetLab) moveAndConfigure(vethName string, ns netns.NsHandle, addr string) error {
	link, err := netlink.LinkByName(vethName)
	if err != nil {
		return fmt.Errorf("getting veth %s: %w", vethName, err)
	}
	if err := netlink.LinkSetNsFd(link, int(ns)); err != nil {
		return fmt.Errorf("moving %s into namespace: %w", vethName, err)
	}

	if err := netns.Set(ns); err != nil {
		return fmt.Errorf("entering namespace: %w", err)
	}
	defer netns.Set(lab.originalNS)

	link, err = netlink.LinkByName(vethName)
	if err != nil {
		return fmt.Errorf("getting veth %s in namespace: %w", vethName, err)
	}
	parsed, err := netlink.ParseAddr(addr)
	if err != nil {
		return fmt.Errorf("parsing address %s: %w", addr, err)
	}
	if err := netlink.AddrAdd(link, parsed); err != nil {
		return fmt.Errorf("adding address: %w", err)
	}
	if lo, err := netlink.LinkByName("lo"); err == nil {
		netlink.LinkSetUp(lo)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("bringing up %s: %w", vethName, err)
	}
	return nil
}

// RunInSenderNS executes fn inside the sender namespace.
func (lab *NetLab) RunInSenderNS(fn func() error) error {
	return lab.runInNS(lab.SenderNS, fn)
}

// RunInReceiverNS executes fn inside the receiver namespace.
func (lab *NetLab) RunInReceiverNS(fn func() error) error {
	return lab.runInNS(lab.ReceiverNS, fn)
}

func (lab *NetLab) runInNS(ns netns.NsHandle, fn func() error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := netns.Set(ns); err != nil {
		return fmt.Errorf("entering namespace: %w", err)
	}
	err := fn()
	if setErr := netns.Set(lab.originalNS); setErr != nil {
		if err != nil {
			return fmt.Errorf("function error: %v, namespace restore error: %w", err, setErr)
		}
		return fmt.Errorf("restoring namespace: %w", setErr)
	}
	return err
}

// SenderIP returns the sender address without the CIDR suffix.
func (lab *NetLab) SenderIP() string {
	ip, _, _ := net.ParseCIDR(lab.senderAddr)
	return ip.String()
}

// ReceiverIP returns the receiver address without the CIDR suffix.
func (lab *NetLab) ReceiverIP() string {
	ip, _, _ := net.ParseCIDR(lab.receiverAddr)
	return ip.String()
}

// Cleanup tears the lab down. Deferred right after NewNetLab.
func (lab *NetLab) Cleanup() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if lab.originalNS != 0 {
		_ = netns.Set(lab.originalNS)
	}
	if lab.SenderNS != 0 {
		_ = lab.SenderNS.Close()
	}
	if lab.ReceiverNS != 0 {
		_ = lab.ReceiverNS.Close()
	}
	if lab.originalNS != 0 {
		_ = lab.originalNS.Close()
	}
}

// IsRoot reports whether the process has root privileges.
func IsRoot() bool {
	return os.Geteuid() == 0
}

// HasCapability reports whether cap is in the effective capability set.
func HasCapability(cap int) bool {
	var header unix.CapUserHeader
	var data [2]unix.CapUserData

	header.Version = unix.LINUX_CAPABILITY_VERSION_3
	header.Pid = 0 // current process

	if err := unix.Capget(&header, &data[0]); err != nil {
		return false
	}

	capMask := uint32(1 << uint(cap%32))
	return (data[cap/32].Effective & capMask) != 0
}

// CheckE2ERequirements reports why end-to-end tests cannot run in this
// environment, or an empty string when they can.
func CheckE2ERequirements() string {
	if !IsRoot() {
		if !HasCapability(unix.CAP_NET_ADMIN) {
			return "e2e tests require root privileges or CAP_NET_ADMIN"
		}
		if !HasCapability(unix.CAP_BPF) && !HasCapability(unix.CAP_SYS_ADMIN) {
			return "e2e tests require CAP_BPF or CAP_SYS_ADMIN for eBPF operations"
		}
	}

	testNS, err := netns.New()
	if err != nil {
		return fmt.Sprintf("network namespaces not supported: %v", err)
	}
	_ = testNS.Close()

	return ""
}
