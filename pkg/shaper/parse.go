// SPDX-License-Identifier: GPL-2.0 OR BSD-3-Clause
package shaper

import "encoding/binary"

const (
	etherTypeIPv4 = 0x0800
	etherTypeIPv6 = 0x86DD

	protoTCP = 6
	protoUDP = 17

	ethHeaderLen  = 14
	ipv4MinHdrLen = 20
	ipv6HeaderLen = 40
	portBytes     = 4 // src+dst port prefix shared by TCP and UDP
)

// FrameInfo is the classification result for a shapeable frame.
type FrameInfo struct {
	DstPort uint16

	// BillableLen is the IP-layer byte count charged to the bucket:
	// IPv4 total_length or 40 + IPv6 payload_length, clamped to the
	// bytes actually present in the frame.
	BillableLen uint64
}

// ParseFrame walks Ethernet -> IPv4/IPv6 -> TCP/UDP and extracts the
// destination port and billable length. ok is false for every frame that
// is not subject to shaping: short frames, non-IP EtherTypes, malformed
// headers, IPv6 extension headers and non-TCP/UDP protocols all fail
// open. Mirrors the parse in bpf/shaper.bpf.c.
func ParseFrame(frame []byte) (info FrameInfo, ok bool) {
	if len(frame) < ethHeaderLen {
		return FrameInfo{}, false
	}
	etherType := binary.BigEndian.Uint16(frame[12:14])

	var (
		l4Off    int
		l4Proto  uint8
		billable uint64
	)
	switch etherType {
	case etherTypeIPv4:
		ip := frame[ethHeaderLen:]
		if len(ip) < ipv4MinHdrLen {
			return FrameInfo{}, false
		}
		ihl := int(ip[0]&0x0f) * 4
		if ihl < ipv4MinHdrLen {
			return FrameInfo{}, false
		}
		l4Proto = ip[9]
		l4Off = ethHeaderLen + ihl
		billable = uint64(binary.BigEndian.Uint16(ip[2:4]))
	case etherTypeIPv6:
		ip6 := frame[ethHeaderLen:]
		if len(ip6) < ipv6HeaderLen {
			return FrameInfo{}, false
		}
		next := ip6[6]
		if isIPv6ExtHeader(next) {
			return FrameInfo{}, false
		}
		l4Proto = next
		l4Off = ethHeaderLen + ipv6HeaderLen
		billable = ipv6HeaderLen + uint64(binary.BigEndian.Uint16(ip6[4:6]))
	default:
		return FrameInfo{}, false
	}

	if l4Proto != protoTCP && l4Proto != protoUDP {
		return FrameInfo{}, false
	}
	if len(frame) < l4Off+portBytes {
		return FrameInfo{}, false
	}

	if wire := uint64(len(frame) - ethHeaderLen); billable > wire {
		billable = wire
	}
	return FrameInfo{
		DstPort:     binary.BigEndian.Uint16(frame[l4Off+2 : l4Off+4]),
		BillableLen: billable,
	}, true
}

// isIPv6ExtHeader reports whether next is one of the extension headers the
// shaper does not walk (hop-by-hop, routing, fragment, ESP, AH, dstopts).
func isIPv6ExtHeader(next uint8) bool {
	switch next {
	case 0, 43, 44, 50, 51, 60:
		return true
	}
	return false
}
