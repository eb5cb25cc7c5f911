// SPDX-License-Identifier: GPL-2.0 OR BSD-3-Clause
package testutil

import (
	"encoding/binary"
	"net"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

var (
	srcMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	dstMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}

	srcIPv4 = net.IPv4(10, 100, 0, 1)
	dstIPv4 = net.IPv4(10, 100, 0, 2)
	srcIPv6 = net.ParseIP("fd00::1")
	dstIPv6 = net.ParseIP("fd00::2")
)

func serialize(payloadLen int, ls ...gopacket.SerializableLayer) []byte {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	ls = append(ls, gopacket.Payload(make([]byte, payloadLen)))
	if err := gopacket.SerializeLayers(buf, opts, ls...); err != nil {
		panic("serializing test frame: " + err.Error())
	}
	return buf.Bytes()
}

// TCPFrameIPv4 builds an Ethernet/IPv4/TCP frame carrying payloadLen bytes
// toward dstPort.
func TCPFrameIPv4(dstPort uint16, payloadLen int) []byte {
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolTCP, SrcIP: srcIPv4, DstIP: dstIPv4}
	tcp := &layers.TCP{SrcPort: 49152, DstPort: layers.TCPPort(dstPort), Window: 65535}
	tcp.SetNetworkLayerForChecksum(ip)
	return serialize(payloadLen, eth, ip, tcp)
}

// UDPFrameIPv4 builds an Ethernet/IPv4/UDP frame carrying payloadLen bytes
// toward dstPort.
func UDPFrameIPv4(dstPort uint16, payloadLen int) []byte {
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolUDP, SrcIP: srcIPv4, DstIP: dstIPv4}
	udp := &layers.UDP{SrcPort: 49152, DstPort: layers.UDPPort(dstPort)}
	udp.SetNetworkLayerForChecksum(ip)
	return serialize(payloadLen, eth, ip, udp)
}

// TCPFrameIPv6 builds an Ethernet/IPv6/TCP frame carrying payloadLen bytes
// toward dstPort.
func TCPFrameIPv6(dstPort uint16, payloadLen int) []byte {
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv6}
	ip6 := &layers.IPv6{Version: 6, HopLimit: 64, NextHeader: layers.IPProtocolTCP, SrcIP: srcIPv6, DstIP: dstIPv6}
	tcp := &layers.TCP{SrcPort: 49152, DstPort: layers.TCPPort(dstPort), Window: 65535}
	tcp.SetNetworkLayerForChecksum(ip6)
	return serialize(payloadLen, eth, ip6, tcp)
}

// UDPFrameIPv6 builds an Ethernet/IPv6/UDP frame carrying payloadLen bytes
// toward dstPort.
func UDPFrameIPv6(dstPort uint16, payloadLen int) []byte {
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv6}
	ip6 := &layers.IPv6{Version: 6, HopLimit: 64, NextHeader: layers.IPProtocolUDP, SrcIP: srcIPv6, DstIP: dstIPv6}
	udp := &layers.UDP{SrcPort: 49152, DstPort: layers.UDPPort(dstPort)}
	udp.SetNetworkLayerForChecksum(ip6)
	return serialize(payloadLen, eth, ip6, udp)
}

// ARPFrame builds a broadcast ARP request. Non-IP EtherTypes must bypass
// the shaper entirely.
func ARPFrame() []byte {
	eth := &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		EthernetType: layers.EthernetTypeARP,
	}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   srcMAC,
		SourceProtAddress: srcIPv4.To4(),
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    dstIPv4.To4(),
	}
	return serialize(0, eth, arp)
}

// IPv6ExtHeaderFrame builds an IPv6 frame whose next header is hop-by-hop
// options. Extension headers are out of scope for the shaper and must
// pass unshaped. Built by hand: the options payload is opaque here.
func IPv6ExtHeaderFrame() []byte {
	frame := make([]byte, 14+40+8)
	copy(frame[0:6], dstMAC)
	copy(frame[6:12], srcMAC)
	binary.BigEndian.PutUint16(frame[12:14], 0x86DD)

	ip6 := frame[14:]
	ip6[0] = 6 << 4
	binary.BigEndian.PutUint16(ip6[4:6], 8) // payload: one option block
	ip6[6] = 0                              // next header: hop-by-hop
	ip6[7] = 64
	copy(ip6[8:24], srcIPv6)
	copy(ip6[24:40], dstIPv6)
	ip6[40] = 6 // TCP after the options, never reached by the parser
	ip6[41] = 0
	return frame
}

// TruncatedFrame returns the first n bytes of frame.
func TruncatedFrame(frame []byte, n int) []byte {
	if n > len(frame) {
		n = len(frame)
	}
	return frame[:n]
}

// IPv4BadIHLFrame builds an IPv4 frame whose header-length nibble encodes
// fewer than 20 bytes (ihl=4), which the parser must reject fail-open.
func IPv4BadIHLFrame(dstPort uint16) []byte {
	frame := TCPFrameIPv4(dstPort, 0)
	frame[14] = 4<<4 | 4 // version 4, ihl 4
	return frame
}

// EthernetOnlyFrame builds a frame of exactly Ethernet-header length.
func EthernetOnlyFrame() []byte {
	frame := make([]byte, 14)
	copy(frame[0:6], dstMAC)
	copy(frame[6:12], srcMAC)
	binary.BigEndian.PutUint16(frame[12:14], 0x0800)
	return frame
}
