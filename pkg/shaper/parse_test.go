// SPDX-License-Identifier: GPL-2.0 OR BSD-3-Clause
package shaper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitswing/bitswing/pkg/shaper"
	"github.com/bitswing/bitswing/pkg/testutil"
)

func TestParseFrameDestinationPort(t *testing.T) {
	builders := map[string]func(uint16, int) []byte{
		"ipv4/tcp": testutil.TCPFrameIPv4,
		"ipv4/udp": testutil.UDPFrameIPv4,
		"ipv6/tcp": testutil.TCPFrameIPv6,
		"ipv6/udp": testutil.UDPFrameIPv6,
	}
	ports := []uint16{1, 22, 80, 443, 8080, 65535}

	for name, build := range builders {
		t.Run(name, func(t *testing.T) {
			for _, port := range ports {
				info, ok := shaper.ParseFrame(build(port, 100))
				require.True(t, ok, "port %d", port)
				assert.Equal(t, port, info.DstPort)
			}
		})
	}
}

func TestParseFrameBillableLength(t *testing.T) {
	// IPv4: total_length = 20 (IP) + 20 (TCP) + payload.
	info, ok := shaper.ParseFrame(testutil.TCPFrameIPv4(80, 960))
	require.True(t, ok)
	assert.Equal(t, uint64(1000), info.BillableLen)

	// IPv4/UDP: 20 + 8 + payload.
	info, ok = shaper.ParseFrame(testutil.UDPFrameIPv4(53, 72))
	require.True(t, ok)
	assert.Equal(t, uint64(100), info.BillableLen)

	// IPv6: 40 (fixed header) + payload_length = 40 + 20 + payload.
	info, ok = shaper.ParseFrame(testutil.TCPFrameIPv6(443, 40))
	require.True(t, ok)
	assert.Equal(t, uint64(100), info.BillableLen)
}

func TestParseFrameClampsBillableToWire(t *testing.T) {
	frame := testutil.UDPFrameIPv4(53, 1000)
	// Declare more bytes than arrive: total_length lies, the wire wins.
	frame[14+2] = 0xff
	frame[14+3] = 0xff
	info, ok := shaper.ParseFrame(frame)
	require.True(t, ok)
	assert.Equal(t, uint64(len(frame)-14), info.BillableLen)
}

func TestParseFrameFailOpen(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{"empty", nil},
		{"short ethernet", make([]byte, 13)},
		{"ethernet only", testutil.EthernetOnlyFrame()},
		{"arp", testutil.ARPFrame()},
		{"ipv4 bad ihl", testutil.IPv4BadIHLFrame(80)},
		{"ipv4 truncated header", testutil.TruncatedFrame(testutil.TCPFrameIPv4(80, 0), 20)},
		{"ipv4 truncated transport", testutil.TruncatedFrame(testutil.TCPFrameIPv4(80, 0), 36)},
		{"ipv6 truncated header", testutil.TruncatedFrame(testutil.TCPFrameIPv6(80, 0), 40)},
		{"ipv6 extension header", testutil.IPv6ExtHeaderFrame()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := shaper.ParseFrame(tt.frame)
			assert.False(t, ok)
		})
	}
}

func TestParseFrameICMPPasses(t *testing.T) {
	// Non-TCP/UDP transport protocols are not shaped.
	frame := testutil.TCPFrameIPv4(80, 0)
	frame[14+9] = 1 // ICMP
	_, ok := shaper.ParseFrame(frame)
	assert.False(t, ok)
}
