// SPDX-License-Identifier: GPL-2.0 OR BSD-3-Clause
package testutil

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// BlastUDP sends count UDP datagrams of payloadLen bytes to dst:port as
// fast as the socket allows. It returns the number of bytes handed to
// the kernel. Run inside the sender namespace.
func BlastUDP(dst string, port int, payloadLen, count int) (int64, error) {
	conn, err := net.Dial("udp", fmt.Sprintf("%s:%d", dst, port))
	if err != nil {
		return 0, fmt.Errorf("dialing %s:%d: %w", dst, port, err)
	}
	defer conn.Close()

	payload := make([]byte, payloadLen)
	for i := range payload {
		payload[i] = byte(i)
	}

	var sent int64
	for i := 0; i < count; i++ {
		n, err := conn.Write(payload)
		if err != nil {
			// UDP sends can fail transiently when the socket buffer
			// fills; back off briefly and keep going.
			time.Sleep(time.Millisecond)
			continue
		}
		sent += int64(n)
	}
	return sent, nil
}

// UDPSink listens on port and counts received payload bytes until the
// connection is closed. Run inside the receiver namespace. The returned
// stop function closes the socket and reports the byte total.
func UDPSink(port int) (stop func() int64, err error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("listening on udp port %d: %w", port, err)
	}

	var received int64
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 65536)
		for {
			n, _, err := conn.ReadFromUDP(buf)
			if n > 0 {
				atomic.AddInt64(&received, int64(n))
			}
			if err != nil {
				return
			}
		}
	}()

	return func() int64 {
		conn.Close()
		<-done
		return atomic.LoadInt64(&received)
	}, nil
}
