//go:build unix

package listener

import (
	"context"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// acceptedKeepAlive returns SO_KEEPALIVE as set on a connection accepted
// by a listener from Listen.
func acceptedKeepAlive(t *testing.T, keepAlive bool) int {
	t.Helper()

	ln, err := Listen(context.Background(), "127.0.0.1:0", keepAlive)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
		close(accepted)
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	conn, ok := <-accepted
	require.True(t, ok)
	t.Cleanup(func() { _ = conn.Close() })

	raw, err := conn.(*net.TCPConn).SyscallConn()
	require.NoError(t, err)

	var value int
	var sockErr error
	require.NoError(t, raw.Control(func(fd uintptr) {
		value, sockErr = syscall.GetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_KEEPALIVE)
	}))
	require.NoError(t, sockErr)
	return value
}

func TestListen_KeepAliveSocketOption(t *testing.T) {
	tests := []struct {
		name      string
		keepAlive bool
		expected  int
	}{
		{"disabled", false, 0},
		{"enabled", true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, acceptedKeepAlive(t, tt.keepAlive))
		})
	}
}
