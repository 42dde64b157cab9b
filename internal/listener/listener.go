// Package listener opens the TCP listeners the servers run on.
package listener

import (
	"context"
	"fmt"
	"net"
)

// Listen opens a TCP listener on addr. When keepAlive is false, TCP
// keep-alive probes are disabled on every accepted connection.
func Listen(ctx context.Context, addr string, keepAlive bool) (net.Listener, error) {
	lc := net.ListenConfig{}
	if !keepAlive {
		lc.KeepAlive = -1
	}

	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return ln, nil
}
