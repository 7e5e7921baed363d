//go:build !linux

package sockopt

import (
	"context"
	"net"
	"time"
)

// NewDialer returns an IPv4 TCP dialer. Keep-alive uses the platform default timing.
func NewDialer(timeout time.Duration, keepAlive bool) *net.Dialer {
	d := &net.Dialer{Timeout: timeout}
	if !keepAlive {
		d.KeepAlive = -1
	}

	return d
}

// Alive reports whether conn is non-nil. No peek is available on this platform.
func Alive(conn net.Conn) bool {
	return conn != nil
}

// Listen binds an IPv4 TCP listener to addr. The backlog is chosen by the system.
func Listen(ctx context.Context, addr *net.TCPAddr, _ int) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(ctx, "tcp4", addr.String())
}
