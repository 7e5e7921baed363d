//go:build linux

package sockopt

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// NewDialer returns an IPv4 TCP dialer that enables SO_REUSEADDR and, if keepAlive is true,
// SO_KEEPALIVE with TCP_KEEPIDLE and TCP_KEEPINTVL set to KeepAliveIdle and KeepAliveInterval.
func NewDialer(timeout time.Duration, keepAlive bool) *net.Dialer {
	return &net.Dialer{
		Timeout: timeout,
		// keep-alive is configured in Control, stop the net package from overriding it
		KeepAlive: -1,
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = setDialOptions(int(fd), keepAlive)
			})
			if err != nil {
				return err
			}

			return sockErr
		},
	}
}

func setDialOptions(fd int, keepAlive bool) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("set SO_REUSEADDR: %w", err)
	}

	if !keepAlive {
		return nil
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
		return fmt.Errorf("set SO_KEEPALIVE: %w", err)
	}

	// tuning is best effort, default keep-alive timing still applies when it fails
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, int(KeepAliveIdle/time.Second))
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, int(KeepAliveInterval/time.Second))

	return nil
}

// Alive peeks one byte without blocking and without consuming it.
//
// It returns false if conn is nil, closed, reset, or the peer performed an orderly shutdown,
// and true if data is pending or the socket is idle. Connections that do not expose a raw
// file descriptor are reported alive.
func Alive(conn net.Conn) bool {
	if conn == nil {
		return false
	}

	sc, ok := conn.(syscall.Conn)
	if !ok {
		return true
	}

	raw, err := sc.SyscallConn()
	if err != nil {
		return false
	}

	alive := true
	var buf [1]byte
	err = raw.Read(func(fd uintptr) bool {
		n, _, rerr := unix.Recvfrom(int(fd), buf[:], unix.MSG_PEEK|unix.MSG_DONTWAIT)
		switch {
		case errors.Is(rerr, unix.EAGAIN), errors.Is(rerr, unix.EINTR):
			alive = true
		case rerr != nil:
			alive = false
		case n == 0:
			alive = false
		default:
			alive = true
		}

		return true
	})
	if err != nil {
		return false
	}

	return alive
}

// Listen binds an IPv4 TCP listener to addr with SO_REUSEADDR and the given backlog.
func Listen(_ context.Context, addr *net.TCPAddr, backlog int) (net.Listener, error) {
	ip4 := addr.IP.To4()
	if ip4 == nil {
		return nil, fmt.Errorf("address %s is not IPv4", addr.IP)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("create socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("set SO_REUSEADDR: %w", err)
	}

	sa := &unix.SockaddrInet4{Port: addr.Port}
	copy(sa.Addr[:], ip4)
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}

	if err := unix.Listen(fd, backlog); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	// FileListener duplicates the descriptor, the file is closed on return
	f := os.NewFile(uintptr(fd), "tcp:"+addr.String())
	defer f.Close()

	return net.FileListener(f)
}
