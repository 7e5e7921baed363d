// Package sockopt applies socket level options that the net package does not expose:
// listen backlog, address reuse, tuned TCP keep-alive and a non-destructive liveness peek.
//
// On Linux the options are set through golang.org/x/sys/unix. Other platforms fall back to
// the behavior of the net package: default keep-alive timing, the system listen backlog and
// no liveness peek.
package sockopt

import "time"

const (
	// KeepAliveIdle is the idle time before the first keep-alive probe is sent.
	KeepAliveIdle = 5000 * time.Millisecond
	// KeepAliveInterval is the interval between keep-alive probes.
	KeepAliveInterval = 5000 * time.Millisecond
)
