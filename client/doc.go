// Package client provides plain TCP and TLS clients for servers built with package server.
//
// Both clients share the Transport contract: Open connects, Send writes, Receive reads one
// message and Close tears the connection down. With keep-alive enabled, Send probes the
// connection without consuming data and, if the server went away, reopens it exactly once
// before writing; there is no retry loop or backoff.
//
// Client frames messages the same way as the server-side handler, ending a message at the
// first read returning fewer than 4096 bytes. SecureClient performs a single read per Receive.
//
// Example:
//
//	cfg, err := client.NewClientConfigFromURL("tcp://127.0.0.1:5000",
//		client.WithReceiveTimeout(5*time.Second),
//	)
//	if err != nil {
//		return err
//	}
//
//	c, err := client.NewClient(cfg)
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	if err := c.Open(); err != nil {
//		return err
//	}
//	if err := c.Send([]byte("ping")); err != nil {
//		return err
//	}
//	reply, err := c.Receive()
//
// SecureClient trusts the certificates in the file configured by WithCertFile. Chain-trust
// failures and host name mismatches are tolerated; expired or malformed certificates are not.
package client
