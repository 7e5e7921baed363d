// Package server implements a TCP acceptor that runs a per-connection state machine.
//
// A Server binds an IPv4 listening socket and runs an accept loop in the background. Only one
// accept is outstanding at a time: the loop does not accept the next connection until the
// previous one has been registered and its Handler launched. Each Handler runs on its own
// goroutine and invokes the current state.State until the state returns state.Stop, the
// terminal state.Exit removes the connection, or the server is stopped.
//
// Connection ids start at 0, increase monotonically and are never reused by a Server.
//
// Usage Example:
//
//	registry := state.NewRegistry()
//	registry.MustRegister("Echo", func() state.State {
//	    return state.StateFunc(func(conn state.Conn) state.Result {
//	        msg, err := conn.Receive()
//	        if err != nil || len(msg) == 0 {
//	            return state.Stop
//	        }
//	        _ = conn.Send(msg)
//	        return state.Continue
//	    })
//	})
//
//	cfg, err := server.NewServerConfig(5000, "Echo",
//	    server.WithHost("0.0.0.0"),
//	    server.WithBacklog(100),
//	    server.WithResolver(registry),
//	)
//	// ... handle error ...
//	srv, err := server.NewServer(ctx, cfg)
//	// ... handle error ...
//	if err := srv.Start(); err != nil {
//	    // ... bind failed ...
//	}
//	defer srv.Stop()
//
// Framing:
//
// Handler.Receive reads ChunkSize (4096) bytes at a time and treats a short or zero-byte read
// as the end of a message. A message whose length is an exact multiple of ChunkSize stays
// incomplete until more data arrives.
package server
