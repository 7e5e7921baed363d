package client

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/arloliu/go-fsmsock/internal/sockopt"
	"github.com/arloliu/go-fsmsock/logger"
	"github.com/arloliu/go-fsmsock/server"
	"github.com/arloliu/go-fsmsock/state"
	"github.com/stretchr/testify/require"
)

const testIP = "127.0.0.1"

func TestMain(m *testing.M) {
	logger.SetLevel(logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	os.Exit(m.Run())
}

var echoState = state.StateFunc(func(conn state.Conn) state.Result {
	msg, err := conn.Receive()
	if err != nil || len(msg) == 0 {
		return state.Stop
	}
	if err := conn.Send(msg); err != nil {
		return state.Stop
	}

	return state.Continue
})

func newEchoServer(t *testing.T) *server.Server {
	t.Helper()
	require := require.New(t)

	registry := state.NewRegistry()
	registry.MustRegister("Echo", func() state.State { return echoState })

	cfg, err := server.NewServerConfig(0, "Echo",
		server.WithHost(testIP),
		server.WithResolver(registry),
		server.WithStopTimeout(2*time.Second),
	)
	require.NoError(err)

	srv, err := server.NewServer(context.Background(), cfg)
	require.NoError(err)
	require.NoError(srv.Start())
	t.Cleanup(srv.Stop)

	return srv
}

func addrPort(addr net.Addr) int {
	return addr.(*net.TCPAddr).Port
}

func newTestClient(t *testing.T, port int, opts ...ClientOption) *Client {
	t.Helper()
	require := require.New(t)

	opts = append([]ClientOption{
		WithConnectTimeout(time.Second),
		WithReceiveTimeout(2 * time.Second),
		WithSendTimeout(2 * time.Second),
	}, opts...)

	cfg, err := NewClientConfig(testIP, port, opts...)
	require.NoError(err)

	c, err := NewClient(cfg)
	require.NoError(err)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func TestClient_Echo(t *testing.T) {
	require := require.New(t)

	srv := newEchoServer(t)
	c := newTestClient(t, addrPort(srv.Addr()))

	require.True(c.IsKeepAlive())
	require.False(c.IsConnected())
	require.NoError(c.Open())
	require.True(c.IsConnected())

	for _, msg := range []string{"hello", "world"} {
		require.NoError(c.Send([]byte(msg)))
		reply, err := c.Receive()
		require.NoError(err)
		require.Equal(msg, string(reply))
	}

	metrics := c.GetMetrics()
	require.Equal(uint64(1), metrics.OpenCount.Load())
	require.Equal(uint64(2), metrics.SendCount.Load())
	require.Equal(uint64(2), metrics.RecvCount.Load())
	require.Zero(metrics.ReconnectCount.Load())
}

func TestClient_ReconnectOnceAfterPeerClose(t *testing.T) {
	require := require.New(t)

	srv := newEchoServer(t)
	c := newTestClient(t, addrPort(srv.Addr()))
	require.NoError(c.Open())

	require.NoError(c.Send([]byte("first")))
	reply, err := c.Receive()
	require.NoError(err)
	require.Equal("first", string(reply))

	// server drops the connection without notice to the client
	srv.RemoveClient(0)
	require.Eventually(func() bool { return !sockopt.Alive(c.getConn()) }, 2*time.Second, 5*time.Millisecond)

	require.NoError(c.Send([]byte("second")))
	reply, err = c.Receive()
	require.NoError(err)
	require.Equal("second", string(reply))

	metrics := c.GetMetrics()
	require.Equal(uint64(1), metrics.ReconnectCount.Load())
	require.Equal(uint64(2), metrics.OpenCount.Load())
	require.Equal([]int{1}, srv.ClientIDs())
}

func TestClient_ReconnectFailureIsNotRetried(t *testing.T) {
	require := require.New(t)

	srv := newEchoServer(t)
	c := newTestClient(t, addrPort(srv.Addr()))
	require.NoError(c.Open())

	srv.Stop()
	require.Eventually(func() bool { return !sockopt.Alive(c.getConn()) }, 2*time.Second, 5*time.Millisecond)

	err := c.Send([]byte("lost"))
	require.ErrorIs(err, ErrNotConnected)
	require.False(c.IsConnected())

	metrics := c.GetMetrics()
	require.Equal(uint64(1), metrics.ReconnectCount.Load())
	require.Equal(uint64(1), metrics.OpenErrCount.Load())
	require.Equal(uint64(1), metrics.ErrCount.Load())
}

func TestClient_WithoutKeepAlive(t *testing.T) {
	require := require.New(t)

	srv := newEchoServer(t)
	c := newTestClient(t, addrPort(srv.Addr()), WithKeepAlive(false))
	require.False(c.IsKeepAlive())

	require.ErrorIs(c.Send([]byte("x")), ErrNotConnected)
	_, err := c.Receive()
	require.ErrorIs(err, ErrNotConnected)
	require.Zero(c.GetMetrics().ReconnectCount.Load())

	require.NoError(c.Open())
	require.NoError(c.Send([]byte("x")))
	reply, err := c.Receive()
	require.NoError(err)
	require.Equal("x", string(reply))
}

func TestClient_SendOpensLazily(t *testing.T) {
	require := require.New(t)

	srv := newEchoServer(t)
	c := newTestClient(t, addrPort(srv.Addr()))

	require.NoError(c.Send([]byte("lazy")))
	reply, err := c.Receive()
	require.NoError(err)
	require.Equal("lazy", string(reply))
	require.Equal(uint64(1), c.GetMetrics().OpenCount.Load())
}

func TestClient_ChunkSizePlusOne(t *testing.T) {
	require := require.New(t)

	ln, err := net.Listen("tcp4", testIP+":0")
	require.NoError(err)
	defer ln.Close()

	payload := bytes.Repeat([]byte{'z'}, 4097)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write(payload)
		_, _ = io.Copy(io.Discard, conn)
	}()

	c := newTestClient(t, addrPort(ln.Addr()))
	require.NoError(c.Open())

	msg, err := c.Receive()
	require.NoError(err)
	require.Equal(payload, msg)
}

func TestClient_ReceiveAfterPeerClose(t *testing.T) {
	require := require.New(t)

	ln, err := net.Listen("tcp4", testIP+":0")
	require.NoError(err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_ = conn.Close()
	}()

	c := newTestClient(t, addrPort(ln.Addr()), WithKeepAlive(false))
	require.NoError(c.Open())

	msg, err := c.Receive()
	require.ErrorIs(err, io.EOF)
	require.Empty(msg)
}

func TestClient_OpenFailure(t *testing.T) {
	require := require.New(t)

	// reserve a port and release it so that nothing listens on it
	ln, err := net.Listen("tcp4", testIP+":0")
	require.NoError(err)
	port := addrPort(ln.Addr())
	require.NoError(ln.Close())

	c := newTestClient(t, port)
	require.Error(c.Open())
	require.False(c.IsConnected())
	require.Equal(uint64(1), c.GetMetrics().OpenErrCount.Load())
}

func TestClient_CloseIdempotent(t *testing.T) {
	require := require.New(t)

	srv := newEchoServer(t)
	c := newTestClient(t, addrPort(srv.Addr()), WithKeepAlive(false))

	require.NoError(c.Close())
	require.NoError(c.Open())
	require.NoError(c.Close())
	require.NoError(c.Close())
	require.False(c.IsConnected())
	require.ErrorIs(c.Send([]byte("x")), ErrNotConnected)

	require.Eventually(func() bool { return srv.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestClient_ReopenReplacesConnection(t *testing.T) {
	require := require.New(t)

	srv := newEchoServer(t)
	c := newTestClient(t, addrPort(srv.Addr()))

	require.NoError(c.Open())
	require.NoError(c.Open())
	require.Equal(uint64(2), c.GetMetrics().OpenCount.Load())

	require.Eventually(func() bool {
		ids := srv.ClientIDs()
		return len(ids) == 1 && ids[0] == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestNewClient_NilConfig(t *testing.T) {
	require := require.New(t)

	c, err := NewClient(nil)
	require.ErrorIs(err, ErrClientConfigNil)
	require.Nil(c)
}

func TestClient_FailedOpenLeavesDisconnected(t *testing.T) {
	require := require.New(t)

	ln, err := net.Listen("tcp4", testIP+":0")
	require.NoError(err)

	c := newTestClient(t, addrPort(ln.Addr()), WithKeepAlive(false))
	require.NoError(c.Open())
	require.True(c.IsConnected())

	require.NoError(ln.Close())

	require.Error(c.Open())
	require.False(c.IsConnected())
	require.ErrorIs(c.Send([]byte("stale")), ErrNotConnected)
	_, err = c.Receive()
	require.ErrorIs(err, ErrNotConnected)

	metrics := c.GetMetrics()
	require.Equal(uint64(1), metrics.OpenCount.Load())
	require.Equal(uint64(1), metrics.OpenErrCount.Load())
}
