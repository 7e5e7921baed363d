package server

import (
	"testing"
	"time"

	"github.com/arloliu/go-fsmsock/logger"
	"github.com/stretchr/testify/require"
)

func TestNewServerConfig_Defaults(t *testing.T) {
	require := require.New(t)

	cfg, err := NewServerConfig(5000, "Login")
	require.NoError(err)
	require.Equal("0.0.0.0", cfg.Host())
	require.Equal(5000, cfg.Port())
	require.Equal(100, cfg.Backlog())
	require.Equal("Login", cfg.InitState())
	require.NotNil(cfg.resolver)
	require.Equal(3*time.Second, cfg.stopTimeout)
	require.Zero(cfg.readTimeout)
	require.Zero(cfg.writeTimeout)
}

func TestNewServerConfig_Validation(t *testing.T) {
	tests := []struct {
		name      string
		port      int
		initState string
		opts      []ServerOption
		wantErr   bool
	}{
		{name: "negative port", port: -1, initState: "Exit", wantErr: true},
		{name: "port too large", port: 65536, initState: "Exit", wantErr: true},
		{name: "empty init state", port: 1, initState: "", wantErr: true},
		{name: "empty host", port: 1, initState: "Exit", opts: []ServerOption{WithHost("")}, wantErr: true},
		{name: "backlog zero", port: 1, initState: "Exit", opts: []ServerOption{WithBacklog(0)}, wantErr: true},
		{name: "backlog ok", port: 1, initState: "Exit", opts: []ServerOption{WithBacklog(10)}},
		{name: "nil resolver", port: 1, initState: "Exit", opts: []ServerOption{WithResolver(nil)}, wantErr: true},
		{name: "negative read timeout", port: 1, initState: "Exit", opts: []ServerOption{WithReadTimeout(-time.Second)}, wantErr: true},
		{name: "negative write timeout", port: 1, initState: "Exit", opts: []ServerOption{WithWriteTimeout(-time.Second)}, wantErr: true},
		{name: "stop timeout too short", port: 1, initState: "Exit", opts: []ServerOption{WithStopTimeout(time.Millisecond)}, wantErr: true},
		{name: "nil logger", port: 1, initState: "Exit", opts: []ServerOption{WithLogger(nil)}, wantErr: true},
		{
			name: "all options", port: 0, initState: "Exit",
			opts: []ServerOption{
				WithHost("127.0.0.1"),
				WithBacklog(1),
				WithReadTimeout(time.Second),
				WithWriteTimeout(time.Second),
				WithStopTimeout(time.Second),
				WithLogger(logger.NewNop()),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewServerConfig(tt.port, tt.initState, tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestServerOption_NilConfig(t *testing.T) {
	require.ErrorIs(t, WithBacklog(1).apply(nil), ErrServerConfigNil)
}
