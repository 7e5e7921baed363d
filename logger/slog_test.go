package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlogLogger_LevelFiltering(t *testing.T) {
	require := require.New(t)
	t.Setenv("ENV", "")

	var buf bytes.Buffer
	l := NewSlogWithWriter(&buf, WarnLevel, false)
	require.Equal(WarnLevel, l.Level())

	l.Info("dropped")
	require.Zero(buf.Len())

	l.Warn("kept", "conn_id", 3)
	require.NotZero(buf.Len())

	var rec map[string]any
	require.NoError(json.Unmarshal(buf.Bytes(), &rec))
	require.Equal("kept", rec["msg"])
	require.EqualValues(3, rec["conn_id"])
	require.Contains(rec, "ts")
}

func TestSlogLogger_WithSharesLevel(t *testing.T) {
	require := require.New(t)
	t.Setenv("ENV", "")

	var buf bytes.Buffer
	parent := NewSlogWithWriter(&buf, InfoLevel, false)
	child := parent.With("server_id", "abc")

	child.Debug("hidden")
	require.Zero(buf.Len())

	parent.SetLevel(DebugLevel)
	require.Equal(DebugLevel, child.Level())

	child.Debug("visible")
	require.Contains(buf.String(), `"server_id":"abc"`)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DebugLevel,
		"info":    InfoLevel,
		"warn":    WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"fatal":   FatalLevel,
		"bogus":   InfoLevel,
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, want, ParseLevel(name))
		})
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNop()
	l.Info("nothing")
	require.Equal(t, l, l.With("k", "v"))
	require.Equal(t, FatalLevel, l.Level())
}
