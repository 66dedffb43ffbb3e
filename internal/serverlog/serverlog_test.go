package serverlog

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZerologLoggerWritesMessage(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerolog(&buf, LevelInfo)
	l.Log(Entry{Level: LevelInfo, Message: "client connected", FD: 7})
	require.Contains(t, buf.String(), "client connected")
	require.Contains(t, buf.String(), `"fd":7`)
}

func TestZerologLoggerSkipsBelowMinLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerolog(&buf, LevelWarn)
	require.False(t, l.IsEnabled(LevelInfo))
	l.Log(Entry{Level: LevelInfo, Message: "should not appear"})
	require.Empty(t, buf.String())
}

func TestZerologLoggerIncludesError(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerolog(&buf, LevelError)
	l.Log(Entry{Level: LevelError, Message: "read failed", Err: errors.New("boom")})
	require.True(t, strings.Contains(buf.String(), "boom"))
}

func TestLevelString(t *testing.T) {
	require.Equal(t, "debug", LevelDebug.String())
	require.Equal(t, "warn", LevelWarn.String())
}
