package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigureHonoursLevel(t *testing.T) {
	t.Cleanup(func() { Replace(nil) })

	require.NoError(t, Configure(Options{Level: "debug", Format: "console"}))
	require.True(t, Logger().Core().Enabled(zap.DebugLevel))

	require.NoError(t, Init("warn"))
	require.False(t, Logger().Core().Enabled(zap.InfoLevel))
}

func TestInitFallsBackToInfoOnUnknownLevel(t *testing.T) {
	t.Cleanup(func() { Replace(nil) })

	require.NoError(t, Init("chatty"))
	require.True(t, Logger().Core().Enabled(zap.InfoLevel))
	require.False(t, Logger().Core().Enabled(zap.DebugLevel))
}

func TestWithModuleAttachesModuleField(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	t.Cleanup(func() { Replace(nil) })
	Replace(zap.New(core))

	WithModule("lockerflow").Info("staged", zap.String("locker_id", "2001"))
	Warn("warn message")

	entries := recorded.All()
	require.Len(t, entries, 2)
	require.Equal(t, "lockerflow", entries[0].ContextMap()["module"])
	require.Equal(t, "2001", entries[0].ContextMap()["locker_id"])
	require.Equal(t, "warn message", entries[1].Message)
}
