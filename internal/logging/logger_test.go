package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(true)
	require.NoError(t, err)
	defer logger.Sync() //nolint:errcheck // best-effort flush
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(false)
	require.NoError(t, err)
	defer logger.Sync() //nolint:errcheck // best-effort flush
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestForStageKeepsParentFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	parent := zap.New(core).With(zap.String("run_id", "run-1"))
	ForStage(parent, "scraper").Info("upserted document")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "scraper", entries[0].LoggerName)
	assert.Equal(t, "run-1", entries[0].ContextMap()["run_id"])
	assert.Len(t, entries[0].Context, 1)

	assert.NotNil(t, ForStage(nil, "links"))
}
