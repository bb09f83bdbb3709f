package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFieldConstructors(t *testing.T) {
	assert.Equal(t, Field{Key: "k", Value: "v"}, String("k", "v"))
	assert.Equal(t, Field{Key: "n", Value: 7}, Int("n", 7))
	assert.Equal(t, Field{Key: "d", Value: time.Second}, Duration("d", time.Second))
	assert.Equal(t, Field{Key: "error", Value: "<nil>"}, Err(nil))
}

func TestLoggerEmitsFields(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	log := NewLoggerFromCore(core)

	log.Info("document parsed",
		String("document_id", "doc-1"),
		Int("articles", 12),
		Bool("cache_hit", true),
	)

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "document parsed", entries[0].Message)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "doc-1", ctx["document_id"])
	assert.Equal(t, int64(12), ctx["articles"])
	assert.Equal(t, true, ctx["cache_hit"])
}

func TestWithAddsPersistentFields(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	log := NewLoggerFromCore(core).With(String("component", "selector"))

	log.Warn("falling back to chunking")

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "selector", entries[0].ContextMap()["component"])
}

func TestNamedLogger(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	log := NewLoggerFromCore(core).Named("worker").Named("linker")

	log.Info("ontology loaded")

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "worker.linker", entries[0].LoggerName)
}

func TestNewLoggerDefaults(t *testing.T) {
	log, err := NewLogger(LogConfig{})
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}

func TestDefaultLogger(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	nop := NewNopLogger()
	SetDefault(nop)
	assert.Equal(t, nop, Default())

	// nil is ignored
	SetDefault(nil)
	assert.Equal(t, nop, Default())
}
