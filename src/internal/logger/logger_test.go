package logger_test

import (
	"errors"
	"testing"

	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizePayloadMasksSensitiveKeys(t *testing.T) {
	payload := map[string]any{
		"X-Api-Key": "secret",
		"nested": map[string]any{
			"apiKey": "secret",
			"amount": "100",
		},
	}

	sanitized, ok := logger.SanitizePayload(payload).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "******", sanitized["X-Api-Key"])

	nested, ok := sanitized["nested"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "******", nested["apiKey"])
	assert.Equal(t, "100", nested["amount"])
}

func TestErrorWritesFieldsAndError(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger.SetLogger(zap.New(core))
	t.Cleanup(func() { logger.SetLogger(zap.NewNop()) })

	logger.Error("transfer service create failed", errors.New("boom"), logger.Fields{
		"transferId": "t-1",
		"apiKey":     "secret",
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "t-1", fields["transferId"])
	assert.Equal(t, "******", fields["apiKey"])
	assert.Equal(t, "boom", fields["error"])
}

func TestConfigureRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, logger.Configure("loud"))
}
