package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, development := range []bool{true, false} {
		logger, err := New(development)
		require.NoError(t, err)
		require.NotNil(t, logger)
		logger.Info("logger smoke test")
	}
}

func TestInitLoggerReplacesGlobal(t *testing.T) {
	prev := L
	defer func() { L = prev }()

	require.NoError(t, InitLogger(false))
	assert.NotSame(t, prev, L)
	L.Info("global logger smoke test")
}
