package logx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurebot/relay/internal/core"
)

func TestInit_ProductionWritesJSON(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	Init(LoggerOpts{Environment: core.Production, Output: &buf})

	Debug().Msg("hidden")
	Info().Str("user", "U1").Msg("turn complete")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "relay", line["service"])
	assert.Equal(t, "U1", line["user"])
	assert.Equal(t, "turn complete", line["message"])
}

func TestComponent(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	Init(LoggerOpts{Environment: core.Production, Output: &buf})
	l := Component("router")
	l.Info().Msg("hi")

	assert.Contains(t, buf.String(), `"component":"router"`)
}
