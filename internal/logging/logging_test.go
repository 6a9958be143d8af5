package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsinham/lesiontrack/internal/config"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(config.LogConfig{Level: "info", Format: config.FormatJSON}, &buf)
	require.NoError(t, err)

	log.Debug().Msg("hidden")
	log.Info().Str("case_id", "C1").Msg("analyzed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "analyzed", entry["message"])
	assert.Equal(t, "C1", entry["case_id"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "time")
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(config.LogConfig{Level: "debug", Format: config.FormatConsole}, &buf)
	require.NoError(t, err)
	log.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestNew_Errors(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud", Format: config.FormatJSON}, &bytes.Buffer{})
	assert.Error(t, err)
	_, err = New(config.LogConfig{Level: "info", Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}
