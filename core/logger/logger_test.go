package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	WithFields(Fields{"slot": 2}).Info("probe done")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "probe done", entry["msg"])
	assert.Equal(t, float64(2), entry["slot"])
	assert.Equal(t, "info", entry["level"])
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer func() {
		SetOutput(os.Stderr)
		_ = SetLevel("info")
	}()

	require.NoError(t, SetLevel("warn"))
	Info("hidden")
	assert.Zero(t, buf.Len())

	Warn("shown %d", 1)
	assert.Contains(t, buf.String(), "shown 1")

	assert.Error(t, SetLevel("loud"))
}
