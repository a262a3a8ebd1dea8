package logger_adapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"oikotie-parser-service/internal/core/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePoster struct {
	tags     []string
	messages []port.Fields
}

func (f *fakePoster) Post(tag string, message interface{}) error {
	f.tags = append(f.tags, tag)
	f.messages = append(f.messages, message.(port.Fields))
	return nil
}

func TestSlogAdapter_JSONIncludesInheritedFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogAdapter(SlogConfig{Writer: &buf, Level: slog.LevelDebug, IsJSON: true})

	logger.WithFields(port.Fields{"component": "test"}).Info("hello", port.Fields{"n_adverts": 10})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "test", entry["component"])
	assert.EqualValues(t, 10, entry["n_adverts"])
}

func TestSlogAdapter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogAdapter(SlogConfig{Writer: &buf, Level: slog.LevelWarn})

	logger.Debug("hidden", nil)
	logger.Info("hidden too", nil)
	logger.Error("visible", errors.New("boom"), nil)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "boom")
}

func TestFluentLoggerAdapter_FiltersAndMergesFields(t *testing.T) {
	poster := &fakePoster{}
	adapter, err := NewFluentLoggerAdapter(poster, slog.LevelInfo)
	require.NoError(t, err)

	logger := adapter.WithFields(port.Fields{"service_name": "oikotie"})
	logger.Debug("dropped", nil)
	logger.Warn("kept", port.Fields{"status": 500})
	logger.Error("failed", errors.New("boom"), nil)

	require.Equal(t, []string{"warn", "error"}, poster.tags)
	assert.Equal(t, "oikotie", poster.messages[0]["service_name"])
	assert.Equal(t, 500, poster.messages[0]["status"])
	assert.Equal(t, "kept", poster.messages[0]["message"])
	assert.Equal(t, "boom", poster.messages[1]["error"])
}

func TestMultiLoggerAdapter_FansOut(t *testing.T) {
	var first, second bytes.Buffer
	multi, err := NewMultiloggerAdapter(
		NewSlogAdapter(SlogConfig{Writer: &first}),
		nil,
		NewSlogAdapter(SlogConfig{Writer: &second}),
	)
	require.NoError(t, err)

	multi.WithFields(port.Fields{"run_id": "r1"}).Info("snapshot written", nil)

	for _, out := range []string{first.String(), second.String()} {
		assert.True(t, strings.Contains(out, "snapshot written"))
		assert.Contains(t, out, "run_id=r1")
	}
}

func TestNewMultiloggerAdapter_RequiresLogger(t *testing.T) {
	_, err := NewMultiloggerAdapter()
	require.Error(t, err)
}
