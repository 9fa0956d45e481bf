package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugawarayuuta/sonnet"
)

func restoreLogger(t *testing.T) {
	t.Helper()
	saved := Logger
	level := zerolog.GlobalLevel()
	t.Cleanup(func() {
		Logger = saved
		zerolog.SetGlobalLevel(level)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   Level
		want zerolog.Level
	}{
		{DebugLevel, zerolog.DebugLevel},
		{InfoLevel, zerolog.InfoLevel},
		{WarnLevel, zerolog.WarnLevel},
		{ErrorLevel, zerolog.ErrorLevel},
		{"verbose", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestInitJSON(t *testing.T) {
	restoreLogger(t)

	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})

	Logger.Debug().Msg("hidden")
	Logger.Info().Msg("visible")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, sonnet.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "visible", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestInitConsole(t *testing.T) {
	restoreLogger(t)

	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, Output: &buf})

	Logger.Debug().Msg("console line")

	assert.Contains(t, buf.String(), "console line")
	assert.False(t, strings.HasPrefix(buf.String(), "{"))
}

func TestInitFile(t *testing.T) {
	restoreLogger(t)

	path := filepath.Join(t.TempDir(), "tracething.log")
	Init(Config{Level: InfoLevel, File: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})

	Logger.Warn().Msg("to the file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, sonnet.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "to the file", entry["message"])
}

func TestWithQueryID(t *testing.T) {
	restoreLogger(t)

	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, JSONOutput: true, Output: &buf})

	logger := WithQueryID("dns", "q-123")
	logger.Info().Msg("answered")

	var entry map[string]interface{}
	require.NoError(t, sonnet.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "dns", entry["component"])
	assert.Equal(t, "q-123", entry["query_id"])
}

func TestWithComponent(t *testing.T) {
	restoreLogger(t)

	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, JSONOutput: true, Output: &buf})

	logger := WithComponent("sources")
	logger.Error().Msg("fetch failed")

	assert.Contains(t, buf.String(), `"component":"sources"`)
	assert.Contains(t, buf.String(), `"level":"error"`)
}
