package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_WritesToFileAndConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "duet.log")
	var console bytes.Buffer

	logger, closer, err := New(Options{FilePath: path, Level: "info", Console: &console})
	require.NoError(t, err)

	logger.Info().Str("role", "lead").Msg("Logged in")
	logger.Debug().Msg("hidden at info level")
	require.NoError(t, closer.Close())

	require.Contains(t, console.String(), "Logged in")
	require.NotContains(t, console.String(), "hidden at info level")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "Logged in", entry["message"])
	require.Equal(t, "lead", entry["role"])
	require.Equal(t, "info", entry["level"])
	require.NotEmpty(t, entry["time"])
}

func TestNew_ConsoleOnly(t *testing.T) {
	var console bytes.Buffer
	logger, closer, err := New(Options{Console: &console})
	require.NoError(t, err)
	require.NoError(t, closer.Close())

	logger.Warn().Msg("console only")
	require.Contains(t, console.String(), "console only")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	require.Error(t, err)
}
