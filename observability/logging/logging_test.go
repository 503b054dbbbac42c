package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupWithOptionsEmitsRenamedKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := SetupWithOptions("reserve-oracle", "test", Options{Level: "warn", Output: &buf})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("projection drift", slog.String("reserve", "DAI"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "WARN", entry["severity"])
	require.Equal(t, "projection drift", entry["message"])
	require.Equal(t, "reserve-oracle", entry["service"])
	require.Equal(t, "test", entry["env"])
	require.Equal(t, "DAI", entry["reserve"])
	require.Contains(t, entry, "timestamp")
}

func TestSetupWithOptionsWritesFileSink(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "oracle.log")
	logger, err := SetupWithOptions("reserve-oracle", "", Options{
		Output: &buf,
		File:   &FileOptions{Path: path, MaxSizeMB: 1},
	})
	require.NoError(t, err)
	logger.Info("hello")
	require.FileExists(t, path)
	require.Contains(t, buf.String(), "hello")
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)
	level, err = ParseLevel("")
	require.NoError(t, err)
	require.Equal(t, slog.LevelInfo, level)
	_, err = ParseLevel("loud")
	require.Error(t, err)
}

func TestMaskField(t *testing.T) {
	require.Equal(t, "DAI", MaskField("reserve", "DAI").Value.String())
	require.Equal(t, RedactedValue, MaskField("dsn", "postgres://x").Value.String())
	require.Equal(t, "", MaskField("secret", "").Value.String())
	require.Contains(t, RedactionAllowlist(), "report_id")
}

func TestRedactDSN(t *testing.T) {
	cases := map[string]string{
		"postgres://oracle:hunter2@db:5432/journal?sslmode=disable": "postgres://oracle:[REDACTED]@db:5432/journal?sslmode=disable",
		"host=db user=oracle password=hunter2 dbname=journal":       "host=db user=oracle password=[REDACTED] dbname=journal",
		"host=db password='two words' dbname=journal":               "host=db password=[REDACTED] dbname=journal",
		"file:journal.db?cache=shared":                              "file:journal.db?cache=shared",
		"postgres://oracle@db/journal":                              "postgres://oracle@db/journal",
		"":                                                          "",
	}
	for in, want := range cases {
		require.Equal(t, want, RedactDSN(in), in)
	}
}

func TestSetupWithOptionsMasksUnlistedStrings(t *testing.T) {
	var buf bytes.Buffer
	logger, err := SetupWithOptions("reserve-oracle", "", Options{Output: &buf})
	require.NoError(t, err)

	logger.Info("journal opened", "driver", "postgres", "dsn", "postgres://u:hunter2@h/db", "attempts", 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "journal opened", entry["message"])
	require.Equal(t, "postgres", entry["driver"])
	require.Equal(t, RedactedValue, entry["dsn"])
	require.EqualValues(t, 2, entry["attempts"])
	require.Equal(t, "reserve-oracle", entry["service"])
	require.NotContains(t, buf.String(), "hunter2")
}
