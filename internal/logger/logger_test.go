package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func readLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]interface{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry))
		out = append(out, entry)
	}
	return out
}

func TestZapLogger_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "precedent.log")
	l := NewZapLogger(Options{FilePath: path, Level: "info", MaxSizeMB: 1})

	l.Debug("SEARCH", "hidden at info level", nil)
	l.Info("SEARCH", "query applied", map[string]interface{}{"results": 3})
	_ = l.Sync()

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "query applied", lines[0]["message"])
	assert.Equal(t, "SEARCH", lines[0]["module"])
	assert.Contains(t, lines[0], "timestamp")
}

func TestZapLogger_ErrorAttachesError(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewFromZap(zap.New(core))

	l.Error("UPLOAD", "ingest failed", map[string]interface{}{"error": errors.New("boom")})

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "UPLOAD", fields["module"])
	assert.Equal(t, "boom", fields["error"])
}

func TestNewZapLogger_NoSinksIsNop(t *testing.T) {
	l := NewZapLogger(Options{})
	assert.NotPanics(t, func() {
		l.Info("X", "nothing", nil)
		_ = l.Sync()
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "debug", parseLevel("debug").String())
	assert.Equal(t, "warn", parseLevel("warn").String())
	assert.Equal(t, "info", parseLevel("bogus").String())
}
