package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newAppLogger(&buf, LogLevelInfo, nil)

	logger.Debug("hidden", "key", "value")
	assert.Empty(t, buf.String())

	logger.Info("granted hierarchy", "hierarchy", "[Store]", "access", "custom")
	line := buf.String()
	assert.Contains(t, line, "INFO: granted hierarchy")
	assert.Contains(t, line, "hierarchy=[Store]")
	assert.Contains(t, line, "access=custom")

	buf.Reset()
	logger.With("role", "Analyst").Warn("refresh failed", "error", "file missing")
	assert.Contains(t, buf.String(), "role=Analyst")
	assert.Contains(t, buf.String(), `error="file missing"`)
	assert.False(t, logger.IsDebug())
}

func TestAuditLogger(t *testing.T) {
	var buf bytes.Buffer
	audit := NewAuditLoggerWriter(&buf)

	audit.LogGrant("California manager", "member", "[Store].[USA].[CA]", "all")
	audit.LogDecision("", "cube", "[Sales]", "none", "cached", true)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `op=grant role="California manager" kind=member element=[Store].[USA].[CA] access=all`)
	assert.Contains(t, lines[1], "op=decision kind=cube element=[Sales] access=none cached=true")
	assert.NotContains(t, lines[1], "role=")
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "plain", formatValue("plain"))
	assert.Equal(t, `"two words"`, formatValue("two words"))
	assert.Equal(t, `"a=b"`, formatValue("a=b"))
	assert.Equal(t, `"say \"hi\""`, formatValue(`say "hi"`))
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, LogLevelDebug, level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestInitialize(t *testing.T) {
	oldApp, oldAudit := App, Audit
	t.Cleanup(func() { App, Audit = oldApp, oldAudit })

	dir := t.TempDir()
	auditPath := filepath.Join(dir, "audit.log")
	err := Initialize(Config{AuditLogPath: auditPath, AppLogPath: filepath.Join(dir, "app.log"), Level: LogLevelDebug})
	require.NoError(t, err)
	assert.True(t, App.IsDebug())

	Audit.LogGrant("r", "schema", "FoodMart", "all")
	require.NoError(t, App.Close())

	data, err := os.ReadFile(auditPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "element=FoodMart")

	assert.Error(t, Initialize(Config{Level: "loud"}))
}

func TestRotatingWriter(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/var/log/olapsec/audit.log"
	line := []byte("0123456789abcdef\n")

	w, err := NewRotatingWriter(fs, path, 64, 2)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, err := w.Write(line)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	info, err := fs.Stat(path)
	require.NoError(t, err)
	assert.LessOrEqual(t, info.Size(), int64(64))

	for _, backup := range []string{path + ".1", path + ".2"} {
		data, err := afero.ReadFile(fs, backup)
		require.NoError(t, err, backup)
		assert.Len(t, data, 3*len(line))
	}
	exists, err := afero.Exists(fs, path+".3")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = w.Write(line)
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestRotatingWriterWithoutBackups(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/app.log", make([]byte, 100), 0644))

	w, err := NewRotatingWriter(fs, "/app.log", 64, 0)
	require.NoError(t, err)
	defer w.Close()

	info, err := fs.Stat("/app.log")
	require.NoError(t, err)
	assert.Zero(t, info.Size(), "an oversized file is rotated on open")

	_, err = w.Write([]byte("hello\n"))
	require.NoError(t, err)
	data, err := afero.ReadFile(fs, "/app.log")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	exists, _ := afero.Exists(fs, "/app.log.1")
	assert.False(t, exists)
}
