package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fivetwenty-io/kintone/internal/constants"
	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

func TestReadInputFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	jsonFile := filepath.Join(dir, "updates.json")
	require.NoError(t, os.WriteFile(jsonFile, []byte(`[{"id":"1","action":"Start","revision":"2"}]`), 0o600))

	var updates []kintone.RecordStatusUpdate
	require.NoError(t, readInputFile(jsonFile, &updates))
	assert.Equal(t, []kintone.RecordStatusUpdate{{ID: "1", Action: "Start", Revision: "2"}}, updates)

	yamlFile := filepath.Join(dir, "entries.yml")
	require.NoError(t, os.WriteFile(yamlFile, []byte("- updateKey:\n    field: code\n    value: A-1\n  record:\n    Title:\n      value: x\n"), 0o600))

	var entries []kintone.UpdateRecordEntry
	require.NoError(t, readInputFile(yamlFile, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, &kintone.UpdateKey{Field: "code", Value: "A-1"}, entries[0].UpdateKey)
	assert.Equal(t, "x", entries[0].Record.StringValue("Title"))

	require.ErrorIs(t, readInputFile("", &entries), constants.ErrInvalidFilePath)
	require.ErrorIs(t, readInputFile(filepath.Join(dir, "x.txt"), &entries), constants.ErrUnsupportedFileFormat)
	require.Error(t, readInputFile(filepath.Join(dir, "missing.json"), &entries))
}

func TestRecordColumns(t *testing.T) {
	t.Parallel()

	records := []kintone.Record{
		{"$id": {Value: "2"}, "Title": {Value: "b"}},
		{"$id": {Value: "1"}, "Amount": {Value: "3"}},
	}

	assert.Equal(t, []string{"$id", "Amount", "Title"}, recordColumns(records, nil))
	assert.Equal(t, []string{"Title"}, recordColumns(records, []string{"Title"}))
}

func TestCellValue(t *testing.T) {
	t.Parallel()

	assert.Empty(t, cellValue(nil))
	assert.Equal(t, "a", cellValue("a"))
	assert.Equal(t, "12", cellValue(json.Number("12")))
	assert.Equal(t, "true", cellValue(true))
	assert.Equal(t, `["x","y"]`, cellValue([]interface{}{"x", "y"}))
	assert.Equal(t, `{"code":"bob"}`, cellValue(map[string]interface{}{"code": "bob"}))
}

func TestRenderRecords(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	err := renderRecords(&out, []kintone.Record{{"$id": {Value: "1"}, "Title": {Value: "hello"}}}, nil)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "hello")
	assert.Contains(t, strings.ToUpper(out.String()), "TITLE")
}

func TestSplitTokens(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b", "c"}, splitTokens([]string{"a, b", "c", ""}))
	assert.Nil(t, splitTokens(nil))
}

func TestZapLogger(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(core))

	logger.Debug("page fetched", map[string]interface{}{"records": 500})
	logger.Warn("persist failed", map[string]interface{}{"error": "disk full"})

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "page fetched", entries[0].Message)
	assert.Equal(t, int64(500), entries[0].ContextMap()["records"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "disk full", entries[1].ContextMap()["error"])
}

func TestBuildClientConfig(t *testing.T) {
	t.Parallel()

	config := &Config{
		BaseURL:           "https://example.cybozu.com",
		OAuthRefreshToken: "refresh",
		GuestSpaceID:      "3",
		RateLimit:         true,
	}

	clientConfig := buildClientConfig(config, nil, false)
	assert.Equal(t, "3", clientConfig.GuestSpaceID)
	assert.NotNil(t, clientConfig.RateLimiter)
	assert.NotNil(t, clientConfig.TokenPersister)
	assert.NotNil(t, clientConfig.Interceptors)

	config.RateLimit = false
	config.OAuthRefreshToken = ""
	clientConfig = buildClientConfig(config, nil, false)
	assert.Nil(t, clientConfig.RateLimiter)
	assert.Nil(t, clientConfig.TokenPersister)
}

func TestBuildCache(t *testing.T) {
	t.Parallel()

	cache, err := buildCache(&Config{Cache: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &kintone.MemoryCache{}, cache)

	cache, err = buildCache(&Config{})
	require.NoError(t, err)
	assert.IsType(t, &kintone.NoOpCache{}, cache)

	_, err = buildCache(&Config{Cache: "redis"})
	require.ErrorIs(t, err, kintone.ErrUnsupportedCacheType)
}
