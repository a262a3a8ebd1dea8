package filestorage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"oikotie-parser-service/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFilenameWithTimestamp(t *testing.T) {
	ts := time.Date(2024, time.March, 5, 7, 8, 9, 0, time.Local)
	assert.Equal(t, "data-2024-03-05_07-08-09.json", FormatFilenameWithTimestamp("data", ".json", ts))
}

func TestSave_WritesTimestampedSnapshot(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewSnapshotWriterAdapter(dir, "data", ".json")
	require.NoError(t, err)
	writer.now = func() time.Time { return time.Date(2025, time.December, 31, 23, 59, 58, 0, time.Local) }

	listings := []domain.Listing{
		domain.Listing(`{"id":1,"address":"Mäkelänkatu 5 <A>","price":"250 000 €"}`),
		domain.Listing(`{"id":2,"rooms":[1,2]}`),
	}

	path, err := writer.Save(context.Background(), listings)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data-2025-12-31_23-59-58.json"), path)
	assert.Regexp(t, regexp.MustCompile(`^data-\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}\.json$`), filepath.Base(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(raw)
	assert.Contains(t, content, "Mäkelänkatu 5 <A>")
	assert.Contains(t, content, "250 000 €")
	assert.Contains(t, content, "\n    {\n        \"id\": 1,")

	var roundTrip []json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &roundTrip))
	require.Len(t, roundTrip, len(listings))
	for i := range listings {
		assert.JSONEq(t, string(listings[i]), string(roundTrip[i]))
	}
}

func TestSave_EmptyListingsWriteEmptyArray(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewSnapshotWriterAdapter(dir, "data", ".json")
	require.NoError(t, err)

	path, err := writer.Save(context.Background(), nil)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestSave_MissingDirectoryFails(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist")
	writer, err := NewSnapshotWriterAdapter(dir, "data", ".json")
	require.NoError(t, err)

	_, err = writer.Save(context.Background(), []domain.Listing{domain.Listing(`{}`)})
	require.Error(t, err)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSave_SameSecondOverwrites(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewSnapshotWriterAdapter(dir, "data", ".json")
	require.NoError(t, err)
	fixed := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.Local)
	writer.now = func() time.Time { return fixed }

	first, err := writer.Save(context.Background(), []domain.Listing{domain.Listing(`{"run":1}`)})
	require.NoError(t, err)
	second, err := writer.Save(context.Background(), []domain.Listing{domain.Listing(`{"run":2}`)})
	require.NoError(t, err)
	require.Equal(t, first, second)

	raw, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"run":2}]`, string(raw))
}

func TestSave_UnescapesUpstreamStrings(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewSnapshotWriterAdapter(dir, "data", ".json")
	require.NoError(t, err)

	listings := []domain.Listing{
		domain.Listing(`{"zeta":"J\u00e4rvenp\u00e4\u00e4","url":"https:\/\/x","tag":"\u003cb\u003e","price":1.50,"extra":{"b":[true,null],"a":"\u20ac"}}`),
	}

	path, err := writer.Save(context.Background(), listings)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(raw)
	assert.Contains(t, content, `"zeta": "Järvenpää"`)
	assert.Contains(t, content, `"url": "https://x"`)
	assert.Contains(t, content, `"tag": "<b>"`)
	assert.Contains(t, content, `"price": 1.50`)
	assert.Contains(t, content, `"a": "€"`)
	assert.NotContains(t, content, `\u`)
	assert.NotContains(t, content, `\/`)

	// порядок ключей как в ответе API
	assert.Less(t, strings.Index(content, `"zeta"`), strings.Index(content, `"url"`))
	assert.Less(t, strings.Index(content, `"b"`), strings.Index(content, `"a"`))
}

func TestLiteralJSON_RejectsInvalidCard(t *testing.T) {
	for _, raw := range []string{``, `{"a":`, `{"a":1} {"b":2}`} {
		_, err := literalJSON([]byte(raw))
		assert.Error(t, err, "input %q", raw)
	}
}

func TestSave_InvalidCardFailsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewSnapshotWriterAdapter(dir, "data", ".json")
	require.NoError(t, err)

	_, err = writer.Save(context.Background(), []domain.Listing{domain.Listing(`{"id":`)})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
