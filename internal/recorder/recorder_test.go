package recorder

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vattention/facio-superpowers/internal/logging"
	"github.com/vattention/facio-superpowers/internal/model"
	"github.com/vattention/facio-superpowers/internal/parser"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", ".facio-superpowers", "cost-log.jsonl")
	r := New(path, nil)
	r.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	return r
}

func TestRecord_DefaultsAndCost(t *testing.T) {
	r := newTestRecorder(t)

	rec, err := r.Record(model.Usage{})
	require.NoError(t, err)

	assert.Equal(t, "sonnet", rec.Model)
	assert.Equal(t, "unknown", rec.Operation)
	assert.Zero(t, rec.InputTokens)
	assert.Zero(t, rec.Cost)
	assert.Nil(t, rec.Module)
	assert.Equal(t, time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC), rec.Timestamp)
}

func TestRecord_AppendsOneLinePerCall(t *testing.T) {
	r := newTestRecorder(t)

	_, err := r.Record(model.Usage{Model: "opus", Operation: "review", InputTokens: 1_000_000, Module: "billing", FilesChanged: 3})
	require.NoError(t, err)
	_, err = r.Record(model.Usage{Model: "haiku", Operation: "lint", OutputTokens: 1_000_000})
	require.NoError(t, err)

	data, err := os.ReadFile(r.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "2026-03-04T05:06:07Z", first["timestamp"])
	assert.Equal(t, "opus", first["model"])
	assert.Equal(t, 15.0, first["cost"])
	assert.Equal(t, "billing", first["module"])
	assert.EqualValues(t, 3, first["files_changed"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Nil(t, second["module"])
	assert.Equal(t, 1.25, second["cost"])
}

func TestRecord_RoundTripsThroughParser(t *testing.T) {
	r := newTestRecorder(t)
	written, err := r.Record(model.Usage{Model: "sonnet", Operation: "prepare-context", InputTokens: 15234, OutputTokens: 3421, Module: "account"})
	require.NoError(t, err)

	res, err := parser.NewReader(nil, logging.Discard()).ReadFile(r.Path())
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, written, res.Records[0])
}

func TestRecord_RejectsNegativeTokens(t *testing.T) {
	r := newTestRecorder(t)
	_, err := r.Record(model.Usage{InputTokens: -1})
	require.Error(t, err)

	_, statErr := os.Stat(r.Path())
	assert.True(t, os.IsNotExist(statErr))
}
