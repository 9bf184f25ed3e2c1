package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vattention/facio-superpowers/internal/model"
)

// Wednesday; the week runs from Sunday 2026-10-11 to Sunday 2026-10-18
var fixedNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func execute(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd(&rootOptions{now: func() time.Time { return fixedNow }})
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--dir", dir}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func logLine(ts time.Time, modelName, op string, in, out int64, cost float64) string {
	return `{"timestamp":"` + ts.Format(time.RFC3339) + `","model":"` + modelName + `","operation":"` + op +
		`","input_tokens":` + itoa(in) + `,"output_tokens":` + itoa(out) + `,"cost":` + ftoa(cost) + `,"module":null,"files_changed":0}`
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func ftoa(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

func writeLog(t *testing.T, dir string, lines ...string) {
	t.Helper()
	path := filepath.Join(dir, ".facio-superpowers", "cost-log.jsonl")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
}

func weekLog(t *testing.T, dir string) {
	writeLog(t, dir,
		logLine(time.Date(2026, 10, 10, 23, 59, 0, 0, time.UTC), "opus", "old", 100, 100, 1),
		logLine(time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC), "sonnet", "doc_update", 1000, 500, 0.0105),
		logLine(time.Date(2026, 10, 13, 9, 0, 0, 0, time.UTC), "sonnet", "doc_update", 1000, 500, 0.0105),
		logLine(time.Date(2026, 10, 14, 11, 0, 0, 0, time.UTC), "haiku", "review", 2000, 1000, 0.002),
		logLine(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), "opus", "next", 100, 100, 1),
	)
}

func TestNoArgsPrintsUsage(t *testing.T) {
	out, _, err := execute(t, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "facio-costs export <path> [period]")
}

func TestExport_Week(t *testing.T) {
	dir := t.TempDir()
	weekLog(t, dir)
	path := filepath.Join(dir, "out", "report.json")

	out, _, err := execute(t, dir, "export", path, "week")
	require.NoError(t, err)
	assert.Contains(t, out, "Report exported to")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var report model.Report
	require.NoError(t, json.Unmarshal(data, &report))

	assert.Equal(t, "week", report.Period)
	assert.Len(t, report.Logs, 3)
	assert.Equal(t, 3, report.Stats.TotalCalls)
	assert.Equal(t, 2, report.Stats.ByOperation["doc_update"].Calls)
}

func TestExport_DefaultsToMonthAndEmptyLogs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")

	_, _, err := execute(t, dir, "export", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"period": "month"`)
	assert.Contains(t, string(data), `"logs": []`)
}

func TestExport_MarkdownWithSince(t *testing.T) {
	dir := t.TempDir()
	weekLog(t, dir)
	path := filepath.Join(dir, "report.md")

	_, _, err := execute(t, dir, "export", path, "all", "--format", "markdown", "--since", "20261013", "--until", "20261014")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "| Calls | 2 |")
}

func TestExport_Errors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := execute(t, dir, "export")
	assert.ErrorContains(t, err, "missing export path")

	_, _, err = execute(t, dir, "export", "x.json", "year")
	assert.ErrorContains(t, err, "unknown period")

	_, _, err = execute(t, dir, "export", "x.json", "--format", "csv")
	assert.ErrorContains(t, err, "unknown format")
}

func TestReport_WeekWithBudget(t *testing.T) {
	dir := t.TempDir()
	weekLog(t, dir)

	out, _, err := execute(t, dir, "week", "0.03")
	require.NoError(t, err)

	assert.Contains(t, out, "This week cost report")
	assert.Contains(t, out, "Calls: 3")
	assert.Contains(t, out, "Total cost: $0.0230")
	assert.Contains(t, out, "Budget used: ⚠️ 76.7%")
}

func TestReport_InvalidBudget(t *testing.T) {
	_, _, err := execute(t, t.TempDir(), "today", "lots")
	assert.ErrorContains(t, err, "invalid budget")
}

func TestReport_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir,
		logLine(time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC), "sonnet", "a", 10, 10, 0.1),
		"{not json",
		"",
		logLine(time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC), "sonnet", "b", 10, 10, 0.1),
	)

	out, stderr, err := execute(t, dir, "today")
	require.NoError(t, err)
	assert.Contains(t, out, "Calls: 2")
	assert.Contains(t, stderr, "Skipped malformed usage log lines")
}

func TestLog_AppendsRecord(t *testing.T) {
	dir := t.TempDir()

	out, _, err := execute(t, dir, "log")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded: $0.0105")

	out, _, err = execute(t, dir, "log", "opus", "review", "2000", "1000", "--module", "billing", "--files-changed", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded: $0.1050")

	data, err := os.ReadFile(filepath.Join(dir, ".facio-superpowers", "cost-log.jsonl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first, second model.UsageRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "sonnet", first.Model)
	assert.Equal(t, "test", first.Operation)
	assert.Nil(t, first.Module)
	assert.Equal(t, "billing", second.ModuleName())
	assert.Equal(t, 3, second.FilesChanged)
}

func TestLog_InvalidTokens(t *testing.T) {
	for _, args := range [][]string{
		{"log", "sonnet", "op", "--", "-5"},
		{"log", "sonnet", "op", "abc"},
		{"log", "sonnet", "op", "10", "1.5"},
	} {
		dir := t.TempDir()
		_, _, err := execute(t, dir, args...)
		assert.ErrorContains(t, err, "invalid token count", args)
		assert.NoFileExists(t, filepath.Join(dir, ".facio-superpowers", "cost-log.jsonl"), args)
	}
}

func TestAnalyze_MonthReport(t *testing.T) {
	dir := t.TempDir()
	weekLog(t, dir)

	out, _, err := execute(t, dir, "analyze", "--month", "--report")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 5 records")
	assert.Contains(t, out, "This month cost summary")
	assert.Contains(t, out, "Budget:")

	report := filepath.Join(dir, ".facio-superpowers", "reports", "cost-report-month-2026-10-14.md")
	assert.FileExists(t, report)
}

func TestAnalyze_EmptyLog(t *testing.T) {
	out, _, err := execute(t, t.TempDir(), "analyze")
	require.NoError(t, err)
	assert.Contains(t, out, "No cost records found")
}

func TestDaily_JSON(t *testing.T) {
	dir := t.TempDir()
	weekLog(t, dir)

	out, _, err := execute(t, dir, "daily", "week", "--json")
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "2026-10-11", rows[0]["key"])
}

func TestConfig_SetAndShow(t *testing.T) {
	dir := t.TempDir()

	_, _, err := execute(t, dir, "config", "set", "budget.monthly", "80")
	require.NoError(t, err)
	_, _, err = execute(t, dir, "config", "set", "api_key", "fcs_0123456789_secretvalue")
	require.NoError(t, err)
	_, _, err = execute(t, dir, "config", "set", "server", "http://localhost:8080")
	require.NoError(t, err)

	out, _, err := execute(t, dir, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Monthly budget: $80.00")
	assert.Contains(t, out, "API Key: fcs_012345...alue")
	assert.Contains(t, out, "Client ID: ")

	_, _, err = execute(t, dir, "config", "set", "bogus", "1")
	assert.Error(t, err)
}

func TestSyncService_RejectsNonPositiveInterval(t *testing.T) {
	for _, interval := range []string{"0s", "-1m"} {
		for _, action := range []string{"install", "run"} {
			_, _, err := execute(t, t.TempDir(), "sync", action, "--interval="+interval)
			assert.ErrorContains(t, err, "invalid interval", action+" "+interval)
		}
	}
}

func TestSync_RequiresConfig(t *testing.T) {
	_, _, err := execute(t, t.TempDir(), "sync")
	assert.ErrorIs(t, err, errNotConfigured)

	_, _, err = execute(t, t.TempDir(), "team")
	assert.ErrorIs(t, err, errNotConfigured)
}
