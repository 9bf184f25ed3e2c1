// Package recorder appends usage records to the line-delimited cost log.
package recorder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vattention/facio-superpowers/internal/model"
	"github.com/vattention/facio-superpowers/internal/pricing"
)

// Recorder writes one JSON line per call. There is no locking between
// processes; a single small O_APPEND write is relied on to stay intact.
type Recorder struct {
	path   string
	prices pricing.Table
	now    func() time.Time
}

// New creates a recorder appending to path
func New(path string, prices pricing.Table) *Recorder {
	if prices == nil {
		prices = pricing.DefaultTable()
	}
	return &Recorder{
		path:   path,
		prices: prices,
		now:    time.Now,
	}
}

// Path returns the log file path
func (r *Recorder) Path() string {
	return r.path
}

// Record fills defaults, prices the call, stamps it and appends it to the log
func (r *Recorder) Record(u model.Usage) (model.UsageRecord, error) {
	if u.InputTokens < 0 || u.OutputTokens < 0 {
		return model.UsageRecord{}, fmt.Errorf("token counts must be non-negative")
	}

	rec := model.UsageRecord{
		Timestamp:    r.now().UTC(),
		Model:        u.Model,
		Operation:    u.Operation,
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		FilesChanged: u.FilesChanged,
	}
	if rec.Model == "" {
		rec.Model = pricing.DefaultModel
	}
	if rec.Operation == "" {
		rec.Operation = "unknown"
	}
	if u.Module != "" {
		module := u.Module
		rec.Module = &module
	}
	rec.Cost = r.prices.CalculateCost(rec.Model, rec.InputTokens, rec.OutputTokens)

	line, err := json.Marshal(rec)
	if err != nil {
		return model.UsageRecord{}, err
	}
	line = append(line, '\n')

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return model.UsageRecord{}, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return model.UsageRecord{}, fmt.Errorf("failed to open cost log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return model.UsageRecord{}, fmt.Errorf("failed to append to cost log: %w", err)
	}
	if err := f.Close(); err != nil {
		return model.UsageRecord{}, err
	}

	return rec, nil
}
