package parser

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vattention/facio-superpowers/internal/model"
	"github.com/vattention/facio-superpowers/internal/pricing"
)

// rawRecord accepts both the logger's fields and the older hand-written
// analyzer format, which used "skill" and "cost_usd"
type rawRecord struct {
	Timestamp    string   `json:"timestamp"`
	Model        string   `json:"model"`
	Operation    string   `json:"operation"`
	Skill        string   `json:"skill"`
	InputTokens  int64    `json:"input_tokens"`
	OutputTokens int64    `json:"output_tokens"`
	Cost         *float64 `json:"cost"`
	CostUSD      *float64 `json:"cost_usd"`
	Module       *string  `json:"module"`
	FilesChanged int      `json:"files_changed"`
}

// Result is the outcome of reading a log
type Result struct {
	Records []model.UsageRecord
	Skipped int
}

// Reader parses the append-only usage log. Lines that fail to parse are
// skipped and reported through the logger.
type Reader struct {
	prices pricing.Table
	logger logrus.FieldLogger
}

// NewReader creates a reader; prices fill in cost for records that lack one
func NewReader(prices pricing.Table, logger logrus.FieldLogger) *Reader {
	if prices == nil {
		prices = pricing.DefaultTable()
	}
	return &Reader{prices: prices, logger: logger}
}

// ReadFile parses a log file. A missing file is an empty result, not an error.
func (r *Reader) ReadFile(path string) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Result{}, nil
		}
		return nil, err
	}
	defer file.Close()

	return r.Parse(file, path)
}

// maxLineBytes bounds one log line; longer lines are skipped
const maxLineBytes = 1024 * 1024

var errLineTooLong = fmt.Errorf("line exceeds %d bytes", maxLineBytes)

// Parse reads records line by line from src; name labels warnings
func (r *Reader) Parse(src io.Reader, name string) (*Result, error) {
	result := &Result{}
	br := bufio.NewReaderSize(src, 64*1024)

	lineNo := 0
	for {
		raw, tooLong, err := readLine(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return result, fmt.Errorf("read %s: %w", name, err)
		}
		lineNo++

		if tooLong {
			r.skip(result, name, lineNo, errLineTooLong)
			continue
		}
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}

		rec, err := r.parseLine(line)
		if err != nil {
			r.skip(result, name, lineNo, err)
			continue
		}
		result.Records = append(result.Records, rec)
	}
	return result, nil
}

func (r *Reader) skip(result *Result, name string, lineNo int, err error) {
	result.Skipped++
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{
			"file": name,
			"line": lineNo,
		}).WithError(err).Warn("Failed to parse log line")
	}
}

// readLine returns the next line without its terminator. Past maxLineBytes
// the rest of the line is discarded and tooLong is set. io.EOF is returned
// only when no bytes remain.
func readLine(br *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		var chunk []byte
		var isPrefix bool
		chunk, isPrefix, err = br.ReadLine()
		if err != nil {
			return line, tooLong, err
		}
		if !tooLong {
			if len(line)+len(chunk) > maxLineBytes {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if !isPrefix {
			return line, tooLong, nil
		}
	}
}

func (r *Reader) parseLine(line []byte) (model.UsageRecord, error) {
	var raw rawRecord
	if err := json.Unmarshal(line, &raw); err != nil {
		return model.UsageRecord{}, err
	}

	timestamp, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
	if err != nil {
		return model.UsageRecord{}, fmt.Errorf("invalid timestamp %q: %w", raw.Timestamp, err)
	}
	if raw.InputTokens < 0 || raw.OutputTokens < 0 {
		return model.UsageRecord{}, fmt.Errorf("negative token count")
	}

	rec := model.UsageRecord{
		Timestamp:    timestamp,
		Model:        raw.Model,
		Operation:    raw.Operation,
		InputTokens:  raw.InputTokens,
		OutputTokens: raw.OutputTokens,
		FilesChanged: raw.FilesChanged,
	}
	if rec.Model == "" {
		rec.Model = pricing.DefaultModel
	}
	if rec.Operation == "" {
		rec.Operation = raw.Skill
	}
	if rec.Operation == "" {
		rec.Operation = "unknown"
	}
	if raw.Module != nil && *raw.Module != "" {
		module := *raw.Module
		rec.Module = &module
	}

	switch {
	case raw.Cost != nil:
		rec.Cost = *raw.Cost
	case raw.CostUSD != nil:
		rec.Cost = *raw.CostUSD
	default:
		rec.Cost = r.prices.CalculateCost(rec.Model, rec.InputTokens, rec.OutputTokens)
	}

	return rec, nil
}
