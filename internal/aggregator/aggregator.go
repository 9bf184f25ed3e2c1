package aggregator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vattention/facio-superpowers/internal/model"
)

// Period names a reporting window
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// ParsePeriod accepts day/today, week, month and all
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "today":
		return PeriodDay, nil
	case "week":
		return PeriodWeek, nil
	case "month":
		return PeriodMonth, nil
	case "all", "":
		return PeriodAll, nil
	}
	return "", fmt.Errorf("unknown period %q (want today, week, month or all)", s)
}

// Options for filtering. Zero Since/Until mean unbounded.
type Options struct {
	Since time.Time // inclusive
	Until time.Time // exclusive
}

// Window returns the [start, end) range of the calendar period containing now,
// in now's location. Weeks start on Sunday.
func Window(p Period, now time.Time) Options {
	loc := now.Location()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch p {
	case PeriodDay:
		return Options{Since: dayStart, Until: dayStart.AddDate(0, 0, 1)}
	case PeriodWeek:
		weekStart := dayStart.AddDate(0, 0, -int(now.Weekday()))
		return Options{Since: weekStart, Until: weekStart.AddDate(0, 0, 7)}
	case PeriodMonth:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return Options{Since: monthStart, Until: monthStart.AddDate(0, 1, 0)}
	}
	return Options{}
}

// Contains reports whether t falls inside the window
func (o Options) Contains(t time.Time) bool {
	if !o.Since.IsZero() && t.Before(o.Since) {
		return false
	}
	if !o.Until.IsZero() && !t.Before(o.Until) {
		return false
	}
	return true
}

// FilterRecords keeps records whose timestamp is inside the window, in log order
func FilterRecords(records []model.UsageRecord, opts Options) []model.UsageRecord {
	filtered := make([]model.UsageRecord, 0, len(records))
	for _, r := range records {
		if opts.Contains(r.Timestamp) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// NewStats returns an empty aggregate with all groupings initialized
func NewStats() model.Stats {
	return model.Stats{
		ByModel:     make(map[string]*model.ModelStats),
		ByOperation: make(map[string]*model.GroupStats),
		ByModule:    make(map[string]*model.GroupStats),
		ByDay:       make(map[string]*model.GroupStats),
	}
}

// Aggregate folds records into totals and by-model/operation/module/day groupings.
// Days are keyed by the local calendar date in loc (time.Local when nil).
func Aggregate(records []model.UsageRecord, loc *time.Location) model.Stats {
	if loc == nil {
		loc = time.Local
	}
	stats := NewStats()

	for _, r := range records {
		stats.TotalCalls++
		stats.TotalInputTokens += r.InputTokens
		stats.TotalOutputTokens += r.OutputTokens
		stats.TotalCost += r.Cost

		m, ok := stats.ByModel[r.Model]
		if !ok {
			m = &model.ModelStats{}
			stats.ByModel[r.Model] = m
		}
		m.Calls++
		m.InputTokens += r.InputTokens
		m.OutputTokens += r.OutputTokens
		m.Cost += r.Cost

		addToGroup(stats.ByOperation, r.Operation, r.Cost)
		if r.Module != nil {
			addToGroup(stats.ByModule, *r.Module, r.Cost)
		}
		addToGroup(stats.ByDay, r.Timestamp.In(loc).Format("2006-01-02"), r.Cost)
	}

	return stats
}

func addToGroup(groups map[string]*model.GroupStats, key string, cost float64) {
	g, ok := groups[key]
	if !ok {
		g = &model.GroupStats{}
		groups[key] = g
	}
	g.Calls++
	g.Cost += cost
}

// Entry is one grouping row prepared for display
type Entry struct {
	Key          string  `json:"key"`
	Calls        int     `json:"calls"`
	InputTokens  int64   `json:"input_tokens,omitempty"`
	OutputTokens int64   `json:"output_tokens,omitempty"`
	Cost         float64 `json:"cost"`
}

// Tokens returns input plus output tokens
func (e Entry) Tokens() int64 {
	return e.InputTokens + e.OutputTokens
}

// ByCost sorts groups by descending cost, ties broken by key
func ByCost(groups map[string]*model.GroupStats) []Entry {
	entries := make([]Entry, 0, len(groups))
	for key, g := range groups {
		entries = append(entries, Entry{Key: key, Calls: g.Calls, Cost: g.Cost})
	}
	sortByCost(entries)
	return entries
}

// ModelsByCost sorts the by-model grouping by descending cost, ties broken by key
func ModelsByCost(models map[string]*model.ModelStats) []Entry {
	entries := make([]Entry, 0, len(models))
	for key, m := range models {
		entries = append(entries, Entry{
			Key:          key,
			Calls:        m.Calls,
			InputTokens:  m.InputTokens,
			OutputTokens: m.OutputTokens,
			Cost:         m.Cost,
		})
	}
	sortByCost(entries)
	return entries
}

// ByKey sorts groups by ascending key, used for the daily trend
func ByKey(groups map[string]*model.GroupStats) []Entry {
	entries := make([]Entry, 0, len(groups))
	for key, g := range groups {
		entries = append(entries, Entry{Key: key, Calls: g.Calls, Cost: g.Cost})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})
	return entries
}

// Top returns at most n entries
func Top(entries []Entry, n int) []Entry {
	if n >= 0 && len(entries) > n {
		return entries[:n]
	}
	return entries
}

func sortByCost(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Cost != entries[j].Cost {
			return entries[i].Cost > entries[j].Cost
		}
		return entries[i].Key < entries[j].Key
	})
}

// Daily groups records by local calendar date with token counts, ascending by date
func Daily(records []model.UsageRecord, loc *time.Location) []Entry {
	if loc == nil {
		loc = time.Local
	}

	index := make(map[string]int)
	var entries []Entry
	for _, r := range records {
		key := r.Timestamp.In(loc).Format("2006-01-02")
		i, ok := index[key]
		if !ok {
			i = len(entries)
			index[key] = i
			entries = append(entries, Entry{Key: key})
		}
		entries[i].Calls++
		entries[i].InputTokens += r.InputTokens
		entries[i].OutputTokens += r.OutputTokens
		entries[i].Cost += r.Cost
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})
	return entries
}
