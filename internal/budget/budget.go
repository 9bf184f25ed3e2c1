// Package budget classifies spend against a budget into severity bands.
package budget

import "fmt"

// Level is a budget severity band
type Level int

const (
	LevelNone Level = iota // no budget configured
	LevelOK
	LevelCaution
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelOK:
		return "ok"
	case LevelCaution:
		return "caution"
	case LevelCritical:
		return "critical"
	}
	return "none"
}

// Thresholds are fractions of the budget at which a band starts
type Thresholds struct {
	Caution  float64 `yaml:"caution" json:"caution"`
	Critical float64 `yaml:"critical" json:"critical"`
}

// DefaultThresholds returns 70% caution and 90% critical
func DefaultThresholds() Thresholds {
	return Thresholds{Caution: 0.70, Critical: 0.90}
}

// Validate checks 0 < caution <= critical
func (t Thresholds) Validate() error {
	if t.Caution <= 0 || t.Critical <= 0 {
		return fmt.Errorf("budget thresholds must be positive")
	}
	if t.Caution > t.Critical {
		return fmt.Errorf("caution threshold %.2f is above critical threshold %.2f", t.Caution, t.Critical)
	}
	return nil
}

// Status is the result of comparing spend against a budget
type Status struct {
	Level   Level
	Percent float64
	Spent   float64
	Budget  float64
}

// Classify compares spent against limit. A zero or negative limit yields LevelNone.
func (t Thresholds) Classify(spent, limit float64) Status {
	if limit <= 0 {
		return Status{Level: LevelNone, Spent: spent}
	}

	ratio := spent / limit
	st := Status{Level: LevelOK, Percent: ratio * 100, Spent: spent, Budget: limit}
	switch {
	case ratio >= t.Critical:
		st.Level = LevelCritical
	case ratio >= t.Caution:
		st.Level = LevelCaution
	}
	return st
}
