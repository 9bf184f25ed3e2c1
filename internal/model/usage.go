package model

import "time"

// UsageRecord is one logged AI invocation, one JSON object per log line
type UsageRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	Model        string    `json:"model"`
	Operation    string    `json:"operation"`
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
	Cost         float64   `json:"cost"`
	Module       *string   `json:"module"`
	FilesChanged int       `json:"files_changed"`
}

// ModuleName returns the module label or "" when the record has none
func (r UsageRecord) ModuleName() string {
	if r.Module == nil {
		return ""
	}
	return *r.Module
}

// Usage is the caller-supplied part of a record; zero values mean "use the default"
type Usage struct {
	Model        string
	Operation    string
	InputTokens  int64
	OutputTokens int64
	Module       string
	FilesChanged int
}

// ModelPricing contains pricing for a model in USD per million tokens
type ModelPricing struct {
	InputPerMillion  float64 `yaml:"input" json:"input"`
	OutputPerMillion float64 `yaml:"output" json:"output"`
}

// ModelStats accumulates calls, tokens and cost for one model
type ModelStats struct {
	Calls        int     `json:"calls"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	Cost         float64 `json:"cost"`
}

// GroupStats accumulates calls and cost for one grouping key
type GroupStats struct {
	Calls int     `json:"calls"`
	Cost  float64 `json:"cost"`
}

// Stats is the aggregate of a filtered record set. It is recomputed on every report.
type Stats struct {
	TotalCalls        int                    `json:"total_calls"`
	TotalInputTokens  int64                  `json:"total_input_tokens"`
	TotalOutputTokens int64                  `json:"total_output_tokens"`
	TotalCost         float64                `json:"total_cost"`
	ByModel           map[string]*ModelStats `json:"by_model"`
	ByOperation       map[string]*GroupStats `json:"by_operation"`
	ByModule          map[string]*GroupStats `json:"by_module"`
	ByDay             map[string]*GroupStats `json:"by_day"`
}

// TotalTokens returns input plus output tokens
func (s Stats) TotalTokens() int64 {
	return s.TotalInputTokens + s.TotalOutputTokens
}

// Report is the JSON export document
type Report struct {
	Period      string        `json:"period"`
	GeneratedAt time.Time     `json:"generated_at"`
	Stats       Stats         `json:"stats"`
	Logs        []UsageRecord `json:"logs"`
}
