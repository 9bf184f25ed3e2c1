package output

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/vattention/facio-superpowers/internal/aggregator"
	"github.com/vattention/facio-superpowers/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var reportTemplate = template.Must(
	template.New("report.md.tmpl").Funcs(template.FuncMap{
		"formatNumber": FormatNumber,
		"formatCost":   FormatCost,
		"modelsByCost": aggregator.ModelsByCost,
		"byCost":       aggregator.ByCost,
		"byKey":        aggregator.ByKey,
		"top":          aggregator.Top,
	}).ParseFS(templateFS, "templates/report.md.tmpl"),
)

// MarkdownReport is the data rendered into a markdown report
type MarkdownReport struct {
	Period      string
	GeneratedAt time.Time
	Stats       model.Stats
}

// RenderMarkdown writes the markdown report
func RenderMarkdown(w io.Writer, r MarkdownReport) error {
	return reportTemplate.Execute(w, r)
}

// ReportFileName returns cost-report-<period>-<YYYY-MM-DD>.md
func ReportFileName(period string, now time.Time) string {
	return fmt.Sprintf("cost-report-%s-%s.md", period, now.Format("2006-01-02"))
}

// WriteMarkdown renders the report to path, creating parent directories
func WriteMarkdown(path string, r MarkdownReport) error {
	return writeFile(path, func(w io.Writer) error {
		return RenderMarkdown(w, r)
	})
}

// WriteJSON writes v as 2-space indented JSON to path, creating parent directories
func WriteJSON(path string, v any) error {
	return writeFile(path, func(w io.Writer) error {
		return PrintJSON(w, v)
	})
}

// PrintJSON writes v as 2-space indented JSON
func PrintJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeFile(path string, render func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
