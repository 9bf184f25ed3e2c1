// Package console prints coloured status lines for the CLIs.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Color names a line colour
type Color int

const (
	Reset Color = iota
	Green
	Yellow
	Blue
	Red
	Gray
)

// Printer writes whole lines, optionally coloured
type Printer struct {
	w      io.Writer
	colors map[Color]*color.Color
}

// New returns a printer. Colour is disabled when w is not a terminal or NO_COLOR is set.
func New(w io.Writer) *Printer {
	enabled := !color.NoColor
	if f, ok := w.(*os.File); !ok || (f != os.Stdout && f != os.Stderr) {
		enabled = false
	}
	return NewWithColor(w, enabled)
}

// NewWithColor returns a printer with colour forced on or off
func NewWithColor(w io.Writer, enabled bool) *Printer {
	p := &Printer{
		w: w,
		colors: map[Color]*color.Color{
			Green:  color.New(color.FgGreen),
			Yellow: color.New(color.FgYellow),
			Blue:   color.New(color.FgBlue),
			Red:    color.New(color.FgRed),
			Gray:   color.New(color.FgHiBlack),
		},
	}
	for _, c := range p.colors {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Writer returns the underlying writer
func (p *Printer) Writer() io.Writer {
	return p.w
}

// Line prints msg in the given colour followed by a newline
func (p *Printer) Line(c Color, msg string) {
	if cc, ok := p.colors[c]; ok {
		cc.Fprintln(p.w, msg)
		return
	}
	fmt.Fprintln(p.w, msg)
}

// Linef formats and prints a coloured line
func (p *Printer) Linef(c Color, format string, args ...any) {
	p.Line(c, fmt.Sprintf(format, args...))
}

// Plain prints an uncoloured line
func (p *Printer) Plain(msg string) {
	p.Line(Reset, msg)
}

// Plainf formats and prints an uncoloured line
func (p *Printer) Plainf(format string, args ...any) {
	p.Line(Reset, fmt.Sprintf(format, args...))
}

// Blank prints an empty line
func (p *Printer) Blank() {
	fmt.Fprintln(p.w)
}

// Section prints a blue heading
func (p *Printer) Section(msg string) {
	p.Line(Blue, msg)
}

// Success prints a green line
func (p *Printer) Success(msg string) {
	p.Line(Green, msg)
}

// Warn prints a yellow line
func (p *Printer) Warn(msg string) {
	p.Line(Yellow, msg)
}

// Error prints a red line
func (p *Printer) Error(msg string) {
	p.Line(Red, msg)
}
