// Package render formats review records for people and machines: colored
// terminal tables, indented JSON and a standalone HTML risk report.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
	"github.com/Sumatoshi-tech/clausefang/pkg/store"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatHTML  = "html"
)

// Formats lists the supported output formats.
var Formats = []string{FormatTable, FormatJSON, FormatHTML}

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// Options tunes table output.
type Options struct {
	// Color enables ANSI colors.
	Color bool
	// Redlines prints a diff of each suggested revision.
	Redlines bool
}

// ValidateFormat checks format against Formats.
func ValidateFormat(format string) error {
	if slices.Contains(Formats, format) {
		return nil
	}

	return fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFormat, format, strings.Join(Formats, ", "))
}

// Review writes rec in the given format.
func Review(w io.Writer, format string, rec *store.Record, opts Options) error {
	switch format {
	case FormatTable:
		return Table(w, rec, opts)
	case FormatJSON:
		return JSON(w, rec)
	case FormatHTML:
		return HTMLReport(w, rec)
	default:
		return ValidateFormat(format)
	}
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

type palette struct {
	high, medium, low *color.Color
	critical, muted   *color.Color
	added, removed    *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		high:     color.New(color.FgRed, color.Bold),
		medium:   color.New(color.FgYellow),
		low:      color.New(color.FgGreen),
		critical: color.New(color.FgRed),
		muted:    color.New(color.Faint),
		added:    color.New(color.FgGreen),
		removed:  color.New(color.FgRed, color.CrossedOut),
	}

	for _, c := range []*color.Color{p.high, p.medium, p.low, p.critical, p.muted, p.added, p.removed} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return p
}

func (p palette) risk(level finding.RiskLevel) string {
	switch level {
	case finding.RiskHigh:
		return p.high.Sprint(strings.ToUpper(string(level)))
	case finding.RiskMedium:
		return p.medium.Sprint(strings.ToUpper(string(level)))
	case finding.RiskLow:
		return p.low.Sprint(strings.ToUpper(string(level)))
	default:
		return string(level)
	}
}

func (p palette) severity(sev finding.Severity) string {
	if sev == finding.SeverityCritical {
		return p.critical.Sprint(string(sev))
	}

	return string(sev)
}
