package export

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Sumatoshi-tech/heropicks/pkg/aggregate"
	"github.com/Sumatoshi-tech/heropicks/pkg/persist"
)

// Format is an export file format.
type Format string

// Formats.
const (
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatHTML    Format = "html"
)

// Layout selects the CSV table shape.
type Layout string

// Layouts.
const (
	// LayoutWide has one row per day and one column per hero.
	LayoutWide Layout = "wide"
	// LayoutByDate has the total picks per day.
	LayoutByDate Layout = "by-date"
	// LayoutByHero has the total picks per hero.
	LayoutByHero Layout = "by-hero"
)

// Sentinel errors.
var (
	ErrUnknownFormat = errors.New("unknown export format")
	ErrUnknownLayout = errors.New("unknown csv layout")
	ErrNormalize     = errors.New("normalize applies to the wide layout only")
)

// Options control Write.
type Options struct {
	Format Format
	// Layout applies to CSV. Empty means wide.
	Layout Layout
	Filter Filter
	// Normalize divides each wide-layout cell by its day's total.
	Normalize bool
	Names     HeroNames
	// Top limits by-hero rows and the HTML hero chart.
	Top int
}

// ParseFormat accepts a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatParquet, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FormatFromPath guesses the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "htm" {
		ext = string(FormatHTML)
	}

	return ParseFormat(ext)
}

// ParseLayout accepts a layout name; empty means wide.
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return LayoutWide, nil
	case LayoutWide, LayoutByDate, LayoutByHero:
		return l, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLayout, s)
	}
}

// Write exports acc to path, replacing any existing file atomically.
// The JSON dump always holds every count; the filter applies to the other formats.
func Write(path string, acc *aggregate.Accumulator, opts Options) error {
	if opts.Format == FormatJSON {
		return WriteJSON(path, ToDocument(acc))
	}

	render, err := renderer(opts)
	if err != nil {
		return err
	}

	table := NewTable(acc, opts.Filter)

	err = persist.WriteAtomic(path, func(w io.Writer) error {
		return render(w, table)
	})
	if err != nil {
		return fmt.Errorf("export %s: %w", opts.Format, err)
	}

	return nil
}

func renderer(opts Options) (func(io.Writer, *Table) error, error) {
	layout, err := ParseLayout(string(opts.Layout))
	if err != nil {
		return nil, err
	}

	if opts.Normalize && (opts.Format != FormatCSV || layout != LayoutWide) {
		return nil, ErrNormalize
	}

	switch opts.Format {
	case FormatCSV:
		return func(w io.Writer, t *Table) error { return WriteCSV(w, t, layout, opts) }, nil
	case FormatParquet:
		return func(w io.Writer, t *Table) error { return WriteParquet(w, t, opts) }, nil
	case FormatHTML:
		return func(w io.Writer, t *Table) error { return WriteHTML(w, t, opts) }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
}
