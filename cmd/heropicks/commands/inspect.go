package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/heropicks/pkg/aggregate"
	"github.com/Sumatoshi-tech/heropicks/pkg/checkpoint"
	"github.com/Sumatoshi-tech/heropicks/pkg/export"
	"github.com/Sumatoshi-tech/heropicks/pkg/safeconv"
)

// Inspect output formats.
const (
	inspectText = "text"
	inspectYAML = "yaml"
	inspectJSON = "json"
)

const defaultInspectTop = 10

// ErrUnknownInspectFormat is returned for an unsupported --format.
var ErrUnknownInspectFormat = errors.New("unknown inspect format")

type containerInfo struct {
	Version      uint16 `json:"version"       yaml:"version"`
	Compressed   bool   `json:"compressed"    yaml:"compressed"`
	PayloadBytes uint64 `json:"payload_bytes" yaml:"payload_bytes"`
	FileBytes    uint64 `json:"file_bytes"    yaml:"file_bytes"`
	Checksum     string `json:"checksum"      yaml:"checksum"`
}

type metaInfo struct {
	Rows      uint64    `json:"rows"       yaml:"rows"`
	Offset    uint64    `json:"offset"     yaml:"offset"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Source    string    `json:"source"     yaml:"source"`
	Final     bool      `json:"final"      yaml:"final"`
	DaysSeen  int       `json:"days_seen"  yaml:"days_seen"`
}

type heroInfo struct {
	Hero  uint32  `json:"hero"  yaml:"hero"`
	Name  string  `json:"name"  yaml:"name"`
	Picks uint64  `json:"picks" yaml:"picks"`
	Share float64 `json:"share" yaml:"share"`
}

// inspectReport is what inspect prints, in any format.
type inspectReport struct {
	Path      string         `json:"path"                yaml:"path"`
	Kind      string         `json:"kind"                yaml:"kind"`
	Container *containerInfo `json:"container,omitempty" yaml:"container,omitempty"`
	Meta      *metaInfo      `json:"meta,omitempty"      yaml:"meta,omitempty"`
	Days      int            `json:"days"                yaml:"days"`
	FirstDay  string         `json:"first_day,omitempty" yaml:"first_day,omitempty"`
	LastDay   string         `json:"last_day,omitempty"  yaml:"last_day,omitempty"`
	Cells     int            `json:"cells"               yaml:"cells"`
	Picks     uint64         `json:"picks"               yaml:"picks"`
	TopHeroes []heroInfo     `json:"top_heroes"          yaml:"top_heroes"`
}

func newInspectCommand(a *app) *cobra.Command {
	var (
		format    string
		top       int
		heroNames string
	)

	cmd := &cobra.Command{
		Use:   "inspect <checkpoint|dump.json>",
		Short: "Show checkpoint metadata and totals",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("hero-names") {
				heroNames = a.cfg.Export.HeroNames
			}

			return runInspect(cmd, args[0], format, top, heroNames)
		},
	}

	cmd.Flags().StringVar(&format, "format", inspectText, "Output format: text, yaml, json")
	cmd.Flags().IntVar(&top, "top", defaultInspectTop, "Number of most picked heroes to list (0 lists all)")
	cmd.Flags().StringVar(&heroNames, "hero-names", "", "OpenDota /api/heroes JSON used to name heroes")

	return cmd
}

func runInspect(cmd *cobra.Command, path, format string, top int, heroNames string) error {
	format = strings.ToLower(format)

	switch format {
	case inspectText, inspectYAML, inspectJSON:
	default:
		return usageError(fmt.Errorf("%w: %q", ErrUnknownInspectFormat, format))
	}

	var (
		names export.HeroNames
		err   error
	)

	if heroNames != "" {
		names, err = export.LoadHeroNames(heroNames)
		if err != nil {
			return err
		}
	}

	report, err := buildInspectReport(path, top, names)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	switch format {
	case inspectYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)

		err = enc.Encode(report)
		if err == nil {
			err = enc.Close()
		}
	case inspectJSON:
		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(report)
	default:
		err = writeInspectText(out, report)
	}

	if err != nil {
		return fmt.Errorf("print report: %w", err)
	}

	return nil
}

func buildInspectReport(path string, top int, names export.HeroNames) (inspectReport, error) {
	report := inspectReport{Path: path}

	meta, header, err := checkpoint.Inspect(path)

	switch {
	case err == nil:
		report.Kind = inputCheckpoint
		report.Container = &containerInfo{
			Version:      header.Version,
			Compressed:   header.Compressed(),
			PayloadBytes: header.PayloadSize,
			FileBytes:    header.FileSize(),
			Checksum:     fmt.Sprintf("%016x", header.Checksum),
		}
		report.Meta = &metaInfo{
			Rows:      meta.Rows,
			Offset:    meta.Offset,
			CreatedAt: meta.CreatedAt.UTC(),
			Source:    meta.Source,
			Final:     meta.Final,
			DaysSeen:  meta.DaysSeen,
		}
	case !errors.Is(err, checkpoint.ErrBadMagic):
		return report, err
	}

	acc, kind, err := loadAggregate(path)
	if err != nil {
		return report, err
	}

	report.Kind = kind

	days := acc.Days()
	report.Days = len(days)
	report.Cells = acc.Len()

	if len(days) > 0 {
		report.FirstDay = days[0].String()
		report.LastDay = days[len(days)-1].String()
	}

	totals := acc.Totals()
	report.Picks = totals.Picks
	report.TopHeroes = heroInfos(totals, top, names)

	return report, nil
}

func heroInfos(totals aggregate.Totals, top int, names export.HeroNames) []heroInfo {
	ranked := totals.Top(top)
	out := make([]heroInfo, 0, len(ranked))

	for _, ht := range ranked {
		info := heroInfo{Hero: uint32(ht.Hero), Name: names.Name(ht.Hero), Picks: ht.Count}
		if totals.Picks > 0 {
			info.Share = float64(ht.Count) / float64(totals.Picks)
		}

		out = append(out, info)
	}

	return out
}

func writeInspectText(w io.Writer, r inspectReport) error {
	summary := table.NewWriter()
	summary.SetStyle(table.StyleLight)
	summary.SetTitle(r.Path)

	summary.AppendRow(table.Row{"kind", r.Kind})

	if c := r.Container; c != nil {
		compression := "none"
		if c.Compressed {
			compression = "lz4"
		}

		summary.AppendRows([]table.Row{
			{"version", c.Version},
			{"compression", compression},
			{"size", fmt.Sprintf("%s (payload %s)", humanize.IBytes(c.FileBytes), humanize.IBytes(c.PayloadBytes))},
			{"checksum", c.Checksum},
		})
	}

	if m := r.Meta; m != nil {
		summary.AppendRows([]table.Row{
			{"source", m.Source},
			{"created", fmt.Sprintf("%s (%s)", m.CreatedAt.Format(time.RFC3339), humanize.Time(m.CreatedAt))},
			{"final", m.Final},
			{"rows", humanize.Comma(safeconv.Int64(m.Rows))},
			{"offset", humanize.Comma(safeconv.Int64(m.Offset))},
			{"days seen", m.DaysSeen},
		})
	}

	summary.AppendSeparator()
	summary.AppendRows([]table.Row{
		{"days", fmt.Sprintf("%d (%s .. %s)", r.Days, r.FirstDay, r.LastDay)},
		{"cells", humanize.Comma(int64(r.Cells))},
		{"picks", humanize.Comma(safeconv.Int64(r.Picks))},
	})

	_, err := fmt.Fprintln(w, summary.Render())
	if err != nil {
		return err
	}

	if len(r.TopHeroes) == 0 {
		return nil
	}

	heroes := table.NewWriter()
	heroes.SetStyle(table.StyleLight)
	heroes.Style().Options.DrawBorder = false
	heroes.Style().Options.SeparateColumns = false
	heroes.AppendHeader(table.Row{"#", "hero", "name", "picks", "share"})

	for i, h := range r.TopHeroes {
		heroes.AppendRow(table.Row{
			i + 1, h.Hero, h.Name, humanize.Comma(safeconv.Int64(h.Picks)),
			humanize.FormatFloat("#,###.##", h.Share*100) + "%",
		})
	}

	_, err = fmt.Fprintln(w, heroes.Render())

	return err
}
