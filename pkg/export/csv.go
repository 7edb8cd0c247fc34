package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// CSV column headers.
const (
	headerDate  = "date"
	headerHero  = "hero"
	headerPicks = "picks"
)

// WriteCSV renders t in the given layout.
func WriteCSV(w io.Writer, t *Table, layout Layout, opts Options) error {
	cw := csv.NewWriter(w)

	var err error

	switch layout {
	case LayoutWide:
		err = writeWide(cw, t, opts)
	case LayoutByDate:
		err = writeByDate(cw, t)
	case LayoutByHero:
		err = writeByHero(cw, t, opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLayout, layout)
	}

	if err != nil {
		return err
	}

	cw.Flush()

	err = cw.Error()
	if err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	return nil
}

func writeWide(cw *csv.Writer, t *Table, opts Options) error {
	header := make([]string, 0, len(t.Heroes)+1)
	header = append(header, headerDate)

	for _, hero := range t.Heroes {
		header = append(header, opts.Names.Name(hero))
	}

	err := cw.Write(header)
	if err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	var shares [][]float64
	if opts.Normalize {
		shares = t.Shares()
	}

	record := make([]string, len(header))

	for i, day := range t.Days {
		record[0] = day.String()

		for j, count := range t.Cells[i] {
			if shares != nil {
				record[j+1] = strconv.FormatFloat(shares[i][j], 'f', -1, 64)
			} else {
				record[j+1] = strconv.FormatUint(count, 10)
			}
		}

		err = cw.Write(record)
		if err != nil {
			return fmt.Errorf("write csv row %s: %w", day, err)
		}
	}

	return nil
}

func writeByDate(cw *csv.Writer, t *Table) error {
	err := cw.Write([]string{headerDate, headerPicks})
	if err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for i, total := range t.DayTotals() {
		err = cw.Write([]string{t.Days[i].String(), strconv.FormatUint(total, 10)})
		if err != nil {
			return fmt.Errorf("write csv row %s: %w", t.Days[i], err)
		}
	}

	return nil
}

// writeByHero lists heroes by id, or by descending picks when opts.Top is set.
func writeByHero(cw *csv.Writer, t *Table, opts Options) error {
	err := cw.Write([]string{headerHero, headerPicks})
	if err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	totals := t.HeroTotals()

	order := make([]int, len(t.Heroes))
	for j := range order {
		order[j] = j
	}

	if opts.Top > 0 {
		order = t.Top(opts.Top)
	}

	for _, j := range order {
		err = cw.Write([]string{opts.Names.Name(t.Heroes[j]), strconv.FormatUint(totals[j], 10)})
		if err != nil {
			return fmt.Errorf("write csv row %d: %w", t.Heroes[j], err)
		}
	}

	return nil
}
