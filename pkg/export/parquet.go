package export

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/Sumatoshi-tech/heropicks/pkg/safeconv"
)

// PickRow is one (day, hero) cell in the long Parquet layout.
type PickRow struct {
	Date     string  `parquet:"date"`
	Day      int64   `parquet:"day"`
	Hero     int64   `parquet:"hero"`
	HeroName string  `parquet:"hero_name"`
	Picks    int64   `parquet:"picks"`
	Share    float64 `parquet:"share"`
}

// parquetBatch bounds the rows buffered per Write call.
const parquetBatch = 4096

// WriteParquet writes the non-zero cells of t, ordered by day then hero.
func WriteParquet(w io.Writer, t *Table, opts Options) error {
	pw := parquet.NewGenericWriter[PickRow](w, parquet.Compression(&parquet.Zstd))
	shares := t.Shares()
	batch := make([]PickRow, 0, parquetBatch)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		_, err := pw.Write(batch)
		if err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}

		batch = batch[:0]

		return nil
	}

	for i, day := range t.Days {
		for j, count := range t.Cells[i] {
			if count == 0 {
				continue
			}

			batch = append(batch, PickRow{
				Date:     day.String(),
				Day:      int64(day),
				Hero:     int64(t.Heroes[j]),
				HeroName: opts.Names.Name(t.Heroes[j]),
				Picks:    safeconv.Int64(count),
				Share:    shares[i][j],
			})

			if len(batch) == parquetBatch {
				err := flush()
				if err != nil {
					return err
				}
			}
		}
	}

	err := flush()
	if err != nil {
		return err
	}

	err = pw.Close()
	if err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}

	return nil
}
