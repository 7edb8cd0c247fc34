// Package matchrow decodes the two columns of a match record the condenser needs.
package matchrow

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Sumatoshi-tech/heropicks/pkg/epochday"
)

// Default column positions in the OpenDota matches dump.
const (
	DefaultTimeColumn  = 3  // start_time
	DefaultPicksColumn = 26 // pgroup
)

// Sentinel errors.
var (
	ErrShortRow       = errors.New("row has too few fields")
	ErrBadTimestamp   = errors.New("invalid timestamp")
	ErrInvalidColumns = errors.New("invalid column layout")
)

// Columns holds the zero-based positions of the used fields.
type Columns struct {
	Time  int
	Picks int
}

// DefaultColumns returns the OpenDota layout.
func DefaultColumns() Columns {
	return Columns{Time: DefaultTimeColumn, Picks: DefaultPicksColumn}
}

// Validate checks that both positions are usable.
func (c Columns) Validate() error {
	if c.Time < 0 || c.Picks < 0 {
		return fmt.Errorf("%w: negative position (time=%d picks=%d)", ErrInvalidColumns, c.Time, c.Picks)
	}

	if c.Time == c.Picks {
		return fmt.Errorf("%w: time and picks share position %d", ErrInvalidColumns, c.Time)
	}

	return nil
}

// Width is the minimum number of fields a row needs.
func (c Columns) Width() int {
	return max(c.Time, c.Picks) + 1
}

// Match is the decoded part of a row.
type Match struct {
	StartTime int64
	Day       epochday.Day
	Picks     string
}

// Decoder extracts a Match from a record. The zero value is not usable; use NewDecoder.
type Decoder struct {
	cols  Columns
	width int
}

// NewDecoder validates cols and returns a decoder for them.
func NewDecoder(cols Columns) (*Decoder, error) {
	err := cols.Validate()
	if err != nil {
		return nil, err
	}

	return &Decoder{cols: cols, width: cols.Width()}, nil
}

// Columns returns the decoder's layout.
func (d *Decoder) Columns() Columns {
	return d.cols
}

// Decode pulls the timestamp and picks fragment out of record.
func (d *Decoder) Decode(record []string) (Match, error) {
	if len(record) < d.width {
		return Match{}, fmt.Errorf("%w: got %d, need %d", ErrShortRow, len(record), d.width)
	}

	raw := record[d.cols.Time]

	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Match{}, fmt.Errorf("%w %q: %w", ErrBadTimestamp, raw, err)
	}

	day, err := epochday.FromUnix(sec)
	if err != nil {
		return Match{}, err
	}

	return Match{StartTime: sec, Day: day, Picks: record[d.cols.Picks]}, nil
}
