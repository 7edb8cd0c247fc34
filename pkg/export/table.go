package export

import (
	"maps"
	"slices"

	"github.com/Sumatoshi-tech/heropicks/pkg/aggregate"
	"github.com/Sumatoshi-tech/heropicks/pkg/epochday"
)

// LowCountCutoff is the first day with a representative number of recorded
// matches. Earlier days are sparse.
const LowCountCutoff = "2011-11-22"

// Filter selects the part of an aggregate that gets exported.
type Filter struct {
	// Since drops days before it when set.
	Since    epochday.Day
	HasSince bool
	// KeepUnknown keeps day 0 (missing start time) and hero 0 (missing hero).
	KeepUnknown bool
}

// Table is a dense days x heroes view of an aggregate. Missing cells are zero.
type Table struct {
	Days   []aggregate.Day
	Heroes []aggregate.HeroID
	// Cells[i][j] is the count of Heroes[j] on Days[i].
	Cells [][]uint64
}

// NewTable builds a table from acc with f applied. Days and heroes are ascending.
func NewTable(acc *aggregate.Accumulator, f Filter) *Table {
	heroSet := make(map[aggregate.HeroID]struct{})
	days := make([]aggregate.Day, 0, len(acc.Days()))

	for _, day := range acc.Days() {
		if !f.keepDay(day) {
			continue
		}

		added := false

		for hero := range acc.Heroes(day) {
			if hero == 0 && !f.KeepUnknown {
				continue
			}

			heroSet[hero] = struct{}{}
			added = true
		}

		if added {
			days = append(days, day)
		}
	}

	heroes := slices.Sorted(maps.Keys(heroSet))

	column := make(map[aggregate.HeroID]int, len(heroes))
	for j, hero := range heroes {
		column[hero] = j
	}

	cells := make([][]uint64, len(days))

	for i, day := range days {
		row := make([]uint64, len(heroes))

		for hero, count := range acc.Heroes(day) {
			if j, ok := column[hero]; ok {
				row[j] = count
			}
		}

		cells[i] = row
	}

	return &Table{Days: days, Heroes: heroes, Cells: cells}
}

func (f Filter) keepDay(day aggregate.Day) bool {
	if day == 0 && !f.KeepUnknown {
		return false
	}

	return !f.HasSince || day >= f.Since
}

// DayTotals returns the row sums, aligned with Days.
func (t *Table) DayTotals() []uint64 {
	totals := make([]uint64, len(t.Days))

	for i, row := range t.Cells {
		for _, c := range row {
			totals[i] += c
		}
	}

	return totals
}

// HeroTotals returns the column sums, aligned with Heroes.
func (t *Table) HeroTotals() []uint64 {
	totals := make([]uint64, len(t.Heroes))

	for _, row := range t.Cells {
		for j, c := range row {
			totals[j] += c
		}
	}

	return totals
}

// Shares returns each cell divided by its row total.
func (t *Table) Shares() [][]float64 {
	totals := t.DayTotals()
	shares := make([][]float64, len(t.Cells))

	for i, row := range t.Cells {
		out := make([]float64, len(row))

		if totals[i] > 0 {
			for j, c := range row {
				out[j] = float64(c) / float64(totals[i])
			}
		}

		shares[i] = out
	}

	return shares
}

// Top returns the indexes of the n heroes with most picks, ties broken by
// ascending id. A non-positive n returns all of them.
func (t *Table) Top(n int) []int {
	totals := t.HeroTotals()
	idx := make([]int, len(t.Heroes))

	for j := range idx {
		idx[j] = j
	}

	slices.SortStableFunc(idx, func(a, b int) int {
		switch {
		case totals[a] > totals[b]:
			return -1
		case totals[a] < totals[b]:
			return 1
		default:
			return a - b
		}
	})

	if n > 0 && n < len(idx) {
		idx = idx[:n]
	}

	return idx
}
