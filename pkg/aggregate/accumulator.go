// Package aggregate holds the day -> hero -> count frequency accumulator.
package aggregate

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/Sumatoshi-tech/heropicks/pkg/epochday"
)

// HeroID identifies a hero (participant category).
type HeroID uint32

// Day is re-exported for callers that only deal with the accumulator.
type Day = epochday.Day

// Sentinel errors returned by Restore.
var (
	ErrZeroCount  = errors.New("zero count")
	ErrEmptyDay   = errors.New("day has no hero counts")
	ErrRowsTooLow = errors.New("row count lower than number of seen days")
)

// Accumulator is the full aggregation state of a condensation run.
// It is not safe for concurrent use.
type Accumulator struct {
	counts map[Day]map[HeroID]uint64
	seen   mapset.Set[Day]
	rows   uint64

	// Rows arrive roughly in time order, so most lookups hit the last day.
	lastDay    Day
	lastCounts map[HeroID]uint64
}

// New returns an empty accumulator.
func New() *Accumulator {
	return &Accumulator{
		counts: make(map[Day]map[HeroID]uint64),
		seen:   mapset.NewThreadUnsafeSet[Day](),
	}
}

// Ingest records one row: every hero in heroes is counted once for day,
// the day is marked as seen and the row counter advances.
func (a *Accumulator) Ingest(day Day, heroes []HeroID) {
	if len(heroes) > 0 {
		dayCounts := a.dayCounts(day)
		for _, hero := range heroes {
			dayCounts[hero]++
		}
	}

	a.seen.Add(day)
	a.rows++
}

func (a *Accumulator) dayCounts(day Day) map[HeroID]uint64 {
	if a.lastCounts != nil && a.lastDay == day {
		return a.lastCounts
	}

	dayCounts, ok := a.counts[day]
	if !ok {
		dayCounts = make(map[HeroID]uint64)
		a.counts[day] = dayCounts
	}

	a.lastDay = day
	a.lastCounts = dayCounts

	return dayCounts
}

// Count returns the number of times hero was picked on day.
func (a *Accumulator) Count(day Day, hero HeroID) uint64 {
	return a.counts[day][hero]
}

// Rows returns the number of ingested rows.
func (a *Accumulator) Rows() uint64 {
	return a.rows
}

// DaysSeen returns the number of distinct days observed, including days
// whose rows carried no heroes.
func (a *Accumulator) DaysSeen() int {
	return a.seen.Cardinality()
}

// SeenDays returns every observed day in ascending order.
func (a *Accumulator) SeenDays() []Day {
	days := a.seen.ToSlice()
	slices.Sort(days)

	return days
}

// Days returns the days that have at least one hero count, ascending.
func (a *Accumulator) Days() []Day {
	return slices.Sorted(maps.Keys(a.counts))
}

// Heroes returns a copy of the hero counts for day.
func (a *Accumulator) Heroes(day Day) map[HeroID]uint64 {
	return maps.Clone(a.counts[day])
}

// Len returns the number of (day, hero) pairs held.
func (a *Accumulator) Len() int {
	n := 0
	for _, dayCounts := range a.counts {
		n += len(dayCounts)
	}

	return n
}

// Each calls fn for every (day, hero, count) triple ordered by day, then hero.
// Iteration stops early when fn returns false.
func (a *Accumulator) Each(fn func(day Day, hero HeroID, count uint64) bool) {
	for _, day := range a.Days() {
		dayCounts := a.counts[day]
		for _, hero := range slices.Sorted(maps.Keys(dayCounts)) {
			if !fn(day, hero, dayCounts[hero]) {
				return
			}
		}
	}
}

// Merge adds other's counts, seen days and rows into a.
func (a *Accumulator) Merge(other *Accumulator) {
	for day, otherCounts := range other.counts {
		dayCounts := a.dayCounts(day)
		for hero, count := range otherCounts {
			dayCounts[hero] += count
		}
	}

	a.seen.Append(other.seen.ToSlice()...)
	a.rows += other.rows
}

// Restore rebuilds an accumulator from persisted state. Days that appear in
// counts are added to the seen set even when seen omits them.
func Restore(rows uint64, seen []Day, counts map[Day]map[HeroID]uint64) (*Accumulator, error) {
	acc := New()
	acc.rows = rows
	acc.seen.Append(seen...)

	for day, heroes := range counts {
		if len(heroes) == 0 {
			return nil, fmt.Errorf("%w: %d", ErrEmptyDay, day)
		}

		dayCounts := make(map[HeroID]uint64, len(heroes))

		for hero, count := range heroes {
			if count == 0 {
				return nil, fmt.Errorf("%w: day %d hero %d", ErrZeroCount, day, hero)
			}

			dayCounts[hero] = count
		}

		acc.counts[day] = dayCounts
		acc.seen.Add(day)
	}

	if uint64(acc.seen.Cardinality()) > rows && rows > 0 {
		return nil, fmt.Errorf("%w: %d rows, %d days", ErrRowsTooLow, rows, acc.seen.Cardinality())
	}

	return acc, nil
}

// Snapshot exports the raw state for serialization. The returned maps are
// copies and may be retained by the caller.
func (a *Accumulator) Snapshot() (rows uint64, seen []Day, counts map[Day]map[HeroID]uint64) {
	counts = make(map[Day]map[HeroID]uint64, len(a.counts))
	for day, dayCounts := range a.counts {
		counts[day] = maps.Clone(dayCounts)
	}

	return a.rows, a.SeenDays(), counts
}

// HeroTotal is a hero with its total pick count over a span of days.
type HeroTotal struct {
	Hero  HeroID
	Count uint64
}

// Totals summarizes an accumulator.
type Totals struct {
	Picks  uint64
	ByDay  map[Day]uint64
	ByHero map[HeroID]uint64
}

// Totals computes pick sums per day, per hero and overall.
func (a *Accumulator) Totals() Totals {
	totals := Totals{
		ByDay:  make(map[Day]uint64, len(a.counts)),
		ByHero: make(map[HeroID]uint64),
	}

	for day, dayCounts := range a.counts {
		for hero, count := range dayCounts {
			totals.ByDay[day] += count
			totals.ByHero[hero] += count
			totals.Picks += count
		}
	}

	return totals
}

// Top returns the n most picked heroes, ties broken by ascending id.
// A non-positive n returns all heroes.
func (t Totals) Top(n int) []HeroTotal {
	out := make([]HeroTotal, 0, len(t.ByHero))
	for hero, count := range t.ByHero {
		out = append(out, HeroTotal{Hero: hero, Count: count})
	}

	slices.SortFunc(out, func(x, y HeroTotal) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}

		return cmp.Compare(x.Hero, y.Hero)
	})

	if n > 0 && n < len(out) {
		out = out[:n]
	}

	return out
}
