// Package export turns an aggregate into files other tools read: the JSON
// dump, CSV tables, Parquet and an HTML chart page.
package export

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Sumatoshi-tech/heropicks/pkg/aggregate"
	"github.com/Sumatoshi-tech/heropicks/pkg/persist"
)

// ErrBadKey is returned when a dump key is not a decimal day or hero id.
var ErrBadKey = errors.New("invalid key in dump")

// Document is the JSON dump: day ordinal to hero id to count, keys in decimal.
//
//	{"18000":{"14":2,"7":1}}
type Document map[string]map[string]uint64

var documents = persist.NewPersister[Document](persist.NewCompactJSONCodec())

// ToDocument converts the counts of acc. Days without counts are absent.
func ToDocument(acc *aggregate.Accumulator) Document {
	doc := make(Document, len(acc.Days()))

	acc.Each(func(day aggregate.Day, hero aggregate.HeroID, count uint64) bool {
		key := day.Ordinal()

		heroes, ok := doc[key]
		if !ok {
			heroes = make(map[string]uint64)
			doc[key] = heroes
		}

		heroes[strconv.FormatUint(uint64(hero), 10)] = count

		return true
	})

	return doc
}

// WriteJSON writes doc as compact JSON. The file is replaced atomically.
func WriteJSON(path string, doc Document) error {
	err := documents.Save(path, func() *Document { return &doc })
	if err != nil {
		return fmt.Errorf("write dump: %w", err)
	}

	return nil
}

// ReadJSON loads a dump written by WriteJSON. Dumps do not record the row
// count, so the returned aggregate reports zero rows.
func ReadJSON(path string) (*aggregate.Accumulator, error) {
	var acc *aggregate.Accumulator

	err := documents.Load(path, func(doc *Document) error {
		restored, convErr := doc.Accumulator()
		acc = restored

		return convErr
	})
	if err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}

	return acc, nil
}

// Accumulator rebuilds an aggregate from the document. A day holding an
// empty object is restored as seen with no counts.
func (d Document) Accumulator() (*aggregate.Accumulator, error) {
	counts := make(map[aggregate.Day]map[aggregate.HeroID]uint64, len(d))

	var seen []aggregate.Day

	for dayKey, heroes := range d {
		day, err := strconv.ParseInt(dayKey, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: day %q", ErrBadKey, dayKey)
		}

		if len(heroes) == 0 {
			seen = append(seen, aggregate.Day(day))

			continue
		}

		dayCounts := make(map[aggregate.HeroID]uint64, len(heroes))

		for heroKey, count := range heroes {
			hero, parseErr := strconv.ParseUint(heroKey, 10, 32)
			if parseErr != nil {
				return nil, fmt.Errorf("%w: hero %q on day %s", ErrBadKey, heroKey, dayKey)
			}

			dayCounts[aggregate.HeroID(hero)] = count
		}

		counts[aggregate.Day(day)] = dayCounts
	}

	acc, err := aggregate.Restore(0, seen, counts)
	if err != nil {
		return nil, fmt.Errorf("rebuild aggregate: %w", err)
	}

	return acc, nil
}
