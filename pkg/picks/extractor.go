// Package picks extracts hero ids from the participant-group JSON column.
//
// The column holds an object keyed by player slot whose values carry a
// "hero_id" field:
//
//	{"0":{"account_id":4294967295,"hero_id":14,"player_slot":0},"1":{...}}
//
// The extractor walks the document with a pooled json-iterator and never
// materializes intermediate maps, which matters at a billion rows.
package picks

import (
	"errors"
	"fmt"
	"math"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/Sumatoshi-tech/heropicks/pkg/aggregate"
)

// HeroField is the per-slot field holding the hero id.
const HeroField = "hero_id"

// Sentinel errors wrapped by *Error.
var (
	ErrMalformed     = errors.New("malformed participant JSON")
	ErrMissingHeroID = errors.New("slot has no hero_id")
)

// Error reports which slot failed. Slot is empty for syntax errors that
// happen outside a slot.
type Error struct {
	Slot string
	Err  error
}

func (e *Error) Error() string {
	if e.Slot == "" {
		return e.Err.Error()
	}

	return fmt.Sprintf("slot %q: %v", e.Slot, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Extractor turns participant JSON into hero ids. It keeps a scratch buffer,
// so one Extractor must not be shared between goroutines.
type Extractor struct {
	api jsoniter.API
	buf []byte
}

// NewExtractor returns an extractor backed by jsoniter.ConfigFastest.
func NewExtractor() *Extractor {
	return &Extractor{api: jsoniter.ConfigFastest}
}

// Extract appends the hero of every slot in fragment to dst, in the order
// the slots appear. On error the heroes read before the failure are still
// returned.
func (e *Extractor) Extract(fragment string, dst []aggregate.HeroID) ([]aggregate.HeroID, error) {
	if strings.TrimSpace(fragment) == "" {
		return dst, nil
	}

	e.buf = append(e.buf[:0], fragment...)

	iter := e.api.BorrowIterator(e.buf)
	defer e.api.ReturnIterator(iter)

	var slotErr *Error

	iter.ReadMapCB(func(it *jsoniter.Iterator, slot string) bool {
		hero, err := readSlot(it)
		if err != nil {
			slotErr = &Error{Slot: slot, Err: err}

			return false
		}

		dst = append(dst, hero)

		return true
	})

	if slotErr != nil {
		return dst, slotErr
	}

	if iter.Error != nil {
		return dst, &Error{Err: fmt.Errorf("%w: %w", ErrMalformed, iter.Error)}
	}

	return dst, nil
}

func readSlot(it *jsoniter.Iterator) (aggregate.HeroID, error) {
	var (
		hero  aggregate.HeroID
		found bool
		bad   error
	)

	it.ReadMapCB(func(it *jsoniter.Iterator, field string) bool {
		if field != HeroField {
			it.Skip()

			return true
		}

		switch it.WhatIsNext() {
		case jsoniter.NumberValue:
			id := it.ReadInt64()
			if id < 0 || id > math.MaxUint32 {
				bad = fmt.Errorf("%w: hero_id %d out of range", ErrMalformed, id)

				return false
			}

			hero = aggregate.HeroID(id)
			found = true
		case jsoniter.NilValue:
			it.Skip()
		default:
			bad = fmt.Errorf("%w: hero_id is not a number", ErrMalformed)

			return false
		}

		return true
	})

	if bad != nil {
		return 0, bad
	}

	if it.Error != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformed, it.Error)
	}

	if !found {
		return 0, ErrMissingHeroID
	}

	return hero, nil
}
