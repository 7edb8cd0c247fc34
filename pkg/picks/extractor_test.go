package picks_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/heropicks/pkg/aggregate"
	"github.com/Sumatoshi-tech/heropicks/pkg/picks"
)

const opendotaGroup = `{"0":{"account_id":4294967295,"hero_id":14,"player_slot":0},` +
	`"1":{"account_id":4294967295,"hero_id":7,"player_slot":1},` +
	`"128":{"account_id":1234,"hero_id":14,"player_slot":128}}`

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fragment string
		want     []aggregate.HeroID
	}{
		{name: "single slot", fragment: `{"0":{"hero_id":14}}`, want: []aggregate.HeroID{14}},
		{name: "two slots", fragment: `{"0":{"hero_id":14},"1":{"hero_id":7}}`, want: []aggregate.HeroID{14, 7}},
		{name: "opendota shape", fragment: opendotaGroup, want: []aggregate.HeroID{14, 7, 14}},
		{name: "nested extra fields", fragment: `{"0":{"x":{"y":[1,2,{"hero_id":3}]},"hero_id":5}}`, want: []aggregate.HeroID{5}},
		{name: "empty object", fragment: `{}`, want: nil},
		{name: "null", fragment: `null`, want: nil},
		{name: "blank", fragment: "  ", want: nil},
		{name: "whitespace around", fragment: " { \"0\" : { \"hero_id\" : 1 } } ", want: []aggregate.HeroID{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := picks.NewExtractor().Extract(tt.fragment, nil)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestExtract_AppendsToDst(t *testing.T) {
	t.Parallel()

	ex := picks.NewExtractor()
	dst := []aggregate.HeroID{99}

	got, err := ex.Extract(`{"0":{"hero_id":1}}`, dst)
	require.NoError(t, err)
	assert.Equal(t, []aggregate.HeroID{99, 1}, got)
}

func TestExtract_ReusesExtractor(t *testing.T) {
	t.Parallel()

	ex := picks.NewExtractor()

	var buf []aggregate.HeroID

	for range 3 {
		var err error

		buf, err = ex.Extract(opendotaGroup, buf[:0])
		require.NoError(t, err)
		assert.ElementsMatch(t, []aggregate.HeroID{14, 7, 14}, buf)
	}

	_, err := ex.Extract(`{"0":`, buf[:0])
	require.Error(t, err)

	buf, err = ex.Extract(`{"0":{"hero_id":2}}`, buf[:0])
	require.NoError(t, err)
	assert.Equal(t, []aggregate.HeroID{2}, buf)
}

func TestExtract_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fragment string
		want     error
		partial  []aggregate.HeroID
		slot     string
	}{
		{name: "truncated", fragment: `{"0":{"hero_id":14},"1":{"hero_id"`, want: picks.ErrMalformed, partial: []aggregate.HeroID{14}, slot: "1"},
		{name: "not an object", fragment: `[1,2]`, want: picks.ErrMalformed},
		{name: "garbage", fragment: `hello`, want: picks.ErrMalformed},
		{name: "slot not object", fragment: `{"0":14}`, want: picks.ErrMalformed, slot: "0"},
		{name: "missing hero", fragment: `{"0":{"hero_id":3},"1":{"player_slot":1}}`, want: picks.ErrMissingHeroID, partial: []aggregate.HeroID{3}, slot: "1"},
		{name: "null hero", fragment: `{"0":{"hero_id":null}}`, want: picks.ErrMissingHeroID, slot: "0"},
		{name: "null slot", fragment: `{"0":null}`, want: picks.ErrMissingHeroID, slot: "0"},
		{name: "string hero", fragment: `{"0":{"hero_id":"14"}}`, want: picks.ErrMalformed, slot: "0"},
		{name: "negative hero", fragment: `{"0":{"hero_id":-1}}`, want: picks.ErrMalformed, slot: "0"},
		{name: "fractional hero", fragment: `{"0":{"hero_id":1.5}}`, want: picks.ErrMalformed, slot: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := picks.NewExtractor().Extract(tt.fragment, nil)
			require.ErrorIs(t, err, tt.want)
			assert.ElementsMatch(t, tt.partial, got)

			var pe *picks.Error

			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.slot, pe.Slot)
		})
	}
}
