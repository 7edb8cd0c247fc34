package matchrow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/heropicks/pkg/epochday"
	"github.com/Sumatoshi-tech/heropicks/pkg/matchrow"
)

func newDecoder(t *testing.T, cols matchrow.Columns) *matchrow.Decoder {
	t.Helper()

	dec, err := matchrow.NewDecoder(cols)
	require.NoError(t, err)

	return dec
}

func TestDecode(t *testing.T) {
	t.Parallel()

	dec := newDecoder(t, matchrow.Columns{Time: 1, Picks: 3})

	m, err := dec.Decode([]string{"id", "1555200000", "x", `{"0":{"hero_id":14}}`})
	require.NoError(t, err)

	assert.Equal(t, int64(1555200000), m.StartTime)
	assert.Equal(t, epochday.Day(18000), m.Day)
	assert.JSONEq(t, `{"0":{"hero_id":14}}`, m.Picks)
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	dec := newDecoder(t, matchrow.Columns{Time: 0, Picks: 2})

	tests := []struct {
		name   string
		record []string
		want   error
	}{
		{name: "short row", record: []string{"1", "2"}, want: matchrow.ErrShortRow},
		{name: "empty timestamp", record: []string{"", "", "{}"}, want: matchrow.ErrBadTimestamp},
		{name: "float timestamp", record: []string{"1.5", "", "{}"}, want: matchrow.ErrBadTimestamp},
		{name: "out of range", record: []string{"999999999999999", "", "{}"}, want: epochday.ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := dec.Decode(tt.record)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestColumns_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, matchrow.DefaultColumns().Validate())
	assert.Equal(t, 27, matchrow.DefaultColumns().Width())

	_, err := matchrow.NewDecoder(matchrow.Columns{Time: -1, Picks: 2})
	require.ErrorIs(t, err, matchrow.ErrInvalidColumns)

	_, err = matchrow.NewDecoder(matchrow.Columns{Time: 2, Picks: 2})
	require.ErrorIs(t, err, matchrow.ErrInvalidColumns)
}
