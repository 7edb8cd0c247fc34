package export_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/heropicks/pkg/export"
)

func readParquet(t *testing.T, path string) []export.PickRow {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)

	t.Cleanup(func() { _ = f.Close() })

	reader := parquet.NewGenericReader[export.PickRow](f)
	defer reader.Close()

	rows := make([]export.PickRow, reader.NumRows())

	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		require.NoError(t, err)
	}

	return rows[:n]
}

func TestWrite_Parquet(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "picks.parquet")

	require.NoError(t, export.Write(path, sample(), export.Options{Format: export.FormatParquet, Names: names}))

	rows := readParquet(t, path)
	require.Len(t, rows, 3)

	assert.Equal(t, export.PickRow{Date: "2019-04-14", Day: 18000, Hero: 7, HeroName: "Earthshaker", Picks: 1, Share: 1.0 / 3}, rows[0])
	assert.Equal(t, "Pudge", rows[1].HeroName)
	assert.Equal(t, int64(2), rows[1].Picks)
	assert.Equal(t, export.PickRow{Date: "2019-04-15", Day: 18001, Hero: 7, HeroName: "Earthshaker", Picks: 1, Share: 1}, rows[2])
}

func TestWrite_HTML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "picks.html")

	require.NoError(t, export.Write(path, sample(), export.Options{Format: export.FormatHTML, Names: names, Top: 5}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	body := string(data)
	assert.Contains(t, body, "Picks per day")
	assert.Contains(t, body, "Top 2 heroes")
	assert.Contains(t, body, "Pudge")
	assert.Contains(t, body, "2019-04-15")
}

func TestWrite_CSVAndJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	csvPath := filepath.Join(dir, "picks.csv")
	require.NoError(t, export.Write(csvPath, sample(), export.Options{Format: export.FormatCSV, Layout: export.LayoutByDate}))

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "date,picks\n2019-04-14,3\n2019-04-15,1\n", string(data))

	jsonPath := filepath.Join(dir, "picks.json")
	require.NoError(t, export.Write(jsonPath, sample(), export.Options{Format: export.FormatJSON, Filter: export.Filter{Since: 18001, HasSince: true}}))

	data, err = os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"0":{"5":1},"18000":{"14":2,"7":1},"18001":{"0":1,"7":1}}`, string(data))
}

func TestWrite_RejectsBadOptions(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out")

	tests := []struct {
		name string
		opts export.Options
		want error
	}{
		{name: "unknown format", opts: export.Options{Format: "xlsx"}, want: export.ErrUnknownFormat},
		{name: "unknown layout", opts: export.Options{Format: export.FormatCSV, Layout: "tall"}, want: export.ErrUnknownLayout},
		{name: "normalize by date", opts: export.Options{Format: export.FormatCSV, Layout: export.LayoutByDate, Normalize: true}, want: export.ErrNormalize},
		{name: "normalize parquet", opts: export.Options{Format: export.FormatParquet, Normalize: true}, want: export.ErrNormalize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.ErrorIs(t, export.Write(path, sample(), tt.opts), tt.want)
		})
	}

	_, err := os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, err := export.ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, export.FormatCSV, f)

	f, err = export.FormatFromPath("out/chart.htm")
	require.NoError(t, err)
	assert.Equal(t, export.FormatHTML, f)

	f, err = export.FormatFromPath("picks.parquet")
	require.NoError(t, err)
	assert.Equal(t, export.FormatParquet, f)

	_, err = export.FormatFromPath("picks")
	require.ErrorIs(t, err, export.ErrUnknownFormat)

	l, err := export.ParseLayout("")
	require.NoError(t, err)
	assert.Equal(t, export.LayoutWide, l)
}

func TestLoadHeroNames(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "heroes.json")
	content := `[
		{"id":1,"name":"npc_dota_hero_antimage","localized_name":"Anti-Mage","roles":["Carry"]},
		{"id":2,"name":"npc_dota_hero_axe","localized_name":""}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	got, err := export.LoadHeroNames(path)
	require.NoError(t, err)

	assert.Equal(t, "Anti-Mage", got.Name(1))
	assert.Equal(t, "npc_dota_hero_axe", got.Name(2))
	assert.Equal(t, "99", got.Name(99))

	var none export.HeroNames
	assert.Equal(t, "3", none.Name(3))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"id":1}`), 0o600))

	_, err = export.LoadHeroNames(bad)
	require.Error(t, err)

	_, err = export.LoadHeroNames(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
