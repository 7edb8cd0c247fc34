package export

import (
	"fmt"
	"os"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/Sumatoshi-tech/heropicks/pkg/aggregate"
)

// HeroNames maps hero ids to display names. A nil map is valid and names
// every hero by its id.
type HeroNames map[aggregate.HeroID]string

// heroEntry is one element of the OpenDota /api/heroes response.
type heroEntry struct {
	ID            uint32 `json:"id"`
	Name          string `json:"name"`
	LocalizedName string `json:"localized_name"`
}

// LoadHeroNames reads a saved OpenDota /api/heroes response. The localized
// name is preferred; the internal name is the fallback.
func LoadHeroNames(path string) (HeroNames, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hero names: %w", err)
	}

	var entries []heroEntry

	err = jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &entries)
	if err != nil {
		return nil, fmt.Errorf("decode hero names %s: %w", path, err)
	}

	names := make(HeroNames, len(entries))

	for _, e := range entries {
		name := e.LocalizedName
		if name == "" {
			name = e.Name
		}

		if name != "" {
			names[aggregate.HeroID(e.ID)] = name
		}
	}

	return names, nil
}

// Name returns the display name of hero, or its decimal id when unknown.
func (n HeroNames) Name(hero aggregate.HeroID) string {
	if name, ok := n[hero]; ok {
		return name
	}

	return strconv.FormatUint(uint64(hero), 10)
}
