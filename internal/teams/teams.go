package teams

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Registry maps sportsbook display names ("Packers") to the 3-letter
// abbreviations used everywhere else ("GB"). The table is snapshot data, not
// logic: it can be reloaded from a YAML file when the league changes.
type Registry struct {
	byName map[string]string
}

// defaultNames is the built-in table so the CLIs work without a teams file.
var defaultNames = map[string]string{
	"Packers":    "GB",
	"Browns":     "CLE",
	"Texans":     "HOU",
	"Jaguars":    "JAX",
	"Bengals":    "CIN",
	"Vikings":    "MIN",
	"Steelers":   "PIT",
	"Patriots":   "NE",
	"Rams":       "LA",
	"Eagles":     "PHI",
	"Jets":       "NYJ",
	"Buccaneers": "TB",
	"Colts":      "IND",
	"Titans":     "TEN",
	"Raiders":    "LV",
	"Commanders": "WAS",
	"Broncos":    "DEN",
	"Chargers":   "LAC",
	"Saints":     "NO",
	"Seahawks":   "SEA",
	"Cowboys":    "DAL",
	"Bears":      "CHI",
	"Cardinals":  "ARI",
	"Niners":     "SF",
	"Chiefs":     "KC",
	"Giants":     "NYG",
	"Lions":      "DET",
	"Ravens":     "BAL",
	"Falcons":    "ATL",
	"Panthers":   "CAR",
}

// Default returns the registry built from the compiled-in table
func Default() *Registry {
	byName := make(map[string]string, len(defaultNames))
	for name, abbr := range defaultNames {
		byName[name] = abbr
	}
	return &Registry{byName: byName}
}

// LoadFile reads a name -> abbreviation mapping from a YAML file
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read teams file: %w", err)
	}

	var byName map[string]string
	if err := yaml.Unmarshal(data, &byName); err != nil {
		return nil, fmt.Errorf("failed to parse teams file: %w", err)
	}
	if len(byName) == 0 {
		return nil, fmt.Errorf("teams file %s contains no entries", path)
	}

	return &Registry{byName: byName}, nil
}

// Abbreviation resolves a display name; ok is false for unknown names
func (r *Registry) Abbreviation(name string) (string, bool) {
	abbr, ok := r.byName[name]
	return abbr, ok
}

// Contains reports whether the name is in the registry
func (r *Registry) Contains(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Size returns the number of known teams
func (r *Registry) Size() int {
	return len(r.byName)
}
