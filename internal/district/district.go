// Package district provides the map of travel locations and the police
// patrol field laid over it. Patrol intensity is sampled from layered
// simplex noise, so one seed always yields the same city.
package district

import (
	"math"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Location is a place the player can be.
type Location struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Patrol float64 `json:"patrol"` // 0.0 (lawless) to 1.0 (locked down)
}

// Map is the generated district.
type Map struct {
	Seed      int64
	locations map[string]Location
}

// layout is the fixed street plan; only patrol intensity varies by seed.
var layout = []Location{
	{ID: "downtown", Name: "Downtown", X: 0, Y: 0},
	{ID: "neon_market", Name: "Neon Market", X: 2.5, Y: 1},
	{ID: "docks", Name: "Orbital Docks", X: -3, Y: 2},
	{ID: "uptown", Name: "Uptown Spires", X: 1, Y: -3},
	{ID: "undercity", Name: "Undercity", X: -2, Y: -2.5},
	{ID: "industrial", Name: "Industrial Ring", X: 4, Y: -1},
}

// Generate builds the district for seed.
func Generate(seed int64) *Map {
	noise := opensimplex.NewNormalized(seed)
	m := &Map{Seed: seed, locations: make(map[string]Location, len(layout))}
	for _, loc := range layout {
		loc.Patrol = octaveNoise(noise, loc.X, loc.Y, 3, 0.35, 0.5)
		m.locations[loc.ID] = loc
	}
	return m
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return math.Max(0, math.Min(1, total/maxVal))
}

// Location looks up a place by id.
func (m *Map) Location(id string) (Location, bool) {
	loc, ok := m.locations[id]
	return loc, ok
}

// Locations returns every place sorted by id.
func (m *Map) Locations() []Location {
	out := make([]Location, 0, len(m.locations))
	for _, loc := range m.locations {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// HeatMultiplier scales heat gained at a location: 0.75 with no patrols,
// 1.25 under full patrol. Unknown locations are neutral.
func (m *Map) HeatMultiplier(id string) float64 {
	loc, ok := m.locations[id]
	if !ok {
		return 1
	}
	return 0.75 + 0.5*loc.Patrol
}

// ScaleHeat applies the location multiplier to a heat gain, rounding up
// so a positive gain never vanishes.
func (m *Map) ScaleHeat(id string, delta int) int {
	if delta <= 0 {
		return delta
	}
	return int(math.Ceil(float64(delta) * m.HeatMultiplier(id)))
}
