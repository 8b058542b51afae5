// Package catalog holds the static city directory, the route catalog keyed
// by origin/destination pair, vehicle presets and optimization strategies.
//
// A Catalog is immutable once loaded and safe for concurrent use. Every
// accessor returns copies.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/NERVsystems/ecoroutemcp/pkg/emissions"
	"github.com/NERVsystems/ecoroutemcp/pkg/geo"
	"github.com/NERVsystems/ecoroutemcp/pkg/ranking"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// City is an entry of the city directory.
type City struct {
	ID       string       `json:"id" yaml:"id"`
	Name     string       `json:"name" yaml:"name"`
	Location geo.Location `json:"location" yaml:"location"`
}

// VehiclePreset is a named, immutable vehicle profile.
type VehiclePreset struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description,omitempty"`
	Profile     emissions.VehicleProfile `json:"profile"`
	// CargoWeight in kg used when the caller gives none.
	CargoWeight float64 `json:"cargo_weight,omitempty"`
}

type presetFile struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Category    string  `yaml:"category"`
	Subtype     string  `yaml:"subtype"`
	Efficiency  float64 `yaml:"efficiency"`
	Capacity    float64 `yaml:"capacity"`
	Utilization float64 `yaml:"utilization"`
	CargoWeight float64 `yaml:"cargo_weight"`
}

type file struct {
	Cities       []City                           `yaml:"cities"`
	Presets      []presetFile                     `yaml:"vehicle_presets"`
	Strategies   []emissions.OptimizationStrategy `yaml:"strategies"`
	Combinations []emissions.OptimizationStrategy `yaml:"combinations"`
	Routes       []ranking.RouteRecord            `yaml:"routes"`
}

type pair struct{ origin, destination string }

// Catalog is the validated, indexed form of a catalog file.
type Catalog struct {
	cities       map[string]City
	cityIDs      []string
	presets      map[string]VehiclePreset
	presetNames  []string
	strategies   []emissions.OptimizationStrategy
	combinations []emissions.OptimizationStrategy
	table        map[string]float64
	routes       []ranking.RouteRecord
	routeIndex   map[string]int
	pairs        map[pair][]int
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	c, err := Parse(defaultCatalog)
	if err != nil {
		return nil, fmt.Errorf("built-in catalog: %w", err)
	}
	return c, nil
}

// Load reads a catalog file. An empty path selects the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates YAML catalog data. Unknown keys are rejected.
func Parse(data []byte) (*Catalog, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return build(f)
}

func build(f file) (*Catalog, error) {
	c := &Catalog{
		cities:     make(map[string]City, len(f.Cities)),
		presets:    make(map[string]VehiclePreset, len(f.Presets)),
		routeIndex: make(map[string]int, len(f.Routes)),
		pairs:      make(map[pair][]int),
	}
	var errs []error

	for _, city := range f.Cities {
		switch {
		case city.ID == "":
			errs = append(errs, errors.New("city with empty id"))
			continue
		case !city.Location.Valid():
			errs = append(errs, fmt.Errorf("city %q: location out of range", city.ID))
			continue
		}
		if _, dup := c.cities[city.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate city id %q", city.ID))
			continue
		}
		c.cities[city.ID] = city
		c.cityIDs = append(c.cityIDs, city.ID)
	}
	sort.Strings(c.cityIDs)

	for _, p := range f.Presets {
		preset, err := p.toPreset()
		if err != nil {
			errs = append(errs, fmt.Errorf("vehicle preset %q: %w", p.Name, err))
			continue
		}
		if _, dup := c.presets[preset.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate vehicle preset %q", preset.Name))
			continue
		}
		c.presets[preset.Name] = preset
		c.presetNames = append(c.presetNames, preset.Name)
	}
	sort.Strings(c.presetNames)

	seen := make(map[string]bool, len(f.Strategies)+len(f.Combinations))
	checkStrategy := func(kind string, s emissions.OptimizationStrategy) bool {
		switch {
		case s.Name == "":
			errs = append(errs, fmt.Errorf("%s with empty name", kind))
		case seen[s.Name]:
			errs = append(errs, fmt.Errorf("duplicate strategy %q", s.Name))
		case !(s.ReductionFactor >= 0 && s.ReductionFactor <= 1):
			errs = append(errs, fmt.Errorf("%s %q: %w", kind, s.Name,
				emissions.NewInvalidInputError("reductionFactor", s.ReductionFactor, "must be between 0 and 1")))
		default:
			seen[s.Name] = true
			return true
		}
		return false
	}
	for _, s := range f.Strategies {
		if checkStrategy("strategy", s) {
			c.strategies = append(c.strategies, s)
		}
	}
	for _, s := range f.Combinations {
		if checkStrategy("combination", s) {
			c.combinations = append(c.combinations, s)
		}
	}
	table, err := emissions.StrategyMap(append(append([]emissions.OptimizationStrategy(nil), c.strategies...), c.combinations...))
	if err != nil {
		errs = append(errs, err)
	}
	c.table = table

	for _, r := range f.Routes {
		if err := c.checkRoute(r); err != nil {
			errs = append(errs, fmt.Errorf("route %q: %w", r.ID, err))
			continue
		}
		key := pair{r.Origin, r.Destination}
		c.routeIndex[r.ID] = len(c.routes)
		c.pairs[key] = append(c.pairs[key], len(c.routes))
		c.routes = append(c.routes, r.Clone())
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

func (p presetFile) toPreset() (VehiclePreset, error) {
	if p.Name == "" {
		return VehiclePreset{}, errors.New("name is required")
	}
	v, err := emissions.ParseVehicle(p.Category, p.Subtype)
	if err != nil {
		return VehiclePreset{}, err
	}
	profile := emissions.VehicleProfile{
		Vehicle:     v,
		Efficiency:  p.Efficiency,
		Capacity:    p.Capacity,
		Utilization: p.Utilization,
	}
	if err := profile.Validate(); err != nil {
		return VehiclePreset{}, err
	}
	if !(p.CargoWeight >= 0) {
		return VehiclePreset{}, emissions.NewInvalidInputError("cargoWeight", p.CargoWeight, "must not be negative")
	}
	return VehiclePreset{
		Name:        p.Name,
		Description: p.Description,
		Profile:     profile,
		CargoWeight: p.CargoWeight,
	}, nil
}

func (c *Catalog) checkRoute(r ranking.RouteRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if _, dup := c.routeIndex[r.ID]; dup {
		return errors.New("duplicate route id")
	}
	if _, ok := c.cities[r.Origin]; !ok {
		return fmt.Errorf("unknown origin city %q", r.Origin)
	}
	if _, ok := c.cities[r.Destination]; !ok {
		return fmt.Errorf("unknown destination city %q", r.Destination)
	}
	if r.Origin == r.Destination {
		return errors.New("origin and destination are the same city")
	}
	return nil
}

// Cities returns the city directory sorted by ID.
func (c *Catalog) Cities() []City {
	out := make([]City, 0, len(c.cityIDs))
	for _, id := range c.cityIDs {
		out = append(out, c.cities[id])
	}
	return out
}

// City looks up a city by ID.
func (c *Catalog) City(id string) (City, bool) {
	city, ok := c.cities[id]
	return city, ok
}

// Routes returns every record for the pair in catalog order.
func (c *Catalog) Routes(origin, destination string) []ranking.RouteRecord {
	idx := c.pairs[pair{origin, destination}]
	out := make([]ranking.RouteRecord, 0, len(idx))
	for _, i := range idx {
		out = append(out, c.routes[i].Clone())
	}
	return out
}

// AllRoutes returns every route in catalog order.
func (c *Catalog) AllRoutes() []ranking.RouteRecord {
	out := make([]ranking.RouteRecord, 0, len(c.routes))
	for _, r := range c.routes {
		out = append(out, r.Clone())
	}
	return out
}

// Route looks up a route by ID.
func (c *Catalog) Route(id string) (ranking.RouteRecord, bool) {
	i, ok := c.routeIndex[id]
	if !ok {
		return ranking.RouteRecord{}, false
	}
	return c.routes[i].Clone(), true
}

// CurrentRoute returns the first record listed for the pair.
func (c *Catalog) CurrentRoute(origin, destination string) (ranking.RouteRecord, bool) {
	idx := c.pairs[pair{origin, destination}]
	if len(idx) == 0 {
		return ranking.RouteRecord{}, false
	}
	return c.routes[idx[0]].Clone(), true
}

// VehiclePresets returns the presets sorted by name.
func (c *Catalog) VehiclePresets() []VehiclePreset {
	out := make([]VehiclePreset, 0, len(c.presetNames))
	for _, name := range c.presetNames {
		out = append(out, c.presets[name])
	}
	return out
}

// VehiclePreset looks up a preset by name, case-insensitively.
func (c *Catalog) VehiclePreset(name string) (VehiclePreset, error) {
	if p, ok := c.presets[name]; ok {
		return p, nil
	}
	for _, n := range c.presetNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return c.presets[n], nil
		}
	}
	return VehiclePreset{}, emissions.NewInvalidInputError("preset", name,
		"must be one of "+strings.Join(c.presetNames, ", "))
}

// Strategies returns the individual strategies in catalog order.
func (c *Catalog) Strategies() []emissions.OptimizationStrategy {
	return append([]emissions.OptimizationStrategy(nil), c.strategies...)
}

// Combinations returns the curated strategy combinations in catalog order.
// Their factors are independent constants, not derived from the individual
// strategies.
func (c *Catalog) Combinations() []emissions.OptimizationStrategy {
	return append([]emissions.OptimizationStrategy(nil), c.combinations...)
}

// IsCombination reports whether name is a curated combination.
func (c *Catalog) IsCombination(name string) bool {
	for _, s := range c.combinations {
		if s.Name == name {
			return true
		}
	}
	return false
}

// StrategyTable returns individual strategies and combinations as one map.
func (c *Catalog) StrategyTable() map[string]float64 {
	return maps.Clone(c.table)
}
