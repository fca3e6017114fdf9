// Package catalog holds the fixed reference data of known markets and
// commodities. A Catalog is built once at start-up and never mutated, so a
// single instance can be shared by every request.
package catalog

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"marketsense/internal/model"
)

// MarketDefinition is a market as written in a catalog file.
type MarketDefinition struct {
	model.Market `yaml:",inline"`
	Aliases      []string `yaml:"aliases"`
}

// CommodityDefinition is a commodity as written in a catalog file.
type CommodityDefinition struct {
	model.Commodity `yaml:",inline"`
	Aliases         []string `yaml:"aliases"`
}

// Definition is the raw catalog content before validation.
type Definition struct {
	Markets     []MarketDefinition            `yaml:"markets"`
	Commodities []CommodityDefinition         `yaml:"commodities"`
	Modifiers   map[string]map[string]float64 `yaml:"modifiers"`
}

// Catalog is the validated, read-only set of markets and commodities.
type Catalog struct {
	markets        []model.Market
	marketIndex    map[string]int
	commodities    []model.Commodity
	commodityIndex map[string]int
	modifiers      map[string]map[string]float64
	regions        []string

	marketAliases    map[string]string
	commodityAliases map[string]string
}

// New validates def and builds a Catalog from it. Markets and commodities
// keep the order they were defined in.
func New(def Definition) (*Catalog, error) {
	if len(def.Markets) == 0 {
		return nil, fmt.Errorf("%w: no markets defined", ErrInvalid)
	}
	if len(def.Commodities) == 0 {
		return nil, fmt.Errorf("%w: no commodities defined", ErrInvalid)
	}

	c := &Catalog{
		marketIndex:      make(map[string]int, len(def.Markets)),
		commodityIndex:   make(map[string]int, len(def.Commodities)),
		modifiers:        make(map[string]map[string]float64, len(def.Modifiers)),
		marketAliases:    make(map[string]string),
		commodityAliases: make(map[string]string),
	}

	regionSet := make(map[string]struct{})
	for _, m := range def.Markets {
		if strings.TrimSpace(m.Name) == "" {
			return nil, fmt.Errorf("%w: market name is empty", ErrInvalid)
		}
		if m.Region == "" || m.State == "" {
			return nil, fmt.Errorf("%w: market %q needs both state and region", ErrInvalid, m.Name)
		}
		if _, dup := c.marketIndex[m.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate market %q", ErrInvalid, m.Name)
		}
		c.marketIndex[m.Name] = len(c.markets)
		c.markets = append(c.markets, m.Market)
		regionSet[m.Region] = struct{}{}

		if err := addAliases(c.marketAliases, m.Name, m.Aliases); err != nil {
			return nil, err
		}
	}

	for _, cd := range def.Commodities {
		if strings.TrimSpace(cd.Name) == "" {
			return nil, fmt.Errorf("%w: commodity name is empty", ErrInvalid)
		}
		if _, dup := c.commodityIndex[cd.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate commodity %q", ErrInvalid, cd.Name)
		}
		if cd.BasePrice <= 0 {
			return nil, fmt.Errorf("%w: commodity %q base price must be positive, got %d", ErrInvalid, cd.Name, cd.BasePrice)
		}
		// A volatility of 1 or more lets the fluctuation reach zero or below.
		if cd.Volatility < 0 || cd.Volatility >= 1 {
			return nil, fmt.Errorf("%w: commodity %q volatility must be in [0, 1), got %v", ErrInvalid, cd.Name, cd.Volatility)
		}
		c.commodityIndex[cd.Name] = len(c.commodities)
		c.commodities = append(c.commodities, cd.Commodity)

		if err := addAliases(c.commodityAliases, cd.Name, cd.Aliases); err != nil {
			return nil, err
		}
	}

	for commodity, rules := range def.Modifiers {
		if _, ok := c.commodityIndex[commodity]; !ok {
			return nil, fmt.Errorf("%w: modifier for unknown commodity %q", ErrInvalid, commodity)
		}
		table := make(map[string]float64, len(rules))
		for region, factor := range rules {
			if _, ok := regionSet[region]; !ok {
				return nil, fmt.Errorf("%w: modifier for %q names unknown region %q", ErrInvalid, commodity, region)
			}
			if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
				return nil, fmt.Errorf("%w: modifier for %q in %q must be positive, got %v", ErrInvalid, commodity, region, factor)
			}
			table[region] = factor
		}
		c.modifiers[commodity] = table
	}

	for region := range regionSet {
		c.regions = append(c.regions, region)
	}
	sort.Strings(c.regions)

	return c, nil
}

func addAliases(index map[string]string, name string, aliases []string) error {
	for _, a := range append([]string{name}, aliases...) {
		key := normalize(a)
		if key == "" {
			continue
		}
		if existing, ok := index[key]; ok && existing != name {
			return fmt.Errorf("%w: alias %q used by both %q and %q", ErrInvalid, a, existing, name)
		}
		index[key] = name
	}
	return nil
}

// Market returns the market with exactly this name.
func (c *Catalog) Market(name string) (model.Market, error) {
	i, ok := c.marketIndex[name]
	if !ok {
		return model.Market{}, fmt.Errorf("%w: market %q", ErrNotFound, name)
	}
	return c.markets[i], nil
}

// Commodity returns the commodity with exactly this name.
func (c *Catalog) Commodity(name string) (model.Commodity, error) {
	i, ok := c.commodityIndex[name]
	if !ok {
		return model.Commodity{}, fmt.Errorf("%w: commodity %q", ErrNotFound, name)
	}
	return c.commodities[i], nil
}

// Markets returns every market in catalog order.
func (c *Catalog) Markets() []model.Market {
	out := make([]model.Market, len(c.markets))
	copy(out, c.markets)
	return out
}

// Commodities returns every commodity in catalog order.
func (c *Catalog) Commodities() []model.Commodity {
	out := make([]model.Commodity, len(c.commodities))
	copy(out, c.commodities)
	return out
}

// MarketNames returns the market names in catalog order.
func (c *Catalog) MarketNames() []string {
	names := make([]string, len(c.markets))
	for i, m := range c.markets {
		names[i] = m.Name
	}
	return names
}

// CommodityNames returns the commodity names in catalog order.
func (c *Catalog) CommodityNames() []string {
	names := make([]string, len(c.commodities))
	for i, cd := range c.commodities {
		names[i] = cd.Name
	}
	return names
}

// Regions returns the distinct regions, sorted.
func (c *Catalog) Regions() []string {
	out := make([]string, len(c.regions))
	copy(out, c.regions)
	return out
}

// Modifier returns the regional price multiplier for a commodity, 1.0 when
// no rule exists.
func (c *Catalog) Modifier(commodity, region string) float64 {
	if f, ok := c.modifiers[commodity][region]; ok {
		return f
	}
	return 1.0
}

// ModifierBounds returns the smallest and largest multiplier that applies to
// the commodity in any region that has a market.
func (c *Catalog) ModifierBounds(commodity string) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, region := range c.regions {
		f := c.Modifier(commodity, region)
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}
	return lo, hi
}

// CanonicalMarket maps free text such as "mile twelve" to a market name.
func (c *Catalog) CanonicalMarket(s string) (string, bool) {
	return lookupAlias(c.marketAliases, s)
}

// CanonicalCommodity maps free text such as "tomatoes" to a commodity name.
func (c *Catalog) CanonicalCommodity(s string) (string, bool) {
	return lookupAlias(c.commodityAliases, s)
}

func lookupAlias(index map[string]string, s string) (string, bool) {
	key := normalize(s)
	if key == "" {
		return "", false
	}
	if name, ok := index[key]; ok {
		return name, true
	}
	if trimmed := strings.TrimSuffix(key, "s"); trimmed != key {
		if name, ok := index[trimmed]; ok {
			return name, true
		}
	}
	return "", false
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
