package arbitrage

import (
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"marketsense/internal/catalog"
	"marketsense/internal/model"
)

// RandomSource supplies uniform draws in [0, 1]. Implementations used by a
// shared Simulator must be safe for concurrent use.
type RandomSource interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// NewRandomSource returns the process-wide generator, which is safe for
// concurrent use and seeded from system entropy.
func NewRandomSource() RandomSource {
	return globalSource{}
}

// Simulator derives a current price for a market and commodity from the
// commodity's base price, its volatility and the market's regional modifier.
type Simulator struct {
	catalog *catalog.Catalog
	rand    RandomSource
}

// NewSimulator creates a Simulator. A nil source uses NewRandomSource.
func NewSimulator(cat *catalog.Catalog, src RandomSource) *Simulator {
	if src == nil {
		src = NewRandomSource()
	}
	return &Simulator{
		catalog: cat,
		rand:    src,
	}
}

// Catalog returns the catalog prices are derived from.
func (s *Simulator) Catalog() *catalog.Catalog {
	return s.catalog
}

// SimulatePrice returns floor(base * fluctuation * modifier) where the
// fluctuation is drawn uniformly from [1-volatility, 1+volatility].
func (s *Simulator) SimulatePrice(marketName, commodityName string) (int, error) {
	market, commodity, err := s.lookup(marketName, commodityName)
	if err != nil {
		return 0, err
	}
	return s.simulate(market, commodity), nil
}

// Range returns the lowest and highest price SimulatePrice can return for the
// pair.
func (s *Simulator) Range(marketName, commodityName string) (lo, hi int, err error) {
	market, commodity, err := s.lookup(marketName, commodityName)
	if err != nil {
		return 0, 0, err
	}
	return s.price(market, commodity, 0), s.price(market, commodity, 1), nil
}

func (s *Simulator) lookup(marketName, commodityName string) (model.Market, model.Commodity, error) {
	market, err := s.catalog.Market(marketName)
	if err != nil {
		return model.Market{}, model.Commodity{}, err
	}
	commodity, err := s.catalog.Commodity(commodityName)
	if err != nil {
		return model.Market{}, model.Commodity{}, err
	}
	return market, commodity, nil
}

func (s *Simulator) simulate(market model.Market, commodity model.Commodity) int {
	u := s.rand.Float64()
	if u < 0 {
		u = 0
	} else if u > 1 {
		u = 1
	}
	return s.price(market, commodity, u)
}

// price maps a draw u in [0, 1] onto the fluctuation interval. Decimal
// arithmetic keeps products like 75000 * 0.95 exact before flooring.
func (s *Simulator) price(market model.Market, commodity model.Commodity, u float64) int {
	one := decimal.NewFromInt(1)
	volatility := decimal.NewFromFloat(commodity.Volatility)
	low := one.Sub(volatility)
	span := volatility.Add(volatility)

	fluctuation := low.Add(span.Mul(decimal.NewFromFloat(u)))
	modifier := decimal.NewFromFloat(s.catalog.Modifier(commodity.Name, market.Region))

	return int(decimal.NewFromInt(int64(commodity.BasePrice)).
		Mul(fluctuation).
		Mul(modifier).
		Floor().
		IntPart())
}
