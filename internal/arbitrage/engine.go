package arbitrage

import (
	"log/slog"
	"sort"
	"time"

	"marketsense/internal/catalog"
	"marketsense/internal/model"
)

// Scanner answers price questions for a single market or across every
// market in the catalog.
type Scanner struct {
	logger    *slog.Logger
	catalog   *catalog.Catalog
	simulator *Simulator
	now       func() time.Time
}

// NewScanner creates a new Scanner over the simulator's catalog.
func NewScanner(logger *slog.Logger, sim *Simulator) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		logger:    logger,
		catalog:   sim.Catalog(),
		simulator: sim,
		now:       time.Now,
	}
}

// GetMarketPrice returns a freshly simulated quote. Unknown markets or
// commodities return an error wrapping catalog.ErrNotFound.
func (s *Scanner) GetMarketPrice(marketName, commodityName string) (*model.PriceQuote, error) {
	market, commodity, err := s.simulator.lookup(marketName, commodityName)
	if err != nil {
		return nil, err
	}

	quote := &model.PriceQuote{
		Market:    market.Name,
		Commodity: commodity.Name,
		Unit:      commodity.Unit,
		Price:     s.simulator.simulate(market, commodity),
		Timestamp: s.now(),
	}

	s.logger.Debug("Simulated market price",
		"market", quote.Market,
		"commodity", quote.Commodity,
		"price", quote.Price,
	)
	return quote, nil
}

// GetArbitrageScan prices the commodity in every market, ranks the markets
// from cheapest to most expensive and reports the spread between the ends.
func (s *Scanner) GetArbitrageScan(commodityName string) (*model.ArbitrageReport, error) {
	commodity, err := s.catalog.Commodity(commodityName)
	if err != nil {
		return nil, err
	}

	markets := s.catalog.Markets()
	prices := make([]model.PriceEntry, 0, len(markets))
	for _, market := range markets {
		prices = append(prices, model.PriceEntry{
			Market: market.Name,
			Price:  s.simulator.simulate(market, commodity),
			State:  market.State,
		})
	}

	// Equal prices keep catalog order.
	sort.SliceStable(prices, func(i, j int) bool {
		return prices[i].Price < prices[j].Price
	})

	cheapest := prices[0]
	mostExpensive := prices[len(prices)-1]
	report := &model.ArbitrageReport{
		Commodity:     commodity.Name,
		Unit:          commodity.Unit,
		Cheapest:      cheapest,
		MostExpensive: mostExpensive,
		AllPrices:     prices,
		Spread:        mostExpensive.Price - cheapest.Price,
		Timestamp:     s.now(),
	}

	s.logger.Debug("Arbitrage scan complete",
		"commodity", report.Commodity,
		"buyMarket", cheapest.Market,
		"sellMarket", mostExpensive.Market,
		"spread", report.Spread,
	)
	return report, nil
}
