package arbitrage

import (
	"log/slog"
	"math/rand/v2"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsense/internal/catalog"
	"marketsense/internal/model"
)

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

// lockedSource makes a seeded generator safe to share between goroutines.
type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newSeededSource(seed uint64) *lockedSource {
	return &lockedSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *lockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func newTestScanner(t *testing.T, src RandomSource) *Scanner {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cat := catalog.Default()
	return NewScanner(logger, NewSimulator(cat, src))
}

func TestScanner_GetMarketPrice(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	t.Run("known pair", func(t *testing.T) {
		scanner := newTestScanner(t, newSeededSource(1))
		scanner.now = func() time.Time { return fixed }

		quote, err := scanner.GetMarketPrice("Mile 12", "Rice")
		require.NoError(t, err)
		assert.Equal(t, "Mile 12", quote.Market)
		assert.Equal(t, "Rice", quote.Commodity)
		assert.Equal(t, "Bag (50kg)", quote.Unit)
		assert.Equal(t, fixed, quote.Timestamp)
		assert.GreaterOrEqual(t, quote.Price, 71250)
		assert.LessOrEqual(t, quote.Price, 78750)
	})

	t.Run("rice at mile 12 stays in band", func(t *testing.T) {
		scanner := newTestScanner(t, nil)
		for i := 0; i < 500; i++ {
			quote, err := scanner.GetMarketPrice("Mile 12", "Rice")
			require.NoError(t, err)
			require.GreaterOrEqual(t, quote.Price, 71250)
			require.LessOrEqual(t, quote.Price, 78750)
		}
	})

	t.Run("unknown market", func(t *testing.T) {
		scanner := newTestScanner(t, nil)
		quote, err := scanner.GetMarketPrice("Unknown Market", "Rice")
		assert.ErrorIs(t, err, catalog.ErrNotFound)
		assert.Nil(t, quote)
	})

	t.Run("unknown commodity", func(t *testing.T) {
		scanner := newTestScanner(t, nil)
		quote, err := scanner.GetMarketPrice("Mile 12", "Unknown Commodity")
		assert.ErrorIs(t, err, catalog.ErrNotFound)
		assert.Nil(t, quote)
	})
}

func TestScanner_GetArbitrageScan(t *testing.T) {
	cat := catalog.Default()

	t.Run("invariants hold for every commodity", func(t *testing.T) {
		scanner := newTestScanner(t, newSeededSource(7))
		for _, commodity := range cat.CommodityNames() {
			for i := 0; i < 100; i++ {
				report, err := scanner.GetArbitrageScan(commodity)
				require.NoError(t, err)
				assertReportShape(t, cat, report)
			}
		}
	})

	t.Run("same markets on every call", func(t *testing.T) {
		scanner := newTestScanner(t, nil)
		first, err := scanner.GetArbitrageScan("Yam")
		require.NoError(t, err)
		second, err := scanner.GetArbitrageScan("Yam")
		require.NoError(t, err)

		assert.ElementsMatch(t, marketNames(first), marketNames(second))
	})

	t.Run("tomato is structurally cheaper up north", func(t *testing.T) {
		scanner := newTestScanner(t, newSeededSource(3))
		for i := 0; i < 200; i++ {
			report, err := scanner.GetArbitrageScan("Tomato")
			require.NoError(t, err)

			prices := priceByMarket(report)
			for _, m := range cat.Markets() {
				if m.Region == "south-west" {
					require.Less(t, prices["Dawanau"], prices[m.Name], "Dawanau vs %s", m.Name)
				}
			}
		}
	})

	t.Run("ties keep catalog order", func(t *testing.T) {
		scanner := newTestScanner(t, fixedSource(0.5))
		report, err := scanner.GetArbitrageScan("Rice")
		require.NoError(t, err)

		assert.Equal(t, cat.MarketNames(), marketNames(report))
		assert.Equal(t, "Mile 12", report.Cheapest.Market)
		assert.Equal(t, "Dawanau", report.MostExpensive.Market)
		assert.Equal(t, 0, report.Spread)
		assert.Equal(t, 75000, report.Cheapest.Price)
	})

	t.Run("fixed draw exposes regional modifiers", func(t *testing.T) {
		scanner := newTestScanner(t, fixedSource(0.5))
		report, err := scanner.GetArbitrageScan("Tomato")
		require.NoError(t, err)

		assert.Equal(t, model.PriceEntry{Market: "Dawanau", Price: 31500, State: "Kano"}, report.Cheapest)
		// Mile 12, Alaba Rago and Bodija tie at 54000; the last of them is the most expensive.
		assert.Equal(t, model.PriceEntry{Market: "Bodija", Price: 54000, State: "Oyo"}, report.MostExpensive)
		assert.Equal(t, report.AllPrices[len(report.AllPrices)-1], report.MostExpensive)
		assert.Equal(t, 22500, report.Spread)
		assert.Equal(t, "Basket (Big)", report.Unit)
	})

	t.Run("unknown commodity", func(t *testing.T) {
		scanner := newTestScanner(t, nil)
		report, err := scanner.GetArbitrageScan("Unknown Commodity")
		assert.ErrorIs(t, err, catalog.ErrNotFound)
		assert.Nil(t, report)
	})

	t.Run("safe for concurrent scans", func(t *testing.T) {
		scanner := newTestScanner(t, nil)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					report, err := scanner.GetArbitrageScan("Garri")
					if assert.NoError(t, err) {
						assert.GreaterOrEqual(t, report.Spread, 0)
					}
				}
			}()
		}
		wg.Wait()
	})
}

func assertReportShape(t *testing.T, cat *catalog.Catalog, report *model.ArbitrageReport) {
	t.Helper()

	require.Len(t, report.AllPrices, len(cat.Markets()))
	assert.ElementsMatch(t, cat.MarketNames(), marketNames(report))

	for i := 1; i < len(report.AllPrices); i++ {
		assert.LessOrEqual(t, report.AllPrices[i-1].Price, report.AllPrices[i].Price)
	}

	assert.Equal(t, report.AllPrices[0], report.Cheapest)
	assert.Equal(t, report.AllPrices[len(report.AllPrices)-1], report.MostExpensive)
	assert.Equal(t, report.MostExpensive.Price-report.Cheapest.Price, report.Spread)
	assert.GreaterOrEqual(t, report.Spread, 0)

	for _, entry := range report.AllPrices {
		m, err := cat.Market(entry.Market)
		require.NoError(t, err)
		assert.Equal(t, m.State, entry.State)
	}
}

func TestScanner_ScansSimulatorCatalog(t *testing.T) {
	cat, err := catalog.New(catalog.Definition{
		Markets: []catalog.MarketDefinition{
			{Market: model.Market{Name: "Oja Oba", State: "Ondo", Region: "south-west"}},
			{Market: model.Market{Name: "Kurmi", State: "Kano", Region: "north-west"}},
		},
		Commodities: []catalog.CommodityDefinition{
			{Commodity: model.Commodity{Name: "Beans", Unit: "Mudu", BasePrice: 2000, Volatility: 0.1}},
		},
		Modifiers: map[string]map[string]float64{"Beans": {"north-west": 0.5}},
	})
	require.NoError(t, err)

	scanner := NewScanner(nil, NewSimulator(cat, fixedSource(0.5)))

	report, err := scanner.GetArbitrageScan("Beans")
	require.NoError(t, err)
	assert.Equal(t, []string{"Kurmi", "Oja Oba"}, marketNames(report))
	assert.Equal(t, 1000, report.Spread)

	_, err = scanner.GetArbitrageScan("Tomato")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	quote, err := scanner.GetMarketPrice("Oja Oba", "Beans")
	require.NoError(t, err)
	assert.Equal(t, 2000, quote.Price)
}

func marketNames(report *model.ArbitrageReport) []string {
	names := make([]string, len(report.AllPrices))
	for i, e := range report.AllPrices {
		names[i] = e.Market
	}
	return names
}

func priceByMarket(report *model.ArbitrageReport) map[string]int {
	out := make(map[string]int, len(report.AllPrices))
	for _, e := range report.AllPrices {
		out[e.Market] = e.Price
	}
	return out
}

func TestLogistics(t *testing.T) {
	assert.Equal(t, DefaultTransportCost, NewLogistics(0).TransportCost("Ikeja", "Mile 12"))
	assert.Equal(t, 12000, NewLogistics(12000).TransportCost("Ikeja", "Dawanau"))
}

func TestTrend(t *testing.T) {
	points := Trend(50000)

	require.Len(t, points, 7)
	assert.Equal(t, model.TrendPoint{Day: "Mon", Price: 45000}, points[0])
	assert.Equal(t, model.TrendPoint{Day: "Fri", Price: 52500}, points[4])
	assert.Equal(t, model.TrendPoint{Day: "Today", Price: 50000}, points[6])
}
