package arbitrage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsense/internal/catalog"
)

func TestSimulatePrice(t *testing.T) {
	cat := catalog.Default()

	t.Run("every pair stays within its volatility band", func(t *testing.T) {
		sim := NewSimulator(cat, newSeededSource(42))
		for _, c := range cat.Commodities() {
			modLo, modHi := cat.ModifierBounds(c.Name)
			lower := int(math.Floor(float64(c.BasePrice)*(1-c.Volatility)*modLo)) - 1
			upper := int(math.Floor(float64(c.BasePrice)*(1+c.Volatility)*modHi)) + 1

			for _, m := range cat.Markets() {
				lo, hi, err := sim.Range(m.Name, c.Name)
				require.NoError(t, err)

				for i := 0; i < 200; i++ {
					price, err := sim.SimulatePrice(m.Name, c.Name)
					require.NoError(t, err)
					require.GreaterOrEqual(t, price, lo, "%s at %s", c.Name, m.Name)
					require.LessOrEqual(t, price, hi, "%s at %s", c.Name, m.Name)
					require.Greater(t, price, lower)
					require.Less(t, price, upper)
				}
			}
		}
	})

	t.Run("draw ends map to exact bounds", func(t *testing.T) {
		low, err := NewSimulator(cat, fixedSource(0)).SimulatePrice("Mile 12", "Rice")
		require.NoError(t, err)
		assert.Equal(t, 71250, low)

		high, err := NewSimulator(cat, fixedSource(1)).SimulatePrice("Mile 12", "Rice")
		require.NoError(t, err)
		assert.Equal(t, 78750, high)

		lo, hi, err := NewSimulator(cat, nil).Range("Mile 12", "Rice")
		require.NoError(t, err)
		assert.Equal(t, 71250, lo)
		assert.Equal(t, 78750, hi)
	})

	t.Run("regional modifier applies", func(t *testing.T) {
		sim := NewSimulator(cat, fixedSource(0.5))

		tests := []struct {
			market string
			want   int
		}{
			{"Dawanau", 31500},
			{"Mile 12", 54000},
			{"Bodija", 54000},
			{"Ogbete", 45000},
			{"Wuse", 45000},
		}
		for _, tt := range tests {
			price, err := sim.SimulatePrice(tt.market, "Tomato")
			require.NoError(t, err)
			assert.Equal(t, tt.want, price, tt.market)
		}
	})

	t.Run("tomato north and south-west ranges do not overlap", func(t *testing.T) {
		sim := NewSimulator(cat, nil)
		_, northHi, err := sim.Range("Dawanau", "Tomato")
		require.NoError(t, err)
		southLo, _, err := sim.Range("Mile 12", "Tomato")
		require.NoError(t, err)

		assert.Equal(t, 37800, northHi)
		assert.Equal(t, 43200, southLo)
		assert.Less(t, northHi, southLo)
	})

	t.Run("out of range draws are clamped", func(t *testing.T) {
		over, err := NewSimulator(cat, fixedSource(7)).SimulatePrice("Wuse", "Garri")
		require.NoError(t, err)
		assert.Equal(t, 2750, over)

		under, err := NewSimulator(cat, fixedSource(-3)).SimulatePrice("Wuse", "Garri")
		require.NoError(t, err)
		assert.Equal(t, 2250, under)
	})

	t.Run("unknown names", func(t *testing.T) {
		sim := NewSimulator(cat, nil)

		_, err := sim.SimulatePrice("Unknown Market", "Rice")
		assert.ErrorIs(t, err, catalog.ErrNotFound)

		_, err = sim.SimulatePrice("Mile 12", "Unknown Commodity")
		assert.ErrorIs(t, err, catalog.ErrNotFound)

		_, _, err = sim.Range("Mile 12", "Unknown Commodity")
		assert.ErrorIs(t, err, catalog.ErrNotFound)
	})
}
