package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsense/internal/arbitrage"
	"marketsense/internal/catalog"
	"marketsense/internal/model"
)

func sampleReport() *model.ArbitrageReport {
	entries := []model.PriceEntry{
		{Market: "Dawanau", State: "Kano", Price: 31500},
		{Market: "Wuse", State: "Abuja", Price: 45000},
		{Market: "Mile 12", State: "Lagos", Price: 54000},
	}
	return &model.ArbitrageReport{
		Commodity:     "Tomato",
		Unit:          "Basket (Big)",
		Cheapest:      entries[0],
		MostExpensive: entries[2],
		AllPrices:     entries,
		Spread:        22500,
	}
}

func TestReport(t *testing.T) {
	out := Report(sampleReport())

	assert.Contains(t, out, "Tomato (Basket (Big))")
	assert.Contains(t, out, "Spread: ₦22,500")

	dawanau := strings.Index(out, "Dawanau")
	mile12 := strings.Index(out, "Mile 12")
	require.NotEqual(t, -1, dawanau)
	require.NotEqual(t, -1, mile12)
	assert.Less(t, dawanau, mile12, "cheapest market is listed first")
	assert.Contains(t, out, "₦31,500")
	assert.Contains(t, out, "₦54,000")
}

func TestAnswer(t *testing.T) {
	t.Run("quote", func(t *testing.T) {
		out := Answer(&model.Answer{
			Quote:         &model.PriceQuote{Market: "Mile 12", Commodity: "Rice", Unit: "Bag (50kg)", Price: 75000},
			TransportCost: 5000,
			Advice:        "Rice dey 75k today.",
			AudioPath:     "/tmp/answer.mp3",
		})

		assert.Contains(t, out, "Rice @ Mile 12")
		assert.Contains(t, out, "₦75,000")
		assert.Contains(t, out, "per Bag (50kg)")
		assert.Contains(t, out, "Transport (avg): ₦5,000")
		assert.Contains(t, out, "Rice dey 75k today.")
		assert.Contains(t, out, "Audio: /tmp/answer.mp3")
		assert.NotContains(t, out, "Price trend")
	})

	t.Run("scan with trend", func(t *testing.T) {
		out := Answer(&model.Answer{
			Report: sampleReport(),
			Trend:  arbitrage.Trend(31500),
		})

		assert.Contains(t, out, "Spread: ₦22,500")
		assert.Contains(t, out, "Price trend")
		assert.Contains(t, out, "Today")
		assert.NotContains(t, out, "Audio:")
	})

	t.Run("remote audio and notice", func(t *testing.T) {
		out := Answer(&model.Answer{
			Quote:     &model.PriceQuote{Market: "Bodija", Commodity: "Yam", Unit: "Tuber (Large)", Price: 3850},
			AudioPath: "/var/tmp/server-side.mp3",
			AudioURL:  "http://localhost:8080/v1/answers/a1/audio",
			Notice:    "Speech unavailable.",
		})

		assert.Contains(t, out, "Audio: http://localhost:8080/v1/answers/a1/audio")
		assert.NotContains(t, out, "server-side.mp3")
		assert.Contains(t, out, "Speech unavailable.")
	})
}

func TestTrend(t *testing.T) {
	out := Trend(arbitrage.Trend(50000))
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 8)

	bars := make(map[string]int)
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		bars[fields[0]] = strings.Count(line, "█")
	}

	assert.Equal(t, trendBarWidth, bars["Fri"], "highest price fills the bar")
	assert.Equal(t, 45000*trendBarWidth/52500, bars["Mon"])
	assert.Less(t, bars["Mon"], bars["Today"])
}

func TestCatalog(t *testing.T) {
	out := Catalog(catalog.Default())

	for _, name := range []string{"Mile 12", "Dawanau", "north-west", "Tomato", "Palm Oil", "₦75,000", "20%"} {
		assert.Contains(t, out, name)
	}
}

func TestHistory(t *testing.T) {
	assert.Equal(t, MutedStyle.Render("No recent checks."), History(nil))

	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	out := History([]model.Answer{
		{
			Intent:    model.Intent{Commodity: "Tomato"},
			Report:    sampleReport(),
			Timestamp: at,
		},
		{
			Intent:    model.Intent{Commodity: "Rice", Market: "Mile 12"},
			Quote:     &model.PriceQuote{Market: "Mile 12", Commodity: "Rice", Price: 75000},
			Timestamp: at.Add(-time.Minute),
		},
	})

	assert.Contains(t, out, "09:30:00")
	assert.Contains(t, out, "Tomato, cheapest at Dawanau: ₦31,500")
	assert.Contains(t, out, "Rice, Mile 12: ₦75,000")
	assert.Less(t, strings.Index(out, "Tomato"), strings.Index(out, "Rice"))
}

func TestError(t *testing.T) {
	assert.Contains(t, Error("Network no gree."), "Network no gree.")
}
