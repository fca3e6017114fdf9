package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsense/internal/catalog"
	"marketsense/internal/model"
)

func TestOfflineProvider_Resolve(t *testing.T) {
	p := NewOfflineProvider(nil, catalog.Default())

	tests := []struct {
		text      string
		commodity string
		market    string
	}{
		{"How much be rice for Mile 12?", "Rice", "Mile 12"},
		{"Wetin be price of tomatoes for mile twelve market", "Tomato", "Mile 12"},
		{"Where I fit buy gari cheap?", "Garri", ""},
		{"red oil for Ogbete", "Palm Oil", "Ogbete"},
		{"Ibadan yam price", "Yam", "Bodija"},
		{"Good morning o", "", ""},
		{"How much for Wuse?", "", "Wuse"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			intent, err := p.Resolve(context.Background(), Utterance{Text: tt.text})
			require.NoError(t, err)
			assert.Equal(t, tt.commodity, intent.Commodity)
			assert.Equal(t, tt.market, intent.Market)
			assert.Equal(t, tt.text, intent.OriginalIntent)
		})
	}

	t.Run("audio", func(t *testing.T) {
		_, err := p.Resolve(context.Background(), Utterance{Audio: []byte{1, 2, 3}})
		assert.ErrorIs(t, err, ErrAudioUnsupported)
	})
}

func TestOfflineProvider_Advise(t *testing.T) {
	p := NewOfflineProvider(nil, catalog.Default())
	ctx := context.Background()

	t.Run("quote", func(t *testing.T) {
		advice, err := p.Advise(ctx, InsightRequest{
			Quote:         &model.PriceQuote{Market: "Mile 12", Commodity: "Rice", Unit: "Bag (50kg)", Price: 75000},
			TransportCost: 5000,
		})
		require.NoError(t, err)
		assert.Contains(t, advice, "Rice for Mile 12 na ₦75,000 per Bag (50kg)")
		assert.Contains(t, advice, "₦5,000")
	})

	report := &model.ArbitrageReport{
		Commodity:     "Tomato",
		Unit:          "Basket (Big)",
		Cheapest:      model.PriceEntry{Market: "Dawanau", Price: 31500, State: "Kano"},
		MostExpensive: model.PriceEntry{Market: "Mile 12", Price: 54000, State: "Lagos"},
		Spread:        22500,
	}

	t.Run("scan worth the trip", func(t *testing.T) {
		advice, err := p.Advise(ctx, InsightRequest{Report: report, TransportCost: 5000})
		require.NoError(t, err)
		assert.Contains(t, advice, "buy for Dawanau carry go sell for Mile 12")
	})

	t.Run("scan not worth the trip", func(t *testing.T) {
		advice, err := p.Advise(ctx, InsightRequest{Report: report, TransportCost: 30000})
		require.NoError(t, err)
		assert.Contains(t, advice, "no need to travel")
	})

	t.Run("no data", func(t *testing.T) {
		_, err := p.Advise(ctx, InsightRequest{})
		assert.Error(t, err)
	})
}

func TestOfflineProvider_Synthesize(t *testing.T) {
	p := NewOfflineProvider(nil, catalog.Default())
	_, err := p.Synthesize(context.Background(), "hello", "en-NG")
	assert.ErrorIs(t, err, ErrSpeechUnsupported)
}
