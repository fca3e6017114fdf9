package model

import "time"

// Market is a physical market place and the region it trades in.
type Market struct {
	Name      string  `json:"name" yaml:"name"`
	State     string  `json:"state" yaml:"state"`
	Region    string  `json:"region" yaml:"region"`
	Latitude  float64 `json:"lat" yaml:"lat"`
	Longitude float64 `json:"lon" yaml:"lon"`
}

// Commodity is a traded good with its reference price and how much it moves.
type Commodity struct {
	Name       string  `json:"name" yaml:"name"`
	Unit       string  `json:"unit" yaml:"unit"`
	BasePrice  int     `json:"base_price" yaml:"base_price"`
	Volatility float64 `json:"volatility" yaml:"volatility"`
}

// PriceQuote is a single simulated price for one market and commodity.
type PriceQuote struct {
	Market    string    `json:"market"`
	Commodity string    `json:"commodity"`
	Unit      string    `json:"unit"`
	Price     int       `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// PriceEntry is one row of an arbitrage scan.
type PriceEntry struct {
	Market string `json:"market"`
	Price  int    `json:"price"`
	State  string `json:"state"`
}

// ArbitrageReport ranks every known market for a commodity.
type ArbitrageReport struct {
	Commodity     string       `json:"commodity"`
	Unit          string       `json:"unit"`
	Cheapest      PriceEntry   `json:"cheapest"`
	MostExpensive PriceEntry   `json:"most_expensive"`
	AllPrices     []PriceEntry `json:"all_prices"`
	Spread        int          `json:"spread"`
	Timestamp     time.Time    `json:"timestamp"`
}

// Intent is what the resolver understood from the user's input.
type Intent struct {
	Commodity      string `json:"commodity"`
	Market         string `json:"market,omitempty"`
	OriginalIntent string `json:"original_intent"`
}

// TrendPoint is one day of the illustrative price movement chart.
type TrendPoint struct {
	Day   string `json:"day"`
	Price int    `json:"price"`
}

// Answer is the assistant's full response to one question. AudioPath is the
// spoken advice on the disk of the process that answered; a server publishes
// it to remote clients at AudioURL. Notice is shown alongside an answer that
// lacks something the user asked for, such as speech.
type Answer struct {
	ID            string           `json:"id"`
	Query         string           `json:"query"`
	Intent        Intent           `json:"intent"`
	Quote         *PriceQuote      `json:"quote,omitempty"`
	Report        *ArbitrageReport `json:"report,omitempty"`
	TransportCost int              `json:"transport_cost"`
	Trend         []TrendPoint     `json:"trend,omitempty"`
	Advice        string           `json:"advice"`
	AudioPath     string           `json:"audio_path,omitempty"`
	AudioURL      string           `json:"audio_url,omitempty"`
	Notice        string           `json:"notice,omitempty"`
	Provider      string           `json:"provider"`
	Timestamp     time.Time        `json:"timestamp"`
}

// Price returns the headline price of the answer: the quoted price, or the
// cheapest market of a scan.
func (a *Answer) Price() int {
	switch {
	case a.Quote != nil:
		return a.Quote.Price
	case a.Report != nil:
		return a.Report.Cheapest.Price
	}
	return 0
}
