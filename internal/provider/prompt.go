package provider

import (
	"fmt"
	"strings"

	"marketsense/internal/catalog"
	"marketsense/internal/model"
)

// InsightRequest carries everything the insight generator needs. Exactly one
// of Quote or Report is set.
type InsightRequest struct {
	Intent        model.Intent
	Quote         *model.PriceQuote
	Report        *model.ArbitrageReport
	TransportCost int
}

const insightPersona = `You are a wise Nigerian market trader who advises buyers and sellers.
Always state the price clearly first, then give short practical advice in Nigerian Pidgin English.
Keep the answer under 80 words. Do not invent prices that are not in the data.`

// IntentPrompt is the system prompt for intent extraction. It lists the
// catalog so the model answers with canonical names.
func IntentPrompt(cat *catalog.Catalog) string {
	var b strings.Builder
	b.WriteString("You are a Nigerian market assistant. Extract the commodity and the market from the user's question.\n")
	b.WriteString("The question might be in Pidgin English.\n\n")
	fmt.Fprintf(&b, "Known markets: %s.\n", strings.Join(cat.MarketNames(), ", "))
	fmt.Fprintf(&b, "Known commodities: %s.\n\n", strings.Join(cat.CommodityNames(), ", "))
	b.WriteString("Use the known names exactly when the user means one of them. ")
	b.WriteString("Use an empty string for the market when none is mentioned. ")
	b.WriteString("Use an empty string for the commodity when you cannot tell.\n")
	b.WriteString(`Reply with JSON only: {"commodity": "string", "market": "string", "original_intent": "string"}`)
	return b.String()
}

// BuildPrompt renders the insight request as the user message sent to the
// model.
func BuildPrompt(req InsightRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User asked: %q\n\nData:\n", req.Intent.OriginalIntent)

	switch {
	case req.Report != nil:
		r := req.Report
		fmt.Fprintf(&b, "- Commodity: %s (%s)\n", r.Commodity, r.Unit)
		fmt.Fprintf(&b, "- Cheapest: %s per %s at %s, %s\n", model.Naira(r.Cheapest.Price), r.Unit, r.Cheapest.Market, r.Cheapest.State)
		fmt.Fprintf(&b, "- Most expensive: %s per %s at %s, %s\n", model.Naira(r.MostExpensive.Price), r.Unit, r.MostExpensive.Market, r.MostExpensive.State)
		fmt.Fprintf(&b, "- Spread: %s\n", model.Naira(r.Spread))
		b.WriteString("- All markets:")
		for _, e := range r.AllPrices {
			fmt.Fprintf(&b, " %s %s;", e.Market, model.Naira(e.Price))
		}
		b.WriteString("\n")
	case req.Quote != nil:
		q := req.Quote
		fmt.Fprintf(&b, "- Price: %s per %s\n", model.Naira(q.Price), q.Unit)
		fmt.Fprintf(&b, "- Market: %s\n", q.Market)
		fmt.Fprintf(&b, "- Commodity: %s\n", q.Commodity)
	}
	fmt.Fprintf(&b, "- Transport avg: %s\n\n", model.Naira(req.TransportCost))

	b.WriteString("Task:\n1. Give the price clearly.\n")
	if req.Report != nil {
		b.WriteString("2. Say where to buy and where to sell, and whether the spread covers transport.\n")
		b.WriteString("3. Give the advice in Nigerian Pidgin English.\n")
	} else {
		b.WriteString("2. Give advice in Nigerian Pidgin English (e.g. \"Omo, price don go up o! Make you buy now before e climb again.\").\n")
	}
	return b.String()
}
