// Package render formats assistant output for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"marketsense/internal/catalog"
	"marketsense/internal/model"
)

// trendBarWidth is the length of the bar for the highest trend price.
const trendBarWidth = 24

// Answer renders a full answer: the price table, the advice and the trend.
func Answer(a *model.Answer) string {
	var sections []string

	switch {
	case a.Quote != nil:
		sections = append(sections, Quote(a.Quote))
	case a.Report != nil:
		sections = append(sections, Report(a.Report))
	}

	sections = append(sections,
		LabelStyle.Render("Transport (avg): ")+RowStyle.Render(model.Naira(a.TransportCost)),
	)
	if a.Advice != "" {
		sections = append(sections, AdviceStyle.Render(a.Advice))
	}
	if len(a.Trend) > 0 {
		sections = append(sections, Trend(a.Trend))
	}
	switch {
	case a.AudioURL != "":
		sections = append(sections, MutedStyle.Render("Audio: "+a.AudioURL))
	case a.AudioPath != "":
		sections = append(sections, MutedStyle.Render("Audio: "+a.AudioPath))
	}
	if a.Notice != "" {
		sections = append(sections, MutedStyle.Render(a.Notice))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Quote renders a single market price.
func Quote(q *model.PriceQuote) string {
	title := TitleStyle.Render(fmt.Sprintf("%s @ %s", q.Commodity, q.Market))
	price := CheapStyle.Render(model.Naira(q.Price)) + MutedStyle.Render(" per "+q.Unit)
	return PanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, price))
}

// Report renders an arbitrage scan, cheapest market first.
func Report(r *model.ArbitrageReport) string {
	var content strings.Builder

	content.WriteString(TitleStyle.Render(fmt.Sprintf("%s (%s)", r.Commodity, r.Unit)))
	content.WriteString("\n")
	content.WriteString(HeaderStyle.Render(fmt.Sprintf("%-12s %-8s %12s", "Market", "State", "Price")))

	for i, entry := range r.AllPrices {
		line := fmt.Sprintf("%-12s %-8s %12s", entry.Market, entry.State, model.Naira(entry.Price))
		style := RowStyle
		switch i {
		case 0:
			style = CheapStyle
		case len(r.AllPrices) - 1:
			style = DearStyle
		}
		content.WriteString("\n")
		content.WriteString(style.Render(line))
	}

	content.WriteString("\n")
	content.WriteString(LabelStyle.Render("Spread: ") + RowStyle.Render(model.Naira(r.Spread)))
	return PanelStyle.Render(content.String())
}

// Trend renders the weekly movement as horizontal bars.
func Trend(points []model.TrendPoint) string {
	highest := 0
	for _, p := range points {
		highest = max(highest, p.Price)
	}

	lines := []string{HeaderStyle.Render("Price trend")}
	for _, p := range points {
		width := 0
		if highest > 0 {
			width = p.Price * trendBarWidth / highest
		}
		bar := BarStyle.Render(strings.Repeat("█", width))
		lines = append(lines, fmt.Sprintf("%-6s %s %s", p.Day, bar, MutedStyle.Render(model.Naira(p.Price))))
	}
	return strings.Join(lines, "\n")
}

// Catalog renders the known markets and commodities.
func Catalog(cat *catalog.Catalog) string {
	var markets strings.Builder
	markets.WriteString(TitleStyle.Render("Markets"))
	markets.WriteString("\n")
	markets.WriteString(HeaderStyle.Render(fmt.Sprintf("%-12s %-8s %s", "Name", "State", "Region")))
	for _, m := range cat.Markets() {
		markets.WriteString("\n")
		markets.WriteString(RowStyle.Render(fmt.Sprintf("%-12s %-8s %s", m.Name, m.State, m.Region)))
	}

	var commodities strings.Builder
	commodities.WriteString(TitleStyle.Render("Commodities"))
	commodities.WriteString("\n")
	commodities.WriteString(HeaderStyle.Render(fmt.Sprintf("%-10s %-14s %10s %s", "Name", "Unit", "Base", "Volatility")))
	for _, c := range cat.Commodities() {
		commodities.WriteString("\n")
		commodities.WriteString(RowStyle.Render(fmt.Sprintf("%-10s %-14s %10s %.0f%%",
			c.Name, c.Unit, model.Naira(c.BasePrice), c.Volatility*100)))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		PanelStyle.Render(markets.String()),
		PanelStyle.Render(commodities.String()),
	)
}

// History renders recent answers, newest first.
func History(answers []model.Answer) string {
	if len(answers) == 0 {
		return MutedStyle.Render("No recent checks.")
	}

	var content strings.Builder
	content.WriteString(TitleStyle.Render("Recent checks"))
	for _, a := range answers {
		where := a.Intent.Market
		if where == "" && a.Report != nil {
			where = "cheapest at " + a.Report.Cheapest.Market
		}
		content.WriteString("\n")
		content.WriteString(MutedStyle.Render(a.Timestamp.Format("15:04:05")))
		content.WriteString(" ")
		content.WriteString(RowStyle.Render(fmt.Sprintf("%s, %s: %s", a.Intent.Commodity, where, model.Naira(a.Price()))))
	}
	return PanelStyle.Render(content.String())
}

// Error renders a user-facing reply for a failed request.
func Error(reply string) string {
	return ErrorStyle.Render(reply)
}
