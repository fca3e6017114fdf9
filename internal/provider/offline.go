package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"marketsense/internal/catalog"
	"marketsense/internal/config"
	"marketsense/internal/model"
)

// maxPhraseWords is the longest catalog alias, in words, the offline resolver
// looks for.
const maxPhraseWords = 3

// OfflineProvider answers without any network access. Intents come from
// catalog alias matching and advice from fixed Pidgin templates.
type OfflineProvider struct {
	logger  *slog.Logger
	catalog *catalog.Catalog
}

// NewOfflineProvider creates a new OfflineProvider.
func NewOfflineProvider(logger *slog.Logger, cat *catalog.Catalog) *OfflineProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &OfflineProvider{logger: logger, catalog: cat}
}

func (p *OfflineProvider) Name() string {
	return config.BackendOffline
}

// Resolve finds the first commodity and market named in the text.
func (p *OfflineProvider) Resolve(_ context.Context, u Utterance) (model.Intent, error) {
	if len(u.Audio) > 0 {
		return model.Intent{}, ErrAudioUnsupported
	}

	intent := model.Intent{OriginalIntent: strings.TrimSpace(u.Text)}
	words := strings.FieldsFunc(strings.ToLower(u.Text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for i := 0; i < len(words); i++ {
		for n := min(maxPhraseWords, len(words)-i); n > 0; n-- {
			phrase := strings.Join(words[i:i+n], " ")
			if intent.Commodity == "" {
				if name, ok := p.catalog.CanonicalCommodity(phrase); ok {
					intent.Commodity = name
					i += n - 1
					break
				}
			}
			if intent.Market == "" {
				if name, ok := p.catalog.CanonicalMarket(phrase); ok {
					intent.Market = name
					i += n - 1
					break
				}
			}
		}
	}

	p.logger.Debug("OfflineProvider: resolved intent",
		"commodity", intent.Commodity,
		"market", intent.Market,
	)
	return intent, nil
}

// Advise renders template advice from the request data.
func (p *OfflineProvider) Advise(_ context.Context, req InsightRequest) (string, error) {
	transport := model.Naira(req.TransportCost)

	switch {
	case req.Report != nil:
		r := req.Report
		var b strings.Builder
		fmt.Fprintf(&b, "%s cheap pass for %s (%s) at %s per %s. E cost reach %s for %s (%s). ",
			r.Commodity, r.Cheapest.Market, r.Cheapest.State, model.Naira(r.Cheapest.Price), r.Unit,
			model.Naira(r.MostExpensive.Price), r.MostExpensive.Market, r.MostExpensive.State)
		if r.Spread > req.TransportCost {
			fmt.Fprintf(&b, "Gap na %s and transport na about %s, so you fit buy for %s carry go sell for %s. Make you move quick before price change o!",
				model.Naira(r.Spread), transport, r.Cheapest.Market, r.MostExpensive.Market)
		} else {
			fmt.Fprintf(&b, "Gap na only %s and transport go cost about %s, so no need to travel. Buy for market wey near you.",
				model.Naira(r.Spread), transport)
		}
		return b.String(), nil
	case req.Quote != nil:
		q := req.Quote
		return fmt.Sprintf("%s for %s na %s per %s today. Transport go cost you about %s. Price fit change anytime, so make you buy now if the money dey.",
			q.Commodity, q.Market, model.Naira(q.Price), q.Unit, transport), nil
	default:
		return "", fmt.Errorf("insight request has no price data")
	}
}

// Synthesize is not available offline.
func (p *OfflineProvider) Synthesize(context.Context, string, string) (string, error) {
	return "", ErrSpeechUnsupported
}
