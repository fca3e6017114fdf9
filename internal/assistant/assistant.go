// Package assistant sequences a question through the pipeline: intent
// resolution, a single-market quote or an arbitrage scan, advice and optional
// speech. It stops at the first failure, except that a backend without speech
// still returns the written answer with a notice.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketsense/internal/arbitrage"
	"marketsense/internal/audio"
	"marketsense/internal/catalog"
	"marketsense/internal/history"
	"marketsense/internal/metrics"
	"marketsense/internal/model"
	"marketsense/internal/provider"
)

// Answer kinds.
const (
	KindQuote = "quote"
	KindScan  = "scan"
)

// Query is one question from the user. Audio, when present, takes precedence
// over Text.
type Query struct {
	Text     string `json:"text,omitempty"`
	Audio    []byte `json:"audio,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Speak    bool   `json:"speak,omitempty"`
}

// Options holds the optional collaborators of an Assistant.
type Options struct {
	Prober  *audio.Prober
	History history.Repository
	Metrics *metrics.Collector

	// SpeechEnabled speaks every answer, not just those that ask for it.
	SpeechEnabled bool
	SpeechLocale  string
}

// Assistant answers market questions.
type Assistant struct {
	logger    *slog.Logger
	catalog   *catalog.Catalog
	scanner   *arbitrage.Scanner
	logistics *arbitrage.Logistics
	provider  provider.Provider
	opts      Options
	now       func() time.Time
	newID     func() string
}

// New creates a new Assistant.
func New(logger *slog.Logger, cat *catalog.Catalog, scanner *arbitrage.Scanner, logistics *arbitrage.Logistics, prov provider.Provider, opts Options) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Prober == nil {
		opts.Prober = audio.NewProber(0, 0)
	}
	if opts.SpeechLocale == "" {
		opts.SpeechLocale = "en-NG"
	}
	return &Assistant{
		logger:    logger,
		catalog:   cat,
		scanner:   scanner,
		logistics: logistics,
		provider:  prov,
		opts:      opts,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Ask answers a question end to end. The returned error can be turned into
// user-facing text with Reply.
func (a *Assistant) Ask(ctx context.Context, q Query) (*model.Answer, error) {
	answer, kind, err := a.ask(ctx, q)
	a.opts.Metrics.RecordQuery(outcome(err), kind)
	if err != nil {
		a.logger.Warn("Question not answered",
			"outcome", outcome(err),
			"error", err,
		)
		return nil, err
	}

	if a.opts.History != nil {
		if err := a.opts.History.Record(ctx, *answer); err != nil {
			a.logger.Warn("Failed to record answer", "id", answer.ID, "error", err)
		}
	}

	a.logger.Info("Question answered",
		"id", answer.ID,
		"kind", kind,
		"commodity", answer.Intent.Commodity,
		"market", answer.Intent.Market,
		"price", answer.Price(),
	)
	return answer, nil
}

func (a *Assistant) ask(ctx context.Context, q Query) (*model.Answer, string, error) {
	utterance := provider.Utterance{Text: strings.TrimSpace(q.Text)}
	if len(q.Audio) > 0 {
		info, err := a.opts.Prober.Probe(q.Audio, q.MimeType)
		if err != nil {
			return nil, "", err
		}
		utterance.Audio = q.Audio
		utterance.MimeType = info.MimeType
		a.logger.Debug("Probed voice note", "mime", info.MimeType, "duration", info.Duration)
	} else if utterance.Text == "" {
		return nil, "", ErrEmptyQuery
	}

	start := a.now()
	intent, err := a.provider.Resolve(ctx, utterance)
	a.opts.Metrics.ObserveStage(StageIntent, a.now().Sub(start))
	if err != nil {
		a.opts.Metrics.RecordUpstreamFailure(StageIntent)
		return nil, "", &UpstreamError{Stage: StageIntent, Err: err}
	}

	intent, err = a.normalize(intent)
	if err != nil {
		return nil, "", err
	}
	if intent.OriginalIntent == "" {
		intent.OriginalIntent = utterance.Text
	}

	answer := &model.Answer{
		ID:       a.newID(),
		Query:    intent.OriginalIntent,
		Intent:   intent,
		Provider: a.provider.Name(),
	}

	kind := KindScan
	var destination string
	if intent.Market != "" {
		kind = KindQuote
		quote, err := a.scanner.GetMarketPrice(intent.Market, intent.Commodity)
		if err != nil {
			return nil, "", err
		}
		answer.Quote = quote
		destination = quote.Market
	} else {
		report, err := a.scanner.GetArbitrageScan(intent.Commodity)
		if err != nil {
			return nil, "", err
		}
		answer.Report = report
		destination = report.Cheapest.Market
		a.opts.Metrics.ObserveSpread(report.Commodity, report.Spread)
	}
	answer.TransportCost = a.logistics.TransportCost("", destination)
	answer.Trend = arbitrage.Trend(answer.Price())

	start = a.now()
	advice, err := a.provider.Advise(ctx, provider.InsightRequest{
		Intent:        intent,
		Quote:         answer.Quote,
		Report:        answer.Report,
		TransportCost: answer.TransportCost,
	})
	a.opts.Metrics.ObserveStage(StageInsight, a.now().Sub(start))
	if err != nil {
		a.opts.Metrics.RecordUpstreamFailure(StageInsight)
		return nil, kind, &UpstreamError{Stage: StageInsight, Err: err}
	}
	answer.Advice = advice

	if q.Speak || a.opts.SpeechEnabled {
		start = a.now()
		path, err := a.provider.Synthesize(ctx, advice, a.opts.SpeechLocale)
		a.opts.Metrics.ObserveStage(StageSpeech, a.now().Sub(start))
		switch {
		case errors.Is(err, provider.ErrSpeechUnsupported):
			// The backend cannot speak at all; the written answer still stands.
			a.logger.Warn("Speech not available, answering without audio", "provider", a.provider.Name())
			answer.Notice = ReplySpeechOff
		case err != nil:
			a.opts.Metrics.RecordUpstreamFailure(StageSpeech)
			return nil, kind, &UpstreamError{Stage: StageSpeech, Err: err}
		default:
			answer.AudioPath = path
		}
	}

	answer.Timestamp = a.now()
	return answer, kind, nil
}

// normalize maps the resolver's free text onto catalog names.
func (a *Assistant) normalize(intent model.Intent) (model.Intent, error) {
	if strings.TrimSpace(intent.Commodity) == "" {
		return intent, ErrIntentUnresolved
	}

	commodity, ok := a.catalog.CanonicalCommodity(intent.Commodity)
	if !ok {
		return intent, &UnsupportedError{Commodity: strings.TrimSpace(intent.Commodity)}
	}
	intent.Commodity = commodity

	if strings.TrimSpace(intent.Market) != "" {
		market, ok := a.catalog.CanonicalMarket(intent.Market)
		if !ok {
			return intent, &UnsupportedError{Commodity: commodity, Market: strings.TrimSpace(intent.Market)}
		}
		intent.Market = market
	}
	return intent, nil
}

// Price quotes one market. Names may be catalog aliases.
func (a *Assistant) Price(market, commodity string) (*model.PriceQuote, error) {
	quote, err := a.scanner.GetMarketPrice(a.marketName(market), a.commodityName(commodity))
	if err != nil {
		return nil, fmt.Errorf("price %s at %s: %w", commodity, market, err)
	}
	return quote, nil
}

// Scan ranks every market for a commodity. The name may be a catalog alias.
func (a *Assistant) Scan(commodity string) (*model.ArbitrageReport, error) {
	report, err := a.scanner.GetArbitrageScan(a.commodityName(commodity))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", commodity, err)
	}
	a.opts.Metrics.ObserveSpread(report.Commodity, report.Spread)
	return report, nil
}

// Recent returns the latest answers, newest first.
func (a *Assistant) Recent(ctx context.Context, limit int) ([]model.Answer, error) {
	if a.opts.History == nil {
		return nil, nil
	}
	return a.opts.History.Recent(ctx, limit)
}

// Answer returns a recent answer by ID. Answers that have left the history
// return an error wrapping catalog.ErrNotFound.
func (a *Assistant) Answer(ctx context.Context, id string) (*model.Answer, error) {
	answers, err := a.Recent(ctx, 0)
	if err != nil {
		return nil, err
	}
	for i := range answers {
		if answers[i].ID == id {
			return &answers[i], nil
		}
	}
	return nil, fmt.Errorf("answer %q: %w", id, catalog.ErrNotFound)
}

// Catalog returns the catalog the assistant answers from.
func (a *Assistant) Catalog() *catalog.Catalog {
	return a.catalog
}

// ProviderName returns the name of the backend in use.
func (a *Assistant) ProviderName() string {
	return a.provider.Name()
}

func (a *Assistant) marketName(s string) string {
	if name, ok := a.catalog.CanonicalMarket(s); ok {
		return name
	}
	return s
}

func (a *Assistant) commodityName(s string) string {
	if name, ok := a.catalog.CanonicalCommodity(s); ok {
		return name
	}
	return s
}
