package assistant

import (
	"errors"
	"fmt"

	"marketsense/internal/audio"
	"marketsense/internal/catalog"
	"marketsense/internal/metrics"
	"marketsense/internal/provider"
)

var (
	// ErrEmptyQuery is returned when a question has neither text nor audio.
	ErrEmptyQuery = errors.New("empty query")
	// ErrIntentUnresolved is returned when no commodity could be recognised.
	ErrIntentUnresolved = errors.New("intent unresolved")
	// ErrUnsupported is matched by UnsupportedError.
	ErrUnsupported = errors.New("unsupported")
)

// Pipeline stages that call external collaborators.
const (
	StageIntent  = "intent"
	StageInsight = "insight"
	StageSpeech  = "speech"
)

// UpstreamError is a failed call to an external collaborator.
type UpstreamError struct {
	Stage string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// UnsupportedError means the user named something the catalog does not know.
// Market is empty when the commodity itself is unknown.
type UnsupportedError struct {
	Commodity string
	Market    string
}

func (e *UnsupportedError) Error() string {
	if e.Market != "" {
		return fmt.Sprintf("no price for %q in market %q", e.Commodity, e.Market)
	}
	return fmt.Sprintf("unknown commodity %q", e.Commodity)
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

// User-facing replies, in Nigerian Pidgin English.
const (
	ReplyUnresolved       = "I no hear the market or commodity name well. Abeg talk am again."
	ReplyUpstream         = "Network no gree. Abeg try again small time."
	ReplyAudioUnsupported = "I no fit hear voice note for now. Abeg type your question."
	ReplySpeechOff        = "I no fit talk am out for now, but the answer dey for screen."
	ReplyAudioTooLong     = "Your voice note too long. Abeg talk am short."
	ReplyAudioUnreadable  = "I no fit hear that recording. Abeg send am again or type am."
	ReplyNotFound         = "Sorry, I no get that one for my market list."
	ReplyUnknown          = "Something no work well. Abeg try again."
)

// Reply maps an error from Ask, Price or Scan to the text shown to the user.
func Reply(err error) string {
	if err == nil {
		return ""
	}

	var unsupported *UnsupportedError
	switch {
	case errors.Is(err, ErrEmptyQuery), errors.Is(err, ErrIntentUnresolved):
		return ReplyUnresolved
	case errors.As(err, &unsupported):
		if unsupported.Market != "" {
			return fmt.Sprintf("Sorry, I no get price for %s inside %s.", unsupported.Commodity, unsupported.Market)
		}
		return fmt.Sprintf("Sorry, I no sabi %s for market list.", unsupported.Commodity)
	case errors.Is(err, provider.ErrAudioUnsupported):
		return ReplyAudioUnsupported
	case errors.Is(err, provider.ErrSpeechUnsupported):
		return ReplySpeechOff
	case errors.Is(err, audio.ErrTooLong), errors.Is(err, audio.ErrTooLarge):
		return ReplyAudioTooLong
	case errors.Is(err, audio.ErrEmpty), errors.Is(err, audio.ErrUnsupportedFormat):
		return ReplyAudioUnreadable
	case errors.Is(err, catalog.ErrNotFound):
		return ReplyNotFound
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return ReplyUpstream
	}
	return ReplyUnknown
}

// outcome classifies an error for the queries metric.
func outcome(err error) string {
	var upstream *UpstreamError
	switch {
	case err == nil:
		return metrics.OutcomeAnswered
	case errors.Is(err, ErrIntentUnresolved):
		return metrics.OutcomeUnresolved
	case errors.Is(err, ErrUnsupported):
		return metrics.OutcomeUnsupported
	case errors.Is(err, catalog.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.As(err, &upstream):
		return metrics.OutcomeUpstream
	default:
		return metrics.OutcomeInvalid
	}
}
