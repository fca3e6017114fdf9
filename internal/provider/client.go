// Package provider holds the external collaborators of the assistant: the
// intent resolver, the insight generator and speech synthesis.
package provider

import (
	"context"
	"errors"

	"marketsense/internal/model"
)

var (
	// ErrAudioUnsupported is returned by backends that cannot understand
	// voice input.
	ErrAudioUnsupported = errors.New("audio input not supported by provider")
	// ErrSpeechUnsupported is returned by backends that cannot speak.
	ErrSpeechUnsupported = errors.New("speech synthesis not supported by provider")
	// ErrEmptyResponse is returned when the model answers with nothing.
	ErrEmptyResponse = errors.New("empty response from provider")
)

// Utterance is a raw user question, typed or spoken.
type Utterance struct {
	Text     string
	Audio    []byte
	MimeType string
}

// IntentResolver maps an utterance to a structured intent.
type IntentResolver interface {
	Resolve(ctx context.Context, u Utterance) (model.Intent, error)
}

// InsightGenerator turns price data into advice for the user.
type InsightGenerator interface {
	Advise(ctx context.Context, req InsightRequest) (string, error)
}

// SpeechSynthesizer renders text to a playable audio file and returns its
// path.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, locale string) (string, error)
}

// Provider is a backend that implements every collaborator.
type Provider interface {
	Name() string
	IntentResolver
	InsightGenerator
	SpeechSynthesizer
}
