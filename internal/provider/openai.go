package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"golang.org/x/time/rate"

	"marketsense/internal/catalog"
	"marketsense/internal/config"
	"marketsense/internal/model"
	"marketsense/internal/proxy"
)

// OpenAIProvider implements Provider on top of the OpenAI API: chat
// completions for intents and advice, transcription for voice input and text
// to speech for spoken answers.
type OpenAIProvider struct {
	logger       *slog.Logger
	client       openai.Client
	cfg          config.ProviderConfig
	speech       config.SpeechConfig
	limiter      *rate.Limiter
	intentPrompt string
}

// NewOpenAIProvider creates a new OpenAIProvider.
func NewOpenAIProvider(logger *slog.Logger, cfg config.ProviderConfig, speech config.SpeechConfig, cat *catalog.Catalog) (*OpenAIProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Proxy != "" {
		httpClient, err := proxy.NewSocksClient(cfg.Proxy, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithHTTPClient(httpClient))
		logger.Info("OpenAIProvider: using SOCKS5 proxy", "proxy", cfg.Proxy)
	}

	return &OpenAIProvider{
		logger:       logger,
		client:       openai.NewClient(opts...),
		cfg:          cfg,
		speech:       speech,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		intentPrompt: IntentPrompt(cat),
	}, nil
}

func (p *OpenAIProvider) Name() string {
	return config.BackendOpenAI
}

// Resolve extracts an intent. Voice input is transcribed first and the
// transcript is treated like typed text.
func (p *OpenAIProvider) Resolve(ctx context.Context, u Utterance) (model.Intent, error) {
	text := strings.TrimSpace(u.Text)
	if len(u.Audio) > 0 {
		transcript, err := p.transcribe(ctx, u.Audio, u.MimeType)
		if err != nil {
			return model.Intent{}, err
		}
		text = transcript
	}
	if text == "" {
		return model.Intent{}, nil
	}

	content, err := p.complete(ctx, p.cfg.IntentModel, p.intentPrompt, text, true)
	if err != nil {
		return model.Intent{}, fmt.Errorf("intent completion: %w", err)
	}

	intent, err := ParseIntent(content)
	if err != nil {
		return model.Intent{}, err
	}
	if intent.OriginalIntent == "" {
		intent.OriginalIntent = text
	}

	p.logger.Debug("OpenAIProvider: resolved intent",
		"commodity", intent.Commodity,
		"market", intent.Market,
	)
	return intent, nil
}

// Advise asks the model for trader advice on the request's price data.
func (p *OpenAIProvider) Advise(ctx context.Context, req InsightRequest) (string, error) {
	content, err := p.complete(ctx, p.cfg.InsightModel, insightPersona, BuildPrompt(req), false)
	if err != nil {
		return "", fmt.Errorf("insight completion: %w", err)
	}
	return strings.TrimSpace(content), nil
}

// Synthesize speaks text and stores the audio in the configured output
// directory. The caller owns the returned file.
func (p *OpenAIProvider) Synthesize(ctx context.Context, text, locale string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := p.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(p.cfg.SpeechModel),
		Voice:          openai.AudioSpeechNewParamsVoice(p.cfg.SpeechVoice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormat(p.cfg.SpeechFormat),
		Instructions:   openai.String(speechInstructions(locale)),
	})
	if err != nil {
		return "", fmt.Errorf("speech synthesis: %w", err)
	}
	defer resp.Body.Close()

	f, err := os.CreateTemp(p.speech.OutputDir, "marketsense-*."+p.cfg.SpeechFormat)
	if err != nil {
		return "", fmt.Errorf("create speech file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write speech file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close speech file: %w", err)
	}

	p.logger.Debug("OpenAIProvider: synthesized speech", "path", f.Name())
	return f.Name(), nil
}

func (p *OpenAIProvider) transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	if mimeType == "" {
		mimeType = mimetype.Detect(audio).String()
	}
	filename := "question" + audioExtension(mimeType)

	resp, err := p.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:     openai.File(bytes.NewReader(audio), filename, mimeType),
		Model:    openai.AudioModel(p.cfg.TranscriptionModel),
		Language: openai.String("en"),
		Prompt:   openai.String("A Nigerian trader asking about market prices, possibly in Pidgin English."),
	})
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}

	transcript := strings.TrimSpace(resp.Text)
	p.logger.Debug("OpenAIProvider: transcribed audio", "bytes", len(audio), "transcript", transcript)
	return transcript, nil
}

func (p *OpenAIProvider) complete(ctx context.Context, modelName, system, user string, jsonOutput bool) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	}
	if jsonOutput {
		rf := shared.NewResponseFormatJSONObjectParam()
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{OfJSONObject: &rf}
		params.Temperature = openai.Float(0)
	} else {
		params.Temperature = openai.Float(0.7)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func speechInstructions(locale string) string {
	return fmt.Sprintf("Speak warmly like a Nigerian market trader, with a %s accent. Read naira amounts naturally.", locale)
}

func audioExtension(mimeType string) string {
	if m := mimetype.Lookup(mimeType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ".wav"
}
