package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"marketsense/internal/assistant"
	"marketsense/internal/audio"
	"marketsense/internal/catalog"
	"marketsense/internal/model"
	"marketsense/internal/provider"
	"marketsense/internal/version"
)

// askRequest is the body of POST /v1/ask and of websocket questions. Audio is
// base64 encoded.
type askRequest struct {
	ID       string `json:"id,omitempty" validate:"omitempty,max=64"`
	Text     string `json:"text" validate:"required_without=Audio,max=1000"`
	Audio    string `json:"audio" validate:"omitempty,base64"`
	MimeType string `json:"mime_type" validate:"omitempty,max=100"`
	Speak    bool   `json:"speak"`
}

type priceRequest struct {
	Market    string `validate:"required"`
	Commodity string `validate:"required"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type catalogResponse struct {
	Markets     []model.Market    `json:"markets"`
	Commodities []model.Commodity `json:"commodities"`
	Regions     []string          `json:"regions"`
}

type healthResponse struct {
	Status   string       `json:"status"`
	Provider string       `json:"provider"`
	Version  version.Info `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Provider: s.assistant.ProviderName(),
		Version:  version.Get(),
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat := s.assistant.Catalog()
	s.writeJSON(w, http.StatusOK, catalogResponse{
		Markets:     cat.Markets(),
		Commodities: cat.Commodities(),
		Regions:     cat.Regions(),
	})
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	req := priceRequest{
		Market:    r.URL.Query().Get("market"),
		Commodity: r.URL.Query().Get("commodity"),
	}
	if err := s.validator.Validate(req); err != nil {
		s.writeBadRequest(w, "market and commodity are required")
		return
	}

	quote, err := s.assistant.Price(req.Market, req.Commodity)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	report, err := s.assistant.Scan(r.PathValue("commodity"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes())
	var req askRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: assistant.ReplyAudioTooLong, Code: "too_large"})
			return
		}
		s.writeBadRequest(w, "invalid JSON body")
		return
	}

	query, err := s.decodeQuery(req)
	if err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}

	answer, err := s.assistant.Ask(r.Context(), query)
	if err != nil {
		s.writeError(w, err)
		return
	}
	publishAudio(answer)
	s.writeJSON(w, http.StatusOK, answer)
}

// handleAudio serves the spoken advice of an answer still in the history.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	answer, err := s.assistant.Answer(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if answer.AudioPath == "" {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "answer has no audio", Code: "not_found"})
		return
	}
	http.ServeFile(w, r, answer.AudioPath)
}

// publishAudio points remote clients at the served copy of the answer's
// speech file.
func publishAudio(answer *model.Answer) {
	if answer.AudioPath != "" {
		answer.AudioURL = "/v1/answers/" + url.PathEscape(answer.ID) + "/audio"
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	answers, err := s.assistant.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if answers == nil {
		answers = []model.Answer{}
	}
	for i := range answers {
		publishAudio(&answers[i])
	}
	s.writeJSON(w, http.StatusOK, answers)
}

// decodeQuery validates a request and decodes its audio.
func (s *Server) decodeQuery(req askRequest) (assistant.Query, error) {
	if err := s.validator.Validate(req); err != nil {
		return assistant.Query{}, err
	}

	query := assistant.Query{Text: req.Text, MimeType: req.MimeType, Speak: req.Speak}
	if req.Audio != "" {
		data, err := base64.StdEncoding.DecodeString(req.Audio)
		if err != nil {
			return assistant.Query{}, fmt.Errorf("audio is not valid base64: %w", err)
		}
		query.Audio = data
	}
	return query, nil
}

// maxBodyBytes allows for base64 expansion of the largest voice note.
func (s *Server) maxBodyBytes() int64 {
	return s.opts.MaxAudioBytes*4/3 + 64<<10
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

func (s *Server) writeBadRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Code: "bad_request"})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "error", err)
	}
	s.writeJSON(w, status, errorResponse{Error: assistant.Reply(err), Code: code})
}

// classify maps an assistant error to an HTTP status and a stable code.
func classify(err error) (int, string) {
	var upstream *assistant.UpstreamError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, assistant.ErrEmptyQuery):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, assistant.ErrIntentUnresolved):
		return http.StatusUnprocessableEntity, "unresolved"
	case errors.Is(err, assistant.ErrUnsupported):
		return http.StatusUnprocessableEntity, "unsupported"
	case errors.Is(err, provider.ErrAudioUnsupported), errors.Is(err, provider.ErrSpeechUnsupported):
		return http.StatusUnprocessableEntity, "unsupported"
	case errors.Is(err, audio.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, audio.ErrTooLong):
		return http.StatusUnprocessableEntity, "too_long"
	case errors.Is(err, audio.ErrEmpty), errors.Is(err, audio.ErrUnsupportedFormat):
		return http.StatusBadRequest, "bad_audio"
	case errors.As(err, &upstream):
		return http.StatusBadGateway, "upstream_failure"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
