// Package remote asks questions through the websocket session of a running
// marketsense server.
package remote

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"marketsense/internal/assistant"
	"marketsense/internal/model"
)

// ErrUnexpectedFrame is returned when the server opens a session without a
// session frame.
var ErrUnexpectedFrame = errors.New("unexpected frame")

// Error is a question the server could not answer. Reply is the text meant for
// the user.
type Error struct {
	Code  string
	Reply string
}

func (e *Error) Error() string {
	return fmt.Sprintf("server replied %s: %s", e.Code, e.Reply)
}

type request struct {
	ID       string `json:"id"`
	Text     string `json:"text,omitempty"`
	Audio    string `json:"audio,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Speak    bool   `json:"speak,omitempty"`
}

type frame struct {
	Type    string        `json:"type"`
	ID      string        `json:"id"`
	Session string        `json:"session"`
	Answer  *model.Answer `json:"answer"`
	Error   string        `json:"error"`
	Code    string        `json:"code"`
}

// Client connects to a server, retrying with exponential backoff.
type Client struct {
	logger      *slog.Logger
	url         string
	base        *url.URL
	attempts    int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// NewClient creates a Client for the server at rawURL. http and https URLs
// are turned into their websocket equivalents, and a missing path defaults to
// /v1/ws.
func NewClient(logger *slog.Logger, rawURL string) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	wsURL, err := websocketURL(rawURL)
	if err != nil {
		return nil, err
	}
	base, err := httpBase(wsURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		logger:      logger,
		url:         wsURL,
		base:        base,
		attempts:    5,
		baseBackoff: time.Second,
		maxBackoff:  16 * time.Second,
	}, nil
}

// URL returns the websocket URL the client dials.
func (c *Client) URL() string {
	return c.url
}

// Connect opens a session. Failed dials are retried until the attempts are
// used up or ctx is done.
func (c *Client) Connect(ctx context.Context) (*Session, error) {
	backoff := c.baseBackoff
	var lastErr error

	for attempt := 1; attempt <= c.attempts; attempt++ {
		c.logger.Debug("RemoteClient: connecting to server", "url", c.url, "attempt", attempt)
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err == nil {
			return c.open(conn)
		}

		lastErr = err
		c.logger.Warn("RemoteClient: connection failed", "error", err, "backoff", backoff)
		if attempt == c.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff = min(backoff*2, c.maxBackoff)
		}
	}
	return nil, fmt.Errorf("failed to connect to %s: %w", c.url, lastErr)
}

func (c *Client) open(conn *websocket.Conn) (*Session, error) {
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var hello frame
	if err := conn.ReadJSON(&hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read session frame: %w", err)
	}
	if hello.Type != "session" {
		conn.Close()
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedFrame, hello.Type)
	}
	_ = conn.SetReadDeadline(time.Time{})

	c.logger.Info("RemoteClient: connected", "session", hello.Session)
	return &Session{ID: hello.Session, conn: conn, base: c.base, logger: c.logger}, nil
}

// Session is an open question session. Questions are answered one at a time.
type Session struct {
	ID string

	mu     sync.Mutex
	conn   *websocket.Conn
	base   *url.URL
	logger *slog.Logger
}

// Ask sends q and waits for the frame that answers it. Spoken advice is
// returned as an absolute AudioURL on the server; AudioPath, which names a
// file on the server's disk, is cleared.
func (s *Session) Ask(ctx context.Context, q assistant.Query) (*model.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := request{
		ID:       uuid.NewString(),
		Text:     q.Text,
		MimeType: q.MimeType,
		Speak:    q.Speak,
	}
	if len(q.Audio) > 0 {
		req.Audio = base64.StdEncoding.EncodeToString(q.Audio)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
		_ = s.conn.SetReadDeadline(deadline)
		defer func() {
			_ = s.conn.SetWriteDeadline(time.Time{})
			_ = s.conn.SetReadDeadline(time.Time{})
		}()
	}
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := s.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("failed to send question: %w", err)
	}

	for {
		var f frame
		if err := s.conn.ReadJSON(&f); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("failed to read answer: %w", err)
		}
		if f.ID != req.ID {
			s.logger.Debug("RemoteClient: skipping frame", "type", f.Type, "id", f.ID)
			continue
		}

		if f.Type == "error" {
			return nil, &Error{Code: f.Code, Reply: f.Error}
		}
		if f.Answer == nil {
			return nil, fmt.Errorf("%w: %q without answer", ErrUnexpectedFrame, f.Type)
		}
		s.localize(f.Answer)
		return f.Answer, nil
	}
}

func (s *Session) localize(answer *model.Answer) {
	answer.AudioPath = ""
	if answer.AudioURL == "" {
		return
	}
	ref, err := url.Parse(answer.AudioURL)
	if err != nil {
		s.logger.Warn("RemoteClient: invalid audio URL", "url", answer.AudioURL, "error", err)
		answer.AudioURL = ""
		return
	}
	answer.AudioURL = s.base.ResolveReference(ref).String()
}

// Close ends the session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return s.conn.Close()
}

func websocketURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server URL %q: scheme must be http, https, ws or wss", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server URL %q: missing host", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/v1/ws"
	}
	return u.String(), nil
}

// httpBase returns the HTTP root of the server behind a websocket URL.
func httpBase(wsURL string) (*url.URL, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme == "wss" {
		u.Scheme = "https"
	} else {
		u.Scheme = "http"
	}
	u.Path, u.RawPath, u.RawQuery, u.Fragment = "/", "", "", ""
	return u, nil
}
