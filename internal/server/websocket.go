package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"marketsense/internal/assistant"
	"marketsense/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Frame types sent to websocket clients.
const (
	FrameSession = "session"
	FrameAnswer  = "answer"
	FrameError   = "error"
)

// wsFrame is a server to client message. ID echoes the request it answers.
type wsFrame struct {
	Type    string        `json:"type"`
	ID      string        `json:"id,omitempty"`
	Session string        `json:"session,omitempty"`
	Answer  *model.Answer `json:"answer,omitempty"`
	Error   string        `json:"error,omitempty"`
	Code    string        `json:"code,omitempty"`
}

// handleWebsocket runs a question session. Questions on one connection are
// answered in order.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	session := uuid.NewString()
	logger := s.logger.With("session", session)
	logger.Info("Websocket session started", "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(s.maxBodyBytes())
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go s.keepAlive(ctx, conn)

	if err := writeFrame(conn, wsFrame{Type: FrameSession, Session: session}); err != nil {
		logger.Warn("Failed to send session frame", "error", err)
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("Websocket read failed", "error", err)
			}
			break
		}

		frame := s.answerFrame(ctx, data)
		if err := writeFrame(conn, frame); err != nil {
			logger.Warn("Websocket write failed", "error", err)
			break
		}
	}

	logger.Info("Websocket session ended")
}

// answerFrame answers one raw websocket message.
func (s *Server) answerFrame(ctx context.Context, data []byte) wsFrame {
	var req askRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return wsFrame{Type: FrameError, Error: "invalid JSON message", Code: "bad_request"}
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	query, err := s.decodeQuery(req)
	if err != nil {
		return wsFrame{Type: FrameError, ID: req.ID, Error: err.Error(), Code: "bad_request"}
	}

	answer, err := s.assistant.Ask(ctx, query)
	if err != nil {
		_, code := classify(err)
		return wsFrame{Type: FrameError, ID: req.ID, Error: assistant.Reply(err), Code: code}
	}
	publishAudio(answer)
	return wsFrame{Type: FrameAnswer, ID: req.ID, Answer: answer}
}

// keepAlive pings the client until ctx is done. It closes the connection when
// the server shuts down so the read loop returns.
func (s *Server) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			_ = conn.Close()
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					s.logger.Debug("Websocket ping failed", "error", err)
				}
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, frame wsFrame) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(frame)
}
