package remote

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsense/internal/arbitrage"
	"marketsense/internal/assistant"
	"marketsense/internal/catalog"
	"marketsense/internal/history"
	"marketsense/internal/provider"
	"marketsense/internal/server"
)

type midSource struct{}

func (midSource) Float64() float64 { return 0.5 }

// speakingProvider answers offline and writes its speech under dir.
type speakingProvider struct {
	*provider.OfflineProvider
	dir string
}

func (p speakingProvider) Synthesize(_ context.Context, text, _ string) (string, error) {
	path := filepath.Join(p.dir, "advice.mp3")
	return path, os.WriteFile(path, []byte(text), 0o600)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newTestServerWith(t, func(p *provider.OfflineProvider) provider.Provider { return p })
}

func newTestServerWith(t *testing.T, wrap func(*provider.OfflineProvider) provider.Provider) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cat := catalog.Default()
	scanner := arbitrage.NewScanner(logger, arbitrage.NewSimulator(cat, midSource{}))
	a := assistant.New(logger, cat, scanner, arbitrage.NewLogistics(5000), wrap(provider.NewOfflineProvider(logger, cat)), assistant.Options{
		History: history.NewMemoryRepository(5),
	})

	srv := httptest.NewServer(server.New(logger, a, server.Options{}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestSession_Ask(t *testing.T) {
	srv := newTestServer(t)

	client, err := NewClient(nil, srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := client.Connect(ctx)
	require.NoError(t, err)
	defer session.Close()
	assert.NotEmpty(t, session.ID)

	answer, err := session.Ask(ctx, assistant.Query{Text: "How much rice for Mile 12?"})
	require.NoError(t, err)
	require.NotNil(t, answer.Quote)
	assert.Equal(t, "Mile 12", answer.Quote.Market)
	assert.Equal(t, 75000, answer.Quote.Price)

	_, err = session.Ask(ctx, assistant.Query{Text: "good morning"})
	var remoteErr *Error
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "unresolved", remoteErr.Code)
	assert.Equal(t, assistant.ReplyUnresolved, remoteErr.Reply)

	answer, err = session.Ask(ctx, assistant.Query{Text: "tomato"})
	require.NoError(t, err)
	require.NotNil(t, answer.Report)
	assert.Equal(t, "Dawanau", answer.Report.Cheapest.Market)
}

func TestSession_AskSpoken(t *testing.T) {
	dir := t.TempDir()
	srv := newTestServerWith(t, func(p *provider.OfflineProvider) provider.Provider {
		return speakingProvider{p, dir}
	})

	client, err := NewClient(nil, srv.URL+"/")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	session, err := client.Connect(ctx)
	require.NoError(t, err)
	defer session.Close()

	answer, err := session.Ask(ctx, assistant.Query{Text: "rice for mile 12", Speak: true})
	require.NoError(t, err)
	assert.Empty(t, answer.AudioPath, "server paths are not usable here")
	assert.Equal(t, srv.URL+"/v1/answers/"+answer.ID+"/audio", answer.AudioURL)

	resp, err := http.Get(answer.AudioURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, answer.Advice, string(body))
}

func TestSession_AskCancelled(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(map[string]string{"type": "session", "session": "s1"})
		// Read questions and never answer.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	client, err := NewClient(nil, srv.URL)
	require.NoError(t, err)
	session, err := client.Connect(context.Background())
	require.NoError(t, err)
	defer session.Close()
	assert.Equal(t, "s1", session.ID)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	_, err = session.Ask(ctx, assistant.Query{Text: "rice"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_ConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := NewClient(nil, url)
	require.NoError(t, err)
	client.attempts = 2
	client.baseBackoff = 10 * time.Millisecond

	_, err = client.Connect(context.Background())
	assert.ErrorContains(t, err, "failed to connect")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Connect(ctx)
	assert.Error(t, err)
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "http://localhost:8080", want: "ws://localhost:8080/v1/ws"},
		{in: "https://prices.example.com/", want: "wss://prices.example.com/v1/ws"},
		{in: "ws://127.0.0.1:9000/custom", want: "ws://127.0.0.1:9000/custom"},
		{in: "ftp://localhost", wantErr: true},
		{in: "http://", wantErr: true},
		{in: "localhost:8080", wantErr: true},
	}
	for _, tt := range tests {
		got, err := websocketURL(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestHTTPBase(t *testing.T) {
	base, err := httpBase("wss://prices.example.com/v1/ws?x=1")
	require.NoError(t, err)
	assert.Equal(t, "https://prices.example.com/", base.String())

	base, err = httpBase("ws://127.0.0.1:9000/custom")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000/", base.String())
}
