package webui

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/korylprince/knowledge-chatbot/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//blockingGateway returns resp once release is closed
type blockingGateway struct {
	release chan struct{}
	resp    *conversation.Response
	err     error
}

func (g *blockingGateway) Send(ctx context.Context, _ conversation.Request) (*conversation.Response, error) {
	select {
	case <-g.release:
		return g.resp, g.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newTestServer(t *testing.T, gw conversation.Gateway) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(context.Background(), gw, conversation.DefaultOptions())
	srv := httptest.NewServer(s)
	t.Cleanup(func() {
		s.Close()
		srv.Close()
	})
	return s, srv
}

func submit(t *testing.T, url, prompt string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/submit", "application/json", strings.NewReader(`{"prompt":`+jsonString(prompt)+`}`))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) Snapshot {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var snap Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	return snap
}

func TestPage(t *testing.T) {
	_, srv := newTestServer(t, &blockingGateway{release: make(chan struct{})})

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), conversation.Greeting)
	assert.Contains(t, string(body), "vega-embed")
}

func TestSubmitOverWebsocket(t *testing.T) {
	gw := &blockingGateway{
		release: make(chan struct{}),
		resp: &conversation.Response{
			StatusCode: 200,
			Kind:       conversation.KindText,
			Content:    "| a | b |\n|---|---|\n| 1 | 2 |",
			History:    []conversation.HistoryEntry{{Input: "hello", Output: "table"}},
		},
	}
	s, srv := newTestServer(t, gw)
	conn := dial(t, srv.URL)

	snap := readSnapshot(t, conn)
	assert.False(t, snap.Busy)
	assert.Equal(t, 1, snap.Messages)

	resp := submit(t, srv.URL, "hello")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	snap = readSnapshot(t, conn)
	assert.True(t, snap.Busy)
	assert.Equal(t, 2, snap.Messages)
	assert.Contains(t, snap.HTML, `class="message user"`)

	//second submission while busy is rejected
	resp = submit(t, srv.URL, "again")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	close(gw.release)

	snap = readSnapshot(t, conn)
	assert.False(t, snap.Busy)
	assert.Equal(t, 3, snap.Messages)
	assert.Contains(t, snap.HTML, "<table>")

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, []conversation.HistoryEntry{{Input: "hello", Output: "table"}}, s.panel.History())
}

func TestSubmitBlank(t *testing.T) {
	_, srv := newTestServer(t, &blockingGateway{release: make(chan struct{})})

	resp := submit(t, srv.URL, "  ")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err := http.Post(srv.URL+"/submit", "application/json", strings.NewReader(`not json`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitFailureFallback(t *testing.T) {
	gw := &blockingGateway{release: make(chan struct{}), resp: &conversation.Response{StatusCode: 500}}
	close(gw.release)
	_, srv := newTestServer(t, gw)
	conn := dial(t, srv.URL)
	readSnapshot(t, conn)

	submit(t, srv.URL, "hello")
	readSnapshot(t, conn)

	snap := readSnapshot(t, conn)
	assert.False(t, snap.Busy)
	assert.Contains(t, snap.HTML, conversation.FallbackText)
}

func TestInvalidChartPlaceholder(t *testing.T) {
	gw := &blockingGateway{release: make(chan struct{}), resp: &conversation.Response{
		StatusCode: 200,
		Kind:       conversation.KindChart,
		Content:    "not json",
	}}
	close(gw.release)
	_, srv := newTestServer(t, gw)
	conn := dial(t, srv.URL)
	readSnapshot(t, conn)

	submit(t, srv.URL, "chart please")
	readSnapshot(t, conn)

	snap := readSnapshot(t, conn)
	assert.Contains(t, snap.HTML, chartErrorHTML)
}

func TestState(t *testing.T) {
	_, srv := newTestServer(t, &blockingGateway{release: make(chan struct{})})

	resp, err := http.Get(srv.URL + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()

	var snap Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, 1, snap.Messages)
	assert.Contains(t, snap.HTML, "Hello!")
}

func TestDisconnectRemovesClient(t *testing.T) {
	s, srv := newTestServer(t, &blockingGateway{release: make(chan struct{})})
	conn := dial(t, srv.URL)
	readSnapshot(t, conn)
	assert.Equal(t, 1, s.hub.len())

	conn.Close()
	assert.Eventually(t, func() bool { return s.hub.len() == 0 }, 5*time.Second, 10*time.Millisecond)
}
