package httpapi_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/korylprince/knowledge-chatbot/api"
	"github.com/korylprince/knowledge-chatbot/chatbot"
	"github.com/korylprince/knowledge-chatbot/conversation"
	"github.com/korylprince/knowledge-chatbot/gateway"
	"github.com/korylprince/knowledge-chatbot/httpapi"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//fakeAI answers every chat completion with reply, or fails with status
type fakeAI struct {
	mu     sync.Mutex
	reply  string
	status int
	calls  int
}

func (f *fakeAI) fail(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func (f *fakeAI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	reply := f.reply
	json.NewEncoder(w).Encode(chatbot.ChatResponse{ID: "1", Choices: []chatbot.Choice{{
		Message: chatbot.Message{Role: "assistant", Content: &reply},
	}}})
}

type testServer struct {
	*httptest.Server
	ai    *fakeAI
	store *httpapi.MemorySessionStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := sql.Open(api.DriverSQLite, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, api.Migrate(context.Background(), db, api.DriverSQLite))
	for _, stmt := range []string{
		`CREATE TABLE acme_product (product_id INTEGER PRIMARY KEY, product_name TEXT, product_price REAL)`,
		`INSERT INTO acme_product VALUES (1, 'Widget', 9.5), (2, 'Gadget', 20)`,
		`CREATE VIEW view_acme_data_product AS SELECT * FROM acme_product`,
	} {
		_, err = db.Exec(stmt)
		require.NoError(t, err)
	}

	ai := &fakeAI{reply: "There are 2 products."}
	aiSrv := httptest.NewServer(ai)
	t.Cleanup(aiSrv.Close)

	client := chatbot.NewAIClient(aiSrv.URL, "test-model", "")
	window, err := chatbot.NewWindow(2, 0)
	require.NoError(t, err)
	agent := chatbot.NewAgent(client, chatbot.NewToolExecutor(client, chatbot.NewQueryCache(1<<20), 20), window)

	store := httpapi.NewMemorySessionStore(time.Hour)
	t.Cleanup(func() { store.Close() })

	srv := httptest.NewServer(httpapi.NewRouter(zerolog.Nop(), store, db, agent))
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, ai: ai, store: store}
}

func (s *testServer) do(t *testing.T, method, path, sessionKey string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, s.URL+httpapi.APIPrefix+path, &buf)
	require.NoError(t, err)
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionKey != "" {
		req.Header.Set("Authorization", "Bearer "+sessionKey)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

//signUp creates a user in org acme and returns its id and a session key
func (s *testServer) signUp(t *testing.T, email string) (int64, string) {
	t.Helper()

	resp, body := s.do(t, http.MethodPost, "/users/", "", &httpapi.UserCreateRequest{
		Email: email, Password: "secret", Name: "Test User", OrgName: "acme",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	id := int64(body["id"].(float64))

	resp, body = s.do(t, http.MethodPost, "/auth", "", &httpapi.AuthenticateRequest{Email: email, Password: "secret"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	return id, body["session_key"].(string)
}

func TestSignUpAndReadUser(t *testing.T) {
	s := newTestServer(t)
	id, key := s.signUp(t, "user@example.com")

	resp, body := s.do(t, http.MethodGet, fmt.Sprintf("/users/%d", id), key, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "user@example.com", body["email"])
	assert.Equal(t, "acme", body["org_name"])
	assert.NotContains(t, body, "hash")
	assert.NotEmpty(t, resp.Header.Get(httpapi.RequestIDHeader))

	resp, _ = s.do(t, http.MethodGet, fmt.Sprintf("/users/%d", id+1), key, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSignUpDuplicate(t *testing.T) {
	s := newTestServer(t)
	id, key := s.signUp(t, "user@example.com")

	resp, body := s.do(t, http.MethodPost, "/users/", key, &httpapi.UserCreateRequest{
		Email: "user@example.com", Password: "other", Name: "Other",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, float64(http.StatusConflict), body["status"])
	assert.Equal(t, float64(id), body["duplicate_id"])
}

func TestSignUpExistingOrgRejected(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "owner@example.com")

	resp, body := s.do(t, http.MethodPost, "/users/", "", &httpapi.UserCreateRequest{
		Email: "stranger@example.com", Password: "secret", Name: "Stranger", OrgName: "acme",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, float64(http.StatusForbidden), body["status"])

	resp, _ = s.do(t, http.MethodPost, "/auth", "", &httpapi.AuthenticateRequest{Email: "stranger@example.com", Password: "secret"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	//a new organization can still be founded
	resp, body = s.do(t, http.MethodPost, "/users/", "", &httpapi.UserCreateRequest{
		Email: "founder@example.com", Password: "secret", Name: "Founder", OrgName: "globex",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "globex", body["org_name"])
}

func TestMemberCreatesUserInOwnOrg(t *testing.T) {
	s := newTestServer(t)
	_, key := s.signUp(t, "owner@example.com")

	resp, body := s.do(t, http.MethodPost, "/users/", key, &httpapi.UserCreateRequest{
		Email: "colleague@example.com", Password: "secret", Name: "Colleague",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "acme", body["org_name"])

	resp, _ = s.do(t, http.MethodPost, "/users/", key, &httpapi.UserCreateRequest{
		Email: "spy@example.com", Password: "secret", Name: "Spy", OrgName: "globex",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/users/", "expired-session", &httpapi.UserCreateRequest{
		Email: "late@example.com", Password: "secret", Name: "Late", OrgName: "initech",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSignUpInvalidOrg(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPost, "/users/", "", &httpapi.UserCreateRequest{
		Email: "user@example.com", Password: "secret", Name: "Test", OrgName: "acme; DROP",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, float64(http.StatusBadRequest), body["status"])
}

func TestAuthenticateFailure(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "user@example.com")

	resp, _ := s.do(t, http.MethodPost, "/auth", "", &httpapi.AuthenticateRequest{Email: "user@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/auth", "", &httpapi.AuthenticateRequest{Email: "nobody@example.com", Password: "secret"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/auth", "", &httpapi.AuthenticateRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t)
	id, key := s.signUp(t, "user@example.com")

	path := fmt.Sprintf("/users/%d/password", id)
	resp, _ := s.do(t, http.MethodPost, path, key, &httpapi.ChangeUserPasswordRequest{OldPassword: "wrong", NewPassword: "new"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, path, key, &httpapi.ChangeUserPasswordRequest{OldPassword: "secret", NewPassword: "new"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/auth", "", &httpapi.AuthenticateRequest{Email: "user@example.com", Password: "new"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUpdateUserKeepsOrg(t *testing.T) {
	s := newTestServer(t)
	id, key := s.signUp(t, "user@example.com")

	resp, body := s.do(t, http.MethodPost, fmt.Sprintf("/users/%d", id), key, &api.User{
		ID: id, Email: "user@example.com", Name: "Renamed", OrgName: "other",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Renamed", body["name"])
	assert.Equal(t, "acme", body["org_name"])
}

func TestGetConvUnauthorized(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPost, "/knowledge/get-conv", "", &chatbot.ConvRequest{PromptInput: "hi"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, float64(http.StatusUnauthorized), body["status"])

	resp, _ = s.do(t, http.MethodPost, "/knowledge/get-conv", "not-a-session", &chatbot.ConvRequest{PromptInput: "hi"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, s.ai.callCount())
}

func TestGetConvBadRequest(t *testing.T) {
	s := newTestServer(t)
	_, key := s.signUp(t, "user@example.com")

	resp, body := s.do(t, http.MethodPost, "/knowledge/get-conv", key, &chatbot.ConvRequest{PromptInput: "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, float64(http.StatusBadRequest), body["status"])

	req, err := http.NewRequest(http.MethodPost, s.URL+httpapi.APIPrefix+"/knowledge/get-conv", bytes.NewBufferString("prompt_input=hi"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Session-Key", key)
	r, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)
	assert.Equal(t, 0, s.ai.callCount())
}

func TestGetConvThroughPanel(t *testing.T) {
	s := newTestServer(t)
	_, key := s.signUp(t, "user@example.com")

	gw := gateway.NewClient(s.URL+httpapi.APIPrefix, nil)
	gw.SetSessionKey(key)
	panel := conversation.New(gw, conversation.DefaultOptions())

	panel.SetDraft("How many products are there?")
	require.Equal(t, conversation.OutcomeSuccess, panel.Submit(context.Background()))

	msgs := panel.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, conversation.System, msgs[2].Author)
	assert.Equal(t, conversation.KindText, msgs[2].Kind)
	assert.Equal(t, "There are 2 products.", msgs[2].Payload)
	assert.Equal(t, []conversation.HistoryEntry{
		{},
		{Input: "How many products are there?", Output: "There are 2 products."},
	}, panel.History())
	assert.False(t, panel.Busy())
}

func TestGetConvAgentFailure(t *testing.T) {
	s := newTestServer(t)
	_, key := s.signUp(t, "user@example.com")
	s.ai.fail(http.StatusServiceUnavailable)

	resp, body := s.do(t, http.MethodPost, "/knowledge/get-conv", key, &chatbot.ConvRequest{PromptInput: "hi"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(http.StatusInternalServerError), body["status"])
	assert.NotEmpty(t, body["error"])
	assert.Equal(t, []interface{}{}, body["histories"])

	gw := gateway.NewClient(s.URL+httpapi.APIPrefix, nil)
	gw.SetSessionKey(key)
	panel := conversation.New(gw, conversation.DefaultOptions())

	panel.SetDraft("hi")
	require.Equal(t, conversation.OutcomeFailure, panel.Submit(context.Background()))
	msgs := panel.Messages()
	assert.Equal(t, conversation.FallbackText, msgs[len(msgs)-1].Payload)
	assert.Equal(t, []conversation.HistoryEntry{{}, {}}, panel.History())
}

func TestGatewayAuthenticate(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "user@example.com")

	gw := gateway.NewClient(s.URL+httpapi.APIPrefix, nil)
	require.Error(t, gw.Authenticate(context.Background(), "user@example.com", "wrong"))
	require.NoError(t, gw.Authenticate(context.Background(), "user@example.com", "secret"))
	assert.NotEmpty(t, gw.SessionKey())
	assert.Equal(t, 2, s.store.Len())
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodGet, "/devices/", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, float64(http.StatusNotFound), body["status"])
}
