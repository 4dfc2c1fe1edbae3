// Package gateway is the HTTP client for the knowledge endpoint. Client implements
// conversation.Gateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/korylprince/knowledge-chatbot/conversation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

//ConversationPath is the knowledge endpoint path relative to the server URL
const ConversationPath = "/knowledge/get-conv"

//SessionHeader carries the session key
const SessionHeader = "X-Session-Key"

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	SessionKey string `json:"session_key"`
}

type convRequest struct {
	PromptInput string                      `json:"prompt_input"`
	Histories   []conversation.HistoryEntry `json:"histories"`
}

type convResponse struct {
	Status    *int                        `json:"status"`
	Type      string                      `json:"type"`
	Content   string                      `json:"content"`
	Histories []conversation.HistoryEntry `json:"histories"`
}

//Client talks to a knowledge server
type Client struct {
	baseURL    string
	sessionKey string
	httpClient *http.Client
}

//NewClient returns a new Client for the server at baseURL (for example http://localhost:8080/api/1.0)
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

//SetSessionKey sets the session key sent with every request
func (c *Client) SetSessionKey(key string) {
	c.sessionKey = key
}

//SessionKey returns the current session key
func (c *Client) SessionKey() string {
	return c.sessionKey
}

//Authenticate logs in with the given credentials and stores the returned session key
func (c *Client) Authenticate(ctx context.Context, email, password string) error {
	body, err := json.Marshal(authRequest{Email: email, Password: password})
	if err != nil {
		return errors.Wrap(err, "marshal auth request")
	}

	resp, err := c.post(ctx, "/auth", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("authentication failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var authResp authResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return errors.Wrap(err, "decode auth response")
	}
	if authResp.SessionKey == "" {
		return errors.New("authentication response had no session key")
	}

	c.sessionKey = authResp.SessionKey
	return nil
}

//Send posts the prompt and history to the knowledge endpoint.
//The endpoint's status field decides success; when the body has no status field the HTTP status is used.
//A transport error, or an unreadable or empty body (null, {}) on a successful HTTP status, returns an error and no Response.
func (c *Client) Send(ctx context.Context, req conversation.Request) (*conversation.Response, error) {
	histories := req.History
	if histories == nil {
		histories = []conversation.HistoryEntry{}
	}
	body, err := json.Marshal(convRequest{PromptInput: req.Prompt, Histories: histories})
	if err != nil {
		return nil, errors.Wrap(err, "marshal conversation request")
	}

	resp, err := c.post(ctx, ConversationPath, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read conversation response")
	}

	var cr convResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil, errors.Wrap(err, "decode conversation response")
		}
		log.Debug().Int("code", resp.StatusCode).Msg("gateway: undecodable error body")
		return &conversation.Response{StatusCode: resp.StatusCode}, nil
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if ok && cr.Status == nil && cr.Type == "" {
		return nil, errors.New("conversation response has no status or type")
	}

	status := resp.StatusCode
	if cr.Status != nil {
		status = *cr.Status
	}

	return &conversation.Response{
		StatusCode: status,
		Kind:       conversation.Kind(cr.Type),
		Content:    cr.Content,
		History:    cr.Histories,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.sessionKey != "" {
		httpReq.Header.Set(SessionHeader, c.sessionKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(err, "POST %s", path)
	}
	return resp, nil
}
