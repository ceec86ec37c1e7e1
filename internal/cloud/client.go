// Package cloud is the HTTP implementation of the session engine's
// persistence collaborators. It talks to a remote gateway exposing the
// /api/conversations, /api/feedback and /api/users endpoints, so a session
// engine embedded in one process can store its state in another.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"askcampus/backend/internal/model"
)

type Client struct {
	client *http.Client
	url    string
}

// NewClient builds a gateway client. The base url carries no trailing slash.
func NewClient(baseURL string) *Client {
	return &Client{
		client: &http.Client{Timeout: 30 * time.Second},
		url:    baseURL,
	}
}

type saveConversationsRequest struct {
	UserID        string                         `json:"userId"`
	Conversations map[string]*model.Conversation `json:"conversations"`
}

type loadConversationsResponse struct {
	Conversations map[string]*model.Conversation `json:"conversations"`
}

type activeConversationPayload struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
}

type registerGuestRequest struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

func (c *Client) SaveConversations(ctx context.Context, userID string, convs map[string]*model.Conversation) error {
	payload := saveConversationsRequest{UserID: userID, Conversations: convs}
	return c.post(ctx, "/api/conversations/save", payload, nil)
}

func (c *Client) LoadConversations(ctx context.Context, userID string) (map[string]*model.Conversation, error) {
	var out loadConversationsResponse
	path := "/api/conversations/load?userId=" + url.QueryEscape(userID)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	if out.Conversations == nil {
		return map[string]*model.Conversation{}, nil
	}
	return out.Conversations, nil
}

func (c *Client) SaveActiveID(ctx context.Context, userID, conversationID string) error {
	payload := activeConversationPayload{UserID: userID, ConversationID: conversationID}
	return c.post(ctx, "/api/conversations/active", payload, nil)
}

func (c *Client) LoadActiveID(ctx context.Context, userID string) (string, error) {
	var out activeConversationPayload
	path := "/api/conversations/active?userId=" + url.QueryEscape(userID)
	if err := c.get(ctx, path, &out); err != nil {
		return "", err
	}
	return out.ConversationID, nil
}

func (c *Client) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	path := fmt.Sprintf("/api/conversations/delete?userId=%s&conversationId=%s",
		url.QueryEscape(userID), url.QueryEscape(conversationID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.url+path, nil)
	if err != nil {
		return fmt.Errorf("could not create http request: %w", err)
	}
	return c.do(req, nil)
}

func (c *Client) Submit(ctx context.Context, entry model.FeedbackEntry) error {
	return c.post(ctx, "/api/feedback", entry, nil)
}

func (c *Client) RegisterGuest(ctx context.Context, guestID string, ts time.Time) error {
	payload := registerGuestRequest{UserID: guestID, Timestamp: ts}
	return c.post(ctx, "/api/users/guest", payload, nil)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("could not marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("could not create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+path, nil)
	if err != nil {
		return fmt.Errorf("could not create http request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}
	return nil
}
