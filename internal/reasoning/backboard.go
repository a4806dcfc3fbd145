package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	backboardAPIURL         = "https://app.backboard.io/api"
	defaultAssistantName    = "Supply Chain Analyst"
	backboardAssistantBlurb = "Supply chain reasoning assistant that analyzes events and provides structured recommendations."
)

// BackboardClient talks to the Backboard assistants API. The first call to
// Complete creates an assistant and a thread; later calls reuse the thread
// so the assistant keeps conversational memory across events.
type BackboardClient struct {
	apiKey        string
	baseURL       string
	assistantName string
	httpClient    *http.Client

	mu          sync.Mutex
	assistantID string
	threadID    string
}

// NewBackboardClient creates a client from cfg. An empty APIKey falls back
// to BACKBOARD_API_KEY; an empty BaseURL to the public endpoint.
func NewBackboardClient(cfg ClientConfig) *BackboardClient {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("BACKBOARD_API_KEY")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = backboardAPIURL
	}
	name := cfg.AssistantName
	if name == "" {
		name = defaultAssistantName
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &BackboardClient{
		apiKey:        apiKey,
		baseURL:       baseURL,
		assistantName: name,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// Available returns true if an API key is present.
func (c *BackboardClient) Available() bool {
	return c.apiKey != ""
}

// Complete posts req.Prompt to the session thread and returns the reply.
func (c *BackboardClient) Complete(ctx context.Context, req Request) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("backboard: %w: missing API key", ErrUnavailable)
	}

	threadID, err := c.ensureThread(ctx)
	if err != nil {
		return "", err
	}
	return c.SendMessage(ctx, threadID, req.Prompt)
}

// ThreadID returns the thread created by the first Complete, if any.
func (c *BackboardClient) ThreadID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.threadID
}

func (c *BackboardClient) ensureThread(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.threadID != "" {
		return c.threadID, nil
	}
	if c.assistantID == "" {
		id, err := c.CreateAssistant(ctx, c.assistantName, backboardAssistantBlurb)
		if err != nil {
			return "", err
		}
		c.assistantID = id
	}
	id, err := c.CreateThread(ctx, c.assistantID)
	if err != nil {
		return "", err
	}
	c.threadID = id
	return id, nil
}

// CreateAssistant registers an assistant and returns its id.
func (c *BackboardClient) CreateAssistant(ctx context.Context, name, description string) (string, error) {
	body, err := json.Marshal(map[string]string{"name": name, "description": description})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var resp struct {
		AssistantID string `json:"assistant_id"`
	}
	if err := c.do(ctx, "/assistants", "application/json", bytes.NewReader(body), &resp); err != nil {
		return "", fmt.Errorf("creating assistant: %w", err)
	}
	if resp.AssistantID == "" {
		return "", fmt.Errorf("creating assistant: no assistant_id in response")
	}
	return resp.AssistantID, nil
}

// CreateThread opens a conversation thread on an assistant.
func (c *BackboardClient) CreateThread(ctx context.Context, assistantID string) (string, error) {
	var resp struct {
		ThreadID string `json:"thread_id"`
	}
	path := "/assistants/" + url.PathEscape(assistantID) + "/threads"
	if err := c.do(ctx, path, "application/json", strings.NewReader("{}"), &resp); err != nil {
		return "", fmt.Errorf("creating thread: %w", err)
	}
	if resp.ThreadID == "" {
		return "", fmt.Errorf("creating thread: no thread_id in response")
	}
	return resp.ThreadID, nil
}

// SendMessage posts content to a thread and returns the assistant's reply.
// The message endpoint takes a form body rather than JSON.
func (c *BackboardClient) SendMessage(ctx context.Context, threadID, content string) (string, error) {
	form := url.Values{}
	form.Set("content", content)
	form.Set("stream", "false")
	form.Set("memory", "Auto")

	var resp struct {
		Content json.RawMessage `json:"content"`
	}
	path := "/threads/" + url.PathEscape(threadID) + "/messages"
	if err := c.do(ctx, path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), &resp); err != nil {
		return "", fmt.Errorf("sending message: %w", err)
	}
	if len(resp.Content) == 0 || string(resp.Content) == "null" {
		return "", fmt.Errorf("sending message: empty content in response")
	}

	// Content is normally a string, but some replies carry the object
	// itself; hand that back as JSON text.
	var text string
	if err := json.Unmarshal(resp.Content, &text); err == nil {
		return text, nil
	}
	return string(resp.Content), nil
}

func (c *BackboardClient) do(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Detail != "" {
			return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, apiErr.Detail)
		}
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing API response: %w", err)
	}
	return nil
}
