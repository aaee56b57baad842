package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vector76/forum_server/internal/config"
)

const defaultURL = "http://localhost:8080"

// Client is an HTTP client for the forum API.
type Client struct {
	BaseURL    string
	Token      string
	User       string
	HTTPClient *http.Client
}

// getUser returns the author name sent with writes, from FORUM_USER.
func getUser() string {
	if u := config.Getenv("FORUM_USER"); u != "" {
		return u
	}
	return "anonymous"
}

// NewClientFromEnv creates a Client from FORUM_URL, FORUM_TOKEN and FORUM_USER.
// Values are read from environment variables first, then from a .env
// file in the current directory. Returns an error if FORUM_TOKEN is not set.
func NewClientFromEnv() (*Client, error) {
	token := config.Getenv("FORUM_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("FORUM_TOKEN is required")
	}

	baseURL := config.Getenv("FORUM_URL")
	if baseURL == "" {
		baseURL = defaultURL
	}

	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		User:       getUser(),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Do sends an HTTP request and returns the response body as parsed JSON.
// Returns an error if the response status is not in the 2xx range.
func (c *Client) Do(method, path string, body any) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.Token)
	if c.User != "" {
		req.Header.Set("X-Forum-User", c.User)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("%s", errResp.Error)
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// prettyJSON formats a json.RawMessage with 2-space indentation.
func prettyJSON(data json.RawMessage) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return "", err
	}
	return buf.String(), nil
}
