package watson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	errx "github.com/procurebot/relay/internal/core/error"
	"github.com/procurebot/relay/internal/nlu"
	logx "github.com/procurebot/relay/pkg/logger"
)

const maxErrBody = 512

type Config struct {
	URL         string        `envconfig:"CONVERSATION_URL" default:"https://gateway.watsonplatform.net/conversation/api"`
	WorkspaceID string        `envconfig:"CONVERSATION_WORKSPACE_ID"`
	Username    string        `envconfig:"CONVERSATION_USERNAME"`
	Password    string        `envconfig:"CONVERSATION_PASSWORD"`
	Version     string        `envconfig:"CONVERSATION_VERSION" default:"2017-05-26"`
	Timeout     time.Duration `envconfig:"CONVERSATION_TIMEOUT" default:"15s"`
}

// Client talks to the Watson Conversation / Assistant v1 message API.
type Client struct {
	http        *http.Client
	baseURL     string
	workspaceID string
	username    string
	password    string
	version     string
}

// New builds a Client. A nil httpClient gets one with cfg.Timeout.
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	workspaceID := strings.TrimSpace(cfg.WorkspaceID)
	if workspaceID == "" {
		return nil, fmt.Errorf("CONVERSATION_WORKSPACE_ID is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("CONVERSATION_URL is required")
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		http:        httpClient,
		baseURL:     baseURL,
		workspaceID: workspaceID,
		username:    cfg.Username,
		password:    cfg.Password,
		version:     cfg.Version,
	}, nil
}

type messageInput struct {
	Text string `json:"text"`
}

type messageRequest struct {
	Input   messageInput `json:"input"`
	Context nlu.Context  `json:"context,omitempty"`
}

// Message implements nlu.Engine.
func (c *Client) Message(ctx context.Context, text string, prior nlu.Context) (*nlu.Response, error) {
	raw, err := json.Marshal(messageRequest{Input: messageInput{Text: text}, Context: prior})
	if err != nil {
		return nil, fmt.Errorf("marshal message request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/workspaces/%s/message", c.baseURL, url.PathEscape(c.workspaceID))
	if c.version != "" {
		endpoint += "?version=" + url.QueryEscape(c.version)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errx.WrapNLU(err)
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, errx.WrapNLU(readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logx.Warn().Int("status", resp.StatusCode).Str("workspace_id", c.workspaceID).Msg("watson message returned non-2xx")
		return nil, errx.WrapNLU(fmt.Errorf("watson message http %d: %s", resp.StatusCode, snippet(body)))
	}

	var out nlu.Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errx.WrapNLU(fmt.Errorf("decode watson response: %w", err))
	}
	return &out, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrBody {
		return s[:maxErrBody] + "..."
	}
	return s
}

var _ nlu.Engine = (*Client)(nil)
