package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	errx "github.com/procurebot/relay/internal/core/error"
	logx "github.com/procurebot/relay/pkg/logger"
)

const (
	pathPOStatus           = "poStatus"
	pathPRApprover         = "prApprover"
	pathVendorAvailability = "vendorAvailability"

	maxErrBody = 512
)

// replyKeys is the key each operation answers with on success.
var replyKeys = map[string]string{
	pathPOStatus:           KeyStatus,
	pathPRApprover:         KeyApprover,
	pathVendorAvailability: KeyCountries,
}

type Config struct {
	Endpoint string        `envconfig:"BOT_CLIENT_ENDPOINT" default:"http://localhost:8080/"`
	Timeout  time.Duration `envconfig:"BOT_CLIENT_TIMEOUT" default:"15s"`
}

// HTTPClient posts JSON to {endpoint}{operation}.
type HTTPClient struct {
	http     *http.Client
	endpoint string
}

func NewHTTPClient(cfg Config, httpClient *http.Client) (*HTTPClient, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("BOT_CLIENT_ENDPOINT is required")
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &HTTPClient{http: httpClient, endpoint: endpoint}, nil
}

func (c *HTTPClient) POStatus(ctx context.Context, poNumber string) (Reply, error) {
	return c.post(ctx, pathPOStatus, map[string]string{"po_number": poNumber})
}

func (c *HTTPClient) PRApprover(ctx context.Context, prNumber string) (Reply, error) {
	return c.post(ctx, pathPRApprover, map[string]string{"pr_number": prNumber})
}

func (c *HTTPClient) VendorAvailability(ctx context.Context, req VendorRequest) (Reply, error) {
	return c.post(ctx, pathVendorAvailability, req)
}

func (c *HTTPClient) post(ctx context.Context, op string, payload any) (Reply, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+op, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errx.WrapBackend(fmt.Errorf("%s: %w", op, err))
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, errx.WrapBackend(fmt.Errorf("%s: %w", op, readErr))
	}
	logx.Debug().Str("op", op).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("backend call")

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300

	// The backend reports business failures as {"exception": ...} and does not
	// always pair them with a 2xx, so the body is decoded whatever the status.
	var out Reply
	if err := json.Unmarshal(body, &out); err != nil {
		if !ok {
			return nil, errx.WrapBackend(fmt.Errorf("%s http %d: %s", op, resp.StatusCode, snippet(body)))
		}
		return nil, errx.WrapBackend(fmt.Errorf("decode %s reply: %w", op, err))
	}
	if out == nil {
		out = Reply{}
	}
	if !ok && !out.Has(KeyException) && !out.Has(replyKeys[op]) {
		return nil, errx.WrapBackend(fmt.Errorf("%s http %d: %s", op, resp.StatusCode, snippet(body)))
	}
	return out, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrBody {
		return s[:maxErrBody] + "..."
	}
	return s
}

var _ Client = (*HTTPClient)(nil)
