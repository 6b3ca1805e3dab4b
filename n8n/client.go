package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/meikuraledutech/flowagent"
)

// DefaultURL is the n8n base URL used when none is configured.
const DefaultURL = "http://localhost:5678"

// FailedMessage is returned to callers when n8n rejects a workflow.
const FailedMessage = "Failed to create workflow in n8n. Please check your n8n configuration."

const maxErrorBody = 512

// Emitter turns a structure into a workflow persisted by the automation service.
type Emitter interface {
	Emit(ctx context.Context, s *flowagent.Structure) (json.RawMessage, error)
}

// Config holds the n8n API settings.
type Config struct {
	BaseURL      string
	APIKey       string
	WorkflowName string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// Client talks to the n8n workflow API.
type Client struct {
	baseURL string
	apiKey  string
	name    string
	http    *http.Client
	logger  *slog.Logger
}

var _ Emitter = (*Client)(nil)

// NewClient creates a Client for cfg.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: base, apiKey: cfg.APIKey, name: cfg.WorkflowName, http: hc, logger: logger}
}

// Emit converts s and creates it in n8n.
func (c *Client) Emit(ctx context.Context, s *flowagent.Structure) (json.RawMessage, error) {
	return c.Create(ctx, Convert(s, c.name))
}

// Create posts wf to {baseURL}/workflows and returns the response body verbatim.
// Transport failures and non-2xx answers are reported as flowagent.ErrEmission.
func (c *Client) Create(ctx context.Context, wf Workflow) (json.RawMessage, error) {
	body, err := json.Marshal(wf)
	if err != nil {
		return nil, fail(fmt.Errorf("n8n: encode workflow: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/workflows", bytes.NewReader(body))
	if err != nil {
		return nil, fail(fmt.Errorf("n8n: build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-N8N-API-KEY", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fail(fmt.Errorf("n8n: create workflow: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(fmt.Errorf("n8n: read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fail(fmt.Errorf("n8n: create workflow: status %d: %s", resp.StatusCode, excerpt(data)))
	}
	if !json.Valid(data) {
		return nil, fail(fmt.Errorf("n8n: response is not JSON: %s", excerpt(data)))
	}

	c.logger.Info("workflow created in n8n", "name", wf.Name, "nodes", len(wf.Nodes))
	return json.RawMessage(data), nil
}

func excerpt(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}

func fail(err error) error {
	return flowagent.NewError(flowagent.ErrEmission, FailedMessage, err)
}
