// Package capability enriches flagged workflow nodes with metadata fetched
// from configured capability providers.
package capability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meikuraledutech/flowagent"
)

const maxSchemaBytes = 1 << 20

// FetchRecorder is notified of every provider schema fetch.
type FetchRecorder interface {
	RecordProviderFetch(provider, status string)
}

// Options tune an Enhancer. Zero values are usable.
type Options struct {
	// Timeout bounds each schema fetch. Ignored when HTTPClient is set.
	Timeout time.Duration
	// Concurrency caps parallel fetches; values below 1 mean sequential.
	Concurrency int
	HTTPClient  *http.Client
	Recorder    FetchRecorder
	Logger      *slog.Logger
}

// Enhancer attaches provider schemas and default parameters to candidate nodes.
type Enhancer struct {
	providers   Providers
	client      *http.Client
	concurrency int
	recorder    FetchRecorder
	logger      *slog.Logger
}

// New creates an Enhancer for the given providers.
func New(providers Providers, opts Options) *Enhancer {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Enhancer{
		providers:   providers,
		client:      client,
		concurrency: concurrency,
		recorder:    opts.Recorder,
		logger:      logger,
	}
}

type fetchTask struct {
	node      *flowagent.Node
	candidate flowagent.ProviderCandidate
	url       string
}

// Enhance mutates s in place and returns it. It is a no-op when s has no
// candidates or no providers are configured. Fetch failures are logged and
// leave the affected node untouched; they never fail the call.
func (e *Enhancer) Enhance(ctx context.Context, s *flowagent.Structure) *flowagent.Structure {
	if s == nil || len(s.CandidateProviders) == 0 || len(e.providers) == 0 {
		return s
	}

	var tasks []fetchTask
	for _, c := range s.CandidateProviders {
		p, ok := e.providers[c.RecommendedProvider]
		if !ok {
			continue
		}
		node := s.Node(c.NodeID)
		if node == nil {
			e.logger.Debug("candidate node not found", "node", c.NodeID, "provider", c.RecommendedProvider)
			continue
		}
		tasks = append(tasks, fetchTask{node: node, candidate: c, url: p.URL})
	}
	if len(tasks) == 0 {
		return s
	}

	// Each task owns its slot; errors are captured per task so siblings keep going.
	schemas := make([]json.RawMessage, len(tasks))
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, t := range tasks {
		g.Go(func() error {
			schema, err := e.fetchSchema(ctx, t.url)
			if err != nil {
				e.logger.Warn("provider schema fetch failed",
					"provider", t.candidate.RecommendedProvider,
					"node", t.candidate.NodeID,
					"error", err)
				e.record(t.candidate.RecommendedProvider, "error")
				return nil
			}
			schemas[i] = schema
			e.record(t.candidate.RecommendedProvider, "ok")
			return nil
		})
	}
	_ = g.Wait()

	for i, t := range tasks {
		if schemas[i] == nil {
			continue
		}
		attach(t.node, t.candidate, t.url, schemas[i])
	}
	return s
}

func (e *Enhancer) fetchSchema(ctx context.Context, baseURL string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/schema", nil)
	if err != nil {
		return nil, fmt.Errorf("capability: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("capability: fetch schema: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("capability: schema endpoint returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSchemaBytes))
	if err != nil {
		return nil, fmt.Errorf("capability: read schema: %w", err)
	}
	if !json.Valid(body) {
		return nil, errors.New("capability: schema is not valid JSON")
	}
	return json.RawMessage(body), nil
}

func (e *Enhancer) record(provider, status string) {
	if e.recorder != nil {
		e.recorder.RecordProviderFetch(provider, status)
	}
}

// Defaults returns the parameter key and default options attached for kind.
func Defaults(kind flowagent.CapabilityKind) (string, map[string]any) {
	switch kind {
	case flowagent.CapabilitySearch:
		return "searchOptions", map[string]any{"resultCount": 10, "useSmartExtraction": true}
	case flowagent.CapabilityCode:
		return "codeOptions", map[string]any{"language": "javascript", "includeTests": true}
	case flowagent.CapabilityLLM:
		return "llmOptions", map[string]any{"temperature": 0.7, "maxTokens": 2000}
	}
	return "", nil
}

func attach(node *flowagent.Node, c flowagent.ProviderCandidate, url string, schema json.RawMessage) {
	node.ProviderMetadata = &flowagent.ProviderMetadata{
		ID:     c.RecommendedProvider,
		Kind:   c.CapabilityKind,
		URL:    url,
		Schema: schema,
	}
	if node.Parameters == nil {
		node.Parameters = map[string]any{}
	}
	node.Parameters["providerEnabled"] = true
	node.Parameters["providerEndpoint"] = url
	if key, opts := Defaults(c.CapabilityKind); key != "" {
		node.Parameters[key] = opts
	}
}
