// Package instruct converts free-text instructions into a workflow structure
// with a chat-completion model.
package instruct

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/meikuraledutech/flowagent"
)

// FailedMessage is returned to callers when interpretation fails for any reason.
const FailedMessage = "Failed to process your instruction. Please try again with more specific details."

// DefaultModel is used when Config.Model is empty.
const DefaultModel = openai.GPT4

// Config holds the completion service settings.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // optional, for OpenAI-compatible endpoints
	Timeout time.Duration
}

// Completer is the subset of the go-openai client used by Interpreter.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Interpreter asks a language model to translate instructions into a Structure.
type Interpreter struct {
	client  Completer
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an Interpreter backed by the go-openai client.
func New(cfg Config, logger *slog.Logger) *Interpreter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return NewWithClient(cfg, openai.NewClientWithConfig(clientCfg), logger)
}

// NewWithClient creates an Interpreter around an existing client.
func NewWithClient(cfg Config, client Completer, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Interpreter{client: client, model: model, timeout: cfg.Timeout, logger: logger}
}

// Interpret sends instruction to the model and decodes its JSON answer.
// Any failure is reported as flowagent.ErrInterpretation.
func (i *Interpreter) Interpret(ctx context.Context, instruction string) (*flowagent.Structure, error) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	resp, err := i.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: i.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: instruction},
		},
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fail(fmt.Errorf("instruct: completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return nil, fail(errors.New("instruct: no choices returned"))
	}

	content := resp.Choices[0].Message.Content
	s, err := decode(content)
	if err != nil {
		return nil, fail(err)
	}

	i.logger.Debug("instruction interpreted",
		"model", i.model,
		"nodes", len(s.Nodes),
		"edges", len(s.Edges),
		"candidates", len(s.CandidateProviders))
	return s, nil
}

// decode parses a model answer and checks it has the Structure shape.
// Referential checks are left to Structure.Validate.
func decode(content string) (*flowagent.Structure, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("instruct: empty response")
	}

	var s flowagent.Structure
	if err := json.Unmarshal([]byte(content), &s); err != nil {
		return nil, fmt.Errorf("instruct: response is not a workflow structure: %w", err)
	}
	if len(s.Nodes) == 0 {
		return nil, errors.New("instruct: response has no nodes")
	}
	for idx, n := range s.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("instruct: node %d has no id", idx)
		}
		if n.Name == "" {
			s.Nodes[idx].Name = n.ID
		}
	}
	if s.Edges == nil {
		s.Edges = []flowagent.Edge{}
	}
	if s.CandidateProviders == nil {
		s.CandidateProviders = []flowagent.ProviderCandidate{}
	}
	return &s, nil
}

func fail(err error) error {
	return flowagent.NewError(flowagent.ErrInterpretation, FailedMessage, err)
}
