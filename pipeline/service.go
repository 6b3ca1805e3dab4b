// Package pipeline runs a chat message through interpretation, capability
// enhancement and workflow emission, recording both sides in the session store.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meikuraledutech/flowagent"
	"github.com/meikuraledutech/flowagent/instruct"
	"github.com/meikuraledutech/flowagent/mermaid"
	"github.com/meikuraledutech/flowagent/n8n"
)

// Input types.
const (
	InputMermaid         = "mermaid"
	InputNaturalLanguage = "natural_language"
)

// ValidationMessage is returned when a request lacks a message or session id.
const ValidationMessage = "Message and sessionId are required"

// Pipeline stages, as reported to the Recorder.
const (
	StageInterpret = "interpret"
	StageEnhance   = "enhance"
	StageEmit      = "emit"
)

// Interpreter turns a natural-language instruction into a structure.
type Interpreter interface {
	Interpret(ctx context.Context, instruction string) (*flowagent.Structure, error)
}

// Enhancer enriches candidate nodes. It never fails.
type Enhancer interface {
	Enhance(ctx context.Context, s *flowagent.Structure) *flowagent.Structure
}

// Pinner is implemented by stores that evict sessions on their own. A pinned
// session is not evicted until the returned func is called.
type Pinner interface {
	Pin(sessionID string) (unpin func())
}

// Recorder receives pipeline outcomes and stage timings.
type Recorder interface {
	RecordChat(inputType, status string)
	ObserveStage(stage string, d time.Duration)
}

// Request is one chat message.
type Request struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	InputType string `json:"inputType,omitempty"`
}

// Response is the result of a successful chat message.
type Response struct {
	Workflow  json.RawMessage `json:"workflow"`
	Message   string          `json:"message"`
	SessionID string          `json:"sessionId"`
}

// Config wires the Service dependencies. Store, Interpreter and Emitter are
// required; Parse defaults to mermaid.Parse and the rest are optional.
type Config struct {
	Store       flowagent.Store
	Parse       func(diagram string) (*flowagent.Structure, error)
	Interpreter Interpreter
	Enhancer    Enhancer
	Emitter     n8n.Emitter
	Recorder    Recorder
	Logger      *slog.Logger
	Now         func() time.Time
}

// Service is safe for concurrent use. Requests for the same session are
// serialized; different sessions never wait on each other.
type Service struct {
	store       flowagent.Store
	parse       func(string) (*flowagent.Structure, error)
	interpreter Interpreter
	enhancer    Enhancer
	emitter     n8n.Emitter
	recorder    Recorder
	logger      *slog.Logger
	now         func() time.Time
	locks       sessionLocks
}

// New creates a Service from cfg.
func New(cfg Config) *Service {
	s := &Service{
		store:       cfg.Store,
		parse:       cfg.Parse,
		interpreter: cfg.Interpreter,
		enhancer:    cfg.Enhancer,
		emitter:     cfg.Emitter,
		recorder:    cfg.Recorder,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
	if s.parse == nil {
		s.parse = mermaid.Parse
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Chat records the user message, builds and emits a workflow, and records the
// agent reply. A failed run leaves only the user entry in the session.
func (s *Service) Chat(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Message) == "" || strings.TrimSpace(req.SessionID) == "" {
		return nil, flowagent.NewError(flowagent.ErrValidation, ValidationMessage, nil)
	}

	inputType := InputNaturalLanguage
	if req.InputType == InputMermaid {
		inputType = InputMermaid
	}
	log := s.logger.With("session_id", req.SessionID, "input_type", inputType)

	unlock, err := s.locks.lock(ctx, req.SessionID)
	if err != nil {
		s.recorder.RecordChat(inputType, "error")
		log.Warn("session wait abandoned", "error", err)
		return nil, fmt.Errorf("pipeline: wait for session: %w", err)
	}
	defer unlock()
	if p, ok := s.store.(Pinner); ok {
		defer p.Pin(req.SessionID)()
	}

	if err := s.store.Append(ctx, req.SessionID, s.entry(flowagent.RoleUser, req.Message, nil)); err != nil {
		s.recorder.RecordChat(inputType, "error")
		log.Error("append user entry", "error", err)
		return nil, fmt.Errorf("pipeline: append user entry: %w", err)
	}

	workflow, err := s.run(ctx, inputType, req.Message)
	if err != nil {
		s.recorder.RecordChat(inputType, "error")
		log.Error("chat failed", "error", err, "cause", cause(err))
		return nil, err
	}

	reply := replyFor(inputType)
	if err := s.store.Append(ctx, req.SessionID, s.entry(flowagent.RoleAgent, reply, workflow)); err != nil {
		s.recorder.RecordChat(inputType, "error")
		log.Error("append agent entry", "error", err)
		return nil, fmt.Errorf("pipeline: append agent entry: %w", err)
	}

	s.recorder.RecordChat(inputType, "ok")
	log.Info("workflow created")
	return &Response{Workflow: workflow, Message: reply, SessionID: req.SessionID}, nil
}

func (s *Service) run(ctx context.Context, inputType, message string) (json.RawMessage, error) {
	start := time.Now()
	structure, err := s.interpret(ctx, inputType, message)
	s.recorder.ObserveStage(StageInterpret, time.Since(start))
	if err != nil {
		return nil, err
	}

	if structure.Triggers == nil {
		structure.InferTriggers()
	}
	if err := structure.Validate(); err != nil {
		return nil, flowagent.NewError(flowagent.ErrMalformedStructure, failedMessage(inputType), err)
	}

	if s.enhancer != nil {
		start = time.Now()
		structure = s.enhancer.Enhance(ctx, structure)
		s.recorder.ObserveStage(StageEnhance, time.Since(start))
	}

	start = time.Now()
	workflow, err := s.emitter.Emit(ctx, structure)
	s.recorder.ObserveStage(StageEmit, time.Since(start))
	return workflow, err
}

func (s *Service) interpret(ctx context.Context, inputType, message string) (*flowagent.Structure, error) {
	if inputType == InputMermaid {
		return s.parse(message)
	}
	return s.interpreter.Interpret(ctx, message)
}

// History returns the session's entries in order.
func (s *Service) History(ctx context.Context, sessionID string) ([]flowagent.SessionEntry, error) {
	return s.store.Get(ctx, sessionID)
}

// ClearHistory empties the session, keeping it known.
func (s *Service) ClearHistory(ctx context.Context, sessionID string) error {
	unlock, err := s.locks.lock(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("pipeline: wait for session: %w", err)
	}
	defer unlock()
	return s.store.Clear(ctx, sessionID)
}

func (s *Service) entry(role flowagent.Role, content string, workflow json.RawMessage) flowagent.SessionEntry {
	return flowagent.SessionEntry{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: s.now().UTC(),
		Workflow:  workflow,
	}
}

func replyFor(inputType string) string {
	if inputType == InputMermaid {
		return "I've created a workflow based on your diagram."
	}
	return "I've created a workflow based on your instructions."
}

func failedMessage(inputType string) string {
	if inputType == InputMermaid {
		return mermaid.ParseFailedMessage
	}
	return instruct.FailedMessage
}

func cause(err error) string {
	var fe *flowagent.Error
	if errors.As(err, &fe) {
		return fe.Cause()
	}
	return err.Error()
}

type nopRecorder struct{}

func (nopRecorder) RecordChat(string, string)          {}
func (nopRecorder) ObserveStage(string, time.Duration) {}
