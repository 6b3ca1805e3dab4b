package flowagent

import (
	"encoding/json"
	"fmt"
)

// CapabilityKind classifies what a capability provider offers a node.
type CapabilityKind string

const (
	CapabilitySearch CapabilityKind = "search"
	CapabilityCode   CapabilityKind = "code"
	CapabilityLLM    CapabilityKind = "llm"
)

// Valid reports whether k is one of the known capability kinds.
func (k CapabilityKind) Valid() bool {
	switch k {
	case CapabilitySearch, CapabilityCode, CapabilityLLM:
		return true
	}
	return false
}

// Abstract node types. The n8n emitter maps them onto concrete n8n node names;
// any other string is passed through as-is.
const (
	TypeWebhookTrigger = "webhook-trigger"
	TypeSlack          = "slack-integration"
	TypeEmailSend      = "email-send"
	TypeLLM            = "llm-integration"
	TypeSearch         = "search-integration"
	TypeSourceControl  = "source-control-integration"
	TypeConditional    = "conditional-branch"
	TypeCodeExecution  = "code-execution"
)

// Structure is the automation-service agnostic description of a workflow graph.
// The interpreters produce it, the capability enhancer mutates it in place and
// the emitter reads it.
type Structure struct {
	Nodes              []Node              `json:"nodes"`
	Edges              []Edge              `json:"edges"`
	Triggers           []string            `json:"triggers"`
	CandidateProviders []ProviderCandidate `json:"candidateProviders"`
}

// Node represents a single step of the workflow.
// ID must be unique within its Structure since connections are keyed by it.
type Node struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Type             string            `json:"type"`
	ProviderMetadata *ProviderMetadata `json:"providerMetadata,omitempty"`
	Parameters       map[string]any    `json:"parameters,omitempty"`
}

// Edge is a directed connection from Source to Target (both node ids).
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// ProviderCandidate flags a node that may benefit from a capability provider.
type ProviderCandidate struct {
	NodeID              string         `json:"nodeId"`
	CapabilityKind      CapabilityKind `json:"capabilityKind"`
	RecommendedProvider string         `json:"recommendedProvider"`
}

// ProviderMetadata is attached to a node by the capability enhancer.
type ProviderMetadata struct {
	ID     string          `json:"id"`
	Kind   CapabilityKind  `json:"kind"`
	URL    string          `json:"url"`
	Schema json.RawMessage `json:"schema,omitempty"`
}

// Node returns a pointer to the node with the given id, or nil.
func (s *Structure) Node(id string) *Node {
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			return &s.Nodes[i]
		}
	}
	return nil
}

// InferTriggers sets Triggers to every node that is never the target of an edge,
// in node order. Isolated nodes count as triggers.
func (s *Structure) InferTriggers() {
	targets := make(map[string]struct{}, len(s.Edges))
	for _, e := range s.Edges {
		targets[e.Target] = struct{}{}
	}

	triggers := []string{}
	for _, n := range s.Nodes {
		if _, ok := targets[n.ID]; !ok {
			triggers = append(triggers, n.ID)
		}
	}
	s.Triggers = triggers
}

// Validate checks that the structure is internally consistent: at least one node,
// unique non-empty node ids, and every edge endpoint, trigger and candidate
// referencing an existing node. Failures wrap ErrMalformedStructure.
func (s *Structure) Validate() error {
	if len(s.Nodes) == 0 {
		return fmt.Errorf("%w: no nodes", ErrMalformedStructure)
	}

	ids := make(map[string]struct{}, len(s.Nodes))
	for i, n := range s.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node %d has no id", ErrMalformedStructure, i)
		}
		if _, dup := ids[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %q", ErrMalformedStructure, n.ID)
		}
		ids[n.ID] = struct{}{}
	}

	for _, e := range s.Edges {
		if _, ok := ids[e.Source]; !ok {
			return fmt.Errorf("%w: edge source %q is not a node", ErrMalformedStructure, e.Source)
		}
		if _, ok := ids[e.Target]; !ok {
			return fmt.Errorf("%w: edge target %q is not a node", ErrMalformedStructure, e.Target)
		}
	}

	for _, t := range s.Triggers {
		if _, ok := ids[t]; !ok {
			return fmt.Errorf("%w: trigger %q is not a node", ErrMalformedStructure, t)
		}
	}

	for _, c := range s.CandidateProviders {
		if _, ok := ids[c.NodeID]; !ok {
			return fmt.Errorf("%w: candidate references unknown node %q", ErrMalformedStructure, c.NodeID)
		}
		if !c.CapabilityKind.Valid() {
			return fmt.Errorf("%w: unknown capability kind %q", ErrMalformedStructure, c.CapabilityKind)
		}
	}

	return nil
}
