// Package n8n converts workflow structures into n8n workflow objects and
// submits them to the n8n REST API.
package n8n

import (
	"github.com/meikuraledutech/flowagent"
)

// DefaultName is the workflow name used when none is configured.
const DefaultName = "Auto-Generated Workflow"

// Layout constants for the vertical stack of nodes.
const (
	ColumnX = 250
	TopY    = 100
	RowGap  = 150
)

// Workflow is the body sent to POST /workflows.
type Workflow struct {
	Name        string                  `json:"name" yaml:"name"`
	Nodes       []Node                  `json:"nodes" yaml:"nodes"`
	Connections map[string][]Connection `json:"connections" yaml:"connections"`
	Active      bool                    `json:"active" yaml:"active"`
	Settings    Settings                `json:"settings" yaml:"settings"`
}

// Node is one n8n node.
type Node struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Type        string         `json:"type" yaml:"type"`
	TypeVersion int            `json:"typeVersion" yaml:"typeVersion"`
	Position    Position       `json:"position" yaml:"position"`
	Parameters  map[string]any `json:"parameters" yaml:"parameters"`
}

// Position is a node's canvas coordinate.
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Connection points at the node receiving output from the connection's source.
type Connection struct {
	Node  string `json:"node" yaml:"node"`
	Type  string `json:"type" yaml:"type"`
	Index int    `json:"index" yaml:"index"`
}

// Settings is the fixed settings block of generated workflows.
type Settings struct {
	SaveManualExecutions bool   `json:"saveManualExecutions" yaml:"saveManualExecutions"`
	CallerPolicy         string `json:"callerPolicy" yaml:"callerPolicy"`
}

// nodeTypes maps abstract structure types to n8n node type names.
var nodeTypes = map[string]string{
	flowagent.TypeWebhookTrigger: "n8n-nodes-base.webhook",
	flowagent.TypeSlack:          "n8n-nodes-base.slack",
	flowagent.TypeEmailSend:      "n8n-nodes-base.emailSend",
	flowagent.TypeLLM:            "n8n-nodes-base.openAi",
	flowagent.TypeSearch:         "custom.braveSearch",
	flowagent.TypeSourceControl:  "n8n-nodes-base.github",
	flowagent.TypeConditional:    "n8n-nodes-base.if",
	flowagent.TypeCodeExecution:  "n8n-nodes-base.function",
}

// NodeType returns the n8n node type for an abstract type. Unknown types,
// including concrete n8n names, are returned unchanged.
func NodeType(t string) string {
	if n, ok := nodeTypes[t]; ok {
		return n
	}
	return t
}

// PositionAt returns the canvas position of the node at index.
func PositionAt(index int) Position {
	return Position{X: ColumnX, Y: TopY + RowGap*index}
}

// Convert builds the n8n workflow for s. The structure is not modified.
func Convert(s *flowagent.Structure, name string) Workflow {
	if name == "" {
		name = DefaultName
	}

	wf := Workflow{
		Name:        name,
		Nodes:       make([]Node, 0, len(s.Nodes)),
		Connections: map[string][]Connection{},
		Active:      false,
		Settings: Settings{
			SaveManualExecutions: true,
			CallerPolicy:         "workflowsFromSameOwner",
		},
	}

	for i, n := range s.Nodes {
		params := make(map[string]any, len(n.Parameters))
		for k, v := range n.Parameters {
			params[k] = v
		}
		wf.Nodes = append(wf.Nodes, Node{
			ID:          n.ID,
			Name:        n.Name,
			Type:        NodeType(n.Type),
			TypeVersion: 1,
			Position:    PositionAt(i),
			Parameters:  params,
		})
	}

	for _, e := range s.Edges {
		wf.Connections[e.Source] = append(wf.Connections[e.Source], Connection{
			Node:  e.Target,
			Type:  "main",
			Index: 0,
		})
	}

	return wf
}
