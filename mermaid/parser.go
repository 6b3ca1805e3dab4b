// Package mermaid turns a line-oriented flowchart diagram into a workflow structure.
//
// Only two token shapes are understood: node declarations `id[label]` and
// arrows `a --> b` (optionally `a -->|label| b`, chains such as `a --> b --> c`,
// and endpoints that carry their own `[label]`). Everything else is ignored.
package mermaid

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/meikuraledutech/flowagent"
)

// ParseFailedMessage is returned to callers when a diagram yields no nodes.
const ParseFailedMessage = "Failed to parse the mermaid diagram. Please check your syntax and try again."

var (
	nodePattern   = regexp.MustCompile(`([A-Za-z0-9_]+)\[([^\]]+)\]`)
	sourcePattern = regexp.MustCompile(`([A-Za-z0-9_]+)(?:\[[^\]]*\])?\s*$`)
	targetPattern = regexp.MustCompile(`^\s*(?:\|[^|]*\|)?\s*([A-Za-z0-9_]+)`)
)

const arrow = "-->"

// Parse extracts nodes, edges, triggers and capability candidates from diagram.
// It fails with flowagent.ErrParse when no node declaration is found.
func Parse(diagram string) (*flowagent.Structure, error) {
	s := &flowagent.Structure{
		Nodes:              []flowagent.Node{},
		Edges:              []flowagent.Edge{},
		CandidateProviders: []flowagent.ProviderCandidate{},
	}

	seen := make(map[string]struct{})
	for _, line := range strings.Split(diagram, "\n") {
		line = stripComment(line)

		for _, m := range nodePattern.FindAllStringSubmatch(line, -1) {
			id, label := m[1], strings.TrimSpace(m[2])
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			s.Nodes = append(s.Nodes, flowagent.Node{
				ID:   id,
				Name: label,
				Type: ClassifyType(label),
			})
		}

		s.Edges = append(s.Edges, parseEdges(line)...)
	}

	if len(s.Nodes) == 0 {
		return nil, flowagent.NewError(flowagent.ErrParse, ParseFailedMessage,
			fmt.Errorf("mermaid: no node declarations found"))
	}

	s.InferTriggers()
	for _, n := range s.Nodes {
		if c, ok := ClassifyCapability(n); ok {
			s.CandidateProviders = append(s.CandidateProviders, c)
		}
	}

	return s, nil
}

// parseEdges returns one edge per arrow on the line whose both sides name a node.
func parseEdges(line string) []flowagent.Edge {
	parts := strings.Split(line, arrow)
	if len(parts) < 2 {
		return nil
	}

	var edges []flowagent.Edge
	for i := 0; i < len(parts)-1; i++ {
		src := sourcePattern.FindStringSubmatch(parts[i])
		dst := targetPattern.FindStringSubmatch(parts[i+1])
		if src == nil || dst == nil {
			continue
		}
		edges = append(edges, flowagent.Edge{Source: src[1], Target: dst[1]})
	}
	return edges
}

func stripComment(line string) string {
	if i := strings.Index(line, "%%"); i >= 0 {
		return line[:i]
	}
	return line
}
