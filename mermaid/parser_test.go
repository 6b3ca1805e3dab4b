package mermaid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flowagent"
)

func TestParseWebhookToEmail(t *testing.T) {
	s, err := Parse("A[Webhook] --> B[Send Email]")
	require.NoError(t, err)

	require.Len(t, s.Nodes, 2)
	assert.Equal(t, flowagent.Node{ID: "A", Name: "Webhook", Type: flowagent.TypeWebhookTrigger}, s.Nodes[0])
	assert.Equal(t, flowagent.Node{ID: "B", Name: "Send Email", Type: flowagent.TypeEmailSend}, s.Nodes[1])
	assert.Equal(t, []flowagent.Edge{{Source: "A", Target: "B"}}, s.Edges)
	assert.Equal(t, []string{"A"}, s.Triggers)
	assert.Empty(t, s.CandidateProviders)
	require.NoError(t, s.Validate())
}

func TestParseCountsNodesAndEdges(t *testing.T) {
	diagram := `graph TD
    A[HTTP Trigger] --> B[Search the web]
    B --> C{skipped shape}
    B --> D[Summarize with GPT]
    D -->|done| E[Post to Slack]
    D --> F[Archive to GitHub]
    %% G[Commented out]
    H[Standalone function]`

	s, err := Parse(diagram)
	require.NoError(t, err)

	ids := make([]string, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"A", "B", "D", "E", "F", "H"}, ids)
	assert.Equal(t, []flowagent.Edge{
		{Source: "A", Target: "B"},
		{Source: "B", Target: "C"},
		{Source: "B", Target: "D"},
		{Source: "D", Target: "E"},
		{Source: "D", Target: "F"},
	}, s.Edges)
	assert.Equal(t, []string{"A", "H"}, s.Triggers)
}

func TestParseChainedArrows(t *testing.T) {
	s, err := Parse("A[Start] --> B[Middle] --> C[End]")
	require.NoError(t, err)
	assert.Len(t, s.Nodes, 3)
	assert.Equal(t, []flowagent.Edge{{Source: "A", Target: "B"}, {Source: "B", Target: "C"}}, s.Edges)
	assert.Equal(t, []string{"A"}, s.Triggers)
}

func TestParseTriggersProperty(t *testing.T) {
	s, err := Parse("X[One]\nY[Two]\nZ[Three]\nX --> Y\nZ --> Y\nY --> Y")
	require.NoError(t, err)

	targets := map[string]bool{}
	for _, e := range s.Edges {
		targets[e.Target] = true
	}
	for _, n := range s.Nodes {
		assert.Equal(t, !targets[n.ID], contains(s.Triggers, n.ID), "node %s", n.ID)
	}
}

func TestParseDuplicateNodeKeepsFirstLabel(t *testing.T) {
	s, err := Parse("A[Webhook] --> B[Code]\nA[Other] --> C[Slack]")
	require.NoError(t, err)
	require.Len(t, s.Nodes, 3)
	assert.Equal(t, "Webhook", s.Nodes[0].Name)
	assert.Len(t, s.Edges, 2)
}

func TestParseNoNodes(t *testing.T) {
	for _, in := range []string{"", "graph TD", "A --> B", "just words"} {
		_, err := Parse(in)
		require.Error(t, err, in)
		assert.ErrorIs(t, err, flowagent.ErrParse)
		assert.Equal(t, ParseFailedMessage, err.Error())
	}
}

func TestParseCapabilityCandidates(t *testing.T) {
	s, err := Parse("A[Brave Search] --> B[Write code] --> C[Ask Claude] --> D[Notify team]")
	require.NoError(t, err)
	assert.Equal(t, []flowagent.ProviderCandidate{
		{NodeID: "A", CapabilityKind: flowagent.CapabilitySearch, RecommendedProvider: "brave-search-mcp"},
		{NodeID: "B", CapabilityKind: flowagent.CapabilityCode, RecommendedProvider: "github-mcp"},
		{NodeID: "C", CapabilityKind: flowagent.CapabilityLLM, RecommendedProvider: "openai-mcp"},
	}, s.CandidateProviders)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
