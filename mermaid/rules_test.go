package mermaid

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meikuraledutech/flowagent"
)

func TestClassifyType(t *testing.T) {
	tests := []struct {
		label, want string
	}{
		{"Slack Notify", flowagent.TypeSlack},
		{"Run Code", flowagent.TypeCodeExecution},
		{"Something unrelated", flowagent.TypeCodeExecution},
		{"Webhook", flowagent.TypeWebhookTrigger},
		{"HTTP Trigger", flowagent.TypeWebhookTrigger},
		{"http request", flowagent.TypeCodeExecution},
		{"SEND EMAIL", flowagent.TypeEmailSend},
		{"Ask AI", flowagent.TypeLLM},
		{"ChatGPT summary", flowagent.TypeLLM},
		{"OpenAI Summarize", flowagent.TypeLLM},
		{"AIAgent", flowagent.TypeLLM},
		{"Brave lookup", flowagent.TypeSearch},
		{"Open GitHub issue", flowagent.TypeSourceControl},
		{"If paid", flowagent.TypeConditional},
		{"Check condition", flowagent.TypeConditional},
		{"Notify user", flowagent.TypeCodeExecution},
		{"Email the AI report", flowagent.TypeEmailSend},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyType(tt.label))
		})
	}
}

func TestClassifyTypeIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, ClassifyType("slack notify"), ClassifyType("SLACK NOTIFY"))
}

func TestRuleMatch(t *testing.T) {
	r := Rule{Name: "http-trigger", AllOf: []Keyword{sub("http"), sub("trigger")}}
	assert.True(t, r.Match("HTTP Trigger"))
	assert.False(t, r.Match("HTTP call"))

	w := Rule{Name: "ai", AnyOf: []Keyword{word("ai")}}
	assert.True(t, w.Match("use ai-model"))
	assert.False(t, w.Match("Send Email"))

	assert.False(t, Rule{Name: "empty"}.Match("anything"))
}

func TestClassifyCapability(t *testing.T) {
	c, ok := ClassifyCapability(flowagent.Node{ID: "n1", Name: "Web search"})
	assert.True(t, ok)
	assert.Equal(t, flowagent.ProviderCandidate{
		NodeID:              "n1",
		CapabilityKind:      flowagent.CapabilitySearch,
		RecommendedProvider: "brave-search-mcp",
	}, c)

	// search outranks code and llm
	c, ok = ClassifyCapability(flowagent.Node{ID: "n2", Name: "Search code with GPT"})
	assert.True(t, ok)
	assert.Equal(t, flowagent.CapabilitySearch, c.CapabilityKind)

	c, ok = ClassifyCapability(flowagent.Node{ID: "n3", Name: "GitHub PR with GPT"})
	assert.True(t, ok)
	assert.Equal(t, flowagent.CapabilityCode, c.CapabilityKind)

	_, ok = ClassifyCapability(flowagent.Node{ID: "n4", Name: "Send Email"})
	assert.False(t, ok)

	for _, name := range []string{"OpenAI Summarize", "AIAgent"} {
		c, ok = ClassifyCapability(flowagent.Node{ID: "n5", Name: name})
		assert.True(t, ok, name)
		assert.Equal(t, flowagent.ProviderCandidate{
			NodeID:              "n5",
			CapabilityKind:      flowagent.CapabilityLLM,
			RecommendedProvider: "openai-mcp",
		}, c, name)
	}
}
