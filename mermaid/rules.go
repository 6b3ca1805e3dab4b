package mermaid

import (
	"strings"
	"unicode"

	"github.com/meikuraledutech/flowagent"
)

// Keyword is a case-insensitive pattern matched against a node label.
// Word keywords only match whole words, so "if" does not hit "Notify".
type Keyword struct {
	Text string
	Word bool
}

func sub(text string) Keyword  { return Keyword{Text: text} }
func word(text string) Keyword { return Keyword{Text: text, Word: true} }

func (k Keyword) match(lower string, words map[string]struct{}) bool {
	if k.Word {
		_, ok := words[k.Text]
		return ok
	}
	return strings.Contains(lower, k.Text)
}

// Rule matches a label when any of AnyOf matches and every one of AllOf matches.
// Rules are evaluated top to bottom and the first match wins.
type Rule struct {
	Name  string
	AnyOf []Keyword
	AllOf []Keyword
}

// Match reports whether the rule applies to label.
func (r Rule) Match(label string) bool {
	lower := strings.ToLower(label)
	words := splitWords(lower)

	for _, k := range r.AllOf {
		if !k.match(lower, words) {
			return false
		}
	}
	if len(r.AnyOf) == 0 {
		return len(r.AllOf) > 0
	}
	for _, k := range r.AnyOf {
		if k.match(lower, words) {
			return true
		}
	}
	return false
}

func splitWords(lower string) map[string]struct{} {
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		words[f] = struct{}{}
	}
	return words
}

// TypeRule maps a matching label to a node type.
type TypeRule struct {
	Rule
	Type string
}

// TypeRules classify node labels into node types.
var TypeRules = []TypeRule{
	{Rule{Name: "webhook", AnyOf: []Keyword{sub("webhook")}}, flowagent.TypeWebhookTrigger},
	{Rule{Name: "http-trigger", AllOf: []Keyword{sub("http"), sub("trigger")}}, flowagent.TypeWebhookTrigger},
	{Rule{Name: "slack", AnyOf: []Keyword{sub("slack")}}, flowagent.TypeSlack},
	{Rule{Name: "email", AnyOf: []Keyword{sub("email"), sub("e-mail")}}, flowagent.TypeEmailSend},
	{Rule{Name: "llm", AnyOf: []Keyword{word("ai"), sub("claude"), sub("gpt"), sub("openai"), sub("agent"), word("llm")}}, flowagent.TypeLLM},
	{Rule{Name: "search", AnyOf: []Keyword{sub("search"), sub("brave")}}, flowagent.TypeSearch},
	{Rule{Name: "github", AnyOf: []Keyword{sub("github")}}, flowagent.TypeSourceControl},
	{Rule{Name: "conditional", AnyOf: []Keyword{sub("decision"), word("if"), sub("condition")}}, flowagent.TypeConditional},
	{Rule{Name: "code", AnyOf: []Keyword{sub("function"), sub("code")}}, flowagent.TypeCodeExecution},
}

// DefaultType is used when no type rule matches.
const DefaultType = flowagent.TypeCodeExecution

// ClassifyType returns the node type for label.
func ClassifyType(label string) string {
	for _, r := range TypeRules {
		if r.Match(label) {
			return r.Type
		}
	}
	return DefaultType
}

// CapabilityRule maps a matching label to a capability kind and provider key.
type CapabilityRule struct {
	Rule
	Kind     flowagent.CapabilityKind
	Provider string
}

// CapabilityRules flag nodes for the capability enhancer, search before code before llm.
var CapabilityRules = []CapabilityRule{
	{Rule{Name: "search", AnyOf: []Keyword{sub("search"), sub("brave")}}, flowagent.CapabilitySearch, "brave-search-mcp"},
	{Rule{Name: "code", AnyOf: []Keyword{sub("code"), sub("github")}}, flowagent.CapabilityCode, "github-mcp"},
	{Rule{Name: "llm", AnyOf: []Keyword{word("ai"), sub("claude"), sub("gpt"), sub("openai"), sub("agent"), word("llm")}}, flowagent.CapabilityLLM, "openai-mcp"},
}

// ClassifyCapability returns the candidate for node, or false when no rule matches.
func ClassifyCapability(node flowagent.Node) (flowagent.ProviderCandidate, bool) {
	for _, r := range CapabilityRules {
		if r.Match(node.Name) {
			return flowagent.ProviderCandidate{
				NodeID:              node.ID,
				CapabilityKind:      r.Kind,
				RecommendedProvider: r.Provider,
			}, true
		}
	}
	return flowagent.ProviderCandidate{}, false
}
