package capability

import (
	"sort"
	"strings"
)

// Provider is a configured capability provider endpoint.
type Provider struct {
	URL string `json:"url"`
}

// Providers maps a provider key (e.g. "brave-search-mcp") to its endpoint.
// It is built once at startup and never modified afterwards.
type Providers map[string]Provider

// LoadProviders reads MCP_SERVERS (comma separated keys) and, for each key,
// MCP_SERVER_<KEY>_URL with KEY upper-cased. Keys containing '-' are also looked
// up with '_' in their place. Keys without a URL are skipped.
func LoadProviders(lookup func(string) (string, bool)) Providers {
	providers := Providers{}

	raw, ok := lookup("MCP_SERVERS")
	if !ok {
		return providers
	}

	for _, key := range strings.Split(raw, ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if url, ok := providerURL(lookup, key); ok {
			providers[key] = Provider{URL: strings.TrimRight(url, "/")}
		}
	}
	return providers
}

func providerURL(lookup func(string) (string, bool), key string) (string, bool) {
	upper := strings.ToUpper(key)
	names := []string{"MCP_SERVER_" + upper + "_URL"}
	if alt := strings.ReplaceAll(upper, "-", "_"); alt != upper {
		names = append(names, "MCP_SERVER_"+alt+"_URL")
	}

	for _, name := range names {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// Keys returns the configured provider keys in sorted order.
func (p Providers) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
