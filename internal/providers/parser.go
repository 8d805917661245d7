package providers

import "strings"

// ProviderRef is one entry of the configured provider list, for example
// "openai:key2" inside "mock|openai:key1|openai:key2". Name selects the
// implementation; KeyAlias names the credential environment variable.
type ProviderRef struct {
	Raw      string
	Name     string
	KeyAlias string
}

// ParseProviderList splits a pipe-separated provider spec. A blank spec
// yields the deterministic mock so the pipeline always has a scorer.
func ParseProviderList(raw string) []ProviderRef {
	out := make([]ProviderRef, 0, 4)
	for _, item := range strings.Split(raw, "|") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, alias, _ := strings.Cut(item, ":")
		out = append(out, ProviderRef{
			Raw:      item,
			Name:     strings.TrimSpace(name),
			KeyAlias: strings.TrimSpace(alias),
		})
	}
	if len(out) == 0 {
		return []ProviderRef{{Raw: "mock", Name: "mock"}}
	}
	return out
}
