package providers

import (
	"fmt"
	"strings"

	"vlaradar/internal/config"
)

type NamedLLMProvider struct {
	Ref      ProviderRef
	Provider LLMProvider
}

type Manager struct {
	llmProviders []NamedLLMProvider
}

func NewManager(cfg config.Config) (*Manager, error) {
	refs := ParseProviderList(cfg.LLMProviders)

	m := &Manager{}
	for _, ref := range refs {
		p, err := buildProvider(ref, cfg)
		if err != nil {
			return nil, err
		}
		m.llmProviders = append(m.llmProviders, NamedLLMProvider{Ref: ref, Provider: p})
	}
	if len(m.llmProviders) == 0 {
		m.llmProviders = []NamedLLMProvider{{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: NewMockProvider()}}
	}
	return m, nil
}

func (m *Manager) LLMProviderByIndex(i int) (LLMProvider, ProviderRef) {
	if len(m.llmProviders) == 0 {
		return NewMockProvider(), ProviderRef{Raw: "mock", Name: "mock"}
	}
	if i < 0 || i >= len(m.llmProviders) {
		i = 0
	}
	return m.llmProviders[i].Provider, m.llmProviders[i].Ref
}

func (m *Manager) LLMCount() int {
	return len(m.llmProviders)
}

func buildProvider(ref ProviderRef, cfg config.Config) (LLMProvider, error) {
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias, cfg.LLMModel), nil
	case "groq":
		return NewGroqProvider(ref.KeyAlias, ""), nil
	case "compat":
		return NewCompatProvider(ref.KeyAlias, cfg.LLMBaseURL, cfg.LLMModel), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
