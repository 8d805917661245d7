package providers

import (
	"testing"

	"vlaradar/internal/config"
)

func TestNewManagerFallsBackToMock(t *testing.T) {
	m, err := NewManager(config.Config{LLMProviders: ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.LLMCount() != 1 {
		t.Fatalf("expected one fallback provider got %d", m.LLMCount())
	}
	_, ref := m.LLMProviderByIndex(0)
	if ref.Name != "mock" {
		t.Fatalf("expected mock fallback got %q", ref.Name)
	}
}

func TestLLMProviderByIndexClamps(t *testing.T) {
	m, err := NewManager(config.Config{LLMProviders: "mock|mock"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.LLMCount() != 2 {
		t.Fatalf("expected 2 providers got %d", m.LLMCount())
	}
	_, ref := m.LLMProviderByIndex(7)
	if ref.Name != "mock" {
		t.Fatalf("out-of-range index should clamp to first provider, got %q", ref.Name)
	}
}

func TestNewManagerRejectsUnknownProvider(t *testing.T) {
	if _, err := NewManager(config.Config{LLMProviders: "carrierpigeon"}); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}
