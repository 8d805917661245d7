package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// MockProvider returns deterministic, parseable review replies. It keeps
// the pipeline runnable without any API keys.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	_ = ctx
	// Stable pseudo-score in [40, 90) derived from the prompt, so repeat
	// runs on the same paper agree.
	h := sha256.Sum256([]byte(req.Prompt))
	n := binary.BigEndian.Uint32(h[:4])
	score := 40.0 + float64(n%500)/10.0
	text := fmt.Sprintf(`{"score": %.1f, "rationale": "Deterministic mock review; configure a real provider for semantic quality."}`, score)
	return GenerateResponse{Text: text}, ProviderInfo{Name: "mock", Model: "mock-llm-v1", Key: "mock"}, nil
}
