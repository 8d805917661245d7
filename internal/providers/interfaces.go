package providers

import "context"

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Key   string `json:"key"`
}

type GenerateRequest struct {
	Operation   string   `json:"operation"`
	System      string   `json:"system"`
	Prompt      string   `json:"prompt"`
	Images      []string `json:"images,omitempty"` // data URLs
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
}

type GenerateResponse struct {
	Text string `json:"text"`
}

type LLMProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error)
}
