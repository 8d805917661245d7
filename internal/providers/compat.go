package providers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// CompatProvider talks to any OpenAI-compatible endpoint behind a custom
// base URL, such as a self-hosted gateway or a regional relay.
type CompatProvider struct {
	keyName string
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewCompatProvider(keyName, baseURL, model string) *CompatProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = strings.TrimSpace(os.Getenv("VLARADAR_LLM_BASE_URL"))
	}
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	return &CompatProvider{
		keyName: keyName,
		apiKey:  resolveCompatKey(keyName),
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *CompatProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "compat", Model: c.model, Key: c.keyName}
	if c.baseURL == "" {
		return GenerateResponse{}, info, fmt.Errorf("compat provider base url not configured")
	}
	endpoint := c.baseURL + "/chat/completions"
	text, err := doChat(ctx, c.client, endpoint, c.apiKey, c.model, req, "compat")
	if err != nil {
		return GenerateResponse{}, info, err
	}
	return GenerateResponse{Text: text}, info, nil
}

func resolveCompatKey(alias string) string {
	if alias != "" {
		if v := os.Getenv("VLARADAR_LLM_KEY_" + strings.ToUpper(alias)); v != "" {
			return v
		}
	}
	return os.Getenv("VLARADAR_LLM_API_KEY")
}
