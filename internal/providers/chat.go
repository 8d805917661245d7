package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// chatMessages builds an OpenAI-style messages array. When the request
// carries images the user turn becomes a multimodal content list.
func chatMessages(req GenerateRequest) []map[string]any {
	system := req.System
	if system == "" {
		system = "You are a research paper reviewer. Reply concisely."
	}
	messages := []map[string]any{
		{"role": "system", "content": system},
	}
	if len(req.Images) == 0 {
		messages = append(messages, map[string]any{"role": "user", "content": req.Prompt})
		return messages
	}
	parts := []map[string]any{
		{"type": "text", "text": req.Prompt},
	}
	for _, img := range req.Images {
		parts = append(parts, map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"url": img},
		})
	}
	messages = append(messages, map[string]any{"role": "user", "content": parts})
	return messages
}

func chatPayload(model string, req GenerateRequest) []byte {
	body := map[string]any{
		"model":    model,
		"messages": chatMessages(req),
	}
	if req.Temperature > 0 {
		body["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	payload, _ := json.Marshal(body)
	return payload
}

// doChat posts a chat completion and returns the first choice's content.
func doChat(ctx context.Context, client *http.Client, endpoint, apiKey, model string, req GenerateRequest, provider string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(chatPayload(model, req)))
	if err != nil {
		return "", fmt.Errorf("%s build request: %w", provider, err)
	}
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%s generate request failed: %w", provider, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%s generate error %d: %s", provider, resp.StatusCode, string(body))
	}
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode %s response: %w", provider, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s returned empty choices", provider)
	}
	return parsed.Choices[0].Message.Content, nil
}
