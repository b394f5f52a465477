package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GatewayClient talks to an OpenAI-compatible chat completions gateway.
type GatewayClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewGatewayClient creates a gateway-backed completion client.
func NewGatewayClient(baseURL, apiKey, model string, timeout time.Duration) (*GatewayClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("assistant: gateway api key is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("assistant: gateway base url is required")
	}
	if strings.TrimSpace(model) == "" {
		model = "google/gemini-2.5-flash"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GatewayClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type gatewayRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature,omitempty"`
}

type gatewayResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Complete sends the request and returns the first choice's content.
func (c *GatewayClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := make([]Message, 0, len(req.Messages)+1)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: req.System})
	}
	messages = append(messages, req.Messages...)
	if len(messages) == 0 {
		return "", errors.New("assistant: completion requires at least one message")
	}

	payload, err := json.Marshal(gatewayRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("assistant: encode gateway request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("assistant: build gateway request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("assistant: gateway call failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return "", ErrRateLimited
	case http.StatusPaymentRequired:
		return "", ErrQuotaExceeded
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("assistant: gateway returned %d: %s", resp.StatusCode, string(body))
	}

	var decoded gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("assistant: decode gateway response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("assistant: gateway returned no choices")
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}
