package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	models "github.com/moncdev/personachat/models"
	"github.com/joho/godotenv"
)

const (
	OpenRouterBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	DefaultModel      = "openai/gpt-4o-mini"
	DefaultAPIKeyEnv  = "OPENROUTER_API_KEY"
)

func init() {
	// Load .env file if it exists (not present in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}

// OpenRouter_Model is a request/response completion client for OpenRouter
// or any OpenAI-compatible API endpoint. It performs exactly one HTTP
// round trip per Complete call; display pacing happens downstream.
type OpenRouter_Model struct {
	Model       string // Model identifier (e.g., "openai/gpt-4o-mini")
	Temperature *float64
	MaxTokens   *int
	SiteURL     string // Optional: Your site URL for OpenRouter rankings
	SiteName    string // Optional: Your site name for OpenRouter rankings
	BaseURL     string // Optional: Custom API base URL (defaults to OpenRouter)
	APIKeyEnv   string // Optional: Environment variable name for API key
	HTTPClient  *http.Client
}

// Complete sends the assembled prompt and returns the full reply text.
// Quota and rate-limit failures come back as distinct retryable
// ChatError kinds so the caller can back off.
func (o *OpenRouter_Model) Complete(ctx context.Context, prompt []models.Message) (string, error) {
	modelToUse := o.Model
	if modelToUse == "" {
		modelToUse = DefaultModel
	}

	reqMessages := make([]Message, 0, len(prompt))
	for _, m := range prompt {
		reqMessages = append(reqMessages, Message{Role: m.Role, Content: m.Content})
	}

	requestBody := CompletionRequest{
		Model:       modelToUse,
		Messages:    reqMessages,
		MaxTokens:   o.MaxTokens,
		Temperature: o.Temperature,
	}

	jsonBytes, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	baseURL := o.BaseURL
	if baseURL == "" {
		baseURL = OpenRouterBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, "POST", baseURL, bytes.NewReader(jsonBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	o.setHeaders(req)

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", decodeAPIError(resp.StatusCode, body)
	}

	var response CompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}

	return response.Choices[0].Message.Content, nil
}

// decodeAPIError maps provider failures onto the chat error taxonomy.
// insufficient_quota and rate_limit_exceeded are the provider codes the
// OpenAI-compatible APIs use for the two retryable 429 variants.
func decodeAPIError(status int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		switch errResp.Error.Code {
		case "insufficient_quota":
			return models.NewChatError(models.CodeQuotaExceeded,
				"Completion service quota exceeded", errResp.Error.Message)
		case "rate_limit_exceeded":
			return models.NewChatError(models.CodeRateLimited,
				"Completion service rate limit exceeded", errResp.Error.Message)
		}
		if status == http.StatusTooManyRequests {
			return models.NewChatError(models.CodeRateLimited,
				"Completion service rate limit exceeded", errResp.Error.Message)
		}
		return fmt.Errorf("completion API error: %s (type: %s)", errResp.Error.Message, errResp.Error.Type)
	}

	if status == http.StatusTooManyRequests {
		return models.NewChatError(models.CodeRateLimited,
			"Completion service rate limit exceeded", string(body))
	}
	return fmt.Errorf("completion API error: status %d, body: %s", status, string(body))
}

func (o *OpenRouter_Model) setHeaders(req *http.Request) {
	keyEnv := o.APIKeyEnv
	if keyEnv == "" {
		keyEnv = DefaultAPIKeyEnv
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+os.Getenv(keyEnv))
	if o.SiteURL != "" {
		req.Header.Set("HTTP-Referer", o.SiteURL)
	}
	if o.SiteName != "" {
		req.Header.Set("X-Title", o.SiteName)
	}
}
