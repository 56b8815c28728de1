package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	models "github.com/moncdev/personachat/models"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

func init() {
	// Load .env file if it exists (not present in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}

// Gemini_Model is a request/response completion client backed by the
// Gemini API. The persona system prompt travels as the system
// instruction; the remaining turns become alternating contents.
type Gemini_Model struct {
	Model string `json:"model"`
}

// Complete sends the assembled prompt and returns the full reply text.
func (g *Gemini_Model) Complete(ctx context.Context, prompt []models.Message) (string, error) {
	modelToUse := g.Model
	if modelToUse == "" {
		modelToUse = DefaultModel
	}

	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}

	var config *genai.GenerateContentConfig
	contents := make([]*genai.Content, 0, len(prompt))

	for _, m := range prompt {
		switch m.Role {
		case models.RoleSystem:
			config = &genai.GenerateContentConfig{
				SystemInstruction: genai.NewContentFromText(m.Content, genai.RoleUser),
			}
		case models.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	result, err := client.Models.GenerateContent(ctx, modelToUse, contents, config)
	if err != nil {
		// The SDK surfaces 429s as APIError values with the HTTP code.
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && apiErr.Code == 429 {
			return "", models.NewChatError(models.CodeRateLimited,
				"Completion service rate limit exceeded", apiErr.Message)
		}
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("completion response contained no candidates")
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}
