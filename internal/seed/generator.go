// ABOUTME: Sample data generator for the fake backend.
// ABOUTME: Uses OpenAI to write posts and comments when a key is configured, static data otherwise.

package seed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-5-mini"

// Generator creates fake posts using OpenAI or falls back to static data.
type Generator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewGenerator creates a generator. An empty apiKey selects static data.
func NewGenerator(apiKey, model string, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if model == "" {
		model = DefaultModel
	}
	g := &Generator{model: model, logger: logger}
	if apiKey != "" {
		g.client = openai.NewClient(apiKey)
		logger.Info("OpenAI API key found, using AI-generated data", zap.String("model", model))
	} else {
		logger.Debug("no OpenAI API key, using static fallback data")
	}
	return g
}

// UsesAI reports whether posts come from OpenAI.
func (g *Generator) UsesAI() bool {
	return g.client != nil
}

// PostData is a generated post with its comments.
type PostData struct {
	Title     string        `json:"title"`
	Body      string        `json:"body"`
	Tags      []string      `json:"tags"`
	Published bool          `json:"published"`
	Views     int           `json:"views"`
	Comments  []CommentData `json:"comments"`
}

// CommentData is a generated comment.
type CommentData struct {
	Body string `json:"body"`
}

// GeneratePosts returns count posts. AI failures fall back to static data.
func (g *Generator) GeneratePosts(ctx context.Context, count int) []PostData {
	if g.client == nil {
		return generateStatic(count)
	}

	g.logger.Info("generating posts via AI", zap.Int("count", count))
	posts, err := g.generatePosts(ctx, count)
	if err != nil || len(posts) == 0 {
		g.logger.Warn("AI generation failed, falling back to static data", zap.Error(err))
		return generateStatic(count)
	}
	return posts
}

func (g *Generator) generatePosts(ctx context.Context, count int) ([]PostData, error) {
	prompt := fmt.Sprintf(`Generate %d realistic blog posts for a small company's internal site. Include a mix of:
- Announcements and release notes
- Engineering write-ups
- Planning notes and drafts
- Social posts

Return as JSON array with objects containing: title, body (2-3 sentences), tags (array of 1-3 lowercase words),
published (boolean, about 70%% true), views (integer 0-500), comments (array of 0-3 objects with a body field).`, count)

	return callOpenAI[[]PostData](ctx, g.client, g.model, prompt)
}

func callOpenAI[T any](ctx context.Context, client *openai.Client, model, prompt string) (T, error) {
	var result T

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a data generator. Always respond with valid JSON only, no markdown or explanation.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return result, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return result, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return result, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	return result, nil
}
