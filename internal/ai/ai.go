// Package ai provides the optional natural-language to search-query
// assist, backed by an OpenAI-compatible API.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mr-karan/abode/internal/config"
	"github.com/mr-karan/abode/pkg/models"
)

const systemPrompt = `You translate natural language requests into abode search queries.

The query language:
- label:value matches value against a field (wildcard, case-insensitive)
- label=value matches exactly
- "quoted text" disables wildcard expansion
- /pattern/ and /pattern/i are regular expressions
- AND, OR, NOT combine terms; (parentheses) group them
- dotted labels traverse references, e.g. guild.owner.name:Danny
- -> field1 field2 projects specific fields

Respond with the query alone, no explanation and no quoting.`

// Assist suggests archive queries from natural-language prompts.
type Assist struct {
	client *openai.Client
	model  string
	log    *slog.Logger
}

// New builds an Assist from config. Returns nil when no API key is
// configured; callers treat a nil Assist as the feature being off.
func New(cfg config.AIConfig, log *slog.Logger) *Assist {
	if cfg.APIKey == "" {
		return nil
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &Assist{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		log:    log.With("component", "ai"),
	}
}

// Suggest returns a query for the given model and prompt.
func (a *Assist) Suggest(ctx context.Context, modelName, prompt string) (string, error) {
	descriptor, ok := models.Lookup(modelName)
	if !ok {
		return "", fmt.Errorf("unsupported model %q", modelName)
	}

	fields := strings.Join(descriptor.FieldNames(), ", ")
	refs := make([]string, 0, len(descriptor.Refs))
	for _, r := range descriptor.Refs {
		refs = append(refs, fmt.Sprintf("%s -> %s", r.Name, r.Target.Name))
	}

	user := fmt.Sprintf("Model: %s\nFields: %s\nReferences: %s\nRequest: %s",
		modelName, fields, strings.Join(refs, ", "), prompt)

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("error requesting suggestion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no suggestion returned")
	}

	suggestion := strings.TrimSpace(resp.Choices[0].Message.Content)
	a.log.Debug("suggested query", "model", modelName, "query", suggestion)
	return suggestion, nil
}
