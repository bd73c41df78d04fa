package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"playlistomatic/internal/config"
	"playlistomatic/internal/domain"
)

const defaultOpenAIModel = "gpt-4o-mini"
const defaultAnthropicModel = "claude-sonnet-4-5-20250929"
const defaultOllamaModel = config.DefaultOllamaModel

// schemaName is the function/tool name the models are asked to fill.
const schemaName = "extractor"

// Oracle labels one piece of text with a category from a closed set.
type Oracle interface {
	Classify(ctx context.Context, text string) (Label, error)
	Provider() string
	Model() string
}

type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// New builds the backend selected by cfg.LLMProvider. The category set is
// baked into the backend's output schema.
func New(cfg Config, categories CategorySet) (Oracle, error) {
	if categories.Len() == 0 {
		return nil, &domain.ConfigurationError{Reason: "no categories to create a schema"}
	}
	if err := cfg.RequireOracle(); err != nil {
		return nil, &domain.ConfigurationError{Reason: err.Error()}
	}
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return newOpenAIOracle(cfg, categories), nil
	case config.ProviderAnthropic:
		return newAnthropicOracle(cfg, categories), nil
	case config.ProviderOllama:
		return newOllamaOracle(cfg, categories), nil
	default:
		return nil, &domain.ConfigurationError{Reason: fmt.Sprintf("unknown llm_provider %q", cfg.LLMProvider)}
	}
}

func modelOrDefault(model, fallback string) string {
	if strings.TrimSpace(model) == "" {
		return fallback
	}
	return strings.TrimSpace(model)
}

func buildSystemPrompt(categories CategorySet) string {
	var lines strings.Builder
	for _, label := range categories.Labels() {
		lines.WriteString("- " + label + "\n")
	}
	return fmt.Sprintf(`You classify YouTube videos from their title and channel.
Extract the desired information from the passage. Only extract the properties mentioned in the '%s' schema.

category: best matching category of the youtube video, exactly one of:
%s
Try to pick the most relevant one if there are multiple contenders. Don't guess a random one!
reason: describe why you picked this category. Use the text from the video to support your answer.`, schemaName, lines.String())
}

func buildUserPrompt(text string) string {
	return "Passage:\n" + strings.TrimSpace(text) + "\n"
}

// labelSchema is the JSON schema every backend hands to its provider's
// structured-output feature.
func labelSchema(categories CategorySet) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"category": map[string]any{
				"type":        "string",
				"enum":        categories.Labels(),
				"description": "Best matching category of the youtube video.",
			},
			"reason": map[string]any{
				"type":        "string",
				"description": "Why this category was picked, citing the video text.",
			},
		},
		"required":             []string{"category", "reason"},
		"additionalProperties": false,
	}
}

type labelPayload struct {
	Category string `json:"category"`
	Reason   string `json:"reason"`
	Reson    string `json:"reson"`
}

// parseLabel decodes a model answer and enforces category membership.
func parseLabel(provider, responseText string, categories CategorySet) (Label, error) {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	var payload labelPayload
	if err := json.Unmarshal([]byte(responseText), &payload); err != nil {
		return Label{}, &domain.OracleSchemaError{
			Provider: provider,
			Detail:   fmt.Sprintf("malformed payload (response: %s)", truncate(responseText, 512)),
			Err:      err,
		}
	}
	category := strings.TrimSpace(payload.Category)
	if category == "" {
		return Label{}, &domain.OracleSchemaError{Provider: provider, Detail: "missing category"}
	}
	if !categories.Contains(category) {
		return Label{}, &domain.OracleSchemaError{Provider: provider, Detail: fmt.Sprintf("category %q is not in the category set", category)}
	}
	reason := strings.TrimSpace(payload.Reason)
	if reason == "" {
		reason = strings.TrimSpace(payload.Reson)
	}
	return Label{Category: category, Rationale: reason}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + fmt.Sprintf("... [truncated, total_length=%d]", len(s))
}
