package llm

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"playlistomatic/internal/config"
	"playlistomatic/internal/domain"
)

// anthropicOracle forces a single tool call whose input schema restricts
// "category" to the category set.
type anthropicOracle struct {
	client     anthropic.Client
	model      string
	categories CategorySet
	tool       anthropic.ToolParam
	system     string
}

func newAnthropicOracle(cfg Config, categories CategorySet, opts ...option.RequestOption) *anthropicOracle {
	schema := labelSchema(categories)
	clientOpts := append([]option.RequestOption{
		option.WithAPIKey(cfg.AnthropicAPIKey),
		option.WithHTTPClient(externalHTTPClient),
		// One request per item; reruns are the retry mechanism.
		option.WithMaxRetries(0),
	}, opts...)
	return &anthropicOracle{
		client:     anthropic.NewClient(clientOpts...),
		model:      modelOrDefault(cfg.LLMModel, defaultAnthropicModel),
		categories: categories,
		system:     buildSystemPrompt(categories),
		tool: anthropic.ToolParam{
			Name:        schemaName,
			Description: anthropic.String("Record the category of the youtube video and the reason for picking it."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema["properties"],
				Required:   []string{"category", "reason"},
			},
		},
	}
}

func (o *anthropicOracle) Provider() string { return config.ProviderAnthropic }
func (o *anthropicOracle) Model() string    { return o.model }

func (o *anthropicOracle) Classify(ctx context.Context, text string) (Label, error) {
	tool := o.tool
	message, err := o.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(o.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: o.system, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildUserPrompt(text))),
		},
		Tools: []anthropic.ToolUnionParam{{OfTool: &tool}},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: schemaName},
		},
	})
	if err != nil {
		log.Printf("llm anthropic error: %v", err)
		status := 0
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return Label{}, &domain.OracleTransportError{Provider: o.Provider(), StatusCode: status, Err: fmt.Errorf("Anthropic API error: %w", err)}
	}

	for _, block := range message.Content {
		if block.Type == "tool_use" && block.Name == schemaName {
			log.Printf("llm anthropic response size=%d tokens_in=%d tokens_out=%d cache_read=%d",
				len(block.Input), message.Usage.InputTokens, message.Usage.OutputTokens, message.Usage.CacheReadInputTokens)
			return parseLabel(o.Provider(), string(block.Input), o.categories)
		}
	}
	return Label{}, &domain.OracleSchemaError{Provider: o.Provider(), Detail: "no tool_use block in Anthropic response"}
}
