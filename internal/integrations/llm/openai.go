package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"playlistomatic/internal/config"
	"playlistomatic/internal/domain"
)

type openAIOracle struct {
	apiKey     string
	baseURL    string
	model      string
	categories CategorySet
	schema     map[string]any
	system     string
	client     *http.Client
}

func newOpenAIOracle(cfg Config, categories CategorySet) *openAIOracle {
	return &openAIOracle{
		apiKey:     cfg.OpenAIAPIKey,
		baseURL:    strings.TrimRight(cfg.OpenAIBaseURL, "/"),
		model:      modelOrDefault(cfg.LLMModel, defaultOpenAIModel),
		categories: categories,
		schema:     labelSchema(categories),
		system:     buildSystemPrompt(categories),
		client:     externalHTTPClient,
	}
}

func (o *openAIOracle) Provider() string { return config.ProviderOpenAI }
func (o *openAIOracle) Model() string    { return o.model }

type openAIRequest struct {
	Model          string               `json:"model"`
	Messages       []openAIMessage      `json:"messages"`
	Temperature    float64              `json:"temperature"`
	ResponseFormat openAIResponseFormat `json:"response_format"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type       string           `json:"type"`
	JSONSchema openAIJSONSchema `json:"json_schema"`
}

type openAIJSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (o *openAIOracle) Classify(ctx context.Context, text string) (Label, error) {
	reqBody := openAIRequest{
		Model: o.model,
		Messages: []openAIMessage{
			{Role: "system", Content: o.system},
			{Role: "user", Content: buildUserPrompt(text)},
		},
		ResponseFormat: openAIResponseFormat{
			Type: "json_schema",
			JSONSchema: openAIJSONSchema{
				Name:   schemaName,
				Strict: true,
				Schema: o.schema,
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Label{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return Label{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		log.Printf("llm openai error: %v", err)
		return Label{}, &domain.OracleTransportError{Provider: o.Provider(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Label{}, &domain.OracleTransportError{Provider: o.Provider(), StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		if resp.StatusCode >= 300 {
			return Label{}, &domain.OracleTransportError{Provider: o.Provider(), StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected response: %s", truncate(string(respBody), 256))}
		}
		return Label{}, &domain.OracleSchemaError{Provider: o.Provider(), Detail: "parsing OpenAI response", Err: err}
	}
	if openAIResp.Error != nil || resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		if openAIResp.Error != nil {
			msg = openAIResp.Error.Message
		}
		log.Printf("llm openai api error: status=%d %s", resp.StatusCode, msg)
		return Label{}, &domain.OracleTransportError{Provider: o.Provider(), StatusCode: resp.StatusCode, Err: fmt.Errorf("OpenAI API error: %s", msg)}
	}
	if len(openAIResp.Choices) == 0 {
		return Label{}, &domain.OracleSchemaError{Provider: o.Provider(), Detail: "no choices in OpenAI response"}
	}

	usage := Usage{}
	if openAIResp.Usage != nil {
		usage.InputTokens = openAIResp.Usage.PromptTokens
		usage.OutputTokens = openAIResp.Usage.CompletionTokens
	}
	message := openAIResp.Choices[0].Message
	log.Printf("llm openai response size=%d tokens_in=%d tokens_out=%d", len(message.Content), usage.InputTokens, usage.OutputTokens)
	if message.Refusal != "" {
		return Label{}, &domain.OracleSchemaError{Provider: o.Provider(), Detail: "model refused: " + message.Refusal}
	}
	return parseLabel(o.Provider(), message.Content, o.categories)
}
