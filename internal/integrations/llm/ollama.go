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

// ollamaOracle talks to a locally hosted model through Ollama's chat API.
// The "format" field carries the JSON schema so the answer is constrained
// the same way as the hosted backends.
type ollamaOracle struct {
	baseURL    string
	model      string
	categories CategorySet
	schema     map[string]any
	system     string
	client     *http.Client
}

func newOllamaOracle(cfg Config, categories CategorySet) *ollamaOracle {
	return &ollamaOracle{
		baseURL:    strings.TrimRight(cfg.OllamaURL, "/"),
		model:      modelOrDefault(cfg.OllamaModel, defaultOllamaModel),
		categories: categories,
		schema:     labelSchema(categories),
		system:     buildSystemPrompt(categories),
		client:     externalHTTPClient,
	}
}

func (o *ollamaOracle) Provider() string { return config.ProviderOllama }
func (o *ollamaOracle) Model() string    { return o.model }

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   map[string]any  `json:"format"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int64  `json:"prompt_eval_count"`
	EvalCount       int64  `json:"eval_count"`
	Error           string `json:"error"`
}

func (o *ollamaOracle) Classify(ctx context.Context, text string) (Label, error) {
	reqBody := ollamaRequest{
		Model: o.model,
		Messages: []openAIMessage{
			{Role: "system", Content: o.system},
			{Role: "user", Content: buildUserPrompt(text)},
		},
		Stream:  false,
		Format:  o.schema,
		Options: map[string]any{"temperature": 0},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Label{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(bodyBytes))
	if err != nil {
		return Label{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		log.Printf("llm ollama error: %v", err)
		return Label{}, &domain.OracleTransportError{Provider: o.Provider(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Label{}, &domain.OracleTransportError{Provider: o.Provider(), StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	var ollamaResp ollamaResponse
	decodeErr := json.Unmarshal(respBody, &ollamaResp)
	if resp.StatusCode >= 300 {
		msg := ollamaResp.Error
		if msg == "" {
			msg = truncate(string(respBody), 256)
		}
		log.Printf("llm ollama api error: status=%d %s", resp.StatusCode, msg)
		return Label{}, &domain.OracleTransportError{Provider: o.Provider(), StatusCode: resp.StatusCode, Err: fmt.Errorf("Ollama API error: %s", msg)}
	}
	if decodeErr != nil {
		return Label{}, &domain.OracleSchemaError{Provider: o.Provider(), Detail: "parsing Ollama response", Err: decodeErr}
	}

	log.Printf("llm ollama response size=%d tokens_in=%d tokens_out=%d", len(ollamaResp.Message.Content), ollamaResp.PromptEvalCount, ollamaResp.EvalCount)
	return parseLabel(o.Provider(), ollamaResp.Message.Content, o.categories)
}
