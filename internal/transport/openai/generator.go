package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"slices"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/flightq/internal/domain"
)

const (
	loadAdapterPath   = "/load_lora_adapter"
	unloadAdapterPath = "/unload_lora_adapter"

	// alreadyLoadedMarker appears in the server reply when an adapter is loaded twice.
	alreadyLoadedMarker = "already been loaded"

	// greedyTemperature is sent instead of 0, which the client drops as an empty field.
	// Servers treat any temperature below 1e-5 as greedy decoding.
	greedyTemperature = math.SmallestNonzeroFloat32
)

// GeneratorConfig holds the inference server settings.
type GeneratorConfig struct {
	APIKey    string
	BaseURL   string
	BaseModel string
	// HTTPClient is used for adapter management calls. Defaults to a client with a 2-minute timeout.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Generator drives a vLLM-style OpenAI-compatible server that serves one quantized base model
// and hot-loads LoRA adapters by name.
type Generator struct {
	client    *openai.Client
	http      *http.Client
	baseURL   string
	apiKey    string
	baseModel string
	logger    *zap.Logger
}

// NewGenerator creates a completion client.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 2 * time.Minute}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		client:    openai.NewClientWithConfig(clientCfg),
		http:      hc,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		baseModel: cfg.BaseModel,
		logger:    logger,
	}
}

// BaseModel returns the served base model id.
func (g *Generator) BaseModel() string {
	return g.baseModel
}

// CheckBaseModel verifies that the server is up and serves the configured base model.
func (g *Generator) CheckBaseModel(ctx context.Context) error {
	list, err := g.client.ListModels(ctx)
	if err != nil {
		return parseAPIError(err, domain.ErrModelProviderError)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	if !slices.Contains(ids, g.baseModel) {
		return fmt.Errorf("base model %q not served (available: %s): %w",
			g.baseModel, strings.Join(ids, ", "), domain.ErrModelProviderError)
	}
	return nil
}

// HealthCheck verifies API availability.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// Complete runs greedy decoding for prompt on model and returns the generated text.
func (g *Generator) Complete(ctx context.Context, model, prompt string, maxTokens int) (string, error) {
	resp, err := g.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:       model,
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: greedyTemperature,
		N:           1,
	})
	if err != nil {
		return "", parseAPIError(err, domain.ErrModelProviderError)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices: %w", domain.ErrModelProviderError)
	}
	return resp.Choices[0].Text, nil
}

// LoadAdapter asks the server to load the LoRA adapter at path under name.
// Loading an adapter the server already holds succeeds.
func (g *Generator) LoadAdapter(ctx context.Context, name, path string) error {
	body := map[string]string{"lora_name": name, "lora_path": path}
	status, reply, err := g.post(ctx, loadAdapterPath, body)
	if err != nil {
		return err
	}
	if status == http.StatusOK || strings.Contains(reply, alreadyLoadedMarker) {
		return nil
	}
	return fmt.Errorf("load adapter %q: status %d: %s: %w",
		name, status, summarize(reply), domain.ErrModelProviderError)
}

// UnloadAdapter asks the server to drop the named LoRA adapter.
func (g *Generator) UnloadAdapter(ctx context.Context, name string) error {
	status, reply, err := g.post(ctx, unloadAdapterPath, map[string]string{"lora_name": name})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("unload adapter %q: status %d: %s: %w",
			name, status, summarize(reply), domain.ErrModelProviderError)
	}
	return nil
}

func (g *Generator) post(ctx context.Context, path string, payload any) (int, string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("%s: %w: %w", path, err, domain.ErrModelProviderError)
	}
	defer func() { _ = resp.Body.Close() }()

	reply, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return 0, "", fmt.Errorf("%s: read reply: %w: %w", path, err, domain.ErrModelProviderError)
	}
	return resp.StatusCode, string(reply), nil
}

func summarize(reply string) string {
	if detail := extractDetail([]byte(reply)); detail != "" {
		return detail
	}
	reply = strings.TrimSpace(reply)
	if len(reply) > 200 {
		reply = reply[:200] + "..."
	}
	return reply
}
