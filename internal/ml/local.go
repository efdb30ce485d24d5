package ml

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/franckalain/wellness/internal/models"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// LocalModel implements the Model interface on top of an ollama server.
// There is no grounding; tools and locations are ignored.
type LocalModel struct {
	config Config
	logger *zap.Logger
	client *api.Client
}

// LocalModelFactory implements ModelFactory for local models
type LocalModelFactory struct {
	config Config
	logger *zap.Logger
}

// NewLocalModelFactory creates a new local model factory
func NewLocalModelFactory(config Config, logger *zap.Logger) *LocalModelFactory {
	return &LocalModelFactory{config: config, logger: logger}
}

// CreateModel creates a new local model instance
func (f *LocalModelFactory) CreateModel() (Model, error) {
	return &LocalModel{config: f.config, logger: f.logger}, nil
}

// Load connects to the ollama server and checks it responds.
func (m *LocalModel) Load(ctx context.Context) error {
	baseURL, err := url.Parse(m.config.OllamaHost)
	if err != nil {
		return fmt.Errorf("invalid ollama host %q: %w", m.config.OllamaHost, err)
	}
	m.client = api.NewClient(baseURL, &http.Client{Timeout: 2 * time.Minute})

	if err := m.client.Heartbeat(ctx); err != nil {
		m.logger.Warn("ollama is not reachable yet", zap.String("host", m.config.OllamaHost), zap.Error(err))
	}
	return nil
}

func (m *LocalModel) Close() error {
	return nil
}

// chat runs a non-streaming chat request and returns the full reply.
func (m *LocalModel) chat(ctx context.Context, req *api.ChatRequest) (string, error) {
	if m.client == nil {
		return "", fmt.Errorf("%w: model not loaded", ErrUnavailable)
	}
	req.Stream = new(bool)

	var b strings.Builder
	err := m.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		b.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", unavailable(err)
	}
	return b.String(), nil
}

func (m *LocalModel) GenerateStructuredJSON(ctx context.Context, prompt string, schema *Schema) ([]byte, error) {
	text, err := m.chat(ctx, &api.ChatRequest{
		Model:    m.config.Models.Quality,
		Messages: []api.Message{{Role: "user", Content: prompt}},
		Format:   schema.jsonSchema(),
	})
	if err != nil {
		return nil, err
	}
	return structuredPayload(text)
}

func (m *LocalModel) GenerateText(ctx context.Context, req TextRequest) (*TextResponse, error) {
	var messages []api.Message
	if req.SystemInstruction != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.SystemInstruction})
	}
	messages = append(messages, api.Message{Role: "user", Content: req.Prompt})

	text, err := m.chat(ctx, &api.ChatRequest{Model: m.config.model(req.Model), Messages: messages})
	if err != nil {
		return nil, err
	}
	return &TextResponse{Text: text}, nil
}

func (m *LocalModel) Chat(ctx context.Context, req ChatRequest) (*TextResponse, error) {
	var messages []api.Message
	if req.SystemInstruction != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.SystemInstruction})
	}
	for _, turn := range req.History {
		role := "user"
		if turn.Role == models.RoleModel {
			role = "assistant"
		}
		messages = append(messages, api.Message{Role: role, Content: turn.Text})
	}
	messages = append(messages, api.Message{Role: "user", Content: req.Message})

	text, err := m.chat(ctx, &api.ChatRequest{Model: m.config.model(req.Model), Messages: messages})
	if err != nil {
		return nil, err
	}
	return &TextResponse{Text: text}, nil
}

func (m *LocalModel) NormalizeAddress(ctx context.Context, input string) (string, error) {
	text, err := m.chat(ctx, &api.ChatRequest{
		Model:    m.config.Models.Fast,
		Messages: []api.Message{{Role: "user", Content: addressPrompt(input)}},
	})
	if err != nil {
		return "", err
	}
	return parseAddress(text)
}

// AnalyzeImage needs a multimodal model such as llama3.2-vision.
func (m *LocalModel) AnalyzeImage(ctx context.Context, image []byte, mimeType, prompt string, schema *Schema) ([]byte, error) {
	text, err := m.chat(ctx, &api.ChatRequest{
		Model: m.config.Models.Vision,
		Messages: []api.Message{{
			Role:    "user",
			Content: prompt,
			Images:  []api.ImageData{image},
		}},
		Format: schema.jsonSchema(),
	})
	if err != nil {
		return nil, err
	}
	return structuredPayload(text)
}
