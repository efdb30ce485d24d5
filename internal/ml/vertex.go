package ml

import (
	"context"
	"fmt"
	"strings"

	vertex "cloud.google.com/go/vertexai/genai"
	"github.com/franckalain/wellness/internal/models"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// VertexModel implements the Model interface for Google's Vertex AI. The
// Vertex SDK has no search or maps grounding, so requested tools are ignored.
type VertexModel struct {
	config Config
	logger *zap.Logger
	client *vertex.Client
}

// VertexModelFactory implements ModelFactory for Vertex AI models
type VertexModelFactory struct {
	config Config
	logger *zap.Logger
}

func NewVertexModelFactory(config Config, logger *zap.Logger) *VertexModelFactory {
	return &VertexModelFactory{config: config, logger: logger}
}

func (f *VertexModelFactory) CreateModel() (Model, error) {
	return &VertexModel{config: f.config, logger: f.logger}, nil
}

// Load initializes the Vertex AI client
func (m *VertexModel) Load(ctx context.Context) error {
	if m.config.ProjectID == "" {
		return fmt.Errorf("vertex backend needs a project id")
	}
	opts := []option.ClientOption{}
	if m.config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(m.config.CredentialsFile))
	}

	client, err := vertex.NewClient(ctx, m.config.ProjectID, m.config.Location, opts...)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	m.client = client
	return nil
}

func (m *VertexModel) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}

func (m *VertexModel) generativeModel(name, system string) (*vertex.GenerativeModel, error) {
	if m.client == nil {
		return nil, fmt.Errorf("%w: model not loaded", ErrUnavailable)
	}
	gm := m.client.GenerativeModel(name)
	if system != "" {
		gm.SystemInstruction = &vertex.Content{Parts: []vertex.Part{vertex.Text(system)}}
	}
	return gm, nil
}

func (m *VertexModel) GenerateStructuredJSON(ctx context.Context, prompt string, schema *Schema) ([]byte, error) {
	gm, err := m.generativeModel(m.config.Models.Quality, "")
	if err != nil {
		return nil, err
	}
	gm.ResponseMIMEType = "application/json"
	gm.ResponseSchema = schema.toVertex()

	resp, err := gm.GenerateContent(ctx, vertex.Text(prompt))
	if err != nil {
		return nil, unavailable(err)
	}
	return structuredPayload(responseText(resp))
}

func (m *VertexModel) GenerateText(ctx context.Context, req TextRequest) (*TextResponse, error) {
	gm, err := m.generativeModel(m.config.model(req.Model), req.SystemInstruction)
	if err != nil {
		return nil, err
	}
	m.ignoreTools(req.Tools)

	resp, err := gm.GenerateContent(ctx, vertex.Text(req.Prompt))
	if err != nil {
		return nil, unavailable(err)
	}
	return &TextResponse{Text: responseText(resp)}, nil
}

func (m *VertexModel) Chat(ctx context.Context, req ChatRequest) (*TextResponse, error) {
	gm, err := m.generativeModel(m.config.model(req.Model), req.SystemInstruction)
	if err != nil {
		return nil, err
	}
	m.ignoreTools(req.Tools)

	cs := gm.StartChat()
	for _, turn := range req.History {
		role := "user"
		if turn.Role == models.RoleModel {
			role = "model"
		}
		cs.History = append(cs.History, &vertex.Content{Role: role, Parts: []vertex.Part{vertex.Text(turn.Text)}})
	}

	resp, err := cs.SendMessage(ctx, vertex.Text(req.Message))
	if err != nil {
		return nil, unavailable(err)
	}
	return &TextResponse{Text: responseText(resp)}, nil
}

func (m *VertexModel) NormalizeAddress(ctx context.Context, input string) (string, error) {
	gm, err := m.generativeModel(m.config.Models.Fast, "")
	if err != nil {
		return "", err
	}
	resp, err := gm.GenerateContent(ctx, vertex.Text(addressPrompt(input)))
	if err != nil {
		return "", unavailable(err)
	}
	return parseAddress(responseText(resp))
}

func (m *VertexModel) AnalyzeImage(ctx context.Context, image []byte, mimeType, prompt string, schema *Schema) ([]byte, error) {
	gm, err := m.generativeModel(m.config.Models.Vision, "")
	if err != nil {
		return nil, err
	}
	gm.ResponseMIMEType = "application/json"
	gm.ResponseSchema = schema.toVertex()

	img := vertex.Blob{MIMEType: mimeType, Data: image}
	resp, err := gm.GenerateContent(ctx, vertex.Text(prompt), img)
	if err != nil {
		return nil, fmt.Errorf("failed to call ai: %w", unavailable(err))
	}
	return structuredPayload(responseText(resp))
}

func (m *VertexModel) ignoreTools(tools []Tool) {
	if len(tools) > 0 {
		m.logger.Debug("grounding tools are not supported on vertex, ignoring", zap.Int("tools", len(tools)))
	}
}

// responseText joins the text parts of the first candidate.
func responseText(resp *vertex.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(vertex.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
