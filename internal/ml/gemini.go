package ml

import (
	"context"
	"fmt"

	"github.com/franckalain/wellness/internal/models"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiModel talks to the Gemini API. It is the only backend with search
// and maps grounding and realtime audio.
type GeminiModel struct {
	config Config
	logger *zap.Logger
	client *genai.Client
}

// GeminiModelFactory implements ModelFactory for Gemini models
type GeminiModelFactory struct {
	config Config
	logger *zap.Logger
}

func NewGeminiModelFactory(config Config, logger *zap.Logger) *GeminiModelFactory {
	return &GeminiModelFactory{config: config, logger: logger}
}

func (f *GeminiModelFactory) CreateModel() (Model, error) {
	return &GeminiModel{config: f.config, logger: f.logger}, nil
}

// Load creates the API client. Without an API key the Vertex AI backend of
// the same SDK is used with application default credentials.
func (m *GeminiModel) Load(ctx context.Context) error {
	cc := &genai.ClientConfig{
		APIKey:  m.config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if m.config.APIKey == "" && m.config.ProjectID != "" {
		cc = &genai.ClientConfig{
			Backend:  genai.BackendVertexAI,
			Project:  m.config.ProjectID,
			Location: m.config.Location,
		}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	m.client = client
	return nil
}

func (m *GeminiModel) Close() error {
	return nil
}

func (m *GeminiModel) ready() error {
	if m.client == nil {
		return fmt.Errorf("%w: model not loaded", ErrUnavailable)
	}
	return nil
}

func (m *GeminiModel) GenerateStructuredJSON(ctx context.Context, prompt string, schema *Schema) ([]byte, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema.toGenAI(),
	}
	resp, err := m.client.Models.GenerateContent(ctx, m.config.Models.Quality, genai.Text(prompt), cfg)
	if err != nil {
		return nil, unavailable(err)
	}
	return structuredPayload(resp.Text())
}

func (m *GeminiModel) GenerateText(ctx context.Context, req TextRequest) (*TextResponse, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	cfg := generateConfig(req.SystemInstruction, req.Tools, req.Location)
	resp, err := m.client.Models.GenerateContent(ctx, m.config.model(req.Model), genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, unavailable(err)
	}
	return &TextResponse{Text: resp.Text(), Grounding: groundingRefs(resp)}, nil
}

func (m *GeminiModel) Chat(ctx context.Context, req ChatRequest) (*TextResponse, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}

	history := make([]*genai.Content, 0, len(req.History))
	for _, turn := range req.History {
		role := genai.Role(genai.RoleUser)
		if turn.Role == models.RoleModel {
			role = genai.RoleModel
		}
		history = append(history, genai.NewContentFromText(turn.Text, role))
	}

	cfg := generateConfig(req.SystemInstruction, req.Tools, req.Location)
	chat, err := m.client.Chats.Create(ctx, m.config.model(req.Model), cfg, history)
	if err != nil {
		return nil, unavailable(err)
	}
	resp, err := chat.SendMessage(ctx, genai.Part{Text: req.Message})
	if err != nil {
		return nil, unavailable(err)
	}
	return &TextResponse{Text: resp.Text(), Grounding: groundingRefs(resp)}, nil
}

func (m *GeminiModel) NormalizeAddress(ctx context.Context, input string) (string, error) {
	if err := m.ready(); err != nil {
		return "", err
	}
	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleMaps: &genai.GoogleMaps{}}},
	}
	resp, err := m.client.Models.GenerateContent(ctx, m.config.Models.Fast, genai.Text(addressPrompt(input)), cfg)
	if err != nil {
		return "", unavailable(err)
	}
	return parseAddress(resp.Text())
}

func (m *GeminiModel) AnalyzeImage(ctx context.Context, image []byte, mimeType, prompt string, schema *Schema) ([]byte, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema.toGenAI(),
	}
	resp, err := m.client.Models.GenerateContent(ctx, m.config.Models.Vision, contents, cfg)
	if err != nil {
		return nil, unavailable(err)
	}
	return structuredPayload(resp.Text())
}

// ConnectLive opens a realtime audio session answering with the Kore voice.
func (m *GeminiModel) ConnectLive(ctx context.Context, systemInstruction string) (LiveStream, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	session, err := m.client.Live.Connect(ctx, m.config.Models.Live, &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: liveVoice},
			},
		},
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
	})
	if err != nil {
		return nil, unavailable(err)
	}
	m.logger.Debug("live session opened", zap.String("model", m.config.Models.Live))
	return &geminiLiveStream{session: session}, nil
}

type geminiLiveStream struct {
	session *genai.Session
}

func (s *geminiLiveStream) SendAudio(pcm []byte) error {
	return s.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: pcm, MIMEType: "audio/pcm;rate=16000"},
	})
}

func (s *geminiLiveStream) Receive() (*LiveEvent, error) {
	msg, err := s.session.Receive()
	if err != nil {
		return nil, err
	}
	ev := &LiveEvent{}
	if sc := msg.ServerContent; sc != nil {
		ev.Interrupted = sc.Interrupted
		ev.TurnComplete = sc.TurnComplete
		if sc.ModelTurn != nil {
			for _, p := range sc.ModelTurn.Parts {
				if p.InlineData != nil {
					ev.Audio = append(ev.Audio, p.InlineData.Data...)
				}
			}
		}
	}
	return ev, nil
}

func (s *geminiLiveStream) Close() error {
	return s.session.Close()
}

func generateConfig(system string, tools []Tool, loc *LatLng) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if hasTool(tools, ToolSearch) {
		cfg.Tools = append(cfg.Tools, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
	}
	if hasTool(tools, ToolMaps) {
		cfg.Tools = append(cfg.Tools, &genai.Tool{GoogleMaps: &genai.GoogleMaps{}})
		if loc != nil {
			cfg.ToolConfig = &genai.ToolConfig{
				RetrievalConfig: &genai.RetrievalConfig{
					LatLng: &genai.LatLng{Latitude: genai.Ptr(loc.Lat), Longitude: genai.Ptr(loc.Lng)},
				},
			}
		}
	}
	return cfg
}

// groundingRefs lists cited sources in the order the provider returned them.
func groundingRefs(resp *genai.GenerateContentResponse) []models.GroundingRef {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var refs []models.GroundingRef
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		switch {
		case chunk.Web != nil:
			refs = append(refs, models.GroundingRef{Kind: "web", URI: chunk.Web.URI, Title: chunk.Web.Title})
		case chunk.Maps != nil:
			refs = append(refs, models.GroundingRef{Kind: "maps", URI: chunk.Maps.URI, Title: chunk.Maps.Title})
		}
	}
	return refs
}
