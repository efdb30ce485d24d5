package ml

import (
	"context"
	"errors"
	"fmt"

	"github.com/franckalain/wellness/internal/models"
	"go.uber.org/zap"
)

var (
	// ErrUnavailable wraps provider, network and timeout failures.
	ErrUnavailable = errors.New("ai unavailable")
	// ErrMalformedOutput means the provider answered but the payload could not be used.
	ErrMalformedOutput = errors.New("malformed ai output")
	// ErrNotFound is returned by NormalizeAddress when the input is not an address.
	ErrNotFound = errors.New("not found")
)

// Tool is a capability the provider may use while answering.
type Tool string

const (
	ToolSearch Tool = "search"
	ToolMaps   Tool = "maps"
)

// LatLng is a coordinate passed as retrieval context for map lookups.
type LatLng struct {
	Lat float64
	Lng float64
}

// TextRequest is a single-shot prompt.
type TextRequest struct {
	Prompt            string
	SystemInstruction string
	Model             string // empty means the quality model
	Tools             []Tool
	Location          *LatLng
}

// ChatTurn is one line of prior conversation.
type ChatTurn struct {
	Role models.Role
	Text string
}

// ChatRequest continues a conversation with a new user message.
type ChatRequest struct {
	History           []ChatTurn
	Message           string
	SystemInstruction string
	Model             string
	Tools             []Tool
	Location          *LatLng
}

// TextResponse is generated text plus the sources the provider cited.
type TextResponse struct {
	Text      string
	Grounding []models.GroundingRef
}

// Model represents a generative AI backend
type Model interface {
	// Load initializes the client
	Load(ctx context.Context) error
	// GenerateStructuredJSON returns a JSON document matching schema
	GenerateStructuredJSON(ctx context.Context, prompt string, schema *Schema) ([]byte, error)
	GenerateText(ctx context.Context, req TextRequest) (*TextResponse, error)
	Chat(ctx context.Context, req ChatRequest) (*TextResponse, error)
	// NormalizeAddress returns a canonical postal address or ErrNotFound
	NormalizeAddress(ctx context.Context, input string) (string, error)
	// AnalyzeImage answers prompt about an image with JSON matching schema
	AnalyzeImage(ctx context.Context, image []byte, mimeType, prompt string, schema *Schema) ([]byte, error)
	Close() error
}

// LiveConnector is implemented by backends that support realtime audio.
type LiveConnector interface {
	ConnectLive(ctx context.Context, systemInstruction string) (LiveStream, error)
}

// LiveStream is an open realtime audio session.
type LiveStream interface {
	// SendAudio forwards 16 kHz little-endian PCM from the user
	SendAudio(pcm []byte) error
	// Receive blocks for the next server event
	Receive() (*LiveEvent, error)
	Close() error
}

// LiveEvent carries 24 kHz PCM from the model and turn markers.
type LiveEvent struct {
	Audio        []byte
	Interrupted  bool
	TurnComplete bool
}

// ModelFactory creates a new model instance based on configuration
type ModelFactory interface {
	CreateModel() (Model, error)
}

// NewModel creates a new model instance based on the model type
func NewModel(config Config, logger *zap.Logger) (Model, error) {
	config = config.withDefaults()
	logger = logger.Named("ml").With(zap.String("backend", config.Type))

	var factory ModelFactory
	switch config.Type {
	case "gemini":
		factory = NewGeminiModelFactory(config, logger)
	case "vertex":
		factory = NewVertexModelFactory(config, logger)
	case "local":
		factory = NewLocalModelFactory(config, logger)
	default:
		return nil, fmt.Errorf("unsupported model type: %s", config.Type)
	}
	return factory.CreateModel()
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

func hasTool(tools []Tool, t Tool) bool {
	for _, x := range tools {
		if x == t {
			return true
		}
	}
	return false
}
