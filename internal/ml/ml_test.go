package ml

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

func TestNewModelSelectsBackend(t *testing.T) {
	tests := []struct {
		typ  string
		want any
	}{
		{"gemini", &GeminiModel{}},
		{"", &GeminiModel{}},
		{"vertex", &VertexModel{}},
		{"local", &LocalModel{}},
	}
	for _, tt := range tests {
		m, err := NewModel(Config{Type: tt.typ}, zap.NewNop())
		require.NoError(t, err, tt.typ)
		assert.IsType(t, tt.want, m, tt.typ)
	}

	_, err := NewModel(Config{Type: "openai"}, zap.NewNop())
	assert.Error(t, err)
}

func TestGeminiIsLiveCapable(t *testing.T) {
	m, err := NewModel(Config{Type: "gemini"}, zap.NewNop())
	require.NoError(t, err)
	_, ok := m.(LiveConnector)
	assert.True(t, ok)

	m, err = NewModel(Config{Type: "local"}, zap.NewNop())
	require.NoError(t, err)
	_, ok = m.(LiveConnector)
	assert.False(t, ok)
}

func TestConfigDefaults(t *testing.T) {
	c := Config{Type: "gemini"}.withDefaults()
	assert.Equal(t, defaultFastModel, c.Models.Fast)
	assert.Equal(t, defaultQualityModel, c.Models.Quality)
	assert.Equal(t, defaultQualityModel, c.Models.Vision)
	assert.Equal(t, defaultQualityModel, c.model(""))
	assert.Equal(t, "x", c.model("x"))

	local := Config{Type: "local", Models: ModelNames{Fast: defaultFastModel, Quality: defaultQualityModel, Vision: defaultQualityModel}}.withDefaults()
	assert.Equal(t, defaultLocalModel, local.Models.Fast)
	assert.Equal(t, defaultLocalModel, local.Models.Quality)
	assert.Equal(t, defaultLocalModel, local.Models.Vision)
}

func TestUnloadedModelIsUnavailable(t *testing.T) {
	m := &GeminiModel{logger: zap.NewNop()}
	_, err := m.GenerateText(t.Context(), TextRequest{Prompt: "hi"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct{ in, want string }{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n[1]\n```", `[1]`},
		{"  plain  ", "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripCodeFence(tt.in))
	}
}

func TestExtractArray(t *testing.T) {
	got, ok := ExtractArray("Here you go:\n[{\"a\":[1,2]}, {\"b\":3}]\nEnjoy!")
	require.True(t, ok)
	assert.Equal(t, `[{"a":[1,2]}, {"b":3}]`, got)

	_, ok = ExtractArray("no json here")
	assert.False(t, ok)
	_, ok = ExtractArray("] backwards [")
	assert.False(t, ok)
}

func TestStructuredPayload(t *testing.T) {
	out, err := structuredPayload("```json\n{\"ok\":true}\n```")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(out))

	_, err = structuredPayload("")
	assert.ErrorIs(t, err, ErrMalformedOutput)
	_, err = structuredPayload("Sorry, I can't help")
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestParseAddress(t *testing.T) {
	got, err := parseAddress("  ул. Тверская, 1, Москва\n")
	require.NoError(t, err)
	assert.Equal(t, "ул. Тверская, 1, Москва", got)

	for _, in := range []string{"", "   ", "NULL", "null", `"NULL"`} {
		_, err := parseAddress(in)
		assert.ErrorIs(t, err, ErrNotFound, "%q", in)
	}
}

func testSchema() *Schema {
	return &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"name":  {Type: TypeString},
			"score": {Type: TypeInteger, Description: "1-10"},
			"tags":  {Type: TypeArray, Items: &Schema{Type: TypeString, Enum: []string{"a", "b"}}},
		},
		Required: []string{"name"},
	}
}

func TestSchemaToGenAI(t *testing.T) {
	s := testSchema().toGenAI()
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"name"}, s.Required)
	assert.Equal(t, genai.TypeInteger, s.Properties["score"].Type)
	assert.Equal(t, "1-10", s.Properties["score"].Description)
	assert.Equal(t, genai.TypeString, s.Properties["tags"].Items.Type)
	assert.Equal(t, []string{"a", "b"}, s.Properties["tags"].Items.Enum)

	var nilSchema *Schema
	assert.Nil(t, nilSchema.toGenAI())
}

func TestSchemaToVertex(t *testing.T) {
	s := testSchema().toVertex()
	require.NotNil(t, s.Properties["tags"].Items)
	assert.Equal(t, []string{"name"}, s.Required)
}

func TestJSONSchema(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal(testSchema().jsonSchema(), &doc))
	assert.Equal(t, "object", doc["type"])
	props := doc["properties"].(map[string]any)
	tags := props["tags"].(map[string]any)
	assert.Equal(t, "array", tags["type"])
	assert.Equal(t, "string", tags["items"].(map[string]any)["type"])
}

func TestGenerateConfigTools(t *testing.T) {
	cfg := generateConfig("", []Tool{ToolSearch}, &LatLng{Lat: 55.75, Lng: 37.62})
	require.Len(t, cfg.Tools, 1)
	assert.NotNil(t, cfg.Tools[0].GoogleSearch)
	assert.Nil(t, cfg.ToolConfig, "location only applies to maps")
	assert.Nil(t, cfg.SystemInstruction)

	cfg = generateConfig("be nice", []Tool{ToolSearch, ToolMaps}, &LatLng{Lat: 55.75, Lng: 37.62})
	require.Len(t, cfg.Tools, 2)
	assert.NotNil(t, cfg.Tools[1].GoogleMaps)
	require.NotNil(t, cfg.ToolConfig)
	assert.Equal(t, 55.75, *cfg.ToolConfig.RetrievalConfig.LatLng.Latitude)
	assert.Equal(t, "be nice", cfg.SystemInstruction.Parts[0].Text)
}

func TestGroundingRefsKeepsOrder(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			GroundingMetadata: &genai.GroundingMetadata{
				GroundingChunks: []*genai.GroundingChunk{
					{Web: &genai.GroundingChunkWeb{URI: "https://a", Title: "A"}},
					{Maps: &genai.GroundingChunkMaps{URI: "https://maps/b", Title: "B"}},
					{Web: &genai.GroundingChunkWeb{URI: "https://a", Title: "A"}},
				},
			},
		}},
	}
	refs := groundingRefs(resp)
	require.Len(t, refs, 3, "duplicates are kept")
	assert.Equal(t, "web", refs[0].Kind)
	assert.Equal(t, "maps", refs[1].Kind)
	assert.Equal(t, "https://maps/b", refs[1].URI)

	assert.Nil(t, groundingRefs(&genai.GenerateContentResponse{}))
}
