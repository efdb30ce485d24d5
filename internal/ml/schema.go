package ml

import (
	"encoding/json"

	vertex "cloud.google.com/go/vertexai/genai"
	"google.golang.org/genai"
)

type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeNumber  SchemaType = "number"
	TypeInteger SchemaType = "integer"
	TypeBoolean SchemaType = "boolean"
)

// Schema describes the JSON a structured call must return. It is converted
// to each provider's own schema type.
type Schema struct {
	Type        SchemaType
	Description string
	Properties  map[string]*Schema
	Required    []string
	Items       *Schema
	Enum        []string
}

func (s *Schema) toGenAI() *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
		Items:       s.Items.toGenAI(),
	}
	switch s.Type {
	case TypeObject:
		out.Type = genai.TypeObject
	case TypeArray:
		out.Type = genai.TypeArray
	case TypeString:
		out.Type = genai.TypeString
	case TypeNumber:
		out.Type = genai.TypeNumber
	case TypeInteger:
		out.Type = genai.TypeInteger
	case TypeBoolean:
		out.Type = genai.TypeBoolean
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = p.toGenAI()
		}
	}
	return out
}

func (s *Schema) toVertex() *vertex.Schema {
	if s == nil {
		return nil
	}
	out := &vertex.Schema{
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
		Items:       s.Items.toVertex(),
	}
	switch s.Type {
	case TypeObject:
		out.Type = vertex.TypeObject
	case TypeArray:
		out.Type = vertex.TypeArray
	case TypeString:
		out.Type = vertex.TypeString
	case TypeNumber:
		out.Type = vertex.TypeNumber
	case TypeInteger:
		out.Type = vertex.TypeInteger
	case TypeBoolean:
		out.Type = vertex.TypeBoolean
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*vertex.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = p.toVertex()
		}
	}
	return out
}

// jsonSchema renders s as a JSON Schema document, the format ollama accepts.
func (s *Schema) jsonSchema() json.RawMessage {
	data, err := json.Marshal(s.jsonSchemaMap())
	if err != nil {
		return json.RawMessage(`"json"`)
	}
	return data
}

func (s *Schema) jsonSchemaMap() map[string]any {
	if s == nil {
		return nil
	}
	out := map[string]any{"type": string(s.Type)}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.Items != nil {
		out["items"] = s.Items.jsonSchemaMap()
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.jsonSchemaMap()
		}
		out["properties"] = props
	}
	return out
}
