package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// GroundingRef is a citation returned alongside an AI reply.
type GroundingRef struct {
	Kind  string `json:"kind"` // "web" or "maps"
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// ChatMessage is one line of a persisted coach conversation.
type ChatMessage struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId"`
	ConversationID string         `json:"conversationId"`
	Role           Role           `json:"role"`
	Text           string         `json:"text"`
	Grounding      []GroundingRef `json:"grounding,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}
