package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/franckalain/wellness/internal/coach"
	"github.com/franckalain/wellness/internal/models"
	"github.com/franckalain/wellness/internal/voice"
)

const (
	wsReadLimit  = maxBodyBytes
	writeTimeout = 10 * time.Second
)

// wsClient serializes writes; gorilla connections allow one writer at a time.
type wsClient struct {
	conn   *websocket.Conn
	userID string
	logger *zap.Logger
	mu     sync.Mutex
}

func (c *wsClient) write(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return fn()
}

func (c *wsClient) sendMessage(messageType string, data any) {
	msg := map[string]any{
		"type": messageType,
		"data": data,
	}
	if err := c.write(func() error { return c.conn.WriteJSON(msg) }); err != nil {
		c.logger.Debug("failed to send message", zap.String("type", messageType), zap.Error(err))
	}
}

func (c *wsClient) sendError(message string) {
	msg := map[string]any{
		"type":    "error",
		"message": message,
	}
	if err := c.write(func() error { return c.conn.WriteJSON(msg) }); err != nil {
		c.logger.Debug("failed to send error", zap.Error(err))
	}
}

func (c *wsClient) close() {
	c.write(func() error {
		return c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
	})
	c.conn.Close()
}

// pendingScan is an analyzed photo waiting for the user to confirm it.
type pendingScan struct {
	userID   string
	analysis *models.FoodAnalysis
}

type wsEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (s *Server) upgrade(w http.ResponseWriter, r *http.Request) (*wsClient, func(), bool) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return nil, nil, false
	}
	conn.SetReadLimit(wsReadLimit)
	c := &wsClient{conn: conn, userID: userFrom(r.Context()), logger: s.logger}

	clientID := uuid.New().String()
	s.clients.Store(clientID, c)
	return c, func() {
		s.clients.Delete(clientID)
		conn.Close()
	}, true
}

func (s *Server) closeClients() {
	s.clients.Range(func(_, v any) bool {
		v.(*wsClient).close()
		return true
	})
}

// handleWebSocket serves the text protocol: chat, history and food scans.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	c, done, ok := s.upgrade(w, r)
	if !ok {
		return
	}
	defer done()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		var env wsEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.sendError(s.svc.Locales.Current().Messages.InvalidRequest)
			continue
		}
		s.handleWebSocketMessage(ctx, c, env)
	}
}

func (s *Server) handleWebSocketMessage(ctx context.Context, c *wsClient, env wsEnvelope) {
	switch env.Type {
	case "chat":
		s.handleChatMessage(ctx, c, env.Data)
	case "get_history":
		s.handleGetHistory(ctx, c, env.Data)
	case "scan":
		s.handleScan(ctx, c, env.Data)
	case "confirm_scan":
		s.handleConfirmScan(ctx, c, env.Data)
	default:
		c.sendError(s.svc.Locales.Current().Messages.InvalidRequest)
	}
}

// wsFail reports err to the client with the same text the HTTP API uses.
func (s *Server) wsFail(c *wsClient, err error, fallback string) {
	status, text := s.errorResponse(err, fallback)
	if status >= http.StatusInternalServerError {
		s.logger.Error("websocket request failed", zap.String("user", c.userID), zap.Error(err))
	}
	c.sendError(text)
}

func (s *Server) handleChatMessage(ctx context.Context, c *wsClient, data json.RawMessage) {
	var req chatRequest
	if err := json.Unmarshal(data, &req); err != nil || strings.TrimSpace(req.Message) == "" {
		s.wsFail(c, errBadRequest, "")
		return
	}
	send := req.send(c.userID)
	send.OnFollowUp = func(m *models.ChatMessage) {
		c.sendMessage("chat_followup", m)
	}
	res, err := s.svc.Chat.Send(ctx, send)
	if err != nil {
		s.wsFail(c, err, "")
		return
	}
	c.sendMessage("chat_reply", res)
}

func (s *Server) handleGetHistory(ctx context.Context, c *wsClient, data json.RawMessage) {
	var req struct {
		ConversationID string `json:"conversationId"`
		Limit          int    `json:"limit"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			s.wsFail(c, errBadRequest, "")
			return
		}
	}
	if req.ConversationID == "" {
		req.ConversationID = coach.DefaultConversation
	}
	msgs, err := s.svc.Chat.History(ctx, c.userID, req.ConversationID, req.Limit)
	if err != nil {
		s.wsFail(c, err, "")
		return
	}
	c.sendMessage("history", nonNil(msgs))
}

func (s *Server) handleScan(ctx context.Context, c *wsClient, data json.RawMessage) {
	var req struct {
		Image    string `json:"image"`
		MimeType string `json:"mimeType"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		s.wsFail(c, errBadRequest, "")
		return
	}
	img, mimeType, err := decodeImage(req.Image, req.MimeType)
	if err != nil {
		s.wsFail(c, err, "")
		return
	}
	analysis, err := s.svc.Tracker.AnalyzeFood(ctx, img, mimeType)
	if err != nil {
		s.wsFail(c, err, s.svc.Locales.Current().Messages.FoodAnalysisFailed)
		return
	}

	id := uuid.New().String()
	s.pendingScans.Add(id, &pendingScan{userID: c.userID, analysis: analysis})
	c.sendMessage("scan_result", map[string]any{"id": id, "analysis": analysis})
}

// handleConfirmScan logs a pending scan. The client may correct the name
// and macros before confirming.
func (s *Server) handleConfirmScan(ctx context.Context, c *wsClient, data json.RawMessage) {
	var req struct {
		ID        string         `json:"id"`
		Name      string         `json:"name"`
		Macros    *models.Macros `json:"macros"`
		Timestamp int64          `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.ID == "" {
		s.wsFail(c, errBadRequest, "")
		return
	}
	scan, ok := s.pendingScans.Get(req.ID)
	if !ok || scan.userID != c.userID {
		c.sendError(s.svc.Locales.Current().Messages.NotFound)
		return
	}

	a := scan.analysis
	entry := &models.FoodEntry{
		UserID:         c.userID,
		Name:           a.Name,
		Macros:         a.Macros,
		Rating:         a.Rating,
		Recommendation: a.Recommendation,
		Timestamp:      req.Timestamp,
	}
	if req.Name != "" {
		entry.Name = req.Name
	}
	if req.Macros != nil {
		entry.Macros = *req.Macros
	}
	saved, err := s.svc.Tracker.LogFood(ctx, entry)
	if err != nil {
		s.wsFail(c, err, "")
		return
	}
	s.pendingScans.Remove(req.ID)
	c.sendMessage("scan_saved", saved)
}

// handleVoice bridges binary PCM frames between the client and a live
// model session. Turn markers are sent as JSON text frames.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	c, done, ok := s.upgrade(w, r)
	if !ok {
		return
	}
	defer done()

	ctx := r.Context()
	pack := s.svc.Locales.Current()
	dc, err := coach.LoadDayContext(ctx, s.svc.DB, c.userID, s.now())
	if err != nil {
		s.wsFail(c, err, pack.Messages.VoiceUnavailable)
		return
	}
	session, err := s.svc.Voice.Open(ctx, c.userID, coach.ComposeSystemInstruction(coach.VoicePersona, pack, dc))
	if err != nil {
		s.wsFail(c, err, pack.Messages.VoiceUnavailable)
		return
	}
	defer session.Close()

	var g errgroup.Group
	g.Go(func() error {
		defer session.Close()
		for {
			kind, frame, err := c.conn.ReadMessage()
			if err != nil {
				return nil
			}
			if kind != websocket.BinaryMessage {
				continue
			}
			if err := session.Send(frame); err != nil {
				if errors.Is(err, voice.ErrClosed) {
					return nil
				}
				return err
			}
		}
	})
	g.Go(func() error {
		defer c.conn.Close()
		for {
			ev, err := session.Receive()
			if err != nil {
				if errors.Is(err, voice.ErrClosed) || errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			if len(ev.Audio) > 0 {
				if err := c.write(func() error { return c.conn.WriteMessage(websocket.BinaryMessage, ev.Audio) }); err != nil {
					return nil
				}
			}
			if ev.Interrupted {
				c.sendMessage("interrupted", nil)
			}
			if ev.TurnComplete {
				c.sendMessage("turn_complete", nil)
			}
		}
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("voice session ended with error", zap.String("user", c.userID), zap.Error(err))
	}
}
