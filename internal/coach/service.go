package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/franckalain/wellness/internal/database"
	"github.com/franckalain/wellness/internal/locale"
	"github.com/franckalain/wellness/internal/ml"
	"github.com/franckalain/wellness/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultConversation = "default"
	historyLimit        = 50
)

// Store is the persistence the chat service needs.
type Store interface {
	ContextStore
	SaveSettings(ctx context.Context, s *models.Settings) error
	AppendMessage(ctx context.Context, m *models.ChatMessage) error
	ListMessages(ctx context.Context, userID, conversationID string, limit int) ([]*models.ChatMessage, error)
}

// PlanGenerator regenerates a user's roadmap from free-text wishes.
type PlanGenerator interface {
	Generate(ctx context.Context, userID, wishes string) (*models.Roadmap, error)
}

type PlanStatus string

const PlanUpdatePending PlanStatus = "pending"

// SendRequest is one user turn.
type SendRequest struct {
	UserID         string
	ConversationID string
	Message        string
	Location       *ml.LatLng
	// OnFollowUp, when set, receives the message appended after a
	// background plan update finishes.
	OnFollowUp func(*models.ChatMessage)
}

// SendResult is the reply shown to the user for a turn.
type SendResult struct {
	Message    *models.ChatMessage `json:"message"`
	Alarm      string              `json:"alarm,omitempty"`
	PlanUpdate PlanStatus          `json:"planUpdate,omitempty"`
}

// Options configures a ChatService.
type Options struct {
	FastModel    string
	QualityModel string
	Timeout      time.Duration
}

// ChatService runs the per-turn coach pipeline: alarm short-circuit,
// context gathering, the AI call and reply interpretation.
type ChatService struct {
	store      Store
	model      ml.Model
	classifier Classifier
	locales    *locale.Store
	plans      PlanGenerator
	opts       Options
	logger     *zap.Logger
	now        func() time.Time

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewChatService(store Store, model ml.Model, classifier Classifier, locales *locale.Store, plans PlanGenerator, opts Options, logger *zap.Logger) *ChatService {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &ChatService{
		store:      store,
		model:      model,
		classifier: classifier,
		locales:    locales,
		plans:      plans,
		opts:       opts,
		logger:     logger.Named("coach"),
		now:        time.Now,
	}
}

// Send handles one user message. Provider failures are answered with a
// localized apology and do not produce an error; only storage failures do.
func (s *ChatService) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	if req.ConversationID == "" {
		req.ConversationID = DefaultConversation
	}
	pack := s.locales.Current()

	userMsg := &models.ChatMessage{
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		Role:           models.RoleUser,
		Text:           req.Message,
		CreatedAt:      s.now(),
	}
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	if at, ok := DetectAlarm(req.Message, pack.Keywords.Alarm); ok {
		return s.setAlarm(ctx, req, at, pack)
	}

	history, err := s.history(ctx, req.UserID, req.ConversationID, userMsg.ID)
	if err != nil {
		return nil, err
	}
	dc, err := LoadDayContext(ctx, s.store, req.UserID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to load day context: %w", err)
	}

	sel := s.classifier.Classify(req.Message)
	modelName := s.opts.QualityModel
	if sel.Tier == TierFast {
		modelName = s.opts.FastModel
	}

	aiCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	resp, err := s.model.Chat(aiCtx, ml.ChatRequest{
		History:           history,
		Message:           req.Message,
		SystemInstruction: ComposeSystemInstruction(Persona, pack, dc),
		Model:             modelName,
		Tools:             sel.Tools(),
		Location:          req.Location,
	})
	if err != nil {
		s.logger.Warn("chat call failed", zap.String("user", req.UserID), zap.Error(err))
		return s.reply(ctx, req, pack.Messages.Apology, nil)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return s.reply(ctx, req, pack.Messages.EmptyReply, nil)
	}

	parsed := ParseReply(resp.Text)
	if parsed.Directive == nil {
		return s.reply(ctx, req, parsed.DisplayText, resp.Grounding)
	}

	result, err := s.reply(ctx, req, parsed.DisplayText, resp.Grounding)
	if err != nil {
		return nil, err
	}
	if s.regenerate(ctx, req, parsed.Directive.Payload) {
		result.PlanUpdate = PlanUpdatePending
	}
	return result, nil
}

func (s *ChatService) setAlarm(ctx context.Context, req SendRequest, at string, pack *locale.Pack) (*SendResult, error) {
	settings, err := s.store.GetSettings(ctx, req.UserID)
	if errors.Is(err, database.ErrNotFound) {
		settings, err = models.DefaultSettings(req.UserID), nil
	}
	if err == nil {
		settings.Sleep.WakeTime = at
		settings.Sleep.WakeAlarmEnabled = true
		err = s.store.SaveSettings(ctx, settings)
	}
	if err != nil {
		s.logger.Warn("failed to set alarm", zap.String("user", req.UserID), zap.Error(err))
		return s.reply(ctx, req, pack.Messages.Apology, nil)
	}

	s.logger.Info("alarm set", zap.String("user", req.UserID), zap.String("time", at))
	result, err := s.reply(ctx, req, fmt.Sprintf(pack.Messages.AlarmSetf, at), nil)
	if err != nil {
		return nil, err
	}
	result.Alarm = at
	return result, nil
}

// regenerate starts a background roadmap update and reports whether it was
// started. It outlives the request; Close waits for it.
func (s *ChatService) regenerate(ctx context.Context, req SendRequest, wishes string) bool {
	if s.plans == nil {
		return false
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	go func() {
		defer s.wg.Done()

		pack := s.locales.Current()
		text := pack.Messages.PlanUpdated
		if _, err := s.plans.Generate(bg, req.UserID, wishes); err != nil {
			s.logger.Warn("plan update failed", zap.String("user", req.UserID), zap.Error(err))
			text = pack.Messages.PlanUpdateFailed
		}

		msg := &models.ChatMessage{
			UserID:         req.UserID,
			ConversationID: req.ConversationID,
			Role:           models.RoleModel,
			Text:           text,
			CreatedAt:      s.now(),
		}
		if err := s.store.AppendMessage(bg, msg); err != nil {
			s.logger.Error("failed to save plan update message", zap.Error(err))
			return
		}
		if req.OnFollowUp != nil {
			req.OnFollowUp(msg)
		}
	}()
	return true
}

func (s *ChatService) reply(ctx context.Context, req SendRequest, text string, grounding []models.GroundingRef) (*SendResult, error) {
	msg := &models.ChatMessage{
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		Role:           models.RoleModel,
		Text:           text,
		Grounding:      grounding,
		CreatedAt:      s.now(),
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save reply: %w", err)
	}
	return &SendResult{Message: msg}, nil
}

// history returns prior turns, excluding the message just stored.
func (s *ChatService) history(ctx context.Context, userID, conversationID, currentID string) ([]ml.ChatTurn, error) {
	msgs, err := s.store.ListMessages(ctx, userID, conversationID, historyLimit+1)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	turns := make([]ml.ChatTurn, 0, len(msgs))
	for _, m := range msgs {
		if m.ID == currentID {
			continue
		}
		turns = append(turns, ml.ChatTurn{Role: m.Role, Text: m.Text})
	}
	return turns, nil
}

// History returns the transcript of a conversation. An empty conversation
// starts with the localized greeting, which is not stored.
func (s *ChatService) History(ctx context.Context, userID, conversationID string, limit int) ([]*models.ChatMessage, error) {
	if conversationID == "" {
		conversationID = DefaultConversation
	}
	msgs, err := s.store.ListMessages(ctx, userID, conversationID, limit)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		msgs = []*models.ChatMessage{{
			ID:             "greeting",
			UserID:         userID,
			ConversationID: conversationID,
			Role:           models.RoleModel,
			Text:           s.locales.Current().Messages.Greeting,
			CreatedAt:      s.now(),
		}}
	}
	return msgs, nil
}

// Close stops accepting plan updates and waits for running ones.
func (s *ChatService) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}
