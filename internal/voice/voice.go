// Package voice manages realtime audio sessions with the coach. Each user
// has at most one open session; opening a new one closes the old one.
package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/franckalain/wellness/internal/ml"
)

var (
	// ErrUnsupported is returned when the configured backend has no live audio.
	ErrUnsupported = errors.New("voice sessions not supported by this backend")
	ErrClosed      = errors.New("voice session closed")
)

// Controller owns the active session of every user.
type Controller struct {
	live   ml.LiveConnector
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewController accepts a nil connector; Open then fails with ErrUnsupported.
func NewController(live ml.LiveConnector, logger *zap.Logger) *Controller {
	return &Controller{
		live:     live,
		logger:   logger.Named("voice"),
		sessions: make(map[string]*Session),
	}
}

// Open closes any session the user already has and connects a new one.
func (c *Controller) Open(ctx context.Context, userID, systemInstruction string) (*Session, error) {
	if c.live == nil {
		return nil, ErrUnsupported
	}

	c.mu.Lock()
	prev := c.sessions[userID]
	c.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	stream, err := c.live.ConnectLive(ctx, systemInstruction)
	if err != nil {
		return nil, fmt.Errorf("failed to open voice session: %w", err)
	}
	s := &Session{
		userID: userID,
		stream: stream,
		done:   make(chan struct{}),
		owner:  c,
	}

	c.mu.Lock()
	// a concurrent Open may have raced us in
	if other := c.sessions[userID]; other != nil {
		defer other.Close()
	}
	c.sessions[userID] = s
	c.mu.Unlock()

	c.logger.Info("voice session opened", zap.String("user", userID))
	return s, nil
}

// Active returns the open session of a user, if any.
func (c *Controller) Active(userID string) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[userID]
}

// CloseAll closes every open session.
func (c *Controller) CloseAll() {
	c.mu.Lock()
	open := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		open = append(open, s)
	}
	c.mu.Unlock()
	for _, s := range open {
		s.Close()
	}
}

func (c *Controller) release(s *Session) {
	c.mu.Lock()
	if c.sessions[s.userID] == s {
		delete(c.sessions, s.userID)
	}
	c.mu.Unlock()
}

// Session is an open audio stream. Close is safe to call more than once
// and from any goroutine.
type Session struct {
	userID string
	stream ml.LiveStream
	owner  *Controller

	once     sync.Once
	done     chan struct{}
	closeErr error
}

// Send forwards 16 kHz PCM from the user.
func (s *Session) Send(pcm []byte) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	return s.stream.SendAudio(pcm)
}

// Receive blocks for the next event from the model.
func (s *Session) Receive() (*ml.LiveEvent, error) {
	select {
	case <-s.done:
		return nil, ErrClosed
	default:
	}
	ev, err := s.stream.Receive()
	if err != nil {
		select {
		case <-s.done:
			return nil, ErrClosed
		default:
		}
		return nil, err
	}
	return ev, nil
}

// Done is closed once the session has been closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.closeErr = s.stream.Close()
		s.owner.release(s)
		s.owner.logger.Info("voice session closed", zap.String("user", s.userID))
	})
	return s.closeErr
}
