package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/franckalain/wellness/internal/coach"
	"github.com/franckalain/wellness/internal/database"
	"github.com/franckalain/wellness/internal/locale"
	"github.com/franckalain/wellness/internal/ml"
	"github.com/franckalain/wellness/internal/models"
	"github.com/franckalain/wellness/internal/roadmap"
	"github.com/franckalain/wellness/internal/tracker"
	"github.com/franckalain/wellness/internal/voice"
	"github.com/franckalain/wellness/internal/walks"
)

const (
	maxBodyBytes     = 12 << 20 // base64 photos
	pendingScanLimit = 128
)

// Services are the components the handlers call into.
type Services struct {
	DB       database.DB
	Chat     *coach.ChatService
	Roadmaps *roadmap.Synchronizer
	Walks    *walks.Engine
	Tracker  *tracker.Tracker
	Voice    *voice.Controller
	Locales  *locale.Store
}

type Options struct {
	Port            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

type Server struct {
	svc    Services
	opts   Options
	auth   Authenticator
	logger *zap.Logger

	upgrader     websocket.Upgrader
	clients      sync.Map // connection id -> *wsClient
	pendingScans *lru.Cache[string, *pendingScan]
	now          func() time.Time
}

func New(svc Services, opts Options, logger *zap.Logger) (*Server, error) {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	scans, err := lru.New[string, *pendingScan](pendingScanLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan cache: %w", err)
	}
	s := &Server{
		svc:          svc,
		opts:         opts,
		auth:         HeaderAuthenticator{},
		logger:       logger.Named("server"),
		pendingScans: scans,
		now:          time.Now,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s, nil
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(s.opts.AllowedOrigins, "*") || slices.Contains(s.opts.AllowedOrigins, origin)
}

// Handler returns the full HTTP handler with CORS and request logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.authenticate)

	me := api.PathPrefix("/me").Subrouter()
	me.HandleFunc("/profile", s.getProfile).Methods(http.MethodGet)
	me.HandleFunc("/profile", s.putProfile).Methods(http.MethodPut)
	me.HandleFunc("/settings", s.getSettings).Methods(http.MethodGet)
	me.HandleFunc("/settings", s.putSettings).Methods(http.MethodPut)
	me.HandleFunc("/roadmap", s.getRoadmap).Methods(http.MethodGet)
	me.HandleFunc("/roadmap", s.putRoadmap).Methods(http.MethodPut)
	me.HandleFunc("/roadmap/generate", s.generateRoadmap).Methods(http.MethodPost)
	me.HandleFunc("/stats/today", s.getTodayStats).Methods(http.MethodGet)
	me.HandleFunc("/stats/today", s.putTodayStats).Methods(http.MethodPut)
	me.HandleFunc("/stats/history", s.getStatsHistory).Methods(http.MethodGet)
	me.HandleFunc("/steps/today", s.putSteps).Methods(http.MethodPut)
	me.HandleFunc("/water/today", s.putWater).Methods(http.MethodPut)
	me.HandleFunc("/sleep/today", s.putSleepHours).Methods(http.MethodPut)
	me.HandleFunc("/food", s.listFood).Methods(http.MethodGet)
	me.HandleFunc("/food", s.createFood).Methods(http.MethodPost)
	me.HandleFunc("/food/{id}", s.updateFood).Methods(http.MethodPut)
	me.HandleFunc("/food/{id}", s.deleteFood).Methods(http.MethodDelete)
	me.HandleFunc("/activity", s.listActivities).Methods(http.MethodGet)
	me.HandleFunc("/activity", s.createActivity).Methods(http.MethodPost)
	me.HandleFunc("/sleep", s.listSleep).Methods(http.MethodGet)
	me.HandleFunc("/sleep", s.createSleep).Methods(http.MethodPost)
	me.HandleFunc("/achievements", s.getAchievements).Methods(http.MethodGet)

	ai := api.PathPrefix("/ai").Subrouter()
	ai.HandleFunc("/chat", s.chat).Methods(http.MethodPost)
	ai.HandleFunc("/chat/history", s.chatHistory).Methods(http.MethodGet)
	ai.HandleFunc("/analyze-food", s.analyzeFood).Methods(http.MethodPost)

	wk := api.PathPrefix("/walks").Subrouter()
	wk.HandleFunc("/validate-address", s.validateAddress).Methods(http.MethodPost)
	wk.HandleFunc("/suggest", s.suggestWalks).Methods(http.MethodPost)

	r.Handle("/ws", s.authenticate(http.HandlerFunc(s.handleWebSocket)))
	r.Handle("/ws/voice", s.authenticate(http.HandlerFunc(s.handleVoice)))

	c := cors.New(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", userHeader},
	})
	return c.Handler(s.logRequests(r))
}

// Start serves until ctx is cancelled, then shuts down gracefully and
// closes open WebSocket connections.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.opts.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("port", s.opts.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	s.closeClients()
	if s.svc.Voice != nil {
		s.svc.Voice.CloseAll()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrader reach the underlying connection.
func (rw *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapper.statusCode),
			zap.Duration("took", time.Since(start)),
		}
		if wrapper.statusCode >= http.StatusInternalServerError {
			s.logger.Warn("request", fields...)
			return
		}
		s.logger.Debug("request", fields...)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

var errBadRequest = errors.New("bad request")

// errorResponse maps an error to a status code and a localized message.
// fallback is used for AI failures so each feature shows its own text.
func (s *Server) errorResponse(err error, fallback string) (int, string) {
	msg := s.svc.Locales.Current().Messages
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, tracker.ErrInvalidInput),
		errors.Is(err, walks.ErrInvalidMode),
		errors.Is(err, models.ErrInvalidProfile),
		errors.Is(err, models.ErrInvalidSettings):
		return http.StatusBadRequest, msg.InvalidRequest
	case errors.Is(err, walks.ErrAddressRequired):
		return http.StatusBadRequest, msg.AddressRequired
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, msg.NotFound
	case errors.Is(err, roadmap.ErrProfileNotFound):
		return http.StatusConflict, msg.ProfileRequired
	case errors.Is(err, walks.ErrLocationUnavailable):
		return http.StatusUnprocessableEntity, msg.LocationDenied
	case errors.Is(err, walks.ErrAddressNotFound):
		return http.StatusUnprocessableEntity, msg.AddressNotFound
	case errors.Is(err, walks.ErrRoutesUnavailable):
		return http.StatusBadGateway, msg.RoutesUnavailable
	case errors.Is(err, roadmap.ErrGenerationFailed):
		return http.StatusBadGateway, msg.RoadmapFailed
	case errors.Is(err, roadmap.ErrPartialPropagation):
		return http.StatusInternalServerError, msg.RoadmapFailed
	case errors.Is(err, voice.ErrUnsupported):
		return http.StatusNotImplemented, msg.VoiceUnavailable
	case errors.Is(err, ml.ErrUnavailable), errors.Is(err, ml.ErrMalformedOutput):
		if fallback == "" {
			fallback = msg.Apology
		}
		return http.StatusBadGateway, fallback
	}
	return http.StatusInternalServerError, msg.InternalError
}

// fail writes a localized error. The raw error is only logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, text := s.errorResponse(err, fallback)
	log := s.logger.Debug
	if status >= http.StatusInternalServerError {
		log = s.logger.Error
	}
	log("request failed",
		zap.String("path", r.URL.Path),
		zap.String("user", userFrom(r.Context())),
		zap.Int("status", status),
		zap.Error(err))
	writeJSON(w, status, map[string]string{"error": text})
}
