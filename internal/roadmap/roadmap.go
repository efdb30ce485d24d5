// Package roadmap generates wellness plans and fans their daily targets out
// to the profile and settings of a user.
package roadmap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/franckalain/wellness/internal/database"
	"github.com/franckalain/wellness/internal/locale"
	"github.com/franckalain/wellness/internal/ml"
	"github.com/franckalain/wellness/internal/models"
	"go.uber.org/zap"
)

const maxSteps = 5

var (
	ErrProfileNotFound = errors.New("profile not found")
	// ErrGenerationFailed means nothing usable came back; nothing was written.
	ErrGenerationFailed = errors.New("roadmap generation failed")
	// ErrPartialPropagation means some writes succeeded before one failed.
	ErrPartialPropagation = errors.New("roadmap partially applied")
)

// PropagationError reports which write failed after a successful generation.
// Earlier writes are not rolled back; regenerating the roadmap repairs them.
type PropagationError struct {
	Step string // "roadmap", "profile" or "settings"
	Err  error
}

func (e *PropagationError) Error() string {
	return fmt.Sprintf("roadmap partially applied: %s write failed: %v", e.Step, e.Err)
}

func (e *PropagationError) Unwrap() []error {
	return []error{ErrPartialPropagation, e.Err}
}

// Store is the persistence the synchronizer writes to.
type Store interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	SaveProfile(ctx context.Context, p *models.UserProfile) error
	GetSettings(ctx context.Context, userID string) (*models.Settings, error)
	SaveSettings(ctx context.Context, s *models.Settings) error
	GetRoadmap(ctx context.Context, userID string) (*models.Roadmap, error)
	ReplaceRoadmap(ctx context.Context, r *models.Roadmap) error
}

// Synchronizer owns the roadmap of every user.
type Synchronizer struct {
	store   Store
	model   ml.Model
	locales *locale.Store
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time

	userLocks sync.Map // user id -> *sync.Mutex
}

func NewSynchronizer(store Store, model ml.Model, locales *locale.Store, timeout time.Duration, logger *zap.Logger) *Synchronizer {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Synchronizer{
		store:   store,
		model:   model,
		locales: locales,
		timeout: timeout,
		logger:  logger.Named("roadmap"),
		now:     time.Now,
	}
}

func (s *Synchronizer) lock(userID string) func() {
	mu, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// Generate asks the model for a new roadmap and applies it. On any
// generation failure the stored data is left untouched.
func (s *Synchronizer) Generate(ctx context.Context, userID, wishes string) (*models.Roadmap, error) {
	defer s.lock(userID)()
	return s.generate(ctx, userID, wishes)
}

// generate must be called with the user lock held.
func (s *Synchronizer) generate(ctx context.Context, userID, wishes string) (*models.Roadmap, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	prompt := BuildPrompt(profile, wishes, s.locales.Current().Language)
	aiCtx, cancel := context.WithTimeout(ctx, s.timeout)
	raw, err := s.model.GenerateStructuredJSON(aiCtx, prompt, ResponseSchema())
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	roadmap, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	roadmap.UserID = userID
	roadmap.UpdatedAt = s.now()

	if err := s.apply(ctx, profile, roadmap); err != nil {
		return nil, err
	}
	s.logger.Info("roadmap generated",
		zap.String("user", userID),
		zap.Int("steps", len(roadmap.Steps)),
		zap.Bool("wishes", strings.TrimSpace(wishes) != ""))
	return roadmap, nil
}

// apply writes the roadmap, then the profile goals, then the settings.
func (s *Synchronizer) apply(ctx context.Context, profile *models.UserProfile, r *models.Roadmap) error {
	if err := s.store.ReplaceRoadmap(ctx, r); err != nil {
		return &PropagationError{Step: "roadmap", Err: err}
	}

	profile.DailyCalorieGoal = roundPositive(r.Targets.DailyCalories)
	profile.DailyStepGoal = roundPositive(r.Targets.DailySteps)
	if err := s.store.SaveProfile(ctx, profile); err != nil {
		return s.partial(r.UserID, "profile", err)
	}

	settings, err := s.store.GetSettings(ctx, r.UserID)
	if errors.Is(err, database.ErrNotFound) {
		settings, err = models.DefaultSettings(r.UserID), nil
	}
	if err != nil {
		return s.partial(r.UserID, "settings", err)
	}
	settings.WaterGoal = roundPositive(r.Targets.DailyWater)
	settings.Sleep.TargetHours = r.Targets.SleepHours
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return s.partial(r.UserID, "settings", err)
	}
	return nil
}

func (s *Synchronizer) partial(userID, step string, err error) error {
	s.logger.Error("roadmap targets partially applied",
		zap.String("user", userID), zap.String("step", step), zap.Error(err))
	return &PropagationError{Step: step, Err: err}
}

// Ensure returns the stored roadmap, generating the first one on demand.
// Concurrent callers for the same user share a single generation.
func (s *Synchronizer) Ensure(ctx context.Context, userID string) (*models.Roadmap, error) {
	defer s.lock(userID)()

	r, err := s.store.GetRoadmap(ctx, userID)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	return s.generate(ctx, userID, "")
}

// UpdateSteps replaces the steps of an existing roadmap and keeps its targets.
func (s *Synchronizer) UpdateSteps(ctx context.Context, userID string, steps []models.RoadmapStep) (*models.Roadmap, error) {
	defer s.lock(userID)()

	r, err := s.store.GetRoadmap(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.Steps = normalizeSteps(steps)
	r.UpdatedAt = s.now()
	if err := s.store.ReplaceRoadmap(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Decode parses and validates a roadmap response. Targets must be positive
// and at least one titled step must be present; unknown statuses become
// pending and extra steps are dropped.
func Decode(raw []byte) (*models.Roadmap, error) {
	var out struct {
		Targets *models.RoadmapTargets `json:"targets"`
		Steps   []models.RoadmapStep   `json:"steps"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ml.ErrMalformedOutput, err)
	}
	if out.Targets == nil {
		return nil, fmt.Errorf("%w: missing targets", ml.ErrMalformedOutput)
	}
	t := *out.Targets
	if roundPositive(t.DailyCalories) <= 0 || roundPositive(t.DailyWater) <= 0 ||
		roundPositive(t.DailySteps) <= 0 || t.SleepHours <= 0 {
		return nil, fmt.Errorf("%w: targets must be positive: %+v", ml.ErrMalformedOutput, t)
	}

	steps := normalizeSteps(out.Steps)
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: no steps", ml.ErrMalformedOutput)
	}
	if len(steps) > maxSteps {
		steps = steps[:maxSteps]
	}
	for _, st := range steps {
		if strings.TrimSpace(st.Title) == "" {
			return nil, fmt.Errorf("%w: step without title", ml.ErrMalformedOutput)
		}
	}
	return &models.Roadmap{Steps: steps, Targets: t}, nil
}

func normalizeSteps(steps []models.RoadmapStep) []models.RoadmapStep {
	out := make([]models.RoadmapStep, len(steps))
	for i, st := range steps {
		if !st.Status.Valid() {
			st.Status = models.StatusPending
		}
		out[i] = st
	}
	return out
}

func roundPositive(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	return int(math.Round(v))
}
