package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/franckalain/wellness/internal/database"
	"github.com/franckalain/wellness/internal/ml"
	"github.com/franckalain/wellness/internal/models"
)

func foodPrompt(language string) string {
	return "Analyze this photo of food. Name the dish in " + language + ", estimate calories, " +
		"protein (g), fat (g) and carbohydrates (g) for the portion shown. Rate how healthy it is " +
		"from 1 to 10 (10 is the healthiest). In ratingDescription explain the rating based on the " +
		"ingredients and macros. Give a short recommendation. Write all text in " + language + "."
}

func foodSchema() *ml.Schema {
	return &ml.Schema{
		Type: ml.TypeObject,
		Properties: map[string]*ml.Schema{
			"name":              {Type: ml.TypeString},
			"calories":          {Type: ml.TypeNumber},
			"protein":           {Type: ml.TypeNumber},
			"fat":               {Type: ml.TypeNumber},
			"carbs":             {Type: ml.TypeNumber},
			"rating":            {Type: ml.TypeNumber},
			"ratingDescription": {Type: ml.TypeString},
			"recommendation":    {Type: ml.TypeString},
		},
		Required: []string{"name", "calories", "protein", "fat", "carbs", "rating", "ratingDescription", "recommendation"},
	}
}

// AnalyzeFood estimates a meal from a photo. The rating is clamped to 1-10
// and the recommendation starts with the rating explanation.
func (t *Tracker) AnalyzeFood(ctx context.Context, image []byte, mimeType string) (*models.FoodAnalysis, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidInput)
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	start := time.Now()
	raw, err := t.model.AnalyzeImage(ctx, image, mimeType, foodPrompt(t.locales.Current().Language), foodSchema())
	if err != nil {
		return nil, err
	}

	var out struct {
		Name              string  `json:"name"`
		Calories          float64 `json:"calories"`
		Protein           float64 `json:"protein"`
		Fat               float64 `json:"fat"`
		Carbs             float64 `json:"carbs"`
		Rating            float64 `json:"rating"`
		RatingDescription string  `json:"ratingDescription"`
		Recommendation    string  `json:"recommendation"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ml.ErrMalformedOutput, err)
	}
	if strings.TrimSpace(out.Name) == "" {
		return nil, fmt.Errorf("%w: unnamed dish", ml.ErrMalformedOutput)
	}

	rec := strings.TrimSpace(out.Recommendation)
	if desc := strings.TrimSpace(out.RatingDescription); desc != "" {
		rec = strings.TrimSpace(desc + "\n\n" + rec)
	}
	t.logger.Debug("food analyzed",
		zap.String("dish", out.Name),
		zap.Duration("took", time.Since(start)))

	return &models.FoodAnalysis{
		Name: out.Name,
		Macros: models.Macros{
			Calories: math.Max(out.Calories, 0),
			Protein:  math.Max(out.Protein, 0),
			Fat:      math.Max(out.Fat, 0),
			Carbs:    math.Max(out.Carbs, 0),
		},
		Rating:            models.ClampRating(int(math.Round(out.Rating))),
		RatingDescription: out.RatingDescription,
		Recommendation:    rec,
	}, nil
}

func validateFood(e *models.FoodEntry) error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: food name is required", ErrInvalidInput)
	}
	m := e.Macros
	if m.Calories < 0 || m.Protein < 0 || m.Fat < 0 || m.Carbs < 0 {
		return fmt.Errorf("%w: macros must not be negative", ErrInvalidInput)
	}
	return nil
}

// LogFood stores a meal and recomputes today's calories.
func (t *Tracker) LogFood(ctx context.Context, e *models.FoodEntry) (*models.FoodEntry, error) {
	if err := validateFood(e); err != nil {
		return nil, err
	}
	if e.Timestamp == 0 {
		e.Timestamp = t.now().UnixMilli()
	}
	if err := t.store.AddFood(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to save food entry: %w", err)
	}
	if err := t.recomputeCalories(ctx, e.UserID); err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateFood replaces an entry; database.ErrNotFound when it does not exist.
func (t *Tracker) UpdateFood(ctx context.Context, e *models.FoodEntry) (*models.FoodEntry, error) {
	if err := validateFood(e); err != nil {
		return nil, err
	}
	if err := t.store.UpdateFood(ctx, e); err != nil {
		return nil, err
	}
	if err := t.recomputeCalories(ctx, e.UserID); err != nil {
		return nil, err
	}
	return e, nil
}

func (t *Tracker) DeleteFood(ctx context.Context, userID, id string) error {
	if err := t.store.DeleteFood(ctx, userID, id); err != nil {
		return err
	}
	return t.recomputeCalories(ctx, userID)
}

// ListFood returns entries newest first, limited to one day when date is set.
func (t *Tracker) ListFood(ctx context.Context, userID, date string) ([]*models.FoodEntry, error) {
	var r database.TimeRange
	if date != "" {
		day, err := time.ParseInLocation(models.DateLayout, date, t.now().Location())
		if err != nil {
			return nil, fmt.Errorf("%w: bad date %q", ErrInvalidInput, date)
		}
		r.From, r.To = models.DayBounds(day)
	}
	return t.store.ListFood(ctx, userID, r)
}

// recomputeCalories sets today's calories to the sum of today's meals.
func (t *Tracker) recomputeCalories(ctx context.Context, userID string) error {
	meals, err := t.store.ListFood(ctx, userID, t.todayRange())
	if err != nil {
		return fmt.Errorf("failed to load today's meals: %w", err)
	}
	var total float64
	for _, m := range meals {
		total += m.Macros.Calories
	}
	_, err = t.updateToday(ctx, userID, func(st *models.DailyStats) {
		st.Calories = total
	})
	return err
}
