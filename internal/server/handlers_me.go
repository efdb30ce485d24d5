package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/franckalain/wellness/internal/achievements"
	"github.com/franckalain/wellness/internal/database"
	"github.com/franckalain/wellness/internal/models"
	"github.com/franckalain/wellness/internal/tracker"
)

// getProfile answers null for users who have not onboarded yet.
func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.DB.GetProfile(r.Context(), userFrom(r.Context()))
	if errors.Is(err, database.ErrNotFound) {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// putProfile merges the body over the stored profile, or over defaults.
func (s *Server) putProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userFrom(ctx)
	p, err := s.svc.DB.GetProfile(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		p, err = models.NewProfile(userID), nil
	}
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	if err := decodeBody(w, r, p); err != nil {
		s.fail(w, r, err, "")
		return
	}
	p.UserID = userID
	if err := s.svc.DB.SaveProfile(ctx, p); err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) settingsOrDefault(r *http.Request) (*models.Settings, error) {
	userID := userFrom(r.Context())
	st, err := s.svc.DB.GetSettings(r.Context(), userID)
	if errors.Is(err, database.ErrNotFound) {
		return models.DefaultSettings(userID), nil
	}
	return st, err
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.settingsOrDefault(r)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.settingsOrDefault(r)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	if err := decodeBody(w, r, st); err != nil {
		s.fail(w, r, err, "")
		return
	}
	st.UserID = userFrom(r.Context())
	if err := s.svc.DB.SaveSettings(r.Context(), st); err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// getRoadmap generates the first roadmap on demand.
func (s *Server) getRoadmap(w http.ResponseWriter, r *http.Request) {
	rm, err := s.svc.Roadmaps.Ensure(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err, s.svc.Locales.Current().Messages.RoadmapFailed)
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

func (s *Server) putRoadmap(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Steps []models.RoadmapStep `json:"steps"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		s.fail(w, r, err, "")
		return
	}
	rm, err := s.svc.Roadmaps.UpdateSteps(r.Context(), userFrom(r.Context()), body.Steps)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

func (s *Server) generateRoadmap(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Wishes string `json:"wishes"`
	}
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &body); err != nil {
			s.fail(w, r, err, "")
			return
		}
	}
	rm, err := s.svc.Roadmaps.Generate(r.Context(), userFrom(r.Context()), body.Wishes)
	if err != nil {
		s.fail(w, r, err, s.svc.Locales.Current().Messages.RoadmapFailed)
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

func (s *Server) getTodayStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Tracker.Today(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) putTodayStats(w http.ResponseWriter, r *http.Request) {
	var u tracker.StatsUpdate
	if err := decodeBody(w, r, &u); err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.respondStats(w, r, u)
}

func (s *Server) putSteps(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Steps *int `json:"steps"`
	}
	if err := decodeBody(w, r, &body); err != nil || body.Steps == nil {
		s.fail(w, r, errBadRequest, "")
		return
	}
	s.respondStats(w, r, tracker.StatsUpdate{Steps: body.Steps})
}

func (s *Server) putWater(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Water *int `json:"water"`
	}
	if err := decodeBody(w, r, &body); err != nil || body.Water == nil {
		s.fail(w, r, errBadRequest, "")
		return
	}
	s.respondStats(w, r, tracker.StatsUpdate{Water: body.Water})
}

func (s *Server) putSleepHours(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SleepHours *float64 `json:"sleepHours"`
	}
	if err := decodeBody(w, r, &body); err != nil || body.SleepHours == nil {
		s.fail(w, r, errBadRequest, "")
		return
	}
	s.respondStats(w, r, tracker.StatsUpdate{SleepHours: body.SleepHours})
}

func (s *Server) respondStats(w http.ResponseWriter, r *http.Request, u tracker.StatsUpdate) {
	st, err := s.svc.Tracker.UpdateToday(r.Context(), userFrom(r.Context()), u)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) getStatsHistory(w http.ResponseWriter, r *http.Request) {
	days, err := s.svc.Tracker.History(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(days))
}

func (s *Server) listFood(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Tracker.ListFood(r.Context(), userFrom(r.Context()), r.URL.Query().Get("date"))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

func (s *Server) createFood(w http.ResponseWriter, r *http.Request) {
	var e models.FoodEntry
	if err := decodeBody(w, r, &e); err != nil {
		s.fail(w, r, err, "")
		return
	}
	e.ID = ""
	e.UserID = userFrom(r.Context())
	saved, err := s.svc.Tracker.LogFood(r.Context(), &e)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) updateFood(w http.ResponseWriter, r *http.Request) {
	var e models.FoodEntry
	if err := decodeBody(w, r, &e); err != nil {
		s.fail(w, r, err, "")
		return
	}
	e.ID = mux.Vars(r)["id"]
	e.UserID = userFrom(r.Context())
	saved, err := s.svc.Tracker.UpdateFood(r.Context(), &e)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) deleteFood(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Tracker.DeleteFood(r.Context(), userFrom(r.Context()), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) listActivities(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Tracker.ListActivities(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

func (s *Server) createActivity(w http.ResponseWriter, r *http.Request) {
	var in tracker.ActivityInput
	if err := decodeBody(w, r, &in); err != nil {
		s.fail(w, r, err, "")
		return
	}
	e, err := s.svc.Tracker.LogActivity(r.Context(), userFrom(r.Context()), in)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) listSleep(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := s.svc.Tracker.ListSleep(r.Context(), userFrom(r.Context()), limit)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

func (s *Server) createSleep(w http.ResponseWriter, r *http.Request) {
	var e models.SleepEntry
	if err := decodeBody(w, r, &e); err != nil {
		s.fail(w, r, err, "")
		return
	}
	e.ID = ""
	e.UserID = userFrom(r.Context())
	saved, err := s.svc.Tracker.LogSleep(r.Context(), &e)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) getAchievements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userFrom(ctx)

	profile, err := s.svc.DB.GetProfile(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		profile, err = models.NewProfile(userID), nil
	}
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	settings, err := s.settingsOrDefault(r)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	today, err := s.svc.Tracker.Today(ctx, userID)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	history, err := s.svc.Tracker.History(ctx, userID)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	_, err = s.svc.DB.GetRoadmap(ctx, userID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		s.fail(w, r, err, "")
		return
	}

	days := make([]models.DailyStats, len(history))
	for i, d := range history {
		days[i] = *d
	}
	writeJSON(w, http.StatusOK, achievements.Evaluate(achievements.State{
		Today:       *today,
		CalorieGoal: profile.DailyCalorieGoal,
		StepGoal:    profile.DailyStepGoal,
		WaterGoal:   settings.WaterGoal,
		HasRoadmap:  err == nil,
		Sleep:       settings.Sleep,
		History:     days,
	}))
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
