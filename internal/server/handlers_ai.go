package server

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/franckalain/wellness/internal/coach"
	"github.com/franckalain/wellness/internal/database"
	"github.com/franckalain/wellness/internal/ml"
	"github.com/franckalain/wellness/internal/models"
	"github.com/franckalain/wellness/internal/walks"
)

type chatRequest struct {
	Message        string   `json:"message"`
	ConversationID string   `json:"conversationId"`
	Lat            *float64 `json:"lat"`
	Lng            *float64 `json:"lng"`
}

func (c chatRequest) location() *ml.LatLng {
	if c.Lat == nil || c.Lng == nil {
		return nil
	}
	return &ml.LatLng{Lat: *c.Lat, Lng: *c.Lng}
}

func (c chatRequest) send(userID string) coach.SendRequest {
	conv := c.ConversationID
	if conv == "" {
		conv = coach.DefaultConversation
	}
	return coach.SendRequest{
		UserID:         userID,
		ConversationID: conv,
		Message:        c.Message,
		Location:       c.location(),
	}
}

// chat answers one turn. Follow-ups from background plan updates are
// persisted and show up in the history.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.fail(w, r, err, "")
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		s.fail(w, r, errBadRequest, "")
		return
	}
	res, err := s.svc.Chat.Send(r.Context(), body.send(userFrom(r.Context())))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) chatHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	conv := q.Get("conversationId")
	if conv == "" {
		conv = coach.DefaultConversation
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	msgs, err := s.svc.Chat.History(r.Context(), userFrom(r.Context()), conv, limit)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(msgs))
}

// decodeImage accepts plain base64 or a data URL.
func decodeImage(data, mimeType string) ([]byte, string, error) {
	if rest, ok := strings.CutPrefix(data, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", fmt.Errorf("%w: malformed data URL", errBadRequest)
		}
		if mimeType == "" {
			mimeType, _, _ = strings.Cut(header, ";")
		}
		data = payload
	}
	img, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return img, mimeType, nil
}

func (s *Server) analyzeFood(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Image    string `json:"image"`
		MimeType string `json:"mimeType"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		s.fail(w, r, err, "")
		return
	}
	img, mimeType, err := decodeImage(body.Image, body.MimeType)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	analysis, err := s.svc.Tracker.AnalyzeFood(r.Context(), img, mimeType)
	if err != nil {
		s.fail(w, r, err, s.svc.Locales.Current().Messages.FoodAnalysisFailed)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) validateAddress(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Input string `json:"input"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		s.fail(w, r, err, "")
		return
	}
	addr, err := s.svc.Walks.NormalizeAddress(r.Context(), body.Input)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"address": addr})
}

type suggestRequest struct {
	StepsNeeded    *int            `json:"stepsNeeded"`
	Mode           models.WalkMode `json:"mode"`
	Lat            *float64        `json:"lat"`
	Lng            *float64        `json:"lng"`
	CustomAddress  string          `json:"customAddress"`
	LocationDenied bool            `json:"locationDenied"`
}

func (s *Server) suggestWalks(w http.ResponseWriter, r *http.Request) {
	var body suggestRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.fail(w, r, err, "")
		return
	}
	if body.Mode == "" {
		body.Mode = models.WalkNearby
	}

	steps, err := s.remainingSteps(r, body.StepsNeeded)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	loc := walks.Location{Address: body.CustomAddress, Denied: body.LocationDenied}
	if body.Lat != nil && body.Lng != nil {
		loc.Coords = &ml.LatLng{Lat: *body.Lat, Lng: *body.Lng}
	}

	routes, err := s.svc.Walks.Suggest(r.Context(), walks.Request{
		StepsNeeded: steps,
		Mode:        body.Mode,
		Location:    loc,
	})
	if err != nil {
		s.fail(w, r, err, s.svc.Locales.Current().Messages.RoutesUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stepsNeeded": steps, "routes": routes})
}

// remainingSteps uses the client figure when given, otherwise the gap
// between the profile goal and today's steps.
func (s *Server) remainingSteps(r *http.Request, given *int) (int, error) {
	if given != nil {
		return *given, nil
	}
	ctx := r.Context()
	userID := userFrom(ctx)
	goal := 0
	p, err := s.svc.DB.GetProfile(ctx, userID)
	switch {
	case err == nil:
		goal = p.DailyStepGoal
	case !errors.Is(err, database.ErrNotFound):
		return 0, err
	}
	today, err := s.svc.Tracker.Today(ctx, userID)
	if err != nil {
		return 0, err
	}
	return walks.StepsNeeded(goal, today.Steps), nil
}
