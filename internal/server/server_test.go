package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/franckalain/wellness/internal/achievements"
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

// fakeModel answers every call with canned output.
type fakeModel struct {
	mu         sync.Mutex
	structured string
	text       string
	chat       string
	address    string
	image      string
	err        error
	prompts    []string
}

func (f *fakeModel) record(p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, p)
	return f.err
}

func (f *fakeModel) Load(ctx context.Context) error { return nil }
func (f *fakeModel) Close() error                   { return nil }

func (f *fakeModel) GenerateStructuredJSON(ctx context.Context, prompt string, schema *ml.Schema) ([]byte, error) {
	if err := f.record(prompt); err != nil {
		return nil, err
	}
	return []byte(f.structured), nil
}

func (f *fakeModel) GenerateText(ctx context.Context, req ml.TextRequest) (*ml.TextResponse, error) {
	if err := f.record(req.Prompt); err != nil {
		return nil, err
	}
	return &ml.TextResponse{Text: f.text}, nil
}

func (f *fakeModel) Chat(ctx context.Context, req ml.ChatRequest) (*ml.TextResponse, error) {
	if err := f.record(req.Message); err != nil {
		return nil, err
	}
	return &ml.TextResponse{Text: f.chat}, nil
}

func (f *fakeModel) NormalizeAddress(ctx context.Context, input string) (string, error) {
	if err := f.record(input); err != nil {
		return "", err
	}
	if f.address == "" {
		return "", ml.ErrNotFound
	}
	return f.address, nil
}

func (f *fakeModel) AnalyzeImage(ctx context.Context, image []byte, mimeType, prompt string, schema *ml.Schema) ([]byte, error) {
	if err := f.record(prompt); err != nil {
		return nil, err
	}
	return []byte(f.image), nil
}

const testUser = "user-1"

type testEnv struct {
	srv     *Server
	handler http.Handler
	db      *database.SQLiteDB
	model   *fakeModel
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "server.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	model := &fakeModel{}
	locales := locale.NewStore(locale.Lookup("en"))
	roadmaps := roadmap.NewSynchronizer(db, model, locales, time.Second, logger)
	chat := coach.NewChatService(db, model, coach.NewLocaleClassifier(locales), locales, roadmaps, coach.Options{Timeout: time.Second}, logger)
	t.Cleanup(chat.Close)
	engine, err := walks.NewEngine(model, locales, walks.Options{Timeout: time.Second}, logger)
	require.NoError(t, err)

	srv, err := New(Services{
		DB:       db,
		Chat:     chat,
		Roadmaps: roadmaps,
		Walks:    engine,
		Tracker:  tracker.New(db, model, locales, time.Second, logger),
		Voice:    voice.NewController(nil, logger),
		Locales:  locales,
	}, Options{AllowedOrigins: []string{"*"}}, logger)
	require.NoError(t, err)
	return &testEnv{srv: srv, handler: srv.Handler(), db: db, model: model}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(userHeader, testUser)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorText(t *testing.T, rec *httptest.ResponseRecorder) string {
	return decode[map[string]string](t, rec)["error"]
}

func (e *testEnv) saveProfile(t *testing.T) {
	t.Helper()
	p := models.NewProfile(testUser)
	p.Weight, p.Height, p.Age = 70, 175, 30
	require.NoError(t, e.db.SaveProfile(context.Background(), p))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestRequestsWithoutUserAreRejected(t *testing.T) {
	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me/settings?userId="+testUser, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProfileMerge(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/me/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	rec = env.do(t, http.MethodPut, "/api/me/profile", map[string]any{"name": "Ann", "weight": 62})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p := decode[models.UserProfile](t, rec)
	assert.Equal(t, "Ann", p.Name)
	assert.Equal(t, testUser, p.UserID)
	assert.Equal(t, models.DefaultCalorieGoal, p.DailyCalorieGoal)

	rec = env.do(t, http.MethodPut, "/api/me/profile", map[string]any{"gender": "robot"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request.", errorText(t, rec))

	rec = env.do(t, http.MethodPut, "/api/me/profile", map[string]any{"age": 41})
	require.Equal(t, http.StatusOK, rec.Code)
	p = decode[models.UserProfile](t, rec)
	assert.Equal(t, "Ann", p.Name)
	assert.Equal(t, 41, p.Age)
	assert.Equal(t, models.GenderOther, p.Gender)
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/me/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.DefaultWaterGoal, decode[models.Settings](t, rec).WaterGoal)

	rec = env.do(t, http.MethodPut, "/api/me/settings", map[string]any{"waterGoal": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/me/settings", map[string]any{"sleep": map[string]any{"bedTime": "25:00"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/me/settings", map[string]any{"waterGoal": 1800})
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[models.Settings](t, rec)
	assert.Equal(t, 1800, st.WaterGoal)
	assert.Equal(t, "23:00", st.Sleep.BedTime)
}

const roadmapJSON = `{
	"targets": {"dailyCalories": 2150.4, "dailyWater": 2100, "dailySteps": 9000, "sleepHours": 8},
	"steps": [
		{"title": "Drink more", "description": "2 liters a day", "status": "in_progress"},
		{"title": "Walk", "description": "9000 steps", "status": "pending"}
	]
}`

func TestRoadmap(t *testing.T) {
	env := newTestEnv(t)
	env.model.structured = roadmapJSON

	rec := env.do(t, http.MethodPost, "/api/me/roadmap/generate", map[string]string{"wishes": "more walking"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Please fill in your profile first.", errorText(t, rec))
	assert.Empty(t, env.model.prompts)

	env.saveProfile(t)
	rec = env.do(t, http.MethodPost, "/api/me/roadmap/generate", map[string]string{"wishes": "more walking"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rm := decode[models.Roadmap](t, rec)
	assert.Len(t, rm.Steps, 2)
	assert.Contains(t, env.model.prompts[0], "more walking")

	p := decode[models.UserProfile](t, env.do(t, http.MethodGet, "/api/me/profile", nil))
	assert.Equal(t, 2150, p.DailyCalorieGoal)
	assert.Equal(t, 9000, p.DailyStepGoal)
	st := decode[models.Settings](t, env.do(t, http.MethodGet, "/api/me/settings", nil))
	assert.Equal(t, 2100, st.WaterGoal)

	rm.Steps[1].Status = models.StatusCompleted
	rec = env.do(t, http.MethodPut, "/api/me/roadmap", map[string]any{"steps": rm.Steps})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusCompleted, decode[models.Roadmap](t, rec).Steps[1].Status)
}

func TestRoadmapGenerationFailure(t *testing.T) {
	env := newTestEnv(t)
	env.saveProfile(t)
	env.model.err = ml.ErrUnavailable

	rec := env.do(t, http.MethodGet, "/api/me/roadmap", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Could not generate a plan.", errorText(t, rec))
}

func TestFoodLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/me/food", map[string]any{
		"name":   "Oatmeal",
		"macros": map[string]float64{"calories": 350, "protein": 12},
		"rating": 8,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entry := decode[models.FoodEntry](t, rec)
	require.NotEmpty(t, entry.ID)

	stats := decode[models.DailyStats](t, env.do(t, http.MethodGet, "/api/me/stats/today", nil))
	assert.Equal(t, 350.0, stats.Calories)

	rec = env.do(t, http.MethodPut, "/api/me/food/"+entry.ID, map[string]any{
		"name":   "Oatmeal with honey",
		"macros": map[string]float64{"calories": 420},
		"rating": 7,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stats = decode[models.DailyStats](t, env.do(t, http.MethodGet, "/api/me/stats/today", nil))
	assert.Equal(t, 420.0, stats.Calories)

	items := decode[[]models.FoodEntry](t, env.do(t, http.MethodGet, "/api/me/food", nil))
	require.Len(t, items, 1)
	assert.Equal(t, "Oatmeal with honey", items[0].Name)

	rec = env.do(t, http.MethodDelete, "/api/me/food/"+entry.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/me/food/"+entry.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/me/food", nil)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	rec = env.do(t, http.MethodGet, "/api/me/food?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsUpdates(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/me/steps/today", map[string]int{"steps": -5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodPut, "/api/me/steps/today", map[string]int{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/me/steps/today", map[string]int{"steps": 4000})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPut, "/api/me/water/today", map[string]int{"water": 750})
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decode[models.DailyStats](t, rec)
	assert.Equal(t, 4000, stats.Steps)
	assert.Equal(t, 750, stats.Water)

	history := decode[[]models.DailyStats](t, env.do(t, http.MethodGet, "/api/me/stats/history", nil))
	require.Len(t, history, 1)
	assert.Equal(t, 4000, history[0].Steps)
}

func TestActivityAndSleep(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/me/activity", map[string]any{
		"type": "walk", "intensity": "medium", "durationMinutes": 60,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Positive(t, decode[models.ActivityEntry](t, rec).CaloriesBurned)

	rec = env.do(t, http.MethodPost, "/api/me/activity", map[string]any{
		"type": "skydiving", "intensity": "medium", "durationMinutes": 60,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Len(t, decode[[]models.ActivityEntry](t, env.do(t, http.MethodGet, "/api/me/activity", nil)), 1)

	rec = env.do(t, http.MethodPost, "/api/me/sleep", map[string]any{"durationHours": 30})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/me/sleep", map[string]any{"durationHours": 7.5, "quality": 12})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 10, decode[models.SleepEntry](t, rec).Quality)

	stats := decode[models.DailyStats](t, env.do(t, http.MethodGet, "/api/me/stats/today", nil))
	assert.Equal(t, 7.5, stats.SleepHours)
}

func TestAchievements(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPut, "/api/me/water/today", map[string]int{"water": models.DefaultWaterGoal})

	list := decode[[]achievements.Achievement](t, env.do(t, http.MethodGet, "/api/me/achievements", nil))
	byID := map[string]achievements.Achievement{}
	for _, a := range list {
		byID[a.ID] = a
	}
	assert.True(t, byID[achievements.WaterGoal].Unlocked)
	assert.False(t, byID[achievements.RoadmapReady].Unlocked)
	assert.False(t, byID[achievements.StepsGoal].Unlocked)
}

func TestAnalyzeFood(t *testing.T) {
	env := newTestEnv(t)
	env.model.image = `{"name": "Salad", "calories": 120, "protein": 4, "rating": 9,
		"ratingDescription": "Light", "recommendation": "Add protein"}`
	img := base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff})

	rec := env.do(t, http.MethodPost, "/api/ai/analyze-food", map[string]string{"image": "data:image/png;base64," + img})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	a := decode[models.FoodAnalysis](t, rec)
	assert.Equal(t, "Salad", a.Name)
	assert.Equal(t, "Light\n\nAdd protein", a.Recommendation)

	rec = env.do(t, http.MethodPost, "/api/ai/analyze-food", map[string]string{"image": "%%%"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.model.err = ml.ErrUnavailable
	rec = env.do(t, http.MethodPost, "/api/ai/analyze-food", map[string]string{"image": img})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Could not recognize the dish. Try another photo.", errorText(t, rec))
}

func TestDecodeImage(t *testing.T) {
	img, mime, err := decodeImage("data:image/webp;base64,AQI=", "")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, img)
	assert.Equal(t, "image/webp", mime)

	_, mime, err = decodeImage("AQI=", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	_, _, err = decodeImage("data:image/png", "")
	assert.ErrorIs(t, err, errBadRequest)
}

const routesReply = `Here you go:
[
	{"title": "Gorky Park", "description": "Along the river", "distanceKm": 4.2,
	 "startLocation": "55.75,37.61", "endLocation": "Gorky Park", "isRoundTrip": false}
]`

func TestSuggestWalks(t *testing.T) {
	env := newTestEnv(t)
	env.saveProfile(t)
	env.model.text = routesReply
	env.do(t, http.MethodPut, "/api/me/steps/today", map[string]int{"steps": 4000})

	rec := env.do(t, http.MethodPost, "/api/walks/suggest", map[string]any{
		"mode": "nearby", "lat": 55.75, "lng": 37.61,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		StepsNeeded int                   `json:"stepsNeeded"`
		Routes      []models.WalkingRoute `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.DefaultStepGoal-4000, body.StepsNeeded)
	require.Len(t, body.Routes, 1)
	assert.NotEmpty(t, body.Routes[0].Links.Google)
}

func TestSuggestWalksErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/walks/suggest", map[string]any{"mode": "custom_address"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please confirm the address first.", errorText(t, rec))

	rec = env.do(t, http.MethodPost, "/api/walks/suggest", map[string]any{"mode": "custom_address", "customAddress": "nowhere"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Could not find that address. Try to be more specific.", errorText(t, rec))

	rec = env.do(t, http.MethodPost, "/api/walks/suggest", map[string]any{"mode": "teleport"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/walks/suggest", map[string]any{"mode": "direct", "locationDenied": true})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	env.model.text = "no routes today"
	rec = env.do(t, http.MethodPost, "/api/walks/suggest", map[string]any{"mode": "direct", "lat": 1.0, "lng": 2.0})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Could not find routes. Please try later.", errorText(t, rec))
}

func TestValidateAddress(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/walks/validate-address", map[string]string{"input": "nowhere"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	env.model.address = "Tverskaya St, 1, Moscow"
	rec = env.do(t, http.MethodPost, "/api/walks/validate-address", map[string]string{"input": "tverskaya 1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Tverskaya St, 1, Moscow", decode[map[string]string](t, rec)["address"])
}

func TestValidateAddressModelDown(t *testing.T) {
	env := newTestEnv(t)
	env.model.err = ml.ErrUnavailable

	rec := env.do(t, http.MethodPost, "/api/walks/validate-address", map[string]string{"input": "tverskaya 1"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Sorry, we are having trouble reaching the server.", errorText(t, rec))
}

func TestChat(t *testing.T) {
	env := newTestEnv(t)
	env.model.chat = "Drink a glass of water."

	rec := env.do(t, http.MethodPost, "/api/ai/chat", map[string]string{"message": "hi"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[coach.SendResult](t, rec)
	assert.Equal(t, "Drink a glass of water.", res.Message.Text)

	rec = env.do(t, http.MethodPost, "/api/ai/chat", map[string]string{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	msgs := decode[[]models.ChatMessage](t, env.do(t, http.MethodGet, "/api/ai/chat/history", nil))
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, models.RoleModel, msgs[1].Role)
}

func TestErrorResponse(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name   string
		err    error
		status int
		text   string
	}{
		{"not found", database.ErrNotFound, http.StatusNotFound, "Entry not found."},
		{"partial roadmap", &roadmap.PropagationError{Step: "settings", Err: assert.AnError}, http.StatusInternalServerError, "Could not generate a plan."},
		{"ai without fallback", ml.ErrMalformedOutput, http.StatusBadGateway, "Sorry, we are having trouble reaching the server."},
		{"voice", voice.ErrUnsupported, http.StatusNotImplemented, "Voice mode is unavailable."},
		{"unknown", assert.AnError, http.StatusInternalServerError, "Something went wrong. Please try later."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, text := env.srv.errorResponse(tt.err, "")
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.text, text)
		})
	}
}

func dialWS(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{userHeader: []string{testUser}})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

type wsReply struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func TestWebSocketScanAndConfirm(t *testing.T) {
	env := newTestEnv(t)
	env.model.image = `{"name": "Borscht", "calories": 250, "rating": 7,
		"ratingDescription": "Hearty", "recommendation": "Skip the bread"}`
	ts := httptest.NewServer(env.handler)
	t.Cleanup(ts.Close)
	conn := dialWS(t, ts, "/ws")

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "scan",
		"data": map[string]string{"image": base64.StdEncoding.EncodeToString([]byte{1, 2, 3})},
	}))
	var reply wsReply
	require.NoError(t, conn.ReadJSON(&reply))
	require.Equal(t, "scan_result", reply.Type, reply.Message)
	var scan struct {
		ID       string              `json:"id"`
		Analysis models.FoodAnalysis `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(reply.Data, &scan))
	assert.Equal(t, "Borscht", scan.Analysis.Name)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "confirm_scan",
		"data": map[string]any{"id": scan.ID, "macros": map[string]float64{"calories": 300}},
	}))
	require.NoError(t, conn.ReadJSON(&reply))
	require.Equal(t, "scan_saved", reply.Type, reply.Message)

	stats := decode[models.DailyStats](t, env.do(t, http.MethodGet, "/api/me/stats/today", nil))
	assert.Equal(t, 300.0, stats.Calories)

	// a scan can be confirmed once
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "confirm_scan", "data": map[string]string{"id": scan.ID}}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.Equal(t, "Entry not found.", reply.Message)
}

func TestWebSocketChatAndUnknownType(t *testing.T) {
	env := newTestEnv(t)
	env.model.chat = "Sleep well."
	ts := httptest.NewServer(env.handler)
	t.Cleanup(ts.Close)
	conn := dialWS(t, ts, "/ws")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "dance"}))
	var reply wsReply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "chat", "data": map[string]string{"message": "tired"}}))
	require.NoError(t, conn.ReadJSON(&reply))
	require.Equal(t, "chat_reply", reply.Type, reply.Message)
	var res coach.SendResult
	require.NoError(t, json.Unmarshal(reply.Data, &res))
	assert.Equal(t, "Sleep well.", res.Message.Text)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "get_history"}))
	require.NoError(t, conn.ReadJSON(&reply))
	require.Equal(t, "history", reply.Type)
	var msgs []models.ChatMessage
	require.NoError(t, json.Unmarshal(reply.Data, &msgs))
	assert.Len(t, msgs, 2)
}

func TestVoiceUnsupported(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.handler)
	t.Cleanup(ts.Close)
	conn := dialWS(t, ts, "/ws/voice")

	var reply wsReply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.Equal(t, "Voice mode is unavailable.", reply.Message)
}
