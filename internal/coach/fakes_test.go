package coach

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/franckalain/wellness/internal/database"
	"github.com/franckalain/wellness/internal/ml"
	"github.com/franckalain/wellness/internal/models"
)

type fakeStore struct {
	mu       sync.Mutex
	profile  *models.UserProfile
	settings *models.Settings
	stats    map[string]*models.DailyStats
	food     []*models.FoodEntry
	acts     []*models.ActivityEntry
	sleep    []*models.SleepEntry
	messages []*models.ChatMessage
	seq      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{stats: map[string]*models.DailyStats{}}
}

func (f *fakeStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profile == nil {
		return nil, database.ErrNotFound
	}
	p := *f.profile
	return &p, nil
}

func (f *fakeStore) GetSettings(ctx context.Context, userID string) (*models.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settings == nil {
		return nil, database.ErrNotFound
	}
	s := *f.settings
	return &s, nil
}

func (f *fakeStore) SaveSettings(ctx context.Context, s *models.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.settings = &cp
	return nil
}

func (f *fakeStore) GetDailyStats(ctx context.Context, userID, date string) (*models.DailyStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.stats[date]
	if !ok {
		return nil, database.ErrNotFound
	}
	return st, nil
}

func inRange(ts int64, r database.TimeRange) bool {
	return (r.From == 0 || ts >= r.From) && (r.To == 0 || ts < r.To)
}

func (f *fakeStore) ListFood(ctx context.Context, userID string, r database.TimeRange) ([]*models.FoodEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.FoodEntry
	for _, e := range f.food {
		if inRange(e.Timestamp, r) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if r.Limit > 0 && len(out) > r.Limit {
		out = out[:r.Limit]
	}
	return out, nil
}

func (f *fakeStore) ListActivities(ctx context.Context, userID string, r database.TimeRange) ([]*models.ActivityEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ActivityEntry
	for _, e := range f.acts {
		if inRange(e.Timestamp, r) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) ListSleep(ctx context.Context, userID string, r database.TimeRange) ([]*models.SleepEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]*models.SleepEntry(nil), f.sleep...)
	if r.Limit > 0 && len(out) > r.Limit {
		out = out[len(out)-r.Limit:]
	}
	return out, nil
}

func (f *fakeStore) AppendMessage(ctx context.Context, m *models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	if m.ID == "" {
		m.ID = fmt.Sprintf("m%d", f.seq)
	}
	f.messages = append(f.messages, m)
	return nil
}

func (f *fakeStore) ListMessages(ctx context.Context, userID, conversationID string, limit int) ([]*models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ChatMessage
	for _, m := range f.messages {
		if m.UserID == userID && m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeStore) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.messages))
	for _, m := range f.messages {
		out = append(out, m.Text)
	}
	return out
}

// fakeModel records chat requests and answers with chatFn.
type fakeModel struct {
	mu     sync.Mutex
	calls  []ml.ChatRequest
	chatFn func(ml.ChatRequest) (*ml.TextResponse, error)
}

func (m *fakeModel) Load(ctx context.Context) error { return nil }
func (m *fakeModel) Close() error                   { return nil }

func (m *fakeModel) GenerateStructuredJSON(ctx context.Context, prompt string, schema *ml.Schema) ([]byte, error) {
	return nil, ml.ErrUnavailable
}

func (m *fakeModel) GenerateText(ctx context.Context, req ml.TextRequest) (*ml.TextResponse, error) {
	return nil, ml.ErrUnavailable
}

func (m *fakeModel) Chat(ctx context.Context, req ml.ChatRequest) (*ml.TextResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	return m.chatFn(req)
}

func (m *fakeModel) NormalizeAddress(ctx context.Context, input string) (string, error) {
	return "", ml.ErrNotFound
}

func (m *fakeModel) AnalyzeImage(ctx context.Context, image []byte, mimeType, prompt string, schema *ml.Schema) ([]byte, error) {
	return nil, ml.ErrUnavailable
}

func (m *fakeModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type fakePlans struct {
	mu     sync.Mutex
	wishes []string
	err    error
	block  chan struct{}
}

func (p *fakePlans) Generate(ctx context.Context, userID, wishes string) (*models.Roadmap, error) {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wishes = append(p.wishes, wishes)
	if p.err != nil {
		return nil, p.err
	}
	return &models.Roadmap{UserID: userID}, nil
}
