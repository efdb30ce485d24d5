package voice

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/franckalain/wellness/internal/ml"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// pipeStream delivers events pushed on a channel until closed.
type pipeStream struct {
	events chan *ml.LiveEvent
	mu     sync.Mutex
	sent   [][]byte
	closes int
	once   sync.Once
	closed chan struct{}
}

func newPipeStream() *pipeStream {
	return &pipeStream{events: make(chan *ml.LiveEvent, 4), closed: make(chan struct{})}
}

func (p *pipeStream) SendAudio(pcm []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, pcm)
	return nil
}

func (p *pipeStream) Receive() (*ml.LiveEvent, error) {
	select {
	case ev := <-p.events:
		return ev, nil
	case <-p.closed:
		return nil, io.EOF
	}
}

func (p *pipeStream) Close() error {
	p.mu.Lock()
	p.closes++
	p.mu.Unlock()
	p.once.Do(func() { close(p.closed) })
	return nil
}

type fakeLive struct {
	mu      sync.Mutex
	streams []*pipeStream
	err     error
	prompts []string
}

func (f *fakeLive) ConnectLive(ctx context.Context, systemInstruction string) (ml.LiveStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s := newPipeStream()
	f.streams = append(f.streams, s)
	f.prompts = append(f.prompts, systemInstruction)
	return s, nil
}

func TestOpenReplacesPreviousSession(t *testing.T) {
	live := &fakeLive{}
	c := NewController(live, zap.NewNop())

	first, err := c.Open(context.Background(), "u1", "be kind")
	require.NoError(t, err)
	second, err := c.Open(context.Background(), "u1", "be kind")
	require.NoError(t, err)

	select {
	case <-first.Done():
	default:
		t.Fatal("first session still open")
	}
	assert.Equal(t, 1, live.streams[0].closes)
	assert.Same(t, second, c.Active("u1"))
	assert.ErrorIs(t, first.Send([]byte{1}), ErrClosed)

	require.NoError(t, second.Close())
	assert.Nil(t, c.Active("u1"))
}

func TestCloseIsIdempotent(t *testing.T) {
	live := &fakeLive{}
	c := NewController(live, zap.NewNop())
	s, err := c.Open(context.Background(), "u1", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Close()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, live.streams[0].closes)
}

func TestReceiveUnblocksOnClose(t *testing.T) {
	live := &fakeLive{}
	c := NewController(live, zap.NewNop())
	s, err := c.Open(context.Background(), "u1", "")
	require.NoError(t, err)

	live.streams[0].events <- &ml.LiveEvent{Audio: []byte{1, 2}}
	ev, err := s.Receive()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, ev.Audio)

	errc := make(chan error, 1)
	go func() {
		_, err := s.Receive()
		errc <- err
	}()
	s.Close()
	assert.ErrorIs(t, <-errc, ErrClosed)
}

func TestSendForwardsAudio(t *testing.T) {
	live := &fakeLive{}
	c := NewController(live, zap.NewNop())
	s, err := c.Open(context.Background(), "u1", "voice persona")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Send([]byte{7}))
	assert.Equal(t, [][]byte{{7}}, live.streams[0].sent)
	assert.Equal(t, []string{"voice persona"}, live.prompts)
}

func TestCloseAll(t *testing.T) {
	live := &fakeLive{}
	c := NewController(live, zap.NewNop())
	for _, u := range []string{"u1", "u2"} {
		_, err := c.Open(context.Background(), u, "")
		require.NoError(t, err)
	}
	c.CloseAll()
	assert.Nil(t, c.Active("u1"))
	assert.Nil(t, c.Active("u2"))
}

func TestOpenErrors(t *testing.T) {
	_, err := NewController(nil, zap.NewNop()).Open(context.Background(), "u1", "")
	assert.ErrorIs(t, err, ErrUnsupported)

	c := NewController(&fakeLive{err: ml.ErrUnavailable}, zap.NewNop())
	_, err = c.Open(context.Background(), "u1", "")
	assert.True(t, errors.Is(err, ml.ErrUnavailable))
	assert.Nil(t, c.Active("u1"))
}
