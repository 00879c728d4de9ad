package feed

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herocast/herocast/domain"
	"github.com/herocast/herocast/internal/eventbus"
	"github.com/herocast/herocast/logging"
)

// scriptedSource replays a fixed sequence of records and errors, then EOF.
type scriptedSource struct {
	mu    sync.Mutex
	steps []any // []byte for a record, error for a failure
}

func (s *scriptedSource) ReadMessage(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.steps) == 0 {
		return nil, io.EOF
	}

	step := s.steps[0]
	s.steps = s.steps[1:]

	switch v := step.(type) {
	case []byte:
		return v, nil
	case error:
		return nil, v
	default:
		return nil, io.EOF
	}
}

func (s *scriptedSource) Close() error { return nil }

// broadcastRecorder captures hub broadcasts issued by the adapter.
type broadcastRecorder struct {
	mu    sync.Mutex
	texts []string
}

func (r *broadcastRecorder) Connect(_ domain.Client) error { return nil }

func (r *broadcastRecorder) SetNickname(_ domain.Client, _ string) error { return nil }

func (r *broadcastRecorder) Disconnect(_ string) {}

func (r *broadcastRecorder) Metrics() domain.MetricsSnapshot { return domain.MetricsSnapshot{} }

func (r *broadcastRecorder) Stop() error { return nil }

func (r *broadcastRecorder) Broadcast(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
}

func (r *broadcastRecorder) broadcasts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

func newTestAdapter(source Source, recorder *broadcastRecorder) *Adapter {
	a := NewAdapter(source, recorder, nil, logging.New(logging.Config{Level: "error"}), "SuperHero")
	a.backoff = backoff{baseDelay: time.Millisecond, maxDelay: 5 * time.Millisecond, factor: 2.0}
	return a
}

func TestAdapterTranslatesOperations(t *testing.T) {
	source := &scriptedSource{steps: []any{
		[]byte(`{"payload": {"op": "c", "after": {"id": 1, "name": "Falcon"}}}`),
		[]byte(`{"payload": {"op": "u", "after": {"id": 1, "name": "Falcon II"}}}`),
		[]byte(`{"payload": {"op": "d", "before": {"id": 1, "name": "Falcon II"}}}`),
		[]byte(`{"payload": {"op": "r", "after": {"id": 2, "name": "Hawk"}}}`),
	}}
	recorder := &broadcastRecorder{}

	err := newTestAdapter(source, recorder).Run(context.Background())
	require.NoError(t, err, "EOF is a clean shutdown")

	assert.Equal(t, []string{
		`SuperHero [Created]: {"id": 1, "name": "Falcon"}`,
		`SuperHero [Updated]: {"id": 1, "name": "Falcon II"}`,
		`SuperHero [Deleted]: {"id": 1, "name": "Falcon II"}`,
		`SuperHero [Snapshot]: {"id": 2, "name": "Hawk"}`,
	}, recorder.broadcasts())
}

func TestAdapterSkipsUnrecognizedAndMissingOps(t *testing.T) {
	source := &scriptedSource{steps: []any{
		[]byte(`{"payload": {"op": "t", "after": {"id": 1}}}`),
		[]byte(`{"payload": {"after": {"id": 2}}}`),
		[]byte(`{"payload": {"op": "c", "after": {"id": 3}}}`),
	}}
	recorder := &broadcastRecorder{}

	err := newTestAdapter(source, recorder).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{`SuperHero [Created]: {"id": 3}`}, recorder.broadcasts())
}

func TestAdapterSurvivesDecodeErrors(t *testing.T) {
	source := &scriptedSource{steps: []any{
		[]byte(`not json at all`),
		[]byte(`{"payload": {"op": "c", "after": {"id": 1}}}`),
	}}
	recorder := &broadcastRecorder{}

	err := newTestAdapter(source, recorder).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{`SuperHero [Created]: {"id": 1}`}, recorder.broadcasts())
}

func TestAdapterRetriesTransientReadFailures(t *testing.T) {
	source := &scriptedSource{steps: []any{
		errors.New("broker unreachable"),
		errors.New("broker unreachable"),
		[]byte(`{"payload": {"op": "c", "after": {"id": 1}}}`),
	}}
	recorder := &broadcastRecorder{}

	err := newTestAdapter(source, recorder).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{`SuperHero [Created]: {"id": 1}`}, recorder.broadcasts())
}

func TestAdapterStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &scriptedSource{steps: []any{
		[]byte(`{"payload": {"op": "c", "after": {"id": 1}}}`),
	}}
	recorder := &broadcastRecorder{}

	err := newTestAdapter(source, recorder).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, recorder.broadcasts())
}

func TestAdapterRendersNullForMissingPayload(t *testing.T) {
	source := &scriptedSource{steps: []any{
		[]byte(`{"payload": {"op": "d"}}`),
	}}
	recorder := &broadcastRecorder{}

	err := newTestAdapter(source, recorder).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{`SuperHero [Deleted]: null`}, recorder.broadcasts())
}

func TestAdapterPublishesFeedRecordEvents(t *testing.T) {
	source := &scriptedSource{steps: []any{
		[]byte(`{"payload": {"op": "c", "after": {"id": 1}}}`),
	}}
	recorder := &broadcastRecorder{}

	bus := eventbus.NewInMemoryBus(8)
	got := make(chan *eventbus.Event, 1)
	bus.Subscribe(eventbus.EventFeedRecord, func(event *eventbus.Event) {
		got <- event
	})
	bus.Start(context.Background())
	defer bus.Stop()

	a := NewAdapter(source, recorder, bus, logging.New(logging.Config{Level: "error"}), "SuperHero")
	a.backoff = backoff{baseDelay: time.Millisecond, maxDelay: 5 * time.Millisecond, factor: 2.0}
	require.NoError(t, a.Run(context.Background()))

	select {
	case event := <-got:
		assert.Equal(t, `{"id": 1}`, event.Data)
		assert.Equal(t, "create", event.Metadata["kind"])
	case <-time.After(2 * time.Second):
		t.Fatal("feed record event was not published")
	}
}

func TestBackoffCapsAtMaxDelay(t *testing.T) {
	b := defaultBackoff()

	assert.Equal(t, 500*time.Millisecond, b.nextDelay(0))
	assert.Equal(t, time.Second, b.nextDelay(1))
	assert.Equal(t, 30*time.Second, b.nextDelay(100))
	assert.Equal(t, 500*time.Millisecond, b.nextDelay(-3))
}

var _ domain.Hub = (*broadcastRecorder)(nil)
var _ Source = (*scriptedSource)(nil)
