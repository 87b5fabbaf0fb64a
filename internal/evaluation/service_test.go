package evaluation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rankeval/rank-eval/internal/bus"
	"github.com/rankeval/rank-eval/internal/history"
)

// recordingStore captures saved runs for assertions.
type recordingStore struct {
	mu   sync.Mutex
	runs []history.Run
	err  error
}

func (s *recordingStore) SaveRun(_ context.Context, run history.Run) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

func (s *recordingStore) LoadRuns(context.Context, time.Time) ([]history.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]history.Run, len(s.runs))
	copy(out, s.runs)
	return out, nil
}

func (s *recordingStore) Close() error { return nil }

// topicCounter counts delivered events per topic.
type topicCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newTopicCounter(t *testing.T, b bus.Bus, topics ...string) *topicCounter {
	t.Helper()
	c := &topicCounter{counts: make(map[string]int)}
	for _, topic := range topics {
		topic := topic
		err := b.Subscribe(context.Background(), topic, func(context.Context, bus.Event) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.counts[topic]++
			return nil
		})
		if err != nil {
			t.Fatalf("Subscribe(%s): %v", topic, err)
		}
	}
	return c
}

func (c *topicCounter) count(topic string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[topic]
}

func TestServiceRunPublishesLifecycleEvents(t *testing.T) {
	eventBus := bus.NewMemoryBus()
	counter := newTopicCounter(t, eventBus,
		bus.TopicRunStarted, bus.TopicRunCompleted, bus.TopicRunFailed, bus.TopicHistorySaved)

	store := &recordingStore{}
	svc := NewService(newTestEvaluator(t, Config{Cutoffs: []int{2}}), eventBus, store, nil)

	d := testDataset([]float64{3, 1, 0}, []float64{9, 5, 1})
	report, err := svc.Run(context.Background(), "unit", d)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.RunID == "" {
		t.Error("expected non-empty run ID")
	}
	if report.Dataset != "unit" {
		t.Errorf("expected dataset 'unit', got %q", report.Dataset)
	}
	if report.Summary.QueryCount != 1 {
		t.Errorf("expected 1 query, got %d", report.Summary.QueryCount)
	}

	// Drain the in-flight handler goroutines before asserting counts.
	if err := eventBus.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := counter.count(bus.TopicRunStarted); got != 1 {
		t.Errorf("expected 1 run.started event, got %d", got)
	}
	if got := counter.count(bus.TopicRunCompleted); got != 1 {
		t.Errorf("expected 1 run.completed event, got %d", got)
	}
	if got := counter.count(bus.TopicRunFailed); got != 0 {
		t.Errorf("expected no run.failed events, got %d", got)
	}
	if got := counter.count(bus.TopicHistorySaved); got != 1 {
		t.Errorf("expected 1 history.saved event, got %d", got)
	}

	if len(store.runs) != 1 {
		t.Fatalf("expected 1 saved run, got %d", len(store.runs))
	}
	saved := store.runs[0]
	if saved.ID != report.RunID {
		t.Errorf("saved run ID %q does not match report %q", saved.ID, report.RunID)
	}
	if saved.Dataset != "unit" || saved.QueryCount != 1 {
		t.Errorf("unexpected saved run: %+v", saved)
	}
}

func TestServiceRunPublishesFailure(t *testing.T) {
	eventBus := bus.NewMemoryBus()
	counter := newTopicCounter(t, eventBus, bus.TopicRunCompleted, bus.TopicRunFailed)

	store := &recordingStore{}
	svc := NewService(newTestEvaluator(t, Config{}), eventBus, store, nil)

	// Fractional label fails strict validation.
	d := testDataset([]float64{1.5}, []float64{1})
	if _, err := svc.Run(context.Background(), "bad", d); err == nil {
		t.Fatal("expected run to fail")
	}

	if err := eventBus.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := counter.count(bus.TopicRunFailed); got != 1 {
		t.Errorf("expected 1 run.failed event, got %d", got)
	}
	if got := counter.count(bus.TopicRunCompleted); got != 0 {
		t.Errorf("expected no run.completed events, got %d", got)
	}
	if len(store.runs) != 0 {
		t.Errorf("failed run must not reach history, got %d saved runs", len(store.runs))
	}
}

func TestServiceRunHistoryFailureIsNonFatal(t *testing.T) {
	store := &recordingStore{err: context.DeadlineExceeded}
	svc := NewService(newTestEvaluator(t, Config{}), nil, store, nil)

	d := testDataset([]float64{2, 0}, []float64{2, 1})
	report, err := svc.Run(context.Background(), "unit", d)
	if err != nil {
		t.Fatalf("Run should survive history failure: %v", err)
	}
	if report.Summary.QueryCount != 1 {
		t.Errorf("expected 1 query in report, got %d", report.Summary.QueryCount)
	}
}

func TestServiceRunWithoutBusOrStore(t *testing.T) {
	svc := NewService(newTestEvaluator(t, Config{Cutoffs: []int{1}}), nil, nil, nil)

	d := testDataset([]float64{3, 0}, []float64{2, 1})
	report, err := svc.Run(context.Background(), "unit", d)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Summary.MeanNDCG[1] != 1 {
		t.Errorf("expected NDCG@1 of 1, got %v", report.Summary.MeanNDCG[1])
	}
}
