// internal/historian/historian_test.go
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/dartkeeper/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu      sync.Mutex
	batches [][]models.MatchEventRecord
	idle    []string
	failing bool
}

func (f *fakeSink) InsertMatchEvents(_ context.Context, records []models.MatchEventRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("db down")
	}
	f.batches = append(f.batches, records)
	return nil
}

func (f *fakeSink) MarkMatchIdle(_ context.Context, matchID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idle = append(f.idle, matchID)
	return true, nil
}

func (f *fakeSink) records() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func setupService(t *testing.T, batchSize int) (*Service, *fakeSink, *fakeClock) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	sink := &fakeSink{}
	clock := &fakeClock{now: time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)}
	svc := New(nil, sink, Options{
		BatchSize:  batchSize,
		Inactivity: 10 * time.Minute,
		Logger:     logrus.NewEntry(logger),
		Now:        clock.Now,
	})
	return svc, sink, clock
}

func record(matchID string, idx int, eventType string) models.MatchEventRecord {
	return models.MatchEventRecord{
		MatchID:    matchID,
		EventIndex: idx,
		EventType:  eventType,
		Payload:    map[string]interface{}{},
		Timestamp:  time.Now().UnixMilli(),
	}
}

func TestService_FlushesWhenBatchIsFull(t *testing.T) {
	svc, sink, _ := setupService(t, 3)
	ctx := context.Background()

	svc.Handle(ctx, record("m1", 1, "match_created"))
	svc.Handle(ctx, record("m1", 2, "player_enrolled"))
	assert.Equal(t, 0, sink.records())
	assert.Equal(t, 2, svc.Pending())

	svc.Handle(ctx, record("m1", 3, "match_started"))
	assert.Equal(t, 3, sink.records())
	assert.Equal(t, 0, svc.Pending())
	require.Len(t, sink.batches, 1)
	assert.Equal(t, 1, sink.batches[0][0].EventIndex)
}

func TestService_FailedFlushKeepsRecords(t *testing.T) {
	svc, sink, _ := setupService(t, 10)
	ctx := context.Background()
	sink.failing = true

	svc.Handle(ctx, record("m1", 1, "match_created"))
	svc.Flush(ctx)
	assert.Equal(t, 1, svc.Pending())

	svc.Handle(ctx, record("m1", 2, "match_started"))
	sink.failing = false
	svc.Flush(ctx)

	require.Len(t, sink.batches, 1)
	assert.Equal(t, []int{1, 2}, []int{sink.batches[0][0].EventIndex, sink.batches[0][1].EventIndex})
}

func TestService_BacklogIsCapped(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sink := &fakeSink{failing: true}
	svc := New(nil, sink, Options{
		BatchSize:  2,
		MaxBacklog: 3,
		Logger:     logrus.NewEntry(logger),
	})
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		svc.Handle(ctx, record("m1", i, "turn_applied"))
	}
	assert.Equal(t, 3, svc.Pending())

	var dropped bool
	for _, e := range hook.AllEntries() {
		if e.Message == "journal backlog full, dropping oldest records" {
			dropped = true
		}
	}
	assert.True(t, dropped)

	sink.failing = false
	svc.Flush(ctx)
	require.Len(t, sink.batches, 1)
	indexes := make([]int, 0, 3)
	for _, rec := range sink.batches[0] {
		indexes = append(indexes, rec.EventIndex)
	}
	assert.Equal(t, []int{4, 5, 6}, indexes, "the newest records are kept")
}

func TestService_HandleRawDropsGarbage(t *testing.T) {
	svc, _, _ := setupService(t, 10)
	ctx := context.Background()

	svc.HandleRaw(ctx, []byte("not json"))
	assert.Equal(t, 0, svc.Pending())

	data, err := json.Marshal(record("m1", 1, "dart_recorded"))
	require.NoError(t, err)
	svc.HandleRaw(ctx, data)
	assert.Equal(t, 1, svc.Pending())
}

func TestService_SweepIdle(t *testing.T) {
	svc, sink, clock := setupService(t, 10)
	ctx := context.Background()

	svc.Handle(ctx, record("quiet", 1, "match_started"))
	svc.Handle(ctx, record("done", 1, "match_started"))
	svc.Handle(ctx, record("done", 2, "match_finished"))
	svc.Handle(ctx, record("", 0, "player_registered"))

	clock.now = clock.now.Add(5 * time.Minute)
	svc.Handle(ctx, record("busy", 1, "match_started"))

	clock.now = clock.now.Add(6 * time.Minute)
	svc.SweepIdle(ctx)
	assert.Equal(t, []string{"quiet"}, sink.idle)

	// a match is only marked once
	clock.now = clock.now.Add(time.Hour)
	svc.SweepIdle(ctx)
	assert.ElementsMatch(t, []string{"quiet", "busy"}, sink.idle)
}

func TestService_ReadsFromRedis(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}

	queue := "dartkeeper_events_test_" + time.Now().Format("150405.000000")
	defer rdb.Del(context.Background(), queue)

	data, err := json.Marshal(record("m1", 1, "match_created"))
	require.NoError(t, err)
	require.NoError(t, rdb.RPush(ctx, queue, data).Err())

	logger, _ := test.NewNullLogger()
	sink := &fakeSink{}
	svc := New(rdb, sink, Options{
		Queue:       queue,
		BatchSize:   1,
		PollTimeout: 200 * time.Millisecond,
		Logger:      logrus.NewEntry(logger),
	})

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() { svc.Run(runCtx); close(done) }()

	require.Eventually(t, func() bool { return sink.records() == 1 }, 2*time.Second, 20*time.Millisecond)
	stop()
	<-done
}
