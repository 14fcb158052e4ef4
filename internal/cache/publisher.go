// internal/cache/publisher.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jason-s-yu/dartkeeper/internal/game"
	"github.com/jason-s-yu/dartkeeper/internal/models"
	"github.com/redis/go-redis/v9"
)

// Publisher pushes match journal records onto a Redis list for the historian.
type Publisher struct {
	rdb   *redis.Client
	queue string

	mu      sync.Mutex
	indexes map[string]int // used when no client is attached
}

// NewPublisher returns a publisher writing to queue, or DefaultQueueName when
// queue is empty.
func NewPublisher(rdb *redis.Client, queue string) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Publisher{rdb: rdb, queue: queue, indexes: make(map[string]int)}
}

// indexKey holds the last event index handed out for a match.
func (p *Publisher) indexKey(matchID string) string {
	return p.queue + ":index:" + matchID
}

// nextIndex returns the next event index within matchID. With a client the
// counter lives in Redis so indexes keep increasing across restarts.
func (p *Publisher) nextIndex(ctx context.Context, matchID string) (int, error) {
	if p.rdb == nil {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.indexes[matchID]++
		return p.indexes[matchID], nil
	}
	n, err := p.rdb.Incr(ctx, p.indexKey(matchID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to INCR event index for match %s: %w", matchID, err)
	}
	return int(n), nil
}

// Record converts an engine event into a journal record, assigning it the next
// index within its match. Registry events carry no match and get index 0.
func (p *Publisher) Record(ctx context.Context, ev game.Event) (models.MatchEventRecord, error) {
	idx := 0
	if ev.MatchID != "" {
		var err error
		if idx, err = p.nextIndex(ctx, ev.MatchID); err != nil {
			return models.MatchEventRecord{}, err
		}
	}

	payload := ev.Payload
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return models.MatchEventRecord{
		MatchID:    ev.MatchID,
		EventIndex: idx,
		PlayerID:   ev.PlayerID,
		EventType:  string(ev.Type),
		Payload:    payload,
		Timestamp:  ev.At.UnixMilli(),
	}, nil
}

// Publish serializes the event to JSON, then pushes it to the Redis queue.
func (p *Publisher) Publish(ctx context.Context, ev game.Event) error {
	rec, err := p.Record(ctx, ev)
	if err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal MatchEventRecord: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}
