// internal/historian/historian.go is an asynchronous historian service that pops
// match journal records from a Redis queue and persists them to PostgreSQL.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/dartkeeper/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Sink is where batches of journal records end up.
type Sink interface {
	InsertMatchEvents(ctx context.Context, records []models.MatchEventRecord) error
	MarkMatchIdle(ctx context.Context, matchID string) (bool, error)
}

// Options tunes batching and idle detection.
type Options struct {
	Queue       string
	BatchSize   int
	FlushDelay  time.Duration
	Inactivity  time.Duration // duration until a match is marked idle
	PollTimeout time.Duration // BLPop timeout, bounds shutdown latency
	SweepEvery  time.Duration
	MaxBacklog  int // records held while the sink is failing; reading pauses at this size
	Logger      *logrus.Entry
	Now         func() time.Time
}

// Service reads the journal queue, accumulates records in a batch, and flushes
// them to the sink. Matches that go quiet for longer than the inactivity window
// are marked idle.
type Service struct {
	rdb  *redis.Client
	sink Sink
	opts Options
	log  *logrus.Entry

	lastActivity sync.Map // match id -> time.Time

	batchMu sync.Mutex
	batch   []models.MatchEventRecord
}

// New builds a service. rdb may be nil when records are fed through Handle.
func New(rdb *redis.Client, sink Sink, opts Options) *Service {
	if opts.Queue == "" {
		opts.Queue = "dartkeeper_events"
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 500 * time.Millisecond
	}
	if opts.Inactivity <= 0 {
		opts.Inactivity = 10 * time.Minute
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 3 * time.Second
	}
	if opts.MaxBacklog <= 0 {
		opts.MaxBacklog = 50 * opts.BatchSize
	}
	if opts.SweepEvery <= 0 {
		opts.SweepEvery = time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logrus.WithField("service", "historian")
	}
	return &Service{
		rdb:   rdb,
		sink:  sink,
		opts:  opts,
		log:   log,
		batch: make([]models.MatchEventRecord, 0, opts.BatchSize),
	}
}

// Run starts the two main loops and blocks until ctx is cancelled:
//  1. A loop that reads from the Redis queue and batches records.
//  2. A periodic sweep that marks inactive matches idle.
//
// Pending records are flushed before Run returns.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); s.readLoop(ctx) }()
	go func() { defer wg.Done(); s.flushLoop(ctx) }()
	go func() { defer wg.Done(); s.inactivityLoop(ctx) }()

	s.log.WithField("queue", s.opts.Queue).Info("historian started")
	<-ctx.Done()
	wg.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Flush(flushCtx)
	s.log.Info("historian stopped")
}

// readLoop continuously uses BLPop to retrieve records from the queue.
func (s *Service) readLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if s.Pending() >= s.opts.MaxBacklog {
			// leave records in the queue until the sink catches up
			select {
			case <-ctx.Done():
			case <-time.After(s.opts.FlushDelay):
			}
			continue
		}
		res, err := s.rdb.BLPop(ctx, s.opts.PollTimeout, s.opts.Queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			s.log.WithError(err).Error("BLPop failed")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		// res[0] is the queue name and res[1] the payload.
		if len(res) < 2 {
			continue
		}
		s.HandleRaw(ctx, []byte(res[1]))
	}
}

func (s *Service) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}

func (s *Service) inactivityLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.SweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepIdle(ctx)
		}
	}
}

// HandleRaw decodes one queued payload and batches it. Malformed payloads are
// logged and dropped.
func (s *Service) HandleRaw(ctx context.Context, payload []byte) {
	var rec models.MatchEventRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		s.log.WithError(err).Warn("invalid journal record")
		return
	}
	s.Handle(ctx, rec)
}

// Handle adds a record to the batch, flushing when the batch is full.
func (s *Service) Handle(ctx context.Context, rec models.MatchEventRecord) {
	if rec.MatchID != "" {
		if rec.EventType == "match_finished" || rec.EventType == "match_abandoned" {
			s.lastActivity.Delete(rec.MatchID)
		} else {
			s.lastActivity.Store(rec.MatchID, s.opts.Now())
		}
	}

	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.opts.BatchSize
	s.batchMu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

// Flush writes the pending batch in one call. On failure the records are put
// back at the head of the batch for the next attempt; past MaxBacklog the
// oldest are dropped.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	pending := make([]models.MatchEventRecord, len(s.batch))
	copy(pending, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.sink.InsertMatchEvents(ctx, pending); err != nil {
		s.log.WithError(err).WithField("records", len(pending)).Error("flush failed")
		s.batchMu.Lock()
		s.batch = append(pending, s.batch...)
		if over := len(s.batch) - s.opts.MaxBacklog; over > 0 {
			s.log.WithField("dropped", over).Error("journal backlog full, dropping oldest records")
			s.batch = append(s.batch[:0:0], s.batch[over:]...)
		}
		s.batchMu.Unlock()
		return
	}
	s.log.WithField("records", len(pending)).Debug("flushed journal batch")
}

// Pending is the number of records waiting for the next flush.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}

// SweepIdle marks every match without activity inside the inactivity window
// as idle and stops tracking it.
func (s *Service) SweepIdle(ctx context.Context) {
	now := s.opts.Now()
	s.lastActivity.Range(func(key, val interface{}) bool {
		matchID, ok1 := key.(string)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 || now.Sub(last) <= s.opts.Inactivity {
			return true
		}
		marked, err := s.sink.MarkMatchIdle(ctx, matchID)
		if err != nil {
			s.log.WithError(err).WithField("matchID", matchID).Error("failed to mark match idle")
			return true
		}
		s.lastActivity.Delete(matchID)
		if marked {
			s.log.WithField("matchID", matchID).Info("marked match idle due to inactivity")
		}
		return true
	})
}
