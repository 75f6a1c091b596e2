package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rentloop/rentloop-backend/internal/outbox"
	"github.com/rentloop/rentloop-backend/pkg/config"
	"github.com/rentloop/rentloop-backend/pkg/db/models"
	"github.com/rentloop/rentloop-backend/pkg/enums"
	"github.com/rentloop/rentloop-backend/pkg/logger"
	"github.com/rentloop/rentloop-backend/pkg/metrics"
)

const (
	defaultPollInterval      = 5 * time.Second
	defaultBatchSize         = 50
	defaultProcessingTimeout = 60 * time.Second
	defaultMaxRetries        = 5
)

// outboxStore is the store surface the dispatcher drives. All
// cross-instance coordination happens inside ClaimBatch.
type outboxStore interface {
	ClaimBatch(ctx context.Context, limit int) ([]models.OutboxItem, error)
	RecoverStuck(ctx context.Context, olderThan time.Duration) (int64, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, failure error, retryCount int, nextRetryAt time.Time) error
	MarkDeadLetter(ctx context.Context, id uuid.UUID, failure error, retryCount int) error
	CountByStatus(ctx context.Context) (map[enums.OutboxStatus]int64, error)
	CountDeliveredSince(ctx context.Context, since time.Time) (int64, error)
}

type ServiceParams struct {
	Config  *config.Config
	Logger  *logger.Logger
	Store   outboxStore
	Router  *Router
	Metrics *metrics.DispatcherMetrics
	Now     func() time.Time
}

// Service is one worker instance: a cooperative poll loop that claims
// batches, routes items sequentially and applies the retry policy. It
// owns its counters and its timer so instances can be constructed and
// torn down independently (multiple processes coordinate only through
// the store's atomic claim).
type Service struct {
	logg    *logger.Logger
	store   outboxStore
	router  *Router
	metrics *metrics.DispatcherMetrics
	stats   *Stats
	now     func() time.Time

	pollInterval      time.Duration
	batchSize         int
	processingTimeout time.Duration
	maxRetries        int
	backoff           outbox.BackoffPolicy

	mtx     sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Store == nil {
		return nil, errors.New("outbox store is required")
	}
	if params.Router == nil {
		return nil, errors.New("router is required")
	}

	cfg := params.Config.Outbox
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	processingTimeout := cfg.ProcessingTimeout
	if processingTimeout <= 0 {
		processingTimeout = defaultProcessingTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		logg:              params.Logger,
		store:             params.Store,
		router:            params.Router,
		metrics:           params.Metrics,
		stats:             &Stats{},
		now:               now,
		pollInterval:      pollInterval,
		batchSize:         batchSize,
		processingTimeout: processingTimeout,
		maxRetries:        maxRetries,
		backoff:           outbox.NewBackoffPolicy(cfg.BackoffBase, cfg.BackoffCap),
	}, nil
}

// Start begins polling: one immediate cycle to drain backlog, then a
// fixed interval. Calling Start while running is a no-op with a warning.
// Start does not block.
func (s *Service) Start(ctx context.Context) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.running {
		s.logg.Warn(ctx, "dispatcher already started")
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"poll_interval": s.pollInterval.String(),
		"batch_size":    s.batchSize,
		"event_kinds":   len(s.router.Kinds()),
	})
	s.logg.Info(logCtx, "dispatcher starting")

	go s.loop(loopCtx)
}

// Stop cancels the timer so no new cycle starts; an in-flight cycle is
// allowed to finish naturally. Stop does not block on completion.
func (s *Service) Stop() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if !s.running {
		s.logg.Warn(context.Background(), "dispatcher not running")
		return
	}
	s.cancel()
	s.running = false
	s.logg.Info(context.Background(), "dispatcher stop requested")
}

// Done is closed when the loop has fully exited, for callers that want a
// graceful shutdown barrier.
func (s *Service) Done() <-chan struct{} {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}

// Running reports whether the poll loop is active.
func (s *Service) Running() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.running
}

func (s *Service) loop(ctx context.Context) {
	defer close(s.done)

	// Cycles run on a detached context: Stop (or a canceled parent) stops
	// the timer between cycles, never a handler mid-flight.
	cycleCtx := context.WithoutCancel(ctx)

	s.cycle(cycleCtx)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(cycleCtx, "dispatcher loop stopped")
			return
		case <-ticker.C:
			// Ticks that fire while a cycle is still running are dropped
			// by the ticker, so cycles self-throttle and never overlap.
			s.cycle(cycleCtx)
		}
	}
}

func (s *Service) cycle(ctx context.Context) {
	if err := s.runCycle(ctx); err != nil {
		s.stats.recordProcessingError()
		s.metrics.IncCycleError()
		s.logg.Error(ctx, "dispatcher cycle aborted", err)
	}
}

// runCycle performs one poll: recovery sweep first, then claim, then
// strictly sequential processing in created_at order. Infrastructure
// errors abort the cycle and surface on the next tick.
func (s *Service) runCycle(ctx context.Context) error {
	start := s.now()

	recovered, err := s.store.RecoverStuck(ctx, s.processingTimeout)
	if err != nil {
		return fmt.Errorf("recover stuck items: %w", err)
	}
	if recovered > 0 {
		s.stats.recordRecovered(recovered)
		s.metrics.AddRecovered(recovered)
		logCtx := s.logg.WithField(ctx, "recovered", recovered)
		s.logg.Warn(logCtx, "reset stuck processing items")
	}

	items, err := s.store.ClaimBatch(ctx, s.batchSize)
	if err != nil {
		return fmt.Errorf("claim batch: %w", err)
	}

	empty := len(items) == 0
	s.stats.recordPoll(empty, s.now())
	s.metrics.IncPollCycle(empty)
	if empty {
		return nil
	}

	for _, item := range items {
		s.processItem(ctx, item)
	}
	s.metrics.ObserveCycleDuration(s.now().Sub(start))
	return nil
}

func (s *Service) processItem(ctx context.Context, item models.OutboxItem) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"outbox_item_id": item.ID.String(),
		"event_kind":     item.EventKind,
		"aggregate_id":   item.AggregateID,
		"retry_count":    item.RetryCount,
	})

	handler, ok := s.router.Resolve(item.EventKind)
	if !ok {
		// Unknown kinds are marked delivered without a handler so a
		// forward-incompatible producer cannot stall the worker. The
		// event itself is dropped.
		s.logg.Warn(logCtx, "no handler registered for event kind; marking delivered")
		if err := s.store.MarkDelivered(ctx, item.ID); err != nil {
			s.stats.recordProcessingError()
			s.logg.Error(logCtx, "failed to mark unroutable item delivered", err)
			return
		}
		s.stats.recordDelivered(s.now())
		s.metrics.IncProcessed("skipped")
		return
	}

	handlerErr := handler(ctx, item)
	if handlerErr == nil {
		if err := s.store.MarkDelivered(ctx, item.ID); err != nil {
			s.stats.recordProcessingError()
			s.logg.Error(logCtx, "failed to mark item delivered", err)
			return
		}
		s.stats.recordDelivered(s.now())
		s.metrics.IncProcessed("delivered")
		s.logg.Info(logCtx, "outbox item delivered")
		return
	}

	retryCount := item.RetryCount + 1
	maxRetries := item.EffectiveMaxRetries(s.maxRetries)
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"error":       handlerErr.Error(),
		"retry_count": retryCount,
		"max_retries": maxRetries,
	})

	if retryCount > maxRetries {
		if err := s.store.MarkDeadLetter(ctx, item.ID, handlerErr, retryCount); err != nil {
			s.stats.recordProcessingError()
			s.logg.Error(logCtx, "failed to dead-letter item", err)
			return
		}
		s.stats.recordDeadLetter(s.now())
		s.metrics.IncProcessed("dead_letter")
		s.logg.Error(logCtx, "retry budget exhausted; item dead-lettered", handlerErr)
		return
	}

	nextRetryAt := s.backoff.NextRetryAt(s.now().UTC(), retryCount)
	if err := s.store.MarkFailed(ctx, item.ID, handlerErr, retryCount, nextRetryAt); err != nil {
		s.stats.recordProcessingError()
		s.logg.Error(logCtx, "failed to reschedule item", err)
		return
	}
	s.stats.recordFailed(s.now())
	s.metrics.IncProcessed("retried")
	logCtx = s.logg.WithField(logCtx, "next_retry_at", nextRetryAt.Format(time.RFC3339))
	s.logg.Warn(logCtx, "handler failed; item rescheduled")
}

// StoreCounts are live row counts read on demand for health reporting.
type StoreCounts struct {
	Pending        int64 `json:"pending"`
	Processing     int64 `json:"processing"`
	DeadLetter     int64 `json:"deadLetter"`
	DeliveredToday int64 `json:"deliveredToday"`
}

// WorkerConfig echoes the effective dispatcher configuration.
type WorkerConfig struct {
	PollInterval      string `json:"pollInterval"`
	BatchSize         int    `json:"batchSize"`
	ProcessingTimeout string `json:"processingTimeout"`
	MaxRetries        int    `json:"maxRetries"`
	BackoffBase       string `json:"backoffBase"`
	BackoffCap        string `json:"backoffCap"`
}

// Snapshot merges in-memory counters with live store counts.
type Snapshot struct {
	Running    bool         `json:"running"`
	Counters   Counters     `json:"counters"`
	Store      *StoreCounts `json:"store,omitempty"`
	StoreError string       `json:"storeError,omitempty"`
	Config     WorkerConfig `json:"config"`
}

// HealthSnapshot never fails: when the store is unreachable it degrades
// to the in-memory counters plus an error marker.
func (s *Service) HealthSnapshot(ctx context.Context) Snapshot {
	snapshot := Snapshot{
		Running:  s.Running(),
		Counters: s.stats.Counters(),
		Config: WorkerConfig{
			PollInterval:      s.pollInterval.String(),
			BatchSize:         s.batchSize,
			ProcessingTimeout: s.processingTimeout.String(),
			MaxRetries:        s.maxRetries,
			BackoffBase:       s.backoff.Base.String(),
			BackoffCap:        s.backoff.Cap.String(),
		},
	}

	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		snapshot.StoreError = err.Error()
		return snapshot
	}
	midnight := s.now().UTC().Truncate(24 * time.Hour)
	deliveredToday, err := s.store.CountDeliveredSince(ctx, midnight)
	if err != nil {
		snapshot.StoreError = err.Error()
		return snapshot
	}
	snapshot.Store = &StoreCounts{
		Pending:        counts[enums.OutboxStatusPending],
		Processing:     counts[enums.OutboxStatusProcessing],
		DeadLetter:     counts[enums.OutboxStatusDeadLetter],
		DeliveredToday: deliveredToday,
	}
	return snapshot
}
