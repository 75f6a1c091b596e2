package dispatcher

import (
	"sync"
	"time"
)

// Stats holds process-lifetime counters for one worker instance. The
// struct is owned by the Service so tests never share hidden state; the
// Prometheus mirrors live in pkg/metrics.
type Stats struct {
	mtx sync.Mutex

	itemsProcessed   int64
	itemsDelivered   int64
	itemsFailed      int64
	itemsDeadLetter  int64
	itemsRecovered   int64
	pollCycles       int64
	emptyPolls       int64
	processingErrors int64
	lastPollAt       time.Time
	lastEventAt      time.Time
}

// Counters is the read-side copy embedded into health snapshots.
type Counters struct {
	ItemsProcessed   int64      `json:"itemsProcessed"`
	ItemsDelivered   int64      `json:"itemsDelivered"`
	ItemsFailed      int64      `json:"itemsFailed"`
	ItemsDeadLetter  int64      `json:"itemsDeadLetter"`
	ItemsRecovered   int64      `json:"itemsRecovered"`
	PollCycles       int64      `json:"pollCycles"`
	EmptyPolls       int64      `json:"emptyPolls"`
	ProcessingErrors int64      `json:"processingErrors"`
	LastPollAt       *time.Time `json:"lastPollAt,omitempty"`
	LastEventAt      *time.Time `json:"lastEventAt,omitempty"`
}

func (s *Stats) recordPoll(empty bool, at time.Time) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.pollCycles++
	if empty {
		s.emptyPolls++
	}
	s.lastPollAt = at
}

func (s *Stats) recordDelivered(at time.Time) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.itemsProcessed++
	s.itemsDelivered++
	s.lastEventAt = at
}

func (s *Stats) recordFailed(at time.Time) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.itemsProcessed++
	s.itemsFailed++
	s.lastEventAt = at
}

func (s *Stats) recordDeadLetter(at time.Time) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.itemsProcessed++
	s.itemsFailed++
	s.itemsDeadLetter++
	s.lastEventAt = at
}

func (s *Stats) recordRecovered(n int64) {
	if n <= 0 {
		return
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.itemsRecovered += n
}

func (s *Stats) recordProcessingError() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.processingErrors++
}

// Counters returns a point-in-time copy.
func (s *Stats) Counters() Counters {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	counters := Counters{
		ItemsProcessed:   s.itemsProcessed,
		ItemsDelivered:   s.itemsDelivered,
		ItemsFailed:      s.itemsFailed,
		ItemsDeadLetter:  s.itemsDeadLetter,
		ItemsRecovered:   s.itemsRecovered,
		PollCycles:       s.pollCycles,
		EmptyPolls:       s.emptyPolls,
		ProcessingErrors: s.processingErrors,
	}
	if !s.lastPollAt.IsZero() {
		at := s.lastPollAt
		counters.LastPollAt = &at
	}
	if !s.lastEventAt.IsZero() {
		at := s.lastEventAt
		counters.LastEventAt = &at
	}
	return counters
}
