// audit/service.go
package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	logger "github.com/workforcehq/aegis/logging"
)

// Service records access decisions without ever blocking or failing the
// decision path. Record hands the entry to a background worker; persistence
// errors are logged and swallowed.
type Service interface {
	Record(entry Entry)
	QueryByUser(ctx context.Context, userID string, limit, offset int) ([]Entry, error)
	QueryDenials(ctx context.Context, since time.Time, limit int) ([]Entry, error)
	Start(ctx context.Context)
	Stop()
}

type service struct {
	repo  Repository
	queue chan Entry
	wg    sync.WaitGroup
	once  sync.Once

	// mu orders in-flight Record sends before the queue close in Stop.
	mu     sync.RWMutex
	closed bool
}

func NewService(repo Repository, queueSize int) Service {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &service{
		repo:  repo,
		queue: make(chan Entry, queueSize),
	}
}

// Record enqueues an entry for asynchronous persistence. When the queue is
// full, or the service has already stopped, the entry is dropped and logged
// rather than blocking or panicking the caller.
func (s *service) Record(entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		logger.Warn("Audit service stopped, dropping entry",
			zap.String("subjectID", entry.SubjectID),
			zap.String("resource", entry.Resource),
			zap.String("action", entry.Action),
			zap.String("decision", entry.Decision))
		return
	}
	select {
	case s.queue <- entry:
	default:
		logger.Warn("Audit queue full, dropping entry",
			zap.String("subjectID", entry.SubjectID),
			zap.String("resource", entry.Resource),
			zap.String("action", entry.Action),
			zap.String("decision", entry.Decision))
	}
}

// Start launches the persistence worker. The worker drains the queue until
// the context is cancelled and Stop is called.
func (s *service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case entry, ok := <-s.queue:
				if !ok {
					return
				}
				s.persist(entry)
			case <-ctx.Done():
				// Drain whatever is already queued before exiting
				for {
					select {
					case entry := <-s.queue:
						s.persist(entry)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop closes the queue and waits for the worker to finish. Entries
// recorded after Stop are dropped.
func (s *service) Stop() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.queue)
	})
	s.wg.Wait()
}

func (s *service) persist(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.repo.Index(ctx, entry); err != nil {
		logger.Error("Failed to persist audit entry",
			zap.Error(err),
			zap.String("subjectID", entry.SubjectID),
			zap.String("policyName", entry.PolicyName))
	}
}

func (s *service) QueryByUser(ctx context.Context, userID string, limit, offset int) ([]Entry, error) {
	return s.repo.QueryByUser(ctx, userID, limit, offset)
}

func (s *service) QueryDenials(ctx context.Context, since time.Time, limit int) ([]Entry, error) {
	return s.repo.QueryDenials(ctx, since, limit)
}
