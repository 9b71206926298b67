package media

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"
)

// Deleter removes media objects from the host.
type Deleter interface {
	Delete(ctx context.Context, location string) error
}

// DeletionObserver is notified of every finished deletion.
type DeletionObserver interface {
	RecordMediaDeletion(outcome string)
}

// JanitorConfig controls the concurrency and retry behaviour of the janitor.
type JanitorConfig struct {
	QueueSize   int
	Workers     int
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Timeout     time.Duration
}

// Janitor deletes released media objects in the background, retrying with exponential backoff.
type Janitor struct {
	host     Deleter
	observer DeletionObserver
	logger   *slog.Logger
	cfg      JanitorConfig

	jobs   chan releaseJob
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type releaseJob struct {
	location string
	reason   string
}

var (
	// ErrJanitorClosed is returned when releasing media after Shutdown.
	ErrJanitorClosed = errors.New("media janitor closed")
	// ErrJanitorBusy is returned when the queue had no room for some locations. Those are dropped.
	ErrJanitorBusy = errors.New("media janitor queue full")
)

// NewJanitor starts cfg.Workers background workers.
func NewJanitor(host Deleter, cfg JanitorConfig, observer DeletionObserver, logger *slog.Logger) *Janitor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	j := &Janitor{
		host:     host,
		observer: observer,
		logger:   logger,
		cfg:      cfg,
		jobs:     make(chan releaseJob, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}

	j.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go j.worker()
	}

	return j
}

// Release schedules deletion of every non-empty location. reason is logged with each deletion.
// It never waits for queue space: locations that do not fit are dropped and ErrJanitorBusy is
// returned.
func (j *Janitor) Release(ctx context.Context, reason string, locations ...string) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrJanitorClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var dropped []string
	for _, location := range locations {
		if strings.TrimSpace(location) == "" {
			continue
		}
		select {
		case j.jobs <- releaseJob{location: location, reason: reason}:
		default:
			dropped = append(dropped, location)
			j.observe("dropped")
		}
	}
	if len(dropped) > 0 {
		j.logger.Warn("media janitor queue full", "reason", reason, "dropped", dropped)
		return ErrJanitorBusy
	}
	return nil
}

// Shutdown stops accepting work and waits for queued deletions. When ctx expires first, pending
// retries are abandoned. Release holds the lock only for a non-blocking send, so taking it here
// does not wait on workers.
func (j *Janitor) Shutdown(ctx context.Context) error {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.jobs)
	}
	j.mu.Unlock()

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		j.cancel()
		return ctx.Err()
	case <-done:
		j.cancel()
		return nil
	}
}

func (j *Janitor) worker() {
	defer j.wg.Done()

	for job := range j.jobs {
		j.handleJob(job)
	}
}

func (j *Janitor) handleJob(job releaseJob) {
	if j.host == nil {
		j.logger.Error("media janitor missing host", "location", job.location)
		j.observe("failed")
		return
	}

	var err error
	for attempt := 0; attempt < j.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(j.backoff(attempt))
			select {
			case <-j.ctx.Done():
				timer.Stop()
				j.logger.Warn("media deletion abandoned", "location", job.location, "reason", job.reason, "error", err)
				j.observe("abandoned")
				return
			case <-timer.C:
			}
		}

		ctx, cancel := context.WithTimeout(j.ctx, j.cfg.Timeout)
		err = j.host.Delete(ctx, job.location)
		cancel()
		if err == nil {
			j.logger.Info("media deleted", "location", job.location, "reason", job.reason, "attempts", attempt+1)
			j.observe("deleted")
			return
		}
		j.logger.Warn("media deletion attempt failed", "location", job.location, "attempt", attempt+1, "error", err)
	}

	j.logger.Error("media deletion failed", "location", job.location, "reason", job.reason, "error", err)
	j.observe("failed")
}

func (j *Janitor) backoff(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt-1))) * j.cfg.BaseBackoff
	if d > j.cfg.MaxBackoff {
		d = j.cfg.MaxBackoff
	}
	return d
}

func (j *Janitor) observe(outcome string) {
	if j.observer != nil {
		j.observer.RecordMediaDeletion(outcome)
	}
}
