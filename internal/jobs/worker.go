package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sjperalta/village-settlement-api/pkg/logger"
)

// Job represents a background task
type Job func(ctx context.Context) error

// Worker manages background jobs and scheduled tasks
type Worker struct {
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	queue         chan namedJob
	asyncSem      chan struct{}
	maxConcurrent int
	stats         WorkerStats
	runs          map[string]*JobRun
	statsMu       sync.RWMutex
	closeOnce     sync.Once
}

type namedJob struct {
	name string
	job  Job
}

// WorkerStats holds statistics about the worker
type WorkerStats struct {
	ActiveJobs    int   `json:"active_jobs"`
	CompletedJobs int64 `json:"completed_jobs"`
	FailedJobs    int64 `json:"failed_jobs"`
	QueueLength   int   `json:"queue_length"`
	MaxConcurrent int   `json:"max_concurrent"`
}

// JobRun is the last known outcome of a named job
type JobRun struct {
	Name       string        `json:"name"`
	Runs       int64         `json:"runs"`
	Failures   int64         `json:"failures"`
	LastStart  time.Time     `json:"last_start"`
	LastFinish time.Time     `json:"last_finish"`
	LastTook   time.Duration `json:"last_took_ns"`
	LastError  string        `json:"last_error,omitempty"`
}

// NewWorker creates a worker with N concurrent processors
func NewWorker(numWorkers int) *Worker {
	if numWorkers < 1 {
		numWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	// Allow 2x workers for async jobs
	asyncLimit := numWorkers * 2
	if asyncLimit < 10 {
		asyncLimit = 10
	}

	w := &Worker{
		ctx:           ctx,
		cancel:        cancel,
		queue:         make(chan namedJob, 100),
		asyncSem:      make(chan struct{}, asyncLimit),
		maxConcurrent: asyncLimit,
		runs:          make(map[string]*JobRun),
	}

	// Start worker goroutines
	for i := 0; i < numWorkers; i++ {
		w.wg.Add(1)
		go w.process(i)
	}

	return w
}

// Enqueue adds a job to be processed by the worker pool
func (w *Worker) Enqueue(name string, job Job) {
	select {
	case w.queue <- namedJob{name: name, job: job}:
	default:
		logger.Warn("[Worker] Queue full, running job synchronously", "job", name)
		w.run("worker", name, job)
	}
}

// EnqueueAsync runs a job in a new goroutine (fire-and-forget), bounded by semaphore
func (w *Worker) EnqueueAsync(name string, job Job) {
	// Track in waitgroup before the goroutine starts so Shutdown waits for it
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		// Acquire semaphore to limit concurrency
		w.asyncSem <- struct{}{}
		defer func() { <-w.asyncSem }()

		w.run("async", name, job)
	}()
}

// process handles jobs from the queue
func (w *Worker) process(workerID int) {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case nj, ok := <-w.queue:
			if !ok {
				return
			}
			w.run(fmt.Sprintf("worker %d", workerID), nj.name, nj.job)
		}
	}
}

// ScheduleEvery runs a job at fixed intervals. The first run happens after the interval (not at startup).
func (w *Worker) ScheduleEvery(interval time.Duration, name string, job Job) {
	w.schedule(interval, false, name, job)
}

// ScheduleEveryImmediate runs a job once at startup, then at fixed intervals. Use this when the process
// may restart so jobs run soon after start instead of waiting for the first interval.
func (w *Worker) ScheduleEveryImmediate(interval time.Duration, name string, job Job) {
	w.schedule(interval, true, name, job)
}

func (w *Worker) schedule(interval time.Duration, immediate bool, name string, job Job) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if immediate {
			w.run("scheduler", name, job)
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.run("scheduler", name, job)
			}
		}
	}()
}

// run executes one job, recording stats and recovering from panics.
func (w *Worker) run(source, name string, job Job) {
	start := time.Now()
	w.trackJobStart(name, start)

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		err = job(w.ctx)
	}()

	took := time.Since(start)
	if err != nil {
		logger.Error("Job failed", "source", source, "job", name, "took", took, "error", err)
	} else {
		logger.Info("Job completed", "source", source, "job", name, "took", took)
	}
	w.trackJobEnd(name, took, err)
}

// Shutdown gracefully stops all workers
func (w *Worker) Shutdown() {
	w.closeOnce.Do(func() {
		w.cancel()
		close(w.queue)
		w.wg.Wait()
	})
}

// GetStats returns the current worker statistics
func (w *Worker) GetStats() WorkerStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	stats := w.stats
	stats.QueueLength = len(w.queue)
	stats.MaxConcurrent = w.maxConcurrent
	return stats
}

// GetRuns returns a copy of the per-job history
func (w *Worker) GetRuns() map[string]JobRun {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	out := make(map[string]JobRun, len(w.runs))
	for name, r := range w.runs {
		out[name] = *r
	}
	return out
}

func (w *Worker) trackJobStart(name string, at time.Time) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs++
	r, ok := w.runs[name]
	if !ok {
		r = &JobRun{Name: name}
		w.runs[name] = r
	}
	r.LastStart = at
}

// trackJobEnd counts every finished job as completed; failures are a subset.
func (w *Worker) trackJobEnd(name string, took time.Duration, err error) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs--
	w.stats.CompletedJobs++

	r := w.runs[name]
	r.Runs++
	r.LastFinish = r.LastStart.Add(took)
	r.LastTook = took
	r.LastError = ""
	if err != nil {
		w.stats.FailedJobs++
		r.Failures++
		r.LastError = err.Error()
	}
}
