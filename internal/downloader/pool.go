package downloader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"diarykeeper/pkg/logger"
	"diarykeeper/pkg/retry"
)

// ErrNotRun marks a job the pool never picked up because it was shut down first
var ErrNotRun = errors.New("job not run")

// Job is one asset to fetch
type Job struct {
	// Index is the job's position in the batch; results are reported against it
	Index    int
	URL      string
	Name     string
	Modified time.Time
}

// Result is the outcome of one job
type Result struct {
	Job      Job
	Data     []byte
	Err      error
	Attempts int
	Duration time.Duration
}

// AssetFetcher downloads the bytes behind a URL
type AssetFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function to AssetFetcher
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

// Fetch calls f
func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// WorkerPool runs fetch jobs on a fixed number of workers
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	fetcher     AssetFetcher
	retry       *retry.Config
	logger      logger.Logger
}

// NewWorkerPool creates a pool bound to ctx. A nil retryCfg means a single attempt.
func NewWorkerPool(ctx context.Context, numWorkers int, fetcher AssetFetcher, retryCfg *retry.Config, log logger.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if retryCfg == nil {
		retryCfg = retry.Fixed(1, 0)
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		fetcher:     fetcher,
		retry:       retryCfg,
		logger:      logger.OrDefault(log),
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for in-flight jobs and closes Results
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	wp.logger.Debug("Worker pool stopped")
}

// Submit queues a job, blocking while the queue is full
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the result channel; it is closed by Stop
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		select {
		case <-wp.ctx.Done():
			return
		default:
		}

		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job Job, workerID int) Result {
	start := time.Now()
	result := Result{Job: job}

	data, err := retry.DoWithResult(wp.ctx, func(ctx context.Context) ([]byte, error) {
		result.Attempts++
		return wp.fetcher.Fetch(ctx, job.URL)
	}, wp.retry)
	result.Duration = time.Since(start)

	if err != nil {
		result.Err = fmt.Errorf("download failed: %w", err)
		wp.logger.WarnWithFields("Asset download failed", map[string]interface{}{
			"worker_id": workerID,
			"url":       job.URL,
			"attempts":  result.Attempts,
			"error":     err.Error(),
		})
		return result
	}

	result.Data = data
	wp.logger.DebugWithFields("Asset downloaded", map[string]interface{}{
		"worker_id": workerID,
		"name":      job.Name,
		"size":      len(data),
		"duration":  result.Duration,
	})
	return result
}

// GetQueueSize returns the number of queued jobs
func (wp *WorkerPool) GetQueueSize() int {
	return len(wp.jobQueue)
}

// GetActiveWorkers returns the number of workers
func (wp *WorkerPool) GetActiveWorkers() int {
	return wp.numWorkers
}

// FetchAll runs jobs through a pool of numWorkers and returns one result per
// job in input order. Job indexes are reassigned to input positions.
func FetchAll(ctx context.Context, numWorkers int, fetcher AssetFetcher, retryCfg *retry.Config, jobs []Job, log logger.Logger) []Result {
	results := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return results
	}
	for i := range jobs {
		jobs[i].Index = i
		results[i] = Result{Job: jobs[i], Err: ErrNotRun}
	}

	pool := NewWorkerPool(ctx, numWorkers, fetcher, retryCfg, log)
	pool.Start()

	go func() {
		for _, job := range jobs {
			if err := pool.Submit(job); err != nil {
				break
			}
		}
		pool.Stop()
	}()

	for r := range pool.Results() {
		results[r.Job.Index] = r
	}
	return results
}
