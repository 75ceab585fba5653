package downloader

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"diarykeeper/pkg/logger"
	"diarykeeper/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockFetcher serves the URL itself as the body; URLs containing "bad" always fail
type mockFetcher struct {
	delay    time.Duration
	calls    int32
	inFlight int32
	peak     int32
	flaky    map[string]int
	mu       sync.Mutex
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	atomic.AddInt32(&m.calls, 1)
	n := atomic.AddInt32(&m.inFlight, 1)
	defer atomic.AddInt32(&m.inFlight, -1)
	for {
		p := atomic.LoadInt32(&m.peak)
		if n <= p || atomic.CompareAndSwapInt32(&m.peak, p, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	if strings.Contains(url, "bad") {
		return nil, errors.New("404 not found")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.flaky[url] > 0 {
		m.flaky[url]--
		return nil, errors.New("connection reset")
	}
	return []byte(url), nil
}

func jobsFor(urls ...string) []Job {
	jobs := make([]Job, len(urls))
	for i, u := range urls {
		jobs[i] = Job{URL: u, Name: u}
	}
	return jobs
}

func TestFetchAllKeepsInputOrder(t *testing.T) {
	fetcher := &mockFetcher{delay: 5 * time.Millisecond}
	urls := []string{"u0", "u1", "u2", "u3", "u4", "u5", "u6", "u7"}

	results := FetchAll(context.Background(), 3, fetcher, nil, jobsFor(urls...), logger.NewNopLogger())

	require.Len(t, results, len(urls))
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, i, r.Job.Index)
		assert.Equal(t, urls[i], string(r.Data))
		assert.Equal(t, 1, r.Attempts)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&fetcher.peak), int32(3))
}

func TestFetchAllPartialFailure(t *testing.T) {
	fetcher := &mockFetcher{}
	results := FetchAll(context.Background(), 2, fetcher, retry.Fixed(3, time.Millisecond),
		jobsFor("a", "b", "bad", "c", "d"), logger.NewNopLogger())

	ok := 0
	for _, r := range results {
		if r.Err == nil {
			ok++
		}
	}
	assert.Equal(t, 4, ok)
	assert.Error(t, results[2].Err)
	assert.Equal(t, 3, results[2].Attempts)
	assert.Equal(t, "c", string(results[3].Data))
	assert.Equal(t, int32(7), atomic.LoadInt32(&fetcher.calls))
}

func TestFetchAllRetriesTransientFailure(t *testing.T) {
	fetcher := &mockFetcher{flaky: map[string]int{"x": 2}}
	results := FetchAll(context.Background(), 1, fetcher, retry.Fixed(3, time.Millisecond),
		jobsFor("x"), logger.NewNopLogger())

	require.NoError(t, results[0].Err)
	assert.Equal(t, 3, results[0].Attempts)
	assert.Equal(t, "x", string(results[0].Data))
}

func TestFetchAllEmpty(t *testing.T) {
	assert.Empty(t, FetchAll(context.Background(), 4, &mockFetcher{}, nil, nil, nil))
}

func TestFetchAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := FetchAll(ctx, 2, &mockFetcher{}, nil, jobsFor("a", "b", "c"), logger.NewNopLogger())
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Error(t, r.Err)
		assert.Nil(t, r.Data)
	}
}

func TestWorkerPoolStartStop(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 2, FetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
		return []byte("ok"), nil
	}), nil, logger.NewNopLogger())
	pool.Start()

	require.NoError(t, pool.Submit(Job{Index: 0, URL: "one"}))
	go pool.Stop()

	var got []Result
	for r := range pool.Results() {
		got = append(got, r)
	}
	require.Len(t, got, 1)
	assert.Equal(t, "ok", string(got[0].Data))
	assert.Equal(t, 2, pool.GetActiveWorkers())
	assert.Equal(t, 0, pool.GetQueueSize())
}
