// Package shadow implements the bounded shadow-creation worker pool
// (SPEC_FULL §3 ShadowCreateResult, grounded on
// CreateShadowDeviceThread.java's per-device background task). A burst
// of concurrent registrations submits work here instead of spawning one
// goroutine per device.
package shadow

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/peeredge-io/shadowbridge/pkg/log"
)

// DefaultConcurrency is shadow_creation_concurrency's default (SPEC_FULL
// §3): distinct from max_shadows, which bounds registry size, not
// creation concurrency.
const DefaultConcurrency = 8

// CreateFunc provisions the cloud-side shadow for one endpoint.
type CreateFunc func(ctx context.Context, ep, ept string) error

// Result records the outcome of one shadow-creation attempt.
type Result struct {
	Ep  string
	Ept string
	Err error
}

// Creator runs shadow-creation work through a bounded concurrency pool.
// The semaphore is shared across CreateAll and Submit calls, so the
// concurrency bound holds across a whole process, not per-call.
type Creator struct {
	create CreateFunc
	sem    chan struct{}

	mu      sync.Mutex
	results []Result
}

// NewCreator returns a Creator bounded to concurrency simultaneous
// creations. A non-positive concurrency uses DefaultConcurrency.
func NewCreator(concurrency int, create CreateFunc) *Creator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Creator{create: create, sem: make(chan struct{}, concurrency)}
}

// Job is one endpoint to create.
type Job struct {
	Ep  string
	Ept string
}

// CreateAll runs create for every job in jobs, at most the Creator's
// configured concurrency at a time, and returns once all have completed
// (success or failure for one job never cancels the others). Results
// are also appended to the Creator's result log for later inspection.
func (c *Creator) CreateAll(ctx context.Context, jobs []Job) []Result {
	var wg sync.WaitGroup
	results := make([]Result, len(jobs))

	for i, job := range jobs {
		wg.Add(1)
		c.sem <- struct{}{}
		go func(i int, job Job) {
			defer wg.Done()
			defer func() { <-c.sem }()

			err := c.create(ctx, job.Ep, job.Ept)
			if err != nil {
				log.Warn(err, "shadow creation failed", "ep", job.Ep)
			}
			results[i] = Result{Ep: job.Ep, Ept: job.Ept, Err: err}
		}(i, job)
	}
	wg.Wait()

	c.mu.Lock()
	c.results = append(c.results, results...)
	c.mu.Unlock()

	return results
}

// Submit runs a single shadow creation through the bounded pool and
// blocks until it completes, suitable as the Base.ProcessRegistration
// creator callback. It uses an errgroup.Group of size one so a failing
// creation's error is surfaced directly to the caller.
func (c *Creator) Submit(ctx context.Context, ep, ept string) error {
	c.sem <- struct{}{}
	defer func() { <-c.sem }()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.create(gctx, ep, ept)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("shadow creation for %s: %w", ep, err)
	}
	return nil
}

// Results returns every recorded CreateAll result so far.
func (c *Creator) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Result, len(c.results))
	copy(out, c.results)
	return out
}
