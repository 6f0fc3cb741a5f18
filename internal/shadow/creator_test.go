package shadow

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCreateAllBoundsConcurrency(t *testing.T) {
	var inflight, maxInflight int32

	create := func(ctx context.Context, ep, ept string) error {
		n := atomic.AddInt32(&inflight, 1)
		for {
			cur := atomic.LoadInt32(&maxInflight)
			if n <= cur || atomic.CompareAndSwapInt32(&maxInflight, cur, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inflight, -1)
		return nil
	}

	c := NewCreator(2, create)

	jobs := make([]Job, 10)
	for i := range jobs {
		jobs[i] = Job{Ep: fmt.Sprintf("d%d", i), Ept: "light"}
	}

	results := c.CreateAll(context.Background(), jobs)
	assert.Len(t, results, 10)
	assert.LessOrEqual(t, int(atomic.LoadInt32(&maxInflight)), 2)
}

func TestCreateAllRecordsFailures(t *testing.T) {
	create := func(ctx context.Context, ep, ept string) error {
		if ep == "bad" {
			return fmt.Errorf("boom")
		}
		return nil
	}

	c := NewCreator(4, create)
	results := c.CreateAll(context.Background(), []Job{{Ep: "good"}, {Ep: "bad"}})

	var sawErr bool
	for _, r := range results {
		if r.Ep == "bad" {
			sawErr = r.Err != nil
		}
	}
	assert.True(t, sawErr)
	assert.Len(t, c.Results(), 2)
}

func TestSubmitPropagatesError(t *testing.T) {
	create := func(ctx context.Context, ep, ept string) error {
		return fmt.Errorf("provisioning failed")
	}
	c := NewCreator(1, create)

	err := c.Submit(context.Background(), "d1", "light")
	assert.Error(t, err)
}
