package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunExecutesEveryJob(t *testing.T) {
	var count int64
	jobs := make([]Job, 20)
	for i := range jobs {
		jobs[i] = func(ctx context.Context) error {
			atomic.AddInt64(&count, 1)
			return nil
		}
	}

	err := Run(context.Background(), 4, jobs)
	require.NoError(t, err)
	assert.EqualValues(t, 20, count)
}

func TestRunReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	jobs := []Job{
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return boom },
		func(ctx context.Context) error { return nil },
	}

	err := Run(context.Background(), 2, jobs)
	require.ErrorIs(t, err, boom)
}

func TestRunWithNoJobsIsNoop(t *testing.T) {
	require.NoError(t, Run(context.Background(), 4, nil))
}
