package progress

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oversec/bucketscan/internal/config"
)

type fakeRunner struct {
	result *RefreshResult
	err    error
	calls  int
}

func (f *fakeRunner) Refresh(context.Context) (*RefreshResult, error) {
	f.calls++
	return f.result, f.err
}

func newTestRefresher(runner *fakeRunner) *Refresher {
	return &Refresher{
		repo: runner,
		cron: cron.New(),
		cfg:  &config.Config{},
		log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestRunOnceReportsResult(t *testing.T) {
	now := time.Now()
	runner := &fakeRunner{result: &RefreshResult{
		Success:         true,
		DurationSeconds: 0.25,
		RefreshType:     "concurrent",
		Timestamp:       now,
		Statistics: RefreshStats{
			TotalJobs:     3,
			TotalObjects:  1500,
			TotalFindings: 42,
			ActiveJobs:    1,
		},
	}}
	r := newTestRefresher(runner)

	result := r.RunOnce(context.Background())
	require.NotNil(t, result)

	assert.True(t, result.Success)
	assert.Equal(t, "concurrent", result.RefreshType)
	assert.Equal(t, now, result.Timestamp)
	assert.Equal(t, int64(1500), result.Statistics.TotalObjects)
	assert.Equal(t, 1, runner.calls)
}

func TestRunOnceMissingViewIsNonFatal(t *testing.T) {
	runner := &fakeRunner{err: ErrViewMissing}
	r := newTestRefresher(runner)

	result := r.RunOnce(context.Background())
	require.NotNil(t, result)
	assert.False(t, result.Success)
}

func TestRunOnceRefreshFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("deadlock detected")}
	r := newTestRefresher(runner)

	result := r.RunOnce(context.Background())
	require.NotNil(t, result)
	assert.False(t, result.Success)
}
