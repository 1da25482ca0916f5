package chrono

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"showtimes-backend/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestCronSchedulerRejectsBadExpressions(t *testing.T) {
	clock, err := NewStandardImpl("")
	require.NoError(t, err)
	s := NewCronScheduler(clock, telemetry.NewRecorder())
	defer s.Stop()

	require.NoError(t, s.Schedule("0 5 * * *", func() {}))
	require.Error(t, s.Schedule("every morning", func() {}))
}

func TestStopWaitsForRunNow(t *testing.T) {
	clock, err := NewStandardImpl("")
	require.NoError(t, err)
	s := NewCronScheduler(clock, telemetry.NewRecorder())

	started := make(chan struct{})
	release := make(chan struct{})
	var runs atomic.Int32
	require.NoError(t, s.Schedule("0 5 * * *", func() {
		runs.Add(1)
		started <- struct{}{}
		<-release
	}))

	s.RunNow()
	<-started

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a run was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the run finished")
	}
	require.Equal(t, int32(1), runs.Load())
}

func TestCronLogForwardsErrors(t *testing.T) {
	rec := telemetry.NewRecorder()
	cronLog{tel: rec}.Error(errors.New("boom"), "panic", "job", 1)

	reports := rec.Reports("broken", "cron")
	require.Len(t, reports, 1)
	require.Equal(t, "job=1", reports[0].Params[1])
	require.EqualError(t, reports[0].Params[0].(error), "panic: boom")
}

func TestPairsIgnoresDanglingKey(t *testing.T) {
	require.Equal(t, "a=1 b=2s", pairs([]any{"a", 1, "b", 2 * time.Second, "c"}))
	require.Equal(t, "", pairs(nil))
}
