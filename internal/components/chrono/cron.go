package chrono

import (
	"fmt"
	"strings"
	"sync"

	"showtimes-backend/internal/components/telemetry"

	"github.com/robfig/cron/v3"
)

// Scheduler runs jobs on standard 5-field cron expressions.
type Scheduler interface {
	Schedule(expr string, job func()) error
	RunNow()
	Stop()
}

// CronScheduler evaluates expressions in the clock's location. A tick that
// fires while the previous run of the same job is still going is dropped.
type CronScheduler struct {
	inner *cron.Cron

	mu      sync.Mutex
	entries []cron.EntryID
	now     sync.WaitGroup
}

func NewCronScheduler(clock API, tel telemetry.API) *CronScheduler {
	log := cronLog{tel: tel}
	inner := cron.New(
		cron.WithLocation(clock.Location()),
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
	)
	inner.Start()
	return &CronScheduler{inner: inner}
}

func (s *CronScheduler) Schedule(expr string, job func()) error {
	id, err := s.inner.AddFunc(expr, job)
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	s.mu.Lock()
	s.entries = append(s.entries, id)
	s.mu.Unlock()
	return nil
}

// RunNow starts every scheduled job once in the background, outside of its
// schedule. The same skip rule applies as for ticks.
func (s *CronScheduler) RunNow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.entries {
		entry := s.inner.Entry(id)
		if entry.WrappedJob == nil {
			continue
		}
		s.now.Add(1)
		go func() {
			defer s.now.Done()
			entry.WrappedJob.Run()
		}()
	}
}

// Stop blocks until jobs in flight return, RunNow runs included.
func (s *CronScheduler) Stop() {
	<-s.inner.Stop().Done()
	s.now.Wait()
}

// cronLog forwards the cron library's logr-style calls to telemetry.
type cronLog struct {
	tel telemetry.API
}

func pairs(kv []any) string {
	var sb strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%v=%v", kv[i], kv[i+1])
	}
	return sb.String()
}

func (l cronLog) Info(msg string, kv ...any) {
	l.tel.ReportDebug("cron: "+msg, pairs(kv))
}

func (l cronLog) Error(err error, msg string, kv ...any) {
	l.tel.ReportBroken("cron", fmt.Errorf("%s: %w", msg, err), pairs(kv))
}
