// Package scheduler fires the daily draw.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/ArowuTest/rafflywin-backend/internal/models"
	"github.com/robfig/cron/v3"
	"golang.org/x/exp/slog"
)

// DrawRunner executes one draw cycle
type DrawRunner interface {
	RunDraw(ctx context.Context, now time.Time, trigger models.DrawTrigger) (*models.DrawRun, error)
}

// Scheduler triggers the draw once a day and on demand. Both paths call the
// same DrawRunner.
type Scheduler struct {
	cron    *cron.Cron
	runner  DrawRunner
	spec    string
	entryID cron.EntryID
	now     func() time.Time
	timeout time.Duration
}

// CronSpec builds the daily cron expression for a wall-clock time in loc.
func CronSpec(hour, minute int, loc *time.Location) string {
	return fmt.Sprintf("CRON_TZ=%s %d %d * * *", loc.String(), minute, hour)
}

// New registers the daily job. timeout bounds a single scheduled cycle.
func New(runner DrawRunner, hour, minute int, loc *time.Location, timeout time.Duration) (*Scheduler, error) {
	logger := cronLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		runner:  runner,
		spec:    CronSpec(hour, minute, loc),
		now:     func() time.Time { return time.Now().UTC() },
		timeout: timeout,
	}

	id, err := s.cron.AddFunc(s.spec, s.runScheduled)
	if err != nil {
		return nil, fmt.Errorf("invalid draw schedule %q: %w", s.spec, err)
	}
	s.entryID = id
	return s, nil
}

// Spec returns the cron expression in use
func (s *Scheduler) Spec() string { return s.spec }

// Start begins firing in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("Draw scheduler started", "spec", s.spec, "next", s.NextRun())
}

// Stop halts the timer and returns a context done once a running cycle finishes
func (s *Scheduler) Stop() context.Context {
	slog.Info("Draw scheduler stopping")
	return s.cron.Stop()
}

// NextRun returns the next scheduled fire time, zero before Start.
func (s *Scheduler) NextRun() time.Time {
	return s.cron.Entry(s.entryID).Next
}

// TriggerNow runs a manual cycle synchronously
func (s *Scheduler) TriggerNow(ctx context.Context) (*models.DrawRun, error) {
	return s.runner.RunDraw(ctx, s.now(), models.DrawTriggerManual)
}

func (s *Scheduler) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	run, err := s.runner.RunDraw(ctx, s.now(), models.DrawTriggerScheduled)
	if err != nil {
		slog.Error("Scheduled draw failed", "error", err)
		return
	}
	slog.Info("Scheduled draw finished", "raffles", len(run.Outcomes), "status", run.Status)
}

// cronLogger routes cron's own logging through slog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
