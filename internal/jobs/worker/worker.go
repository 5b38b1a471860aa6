package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/kocahmet1/ultrasat-progress/internal/platform/logger"
)

// Job is one scheduled unit of work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j JobFunc) Name() string                  { return j.JobName }
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }

// Worker runs jobs on cron schedules. A job still running when its next tick
// fires is skipped for that tick.
type Worker struct {
	log  *logger.Logger
	cron *cron.Cron

	mu      sync.Mutex
	baseCtx context.Context
	started bool
}

func NewWorker(baseLog *logger.Logger) *Worker {
	log := baseLog.With("component", "CronWorker")
	cl := cronLogger{log: log}
	return &Worker{
		log:     log,
		baseCtx: context.Background(),
		cron: cron.New(cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		), cron.WithLogger(cl)),
	}
}

// Schedule registers job under a standard five-field spec or a descriptor
// such as "@hourly" or "@every 30m".
func (w *Worker) Schedule(spec string, job Job) error {
	if job == nil {
		return fmt.Errorf("nil job")
	}
	_, err := w.cron.AddFunc(spec, func() {
		w.mu.Lock()
		ctx := w.baseCtx
		w.mu.Unlock()
		w.runJob(ctx, job)
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name(), err)
	}
	w.log.Info("Job scheduled", "job", job.Name(), "spec", spec)
	return nil
}

func (w *Worker) Entries() int { return len(w.cron.Entries()) }

// Start runs the scheduler until ctx is done, then waits for running jobs.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.baseCtx = ctx
	w.mu.Unlock()

	w.log.Info("Starting cron worker", "jobs", w.Entries())
	w.cron.Start()
	go func() {
		<-ctx.Done()
		stopped := w.cron.Stop()
		<-stopped.Done()
		w.log.Info("Cron worker stopped")
	}()
}

func (w *Worker) runJob(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Job panic", "job", job.Name(), "panic", r)
		}
	}()
	if ctx.Err() != nil {
		return
	}
	w.log.Info("Job started", "job", job.Name())
	if err := job.Run(ctx); err != nil {
		w.log.Error("Job failed", "job", job.Name(), "error", err)
		return
	}
	w.log.Info("Job finished", "job", job.Name())
}

type cronLogger struct{ log *logger.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
