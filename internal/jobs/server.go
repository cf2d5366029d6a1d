package jobs

import (
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// DefaultQueues weights delivery over housekeeping.
var DefaultQueues = map[string]int{
	QueueCritical: 6,
	QueueDefault:  3,
	QueueLow:      1,
}

// Worker processes queued tasks in the background.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *slog.Logger
}

func NewWorker(redisOpt asynq.RedisConnOpt, concurrency int, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		server: asynq.NewServer(redisOpt, asynq.Config{
			Queues:      DefaultQueues,
			Concurrency: max(concurrency, 1),
			Logger:      newAsynqLogger(log),
			LogLevel:    asynq.WarnLevel,
		}),
		mux: asynq.NewServeMux(),
		log: log,
	}
}

// Handle routes taskType to h. Register handlers before Start.
func (w *Worker) Handle(taskType string, h asynq.Handler) {
	w.mux.Handle(taskType, h)
}

// Start returns once the worker is polling. It does not trap signals.
func (w *Worker) Start() error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("jobs: start worker: %w", err)
	}
	w.log.Info("job worker started")
	return nil
}

// Shutdown waits for in-flight tasks up to asynq's shutdown timeout.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
	w.log.Info("job worker stopped")
}

// Scheduler enqueues periodic tasks.
type Scheduler struct {
	scheduler *asynq.Scheduler
	stockCron string
	log       *slog.Logger
}

// NewScheduler builds the scheduler. An empty stockCron disables the
// stock gauge refresh.
func NewScheduler(redisOpt asynq.RedisConnOpt, stockCron string, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		scheduler: asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Logger: newAsynqLogger(log), LogLevel: asynq.WarnLevel}),
		stockCron: stockCron,
		log:       log,
	}
}

// Start registers the periodic tasks and begins ticking.
func (s *Scheduler) Start() error {
	if s.stockCron == "" {
		return nil
	}
	if _, err := s.scheduler.Register(s.stockCron, NewStockRefreshTask()); err != nil {
		return fmt.Errorf("jobs: schedule stock refresh %q: %w", s.stockCron, err)
	}
	if err := s.scheduler.Start(); err != nil {
		return fmt.Errorf("jobs: start scheduler: %w", err)
	}
	s.log.Info("job scheduler started", slog.String("stock_cron", s.stockCron))
	return nil
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
