// workers/scheduler.go
package workers

import (
	"context"
	"time"

	"quest-entry-service/logger"
	"quest-entry-service/metrics"
	"quest-entry-service/store"

	"github.com/go-co-op/gocron/v2"
)

// Warmer preloads the rank cache.
type Warmer interface {
	Warm(ctx context.Context) (int64, error)
}

// SchedulerConfig selects the periodic jobs. A zero interval or a nil
// Exporter disables the corresponding job.
type SchedulerConfig struct {
	StatsInterval  time.Duration
	ExportInterval time.Duration
	JobTimeout     time.Duration
}

type Scheduler struct {
	sched    gocron.Scheduler
	store    store.Store
	warmer   Warmer
	exporter *SnapshotExporter
	log      *logger.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration
}

// StartScheduler registers the jobs and starts gocron. warmer and exporter
// may be nil.
func StartScheduler(cfg SchedulerConfig, st store.Store, warmer Warmer, exporter *SnapshotExporter, log *logger.Logger, m *metrics.Metrics) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s := &Scheduler{
		sched:    sched,
		store:    st,
		warmer:   warmer,
		exporter: exporter,
		log:      log,
		metrics:  m,
		timeout:  timeout,
	}

	if cfg.StatsInterval > 0 {
		if _, err := sched.NewJob(
			gocron.DurationJob(cfg.StatsInterval),
			gocron.NewTask(s.RefreshStats),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		); err != nil {
			return nil, err
		}
	}

	if exporter != nil && cfg.ExportInterval > 0 {
		if _, err := sched.NewJob(
			gocron.DurationJob(cfg.ExportInterval),
			gocron.NewTask(s.runExport),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return nil, err
		}
	}

	sched.Start()
	return s, nil
}

// RefreshStats updates the solved gauge and warms the rank cache.
func (s *Scheduler) RefreshStats() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	log := s.log.WithJob("stats")
	st, err := s.store.Stats(ctx)
	if err != nil {
		log.WithError(err).Error("failed to compute stats")
		return
	}
	s.metrics.SolvedEntries.Set(float64(st.Solved))

	if s.warmer != nil {
		if _, err := s.warmer.Warm(ctx); err != nil {
			log.WithError(err).Warn("failed to warm rank cache")
		}
	}
	log.WithField("total", st.Total).WithField("solved", st.Solved).Debug("stats refreshed")
}

func (s *Scheduler) runExport() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.exporter.Export(ctx); err != nil {
		s.log.WithJob("export").WithError(err).Error("snapshot export failed")
	}
}

// Shutdown stops the scheduler and waits for running jobs.
func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}
