package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"tapdetail-backend/internal/appointments"
	"tapdetail-backend/internal/metrics"
)

const (
	defaultSweepLimit   = 500
	defaultSweepTimeout = 2 * time.Minute
)

type Archiver interface {
	SweepArchive(ctx context.Context, age time.Duration, limit int64) ([]appointments.Appointment, error)
}

// ArchiveSweeper moves completed and cancelled appointments that have not
// changed for Age into the archived status.
type ArchiveSweeper struct {
	Archiver Archiver
	Age      time.Duration
	Limit    int64
	Timeout  time.Duration
	Log      *slog.Logger
	Metrics  *metrics.Metrics

	mu sync.Mutex
}

func NewArchiveSweeper(archiver Archiver, afterDays int, log *slog.Logger, m *metrics.Metrics) *ArchiveSweeper {
	if afterDays <= 0 {
		afterDays = 30
	}
	return &ArchiveSweeper{
		Archiver: archiver,
		Age:      time.Duration(afterDays) * 24 * time.Hour,
		Limit:    defaultSweepLimit,
		Timeout:  defaultSweepTimeout,
		Log:      log,
		Metrics:  m,
	}
}

// Sweep runs one pass and returns how many appointments were archived.
// Overlapping calls are skipped.
func (j *ArchiveSweeper) Sweep(ctx context.Context) (int, error) {
	if !j.mu.TryLock() {
		j.Log.Warn("archive sweep: already running")
		j.count("skipped", 1)
		return 0, nil
	}
	defer j.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, j.Timeout)
	defer cancel()

	started := time.Now()
	archived, err := j.Archiver.SweepArchive(ctx, j.Age, j.Limit)
	j.count("archived", len(archived))
	if err != nil {
		j.count("failed", 1)
		j.Log.Error("archive sweep: failed",
			slog.Int("archived", len(archived)),
			slog.String("error", err.Error()),
		)
		return len(archived), err
	}

	j.Log.Info("archive sweep: ok",
		slog.Int("archived", len(archived)),
		slog.Duration("elapsed", time.Since(started)),
	)
	return len(archived), nil
}

func (j *ArchiveSweeper) count(result string, n int) {
	if j.Metrics == nil || n == 0 {
		return
	}
	j.Metrics.ArchiveSweeps.WithLabelValues(result).Add(float64(n))
}

// Scheduler runs the sweeper on a cron spec in the provider timezone.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

func Schedule(spec string, loc *time.Location, sweeper *ArchiveSweeper) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, func() {
		_, _ = sweeper.Sweep(context.Background())
	}); err != nil {
		return nil, err
	}
	return &Scheduler{cron: c, log: sweeper.Log}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("archive sweep: scheduled", slog.Int("entries", len(s.cron.Entries())))
}

// Stop waits for a running sweep to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("archive sweep: stop timed out")
	}
}
