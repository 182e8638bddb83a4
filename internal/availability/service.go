package availability

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"tapdetail-backend/internal/apperr"
	"tapdetail-backend/internal/db"
	"tapdetail-backend/internal/schedule"
)

type Service struct {
	repo            Repository
	defaultTimezone string
	log             *slog.Logger
	now             func() time.Time
}

func NewService(repo Repository, location *time.Location, log *slog.Logger) *Service {
	tz := "UTC"
	if location != nil {
		tz = location.String()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:            repo,
		defaultTimezone: tz,
		log:             log,
		now:             time.Now,
	}
}

// Defaults is the configuration every provider starts with.
func (s *Service) Defaults() schedule.Availability {
	return schedule.DefaultAvailability(s.defaultTimezone)
}

// Get returns the provider's configuration, or the defaults when none is
// stored. Missing per-day hours are filled in memory only.
func (s *Service) Get(ctx context.Context, providerID string) (schedule.Availability, error) {
	providerID = strings.TrimSpace(providerID)

	var (
		doc   Document
		found bool
	)
	err := db.Retry(ctx, func(ctx context.Context) error {
		var err error
		doc, found, err = s.repo.Get(ctx, providerID)
		return err
	})
	if err != nil {
		return schedule.Availability{}, apperr.Storage(err)
	}
	if !found {
		return s.Defaults(), nil
	}

	cfg, skipped := doc.toAvailability()
	if len(skipped) > 0 {
		s.log.Warn("availability get: unreadable entries ignored",
			slog.String("provider_id", providerID),
			slog.String("fields", strings.Join(skipped, ",")),
		)
	}
	if cfg.Timezone == "" {
		cfg.Timezone = s.defaultTimezone
	}
	return cfg.Normalize(), nil
}

func (s *Service) Update(ctx context.Context, providerID string, cfg schedule.Availability) (schedule.Availability, error) {
	cfg = cfg.Normalize()
	if cfg.Timezone == "" {
		cfg.Timezone = s.defaultTimezone
	}

	if err := cfg.Validate(); err != nil {
		var verr *schedule.ValidationError
		if errors.As(err, &verr) {
			return schedule.Availability{}, apperr.WithDetails(apperr.InvalidConfiguration, "invalid availability", verr.Fields)
		}
		return schedule.Availability{}, apperr.Wrap(apperr.InvalidConfiguration, "invalid availability", err)
	}

	if err := s.repo.Upsert(ctx, strings.TrimSpace(providerID), cfg, s.now()); err != nil {
		return schedule.Availability{}, apperr.Storage(err)
	}
	return cfg, nil
}

// Provision stores the defaults for a provider that has no configuration yet.
func (s *Service) Provision(ctx context.Context, providerID string) (bool, error) {
	created, err := s.repo.InsertIfAbsent(ctx, strings.TrimSpace(providerID), s.Defaults(), s.now())
	if err != nil {
		return false, apperr.Storage(err)
	}
	return created, nil
}

type RepairReport struct {
	Rewritten int
	Invalid   []string
}

// Repair rewrites every stored configuration in canonical form: lower-case
// weekday keys, filled per-day hours, unreadable entries dropped. Providers
// whose configuration still fails validation are reported and left as is.
func (s *Service) Repair(ctx context.Context) (RepairReport, error) {
	var report RepairReport
	ids, err := s.repo.ProviderIDs(ctx)
	if err != nil {
		return report, apperr.Storage(err)
	}

	for _, providerID := range ids {
		doc, found, err := s.repo.Get(ctx, providerID)
		if err != nil {
			return report, apperr.Storage(err)
		}
		if !found {
			continue
		}

		cfg, skipped := doc.toAvailability()
		if cfg.Timezone == "" {
			cfg.Timezone = s.defaultTimezone
		}
		cfg = cfg.Normalize()
		if err := cfg.Validate(); err != nil {
			s.log.Warn("availability repair: invalid configuration kept",
				slog.String("provider_id", providerID),
				slog.String("error", err.Error()),
			)
			report.Invalid = append(report.Invalid, providerID)
			continue
		}

		if err := s.repo.Upsert(ctx, providerID, cfg, s.now()); err != nil {
			return report, apperr.Storage(err)
		}
		report.Rewritten++
		if len(skipped) > 0 {
			s.log.Info("availability repair: entries dropped",
				slog.String("provider_id", providerID),
				slog.String("fields", strings.Join(skipped, ",")),
			)
		}
	}
	return report, nil
}

func (s *Service) BlockDate(ctx context.Context, providerID string, date schedule.Date) (schedule.Availability, error) {
	return s.editBlockedDates(ctx, providerID, date, s.repo.AddBlockedDate)
}

func (s *Service) UnblockDate(ctx context.Context, providerID string, date schedule.Date) (schedule.Availability, error) {
	return s.editBlockedDates(ctx, providerID, date, s.repo.RemoveBlockedDate)
}

func (s *Service) editBlockedDates(
	ctx context.Context,
	providerID string,
	date schedule.Date,
	edit func(context.Context, string, schedule.Date, time.Time) error,
) (schedule.Availability, error) {
	if date.IsZero() {
		return schedule.Availability{}, apperr.New(apperr.InvalidDate, "invalid date")
	}
	if _, err := s.Provision(ctx, providerID); err != nil {
		return schedule.Availability{}, err
	}
	err := edit(ctx, strings.TrimSpace(providerID), date, s.now())
	if errors.Is(err, mongo.ErrNoDocuments) {
		return schedule.Availability{}, apperr.New(apperr.NotFound, "availability not found")
	}
	if err != nil {
		return schedule.Availability{}, apperr.Storage(err)
	}
	return s.Get(ctx, providerID)
}
