package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tapdetail-backend/internal/apperr"
	"tapdetail-backend/internal/cache"
	"tapdetail-backend/internal/catalog"
	"tapdetail-backend/internal/db"
	"tapdetail-backend/internal/earnings"
	"tapdetail-backend/internal/metrics"
	"tapdetail-backend/internal/schedule"
)

// NextAvailableDays bounds the forward search for the first open slot.
const NextAvailableDays = 30

const (
	DayOpen        = "open"
	DayFullyBooked = "fully booked"
)

type AvailabilityReader interface {
	Get(ctx context.Context, providerID string) (schedule.Availability, error)
}

type ServiceCatalog interface {
	Get(ctx context.Context, providerID, id string) (catalog.Service, error)
}

type EarningsLedger interface {
	Record(ctx context.Context, e earnings.Entry) error
	Remove(ctx context.Context, appointmentID string) error
}

// DaySlots is the slot picker's view of one date.
type DaySlots struct {
	ProviderID string              `json:"providerId"`
	Date       schedule.Date       `json:"date"`
	Timezone   string              `json:"timezone"`
	Duration   int                 `json:"duration"`
	Status     string              `json:"status"`
	Slots      []schedule.TimeSlot `json:"slots"`
}

type NextSlot struct {
	ProviderID string            `json:"providerId"`
	Date       schedule.Date     `json:"date"`
	Time       schedule.Clock    `json:"time"`
	Timezone   string            `json:"timezone"`
	Duration   int               `json:"duration"`
	Slot       schedule.TimeSlot `json:"slot"`
}

type Service struct {
	repo          Repository
	availability  AvailabilityReader
	catalog       ServiceCatalog
	ledger        EarningsLedger
	location      *time.Location
	horizonMonths int
	log           *slog.Logger
	cache         cache.Cache
	cacheTTL      time.Duration
	generations   *generations
	metrics       *metrics.Metrics
	now           func() time.Time
	newID         func() string
}

func NewService(
	repo Repository,
	availability AvailabilityReader,
	menu ServiceCatalog,
	ledger EarningsLedger,
	location *time.Location,
	horizonMonths int,
	log *slog.Logger,
) *Service {
	if location == nil {
		location = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:          repo,
		availability:  availability,
		catalog:       menu,
		ledger:        ledger,
		location:      location,
		horizonMonths: horizonMonths,
		log:           log,
		cache:         cache.NewNoop(),
		generations:   newGenerations(),
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// WithCache stores annotated slot grids in store for ttl. Grids are cached
// before past slots are dropped, so a hit is still filtered against now.
func (s *Service) WithCache(store cache.Cache, ttl time.Duration) *Service {
	if store != nil {
		s.cache = store
	}
	s.cacheTTL = ttl
	return s
}

func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

func (s *Service) window(cfg schedule.Availability) schedule.Window {
	return schedule.NewWindow(s.horizonMonths, cfg.Location(s.location))
}

// ResolveDuration picks the service's normalized duration when serviceID is
// set, then the explicit minutes, then the default appointment length.
func (s *Service) ResolveDuration(ctx context.Context, providerID, serviceID string, minutes int) (int, *catalog.Service, error) {
	serviceID = strings.TrimSpace(serviceID)
	if serviceID != "" {
		item, err := s.catalog.Get(ctx, providerID, serviceID)
		if err != nil {
			return 0, nil, err
		}
		return item.DurationMinutes(), &item, nil
	}
	if minutes < 0 || minutes > schedule.MinutesPerDay {
		return 0, nil, apperr.New(apperr.InvalidDuration, "invalid duration")
	}
	if minutes == 0 {
		minutes = schedule.DefaultAppointmentMinutes
	}
	return minutes, nil, nil
}

func (s *Service) activeFor(ctx context.Context, providerID string, date schedule.Date) ([]Appointment, error) {
	var items []Appointment
	err := db.Retry(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.repo.ListActiveForDate(ctx, providerID, date)
		return err
	})
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return items, nil
}

func bookingsOf(items []Appointment) []schedule.Booking {
	out := make([]schedule.Booking, 0, len(items))
	for _, a := range items {
		out = append(out, a.Booking())
	}
	return out
}

// Slots computes the annotated grid for dateStr. An empty result is not an
// error: Status explains a closed or fully booked day.
func (s *Service) Slots(ctx context.Context, providerID, dateStr string, durationMinutes int, availableOnly bool) (DaySlots, error) {
	providerID = strings.TrimSpace(providerID)
	cfg, err := s.availability.Get(ctx, providerID)
	if err != nil {
		return DaySlots{}, err
	}
	loc := cfg.Location(s.location)
	now := s.now()

	date, err := s.window(cfg).ValidateDate(dateStr, now)
	if err != nil {
		return DaySlots{}, rejectionError(err)
	}
	return s.slotsOn(ctx, providerID, cfg, date, durationMinutes, availableOnly, now, loc)
}

func (s *Service) slotsOn(
	ctx context.Context,
	providerID string,
	cfg schedule.Availability,
	date schedule.Date,
	durationMinutes int,
	availableOnly bool,
	now time.Time,
	loc *time.Location,
) (DaySlots, error) {
	result := DaySlots{
		ProviderID: providerID,
		Date:       date,
		Timezone:   loc.String(),
		Duration:   durationMinutes,
		Slots:      []schedule.TimeSlot{},
	}
	if reason := schedule.DayClosure(date, cfg); reason != "" {
		result.Status = "closed: " + reason
		s.countSlotQuery("closed")
		return result, nil
	}

	slots, err := s.annotated(ctx, providerID, cfg, date, durationMinutes)
	if err != nil {
		return DaySlots{}, err
	}
	if date == schedule.DateOf(now.In(loc)) {
		slots = schedule.FilterPast(slots, loc, now)
	}

	result.Status = DayOpen
	if len(schedule.AvailableOnly(slots)) == 0 {
		result.Status = DayFullyBooked
	}
	s.countSlotQuery(strings.ReplaceAll(result.Status, " ", "_"))
	if availableOnly {
		slots = schedule.AvailableOnly(slots)
	}
	result.Slots = slots
	return result, nil
}

func (s *Service) annotated(ctx context.Context, providerID string, cfg schedule.Availability, date schedule.Date, durationMinutes int) ([]schedule.TimeSlot, error) {
	key := cache.SlotsKey(providerID, date.String(), durationMinutes)
	if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var slots []schedule.TimeSlot
		if err := json.Unmarshal(raw, &slots); err == nil {
			s.countCache("hit")
			return slots, nil
		}
	} else if err != nil {
		s.log.Warn("slots cache: get failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	s.countCache("miss")
	gen := s.generations.current(providerID)

	existing, err := s.activeFor(ctx, providerID, date)
	if err != nil {
		return nil, err
	}
	slots, err := schedule.Compute(date, durationMinutes, cfg, bookingsOf(existing))
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidDuration, "invalid duration", err)
	}

	if s.generations.current(providerID) != gen {
		return slots, nil
	}
	if raw, err := json.Marshal(slots); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
			s.log.Warn("slots cache: set failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	return slots, nil
}

// invalidate drops every cached grid of the provider. Bumping the generation
// first stops grids computed before this call from being stored after it.
func (s *Service) invalidate(ctx context.Context, providerID string) {
	s.generations.bump(providerID)
	if err := s.cache.DeletePrefix(ctx, cache.SlotsPrefix(providerID)); err != nil {
		s.log.Warn("slots cache: invalidate failed", slog.String("provider_id", providerID), slog.String("error", err.Error()))
	}
}

// generations counts invalidations per provider within this process.
type generations struct {
	mu     sync.Mutex
	counts map[string]uint64
}

func newGenerations() *generations {
	return &generations{counts: make(map[string]uint64)}
}

func (g *generations) current(providerID string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counts[providerID]
}

func (g *generations) bump(providerID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counts[providerID]++
}

func (s *Service) countSlotQuery(outcome string) {
	if s.metrics != nil {
		s.metrics.SlotQueries.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) countCache(result string) {
	if s.metrics != nil {
		s.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

// NextAvailable scans forward from fromStr (today when empty) for the first
// open slot, staying inside the booking horizon.
func (s *Service) NextAvailable(ctx context.Context, providerID, fromStr string, durationMinutes int) (NextSlot, error) {
	providerID = strings.TrimSpace(providerID)
	cfg, err := s.availability.Get(ctx, providerID)
	if err != nil {
		return NextSlot{}, err
	}
	loc := cfg.Location(s.location)
	now := s.now()
	window := s.window(cfg)

	if strings.TrimSpace(fromStr) == "" {
		fromStr = window.Today(now).String()
	}
	from, err := window.ValidateDate(fromStr, now)
	if err != nil {
		return NextSlot{}, rejectionError(err)
	}

	last := window.LastBookable(now)
	for i := 0; i < NextAvailableDays; i++ {
		date := from.AddDays(i)
		if date.After(last) {
			break
		}
		day, err := s.slotsOn(ctx, providerID, cfg, date, durationMinutes, true, now, loc)
		if err != nil {
			return NextSlot{}, err
		}
		if len(day.Slots) > 0 {
			first := day.Slots[0]
			return NextSlot{
				ProviderID: providerID,
				Date:       date,
				Time:       first.Start,
				Timezone:   loc.String(),
				Duration:   durationMinutes,
				Slot:       first,
			}, nil
		}
	}
	return NextSlot{}, apperr.WithDetails(apperr.NotFound, "no availability found", map[string]string{
		"days": strconv.Itoa(NextAvailableDays),
	})
}

// Book validates a client booking and stores it as pending. A repeated
// idempotencyKey returns the original appointment with created=false.
func (s *Service) Book(ctx context.Context, providerID string, req BookingRequest, idempotencyKey string) (Appointment, bool, error) {
	providerID = strings.TrimSpace(providerID)
	cfg, err := s.availability.Get(ctx, providerID)
	if err != nil {
		return Appointment{}, false, err
	}
	loc := cfg.Location(s.location)
	now := s.now()

	date, clock, err := s.window(cfg).Check(req.Date, req.Time, now)
	if err != nil {
		return Appointment{}, false, rejectionError(err)
	}

	minutes, item, err := s.ResolveDuration(ctx, providerID, req.ServiceID, req.Duration)
	if err != nil {
		return Appointment{}, false, err
	}

	if reason := schedule.DayClosure(date, cfg); reason != "" {
		return Appointment{}, false, apperr.WithDetails(apperr.OutsideWindow, "provider unavailable on this date", map[string]string{
			"date": "closed: " + reason,
		})
	}
	grid, err := schedule.Generate(date, minutes, cfg)
	if err != nil {
		return Appointment{}, false, apperr.Wrap(apperr.InvalidDuration, "invalid duration", err)
	}
	if _, ok := schedule.FindSlot(grid, clock); !ok {
		return Appointment{}, false, apperr.WithDetails(apperr.OutsideWindow, "time outside business hours", map[string]string{
			"time": "slot",
		})
	}

	a := Appointment{
		ID:                s.newID(),
		ProviderID:        providerID,
		ClientName:        strings.TrimSpace(req.ClientName),
		ClientEmail:       strings.TrimSpace(req.ClientEmail),
		ClientPhone:       strings.TrimSpace(req.ClientPhone),
		Notes:             strings.TrimSpace(req.Notes),
		Date:              date,
		Time:              clock,
		Timezone:          loc.String(),
		EstimatedDuration: minutes,
		Status:            schedule.StatusPending,
		Source:            SourceBooking,
		IdempotencyKey:    strings.TrimSpace(idempotencyKey),
		CreatedAt:         now.UTC(),
		UpdatedAt:         now.UTC(),
	}
	withService(&a, item)

	return s.create(ctx, a, GuardFor(cfg))
}

// CreateManual records an appointment entered by the provider. It shares the
// booking window with client bookings and is checked against breaks and other
// bookings, but not against the slot grid.
func (s *Service) CreateManual(ctx context.Context, providerID string, req ManualRequest) (Appointment, error) {
	providerID = strings.TrimSpace(providerID)
	status := schedule.StatusPending
	if req.Status != "" {
		var err error
		if status, err = schedule.ParseStatus(req.Status); err != nil || !status.Active() || status == schedule.StatusInProgress {
			return Appointment{}, apperr.New(apperr.InvalidTransition, "manual entries start pending or confirmed")
		}
	}

	cfg, err := s.availability.Get(ctx, providerID)
	if err != nil {
		return Appointment{}, err
	}
	now := s.now()
	date, clock, err := s.window(cfg).Check(req.Date, req.Time, now)
	if err != nil {
		return Appointment{}, rejectionError(err)
	}
	minutes, item, err := s.ResolveDuration(ctx, providerID, req.ServiceID, req.Duration)
	if err != nil {
		return Appointment{}, err
	}
	if clock.Add(minutes) > schedule.MinutesPerDay {
		return Appointment{}, apperr.New(apperr.InvalidDuration, "appointment must end on the same day")
	}

	a := Appointment{
		ID:                s.newID(),
		ProviderID:        providerID,
		ClientName:        strings.TrimSpace(req.ClientName),
		ClientEmail:       strings.TrimSpace(req.ClientEmail),
		ClientPhone:       strings.TrimSpace(req.ClientPhone),
		Notes:             strings.TrimSpace(req.Notes),
		Date:              date,
		Time:              clock,
		Timezone:          cfg.Location(s.location).String(),
		EstimatedDuration: minutes,
		Status:            status,
		Source:            SourceManual,
		CreatedAt:         now.UTC(),
		UpdatedAt:         now.UTC(),
	}
	withService(&a, item)
	if req.Price != nil {
		price := req.Price.Round(2)
		if price.IsNegative() {
			return Appointment{}, apperr.WithDetails(apperr.InvalidConfiguration, "invalid price", map[string]string{"price": "gte"})
		}
		a.Price = &price
	}

	stored, _, err := s.create(ctx, a, GuardFor(cfg))
	return stored, err
}

func withService(a *Appointment, item *catalog.Service) {
	if item == nil {
		return
	}
	price := item.Price
	a.ServiceID = item.ID
	a.ServiceName = item.Name
	a.Price = &price
}

func (s *Service) create(ctx context.Context, a Appointment, guard Guard) (Appointment, bool, error) {
	stored, created, err := s.repo.CreateIfFree(ctx, a, guard)
	switch {
	case errors.Is(err, ErrSlotTaken):
		if s.metrics != nil {
			s.metrics.BookingConflicts.Inc()
		}
		return Appointment{}, false, apperr.Wrap(apperr.SlotNoLongerAvailable, "slot no longer available", err)
	case err != nil:
		return Appointment{}, false, apperr.Storage(err)
	}
	if created {
		s.invalidate(ctx, stored.ProviderID)
		if s.metrics != nil {
			s.metrics.BookingsCreated.WithLabelValues(stored.Source).Inc()
		}
		s.log.Info("appointments create: stored",
			slog.String("appointment_id", stored.ID),
			slog.String("provider_id", stored.ProviderID),
			slog.String("date", stored.Date.String()),
			slog.String("time", stored.Time.String()),
			slog.String("source", stored.Source),
		)
	}
	return stored, created, nil
}

func (s *Service) Get(ctx context.Context, id string) (Appointment, error) {
	var a Appointment
	err := db.Retry(ctx, func(ctx context.Context) error {
		var err error
		a, err = s.repo.Get(ctx, strings.TrimSpace(id))
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return Appointment{}, apperr.Wrap(apperr.NotFound, "appointment not found", err)
	}
	if err != nil {
		return Appointment{}, apperr.Storage(err)
	}
	return a, nil
}

// owned hides other providers' appointments behind NotFound.
func (s *Service) owned(ctx context.Context, providerID, id string) (Appointment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return Appointment{}, err
	}
	if a.ProviderID != providerID {
		return Appointment{}, apperr.Wrap(apperr.NotFound, "appointment not found", ErrNotFound)
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	var items []Appointment
	err := db.Retry(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.repo.List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return items, nil
}

// Transition moves an appointment through the status machine. Completing a
// priced appointment records its earning and archiving removes it.
func (s *Service) Transition(ctx context.Context, providerID, id, toStr string) (Appointment, error) {
	to, err := schedule.ParseStatus(toStr)
	if err != nil {
		return Appointment{}, apperr.Wrap(apperr.InvalidTransition, "unknown status", err)
	}
	current, err := s.owned(ctx, providerID, id)
	if err != nil {
		return Appointment{}, err
	}
	return s.transition(ctx, current, to, true)
}

// transition applies one status change. With syncLedger unset the earnings
// ledger is left alone, which keeps completed work on record when the sweeper
// archives it.
func (s *Service) transition(ctx context.Context, current Appointment, to schedule.Status, syncLedger bool) (Appointment, error) {
	if err := schedule.Transition(current.Status, to); err != nil {
		return Appointment{}, apperr.WithDetails(apperr.InvalidTransition, "invalid status transition", map[string]string{
			"from": string(current.Status),
			"to":   string(to),
		})
	}

	now := s.now().UTC()
	var deletedAt *time.Time
	if to == schedule.StatusArchived {
		deletedAt = &now
	}

	updated, err := s.repo.UpdateStatus(ctx, current.ID, current.Status, to, now, deletedAt)
	switch {
	case errors.Is(err, ErrNotFound):
		return Appointment{}, apperr.Wrap(apperr.NotFound, "appointment not found", err)
	case errors.Is(err, ErrStatusChanged):
		return Appointment{}, apperr.Wrap(apperr.InvalidTransition, "appointment status changed, reload and retry", err)
	case err != nil:
		return Appointment{}, apperr.Storage(err)
	}

	s.invalidate(ctx, updated.ProviderID)
	if s.metrics != nil {
		s.metrics.StatusTransitions.WithLabelValues(string(to)).Inc()
	}
	switch {
	case !syncLedger:
	case to == schedule.StatusCompleted:
		s.recordEarning(ctx, updated)
	case to == schedule.StatusArchived && updated.Price != nil:
		s.removeEarning(ctx, updated.ID)
	}
	s.log.Info("appointments status: changed",
		slog.String("appointment_id", updated.ID),
		slog.String("from", string(current.Status)),
		slog.String("to", string(to)),
	)
	return updated, nil
}

// recordEarning failures are logged; the ledger is derived and can be rebuilt.
func (s *Service) recordEarning(ctx context.Context, a Appointment) {
	if s.ledger == nil || a.Price == nil {
		return
	}
	entry := earnings.Entry{
		AppointmentID: a.ID,
		ProviderID:    a.ProviderID,
		ServiceName:   a.ServiceName,
		ClientName:    a.ClientName,
		Date:          a.Date,
		Amount:        a.Price.Round(2),
		RecordedAt:    s.now().UTC(),
	}
	if err := s.ledger.Record(ctx, entry); err != nil {
		s.log.Error("earnings record: failed",
			slog.String("appointment_id", a.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) SetActualDuration(ctx context.Context, providerID, id string, minutes int) (Appointment, error) {
	if minutes <= 0 || minutes > schedule.MinutesPerDay {
		return Appointment{}, apperr.New(apperr.InvalidDuration, "invalid duration")
	}
	if _, err := s.owned(ctx, providerID, id); err != nil {
		return Appointment{}, err
	}
	updated, err := s.repo.SetActualDuration(ctx, id, minutes, s.now().UTC())
	if errors.Is(err, ErrNotFound) {
		return Appointment{}, apperr.Wrap(apperr.NotFound, "appointment not found", err)
	}
	if err != nil {
		return Appointment{}, apperr.Storage(err)
	}
	s.invalidate(ctx, updated.ProviderID)
	return updated, nil
}

// Delete removes the appointment and its derived earning.
func (s *Service) Delete(ctx context.Context, providerID, id string) (Appointment, error) {
	if _, err := s.owned(ctx, providerID, id); err != nil {
		return Appointment{}, err
	}
	deleted, err := s.repo.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Appointment{}, apperr.Wrap(apperr.NotFound, "appointment not found", err)
	}
	if err != nil {
		return Appointment{}, apperr.Storage(err)
	}
	s.invalidate(ctx, deleted.ProviderID)
	s.removeEarning(ctx, deleted.ID)
	return deleted, nil
}

func (s *Service) removeEarning(ctx context.Context, appointmentID string) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.Remove(ctx, appointmentID); err != nil {
		s.log.Error("earnings remove: failed",
			slog.String("appointment_id", appointmentID),
			slog.String("error", err.Error()),
		)
	}
}

// SweepArchive archives completed and cancelled appointments untouched for
// longer than age. Appointments changed concurrently are skipped. Earnings of
// swept appointments stay in the ledger.
func (s *Service) SweepArchive(ctx context.Context, age time.Duration, limit int64) ([]Appointment, error) {
	cutoff := s.now().Add(-age)
	var stale []Appointment
	err := db.Retry(ctx, func(ctx context.Context) error {
		var err error
		stale, err = s.repo.ListStale(ctx, []schedule.Status{schedule.StatusCompleted, schedule.StatusCancelled}, cutoff, limit)
		return err
	})
	if err != nil {
		return nil, apperr.Storage(err)
	}

	archived := make([]Appointment, 0, len(stale))
	for _, a := range stale {
		updated, err := s.transition(ctx, a, schedule.StatusArchived, false)
		if err != nil {
			if apperr.Is(err, apperr.InvalidTransition) || apperr.Is(err, apperr.NotFound) {
				continue
			}
			return archived, err
		}
		archived = append(archived, updated)
	}
	return archived, nil
}

// MigrateStatuses rewrites legacy status spellings in storage.
func (s *Service) MigrateStatuses(ctx context.Context) (int64, error) {
	n, err := s.repo.MigrateStatuses(ctx, schedule.LegacyStatusMapping())
	if err != nil {
		return n, apperr.Storage(err)
	}
	return n, nil
}

// Total sums the prices of the appointments that were not cancelled.
func Total(items []Appointment) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range items {
		if a.Price != nil && a.Status != schedule.StatusCancelled {
			sum = sum.Add(*a.Price)
		}
	}
	return sum
}

func rejectionError(err error) error {
	var r *schedule.Rejection
	if !errors.As(err, &r) {
		return apperr.Wrap(apperr.OutsideWindow, "outside booking window", err)
	}
	switch r.Code {
	case schedule.RejectInvalidDate:
		return apperr.Wrap(apperr.InvalidDate, r.Reason, err)
	case schedule.RejectInvalidTime:
		return apperr.Wrap(apperr.InvalidTime, r.Reason, err)
	default:
		return apperr.WithDetails(apperr.OutsideWindow, r.Reason, map[string]string{"reason": r.Code})
	}
}
