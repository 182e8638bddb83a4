//go:build integration

package appointments

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tapdetail-backend/internal/db"
	"tapdetail-backend/internal/schedule"
)

// Run with a replica-set Mongo, e.g.
// TAPDETAIL_TEST_MONGO_URI=mongodb://localhost:27017/?replicaSet=rs0 go test -tags integration ./internal/appointments/
func newMongoRepository(t *testing.T) *MongoRepository {
	t.Helper()
	uri := os.Getenv("TAPDETAIL_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TAPDETAIL_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	name := "tapdetail_it_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	client, cols, err := db.Connect(ctx, uri, name)
	require.NoError(t, err)
	require.NoError(t, db.EnsureIndexes(ctx, cols))
	t.Cleanup(func() {
		_ = client.Database(name).Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return NewRepository(cols.Appointments, cols.BookingDays)
}

func mongoAppointment(t *testing.T, clock, key string) Appointment {
	t.Helper()
	date, err := schedule.ParseDate("2026-02-03")
	require.NoError(t, err)
	start, err := schedule.ParseClock(clock)
	require.NoError(t, err)
	now := time.Now().UTC().Truncate(time.Millisecond)
	return Appointment{
		ID:                uuid.NewString(),
		ProviderID:        "prov-it",
		ClientName:        "Ada",
		Date:              date,
		Time:              start,
		Timezone:          "UTC",
		EstimatedDuration: 60,
		Status:            schedule.StatusPending,
		Source:            SourceBooking,
		IdempotencyKey:    key,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestMongoCreateIfFreeRejectsOverlap(t *testing.T) {
	repo := newMongoRepository(t)
	ctx := context.Background()
	guard := Guard{BufferMinutes: 15}

	first, created, err := repo.CreateIfFree(ctx, mongoAppointment(t, "09:00", ""), guard)
	require.NoError(t, err)
	assert.True(t, created)

	_, _, err = repo.CreateIfFree(ctx, mongoAppointment(t, "10:00", ""), guard)
	assert.ErrorIs(t, err, ErrSlotTaken)

	_, created, err = repo.CreateIfFree(ctx, mongoAppointment(t, "10:15", ""), guard)
	require.NoError(t, err)
	assert.True(t, created)

	active, err := repo.ListActiveForDate(ctx, "prov-it", first.Date)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestMongoCreateIfFreeRespectsBreaks(t *testing.T) {
	repo := newMongoRepository(t)
	guard := Guard{Breaks: []schedule.Break{{Day: schedule.Tuesday, Start: schedule.NewClock(12, 0), End: schedule.NewClock(13, 0)}}}

	_, _, err := repo.CreateIfFree(context.Background(), mongoAppointment(t, "11:30", ""), guard)
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestMongoCreateIfFreeIdempotencyKey(t *testing.T) {
	repo := newMongoRepository(t)
	ctx := context.Background()

	original, created, err := repo.CreateIfFree(ctx, mongoAppointment(t, "09:00", "key-1"), Guard{})
	require.NoError(t, err)
	require.True(t, created)

	replay, created, err := repo.CreateIfFree(ctx, mongoAppointment(t, "14:00", "key-1"), Guard{})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, original.ID, replay.ID)
}

func TestMongoConcurrentBookingsOnlyOneWins(t *testing.T) {
	repo := newMongoRepository(t)
	ctx := context.Background()

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		taken   int
	)
	for i := 0; i < workers; i++ {
		a := mongoAppointment(t, "09:00", "")
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := repo.CreateIfFree(ctx, a, Guard{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && ok:
				created++
			case errors.Is(err, ErrSlotTaken):
				taken++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, taken)
}

func TestMongoConcurrentReplaysShareOneAppointment(t *testing.T) {
	repo := newMongoRepository(t)
	ctx := context.Background()

	const workers = 6
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = make(map[string]bool)
		created int
	)
	for i := 0; i < workers; i++ {
		a := mongoAppointment(t, "09:00", "shared-key")
		a.ClientName = "Ada " + strconv.Itoa(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			stored, ok, err := repo.CreateIfFree(ctx, a, Guard{})
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			ids[stored.ID] = true
			if ok {
				created++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, ids, 1)
}
