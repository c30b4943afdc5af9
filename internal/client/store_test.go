package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ksred/job-tracker/internal/api"
	"github.com/ksred/job-tracker/internal/config"
	"github.com/ksred/job-tracker/internal/database"
	"github.com/ksred/job-tracker/internal/database/migrations"
	"github.com/ksred/job-tracker/internal/models"
	"github.com/ksred/job-tracker/internal/services"
	"github.com/ksred/job-tracker/internal/utils"
)

// backend is the real HTTP API over in-memory SQLite, with request
// counting and switchable failure.
type backend struct {
	handler http.Handler
	failing atomic.Bool

	mu    sync.Mutex
	calls map[string]int
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.calls[r.Method+" "+r.URL.Path]++
	b.mu.Unlock()

	if b.failing.Load() {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	b.handler.ServeHTTP(w, r)
}

func (b *backend) count(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method+" "+path]
}

func (b *backend) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

func setupStore(t *testing.T) (*Store, *backend) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	log := utils.NewLogger(utils.LoggerConfig{Level: "error"})
	_, err = migrations.Apply(context.Background(), db, log)
	require.NoError(t, err)

	cfg := config.NewDefault()
	cfg.RateLimit.MaxRequests = 10000

	wrapped := &database.Database{}
	wrapped.SetDB(db)

	server, err := api.NewServer(cfg, wrapped, services.NewJobService(db, log), log)
	require.NoError(t, err)

	b := &backend{handler: server.Handler(), calls: map[string]int{}}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	apiClient := NewAPI(srv.URL, 5*time.Second, zerolog.Nop()).WithBackOff(zeroBackOff)
	return NewStore(apiClient, zerolog.Nop()), b
}

func strPtr(s string) *string { return &s }

func TestStore_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("success replaces temporary id", func(t *testing.T) {
		store, _ := setupStore(t)

		var seen []State
		store.OnChange(func(s State) { seen = append(seen, s) })

		job, err := store.Add(ctx, models.JobFields{Title: "Go Developer", Company: "Gopher Co"})
		require.NoError(t, err)
		assert.Positive(t, job.ID)

		state := store.State()
		require.Len(t, state.Jobs, 1)
		assert.Equal(t, job.ID, state.Jobs[0].ID)
		assert.Empty(t, state.PendingMutations())

		// the optimistic row was visible before the server answered
		require.NotEmpty(t, seen)
		require.Len(t, seen[0].Jobs, 1)
		assert.Negative(t, seen[0].Jobs[0].ID)
		assert.Equal(t, models.StatusApplied, seen[0].Jobs[0].Status)
	})

	t.Run("failure rolls back", func(t *testing.T) {
		store, _ := setupStore(t)

		_, err := store.Add(ctx, models.JobFields{Title: "Go Developer"})
		require.Error(t, err)
		assert.True(t, IsStatus(err, http.StatusBadRequest))

		state := store.State()
		assert.Empty(t, state.Jobs)
		assert.Contains(t, state.Error, "Failed to add job")
		require.Len(t, state.Mutations, 1)
		assert.Equal(t, MutationFailed, state.Mutations[0].Status)

		store.ClearError()
		assert.Empty(t, store.State().Error)
	})
}

func TestStore_ListenerMayCallBack(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	var cleared atomic.Int32
	store.OnChange(func(s State) {
		if s.Error != "" {
			cleared.Add(1)
			store.ClearError()
		}
		_ = store.State()
	})

	done := make(chan error, 1)
	go func() {
		_, err := store.Add(ctx, models.JobFields{Title: "Go Developer"})
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener calling back into the store blocked")
	}

	assert.Equal(t, int32(1), cleared.Load())
	assert.Empty(t, store.State().Error)
}

func TestStore_UpdateAndDeleteFailuresRollBack(t *testing.T) {
	ctx := context.Background()
	store, b := setupStore(t)

	job, err := store.Add(ctx, models.JobFields{Title: "SRE", Company: "Initech", Notes: strPtr("first call")})
	require.NoError(t, err)

	b.failing.Store(true)

	_, err = store.UpdateStatus(ctx, job.ID, models.StatusOffer)
	require.Error(t, err)
	state := store.State()
	require.Len(t, state.Jobs, 1)
	assert.Equal(t, job, state.Jobs[0])
	assert.Contains(t, state.Error, "Failed to update job")

	err = store.Delete(ctx, job.ID)
	require.Error(t, err)
	state = store.State()
	require.Len(t, state.Jobs, 1)
	assert.Equal(t, job.ID, state.Jobs[0].ID)
	assert.Contains(t, state.Error, "Failed to delete job")
}

func TestStore_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	job, err := store.Add(ctx, models.JobFields{Title: "SRE", Company: "Initech", Location: strPtr("Berlin")})
	require.NoError(t, err)

	updated, err := store.UpdateStatus(ctx, job.ID, models.StatusInterview)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInterview, updated.Status)
	require.NotNil(t, updated.Location)
	assert.Equal(t, "Berlin", *updated.Location)

	require.NoError(t, store.Delete(ctx, job.ID))
	assert.Empty(t, store.State().Jobs)

	_, err = store.Update(ctx, job.ID, models.JobFields{Notes: strPtr("gone")})
	assert.ErrorIs(t, err, ErrUnknownJob)
	assert.ErrorIs(t, store.Delete(ctx, 12345), ErrUnknownJob)
}

func TestStore_OfflineUpdateIsQueued(t *testing.T) {
	ctx := context.Background()
	store, b := setupStore(t)

	job, err := store.Add(ctx, models.JobFields{Title: "SRE", Company: "Initech"})
	require.NoError(t, err)
	require.NoError(t, store.SetOnline(ctx, false))

	before := b.total()
	updated, err := store.UpdateStatus(ctx, job.ID, models.StatusOffer)
	require.NoError(t, err)
	assert.Equal(t, before, b.total())

	state := store.State()
	assert.False(t, state.Online)
	require.Len(t, state.Pending, 1)
	assert.Equal(t, PendingUpdate, state.Pending[0].Kind)
	assert.Equal(t, job.ID, state.Pending[0].JobID)
	assert.Equal(t, models.StatusOffer, state.Pending[0].Fields.Status)
	assert.Equal(t, models.StatusOffer, state.Jobs[0].Status)
	assert.Equal(t, updated, state.Jobs[0])
	assert.Len(t, state.PendingMutations(), 1)

	// Refresh is a no-op while offline
	require.NoError(t, store.Refresh(ctx))
	assert.Equal(t, before, b.total())

	require.NoError(t, store.SetOnline(ctx, true))
	state = store.State()
	assert.Empty(t, state.Pending)
	assert.Empty(t, state.PendingMutations())
	assert.Equal(t, models.StatusOffer, state.Jobs[0].Status)
	assert.Equal(t, 1, b.count(http.MethodPut, jobPath(job.ID)))
}

func TestStore_OfflineAddThenUpdateReplaysOnePost(t *testing.T) {
	ctx := context.Background()
	store, b := setupStore(t)
	require.NoError(t, store.SetOnline(ctx, false))

	local, err := store.Add(ctx, models.JobFields{Title: "Platform Engineer", Company: "Umbrella"})
	require.NoError(t, err)
	assert.Negative(t, local.ID)

	_, err = store.Update(ctx, local.ID, models.JobFields{Status: models.StatusScreening, Notes: strPtr("recruiter call")})
	require.NoError(t, err)

	state := store.State()
	require.Len(t, state.Pending, 1)
	assert.Equal(t, PendingAdd, state.Pending[0].Kind)
	assert.Equal(t, 0, b.total())

	require.NoError(t, store.SetOnline(ctx, true))

	assert.Equal(t, 1, b.count(http.MethodPost, "/api/jobs"))
	assert.Equal(t, 1, b.count(http.MethodGet, "/api/jobs"))
	assert.Zero(t, b.count(http.MethodPut, jobPath(local.ID)))

	state = store.State()
	assert.Empty(t, state.Pending)
	assert.Empty(t, state.PendingMutations())
	require.Len(t, state.Jobs, 1)
	assert.Positive(t, state.Jobs[0].ID)
	assert.Equal(t, models.StatusScreening, state.Jobs[0].Status)
	require.NotNil(t, state.Jobs[0].Notes)
	assert.Equal(t, "recruiter call", *state.Jobs[0].Notes)
}

func TestStore_OfflineAddThenDeleteCancels(t *testing.T) {
	ctx := context.Background()
	store, b := setupStore(t)
	require.NoError(t, store.SetOnline(ctx, false))

	local, err := store.Add(ctx, models.JobFields{Title: "QA", Company: "Hooli"})
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, local.ID))

	state := store.State()
	assert.Empty(t, state.Pending)
	assert.Empty(t, state.Jobs)
	assert.Empty(t, state.PendingMutations())

	require.NoError(t, store.SetOnline(ctx, true))
	assert.Zero(t, b.count(http.MethodPost, "/api/jobs"))
	assert.Empty(t, store.State().Jobs)
}

func TestStore_FailedReplayIsRequeued(t *testing.T) {
	ctx := context.Background()
	store, b := setupStore(t)

	job, err := store.Add(ctx, models.JobFields{Title: "SRE", Company: "Initech"})
	require.NoError(t, err)
	require.NoError(t, store.SetOnline(ctx, false))

	_, err = store.UpdateStatus(ctx, job.ID, models.StatusRejected)
	require.NoError(t, err)

	b.failing.Store(true)
	err = store.SetOnline(ctx, true)
	require.Error(t, err)

	state := store.State()
	require.Len(t, state.Pending, 1)
	assert.Equal(t, PendingUpdate, state.Pending[0].Kind)
	assert.Contains(t, state.Error, "Failed to load jobs")
	assert.Len(t, state.PendingMutations(), 1)

	b.failing.Store(false)
	require.NoError(t, store.SetOnline(ctx, false))
	require.NoError(t, store.SetOnline(ctx, true))

	state = store.State()
	assert.Empty(t, state.Pending)
	assert.Empty(t, state.Error)
	assert.Equal(t, models.StatusRejected, state.Jobs[0].Status)
}

func TestStore_ReplayedDeleteOfMissingJobSucceeds(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	job, err := store.Add(ctx, models.JobFields{Title: "SRE", Company: "Initech"})
	require.NoError(t, err)
	require.NoError(t, store.SetOnline(ctx, false))
	require.NoError(t, store.Delete(ctx, job.ID))

	// someone else removes it first
	_, err = store.api.DeleteJob(ctx, job.ID)
	require.NoError(t, err)

	require.NoError(t, store.SetOnline(ctx, true))
	state := store.State()
	assert.Empty(t, state.Pending)
	assert.Empty(t, state.Jobs)
	assert.Empty(t, state.PendingMutations())
}

func TestStore_UnsyncedJobCannotChangeOnline(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	store.mu.Lock()
	store.dispatch(AddStarted{MutationID: "m1", Job: models.Job{ID: -7, Title: "Dev", Company: "Acme"}})
	store.mu.Unlock()

	_, err := store.UpdateStatus(ctx, -7, models.StatusOffer)
	assert.ErrorIs(t, err, ErrNotSynced)
	assert.ErrorIs(t, store.Delete(ctx, -7), ErrNotSynced)
}

func TestStore_RefreshKeepsQueuedAdds(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	_, err := store.Add(ctx, models.JobFields{Title: "Existing", Company: "Acme"})
	require.NoError(t, err)

	require.NoError(t, store.SetOnline(ctx, false))
	_, err = store.Add(ctx, models.JobFields{Title: "Queued", Company: "Acme"})
	require.NoError(t, err)

	// the store thinks it is offline but the server is up; force a fetch
	store.mu.Lock()
	store.state.Online = true
	store.mu.Unlock()
	require.NoError(t, store.Refresh(ctx))

	state := store.State()
	require.Len(t, state.Jobs, 2)
	assert.Equal(t, "Queued", state.Jobs[1].Title)
	assert.Len(t, state.Pending, 1)
}

func TestStore_WatchConnectivity(t *testing.T) {
	store, b := setupStore(t)
	require.NoError(t, store.SetOnline(context.Background(), false))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.WatchConnectivity(ctx, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return store.State().Online
	}, 2*time.Second, 10*time.Millisecond)
	assert.Positive(t, b.count(http.MethodGet, "/api/status"))

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WatchConnectivity did not stop")
	}
}
