package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ksred/job-tracker/internal/models"
	"github.com/ksred/job-tracker/internal/services"
)

var (
	// ErrUnknownJob is returned when a mutation names a job the store does not hold
	ErrUnknownJob = errors.New("job not found in local state")

	// ErrNotSynced is returned when a job is still being created on the server
	ErrNotSynced = errors.New("job is not yet saved on the server")
)

// Store keeps a local copy of the job list in sync with the server.
// Mutations are applied locally first and rolled back if the server
// rejects them. While offline they are queued and replayed on reconnect.
type Store struct {
	api    *API
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    State
	lastTemp int64
	draining bool
	onChange func(State)
	notify   []State
}

// NewStore creates a store that starts online with an empty list
func NewStore(api *API, logger zerolog.Logger) *Store {
	return &Store{
		api:    api,
		logger: logger,
		now:    time.Now,
		state:  State{Online: true},
	}
}

// OnChange registers fn to receive every new state. fn runs after the
// store's lock is released, so it may call back into the Store.
func (s *Store) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.unlock()
	s.onChange = fn
}

// State returns a copy of the current state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.unlock()
	return s.state.clone()
}

// ClearError forgets the last error message
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.unlock()
	s.dispatch(ErrorCleared{})
}

// dispatch must be called with mu held. Listeners are told on unlock.
func (s *Store) dispatch(action Action) {
	s.state = Reduce(s.state, action)
	if s.onChange != nil {
		s.notify = append(s.notify, s.state.clone())
	}
}

// unlock releases mu and then hands the states dispatched under it to the
// listener, in order.
func (s *Store) unlock() {
	pending, fn := s.notify, s.onChange
	s.notify = nil
	s.mu.Unlock()

	for _, state := range pending {
		fn(state)
	}
}

// nextTempID must be called with mu held
func (s *Store) nextTempID() int64 {
	s.lastTemp--
	return s.lastTemp
}

// Refresh refetches the full list. It does nothing while offline.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if !s.state.Online {
		s.unlock()
		return nil
	}
	s.dispatch(FetchStarted{})
	s.unlock()

	page, err := s.api.ListJobs(ctx, services.MaxLimit, 0)

	s.mu.Lock()
	defer s.unlock()
	if err != nil {
		s.dispatch(FetchFailed{Message: "Failed to load jobs: " + err.Error()})
		return err
	}
	s.dispatch(FetchSucceeded{Jobs: page.Data})
	return nil
}

// Add creates a job. The returned job carries a temporary negative id
// until the server has confirmed it.
func (s *Store) Add(ctx context.Context, fields models.JobFields) (models.Job, error) {
	s.mu.Lock()
	tempID := s.nextTempID()
	job := s.localJob(tempID, fields)
	mutationID := uuid.NewString()

	s.dispatch(AddStarted{MutationID: mutationID, Job: job})

	if !s.state.Online {
		s.dispatch(ChangeQueued{Change: PendingChange{
			Kind:        PendingAdd,
			JobID:       tempID,
			Fields:      fields,
			MutationIDs: []string{mutationID},
		}})
		s.unlock()
		s.logger.Debug().Int64("temp_id", tempID).Msg("Offline, queued add")
		return job, nil
	}
	s.unlock()

	created, err := s.api.CreateJob(ctx, fields)

	s.mu.Lock()
	defer s.unlock()
	if err != nil {
		s.dispatch(AddFailed{MutationID: mutationID, TempID: tempID, Message: "Failed to add job: " + err.Error()})
		return models.Job{}, err
	}
	s.dispatch(AddConfirmed{MutationID: mutationID, TempID: tempID, Job: *created})
	return *created, nil
}

// Update applies fields to a job. Empty strings and nil pointers keep the
// current value. The merged record is sent as a full update.
func (s *Store) Update(ctx context.Context, id int64, fields models.JobFields) (models.Job, error) {
	s.mu.Lock()
	current, ok := s.state.Job(id)
	if !ok {
		s.unlock()
		return models.Job{}, fmt.Errorf("update job %d: %w", id, ErrUnknownJob)
	}
	if id < 0 && !s.state.hasQueuedAdd(id) {
		s.unlock()
		return models.Job{}, fmt.Errorf("update job %d: %w", id, ErrNotSynced)
	}

	merged := overlay(current, fields)
	merged.LastUpdated = s.now().UnixMilli()
	mutationID := uuid.NewString()

	s.dispatch(UpdateStarted{MutationID: mutationID, Job: merged})

	// an unsynced record can only change inside its queued add
	if !s.state.Online || id < 0 {
		s.dispatch(ChangeQueued{Change: PendingChange{
			Kind:        PendingUpdate,
			JobID:       id,
			Fields:      merged.Fields(),
			MutationIDs: []string{mutationID},
		}})
		s.unlock()
		return merged, nil
	}
	s.unlock()

	updated, err := s.api.UpdateJob(ctx, id, merged.Fields())

	s.mu.Lock()
	defer s.unlock()
	if err != nil {
		s.dispatch(UpdateFailed{MutationID: mutationID, Message: "Failed to update job: " + err.Error()})
		return models.Job{}, err
	}
	s.dispatch(UpdateConfirmed{MutationID: mutationID, Job: *updated})
	return *updated, nil
}

// UpdateStatus moves a job to status, resending its title and company
func (s *Store) UpdateStatus(ctx context.Context, id int64, status string) (models.Job, error) {
	s.mu.Lock()
	current, ok := s.state.Job(id)
	s.unlock()
	if !ok {
		return models.Job{}, fmt.Errorf("update job %d: %w", id, ErrUnknownJob)
	}

	return s.Update(ctx, id, models.JobFields{
		Title:   current.Title,
		Company: current.Company,
		Status:  status,
	})
}

// Delete removes a job
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	if _, ok := s.state.Job(id); !ok {
		s.unlock()
		return fmt.Errorf("delete job %d: %w", id, ErrUnknownJob)
	}
	if id < 0 && !s.state.hasQueuedAdd(id) {
		s.unlock()
		return fmt.Errorf("delete job %d: %w", id, ErrNotSynced)
	}

	mutationID := uuid.NewString()
	s.dispatch(DeleteStarted{MutationID: mutationID, ID: id})

	if !s.state.Online || id < 0 {
		s.dispatch(ChangeQueued{Change: PendingChange{
			Kind:        PendingDelete,
			JobID:       id,
			MutationIDs: []string{mutationID},
		}})
		s.unlock()
		return nil
	}
	s.unlock()

	_, err := s.api.DeleteJob(ctx, id)

	s.mu.Lock()
	defer s.unlock()
	if err != nil {
		s.dispatch(DeleteFailed{MutationID: mutationID, Message: "Failed to delete job: " + err.Error()})
		return err
	}
	s.dispatch(DeleteConfirmed{MutationID: mutationID})
	return nil
}

// SetOnline records connectivity. Coming back online replays the queue in
// order and then refetches the list, whatever the replay outcome.
func (s *Store) SetOnline(ctx context.Context, online bool) error {
	s.mu.Lock()
	wasOnline := s.state.Online
	if wasOnline != online {
		s.dispatch(ConnectivityChanged{Online: online})
	}
	if !online || wasOnline || s.draining {
		s.unlock()
		return nil
	}
	s.draining = true
	s.unlock()

	defer func() {
		s.mu.Lock()
		s.draining = false
		s.unlock()
	}()

	s.logger.Info().Msg("Back online, replaying queued changes")
	s.drain(ctx)
	return s.Refresh(ctx)
}

func (s *Store) drain(ctx context.Context) {
	s.mu.Lock()
	queue := s.state.Pending
	s.dispatch(QueueTaken{})
	s.unlock()

	var failed []PendingChange
	for _, change := range queue {
		if err := s.replay(ctx, change); err != nil {
			s.logger.Warn().
				Err(err).
				Str("kind", string(change.Kind)).
				Int64("job_id", change.JobID).
				Msg("Replay failed, keeping change queued")
			failed = append(failed, change)
		}
	}

	if len(failed) > 0 {
		s.mu.Lock()
		s.dispatch(ChangesRequeued{Changes: failed})
		s.unlock()
	}
}

func (s *Store) replay(ctx context.Context, change PendingChange) error {
	var (
		job *models.Job
		err error
	)
	switch change.Kind {
	case PendingAdd:
		job, err = s.api.CreateJob(ctx, change.Fields)
	case PendingUpdate:
		job, err = s.api.UpdateJob(ctx, change.JobID, change.Fields)
	case PendingDelete:
		_, err = s.api.DeleteJob(ctx, change.JobID)
		// already gone is what the delete wanted
		if IsStatus(err, http.StatusNotFound) {
			err = nil
		}
	default:
		err = fmt.Errorf("unknown pending change %q", change.Kind)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.dispatch(ChangeReplayed{Change: change, Job: job})
	s.unlock()
	return nil
}

// WatchConnectivity probes the server every interval and feeds the result
// to SetOnline until ctx is done.
func (s *Store) WatchConnectivity(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.api.Probe(ctx)
			if ctx.Err() != nil {
				return
			}
			// any HTTP answer means the server is reachable
			var apiErr *APIError
			online := err == nil || errors.As(err, &apiErr)
			if setErr := s.SetOnline(ctx, online); setErr != nil {
				s.logger.Warn().Err(setErr).Msg("Refresh after reconnect failed")
			}
		}
	}
}

// localJob builds the optimistic record for an add
func (s *Store) localJob(id int64, fields models.JobFields) models.Job {
	job := models.Job{
		ID:          id,
		Title:       strings.TrimSpace(fields.Title),
		Company:     strings.TrimSpace(fields.Company),
		Location:    fields.Location,
		RemoteType:  fields.RemoteType,
		SalaryMin:   fields.SalaryMin,
		SalaryMax:   fields.SalaryMax,
		Status:      fields.Status,
		JobURL:      fields.JobURL,
		Notes:       fields.Notes,
		LastUpdated: fields.LastUpdated.Millis(s.now()),
	}
	if job.RemoteType == "" {
		job.RemoteType = models.RemoteTypeOnSite
	}
	if job.Status == "" {
		job.Status = models.StatusApplied
	}
	return job
}

// overlay applies the set fields of patch over job
func overlay(job models.Job, patch models.JobFields) models.Job {
	if patch.Title != "" {
		job.Title = patch.Title
	}
	if patch.Company != "" {
		job.Company = patch.Company
	}
	if patch.Location != nil {
		job.Location = patch.Location
	}
	if patch.RemoteType != "" {
		job.RemoteType = patch.RemoteType
	}
	if patch.SalaryMin != nil {
		job.SalaryMin = patch.SalaryMin
	}
	if patch.SalaryMax != nil {
		job.SalaryMax = patch.SalaryMax
	}
	if patch.Status != "" {
		job.Status = patch.Status
	}
	if patch.JobURL != nil {
		job.JobURL = patch.JobURL
	}
	if patch.Notes != nil {
		job.Notes = patch.Notes
	}
	return job
}
