package client

import (
	"github.com/ksred/job-tracker/internal/models"
)

// PendingKind is the operation a queued change replays
type PendingKind string

const (
	PendingAdd    PendingKind = "add"
	PendingUpdate PendingKind = "update"
	PendingDelete PendingKind = "delete"
)

// PendingChange is a mutation made offline, replayed on reconnect.
// For adds JobID is the temporary local id.
type PendingChange struct {
	Kind        PendingKind      `json:"kind"`
	JobID       int64            `json:"jobId"`
	Fields      models.JobFields `json:"fields,omitempty"`
	MutationIDs []string         `json:"mutationIds,omitempty"`
}

// MutationStatus tracks an optimistic change until the server answers
type MutationStatus string

const (
	MutationPending   MutationStatus = "pending"
	MutationConfirmed MutationStatus = "confirmed"
	MutationFailed    MutationStatus = "failed"
)

// Mutation is one optimistic change and what is needed to undo it
type Mutation struct {
	ID     string         `json:"id"`
	Kind   PendingKind    `json:"kind"`
	JobID  int64          `json:"jobId"`
	Status MutationStatus `json:"status"`
	Error  string         `json:"error,omitempty"`

	snapshot *models.Job
	index    int
}

// maxSettledMutations bounds how many confirmed or failed mutations are kept
const maxSettledMutations = 50

// State is everything the client knows about the job list
type State struct {
	Jobs      []models.Job
	Loading   bool
	Error     string
	Online    bool
	Pending   []PendingChange
	Mutations []Mutation
}

// Action is an event applied to State by Reduce
type Action interface {
	isAction()
}

type (
	FetchStarted   struct{}
	FetchSucceeded struct{ Jobs []models.Job }
	FetchFailed    struct{ Message string }

	AddStarted struct {
		MutationID string
		Job        models.Job
	}
	AddConfirmed struct {
		MutationID string
		TempID     int64
		Job        models.Job
	}
	AddFailed struct {
		MutationID string
		TempID     int64
		Message    string
	}

	UpdateStarted struct {
		MutationID string
		Job        models.Job
	}
	UpdateConfirmed struct {
		MutationID string
		Job        models.Job
	}
	UpdateFailed struct {
		MutationID string
		Message    string
	}

	DeleteStarted struct {
		MutationID string
		ID         int64
	}
	DeleteConfirmed struct{ MutationID string }
	DeleteFailed    struct {
		MutationID string
		Message    string
	}

	ChangeQueued   struct{ Change PendingChange }
	QueueTaken     struct{}
	ChangeReplayed struct {
		Change PendingChange
		Job    *models.Job
	}
	ChangesRequeued struct{ Changes []PendingChange }

	ConnectivityChanged struct{ Online bool }
	ErrorCleared        struct{}
)

func (FetchStarted) isAction()        {}
func (FetchSucceeded) isAction()      {}
func (FetchFailed) isAction()         {}
func (AddStarted) isAction()          {}
func (AddConfirmed) isAction()        {}
func (AddFailed) isAction()           {}
func (UpdateStarted) isAction()       {}
func (UpdateConfirmed) isAction()     {}
func (UpdateFailed) isAction()        {}
func (DeleteStarted) isAction()       {}
func (DeleteConfirmed) isAction()     {}
func (DeleteFailed) isAction()        {}
func (ChangeQueued) isAction()        {}
func (QueueTaken) isAction()          {}
func (ChangeReplayed) isAction()      {}
func (ChangesRequeued) isAction()     {}
func (ConnectivityChanged) isAction() {}
func (ErrorCleared) isAction()        {}

// Reduce returns the state after applying action. It never modifies state.
func Reduce(state State, action Action) State {
	next := state.clone()

	switch a := action.(type) {
	case FetchStarted:
		next.Loading = true

	case FetchSucceeded:
		next.Loading = false
		next.Error = ""
		next.Jobs = append(copyJobs(a.Jobs), unsyncedJobs(state)...)

	case FetchFailed:
		next.Loading = false
		next.Error = a.Message

	case AddStarted:
		next.Jobs = append(next.Jobs, a.Job)
		next.track(Mutation{ID: a.MutationID, Kind: PendingAdd, JobID: a.Job.ID, Status: MutationPending})

	case AddConfirmed:
		next.Jobs = replaceJob(next.Jobs, a.TempID, a.Job)
		next.settle(a.MutationID, MutationConfirmed, "")

	case AddFailed:
		next.Jobs = removeJob(next.Jobs, a.TempID)
		next.Error = a.Message
		next.settle(a.MutationID, MutationFailed, a.Message)

	case UpdateStarted:
		m := Mutation{ID: a.MutationID, Kind: PendingUpdate, JobID: a.Job.ID, Status: MutationPending}
		if i := indexOf(next.Jobs, a.Job.ID); i >= 0 {
			old := next.Jobs[i]
			m.snapshot = &old
			next.Jobs[i] = a.Job
		}
		next.track(m)

	case UpdateConfirmed:
		next.Jobs = replaceJob(next.Jobs, a.Job.ID, a.Job)
		next.settle(a.MutationID, MutationConfirmed, "")

	case UpdateFailed:
		if m, ok := next.mutation(a.MutationID); ok && m.snapshot != nil {
			next.Jobs = replaceJob(next.Jobs, m.JobID, *m.snapshot)
		}
		next.Error = a.Message
		next.settle(a.MutationID, MutationFailed, a.Message)

	case DeleteStarted:
		m := Mutation{ID: a.MutationID, Kind: PendingDelete, JobID: a.ID, Status: MutationPending}
		if i := indexOf(next.Jobs, a.ID); i >= 0 {
			old := next.Jobs[i]
			m.snapshot = &old
			m.index = i
			next.Jobs = append(next.Jobs[:i:i], next.Jobs[i+1:]...)
		}
		next.track(m)

	case DeleteConfirmed:
		next.settle(a.MutationID, MutationConfirmed, "")

	case DeleteFailed:
		if m, ok := next.mutation(a.MutationID); ok && m.snapshot != nil && indexOf(next.Jobs, m.JobID) < 0 {
			next.Jobs = insertJob(next.Jobs, m.index, *m.snapshot)
		}
		next.Error = a.Message
		next.settle(a.MutationID, MutationFailed, a.Message)

	case ChangeQueued:
		var done []string
		next.Pending, done = enqueue(next.Pending, a.Change)
		for _, id := range done {
			next.settle(id, MutationConfirmed, "")
		}

	case ChangeReplayed:
		if a.Job != nil {
			next.Jobs = replaceJob(next.Jobs, a.Change.JobID, *a.Job)
		}
		for _, id := range a.Change.MutationIDs {
			next.settle(id, MutationConfirmed, "")
		}

	case QueueTaken:
		next.Pending = nil

	case ChangesRequeued:
		// failed replays go back in front of anything queued meanwhile
		next.Pending = append(append([]PendingChange{}, a.Changes...), next.Pending...)

	case ConnectivityChanged:
		next.Online = a.Online

	case ErrorCleared:
		next.Error = ""
	}

	return next
}

// enqueue appends change, folding edits of a record that only exists as a
// queued add into that add so replay never targets a temporary id. It returns
// the mutations that no longer need the server: an add and its edits
// cancelled by a delete.
func enqueue(queue []PendingChange, change PendingChange) ([]PendingChange, []string) {
	if change.JobID < 0 && change.Kind != PendingAdd {
		for i, queued := range queue {
			if queued.Kind != PendingAdd || queued.JobID != change.JobID {
				continue
			}
			ids := append(append([]string(nil), queued.MutationIDs...), change.MutationIDs...)
			if change.Kind == PendingDelete {
				return append(queue[:i:i], queue[i+1:]...), ids
			}
			queue[i].Fields = change.Fields
			queue[i].MutationIDs = ids
			return queue, nil
		}
	}
	return append(queue, change), nil
}

func (s State) hasQueuedAdd(tempID int64) bool {
	for _, change := range s.Pending {
		if change.Kind == PendingAdd && change.JobID == tempID {
			return true
		}
	}
	return false
}

// unsyncedJobs are local records whose add is still queued
func unsyncedJobs(state State) []models.Job {
	var jobs []models.Job
	for _, job := range state.Jobs {
		if job.ID < 0 && state.hasQueuedAdd(job.ID) {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

func (s State) clone() State {
	next := s
	next.Jobs = copyJobs(s.Jobs)
	if s.Pending != nil {
		next.Pending = append([]PendingChange(nil), s.Pending...)
	}
	if s.Mutations != nil {
		next.Mutations = append([]Mutation(nil), s.Mutations...)
	}
	return next
}

func (s *State) track(m Mutation) {
	s.Mutations = append(s.Mutations, m)
}

func (s *State) mutation(id string) (Mutation, bool) {
	for _, m := range s.Mutations {
		if m.ID == id {
			return m, true
		}
	}
	return Mutation{}, false
}

// settle marks a mutation done and drops the oldest settled ones past the bound
func (s *State) settle(id string, status MutationStatus, message string) {
	settled := 0
	for i := range s.Mutations {
		if s.Mutations[i].ID == id {
			s.Mutations[i].Status = status
			s.Mutations[i].Error = message
			s.Mutations[i].snapshot = nil
		}
		if s.Mutations[i].Status != MutationPending {
			settled++
		}
	}

	kept := s.Mutations[:0]
	for _, m := range s.Mutations {
		if m.Status != MutationPending && settled > maxSettledMutations {
			settled--
			continue
		}
		kept = append(kept, m)
	}
	s.Mutations = kept
}

// PendingMutations returns the mutations still waiting for the server
func (s State) PendingMutations() []Mutation {
	var pending []Mutation
	for _, m := range s.Mutations {
		if m.Status == MutationPending {
			pending = append(pending, m)
		}
	}
	return pending
}

// Job returns the local record with id
func (s State) Job(id int64) (models.Job, bool) {
	if i := indexOf(s.Jobs, id); i >= 0 {
		return s.Jobs[i], true
	}
	return models.Job{}, false
}

func copyJobs(jobs []models.Job) []models.Job {
	if jobs == nil {
		return nil
	}
	return append([]models.Job(nil), jobs...)
}

func indexOf(jobs []models.Job, id int64) int {
	for i := range jobs {
		if jobs[i].ID == id {
			return i
		}
	}
	return -1
}

func replaceJob(jobs []models.Job, id int64, job models.Job) []models.Job {
	if i := indexOf(jobs, id); i >= 0 {
		jobs[i] = job
	}
	return jobs
}

func removeJob(jobs []models.Job, id int64) []models.Job {
	if i := indexOf(jobs, id); i >= 0 {
		return append(jobs[:i:i], jobs[i+1:]...)
	}
	return jobs
}

func insertJob(jobs []models.Job, index int, job models.Job) []models.Job {
	if index < 0 || index > len(jobs) {
		index = len(jobs)
	}
	out := make([]models.Job, 0, len(jobs)+1)
	out = append(out, jobs[:index]...)
	out = append(out, job)
	return append(out, jobs[index:]...)
}
