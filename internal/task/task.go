package task

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nvson/creatorstudio/internal/models"
)

// ---------------------------------------------------------------------------
// Generation tasks and batches
// A batch is the full set of tasks created from one user-triggered
// generation action: the Cartesian product of (prompt list × copies per
// prompt). Batches are replaced wholesale — resubmission creates fresh
// tasks with new ids, never resets old ones.
// ---------------------------------------------------------------------------

// Task is one independent unit of generation work. Records are replaced
// atomically as a whole; no field is mutated in place once stored.
type Task struct {
	ID            uuid.UUID
	Prompt        string
	Status        models.TaskStatus
	StatusMessage string
	ErrorMessage  string
	Artifact      *models.Artifact
}

// Batch is an ordered sequence of tasks created atomically.
type Batch struct {
	ID        uuid.UUID
	Kind      models.BatchKind
	Token     uint64 // generation token; stale updates are dropped by the store
	CreatedAt time.Time

	order []uuid.UUID
	seed  []Task // initial records, consumed by Store.Add
}

// NewBatch expands prompts × copies into pending tasks, each with a fresh id.
// copies below 1 is treated as 1.
func NewBatch(kind models.BatchKind, prompts []string, copies int) *Batch {
	if copies < 1 {
		copies = 1
	}

	b := &Batch{
		ID:        uuid.New(),
		Kind:      kind,
		CreatedAt: time.Now(),
	}

	for _, p := range prompts {
		for i := 0; i < copies; i++ {
			t := Task{
				ID:     uuid.New(),
				Prompt: p,
				Status: models.TaskStatusPending,
			}
			b.order = append(b.order, t.ID)
			b.seed = append(b.seed, t)
		}
	}

	return b
}

// TaskIDs returns the batch's task ids in creation order.
func (b *Batch) TaskIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(b.order))
	copy(ids, b.order)
	return ids
}

// statusRank orders lifecycle states so updates can only move forward.
// Terminal states never regress.
var statusRank = map[models.TaskStatus]int{
	models.TaskStatusPending:    0,
	models.TaskStatusGenerating: 1,
	models.TaskStatusPolling:    2,
	models.TaskStatusDone:       3,
	models.TaskStatusError:      3,
}

// Store owns all task records, keyed by batch and task id. Adding a batch
// makes it the active generation for its kind; completions arriving for a
// superseded batch are dropped so a stale task can never merge its result
// into a newer batch's lifecycle.
type Store struct {
	mu        sync.RWMutex
	nextToken uint64
	active    map[models.BatchKind]uint64
	batches   map[uuid.UUID]*batchRecord
	retention time.Duration
}

type batchRecord struct {
	batch *Batch
	tasks map[uuid.UUID]Task
	order []uuid.UUID
}

// NewStore creates a store. Batches older than retention are evicted
// opportunistically on Add; zero retention keeps everything for the
// process lifetime.
func NewStore(retention time.Duration) *Store {
	return &Store{
		active:    make(map[models.BatchKind]uint64),
		batches:   make(map[uuid.UUID]*batchRecord),
		retention: retention,
	}
}

// Add registers the batch and marks it the active generation for its kind,
// superseding any previous batch of the same kind.
func (s *Store) Add(b *Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextToken++
	b.Token = s.nextToken
	s.active[b.Kind] = b.Token

	rec := &batchRecord{
		batch: b,
		tasks: make(map[uuid.UUID]Task, len(b.seed)),
		order: b.order,
	}
	for _, t := range b.seed {
		rec.tasks[t.ID] = t
	}
	b.seed = nil
	s.batches[b.ID] = rec

	if s.retention > 0 {
		cutoff := time.Now().Add(-s.retention)
		for id, old := range s.batches {
			if old.batch.CreatedAt.Before(cutoff) && old.batch.Token != s.active[old.batch.Kind] {
				delete(s.batches, id)
			}
		}
	}
}

// update replaces a task record wholesale. The update is dropped when the
// batch has been superseded (stale generation token) or when it would move
// the task backward through its lifecycle.
func (s *Store) update(batchID, taskID uuid.UUID, mutate func(Task) Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.batches[batchID]
	if !ok {
		return false
	}
	if s.active[rec.batch.Kind] != rec.batch.Token {
		return false // superseded batch; drop the late update
	}

	cur, ok := rec.tasks[taskID]
	if !ok {
		return false
	}

	next := mutate(cur)
	if statusRank[next.Status] < statusRank[cur.Status] || cur.Status.Terminal() {
		return false
	}

	next.ID = cur.ID
	next.Prompt = cur.Prompt
	rec.tasks[taskID] = next
	return true
}

// Get returns a copy of one task.
func (s *Store) Get(batchID, taskID uuid.UUID) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.batches[batchID]
	if !ok {
		return Task{}, false
	}
	t, ok := rec.tasks[taskID]
	return t, ok
}

// Snapshot returns all tasks of a batch in creation order.
func (s *Store) Snapshot(batchID uuid.UUID) (*Batch, []Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.batches[batchID]
	if !ok {
		return nil, nil, false
	}

	tasks := make([]Task, 0, len(rec.order))
	for _, id := range rec.order {
		tasks = append(tasks, rec.tasks[id])
	}
	return rec.batch, tasks, true
}
