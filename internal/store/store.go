// Package store owns the reboot task collection and its id counter.
//
// All mutations validate against the server catalog, persist best-effort
// through the storage adapter, and publish change events on the bus. The
// in-memory state stays authoritative: a failed save is logged and never
// rolls a mutation back.
package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"rebootplan/internal/catalog"
	"rebootplan/internal/eventbus"
	"rebootplan/internal/storage"
	"rebootplan/internal/task"
	logx "rebootplan/pkg/logx"
)

type Option func(*Store)

// WithClock overrides the time source used by the expiry sweep.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBus attaches an event bus; every mutation and every sweep that changed
// state publishes there.
func WithBus(bus eventbus.Bus) Option {
	return func(s *Store) { s.bus = bus }
}

type Store struct {
	mu sync.Mutex

	log     logx.Logger
	cat     *catalog.Catalog
	persist storage.Store // nil when storage is disabled
	bus     eventbus.Bus  // nil when nobody listens
	now     func() time.Time

	// saveWarn throttles repeated save-failure warnings so a broken disk
	// doesn't flood the log on every mutation.
	saveWarn *rate.Limiter

	tasks  []task.RebootTask
	nextID int64
}

func New(cat *catalog.Catalog, persist storage.Store, log logx.Logger, opts ...Option) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Store{
		log:      log,
		cat:      cat,
		persist:  persist,
		now:      time.Now,
		saveWarn: rate.NewLimiter(rate.Every(30*time.Second), 1),
		nextID:   1,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load restores tasks and counter from storage. A load failure is a degraded
// start, not a fatal one: the store comes up empty and says so.
func (s *Store) Load(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	st, err := s.persist.Load(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.tasks = nil
		s.nextID = 1
		s.log.Warn("loading persisted tasks failed, starting empty", logx.Err(err))
		return err
	}
	s.tasks = st.Tasks
	s.nextID = st.NextID
	if s.nextID < 1 {
		s.nextID = 1
	}
	s.log.Info("tasks loaded",
		logx.Int("tasks", len(s.tasks)), logx.Int64("next_id", s.nextID))
	return nil
}

// List runs the expiry sweep, then returns a copy of all tasks. Order is
// unspecified; callers bucket by date themselves.
func (s *Store) List(ctx context.Context) []task.RebootTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(ctx)
	return append([]task.RebootTask(nil), s.tasks...)
}

// Count returns the number of tasks without sweeping.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Create validates the server reference, assigns the next id, snapshots the
// server name and appends a pending task. Past instants are accepted; the
// next sweep completes them. (Keeping past instants valid is what lets
// callers backfill historical reboot records.)
func (s *Store) Create(ctx context.Context, dto task.CreateDTO) (task.RebootTask, error) {
	srv, ok := s.cat.FindByID(dto.ServerID)
	if !ok {
		return task.RebootTask{}, fmt.Errorf("create: server %q: %w", dto.ServerID, task.ErrServerNotFound)
	}
	if _, _, err := task.ParseClock(dto.Time); err != nil {
		return task.RebootTask{}, fmt.Errorf("create: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := task.RebootTask{
		ID:         strconv.FormatInt(s.nextID, 10),
		ServerID:   srv.ID,
		ServerName: srv.Name,
		Date:       task.DayOf(dto.Date),
		Time:       dto.Time,
		Status:     task.StatusPending,
	}
	s.nextID++
	s.tasks = append(s.tasks, t)

	s.persistLocked(ctx)
	s.publish(eventbus.TopicTaskCreated, t)
	return t, nil
}

// Update applies the non-nil DTO fields to the task with the given id.
// A new server reference re-validates against the catalog and refreshes the
// denormalized name. Completed tasks are immutable here.
func (s *Store) Update(ctx context.Context, id string, dto task.UpdateDTO) (task.RebootTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return task.RebootTask{}, fmt.Errorf("update: task %q: %w", id, task.ErrTaskNotFound)
	}
	t := s.tasks[idx]
	if t.Status == task.StatusCompleted {
		return task.RebootTask{}, fmt.Errorf("update: task %q: %w", id, task.ErrTaskCompleted)
	}

	if dto.ServerID != nil {
		srv, ok := s.cat.FindByID(*dto.ServerID)
		if !ok {
			return task.RebootTask{}, fmt.Errorf("update: server %q: %w", *dto.ServerID, task.ErrServerNotFound)
		}
		t.ServerID = srv.ID
		t.ServerName = srv.Name
	}
	if dto.Date != nil {
		t.Date = task.DayOf(*dto.Date)
	}
	if dto.Time != nil {
		if _, _, err := task.ParseClock(*dto.Time); err != nil {
			return task.RebootTask{}, fmt.Errorf("update: %w", err)
		}
		t.Time = *dto.Time
	}

	s.tasks[idx] = t
	s.persistLocked(ctx)
	s.publish(eventbus.TopicTaskUpdated, t)
	return t, nil
}

// Delete removes a pending task. A missing id is a benign no-op signaled as
// (false, nil); deleting a completed task is an error and leaves the store
// unchanged.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return false, nil
	}
	t := s.tasks[idx]
	if t.Status == task.StatusCompleted {
		return false, fmt.Errorf("delete: task %q: %w", id, task.ErrCannotDeleteCompleted)
	}

	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	s.persistLocked(ctx)
	s.publish(eventbus.TopicTaskDeleted, t)
	return true, nil
}

// Flush saves the current state immediately, best-effort. Mutations already
// persist themselves; this exists for shutdown.
func (s *Store) Flush(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked(ctx)
}

func (s *Store) indexOfLocked(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// persistLocked saves the full state best-effort. In-memory state is the
// authority; failures are reported (throttled) and otherwise ignored.
func (s *Store) persistLocked(ctx context.Context) {
	if s.persist == nil {
		return
	}
	st := storage.State{
		Tasks:  append([]task.RebootTask(nil), s.tasks...),
		NextID: s.nextID,
	}
	if err := s.persist.Save(ctx, st); err != nil {
		if s.saveWarn.Allow() {
			s.log.Warn("saving tasks failed, in-memory state kept", logx.Err(err))
		} else {
			s.log.Debug("saving tasks failed", logx.Err(err))
		}
	}
}

func (s *Store) publish(topic string, t task.RebootTask) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: topic, Data: t})
}
