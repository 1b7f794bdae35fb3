package storage

import (
	"context"
	"errors"
	"time"

	"rebootplan/internal/task"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (tasks snapshot + counter file)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled and the engine runs
// memory-only.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// State is the unit of persistence: the whole task collection plus the
// counter value to assign to the next created task.
type State struct {
	Tasks  []task.RebootTask
	NextID int64
}

// Store is the load/save contract the task store depends on.
//
// Load applies the backward-compatibility contract itself: a missing or
// malformed tasks entry yields an empty set, a missing counter yields 1, and
// records persisted before the status field existed come back as pending.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, st State) error
	Close() error
}

// taskRecord is the wire form of one persisted task. Status is a plain string
// so that pre-status records (empty value) survive decoding and can be
// migrated explicitly.
type taskRecord struct {
	ID         string    `json:"id"`
	ServerID   string    `json:"serverId"`
	ServerName string    `json:"serverName"`
	Date       time.Time `json:"date"`
	Time       string    `json:"time"`
	Status     string    `json:"status,omitempty"`
}

// migrateRecord converts a persisted record to the in-memory model.
// This is the single place where older on-disk data is upgraded: records
// written before the status field existed default to pending.
func migrateRecord(r taskRecord) task.RebootTask {
	st := task.Status(r.Status)
	if !st.Valid() {
		st = task.StatusPending
	}
	return task.RebootTask{
		ID:         r.ID,
		ServerID:   r.ServerID,
		ServerName: r.ServerName,
		Date:       r.Date,
		Time:       r.Time,
		Status:     st,
	}
}

func toRecord(t task.RebootTask) taskRecord {
	return taskRecord{
		ID:         t.ID,
		ServerID:   t.ServerID,
		ServerName: t.ServerName,
		Date:       t.Date,
		Time:       t.Time,
		Status:     string(t.Status),
	}
}
