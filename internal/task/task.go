// Package task defines the reboot task model shared by the store, the
// calendar index and the persistence layer.
package task

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the task lifecycle state. Transitions are one-way:
// pending -> completed, driven either by the expiry sweep or never at all.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// RebootTask is one scheduled reboot of one server.
//
// ServerName is a point-in-time snapshot of the catalog entry's name taken at
// create/update. Renaming or decommissioning the server later must not rewrite
// historical tasks, so readers use the snapshot instead of re-joining the catalog.
type RebootTask struct {
	ID         string    `json:"id"`
	ServerID   string    `json:"serverId"`
	ServerName string    `json:"serverName"`
	Date       time.Time `json:"date"` // calendar day; time-of-day is zeroed
	Time       string    `json:"time"` // "HH:MM", 24-hour wall clock
	Status     Status    `json:"status"`
}

// CreateDTO carries the caller-supplied fields for a new task.
type CreateDTO struct {
	ServerID string
	Date     time.Time
	Time     string
}

// UpdateDTO carries a partial update. Nil fields are left untouched.
type UpdateDTO struct {
	ServerID *string
	Date     *time.Time
	Time     *string
}

// ParseClock parses a "HH:MM" 24-hour wall clock string.
func ParseClock(s string) (hour, min int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q: out of range", s)
	}
	if m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q: out of range", s)
	}
	return h, m, nil
}

// DayOf truncates t to local midnight, the canonical form of RebootTask.Date.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DueAt combines the task's calendar day and HH:MM clock into the instant the
// reboot is due. Seconds and below are zero: the clock string carries only
// minute precision, and the sweep compares against a raw "now".
func (t RebootTask) DueAt() (time.Time, error) {
	h, m, err := ParseClock(t.Time)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := t.Date.Date()
	return time.Date(y, mo, d, h, m, 0, 0, t.Date.Location()), nil
}

// Due reports whether the task's scheduled instant is at or before now.
// Tasks with an unparseable clock are never considered due.
func (t RebootTask) Due(now time.Time) bool {
	at, err := t.DueAt()
	if err != nil {
		return false
	}
	return !at.After(now)
}
