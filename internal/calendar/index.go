// Package calendar derives the day-by-day view of the task list. The index
// is a disposable projection: it is rebuilt from the store, never persisted,
// and never treated as a source of truth.
package calendar

import (
	"sort"
	"time"

	"rebootplan/internal/task"
)

// DayKey identifies one local calendar day ("2006-01-02"). Keys compare and
// sort correctly as plain strings.
type DayKey string

// KeyOf normalizes any instant to its day key, discarding time-of-day.
func KeyOf(t time.Time) DayKey {
	return DayKey(t.Format("2006-01-02"))
}

// Index maps day keys to the tasks scheduled on that day, in the order the
// tasks appeared in the source list.
type Index struct {
	buckets map[DayKey][]task.RebootTask
}

// Build groups the given tasks by their day key.
func Build(tasks []task.RebootTask) Index {
	ix := Index{buckets: make(map[DayKey][]task.RebootTask)}
	for _, t := range tasks {
		k := KeyOf(t.Date)
		ix.buckets[k] = append(ix.buckets[k], t)
	}
	return ix
}

// TasksForDate returns a copy of the bucket for the given instant's day.
// The argument's time-of-day is irrelevant.
func (ix Index) TasksForDate(date time.Time) []task.RebootTask {
	b := ix.buckets[KeyOf(date)]
	if len(b) == 0 {
		return nil
	}
	return append([]task.RebootTask(nil), b...)
}

// Days returns all non-empty day keys in ascending order.
func (ix Index) Days() []DayKey {
	days := make([]DayKey, 0, len(ix.buckets))
	for k := range ix.buckets {
		days = append(days, k)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// Len returns the number of non-empty days.
func (ix Index) Len() int { return len(ix.buckets) }
