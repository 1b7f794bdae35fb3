package calendar

import (
	"context"
	"sync"
	"time"

	"rebootplan/internal/eventbus"
	"rebootplan/internal/task"
)

// Lister is the slice of the task store the view depends on.
type Lister interface {
	List(ctx context.Context) []task.RebootTask
}

// View memoizes the calendar index across queries and invalidates it on any
// change event from the task store. It rebuilds lazily on the next query
// rather than eagerly on every event.
type View struct {
	mu    sync.Mutex
	src   Lister
	idx   Index
	dirty bool

	unsub func()
	done  chan struct{}
}

// NewView builds a view over src. If bus is non-nil the view subscribes to it
// and treats every event as an invalidation signal; without a bus the view
// rebuilds on every query.
func NewView(src Lister, bus eventbus.Bus) *View {
	v := &View{src: src, dirty: true, done: make(chan struct{})}
	if bus == nil {
		close(v.done)
		return v
	}
	ch, unsub := bus.Subscribe(32)
	v.unsub = unsub
	go func() {
		defer close(v.done)
		for range ch {
			v.mu.Lock()
			v.dirty = true
			v.mu.Unlock()
		}
	}()
	return v
}

// TasksForDate returns the tasks scheduled on the given instant's day.
func (v *View) TasksForDate(ctx context.Context, date time.Time) []task.RebootTask {
	return v.index(ctx).TasksForDate(date)
}

// Days returns all days with at least one task, ascending.
func (v *View) Days(ctx context.Context) []DayKey {
	return v.index(ctx).Days()
}

func (v *View) index(ctx context.Context) Index {
	v.mu.Lock()
	defer v.mu.Unlock()
	// Without a bus there is no invalidation signal, so stay permanently dirty.
	if v.dirty {
		if v.unsub != nil {
			v.dirty = false
		}
		v.idx = Build(v.src.List(ctx))
	}
	return v.idx
}

// Close detaches the view from the bus.
func (v *View) Close() {
	if v.unsub != nil {
		v.unsub()
		<-v.done
	}
}
