// Package facade is the surface the presentation layer consumes. It wraps
// the task store and catalog behind an artificial delivery delay, simulating
// async transport. Every operation completes (or fails) against the store
// before the delay starts, so delivery timing never changes outcomes.
package facade

import (
	"context"
	"fmt"
	"time"

	"rebootplan/internal/catalog"
	"rebootplan/internal/store"
	"rebootplan/internal/task"
)

const defaultDelay = 300 * time.Millisecond

type Config struct {
	Delay time.Duration // artificial delivery delay; <0 disables, 0 means default
}

type API struct {
	cat   *catalog.Catalog
	store *store.Store
	delay time.Duration
}

func New(cfg Config, cat *catalog.Catalog, st *store.Store) *API {
	delay := cfg.Delay
	switch {
	case delay < 0:
		delay = 0
	case delay == 0:
		delay = defaultDelay
	}
	return &API{cat: cat, store: st, delay: delay}
}

func (a *API) Servers(ctx context.Context) ([]catalog.Server, error) {
	servers := a.cat.List()
	if err := a.hold(ctx); err != nil {
		return nil, err
	}
	return servers, nil
}

func (a *API) RebootTasks(ctx context.Context) ([]task.RebootTask, error) {
	tasks := a.store.List(ctx)
	if err := a.hold(ctx); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (a *API) CreateRebootTask(ctx context.Context, dto task.CreateDTO) (task.RebootTask, error) {
	t, err := a.store.Create(ctx, dto)
	if herr := a.hold(ctx); herr != nil {
		return task.RebootTask{}, herr
	}
	return t, err
}

func (a *API) UpdateRebootTask(ctx context.Context, id string, dto task.UpdateDTO) (task.RebootTask, error) {
	t, err := a.store.Update(ctx, id, dto)
	if herr := a.hold(ctx); herr != nil {
		return task.RebootTask{}, herr
	}
	return t, err
}

// DeleteRebootTask reports deletion through the transport convention: a
// missing id, benign at the store, surfaces here as ErrTaskNotFound so a
// remote caller still gets a renderable failure.
func (a *API) DeleteRebootTask(ctx context.Context, id string) (bool, error) {
	ok, err := a.store.Delete(ctx, id)
	if herr := a.hold(ctx); herr != nil {
		return false, herr
	}
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("delete: task %q: %w", id, task.ErrTaskNotFound)
	}
	return true, nil
}

// hold waits out the artificial delay. Cancellation abandons delivery only;
// any mutation has already been applied.
func (a *API) hold(ctx context.Context) error {
	if a.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(a.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
