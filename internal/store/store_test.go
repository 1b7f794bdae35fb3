package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"rebootplan/internal/catalog"
	"rebootplan/internal/eventbus"
	"rebootplan/internal/storage"
	"rebootplan/internal/task"
	logx "rebootplan/pkg/logx"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T, persist storage.Store, opts ...Option) (*Store, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)}
	opts = append([]Option{WithClock(c.Now)}, opts...)
	return New(catalog.New(nil), persist, logx.Nop(), opts...), c
}

func mustCreate(t *testing.T, s *Store, serverID string, date time.Time, at string) task.RebootTask {
	t.Helper()
	tk, err := s.Create(context.Background(), task.CreateDTO{ServerID: serverID, Date: date, Time: at})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return tk
}

func TestCreateAssignsSequentialUniqueIDs(t *testing.T) {
	t.Parallel()
	s, c := newTestStore(t, nil)
	tomorrow := c.Now().AddDate(0, 0, 1)

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		tk := mustCreate(t, s, "1", tomorrow, "09:00")
		if seen[tk.ID] {
			t.Fatalf("duplicate id %q", tk.ID)
		}
		seen[tk.ID] = true
	}
	if !seen["1"] || !seen["5"] {
		t.Fatalf("expected ids 1..5, got %v", seen)
	}
}

func TestCreateSnapshotsServerName(t *testing.T) {
	t.Parallel()
	s, c := newTestStore(t, nil)
	tk := mustCreate(t, s, "3", c.Now().AddDate(0, 0, 1), "09:00")

	if tk.ServerName != "Development Server 1" {
		t.Fatalf("ServerName = %q", tk.ServerName)
	}
	if tk.Status != task.StatusPending {
		t.Fatalf("Status = %q, want pending", tk.Status)
	}
	if h := tk.Date.Hour(); h != 0 || tk.Date.Minute() != 0 {
		t.Fatalf("Date not truncated to midnight: %v", tk.Date)
	}
}

func TestCreateUnknownServer(t *testing.T) {
	t.Parallel()
	s, c := newTestStore(t, nil)

	_, err := s.Create(context.Background(), task.CreateDTO{
		ServerID: "999", Date: c.Now().AddDate(0, 0, 1), Time: "09:00",
	})
	if !errors.Is(err, task.ErrServerNotFound) {
		t.Fatalf("err = %v, want ErrServerNotFound", err)
	}
	if s.Count() != 0 {
		t.Fatalf("store changed on failed create: %d tasks", s.Count())
	}
}

func TestCreateRejectsBadClock(t *testing.T) {
	t.Parallel()
	s, c := newTestStore(t, nil)
	_, err := s.Create(context.Background(), task.CreateDTO{
		ServerID: "1", Date: c.Now(), Time: "25:99",
	})
	if err == nil {
		t.Fatal("expected error for invalid clock string")
	}
}

func TestUpdatePartialSemantics(t *testing.T) {
	t.Parallel()
	s, c := newTestStore(t, nil)
	ctx := context.Background()
	orig := mustCreate(t, s, "1", c.Now().AddDate(0, 0, 1), "09:00")

	// Server change refreshes the denormalized name, touches nothing else.
	srv := "2"
	got, err := s.Update(ctx, orig.ID, task.UpdateDTO{ServerID: &srv})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.ServerID != "2" || got.ServerName != "Production Server 2" {
		t.Fatalf("server not refreshed: %+v", got)
	}
	if !got.Date.Equal(orig.Date) || got.Time != orig.Time || got.Status != orig.Status {
		t.Fatalf("unrelated fields changed: %+v", got)
	}

	// Time-only change.
	at := "22:30"
	got, err = s.Update(ctx, orig.ID, task.UpdateDTO{Time: &at})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Time != "22:30" || got.ServerID != "2" {
		t.Fatalf("partial update wrong: %+v", got)
	}

	// Date-only change is truncated to midnight.
	day := c.Now().AddDate(0, 0, 3).Add(5 * time.Hour)
	got, err = s.Update(ctx, orig.ID, task.UpdateDTO{Date: &day})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Date.Hour() != 0 {
		t.Fatalf("updated date not truncated: %v", got.Date)
	}
}

func TestUpdateMissingTask(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t, nil)
	srv := "1"
	_, err := s.Update(context.Background(), "42", task.UpdateDTO{ServerID: &srv})
	if !errors.Is(err, task.ErrTaskNotFound) {
		t.Fatalf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestUpdateUnknownServer(t *testing.T) {
	t.Parallel()
	s, c := newTestStore(t, nil)
	orig := mustCreate(t, s, "1", c.Now().AddDate(0, 0, 1), "09:00")

	srv := "999"
	_, err := s.Update(context.Background(), orig.ID, task.UpdateDTO{ServerID: &srv})
	if !errors.Is(err, task.ErrServerNotFound) {
		t.Fatalf("err = %v, want ErrServerNotFound", err)
	}
	if got := s.List(context.Background()); got[0].ServerID != "1" {
		t.Fatalf("store changed on failed update: %+v", got[0])
	}
}

func TestUpdateCompletedRejected(t *testing.T) {
	t.Parallel()
	s, c := newTestStore(t, nil)
	ctx := context.Background()
	tk := mustCreate(t, s, "1", c.Now().AddDate(0, 0, -1), "09:00")

	if n := s.Sweep(ctx); n != 1 {
		t.Fatalf("Sweep = %d, want 1", n)
	}
	at := "10:00"
	_, err := s.Update(ctx, tk.ID, task.UpdateDTO{Time: &at})
	if !errors.Is(err, task.ErrTaskCompleted) {
		t.Fatalf("err = %v, want ErrTaskCompleted", err)
	}
}

func TestDeleteGuards(t *testing.T) {
	t.Parallel()
	s, c := newTestStore(t, nil)
	ctx := context.Background()

	// Missing id is a benign no-op.
	ok, err := s.Delete(ctx, "42")
	if err != nil || ok {
		t.Fatalf("Delete(missing) = (%v, %v), want (false, nil)", ok, err)
	}

	// Completed tasks cannot be deleted.
	done := mustCreate(t, s, "1", c.Now().AddDate(0, 0, -1), "09:00")
	s.Sweep(ctx)
	ok, err = s.Delete(ctx, done.ID)
	if !errors.Is(err, task.ErrCannotDeleteCompleted) || ok {
		t.Fatalf("Delete(completed) = (%v, %v), want ErrCannotDeleteCompleted", ok, err)
	}
	if s.Count() != 1 {
		t.Fatalf("store changed on rejected delete: %d tasks", s.Count())
	}

	// Pending tasks delete fine, and their id is never reused.
	pend := mustCreate(t, s, "1", c.Now().AddDate(0, 0, 1), "09:00")
	ok, err = s.Delete(ctx, pend.ID)
	if err != nil || !ok {
		t.Fatalf("Delete(pending) = (%v, %v), want (true, nil)", ok, err)
	}
	next := mustCreate(t, s, "1", c.Now().AddDate(0, 0, 1), "09:00")
	if next.ID == pend.ID {
		t.Fatalf("id %q reused after deletion", next.ID)
	}
}

func TestExpiryScenario(t *testing.T) {
	t.Parallel()
	s, c := newTestStore(t, nil)
	ctx := context.Background()

	tk := mustCreate(t, s, "3", c.Now().AddDate(0, 0, 1), "09:00")

	got := s.List(ctx)
	if len(got) != 1 || got[0].Status != task.StatusPending {
		t.Fatalf("unexpected list before expiry: %+v", got)
	}
	if got[0].ServerName != "Development Server 1" {
		t.Fatalf("ServerName = %q", got[0].ServerName)
	}

	// Let tomorrow 09:00 pass.
	c.Advance(48 * time.Hour)

	got = s.List(ctx)
	if got[0].Status != task.StatusCompleted {
		t.Fatalf("status after expiry = %q, want completed", got[0].Status)
	}

	if _, err := s.Delete(ctx, tk.ID); !errors.Is(err, task.ErrCannotDeleteCompleted) {
		t.Fatalf("err = %v, want ErrCannotDeleteCompleted", err)
	}
}

func TestSweepIdempotentAndMonotonic(t *testing.T) {
	t.Parallel()
	s, c := newTestStore(t, nil)
	ctx := context.Background()

	mustCreate(t, s, "1", c.Now().AddDate(0, 0, -2), "02:00")
	mustCreate(t, s, "2", c.Now().AddDate(0, 0, 7), "02:00")

	if n := s.Sweep(ctx); n != 1 {
		t.Fatalf("first sweep flipped %d, want 1", n)
	}
	if n := s.Sweep(ctx); n != 0 {
		t.Fatalf("second sweep flipped %d, want 0", n)
	}

	// Nothing ever goes back to pending.
	c.Advance(30 * 24 * time.Hour)
	got := s.List(ctx)
	for _, tk := range got {
		if tk.Status != task.StatusCompleted {
			t.Fatalf("task %s not completed after a month: %q", tk.ID, tk.Status)
		}
	}
	if n := s.Sweep(ctx); n != 0 {
		t.Fatalf("sweep after total completion flipped %d", n)
	}
}

func TestListReturnsDefensiveCopy(t *testing.T) {
	t.Parallel()
	s, c := newTestStore(t, nil)
	mustCreate(t, s, "1", c.Now().AddDate(0, 0, 1), "09:00")

	got := s.List(context.Background())
	got[0].ServerName = "mutated"

	if s.List(context.Background())[0].ServerName == "mutated" {
		t.Fatal("store mutated through List copy")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store")

	persist, err := storage.Open(storage.Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	s1, c := newTestStore(t, persist)
	past := mustCreate(t, s1, "1", c.Now().AddDate(0, 0, -1), "03:00")
	future := mustCreate(t, s1, "2", c.Now().AddDate(0, 0, 5), "04:30")
	s1.List(ctx) // sweep completes the past task and persists

	s2, _ := newTestStore(t, persist)
	if err := s2.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := s2.List(ctx)
	if len(got) != 2 {
		t.Fatalf("loaded %d tasks, want 2", len(got))
	}
	byID := map[string]task.RebootTask{}
	for _, tk := range got {
		byID[tk.ID] = tk
	}
	if tk := byID[past.ID]; tk.Status != task.StatusCompleted || tk.ServerName != past.ServerName {
		t.Fatalf("past task mangled: %+v", tk)
	}
	if tk := byID[future.ID]; tk.Status != task.StatusPending || tk.Time != "04:30" {
		t.Fatalf("future task mangled: %+v", tk)
	}
	if !byID[future.ID].Date.Equal(future.Date) {
		t.Fatalf("date not reconstituted: %v != %v", byID[future.ID].Date, future.Date)
	}

	// Counter survives: the next id continues the sequence.
	next := mustCreate(t, s2, "1", c.Now().AddDate(0, 0, 1), "09:00")
	if next.ID != "3" {
		t.Fatalf("next id = %q, want 3", next.ID)
	}
}

type failingStore struct{ saves int }

func (f *failingStore) Load(context.Context) (storage.State, error) {
	return storage.State{NextID: 1}, nil
}
func (f *failingStore) Save(context.Context, storage.State) error {
	f.saves++
	return errors.New("disk on fire")
}
func (f *failingStore) Close() error { return nil }

func TestSaveFailureKeepsMemoryAuthoritative(t *testing.T) {
	t.Parallel()
	fs := &failingStore{}
	s, c := newTestStore(t, fs)

	tk := mustCreate(t, s, "1", c.Now().AddDate(0, 0, 1), "09:00")
	if fs.saves == 0 {
		t.Fatal("save never attempted")
	}
	got := s.List(context.Background())
	if len(got) != 1 || got[0].ID != tk.ID {
		t.Fatalf("mutation rolled back on save failure: %+v", got)
	}
}

func TestMutationsPublishEvents(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(16)
	defer unsub()

	s, c := newTestStore(t, nil, WithBus(bus))
	ctx := context.Background()

	mustCreate(t, s, "1", c.Now().AddDate(0, 0, -1), "09:00")
	s.Sweep(ctx)

	want := map[string]bool{
		eventbus.TopicTaskCreated:   false,
		eventbus.TopicTaskCompleted: false,
	}
	deadline := time.After(time.Second)
	for {
		allSeen := true
		for _, seen := range want {
			if !seen {
				allSeen = false
			}
		}
		if allSeen {
			return
		}
		select {
		case e := <-ch:
			if _, ok := want[e.Type]; ok {
				want[e.Type] = true
			}
		case <-deadline:
			t.Fatalf("missing events: %v", want)
		}
	}
}
