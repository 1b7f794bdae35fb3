// Package sweeper runs the store's expiry sweep on a schedule, so a
// long-running daemon moves due tasks to completed even when nobody reads
// the task list.
package sweeper

import (
	"context"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"rebootplan/internal/store"
	logx "rebootplan/pkg/logx"
)

const defaultSchedule = "@every 1m"

type Config struct {
	Enabled  bool
	Schedule string // cron expression or descriptor ("@every 1m", "*/5 * * * *")
}

type Service struct {
	mu sync.Mutex

	log   logx.Logger
	store *store.Store
	cfg   Config

	c *cron.Cron
}

func New(cfg Config, st *store.Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{log: log, store: st, cfg: cfg}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	en := s.cfg.Enabled
	s.mu.Unlock()
	return en
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.Enabled || s.c != nil {
		return nil
	}

	spec := strings.TrimSpace(s.cfg.Schedule)
	if spec == "" {
		spec = defaultSchedule
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic in sweep",
					logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			}
		}()
		started := time.Now()
		if n := s.store.Sweep(ctx); n > 0 {
			s.log.Info("sweep completed tasks",
				logx.Int("flipped", n), logx.Duration("took", time.Since(started)))
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	s.c = c
	s.log.Info("sweeper started", logx.String("schedule", spec))
	return nil
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}

	// cron.Stop returns a ctx that is done once running jobs finish.
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("sweeper stopped")
}
