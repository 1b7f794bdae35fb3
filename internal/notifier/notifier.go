// Package notifier pushes task lifecycle events to a Telegram chat. It is an
// optional outbound integration: without a token and chat id it stays off and
// the engine behaves identically.
package notifier

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"rebootplan/internal/eventbus"
	"rebootplan/internal/task"
	logx "rebootplan/pkg/logx"
)

type Config struct {
	Enabled    bool
	Token      string
	ChatID     int64
	RatePerSec int
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	bus eventbus.Bus
	cfg Config

	bot     *tele.Bot
	limiter *rate.Limiter
	unsub   func()
	done    chan struct{}
}

func New(cfg Config, bus eventbus.Bus, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	return &Service{
		log:     log,
		bus:     bus,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

func (s *Service) Enabled() bool {
	return s.cfg.Enabled && strings.TrimSpace(s.cfg.Token) != "" && s.cfg.ChatID != 0
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled() || s.bus == nil || s.done != nil {
		return nil
	}

	bot, err := tele.NewBot(tele.Settings{Token: s.cfg.Token})
	if err != nil {
		// Notifications are best-effort; a bad token must not block the engine.
		s.log.Warn("telegram notifier unavailable", logx.Err(err))
		return nil
	}
	s.bot = bot

	ch, unsub := s.bus.Subscribe(64)
	s.unsub = unsub
	s.done = make(chan struct{})
	go s.pump(ctx, ch)

	s.log.Info("notifier started", logx.Int64("chat_id", s.cfg.ChatID))
	return nil
}

func (s *Service) pump(ctx context.Context, ch <-chan eventbus.Event) {
	defer close(s.done)
	for e := range ch {
		if ctx.Err() != nil {
			return
		}
		t, ok := e.Data.(task.RebootTask)
		if !ok {
			continue
		}
		// Sends are throttled, not queued: under a burst we drop rather than
		// lag behind the store.
		if !s.limiter.Allow() {
			continue
		}
		msg := formatEvent(e.Type, t)
		if msg == "" {
			continue
		}
		if _, err := s.bot.Send(tele.ChatID(s.cfg.ChatID), msg); err != nil {
			s.log.Debug("telegram send failed", logx.Err(err))
		}
	}
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	unsub := s.unsub
	done := s.done
	s.unsub = nil
	s.done = nil
	s.mu.Unlock()

	if unsub == nil {
		return
	}
	unsub()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func formatEvent(topic string, t task.RebootTask) string {
	var verb string
	switch topic {
	case eventbus.TopicTaskCreated:
		verb = "scheduled"
	case eventbus.TopicTaskUpdated:
		verb = "rescheduled"
	case eventbus.TopicTaskDeleted:
		verb = "cancelled"
	case eventbus.TopicTaskCompleted:
		verb = "completed"
	default:
		return ""
	}
	return fmt.Sprintf("Reboot %s: %s on %s at %s (task #%s)",
		verb, t.ServerName, t.Date.Format("2006-01-02"), t.Time, t.ID)
}
