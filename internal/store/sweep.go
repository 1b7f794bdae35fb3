package store

import (
	"context"

	"rebootplan/internal/eventbus"
	"rebootplan/internal/task"
	logx "rebootplan/pkg/logx"
)

// Sweep flips every pending task whose scheduled instant is at or before now
// to completed, and reports how many tasks changed. It runs implicitly at the
// start of every List; the background sweeper service also calls it on a
// schedule so long-running daemons notice expiry without reads.
//
// The sweep is idempotent and monotonic: re-running it without intervening
// mutations changes nothing, and it never moves a task back to pending.
func (s *Store) Sweep(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(ctx)
}

func (s *Store) sweepLocked(ctx context.Context) int {
	// One "now" per sweep: every task in this pass is judged against the
	// same instant.
	now := s.now()

	var flipped []task.RebootTask
	for i := range s.tasks {
		t := s.tasks[i]
		if t.Status != task.StatusPending {
			continue
		}
		if !t.Due(now) {
			continue
		}
		s.tasks[i].Status = task.StatusCompleted
		flipped = append(flipped, s.tasks[i])
	}
	if len(flipped) == 0 {
		return 0
	}

	s.persistLocked(ctx)
	for _, t := range flipped {
		s.log.Debug("reboot task completed by expiry",
			logx.String("id", t.ID), logx.String("server", t.ServerName))
		s.publish(eventbus.TopicTaskCompleted, t)
	}
	return len(flipped)
}
