package app

import (
	"context"
	"time"

	"rebootplan/internal/task"
	logx "rebootplan/pkg/logx"
)

// demoTasks spreads historical reboots across the catalog over the past two
// weeks, so a fresh install renders a populated calendar.
var demoTasks = []struct {
	daysAgo  int
	time     string
	serverID string
}{
	{14, "02:00", "1"},
	{13, "03:30", "3"},
	{11, "01:00", "5"},
	{10, "04:15", "7"},
	{9, "02:30", "9"},
	{7, "03:00", "2"},
	{5, "01:30", "4"},
	{3, "02:45", "6"},
	{2, "04:00", "8"},
	{1, "03:15", "10"},
}

// seedDemo backfills the demo records through the normal create path and
// lets the sweep complete them, so seeded data obeys the same invariants as
// everything else. Servers missing from a custom catalog are skipped.
func (a *App) seedDemo(ctx context.Context) {
	now := time.Now()
	created := 0
	for _, d := range demoTasks {
		if _, ok := a.cat.FindByID(d.serverID); !ok {
			continue
		}
		_, err := a.store.Create(ctx, task.CreateDTO{
			ServerID: d.serverID,
			Date:     now.AddDate(0, 0, -d.daysAgo),
			Time:     d.time,
		})
		if err != nil {
			a.log.Warn("demo seed create failed", logx.String("server", d.serverID), logx.Err(err))
			continue
		}
		created++
	}
	a.store.Sweep(ctx)
	a.log.Info("demo tasks seeded", logx.Int("tasks", created))
}
