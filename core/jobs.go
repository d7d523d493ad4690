package core

import (
	"time"

	"github.com/meshwatch/meshwatch/report"
	"github.com/meshwatch/meshwatch/sched"
	"github.com/meshwatch/meshwatch/state"
	"github.com/meshwatch/meshwatch/store"
)

// registerJobs wires the periodic report jobs: hourly packet rates, and
// twice daily the full network export. Snapshots are taken under the
// shared lock; file writes happen outside it.
func registerJobs(env *state.Env, db *store.Store, scheduler *sched.Scheduler) error {
	loc, err := env.Cfg.Location()
	if err != nil {
		return err
	}

	scheduler.Add(sched.Job{
		Name:    "hourly rates",
		Trigger: sched.HourlyAt{Minute: *env.Cfg.HourlyMinute},
		Run: func() error {
			return writeRates(env)
		},
	})

	for _, at := range env.Cfg.DailyAt {
		hour, min, err := state.ParseClock(at)
		if err != nil {
			return err
		}
		scheduler.Add(sched.Job{
			Name:    "daily report " + at,
			Trigger: sched.DailyAt{Hour: hour, Minute: min, Loc: loc},
			Run: func() error {
				if err := writeRates(env); err != nil {
					return err
				}
				return writeNetwork(env, db, time.Now().Add(-24*time.Hour))
			},
		})
	}
	return nil
}

func writeRates(env *state.Env) error {
	env.Lock.Lock()
	snapshot := env.Counters.Snapshot()
	env.Lock.Unlock()

	rates := report.BuildRates(snapshot, time.Now())
	return report.WriteJSON(env.Cfg.ReportDir, "stats.json", rates)
}

func writeNetwork(env *state.Env, db *store.Store, since time.Time) error {
	now := time.Now()

	env.Lock.Lock()
	network, err := report.CollectNetwork(db, since, now)
	env.Lock.Unlock()
	if err != nil {
		return err
	}
	return report.WriteJSON(env.Cfg.ReportDir, "network.json", network)
}
