package core

import (
	"github.com/meshwatch/meshwatch/parse"
	"github.com/meshwatch/meshwatch/route"
	"github.com/meshwatch/meshwatch/source"
	"github.com/meshwatch/meshwatch/state"
)

// runIngest drives LineSource → parser → router until shutdown or a
// fatal source failure. It checks the run flag at the top of every
// iteration and again after the blocking poll returns; a blocked poll
// delays shutdown by at most the source timeout.
func runIngest(env *state.Env, src source.LineSource, router *route.Router) {
	env.Lock.Lock()
	env.Counters.MarkEpoch(router.Now())
	env.Lock.Unlock()

	parser := parse.New(env.Log)
	defer parser.Close()

	env.Log.Info("log parser started")
	for env.Running() {
		lines, err := src.Poll()
		if err != nil {
			// Fail stop: the source is unusable, bring the run down.
			env.Log.Error("line source failed", "error", err)
			env.Cancel(err)
			return
		}
		if !env.Running() {
			return
		}
		for _, line := range lines {
			for _, ev := range parser.Line(line) {
				router.Apply(ev)
			}
		}
	}
}
