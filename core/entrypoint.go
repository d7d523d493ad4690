package core

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"sync"
	"syscall"

	"github.com/dustin/go-broadcast"
	"github.com/encodeous/tint"
	"github.com/jonboulle/clockwork"
	slogmulti "github.com/samber/slog-multi"

	"github.com/meshwatch/meshwatch/route"
	"github.com/meshwatch/meshwatch/sched"
	"github.com/meshwatch/meshwatch/source"
	"github.com/meshwatch/meshwatch/state"
	"github.com/meshwatch/meshwatch/store"
)

// Start runs the observer until a termination signal arrives or the
// line source fails. Two goroutines share the Env for the process
// lifetime: the ingest loop and the scheduler loop.
func Start(cfg state.Config, logLevel slog.Level) error {
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(context.Canceled)

	logger, err := buildLogger(cfg, logLevel)
	if err != nil {
		return err
	}

	env := &state.Env{
		Context:  ctx,
		Cancel:   cancel,
		Log:      logger,
		Cfg:      cfg,
		Counters: state.NewCounters(),
		Trace:    broadcast.NewBroadcaster(1024),
	}

	db, err := store.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	src, err := openSource(env)
	if err != nil {
		return err
	}
	defer src.Close()

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGABRT, syscall.SIGTERM)
	defer signal.Stop(c)
	go func() {
		select {
		case sig := <-c:
			env.Cancel(errors.New("received " + sig.String()))
		case <-ctx.Done():
		}
	}()

	if logLevel <= slog.LevelDebug {
		go traceLogger(env)
	}

	scheduler := sched.New(logger, clockwork.NewRealClock())
	if err := registerJobs(env, db, scheduler); err != nil {
		return err
	}

	env.Log.Info("observer initialized, send SIGINT or Ctrl+C to exit gracefully")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		runIngest(env, src, route.New(env, db))
	}()
	go func() {
		defer wg.Done()
		scheduler.Run(env.Context)
	}()
	wg.Wait()

	env.Trace.Close()
	env.Log.Info("stopped", "reason", context.Cause(ctx).Error())
	return nil
}

func buildLogger(cfg state.Config, logLevel slog.Level) (*slog.Logger, error) {
	handlers := []slog.Handler{
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      logLevel,
			AddSource:  false,
			TimeFormat: "15:04:05",
		}),
	}
	if cfg.LogPath != "" {
		if err := os.MkdirAll(path.Dir(cfg.LogPath), 0o700); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.LogPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel}))
	}
	return slog.New(slogmulti.Fanout(handlers...)), nil
}

// openSource picks the serial device when configured, the journal
// otherwise. Both behave identically from here on.
func openSource(env *state.Env) (source.LineSource, error) {
	if env.Cfg.Device != "" {
		env.Log.Info("reading debug log from serial device", "device", env.Cfg.Device, "baud", env.Cfg.Baud)
		return source.OpenSerial(env.Log, env.Cfg.Device, env.Cfg.Baud)
	}
	env.Log.Info("reading debug log from journal", "unit", env.Cfg.Unit)
	return source.OpenJournal(env.Context, env.Log, env.Cfg.Unit)
}

// traceLogger mirrors every applied event to the debug log.
func traceLogger(env *state.Env) {
	events := make(chan any, 64)
	env.Trace.Register(events)
	defer env.Trace.Unregister(events)
	for {
		select {
		case ev := <-events:
			env.Log.Debug("event", "event", ev)
		case <-env.Context.Done():
			return
		}
	}
}
