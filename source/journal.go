package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"github.com/meshwatch/meshwatch/state"
)

// JournalSource follows the systemd journal of one unit through a
// journalctl subprocess, message text only.
type JournalSource struct {
	log    *slog.Logger
	cmd    *exec.Cmd
	cancel context.CancelFunc
	lines  chan string
	errs   chan error
}

// OpenJournal starts following the unit's journal from its tail.
func OpenJournal(ctx context.Context, log *slog.Logger, unit string) (*JournalSource, error) {
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, "journalctl",
		"--follow", "--no-pager", "--lines=0", "--output=cat",
		"--unit", unit)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start journalctl for %s: %w", unit, err)
	}

	j := &JournalSource{
		log:    log,
		cmd:    cmd,
		cancel: cancel,
		lines:  make(chan string, 256),
		errs:   make(chan error, 1),
	}
	go j.follow(ctx, stdout, unit)
	return j, nil
}

// follow pumps journal lines into the poll channel until the stream
// ends or ctx is cancelled. Cancellation also unblocks a send into a
// full channel, so the goroutine never outlives Close.
func (j *JournalSource) follow(ctx context.Context, r io.Reader, unit string) {
	defer close(j.lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		select {
		case j.lines <- line:
		case <-ctx.Done():
			j.errs <- ctx.Err()
			return
		}
	}
	if err := scanner.Err(); err != nil {
		j.errs <- err
	} else {
		j.errs <- fmt.Errorf("journalctl for %s exited", unit)
	}
}

func (j *JournalSource) Poll() ([]string, error) {
	timeout := time.After(state.PollTimeout)
	select {
	case line, ok := <-j.lines:
		if !ok {
			return nil, <-j.errs
		}
		batch := []string{line}
		// Drain whatever else arrived without blocking again.
		for {
			select {
			case line, ok := <-j.lines:
				if !ok {
					return batch, nil
				}
				batch = append(batch, line)
			default:
				return batch, nil
			}
		}
	case <-timeout:
		return nil, nil
	}
}

func (j *JournalSource) Close() error {
	j.cancel()
	err := j.cmd.Wait()
	// The follower only stops because we killed it.
	if err != nil && err.Error() != "signal: killed" {
		j.log.Debug("journalctl exited", "error", err)
	}
	return nil
}
