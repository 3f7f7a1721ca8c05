package replay

import (
	"context"
	"errors"
	"time"

	"github.com/bryanchriswhite/DeskSnap/internal/desktop"
	"github.com/bryanchriswhite/DeskSnap/internal/logger"
	"github.com/bryanchriswhite/DeskSnap/internal/snapshot"
)

// DefaultSettleDelay is how long a launched application gets to open its
// first window before it is looked for.
const DefaultSettleDelay = 5 * time.Second

// WindowLister enumerates the current top-level windows.
type WindowLister interface {
	Enumerate(s *desktop.Session) []snapshot.WindowRecord
}

// Engine re-opens the applications of a snapshot and moves their windows
// back to the recorded desktops.
type Engine struct {
	launcher Launcher
	windows  WindowLister
	settle   time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithSettleDelay overrides DefaultSettleDelay. Non-positive values are ignored.
func WithSettleDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.settle = d
		}
	}
}

// NewEngine creates a replay engine.
func NewEngine(launcher Launcher, windows WindowLister, opts ...Option) *Engine {
	e := &Engine{
		launcher: launcher,
		windows:  windows,
		settle:   DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SettleDelay returns the configured wait after each launch.
func (e *Engine) SettleDelay() time.Duration {
	return e.settle
}

// Replay processes the records of snap in order. See ReplayObserved.
func (e *Engine) Replay(ctx context.Context, s *desktop.Session, snap *snapshot.Snapshot) ([]Outcome, error) {
	return e.ReplayObserved(ctx, s, snap, nil)
}

// ReplayObserved processes the records of snap strictly one after another and
// returns one outcome per processed record, in snapshot order. Per-window
// failures are outcomes, not errors. The returned error is non-nil only when
// the session becomes unusable (a *desktop.SessionError) or ctx is cancelled;
// the outcomes gathered up to that point are returned with it.
func (e *Engine) ReplayObserved(ctx context.Context, s *desktop.Session, snap *snapshot.Snapshot, obs Observer) ([]Outcome, error) {
	log := logger.WithComponent("replay")

	if err := s.Err(); err != nil {
		return nil, err
	}

	total := snap.Len()
	outcomes := make([]Outcome, 0, total)

	log.Info().
		Str("snapshot", snap.ID().String()).
		Int("windows", total).
		Dur("settle_delay", e.settle).
		Msg("Replay started")

	for i := 0; i < total; i++ {
		if err := s.Err(); err != nil {
			log.Error().Err(err).Int("index", i).Msg("Session lost, aborting replay")
			return outcomes, err
		}

		r := &run{index: i, total: total, rec: snap.Window(i), obs: obs}
		r.transition(StatePending)

		out, err := e.replayOne(ctx, s, r)
		r.finish(&out)
		outcomes = append(outcomes, out)

		log.Info().
			Int("index", i).
			Str("title", out.Title).
			Str("status", string(out.Status)).
			Str("reason", string(out.Reason)).
			Str("detail", out.Detail).
			Msg("Window replayed")

		if err != nil {
			return outcomes, err
		}
	}

	c := Summary(outcomes)
	log.Info().
		Int("succeeded", c.Succeeded).
		Int("failed", c.Failed).
		Int("skipped", c.Skipped).
		Msg("Replay finished")
	return outcomes, nil
}

// replayOne drives one record through its lifecycle. A non-nil error aborts
// the whole replay.
func (e *Engine) replayOne(ctx context.Context, s *desktop.Session, r *run) (Outcome, error) {
	out := Outcome{
		Index:        r.index,
		Title:        r.rec.Title,
		Path:         r.rec.ExecutablePath,
		DesktopIndex: r.rec.DesktopIndex,
	}

	if r.rec.ExecutablePath == "" {
		return out.with(StatusSkipped, ReasonNoPath, "no executable path was captured"), nil
	}

	r.transition(StateLaunching)
	pid, err := e.launcher.Launch(ctx, r.rec.ExecutablePath)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out.with(StatusFailed, ReasonCancelled, ctxErr.Error()), ctxErr
		}
		return out.with(StatusFailed, ReasonLaunchError, err.Error()), nil
	}
	out.ProcessID = pid

	r.transition(StateAwaitingWindow)
	if err := e.wait(ctx); err != nil {
		return out.with(StatusFailed, ReasonCancelled, err.Error()), err
	}

	r.transition(StateLocating)
	hwnd, ok := findByPID(e.windows.Enumerate(s), pid)
	if !ok {
		return out.with(StatusFailed, ReasonWindowNotFound, "no window owned by the launched process"), nil
	}

	r.transition(StateRelocating)
	if err := s.MoveWindow(hwnd, r.rec.DesktopIndex); err != nil {
		out = out.with(StatusFailed, ReasonRelocationError, err.Error())
		var sessErr *desktop.SessionError
		if errors.As(err, &sessErr) {
			return out, err
		}
		return out, nil
	}

	return out.with(StatusSucceeded, ReasonNone, ""), nil
}

func (e *Engine) wait(ctx context.Context) error {
	t := time.NewTimer(e.settle)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// findByPID returns the first window owned by pid. Helper or splash windows
// of the same process can win over the main window.
func findByPID(windows []snapshot.WindowRecord, pid uint32) (desktop.HWND, bool) {
	for _, w := range windows {
		if w.ProcessID == pid {
			return w.Handle, true
		}
	}
	return 0, false
}

func (o Outcome) with(st Status, reason Reason, detail string) Outcome {
	o.Status = st
	o.Reason = reason
	o.Detail = detail
	return o
}

type run struct {
	index int
	total int
	rec   snapshot.WindowRecord
	obs   Observer
}

func (r *run) transition(st State) {
	if r.obs == nil {
		return
	}
	r.obs(Progress{Index: r.index, Total: r.total, Title: r.rec.Title, State: st})
}

func (r *run) finish(out *Outcome) {
	if r.obs == nil {
		return
	}
	o := *out
	r.obs(Progress{
		Index:   r.index,
		Total:   r.total,
		Title:   r.rec.Title,
		State:   terminalState(out.Status),
		Outcome: &o,
	})
}
