// ABOUTME: Moderated state variable coalescing updates between rate-limited emissions
// ABOUTME: Push is an atomic read-modify-write over the pending snapshot

package moderation

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Recorder receives merge and emission outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	RecordMerge(status string, entries int)
	RecordEmission(emitted bool)
}

// Variable holds the pending update snapshot of a moderated state variable.
// It is safe for concurrent use.
type Variable struct {
	name     string
	acc      *Accumulator
	limiter  *rate.Limiter
	now      func() time.Time
	logger   zerolog.Logger
	recorder Recorder

	mu      sync.Mutex
	pending string
}

// VariableOption configures a Variable.
type VariableOption func(*Variable)

// WithAccumulator sets the merge rules.
func WithAccumulator(a *Accumulator) VariableOption {
	return func(v *Variable) { v.acc = a }
}

// WithMinInterval sets the minimum time between emissions. Zero disables
// throttling.
func WithMinInterval(d time.Duration) VariableOption {
	return func(v *Variable) {
		if d <= 0 {
			v.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		v.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) VariableOption {
	return func(v *Variable) { v.logger = l }
}

// WithRecorder reports merges and emissions to r.
func WithRecorder(r Recorder) VariableOption {
	return func(v *Variable) { v.recorder = r }
}

// WithClock replaces time.Now for throttling decisions.
func WithClock(now func() time.Time) VariableOption {
	return func(v *Variable) { v.now = now }
}

// NewVariable creates a moderated variable. Emissions default to at most
// one every 200ms.
func NewVariable(name string, opts ...VariableOption) *Variable {
	v := &Variable{
		name:    name,
		acc:     NewAccumulator(),
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		now:     time.Now,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With().Str("variable", name).Logger()
	return v
}

// Name returns the variable name.
func (v *Variable) Name() string {
	return v.name
}

// Push merges a fragment into the pending snapshot. A failed merge leaves
// the snapshot untouched.
func (v *Variable) Push(fragment string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	next, err := v.acc.Merge(v.pending, fragment)
	if err != nil {
		v.logger.Warn().Err(err).Str("fragment", fragment).Msg("rejected update fragment")
		if v.recorder != nil {
			v.recorder.RecordMerge("error", 0)
		}
		return err
	}
	v.pending = next

	if v.recorder != nil {
		updates, _ := v.acc.Parse(next)
		v.recorder.RecordMerge("success", len(updates))
	}
	return nil
}

// Restore replaces the pending snapshot with a validated, normalized copy
// of snapshot, for example one persisted before a restart.
func (v *Variable) Restore(snapshot string) error {
	updates, err := v.acc.Parse(snapshot)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pending = v.acc.Format(updates)
	return nil
}

// Snapshot returns the pending snapshot.
func (v *Variable) Snapshot() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pending
}

// Flush returns the pending snapshot and resets it.
func (v *Variable) Flush() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.flushLocked()
}

func (v *Variable) flushLocked() string {
	out := v.pending
	v.pending = v.acc.Reset()
	return out
}

// TryEmit flushes the pending snapshot if anything is pending and the rate
// limit permits an emission now.
func (v *Variable) TryEmit() (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.pending == "" {
		return "", false
	}
	if !v.limiter.AllowN(v.now(), 1) {
		if v.recorder != nil {
			v.recorder.RecordEmission(false)
		}
		return "", false
	}
	out := v.flushLocked()
	if v.recorder != nil {
		v.recorder.RecordEmission(true)
	}
	v.logger.Debug().Str("snapshot", out).Msg("emitting moderated update")
	return out, true
}

// Run polls for emissions every tick and passes each emitted snapshot to
// emit until ctx is done.
func (v *Variable) Run(ctx context.Context, tick time.Duration, emit func(snapshot string)) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if snapshot, ok := v.TryEmit(); ok {
				emit(snapshot)
			}
		}
	}
}
