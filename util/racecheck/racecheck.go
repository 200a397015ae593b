// Package racecheck stress-tests the atomic flag primitive: it repeatedly lets
// a configurable number of goroutines contend on a single cell and verifies the
// outcome of every round against the sequential semantics of the operations
// involved (no lost updates, a single CAS winner, toggle parity).
package racecheck

import (
	"context"
	"fmt"

	"github.com/eluv-io/errors-go"
	elog "github.com/eluv-io/log-go"
	"go.uber.org/atomic"

	"github.com/eluv-io/atomic-go/format/duration"
	"github.com/eluv-io/atomic-go/util/histogram"
	"github.com/eluv-io/atomic-go/util/jsonutil"
	"github.com/eluv-io/atomic-go/util/stackutil"
	"github.com/eluv-io/atomic-go/util/syncutil"
	"github.com/eluv-io/atomic-go/util/syncutil/atomicutil"
	"github.com/eluv-io/atomic-go/util/syncutil/volatile"
	"github.com/eluv-io/atomic-go/util/timeutil"
)

var log = elog.Get("/eluvio/util/racecheck")

// Report is the result of a run. The counters are updated concurrently by the
// workers while the run is in progress.
type Report struct {
	Mode             Mode            `json:"mode"`
	Workers          int             `json:"workers"`
	Rounds           int             `json:"rounds"`            // number of completed rounds
	Operations       *volatile.Int64 `json:"operations"`        // successful compound operations or CAS calls
	Attempts         *volatile.Int64 `json:"attempts"`          // CAS attempts in spin loops
	MaxAttempts      *volatile.Int64 `json:"max_attempts"`      // max CAS attempts of a single spin loop
	GaveUp           *volatile.Int64 `json:"gave_up"`           // spin loops that reached MaxSpins
	SpuriousFailures int64           `json:"spurious_failures"` // spurious weak CAS failures
	Violations       int             `json:"violations"`
	StuckWorkers     int             `json:"stuck_workers,omitempty"` // workers still running after a round timed out
	FirstViolation   string          `json:"first_violation,omitempty"`
	Duration         duration.Spec   `json:"duration"`

	RoundDurations *histogram.DurationHistogram `json:"round_durations"`
}

func newReport(cfg *Config) *Report {
	return &Report{
		Mode:        cfg.Mode,
		Workers:     cfg.Workers,
		Operations:  volatile.NewInt64(0),
		Attempts:    volatile.NewInt64(0),
		MaxAttempts: volatile.NewInt64(0),
		GaveUp:      volatile.NewInt64(0),

		RoundDurations: histogram.NewRoundHistogram(),
	}
}

func (r *Report) String() string {
	return jsonutil.MarshalCompactString(r)
}

// Run executes the configured number of rounds and returns the report. If any
// round violates the expected outcome, the report is returned together with an
// error of kind Internal. A round that does not complete within the configured
// timeout aborts the run with an error of kind Timeout. Cancelling the context
// stops the run between rounds.
func Run(ctx context.Context, cfg *Config) (*Report, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return newRunner(cfg).run(ctx)
}

type runner struct {
	cfg       *Config
	report    *Report
	newCell   func() atomicutil.Cell
	violation error
}

func newRunner(cfg *Config) *runner {
	r := &runner{
		cfg:    cfg,
		report: newReport(cfg),
	}
	r.newCell = r.defaultCell
	return r
}

func (r *runner) run(ctx context.Context) (*Report, error) {
	log.Info("racecheck started",
		"mode", r.cfg.Mode,
		"workers", r.cfg.Workers,
		"rounds", r.cfg.Rounds,
		"failure_rate", r.cfg.FailureRate)

	watch := timeutil.StartWatch()
	defer r.stopWatch(watch)

	for i := 0; i < r.cfg.Rounds; i++ {
		select {
		case <-ctx.Done():
			return r.report, errors.E("racecheck.Run", errors.K.Cancelled, ctx.Err(),
				"completed_rounds", r.report.Rounds)
		default:
		}

		err := r.round(i)
		if err != nil {
			return r.report, err
		}
		r.report.Rounds++
	}

	r.stopWatch(watch)
	log.Info("racecheck finished", "report", jsonutil.Stringer(r.report))

	if r.violation != nil {
		return r.report, errors.E("racecheck.Run", errors.K.Internal, r.violation,
			"violations", r.report.Violations)
	}
	return r.report, nil
}

func (r *runner) stopWatch(watch *timeutil.StopWatch) {
	watch.Stop()
	r.report.Duration = duration.Spec(watch.Duration()).Round()
}

// defaultCell returns the flag under test: a plain atomicutil.Bool or, with a
// failure rate, an atomicutil.SpuriousBool.
func (r *runner) defaultCell() atomicutil.Cell {
	if r.cfg.FailureRate > 0 {
		return atomicutil.NewSpuriousBool(false, r.cfg.FailureRate)
	}
	return atomicutil.NewBool(false)
}

// round runs a single round on a fresh cell and records a violation of the
// expected outcome in the report. The returned error is non-nil only if the
// round could not be completed.
func (r *runner) round(idx int) error {
	c := r.newCell()

	var check func() error
	rg := syncutil.NewRaceGroup(fmt.Sprintf("racecheck-%s-%d", r.cfg.Mode, idx))
	switch r.cfg.Mode {
	case ModeGetAndSet:
		check = r.getAndSet(rg, c)
	case ModeCAS:
		check = r.compareAndSet(rg, c)
	case ModeToggle:
		check = r.toggle(rg, c)
	}

	watch := timeutil.StartWatch()
	err := rg.StartWait(r.cfg.Timeout.Duration())
	if err != nil {
		if errors.IsKind(errors.K.Timeout, err) {
			r.report.StuckWorkers = stuckWorkers()
			return errors.E("racecheck.round", err, "round", idx, "stuck_goroutines", r.report.StuckWorkers)
		}
		return errors.E("racecheck.round", err, "round", idx)
	}
	watch.Stop()
	r.report.RoundDurations.Observe(watch.Duration())

	if sb, ok := c.(*atomicutil.SpuriousBool); ok {
		r.report.SpuriousFailures += sb.SpuriousFailures()
	}

	violation := check()
	if violation != nil {
		violation = errors.E("racecheck.round", errors.K.Internal, violation, "round", idx, "mode", r.cfg.Mode)
		log.Warn("violation detected", "error", violation)
		r.report.Violations++
		if r.violation == nil {
			r.violation = violation
			r.report.FirstViolation = violation.Error()
		}
	} else if log.IsDebug() {
		log.Debug("round completed", "round", idx, "value", c.Get())
	}
	return nil
}

// stuckWorkers logs the stacks of the workers that are still running and
// returns their number.
func stuckWorkers() int {
	snap, err := stackutil.Capture()
	if err != nil {
		log.Warn("failed to capture goroutine stacks", "error", err)
		return 0
	}
	snap.FilterText(
		"racecheck.(*runner).getAndSet.func",
		"racecheck.(*runner).compareAndSet.func",
		"racecheck.(*runner).toggle.func")
	log.Warn("round timed out", "stuck_goroutines", len(snap.Goroutines), "stacks", snap.String())
	return len(snap.Goroutines)
}

// spin runs the update function on the cell in a spin loop and records the
// attempts. Returns the previous value and false if the loop gave up.
func (r *runner) spin(c atomicutil.Cell, fn func(bool) bool) (prev bool, ok bool) {
	prev, attempts, err := atomicutil.Spin(c, fn, r.cfg.MaxSpins)
	r.report.Attempts.Add(int64(attempts))
	r.report.MaxAttempts.Max(int64(attempts))
	if err != nil {
		r.report.GaveUp.Add(1)
		return prev, false
	}
	r.report.Operations.Add(1)
	return prev, true
}

// swapper is implemented by cells with a native GetAndSet spin loop.
type swapper interface {
	GetAndSet(val bool) bool
}

// getAndSetTrue swaps in true with the cell's own GetAndSet if it has one and
// spins are unbounded, and with a (bounded) Spin otherwise.
func (r *runner) getAndSetTrue(c atomicutil.Cell) (prev bool, ok bool) {
	if s, isSwapper := c.(swapper); isSwapper && r.cfg.MaxSpins == 0 {
		prev = s.GetAndSet(true)
		r.report.Operations.Add(1)
		return prev, true
	}
	return r.spin(c, setTrue)
}

func setTrue(bool) bool { return true }

func flip(b bool) bool { return !b }

func (r *runner) getAndSet(rg *syncutil.RaceGroup, c atomicutil.Cell) (check func() error) {
	completed := atomic.NewInt64(0)
	sawFalse := atomic.NewInt64(0)
	for i := 0; i < r.cfg.Workers; i++ {
		_ = rg.Go(func() error {
			prev, ok := r.getAndSetTrue(c)
			if ok {
				completed.Inc()
				if !prev {
					sawFalse.Inc()
				}
			}
			return nil
		})
	}

	return func() error {
		if completed.Load() == 0 {
			if c.Get() {
				return errors.E("check", "reason", "value changed without a completed swap")
			}
			return nil
		}
		if sawFalse.Load() != 1 {
			return errors.E("check", "reason", "lost update",
				"completed", completed.Load(),
				"observed_false", sawFalse.Load())
		}
		if !c.Get() {
			return errors.E("check", "reason", "final value is false")
		}
		return nil
	}
}

func (r *runner) compareAndSet(rg *syncutil.RaceGroup, c atomicutil.Cell) (check func() error) {
	winners := atomic.NewInt64(0)
	for i := 0; i < r.cfg.Workers; i++ {
		_ = rg.Go(func() error {
			if c.CompareAndSet(false, true) {
				winners.Inc()
			}
			r.report.Operations.Add(1)
			return nil
		})
	}

	return func() error {
		if winners.Load() != 1 {
			return errors.E("check", "reason", "expected exactly one winner", "winners", winners.Load())
		}
		if !c.Get() {
			return errors.E("check", "reason", "final value is false")
		}
		return nil
	}
}

func (r *runner) toggle(rg *syncutil.RaceGroup, c atomicutil.Cell) (check func() error) {
	rises := atomic.NewInt64(0)
	falls := atomic.NewInt64(0)
	for i := 0; i < r.cfg.Workers; i++ {
		_ = rg.Go(func() error {
			for j := 0; j < r.cfg.Ops; j++ {
				prev, ok := r.spin(c, flip)
				if !ok {
					continue
				}
				if prev {
					falls.Inc()
				} else {
					rises.Inc()
				}
			}
			return nil
		})
	}

	return func() error {
		toggles := rises.Load() + falls.Load()
		final := c.Get()
		if final != (toggles%2 == 1) {
			return errors.E("check", "reason", "final value does not match toggle parity",
				"toggles", toggles,
				"final", final)
		}
		diff := rises.Load() - falls.Load()
		if (final && diff != 1) || (!final && diff != 0) {
			return errors.E("check", "reason", "unbalanced transitions",
				"rises", rises.Load(),
				"falls", falls.Load(),
				"final", final)
		}
		return nil
	}
}
