package racecheck

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/eluv-io/errors-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/eluv-io/atomic-go/format/duration"
	"github.com/eluv-io/atomic-go/util/syncutil/atomicutil"
)

func testConfig(mode Mode) *Config {
	cfg := DefaultConfig()
	cfg.Mode = mode
	cfg.Workers = 8
	cfg.Rounds = 20
	cfg.Ops = 50
	return cfg
}

func TestRun(t *testing.T) {
	for _, mode := range Modes {
		for _, rate := range []float64{0, 0.3} {
			cfg := testConfig(mode)
			cfg.FailureRate = rate
			t.Run(string(mode)+"-"+jsonFloat(rate), func(t *testing.T) {
				report, err := Run(context.Background(), cfg)
				require.NoError(t, err)
				require.Equal(t, cfg.Rounds, report.Rounds)
				require.Equal(t, 0, report.Violations)
				require.Empty(t, report.FirstViolation)
				require.Zero(t, report.GaveUp.Load())

				switch mode {
				case ModeToggle:
					require.Equal(t, int64(cfg.Rounds*cfg.Workers*cfg.Ops), report.Operations.Load())
				default:
					require.Equal(t, int64(cfg.Rounds*cfg.Workers), report.Operations.Load())
				}
				switch mode {
				case ModeToggle:
					require.GreaterOrEqual(t, report.Attempts.Load(), report.Operations.Load())
					require.GreaterOrEqual(t, report.MaxAttempts.Load(), int64(1))
				default:
					// unbounded swaps use the cell's own GetAndSet
					require.Zero(t, report.Attempts.Load())
				}
				if rate == 0 {
					require.Zero(t, report.SpuriousFailures)
				}
			})
		}
	}
}

func jsonFloat(f float64) string {
	bts, _ := json.Marshal(f)
	return string(bts)
}

// brokenCell reports success for every CAS without ever changing its value.
type brokenCell struct {
	atomicutil.Bool
}

func (c *brokenCell) CompareAndSet(bool, bool) bool     { return true }
func (c *brokenCell) WeakCompareAndSet(bool, bool) bool { return true }
func (c *brokenCell) GetAndSet(bool) bool               { return c.Get() }

// countingCell counts the calls of its GetAndSet.
type countingCell struct {
	atomicutil.Bool
	swaps *atomic.Int64
}

func (c *countingCell) GetAndSet(val bool) bool {
	c.swaps.Inc()
	return c.Bool.GetAndSet(val)
}

func TestRunGetAndSetUsesCellSwap(t *testing.T) {
	cfg := testConfig(ModeGetAndSet)
	swaps := atomic.NewInt64(0)
	r := newRunner(cfg)
	r.newCell = func() atomicutil.Cell { return &countingCell{swaps: swaps} }

	report, err := r.run(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(cfg.Rounds*cfg.Workers), swaps.Load())
	require.Equal(t, swaps.Load(), report.Operations.Load())
	require.Zero(t, report.Attempts.Load())

	// bounded spins bypass GetAndSet
	cfg.MaxSpins = 100
	swaps.Store(0)
	r = newRunner(cfg)
	r.newCell = func() atomicutil.Cell { return &countingCell{swaps: swaps} }

	report, err = r.run(context.Background())
	require.NoError(t, err)
	require.Zero(t, swaps.Load())
	require.GreaterOrEqual(t, report.Attempts.Load(), int64(cfg.Rounds*cfg.Workers))
}

func TestRunDetectsViolations(t *testing.T) {
	for _, mode := range Modes {
		t.Run(string(mode), func(t *testing.T) {
			cfg := testConfig(mode)
			cfg.Rounds = 3
			r := newRunner(cfg)
			r.newCell = func() atomicutil.Cell { return &brokenCell{} }

			report, err := r.run(context.Background())
			require.Error(t, err)
			require.True(t, errors.IsKind(errors.K.Internal, err))
			require.Equal(t, 3, report.Rounds)
			require.Equal(t, 3, report.Violations)
			require.NotEmpty(t, report.FirstViolation)
		})
	}
}

func TestRunGivesUp(t *testing.T) {
	cfg := testConfig(ModeGetAndSet)
	cfg.Rounds = 2
	cfg.MaxSpins = 3
	r := newRunner(cfg)
	r.newCell = func() atomicutil.Cell { return &stubbornCell{} }

	report, err := r.run(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(cfg.Rounds*cfg.Workers), report.GaveUp.Load())
	require.Equal(t, int64(0), report.Operations.Load())
	require.Equal(t, int64(3), report.MaxAttempts.Load())
}

// stubbornCell fails every weak CAS.
type stubbornCell struct {
	atomicutil.Bool
}

func (c *stubbornCell) WeakCompareAndSet(bool, bool) bool { return false }

// stuckCell fails every weak CAS until released.
type stuckCell struct {
	atomicutil.Bool
	release chan struct{}
}

func (c *stuckCell) WeakCompareAndSet(expected, update bool) bool {
	select {
	case <-c.release:
		return c.CompareAndSet(expected, update)
	default:
		return false
	}
}

func TestRunTimeout(t *testing.T) {
	cfg := testConfig(ModeToggle)
	cfg.Workers = 3
	cfg.Ops = 1
	cfg.Timeout = duration.Spec(20 * time.Millisecond)
	release := make(chan struct{})
	defer close(release)

	r := newRunner(cfg)
	r.newCell = func() atomicutil.Cell { return &stuckCell{release: release} }

	report, err := r.run(context.Background())
	require.Error(t, err)
	require.True(t, errors.IsKind(errors.K.Timeout, err))
	require.Contains(t, err.Error(), "stuck_goroutines")
	require.Equal(t, cfg.Workers, report.StuckWorkers)
	require.Equal(t, 0, report.Rounds)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Run(ctx, testConfig(ModeCAS))
	require.True(t, errors.IsKind(errors.K.Cancelled, err))
	require.Equal(t, 0, report.Rounds)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"mode", func(c *Config) { c.Mode = "swap" }},
		{"workers", func(c *Config) { c.Workers = 0 }},
		{"rounds", func(c *Config) { c.Rounds = 0 }},
		{"ops", func(c *Config) { c.Mode = ModeToggle; c.Ops = 0 }},
		{"max_spins", func(c *Config) { c.MaxSpins = -1 }},
		{"failure_rate", func(c *Config) { c.FailureRate = 1 }},
		{"failure_rate_nan", func(c *Config) { c.FailureRate = math.NaN() }},
		{"timeout", func(c *Config) { c.Timeout = 0 }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig()
			test.modify(cfg)
			err := cfg.Validate()
			require.True(t, errors.IsKind(errors.K.Invalid, err))

			_, err = Run(context.Background(), cfg)
			require.True(t, errors.IsKind(errors.K.Invalid, err))
		})
	}
}

func TestReportJSON(t *testing.T) {
	cfg := testConfig(ModeCAS)
	cfg.Rounds = 1
	report, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(report.String()), &m))
	require.Equal(t, "cas", m["mode"])
	require.Equal(t, float64(8), m["operations"])
	require.Equal(t, float64(0), m["violations"])
	require.NotContains(t, m, "first_violation")
	require.IsType(t, "", m["duration"])
	rounds, ok := m["round_durations"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, float64(1), rounds["count"])
	require.Contains(t, rounds, "p50")
	require.Contains(t, rounds, "p99")
	require.NotContains(t, m, "stuck_workers")
}
