package racecheck

import (
	"math"
	"time"

	"github.com/eluv-io/errors-go"

	"github.com/eluv-io/atomic-go/format/duration"
)

// Mode is the kind of contention a run exercises.
type Mode string

const (
	// ModeGetAndSet races GetAndSet(true) of all workers on a cell holding
	// false: exactly one worker must observe false. With MaxSpins, the swap is
	// a bounded Spin instead of the cell's GetAndSet.
	ModeGetAndSet Mode = "get-and-set"
	// ModeCAS races CompareAndSet(false, true) of all workers: exactly one must
	// succeed.
	ModeCAS Mode = "cas"
	// ModeToggle lets all workers toggle the cell Ops times: the final value must
	// match the parity of the number of toggles.
	ModeToggle Mode = "toggle"
)

var Modes = []Mode{ModeGetAndSet, ModeCAS, ModeToggle}

func (m Mode) valid() bool {
	for _, mode := range Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// Config is the configuration of a racecheck run.
type Config struct {
	Mode        Mode          `json:"mode"`
	Workers     int           `json:"workers"`      // number of concurrent goroutines per round
	Rounds      int           `json:"rounds"`       // number of rounds, each on a fresh cell
	Ops         int           `json:"ops"`          // toggles per worker and round in toggle mode
	MaxSpins    int           `json:"max_spins"`    // CAS attempts before a spin loop gives up, 0: unbounded
	FailureRate float64       `json:"failure_rate"` // probability of spurious weak CAS failures
	Timeout     duration.Spec `json:"timeout"`      // max duration of a single round
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Mode:     ModeGetAndSet,
		Workers:  16,
		Rounds:   100,
		Ops:      100,
		MaxSpins: 0,
		Timeout:  duration.Spec(10 * time.Second),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	e := errors.Template("validate racecheck config", errors.K.Invalid)
	switch {
	case !c.Mode.valid():
		return e("reason", "unknown mode", "mode", c.Mode, "modes", Modes)
	case c.Workers < 1:
		return e("reason", "at least one worker required", "workers", c.Workers)
	case c.Rounds < 1:
		return e("reason", "at least one round required", "rounds", c.Rounds)
	case c.Mode == ModeToggle && c.Ops < 1:
		return e("reason", "at least one op required", "ops", c.Ops)
	case c.MaxSpins < 0:
		return e("reason", "max spins must not be negative", "max_spins", c.MaxSpins)
	case math.IsNaN(c.FailureRate) || c.FailureRate < 0 || c.FailureRate >= 1:
		return e("reason", "failure rate out of range [0, 1)", "failure_rate", c.FailureRate)
	case c.Timeout <= 0:
		return e("reason", "timeout must be positive", "timeout", c.Timeout)
	}
	return nil
}
