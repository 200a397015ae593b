package timeutil

import (
	"time"

	"github.com/eluv-io/utc-go"
)

// StopWatch measures elapsed time.
type StopWatch struct {
	startTime utc.UTC
	stopTime  utc.UTC
}

// StartWatch starts and returns a stopwatch.
//
//	sw := timeutil.StartWatch()
//	...
//	sw.Stop()
//	sw.Duration() // elapsed time between start and stop
func StartWatch() *StopWatch {
	return &StopWatch{startTime: utc.Now()}
}

// Stop stops the stopwatch by recording the stop time. The stopwatch may be
// stopped multiple times, but only the last stop time is retained.
func (w *StopWatch) Stop() {
	w.stopTime = utc.Now()
}

// StartTime returns the time when the stopwatch was started.
func (w *StopWatch) StartTime() utc.UTC {
	return w.startTime
}

// StopTime returns the time when the stopwatch was stopped or the zero value of
// utc.UTC if it hasn't been stopped yet.
func (w *StopWatch) StopTime() utc.UTC {
	return w.stopTime
}

// Duration returns the elapsed duration between start and stop time, or between
// start time and now if the stopwatch is still running.
func (w *StopWatch) Duration() time.Duration {
	if w.stopTime.IsZero() {
		return utc.Now().Sub(w.startTime)
	}
	return w.stopTime.Sub(w.startTime)
}
