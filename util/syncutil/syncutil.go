package syncutil

import (
	"sync"
	"time"

	elog "github.com/eluv-io/log-go"

	"github.com/eluv-io/atomic-go/util/timeutil"
)

var log = elog.Get("/eluvio/util/syncutil")

// WaitTimeout waits for the waitgroup for the specified max timeout.
// Returns true if waiting timed out.
//
// NOTE: upon timeout, any go routines the wait group is waiting on are NOT
// INTERRUPTED in any way - they continue to run (or spin)
func WaitTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	watch := timeutil.StartWatch()
	c := make(chan struct{})
	go func() {
		defer close(c)
		wg.Wait()
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c:
		if log.IsDebug() {
			log.Debug("wait finished before timeout", "timeout", timeout, "actual_duration", watch.Duration())
		}
		return false
	case <-timer.C:
		if log.IsInfo() {
			log.Info("wait timed out!", "timeout", timeout, "actual_duration", watch.Duration())
		}
		return true
	}
}
