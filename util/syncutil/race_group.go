package syncutil

import (
	"sync"
	"time"

	"github.com/eluv-io/errors-go"
)

type Workfn func() error

// RaceGroup runs a set of functions concurrently such that they all start at
// (roughly) the same time: each function is launched in its own goroutine, but
// parked behind a gate that is only opened by StartWait. This maximizes the
// contention between the functions and is used to exercise lock-free code.
//
//	rg := NewRaceGroup("swap")
//	for i := 0; i < n; i++ {
//		_ = rg.Go(func() error { ... })
//	}
//	err := rg.StartWait(time.Second)
//
// Go must not be called concurrently with StartWait.
type RaceGroup struct {
	name    string
	wg      sync.WaitGroup
	gate    chan struct{}
	started AtomicBool
	mu      sync.Mutex
	errs    []error
	size    int
}

func NewRaceGroup(name string) *RaceGroup {
	return &RaceGroup{
		name: name,
		gate: make(chan struct{}),
	}
}

// Go launches the given functions. They block until StartWait is called.
func (g *RaceGroup) Go(fns ...Workfn) error {
	if g.started.IsTrue() {
		return errors.E("RaceGroup.Go", errors.K.Invalid, "reason", "already started", "name", g.name)
	}
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		g.size++
		g.wg.Add(1)
		go g.run(fn)
	}
	return nil
}

func (g *RaceGroup) run(fn Workfn) {
	defer g.wg.Done()
	<-g.gate
	err := fn()
	if err != nil {
		g.mu.Lock()
		g.errs = append(g.errs, err)
		g.mu.Unlock()
	}
}

// Size returns the number of functions launched with Go.
func (g *RaceGroup) Size() int {
	return g.size
}

// StartWait opens the gate, releasing all functions at once, and waits until
// they complete. A timeout of zero or less waits indefinitely. Otherwise an
// error of kind Timeout is returned if the functions don't complete in time -
// they are not interrupted and keep running in the background.
//
// Errors returned by the functions are aggregated: a single error is returned
// as is, multiple errors are wrapped with the remaining ones as "other_causes".
// StartWait may only be called once.
func (g *RaceGroup) StartWait(timeout time.Duration) error {
	if !g.started.TrySetTrue() {
		return errors.E("RaceGroup.StartWait", errors.K.Invalid, "reason", "already started", "name", g.name)
	}
	close(g.gate)

	if timeout <= 0 {
		g.wg.Wait()
	} else if WaitTimeout(&g.wg, timeout) {
		return errors.E("RaceGroup.StartWait", errors.K.Timeout,
			"name", g.name,
			"timeout", timeout,
			"workers", g.size)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.errs) > 1 {
		return errors.E(g.name, errors.K.Invalid, g.errs[0], "other_causes", g.errs[1:])
	} else if len(g.errs) == 1 {
		return g.errs[0]
	}
	return nil
}
