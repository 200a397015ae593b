package stackutil

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/eluv-io/errors-go"
	"github.com/eluv-io/utc-go"
	"github.com/maruel/panicparse/v2/stack"
)

// Snapshot is a parsed dump of goroutine stack traces.
type Snapshot struct {
	*stack.Snapshot
	Timestamp utc.UTC
}

// Capture creates a snapshot of all current goroutines.
func Capture() (*Snapshot, error) {
	return NewSnapshot(FullStack())
}

// NewSnapshot creates a snapshot by parsing the stack traces in the given
// string. Returns an error if no stack trace is found.
func NewSnapshot(trace string) (*Snapshot, error) {
	snapshot, _, err := stack.ScanSnapshot(bytes.NewBufferString(trace), io.Discard, stack.DefaultOpts())
	if snapshot == nil {
		return nil, errors.E("stackutil.NewSnapshot", errors.K.NotExist, err, "reason", "no stacktrace found")
	}
	s := &Snapshot{snapshot, utc.Now()}
	sort.SliceStable(s.Goroutines, func(i, j int) bool {
		return s.Goroutines[i].ID < s.Goroutines[j].ID
	})
	return s, nil
}

// FilterText retains the goroutines with at least one call whose function name
// or source file contains one of the given strings and removes all others.
// Returns the number of removed goroutines.
func (s *Snapshot) FilterText(match ...string) (removed int) {
	kept := s.Goroutines[:0]
	for _, g := range s.Goroutines {
		if matches(g, match) {
			kept = append(kept, g)
		}
	}
	removed = len(s.Goroutines) - len(kept)
	s.Goroutines = kept
	return removed
}

func matches(g *stack.Goroutine, match []string) bool {
	for _, call := range g.Stack.Calls {
		for _, m := range match {
			if strings.Contains(call.Func.Complete, m) || strings.Contains(call.SrcName, m) {
				return true
			}
		}
	}
	return false
}

// String returns the goroutines of the snapshot in a compact text form.
func (s *Snapshot) String() string {
	sb := strings.Builder{}
	for _, g := range s.Goroutines {
		_, _ = fmt.Fprintf(&sb, "goroutine %d [%s]:\n", g.ID, g.State)
		for _, call := range g.Stack.Calls {
			_, _ = fmt.Fprintf(&sb, "    %s\n        %s:%d\n", call.Func.Complete, call.SrcName, call.Line)
		}
	}
	return sb.String()
}
