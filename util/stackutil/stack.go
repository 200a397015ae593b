package stackutil

import (
	"runtime"
	"sync"

	elog "github.com/eluv-io/log-go"
)

var log = elog.Get("/eluvio/util/stackutil")

var full = struct {
	buf   []byte
	mutex sync.Mutex
}{
	buf: make([]byte, 64*1024),
}

// FullStack creates a full dump of the stack traces of all current goroutines.
func FullStack() (stack string) {
	full.mutex.Lock()
	defer full.mutex.Unlock()

	buf := full.buf
	n := runtime.Stack(buf, true)

	defer func() {
		// out-of-memory panics while growing the buffer
		if r := recover(); r != nil {
			log.Error("recovered panic in stackutil.FullStack", "panic", r)
			if len(buf) >= n {
				stack = string(buf[:n])
			}
		}
	}()

	for n == len(buf) {
		buf = make([]byte, 4*len(buf))
		n = runtime.Stack(buf, true)
	}
	full.buf = buf
	return string(buf[:n])
}
