package timeutil_test

import (
	"testing"
	"time"

	"github.com/eluv-io/utc-go"
	"github.com/stretchr/testify/require"

	"github.com/eluv-io/atomic-go/util/timeutil"
)

func TestStopWatch(t *testing.T) {
	now := utc.UnixMilli(1000)
	defer utc.MockNowFn(func() utc.UTC { return now })()

	watch := timeutil.StartWatch()
	require.Equal(t, now, watch.StartTime())
	require.True(t, watch.StopTime().IsZero())

	now = now.Add(20 * time.Millisecond)
	require.Equal(t, 20*time.Millisecond, watch.Duration())

	watch.Stop()
	now = now.Add(time.Second)
	require.Equal(t, 20*time.Millisecond, watch.Duration())
	require.Equal(t, utc.UnixMilli(1020), watch.StopTime())
}
