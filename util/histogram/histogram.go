package histogram

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/eluv-io/errors-go"

	"github.com/eluv-io/atomic-go/format/duration"
)

// OutlierLabel is the label of the bin that collects values above the max of
// the last bounded bin.
const OutlierLabel = "outliers"

// NewRoundHistogram creates a histogram with bins suitable for the duration of
// a single contention round: from a few microseconds for a handful of workers
// up to seconds for heavily oversubscribed runs.
func NewRoundHistogram() *DurationHistogram {
	h, _ := NewDurationHistogram([]*Bin{
		{Label: "0-50µs", Max: 50 * time.Microsecond},
		{Label: "50µs-100µs", Max: 100 * time.Microsecond},
		{Label: "100µs-500µs", Max: 500 * time.Microsecond},
		{Label: "500µs-1ms", Max: time.Millisecond},
		{Label: "1ms-5ms", Max: 5 * time.Millisecond},
		{Label: "5ms-10ms", Max: 10 * time.Millisecond},
		{Label: "10ms-50ms", Max: 50 * time.Millisecond},
		{Label: "50ms-100ms", Max: 100 * time.Millisecond},
		{Label: "100ms-1s", Max: time.Second},
		{Label: "1s-"},
	})
	return h
}

// Bin is a single bin of a DurationHistogram.
type Bin struct {
	Label string
	// Max is the upper bound of the bin, the lower bound is the max of the
	// previous bin. 0 means unbounded and is only allowed for the last bin.
	Max   time.Duration
	Count int64
	DSum  int64 // sum of the durations in this bin
}

type serializedBin struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
	DSum  int64  `json:"dsum"`
}

// DurationHistogram counts durations in predefined bins. It is safe for
// concurrent use.
type DurationHistogram struct {
	mu   sync.Mutex
	bins []*Bin
}

// NewDurationHistogram creates a histogram from the given empty bins, which
// must be in strictly increasing order of their max. An outlier bin is added
// if the last bin is bounded. Outliers are ignored for statistics.
func NewDurationHistogram(bins []*Bin) (*DurationHistogram, error) {
	e := errors.Template("NewDurationHistogram", errors.K.Invalid)

	if len(bins) == 0 {
		return nil, e("reason", "no bins")
	}
	for i, b := range bins {
		switch {
		case b.Max == 0 && i != len(bins)-1:
			return nil, e("reason", "unbounded bin not final bin", "label", b.Label, "index", i)
		case b.Max != 0 && i > 0 && b.Max <= bins[i-1].Max:
			return nil, e("reason", "bins not strictly increasing",
				"label", b.Label,
				"max", b.Max,
				"prev_max", bins[i-1].Max)
		case b.Count != 0 || b.DSum != 0:
			return nil, e("reason", "bin not empty", "label", b.Label)
		}
	}
	if bins[len(bins)-1].Max != 0 {
		bins = append(bins, &Bin{Label: OutlierLabel})
	}
	return &DurationHistogram{bins: bins}, nil
}

// Observe adds the given duration to the matching bin.
func (h *DurationHistogram) Observe(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	last := len(h.bins) - 1
	for i, b := range h.bins {
		if d <= b.Max || i == last {
			b.Count++
			b.DSum += int64(d)
			return
		}
	}
}

// TotalCount returns the number of observations, excluding outliers.
func (h *DurationHistogram) TotalCount() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	count, _ := h.totals()
	return count
}

// Average returns the average of all observations, excluding outliers.
func (h *DurationHistogram) Average() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.average()
}

// Quantile approximates the value at the q-th quantile, q in [0, 1], assuming
// a uniform distribution of the values within each bin. For an unbounded last
// bin, values are assumed to be spread over [bin_min, 2*bin_average]. Returns
// -1 if q is out of range.
func (h *DurationHistogram) Quantile(q float64) time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.quantile(q)
}

func (h *DurationHistogram) average() time.Duration {
	count, sum := h.totals()
	if count == 0 {
		return 0
	}
	return time.Duration(sum / count)
}

func (h *DurationHistogram) quantile(q float64) time.Duration {
	if q < 0 || q > 1 {
		return -1
	}
	total, _ := h.totals()
	rank := q * float64(total)
	if rank == 0 {
		return 0
	}

	for i, b := range h.bins {
		if b.Label == OutlierLabel {
			continue
		}
		count := float64(b.Count)
		if rank > count {
			rank -= count
			continue
		}
		var start time.Duration
		if i > 0 {
			start = h.bins[i-1].Max
		}
		span := b.Max - start
		if b.Max == 0 {
			span = (time.Duration(b.DSum/b.Count) - start) * 2
		}
		return start + time.Duration(rank/count*float64(span))
	}
	return -1
}

func (h *DurationHistogram) totals() (count int64, sum int64) {
	for _, b := range h.bins {
		if b.Label == OutlierLabel {
			continue
		}
		count += b.Count
		sum += b.DSum
	}
	return count, sum
}

type summary struct {
	Count   int64           `json:"count"`
	Average duration.Spec   `json:"average"`
	P50     duration.Spec   `json:"p50"`
	P99     duration.Spec   `json:"p99"`
	Bins    []serializedBin `json:"bins"`
}

// MarshalJSON marshals a summary of the histogram: count, average, median and
// 99th percentile (all excluding outliers) and the non-empty bins.
func (h *DurationHistogram) MarshalJSON() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	count, _ := h.totals()
	res := summary{
		Count:   count,
		Average: duration.Spec(h.average()).Round(),
		P50:     duration.Spec(h.quantile(0.5)).Round(),
		P99:     duration.Spec(h.quantile(0.99)).Round(),
		Bins:    make([]serializedBin, 0, len(h.bins)),
	}
	for _, b := range h.bins {
		if b.Count == 0 {
			continue
		}
		res.Bins = append(res.Bins, serializedBin{Label: b.Label, Count: b.Count, DSum: b.DSum})
	}
	return json.Marshal(res)
}

func (h *DurationHistogram) String() string {
	bts, err := json.Marshal(h)
	if err != nil {
		return err.Error()
	}
	return string(bts)
}
