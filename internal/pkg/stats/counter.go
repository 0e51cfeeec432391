package stats

import (
	"sync/atomic"
	"time"
)

type counter struct {
	v atomic.Uint64
}

func (c *counter) incr(step uint64) { c.v.Add(step) }
func (c *counter) get() uint64      { return c.v.Load() }
func (c *counter) reset()           { c.v.Store(0) }

// durationMean averages fetch durations at nanosecond precision.
type durationMean struct {
	count atomic.Uint64
	total atomic.Int64
}

func (m *durationMean) observe(d time.Duration) {
	m.count.Add(1)
	m.total.Add(int64(d))
}

func (m *durationMean) get() time.Duration {
	n := m.count.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(m.total.Load() / int64(n))
}

func (m *durationMean) reset() {
	m.count.Store(0)
	m.total.Store(0)
}
