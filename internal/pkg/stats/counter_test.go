package stats

import (
	"testing"
	"time"
)

func TestCounter(t *testing.T) {
	c := &counter{}

	c.incr(1)
	c.incr(5)
	if c.get() != 6 {
		t.Errorf("expected count to be 6, got %d", c.get())
	}

	c.reset()
	if c.get() != 0 {
		t.Errorf("expected count to be 0, got %d", c.get())
	}
}

func TestDurationMean(t *testing.T) {
	m := &durationMean{}
	if m.get() != 0 {
		t.Errorf("expected empty mean to be 0, got %s", m.get())
	}

	m.observe(100 * time.Millisecond)
	m.observe(300 * time.Millisecond)
	if m.get() != 200*time.Millisecond {
		t.Errorf("expected mean to be 200ms, got %s", m.get())
	}

	m.reset()
	if m.get() != 0 {
		t.Errorf("expected reset mean to be 0, got %s", m.get())
	}
}
