package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func TestManual_AfterFiresOnce(t *testing.T) {
	m := NewManual(epoch)
	calls := 0
	m.After(2*time.Second, func() { calls++ })

	m.Advance(time.Second)
	assert.Equal(t, 0, calls)

	m.Advance(time.Second)
	assert.Equal(t, 1, calls)

	m.Advance(10 * time.Second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, m.Pending())
}

func TestManual_EveryFiresPerInterval(t *testing.T) {
	m := NewManual(epoch)
	var seen []time.Time
	m.Every(time.Second, func() { seen = append(seen, m.Now()) })

	m.Advance(3 * time.Second)

	assert.Equal(t, []time.Time{
		epoch.Add(time.Second),
		epoch.Add(2 * time.Second),
		epoch.Add(3 * time.Second),
	}, seen)
}

func TestManual_StopFromInsideCallback(t *testing.T) {
	m := NewManual(epoch)
	calls := 0
	var task Task
	task = m.Every(time.Second, func() {
		calls++
		if calls == 2 {
			task.Stop()
		}
	})

	m.Advance(5 * time.Second)
	assert.Equal(t, 2, calls)
	assert.False(t, task.Stop())
}

func TestManual_OrderIsByDueTime(t *testing.T) {
	m := NewManual(epoch)
	var order []string
	m.After(3*time.Second, func() { order = append(order, "c") })
	m.After(time.Second, func() { order = append(order, "a") })
	m.After(2*time.Second, func() { order = append(order, "b") })

	m.Advance(5 * time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, epoch.Add(5*time.Second), m.Now())
}

func TestReal_EveryStops(t *testing.T) {
	ticks := make(chan struct{}, 10)
	task := Real{}.Every(5*time.Millisecond, func() { ticks <- struct{}{} })

	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("ticker never fired")
	}
	assert.True(t, task.Stop())
	assert.False(t, task.Stop())
}
