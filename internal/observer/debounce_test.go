package observer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextEvent(t *testing.T, d *debouncer) debounced {
	t.Helper()
	select {
	case ev := <-d.out:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no debounced event")
		return debounced{}
	}
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	d := newDebouncer(20*time.Millisecond, make(chan struct{}))
	defer d.stop()

	for range 5 {
		d.touch("deck.pptx")
	}
	ev := nextEvent(t, d)
	assert.True(t, d.accept(ev))

	select {
	case extra := <-d.out:
		t.Fatalf("unexpected second event %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncer_TouchAfterFireIsDeliveredOnce(t *testing.T) {
	d := newDebouncer(20*time.Millisecond, make(chan struct{}))
	defer d.stop()

	d.touch("deck.pptx")
	fired := nextEvent(t, d)

	// A write lands after the timer fired but before the loop handled it.
	d.touch("deck.pptx")
	assert.False(t, d.accept(fired))

	latest := nextEvent(t, d)
	require.True(t, d.accept(latest))
	assert.Equal(t, "deck.pptx", latest.name)
	assert.False(t, d.accept(latest))
}

func TestDebouncer_FilesAreIndependent(t *testing.T) {
	d := newDebouncer(20*time.Millisecond, make(chan struct{}))
	defer d.stop()

	d.touch("a.pptx")
	d.touch("b.pptx")

	got := map[string]bool{}
	for range 2 {
		ev := nextEvent(t, d)
		require.True(t, d.accept(ev))
		got[ev.name] = true
	}
	assert.Equal(t, map[string]bool{"a.pptx": true, "b.pptx": true}, got)
}
