package observer

import "time"

type debounced struct {
	name string
	gen  uint64
}

type pendingFile struct {
	timer *time.Timer
	gen   uint64
}

// debouncer delays a file until it has been quiet for delay. A timer that
// already fired cannot be recalled, so every event carries a generation and
// only the latest one is accepted. Not safe for concurrent use; it belongs to
// the event loop.
type debouncer struct {
	delay   time.Duration
	out     chan debounced
	done    <-chan struct{}
	pending map[string]*pendingFile
}

func newDebouncer(delay time.Duration, done <-chan struct{}) *debouncer {
	return &debouncer{
		delay:   delay,
		out:     make(chan debounced, 16),
		done:    done,
		pending: map[string]*pendingFile{},
	}
}

// touch (re)starts the quiet period for name.
func (d *debouncer) touch(name string) {
	pf, ok := d.pending[name]
	if !ok {
		pf = &pendingFile{}
		d.pending[name] = pf
	} else {
		pf.timer.Stop()
	}
	pf.gen++

	ev := debounced{name: name, gen: pf.gen}
	out, done := d.out, d.done
	pf.timer = time.AfterFunc(d.delay, func() {
		select {
		case out <- ev:
		case <-done:
		}
	})
}

// accept reports whether ev is the latest event for its file and forgets it.
func (d *debouncer) accept(ev debounced) bool {
	pf, ok := d.pending[ev.name]
	if !ok || pf.gen != ev.gen {
		return false
	}
	delete(d.pending, ev.name)
	return true
}

func (d *debouncer) stop() {
	for _, pf := range d.pending {
		pf.timer.Stop()
	}
}
