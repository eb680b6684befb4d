package app

import (
	"context"
	"sync"

	"kinobot/internal/tg"
)

// dispatcher runs events of one chat in arrival order on a single worker goroutine,
// while different chats proceed in parallel. A worker exits once its queue is drained.
type dispatcher struct {
	handle func(context.Context, tg.Event)

	mu      sync.Mutex
	pending map[int64][]tg.Event
	wg      sync.WaitGroup
}

func newDispatcher(handle func(context.Context, tg.Event)) *dispatcher {
	return &dispatcher{handle: handle, pending: map[int64][]tg.Event{}}
}

func (d *dispatcher) dispatch(ctx context.Context, ev tg.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q, busy := d.pending[ev.ChatID]
	d.pending[ev.ChatID] = append(q, ev)
	if busy {
		return
	}
	d.wg.Add(1)
	go d.drain(ctx, ev.ChatID)
}

func (d *dispatcher) drain(ctx context.Context, chatID int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		q := d.pending[chatID]
		if len(q) == 0 {
			delete(d.pending, chatID)
			d.mu.Unlock()
			return
		}
		ev := q[0]
		d.pending[chatID] = q[1:]
		d.mu.Unlock()

		d.handle(ctx, ev)
	}
}

// wait blocks until every queued event has been handled.
func (d *dispatcher) wait() { d.wg.Wait() }
