package session

import (
	"context"
	"sync"

	"github.com/gcodehost/gcodehost/corerr"
)

// broadcaster is a bounded, lossy-on-lag single-producer, multi-consumer
// fan-out of device lines, with per-subscriber cursors. Each subscriber
// gets its own buffered channel instead of sharing one queue, so one slow
// reader can never block another or the loop that's publishing to both.
type broadcaster struct {
	mu       sync.Mutex
	subs     map[int]chan string
	nextID   int
	capacity int
}

func newBroadcaster(capacity int) *broadcaster {
	return &broadcaster{subs: make(map[int]chan string), capacity: capacity}
}

func (b *broadcaster) subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan string, b.capacity)
	b.subs[id] = ch
	return &Subscription{id: id, ch: ch, b: b}
}

func (b *broadcaster) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// publish fans line out to every live subscriber. A subscriber that falls
// behind never blocks the loop: once its buffer fills, publish evicts the
// oldest queued line to make room for the new one, so a lagging reader
// that eventually catches up still sees the most recent activity instead
// of being stuck replaying a stale window. It reports false when there
// are no subscribers left to receive it at all, which the loop treats as
// fatal — a device session with no one left reading its output has
// nothing useful left to do.
func (b *broadcaster) publish(line string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.subs) == 0 {
		return false
	}
	for _, ch := range b.subs {
		select {
		case ch <- line:
		default:
			// Buffer's full: drop the oldest queued line to make room,
			// then retry. If a concurrent reader already drained it,
			// the eviction is a no-op and the send below just succeeds.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- line:
			default:
			}
		}
	}
	return true
}

func (b *broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// Subscription is an independent read cursor over a session's response
// broadcast.
type Subscription struct {
	id int
	ch <-chan string
	b  *broadcaster
}

// ReadNextLine awaits the next broadcast item on this cursor, returning a
// Disconnected error once the session has torn down.
func (s *Subscription) ReadNextLine(ctx context.Context) (string, error) {
	select {
	case line, ok := <-s.ch:
		if !ok {
			return "", corerr.Disconnected("socket.read_next_line")
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// SubscribeLines clones this cursor into a new, independent one.
func (s *Subscription) SubscribeLines() *Subscription {
	return s.b.subscribe()
}

// Close releases this cursor. It affects only this cursor; other clones
// keep receiving broadcast lines.
func (s *Subscription) Close() {
	s.b.unsubscribe(s.id)
}
