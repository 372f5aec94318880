package session

import (
	"sort"
	"sync"

	"github.com/gcodehost/gcodehost/corerr"
)

// seqKey is Option<sequence>: the zero value with has=false is the single
// None slot that covers unsequenced lines still awaiting completion.
type seqKey struct {
	seq int32
	has bool
}

func noneKey() seqKey        { return seqKey{} }
func someKey(n int32) seqKey { return seqKey{seq: n, has: true} }

// pendingEntry is a one-shot completion handle plus the encoded bytes
// retained for possible retransmission.
type pendingEntry struct {
	bytes []byte
	done  chan error
	once  sync.Once
}

func newPendingEntry(bytes []byte) *pendingEntry {
	return &pendingEntry{bytes: bytes, done: make(chan error, 1)}
}

// fire resolves the completion exactly once; later calls are no-ops, so a
// displaced or drained entry can never be fired twice.
func (p *pendingEntry) fire(err error) {
	p.once.Do(func() {
		p.done <- err
		close(p.done)
	})
}

// pendingTable is the session loop's exclusively-owned map from sequence
// key to in-flight completion. The map itself is unordered; an unsequenced
// resend request gets a deterministic replay order because
// sequencedInOrder sorts the sequenced keys each time it is called.
type pendingTable struct {
	entries map[seqKey]*pendingEntry
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[seqKey]*pendingEntry)}
}

// insert adds e under key, displacing (and WontResponding) any prior
// occupant of that key — the None slot is single-occupant, so a second
// unsequenced completion-seeking request always displaces the first.
func (t *pendingTable) insert(key seqKey, e *pendingEntry) {
	if prior, ok := t.entries[key]; ok {
		prior.fire(corerr.WontRespond("session.pending"))
	}
	t.entries[key] = e
}

func (t *pendingTable) get(key seqKey) (*pendingEntry, bool) {
	e, ok := t.entries[key]
	return e, ok
}

func (t *pendingTable) remove(key seqKey) (*pendingEntry, bool) {
	e, ok := t.entries[key]
	if ok {
		delete(t.entries, key)
	}
	return e, ok
}

func (t *pendingTable) len() int {
	return len(t.entries)
}

// sequencedInOrder returns every Some(seq) entry, sorted by increasing
// sequence number, for Resend(None) to replay deterministically.
func (t *pendingTable) sequencedInOrder() []*pendingEntry {
	keys := make([]seqKey, 0, len(t.entries))
	for k := range t.entries {
		if k.has {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].seq < keys[j].seq })
	out := make([]*pendingEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, t.entries[k])
	}
	return out
}

// drainAll removes every entry and fires each with WontRespond, used on
// session termination so every waiter observes disconnection.
func (t *pendingTable) drainAll() {
	for k, e := range t.entries {
		delete(t.entries, k)
		e.fire(corerr.WontRespond("session.pending"))
	}
}
