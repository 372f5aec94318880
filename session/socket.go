package session

import (
	"context"

	"github.com/gcodehost/gcodehost/corerr"
	"github.com/gcodehost/gcodehost/protocol"
)

// Socket is the cloneable façade over a session's background loop. Every
// clone shares the outbound queue and the line encoder (hence the
// sequence counter); each clone owns its own subscription cursor.
type Socket struct {
	*Subscription
	outbound chan<- *request
	encoder  *protocol.LineEncoder
}

func newSocket(outbound chan<- *request, encoder *protocol.LineEncoder, sub *Subscription) *Socket {
	return &Socket{Subscription: sub, outbound: outbound, encoder: encoder}
}

// Clone returns a new Socket sharing this one's outbound queue and
// encoder, with its own independent broadcast cursor.
func (s *Socket) Clone() *Socket {
	return &Socket{
		Subscription: s.Subscription.SubscribeLines(),
		outbound:     s.outbound,
		encoder:      s.encoder.Clone(),
	}
}

// Send encodes value as a sequenced line, enqueues it, and blocks until
// the device acknowledges it (Ok) or the session tears down
// (WontRespond).
func (s *Socket) Send(ctx context.Context, value protocol.Encodable) error {
	seq, b := s.encoder.SerializeSequenced(value)
	entry := newPendingEntry(b)
	req := &request{key: someKey(seq), bytes: b, completion: entry}
	if err := s.enqueue(ctx, req); err != nil {
		return err
	}
	return s.await(ctx, entry)
}

// SendUnsequenced encodes value with no sequence number, enqueues it, and
// blocks on the same completion semantics as Send, keyed on the single
// None slot.
func (s *Socket) SendUnsequenced(ctx context.Context, value protocol.Encodable) error {
	b := s.encoder.SerializeUnsequenced(value)
	entry := newPendingEntry(b)
	req := &request{key: noneKey(), bytes: b, completion: entry}
	if err := s.enqueue(ctx, req); err != nil {
		return err
	}
	return s.await(ctx, entry)
}

// SendRaw enqueues bytes verbatim with no completion tracking. It
// resolves as soon as the bytes are queued.
func (s *Socket) SendRaw(ctx context.Context, raw []byte) error {
	req := &request{bytes: raw}
	return s.enqueue(ctx, req)
}

// TrySend is Send's non-blocking-enqueue sibling: it fails immediately
// with a Backpressure error if the outbound queue is full, rather than
// awaiting a slot.
func (s *Socket) TrySend(ctx context.Context, value protocol.Encodable) error {
	seq, b := s.encoder.SerializeSequenced(value)
	entry := newPendingEntry(b)
	req := &request{key: someKey(seq), bytes: b, completion: entry}
	if err := s.tryEnqueue(req); err != nil {
		return err
	}
	return s.await(ctx, entry)
}

// TrySendUnsequenced is SendUnsequenced's non-blocking-enqueue sibling.
func (s *Socket) TrySendUnsequenced(ctx context.Context, value protocol.Encodable) error {
	b := s.encoder.SerializeUnsequenced(value)
	entry := newPendingEntry(b)
	req := &request{key: noneKey(), bytes: b, completion: entry}
	if err := s.tryEnqueue(req); err != nil {
		return err
	}
	return s.await(ctx, entry)
}

// TrySendRaw is SendRaw's non-blocking-enqueue sibling.
func (s *Socket) TrySendRaw(raw []byte) error {
	req := &request{bytes: raw}
	return s.tryEnqueue(req)
}

func (s *Socket) enqueue(ctx context.Context, req *request) error {
	select {
	case s.outbound <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Socket) tryEnqueue(req *request) error {
	select {
	case s.outbound <- req:
		return nil
	default:
		return corerr.Backpressure("socket.try_send")
	}
}

func (s *Socket) await(ctx context.Context, entry *pendingEntry) error {
	select {
	case err := <-entry.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
