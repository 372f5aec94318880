// Package session implements the device session: line encoding glue, the
// background I/O loop, the pending-request table, the response broadcast,
// and the cloneable Socket façade callers use to talk to it.
package session

import (
	"context"
	"io"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gcodehost/gcodehost/corelog"
	"github.com/gcodehost/gcodehost/corerr"
	"github.com/gcodehost/gcodehost/protocol"
)

// connSeq numbers successive connections so every Connect gets a distinct
// correlation id in its log lines, even across repeated reconnects on the
// same Session.
var connSeq atomic.Int64

// Session is either Disconnected or Connected to a live transport with a
// running background loop. The zero value is Disconnected.
type Session struct {
	mu  sync.Mutex
	cur *connected
	log *corelog.Logger
}

type connected struct {
	socket *Socket
	loop   *loop
	cancel chan struct{}
	once   sync.Once
}

// New returns a Disconnected session using the given logger (or
// corelog.Default() if nil).
func New(log *corelog.Logger) *Session {
	if log == nil {
		log = corelog.Default()
	}
	return &Session{log: log}
}

// Connect transitions Disconnected -> Connected over stream, starting the
// background loop and returning the initial Socket handle. It fails if
// the session is already connected; call Disconnect first.
func (s *Session) Connect(stream io.ReadWriteCloser, cfg Config) (*Socket, error) {
	if err := cfg.Valid(); err != nil {
		return nil, corerr.Wrap("session.connect", corerr.KindBadInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur != nil {
		return nil, corerr.Newf("session.connect", corerr.KindBadInput, "already connected")
	}

	outbound := make(chan *request, cfg.OutboundQueueCap)
	bcast := newBroadcaster(cfg.BroadcastCap)
	encoder := protocol.NewLineEncoder()

	sessionID := strconv.FormatInt(connSeq.Add(1), 10)
	connLog := corelog.WithSession(context.Background(), s.log, sessionID)
	l := newLoop(stream, outbound, bcast, cfg, connLog)

	sub := bcast.subscribe()
	sock := newSocket(outbound, encoder, sub)

	c := &connected{socket: sock, loop: l, cancel: make(chan struct{})}
	s.cur = c

	cancelCh := c.cancel
	go func() {
		l.run(cancelCh)
		s.mu.Lock()
		if s.cur == c {
			s.cur = nil
		}
		s.mu.Unlock()
	}()

	return sock, nil
}

// Disconnect tears down the Connected session, cancelling the background
// loop (which drops every pending completion, resolving each waiter's
// Send/SendUnsequenced with WontRespond). It is a no-op if already
// Disconnected.
func (s *Session) Disconnect() {
	s.mu.Lock()
	c := s.cur
	s.cur = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	c.once.Do(func() { close(c.cancel) })
	<-c.loop.Stopped()
}

// Socket returns the current session's Socket, or a Disconnected error if
// no session is established.
func (s *Session) Socket() (*Socket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return nil, corerr.Disconnected("session.socket")
	}
	return s.cur.socket, nil
}

// Connected reports whether the session currently has a live background
// loop.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur != nil
}

// Wait blocks until the session disconnects (for any reason: explicit
// Disconnect, fatal I/O, or the broadcast losing its last subscriber) or
// ctx is cancelled.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	c := s.cur
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.loop.Stopped():
		return c.loop.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resync informs the device of a new sequence number via an explicit
// M110 line before rewriting the local counter, so a counter jump
// backward (e.g. after reconnecting to a device that never saw the
// higher numbers) never makes the device misinterpret the next sequenced
// line as a duplicate or a gap.
func (s *Session) Resync(ctx context.Context, n int32) error {
	sock, err := s.Socket()
	if err != nil {
		return err
	}
	line := protocol.Variant{
		Tag:    "M110",
		Fields: []protocol.Encodable{protocol.Int{Label: "n", Value: int64(n)}},
	}
	if err := sock.SendUnsequenced(ctx, line); err != nil {
		return err
	}
	sock.encoder.SetSequence(n)
	return nil
}
