package session

import (
	"bufio"
	"io"
	"sync"

	"github.com/gcodehost/gcodehost/corelog"
	"github.com/gcodehost/gcodehost/corerr"
	"github.com/gcodehost/gcodehost/protocol"
)

// request is an outbound line queued by a Socket: the encoded bytes to
// write, the sequence key they were encoded under (or the no-sequence
// key), and an optional completion handle a waiter blocks on.
type request struct {
	key        seqKey
	bytes      []byte
	completion *pendingEntry // nil for send_raw: no tracking, no resend.
}

// loop is the single goroutine that exclusively owns the byte stream: it
// multiplexes the outbound queue and the inbound line reader, maintains
// the pending-request table, and honors resend requests. Keeping a
// single goroutine as the sole reader and writer of the stream avoids
// any locking around the I/O itself; every other package talks to it
// only through the outbound channel and the broadcast.
type loop struct {
	stream   io.ReadWriteCloser
	outbound <-chan *request
	pending  *pendingTable
	bcast    *broadcaster
	cfg      Config
	log      *corelog.Logger

	mu      sync.Mutex
	err     error
	stopped chan struct{}
}

func newLoop(stream io.ReadWriteCloser, outbound <-chan *request, bcast *broadcaster, cfg Config, log *corelog.Logger) *loop {
	if log == nil {
		log = corelog.Default()
	}
	return &loop{
		stream:   stream,
		outbound: outbound,
		pending:  newPendingTable(),
		bcast:    bcast,
		cfg:      cfg,
		log:      log,
		stopped:  make(chan struct{}),
	}
}

// Err returns the reason the loop stopped, once it has.
func (l *loop) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Stopped is closed once the loop has exited and drained its pending
// table.
func (l *loop) Stopped() <-chan struct{} { return l.stopped }

// run is the loop body. cancel is closed to cooperatively stop the loop
// when the owning session is torn down.
func (l *loop) run(cancel <-chan struct{}) {
	defer l.finish()
	l.log.Debug("session: connected")

	linesCh := make(chan string)
	readErrCh := make(chan error, 1)
	go l.pump(linesCh, readErrCh)

	w := bufio.NewWriter(l.stream)

	for {
		var outboundCh <-chan *request
		if l.pending.len() < l.cfg.PendingCap {
			outboundCh = l.outbound
		}

		select {
		case req := <-outboundCh:
			if req == nil {
				continue
			}
			if err := l.writeFlush(w, req.bytes); err != nil {
				l.log.Warn("session: write failed", "err", err)
				if req.completion != nil {
					req.completion.fire(corerr.Wrap("session.write", corerr.KindIO, err))
				}
				l.setErr(corerr.Wrap("session.write", corerr.KindIO, err))
				return
			}
			if req.completion != nil {
				l.pending.insert(req.key, req.completion)
			}

		case line, ok := <-linesCh:
			if !ok {
				continue
			}
			l.handleLine(w, line)
			if l.Err() != nil {
				return
			}

		case err := <-readErrCh:
			l.log.Warn("session: read failed", "err", err)
			l.setErr(corerr.Wrap("session.read", corerr.KindIO, err))
			return

		case <-cancel:
			l.log.Debug("session: cancelled")
			l.setErr(corerr.Disconnected("session.run"))
			return
		}
	}
}

// pump reads newline-terminated lines from the stream and forwards them,
// or reports the terminal read error (including io.EOF).
func (l *loop) pump(linesCh chan<- string, errCh chan<- error) {
	r := bufio.NewReader(l.stream)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			trimmed := trimEOL(line)
			select {
			case linesCh <- trimmed:
			case <-l.stopped:
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}

func trimEOL(s string) string {
	n := len(s)
	for n > 0 && (s[n-1] == '\n' || s[n-1] == '\r') {
		n--
	}
	return s[:n]
}

func (l *loop) writeFlush(w *bufio.Writer, b []byte) error {
	if _, err := w.Write(b); err != nil {
		return err
	}
	return w.Flush()
}

// handleLine applies one inbound line to the pending table before any
// further line is considered, so a resolution or resend always lands in
// the same order the device's own lines arrived in, then always
// publishes the raw line to broadcast subscribers.
func (l *loop) handleLine(w *bufio.Writer, line string) {
	resp := protocol.Parse(line)

	switch resp.Kind {
	case protocol.Ok:
		key := noneKey()
		if resp.HasSeq {
			key = someKey(resp.Seq)
		}
		if entry, ok := l.pending.remove(key); ok {
			entry.fire(nil)
		}
	case protocol.Resend:
		l.log.Debug("session: resend requested", "seq", resp.Seq, "has_seq", resp.HasSeq)
		if resp.HasSeq {
			if entry, ok := l.pending.get(someKey(resp.Seq)); ok {
				if err := l.writeFlush(w, entry.bytes); err != nil {
					l.log.Warn("session: resend failed", "err", err)
					l.setErr(corerr.Wrap("session.resend", corerr.KindIO, err))
					return
				}
			}
		} else {
			for _, entry := range l.pending.sequencedInOrder() {
				if err := l.writeFlush(w, entry.bytes); err != nil {
					l.log.Warn("session: resend-all failed", "err", err)
					l.setErr(corerr.Wrap("session.resend", corerr.KindIO, err))
					return
				}
			}
		}
	}

	if !l.bcast.publish(line) {
		l.log.Warn("session: no broadcast subscribers remain")
		l.setErr(corerr.Disconnected("session.broadcast"))
	}
}

func (l *loop) setErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err == nil {
		l.err = err
	}
}

func (l *loop) finish() {
	l.pending.drainAll()
	l.bcast.closeAll()
	_ = l.stream.Close()
	close(l.stopped)
}
