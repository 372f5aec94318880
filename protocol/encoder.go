package protocol

import (
	"bytes"
	"strconv"
	"sync/atomic"
)

// LineEncoder formats Encodable values into the on-wire line format: a
// sequenced line is "N<seq><fields>*<xor-checksum>\n"; an unsequenced line
// is "<fields>\n". The sequence counter is shared by every clone so that
// all producers on one session observe a single monotonic line-number
// history even when multiple Sockets are cloned off the same session; a
// lock-free atomic counter is enough since the counter is the only shared
// mutable state the encoder has.
type LineEncoder struct {
	seq *atomic.Int32
}

// NewLineEncoder returns an encoder with its sequence counter initialized
// to 1, the first sequence number a fresh connection to the device uses.
func NewLineEncoder() *LineEncoder {
	c := new(atomic.Int32)
	c.Store(1)
	return &LineEncoder{seq: c}
}

// Clone returns a new handle sharing the same sequence counter.
func (e *LineEncoder) Clone() *LineEncoder {
	return &LineEncoder{seq: e.seq}
}

// SetSequence replaces the counter. Intended for explicit resync after the
// device rejects the current line numbering: jumping the counter backward
// on an established session requires the caller to also emit an M110
// resync line so the device isn't left expecting the old numbering
// (session.Session.Resync does both together).
func (e *LineEncoder) SetSequence(n int32) {
	e.seq.Store(n)
}

// reserve atomically takes the next sequence number and advances the
// counter past it.
func (e *LineEncoder) reserve() int32 {
	next := e.seq.Add(1)
	return next - 1
}

// SerializeSequenced encodes v as a sequenced line, returning the reserved
// sequence number and the encoded bytes. Infallible.
func (e *LineEncoder) SerializeSequenced(v Encodable) (int32, []byte) {
	seq := e.reserve()
	var buf bytes.Buffer
	buf.WriteByte('N')
	buf.WriteString(strconv.FormatInt(int64(seq), 10))
	lb := &lineBuf{buf: &buf}
	v.Encode(lb)
	checksum := xorAll(buf.Bytes())
	buf.WriteByte('*')
	buf.WriteString(strconv.FormatInt(int64(checksum), 10))
	buf.WriteByte('\n')
	return seq, buf.Bytes()
}

// SerializeUnsequenced encodes v as an unsequenced line: no checksum, no
// sequence consumption.
func (e *LineEncoder) SerializeUnsequenced(v Encodable) []byte {
	var buf bytes.Buffer
	lb := &lineBuf{buf: &buf}
	v.Encode(lb)
	buf.WriteByte('\n')
	return buf.Bytes()
}

// xorAll XORs together every byte of b.
func xorAll(b []byte) byte {
	var x byte
	for _, c := range b {
		x ^= c
	}
	return x
}

// lineBuf is the concrete Encoder writing G-code's textual label+value
// fields: each field's label contributes a single uppercase letter
// followed immediately by its value, with no separators between fields.
type lineBuf struct {
	buf          *bytes.Buffer
	pendingLabel byte
	hasPending   bool
}

func upperFirst(label string) byte {
	if label == "" {
		return 0
	}
	c := label[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	return c
}

func (l *lineBuf) flushLabel() {
	if l.hasPending {
		l.buf.WriteByte(l.pendingLabel)
		l.hasPending = false
	}
}

func (l *lineBuf) WriteLabel(label string) {
	l.pendingLabel = upperFirst(label)
	l.hasPending = l.pendingLabel != 0
}

func (l *lineBuf) WriteInt(v int64) {
	l.flushLabel()
	l.buf.WriteString(strconv.FormatInt(v, 10))
}

func (l *lineBuf) WriteFloat(v float64) {
	l.flushLabel()
	l.buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
}

func (l *lineBuf) WriteBool(v bool) {
	l.flushLabel()
	if v {
		l.buf.WriteByte('1')
	} else {
		l.buf.WriteByte('0')
	}
}

func (l *lineBuf) WriteText(v string) {
	l.flushLabel()
	l.buf.WriteString(v)
}

func (l *lineBuf) WriteNone() {
	l.hasPending = false
}

func (l *lineBuf) BeginGroup(tag *string) {
	if tag != nil {
		l.buf.WriteString(*tag)
	}
}

func (l *lineBuf) EndGroup() {}
