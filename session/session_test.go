package session

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/gcodehost/gcodehost/corerr"
	"github.com/gcodehost/gcodehost/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPair returns the host-side conn to hand to Session.Connect and
// a buffered reader over the device-side conn the test plays device
// with. net.Pipe's two ends are fully connected: writes on one are
// reads on the other.
func newTestPair(t *testing.T) (net.Conn, net.Conn, *bufio.Reader) {
	t.Helper()
	host, device := net.Pipe()
	t.Cleanup(func() { device.Close() })
	return host, device, bufio.NewReader(device)
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestConnect_SendAndOk(t *testing.T) {
	t.Parallel()
	host, device, devReader := newTestPair(t)

	sess := New(nil)
	sock, err := sess.Connect(host, DefaultConfig())
	require.NoError(t, err)
	defer sess.Disconnect()

	errCh := make(chan error, 1)
	go func() {
		errCh <- sock.Send(testCtx(t), protocol.RawLine{Value: "G28"})
	}()

	line, err := devReader.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, len(line) > 4 && line[:4] == "N1G2")

	_, err = device.Write([]byte("ok N1\n"))
	require.NoError(t, err)
	require.NoError(t, <-errCh)
}

func TestConnect_ResendReplaysBySequence(t *testing.T) {
	t.Parallel()
	host, device, devReader := newTestPair(t)

	sess := New(nil)
	sock, err := sess.Connect(host, DefaultConfig())
	require.NoError(t, err)
	defer sess.Disconnect()

	errCh := make(chan error, 1)
	go func() {
		errCh <- sock.Send(testCtx(t), protocol.RawLine{Value: "M114"})
	}()

	original, err := devReader.ReadString('\n')
	require.NoError(t, err)

	_, err = device.Write([]byte("Resend: N1\n"))
	require.NoError(t, err)

	replay, err := devReader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, original, replay)

	_, err = device.Write([]byte("ok N1\n"))
	require.NoError(t, err)
	require.NoError(t, <-errCh)
}

func TestConnect_UnsequencedUsesNoneSlot(t *testing.T) {
	t.Parallel()
	host, device, devReader := newTestPair(t)

	sess := New(nil)
	sock, err := sess.Connect(host, DefaultConfig())
	require.NoError(t, err)
	defer sess.Disconnect()

	errCh := make(chan error, 1)
	go func() {
		errCh <- sock.SendUnsequenced(testCtx(t), protocol.RawLine{Value: "M115"})
	}()

	line, err := devReader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "M115\n", line)

	_, err = device.Write([]byte("ok\n"))
	require.NoError(t, err)
	require.NoError(t, <-errCh)
}

func TestDisconnect_ResolvesPendingWithWontRespond(t *testing.T) {
	t.Parallel()
	host, device, devReader := newTestPair(t)

	sess := New(nil)
	sock, err := sess.Connect(host, DefaultConfig())
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- sock.Send(testCtx(t), protocol.RawLine{Value: "G28"})
	}()

	// Drain the line so the write completes and the request actually
	// reaches the pending table, but never acknowledge it.
	_, err = devReader.ReadString('\n')
	require.NoError(t, err)

	sess.Disconnect()
	device.Close()

	err = <-errCh
	require.Error(t, err)
	assert.True(t, corerr.IsKind(err, corerr.KindWontRespond))
}

func TestBroadcast_MultipleSubscribersSeeEveryLine(t *testing.T) {
	t.Parallel()
	host, device, _ := newTestPair(t)

	sess := New(nil)
	sock, err := sess.Connect(host, DefaultConfig())
	require.NoError(t, err)
	defer sess.Disconnect()

	second := sock.Clone()
	defer second.Close()

	_, err = device.Write([]byte("ECHO hello\n"))
	require.NoError(t, err)

	ctx := testCtx(t)
	l1, err := sock.ReadNextLine(ctx)
	require.NoError(t, err)
	l2, err := second.ReadNextLine(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ECHO hello", l1)
	assert.Equal(t, "ECHO hello", l2)
}

func TestConnect_RejectsDoubleConnect(t *testing.T) {
	t.Parallel()
	host, _, _ := newTestPair(t)
	host2, device2, _ := newTestPair(t)
	_ = device2

	sess := New(nil)
	_, err := sess.Connect(host, DefaultConfig())
	require.NoError(t, err)
	defer sess.Disconnect()

	_, err = sess.Connect(host2, DefaultConfig())
	assert.Error(t, err)
}
