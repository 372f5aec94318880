package engine

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gcodehost/gcodehost/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConnectedSocket(t *testing.T) (*session.Socket, net.Conn, *bufio.Reader, func()) {
	t.Helper()
	host, device := net.Pipe()
	sess := session.New(nil)
	sock, err := sess.Connect(host, session.DefaultConfig())
	require.NoError(t, err)
	return sock, device, bufio.NewReader(device), func() {
		sess.Disconnect()
		device.Close()
	}
}

func ackEveryLine(t *testing.T, devReader *bufio.Reader, device net.Conn) {
	t.Helper()
	go func() {
		for {
			line, err := devReader.ReadString('\n')
			if err != nil {
				return
			}
			if len(line) > 1 && line[0] == 'N' {
				n := 1
				for n < len(line) && line[n] >= '0' && line[n] <= '9' {
					n++
				}
				seq := line[1:n]
				if _, err := device.Write([]byte("ok N" + seq + "\n")); err != nil {
					return
				}
			} else {
				if _, err := device.Write([]byte("ok\n")); err != nil {
					return
				}
			}
		}
	}()
}

func TestRunBatchSend_ExpandsMacrosAndSendsUnsequenced(t *testing.T) {
	t.Parallel()
	sock, device, _, cleanup := newConnectedSocket(t)
	defer cleanup()
	var seen bytes.Buffer
	ackEveryLine(t, bufio.NewReader(io.TeeReader(device, &seen)), device)

	macros := NewMacroTable()
	require.NoError(t, macros.Add("home", []string{"G28"}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := RunBatchSend(ctx, sock, macros, []string{"home", "G1 Z5"})
	require.NoError(t, err)
	assert.Equal(t, "G28\nG1 Z5\n", seen.String())
}

func TestStartPrint_StripsCommentsAndBlankLines(t *testing.T) {
	t.Parallel()
	sock, device, _, cleanup := newConnectedSocket(t)
	defer cleanup()
	var seen bytes.Buffer
	ackEveryLine(t, bufio.NewReader(io.TeeReader(device, &seen)), device)

	f, err := os.CreateTemp(t.TempDir(), "job-*.gcode")
	require.NoError(t, err)
	_, err = f.WriteString("G28 ; home all axes\n\n; just a comment\nG1 X10\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	registry := NewTaskRegistry(nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, registry.StartPrint(ctx, sock, "job", f.Name()))

	deadline := time.After(time.Second)
	for {
		infos := registry.List()
		if len(infos) == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("print task did not finish")
		case <-time.After(10 * time.Millisecond):
		}
	}

	sent := seen.String()
	assert.Equal(t, 2, strings.Count(sent, "\n"))
	assert.NotContains(t, sent, ";")
	assert.Contains(t, sent, "N1G28*")
	assert.Contains(t, sent, "N2G1 X10*")
}

func TestStartRepeat_CyclesUntilStopped(t *testing.T) {
	t.Parallel()
	sock, device, devReader, cleanup := newConnectedSocket(t)
	defer cleanup()
	ackEveryLine(t, devReader, device)

	macros := NewMacroTable()
	registry := NewTaskRegistry(nil)
	ctx := context.Background()

	registry.StartRepeat(ctx, sock, macros, "blink", []string{"M106 S255", "M106 S0"})

	infos := registry.List()
	require.Len(t, infos, 1)
	assert.Equal(t, "blink", infos[0].Name)
	assert.Equal(t, "repeat", infos[0].Kind)

	time.Sleep(20 * time.Millisecond)
	assert.True(t, registry.Stop("blink"))
	assert.Empty(t, registry.List())
}

func TestTaskRegistry_ClearCancelsEverything(t *testing.T) {
	t.Parallel()
	sock, device, devReader, cleanup := newConnectedSocket(t)
	defer cleanup()
	ackEveryLine(t, devReader, device)

	macros := NewMacroTable()
	registry := NewTaskRegistry(nil)
	registry.StartRepeat(context.Background(), sock, macros, "loop1", []string{"G1 X1"})
	registry.StartRepeat(context.Background(), sock, macros, "loop2", []string{"G1 X2"})
	require.Len(t, registry.List(), 2)

	registry.Clear()
	assert.Empty(t, registry.List())
}
