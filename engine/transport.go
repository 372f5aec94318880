package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	serial "github.com/daedaluz/goserial"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/gcodehost/gcodehost/corerr"
	"github.com/gcodehost/gcodehost/session"
)

// dial opens the stream a connect command names. Auto scans the usual
// serial device paths, opening and probing each with M115 in turn and
// taking the first one that answers with an ok line within the probe
// timeout — there's no other way to tell a printer is on the far end of
// a given port without just asking it.
func dial(ctx context.Context, spec ConnectSpec) (io.ReadWriteCloser, error) {
	switch spec.Mode {
	case ConnectAuto:
		for _, port := range listCandidatePorts() {
			stream, err := dialSerial(port, session.DefaultBaud)
			if err != nil {
				continue
			}
			if probe(ctx, stream) {
				return stream, nil
			}
			stream.Close()
		}
		return nil, corerr.Disconnected("engine.connect.auto")

	case ConnectSerial:
		baud, err := parseBaud(spec.Baud)
		if err != nil {
			return nil, err
		}
		return dialSerial(spec.Port, baud)

	case ConnectTCP:
		return dialTCP(spec.Port)

	case ConnectMQTT:
		return dialMQTT(spec.Port, spec.MQTTIn, spec.MQTTOut)

	default:
		return nil, corerr.Newf("engine.connect", corerr.KindBadInput, "unknown connect mode")
	}
}

// listCandidatePorts enumerates likely serial device paths on Linux.
// daedaluz/goserial has no port-enumeration API (unlike tokio_serial's
// available_ports), so candidates are found by globbing the usual
// udev-assigned device names.
func listCandidatePorts() []string {
	var out []string
	for _, pattern := range []string{"/dev/ttyUSB*", "/dev/ttyACM*", "/dev/ttyS*"} {
		matches, _ := filepath.Glob(pattern)
		out = append(out, matches...)
	}
	sort.Strings(out)
	return out
}

// dialSerial opens port at baud, 8N1, asserts DTR, and returns it as the
// stream the Session Loop will own exclusively. DTR is asserted because
// many boards wire it to a reset line: toggling it on open is what
// actually brings a freshly-plugged-in board out of bootloader mode.
func dialSerial(port string, baud int) (io.ReadWriteCloser, error) {
	opts := serial.NewOptions().SetReadTimeout(session.AutoProbeReadTimeout)
	p, err := serial.Open(port, opts)
	if err != nil {
		return nil, corerr.Wrap("engine.connect.serial", corerr.KindIO, err)
	}

	attrs, err := p.GetAttr2()
	if err != nil {
		p.Close()
		return nil, corerr.Wrap("engine.connect.serial", corerr.KindIO, err)
	}
	attrs.MakeRaw()
	attrs.SetCustomSpeed(uint32(baud), uint32(baud))
	if err := p.SetAttr2(serial.TCSANOW, attrs); err != nil {
		p.Close()
		return nil, corerr.Wrap("engine.connect.serial", corerr.KindIO, err)
	}
	if err := p.EnableModemLines(serial.TIOCM_DTR); err != nil {
		p.Close()
		return nil, corerr.Wrap("engine.connect.serial", corerr.KindIO, err)
	}
	return p, nil
}

// dialTCP dials addr, defaulting the port when the caller left it off.
// A plain net.DialTimeout (10s) is all a raw TCP connect needs; no
// third-party client is warranted for it.
func dialTCP(addr string) (io.ReadWriteCloser, error) {
	if !strings.Contains(addr, ":") {
		addr = fmt.Sprintf("%s:%d", addr, defaultTCPPort)
	}
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, corerr.Wrap("engine.connect.tcp", corerr.KindIO, err)
	}
	return conn, nil
}

const defaultTCPPort = 23

// mqttStream adapts a pair of MQTT topics into an io.ReadWriteCloser: writes
// publish to the out topic, reads drain an internal pipe fed by messages
// arriving on the in topic subscription. This lets the rest of the engine
// treat an MQTT-connected device exactly like a serial port or raw TCP
// socket, with no special-casing anywhere else in the send/resend path.
type mqttStream struct {
	client   mqtt.Client
	outTopic string
	pr       *io.PipeReader
	pw       *io.PipeWriter
}

func dialMQTT(broker, inTopic, outTopic string) (io.ReadWriteCloser, error) {
	if inTopic == "" {
		inTopic = "gcodehost/in"
	}
	if outTopic == "" {
		outTopic = "gcodehost/out"
	}
	// A fixed client ID would make a second connect (e.g. a reconnect
	// after a crash) evict the first from the broker. Mint a fresh one
	// per dial instead.
	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID("gcodehost-" + uuid.NewString())
	client := mqtt.NewClient(opts)
	if tok := client.Connect(); !tok.WaitTimeout(10*time.Second) || tok.Error() != nil {
		if tok.Error() != nil {
			return nil, corerr.Wrap("engine.connect.mqtt", corerr.KindIO, tok.Error())
		}
		return nil, corerr.Newf("engine.connect.mqtt", corerr.KindIO, "connect timed out")
	}

	pr, pw := io.Pipe()
	ms := &mqttStream{client: client, outTopic: outTopic, pr: pr, pw: pw}

	tok := client.Subscribe(inTopic, 0, func(_ mqtt.Client, m mqtt.Message) {
		payload := m.Payload()
		if len(payload) == 0 || payload[len(payload)-1] != '\n' {
			payload = append(payload, '\n')
		}
		_, _ = pw.Write(payload)
	})
	tok.Wait()
	if tok.Error() != nil {
		client.Disconnect(250)
		return nil, corerr.Wrap("engine.connect.mqtt", corerr.KindIO, tok.Error())
	}
	return ms, nil
}

func (m *mqttStream) Read(p []byte) (int, error) { return m.pr.Read(p) }

func (m *mqttStream) Write(p []byte) (int, error) {
	tok := m.client.Publish(m.outTopic, 0, false, p)
	tok.Wait()
	if tok.Error() != nil {
		return 0, tok.Error()
	}
	return len(p), nil
}

func (m *mqttStream) Close() error {
	m.pw.Close()
	m.pr.Close()
	m.client.Disconnect(250)
	return nil
}

// probe sends M115 on stream and waits up to session.AutoProbeTimeout for
// a line containing "ok" (case-insensitively). Its caller is connect
// auto's port scan.
func probe(ctx context.Context, stream io.ReadWriter) bool {
	if _, err := stream.Write([]byte("M115\n")); err != nil {
		return false
	}
	type result struct {
		ok bool
	}
	done := make(chan result, 1)
	go func() {
		r := bufio.NewReader(stream)
		for {
			line, err := r.ReadString('\n')
			if strings.Contains(strings.ToLower(line), "ok") {
				done <- result{ok: true}
				return
			}
			if err != nil {
				done <- result{ok: false}
				return
			}
		}
	}()
	select {
	case r := <-done:
		return r.ok
	case <-ctx.Done():
		return false
	case <-time.After(session.AutoProbeTimeout):
		return false
	}
}

// parseBaud parses an optional baud argument, defaulting to DefaultBaud
// when none is given.
func parseBaud(s string) (int, error) {
	if s == "" {
		return session.DefaultBaud, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, corerr.BadInput("engine.connect.serial", "invalid baud: "+s)
	}
	return n, nil
}
