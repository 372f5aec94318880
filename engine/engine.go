// Package engine implements the Command Engine: the DSL parser, the
// macro table, the task registry, and the transport dialers that
// together let a UI drive a Session with named, supervised background
// activity.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gcodehost/gcodehost/corelog"
	"github.com/gcodehost/gcodehost/corerr"
	"github.com/gcodehost/gcodehost/session"
)

// CommandEngine is the façade a UI talks to. It owns exactly one
// Session (initially Disconnected), one MacroTable, one TaskRegistry,
// and one Response broadcast.
type CommandEngine struct {
	sess    *session.Session
	macros  *MacroTable
	tasks   *TaskRegistry
	resp    *responseBroadcaster
	log     *corelog.Logger
	cfg     session.Config
	metrics *engineMetrics

	// nowUnix supplies the log task's timestamp; overridable in tests.
	nowUnix func() int64
}

// New returns a CommandEngine ready to accept Dispatch calls, using
// cfg for every future Connect. Metrics are disabled; use NewWithMetrics
// to register gcodehost_* series against a Prometheus registry.
func New(log *corelog.Logger, cfg session.Config) *CommandEngine {
	return NewWithMetrics(log, cfg, nil)
}

// NewWithMetrics is New, additionally registering gcodehost_* series
// against reg. Pass a fresh *prometheus.Registry (not
// prometheus.DefaultRegisterer) so repeated construction in tests never
// double-registers; reg may be nil to disable metrics entirely.
func NewWithMetrics(log *corelog.Logger, cfg session.Config, reg prometheus.Registerer) *CommandEngine {
	if log == nil {
		log = corelog.Default()
	}
	var m *engineMetrics
	if reg != nil {
		m = newEngineMetrics(reg)
	}
	return &CommandEngine{
		sess:    session.New(log),
		macros:  NewMacroTable(),
		tasks:   NewTaskRegistry(log),
		resp:    newResponseBroadcaster(64),
		log:     log,
		cfg:     cfg,
		metrics: m,
		nowUnix: func() int64 { return time.Now().Unix() },
	}
}

// Subscribe returns a new cursor onto the engine's Response broadcast.
func (e *CommandEngine) Subscribe() *ResponseSubscription {
	return e.resp.subscribe()
}

// Tasks exposes the running task list, for callers building a `tasks`
// view outside of Dispatch.
func (e *CommandEngine) Tasks() []TaskInfo {
	return e.tasks.List()
}

// Macros exposes the macro table, for callers building a `macros` view
// outside of Dispatch.
func (e *CommandEngine) Macros() []MacroEntry {
	return e.macros.List()
}

// Dispatch parses and executes one line of DSL input, emitting its
// result(s) onto the Response broadcast. It never blocks on a
// long-running task: print/log/repeat start a background task and
// return immediately.
func (e *CommandEngine) Dispatch(ctx context.Context, input string) {
	cmd, err := ParseCommand(input)
	if err != nil {
		e.emitError(err)
		return
	}
	e.metrics.observeCommand(cmd.Kind)
	e.execute(ctx, cmd)
	e.metrics.observeTaskCount(len(e.tasks.List()))
}

func (e *CommandEngine) execute(ctx context.Context, cmd Command) {
	switch cmd.Kind {
	case KindGcodes:
		e.dispatchSend(ctx, cmd.Gcodes)

	case KindSend:
		e.dispatchSend(ctx, cmd.Gcodes)

	case KindPrint:
		sock, err := e.sess.Socket()
		if err != nil {
			e.emitError(err)
			return
		}
		// The task is keyed by the filename argument itself, verbatim, so
		// printing the same file twice replaces the earlier run rather
		// than accumulating same-named tasks under a derived key.
		name := cmd.Filename
		if err := e.tasks.StartPrint(ctx, sock, name, cmd.Filename); err != nil {
			e.emitError(err)
			return
		}
		e.emitInfo("printing " + cmd.Filename + " as task " + name)

	case KindLog:
		sock, err := e.sess.Socket()
		if err != nil {
			e.emitError(err)
			return
		}
		if err := e.tasks.StartLog(ctx, sock, cmd.Name, cmd.Pattern, e.nowUnix()); err != nil {
			e.emitError(err)
			return
		}
		e.emitInfo("logging as task " + cmd.Name)

	case KindRepeat:
		sock, err := e.sess.Socket()
		if err != nil {
			e.emitError(err)
			return
		}
		e.tasks.StartRepeat(ctx, sock, e.macros, cmd.Name, cmd.Gcodes)
		e.emitInfo("repeating as task " + cmd.Name)

	case KindMacro:
		if err := e.macros.Add(cmd.Name, cmd.Gcodes); err != nil {
			e.emitError(err)
			return
		}
		e.emitInfo("defined macro " + strings.ToUpper(cmd.Name))

	case KindMacros:
		var b strings.Builder
		for _, m := range e.macros.List() {
			b.WriteString(m.Name)
			b.WriteString(": ")
			b.WriteString(strings.Join(m.Steps, ";"))
			b.WriteString("\n")
		}
		e.emitInfo(strings.TrimRight(b.String(), "\n"))

	case KindDelMacro:
		if !e.macros.Delete(cmd.Name) {
			e.emitError(corerr.BadInput("engine.delmacro", "unknown macro: "+cmd.Name))
			return
		}
		e.emitInfo("removed macro " + strings.ToUpper(cmd.Name))

	case KindStop:
		if !e.tasks.Stop(cmd.Name) {
			e.emitError(corerr.BadInput("engine.stop", "unknown task: "+cmd.Name))
			return
		}
		e.emitInfo("stopped task " + cmd.Name)

	case KindTasks:
		var b strings.Builder
		for _, t := range e.tasks.List() {
			b.WriteString(t.Name)
			b.WriteString("\t")
			b.WriteString(t.Desc)
			b.WriteString("\n")
		}
		e.emitInfo(strings.TrimRight(b.String(), "\n"))

	case KindConnect:
		e.dispatchConnect(ctx, cmd.Connect)

	case KindDisconnect:
		e.sess.Disconnect()
		e.tasks.Clear()
		e.metrics.observeConnected(false)
		e.emitInfo("disconnected")

	case KindHelp:
		e.emitInfo(Help(cmd.HelpArg))

	case KindVersion:
		e.emitInfo(Version)

	case KindClear:
		e.resp.publish(Response{Kind: RespClear})

	case KindQuit:
		e.resp.publish(Response{Kind: RespQuit})

	case KindUnrecognized:
		e.emitError(corerr.BadInput("engine.dispatch", "unrecognized input: "+cmd.Raw))
	}
}

func (e *CommandEngine) dispatchSend(ctx context.Context, gcodes []string) {
	sock, err := e.sess.Socket()
	if err != nil {
		e.emitError(err)
		return
	}
	if err := RunBatchSend(ctx, sock, e.macros, gcodes); err != nil {
		e.emitError(err)
		return
	}
	for range e.macros.Expand(gcodes) {
		e.metrics.observeLineSent()
	}
	e.emitInfo("sent " + strings.Join(gcodes, ";"))
}

func (e *CommandEngine) dispatchConnect(ctx context.Context, spec ConnectSpec) {
	e.sess.Disconnect()
	e.tasks.Clear()

	stream, err := dial(ctx, spec)
	if err != nil {
		e.emitError(err)
		return
	}
	if _, err := e.sess.Connect(stream, e.cfg); err != nil {
		stream.Close()
		e.emitError(err)
		return
	}
	e.metrics.observeConnected(true)
	e.emitInfo("connected")
}

func (e *CommandEngine) emitInfo(text string) {
	e.resp.publish(Response{Kind: RespInfo, Text: text})
}

func (e *CommandEngine) emitError(err error) {
	e.resp.publish(Response{Kind: RespError, Text: err.Error()})
}
