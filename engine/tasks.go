package engine

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/gcodehost/gcodehost/corelog"
	"github.com/gcodehost/gcodehost/pattern"
	"github.com/gcodehost/gcodehost/protocol"
	"github.com/gcodehost/gcodehost/session"
)

// taskHandle is one entry in the TaskRegistry. cancel tears the task
// down; done reports when its goroutine has actually exited, so Stop and
// Clear can block until the task is truly gone instead of racing it.
type taskHandle struct {
	kind   string
	desc   string
	cancel context.CancelFunc
	done   chan struct{}
}

// TaskRegistry owns every named background task. Removing an entry
// cancels its task; reconnecting the session clears the whole table,
// since a print/log/repeat task holds a Socket tied to the connection
// that's going away.
type TaskRegistry struct {
	mu    sync.Mutex
	tasks map[string]*taskHandle
	log   *corelog.Logger
}

// NewTaskRegistry returns an empty registry.
func NewTaskRegistry(log *corelog.Logger) *TaskRegistry {
	if log == nil {
		log = corelog.Default()
	}
	return &TaskRegistry{tasks: make(map[string]*taskHandle), log: log}
}

// TaskInfo describes one running task for the `tasks` command.
type TaskInfo struct {
	Name string
	Kind string
	Desc string
}

// List returns every running task, for the `tasks` command.
func (r *TaskRegistry) List() []TaskInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TaskInfo, 0, len(r.tasks))
	for name, h := range r.tasks {
		out = append(out, TaskInfo{Name: name, Kind: h.kind, Desc: h.desc})
	}
	return out
}

// Stop cancels and removes the named task. It reports whether the task
// existed.
func (r *TaskRegistry) Stop(name string) bool {
	r.mu.Lock()
	h, ok := r.tasks[name]
	if ok {
		delete(r.tasks, name)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	h.cancel()
	<-h.done
	return true
}

// Clear cancels and removes every task. Called on disconnect/reconnect,
// since every running task holds a Socket from the session that's ending.
func (r *TaskRegistry) Clear() {
	r.mu.Lock()
	tasks := r.tasks
	r.tasks = make(map[string]*taskHandle)
	r.mu.Unlock()
	for _, h := range tasks {
		h.cancel()
	}
	for _, h := range tasks {
		<-h.done
	}
}

// register installs a running task under name, replacing (cancelling)
// any existing task of that name.
func (r *TaskRegistry) register(name, kind, desc string, cancel context.CancelFunc, done chan struct{}) {
	r.mu.Lock()
	old, existed := r.tasks[name]
	r.tasks[name] = &taskHandle{kind: kind, desc: desc, cancel: cancel, done: done}
	r.mu.Unlock()
	if existed {
		old.cancel()
		<-old.done
	}
}

// runTask wraps body in a goroutine with its own cancellable context,
// registering it under name before returning. body must return promptly
// once ctx is cancelled.
func (r *TaskRegistry) runTask(parent context.Context, name, kind, desc string, body func(ctx context.Context) error) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	r.register(name, kind, desc, cancel, done)
	go func() {
		defer close(done)
		defer cancel()
		if err := body(ctx); err != nil {
			r.log.Warn("engine: task ended", "task", name, "kind", kind, "err", err)
		}
		r.mu.Lock()
		if h, ok := r.tasks[name]; ok && h.done == done {
			delete(r.tasks, name)
		}
		r.mu.Unlock()
	}()
}

// StartPrint streams filename to sock line by line, stripping ';'
// comments and blank lines, awaiting acknowledgement of each. It ends on
// EOF or the first send error.
func (r *TaskRegistry) StartPrint(ctx context.Context, sock *session.Socket, name, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	r.runTask(ctx, name, "print", "printing "+filename, func(ctx context.Context) error {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if i := strings.IndexByte(line, ';'); i >= 0 {
				line = line[:i]
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if err := sock.Send(ctx, protocol.RawLine{Value: line}); err != nil {
				return err
			}
		}
		return scanner.Err()
	})
	return nil
}

// StartLog compiles pattern and records matches from sock's broadcast
// into <name>_<unixSeconds>.csv.
func (r *TaskRegistry) StartLog(ctx context.Context, sock *session.Socket, name, patternText string, unixSeconds int64) error {
	compiled, err := pattern.Compile(patternText)
	if err != nil {
		return err
	}
	csvPath := fmt.Sprintf("%s_%d.csv", name, unixSeconds)
	f, err := os.Create(csvPath)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(strings.Join(compiled.Labels(), ",") + "\n"); err != nil {
		f.Close()
		return err
	}

	cursor := sock.Clone()
	r.runTask(ctx, name, "log", "logging to "+csvPath, func(ctx context.Context) error {
		defer f.Close()
		defer cursor.Close()
		w := bufio.NewWriter(f)
		defer w.Flush()
		for {
			line, err := cursor.ReadNextLine(ctx)
			if err != nil {
				return err
			}
			values, ok := compiled.Match(line)
			if !ok {
				continue
			}
			row := make([]string, len(values))
			for i, v := range values {
				row[i] = strconv.FormatFloat(v, 'g', -1, 64)
			}
			if _, err := w.WriteString(strings.Join(row, ",") + "\n"); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
	})
	return nil
}

// StartRepeat expands gcodes against macros once up-front, then cycles
// them forever, awaiting acknowledgement between steps.
func (r *TaskRegistry) StartRepeat(ctx context.Context, sock *session.Socket, macros *MacroTable, name string, gcodes []string) {
	expanded := macros.Expand(gcodes)
	r.runTask(ctx, name, "repeat", "repeating "+strings.Join(expanded, ";"), func(ctx context.Context) error {
		if len(expanded) == 0 {
			return nil
		}
		for {
			for _, code := range expanded {
				if err := sock.Send(ctx, protocol.RawLine{Value: code}); err != nil {
					return err
				}
			}
		}
	})
}

// RunBatchSend expands gcodes against macros and sends them all
// unsequenced, awaiting each — a one-shot action, not a registered task,
// since `send` takes no name argument to register one under.
func RunBatchSend(ctx context.Context, sock *session.Socket, macros *MacroTable, gcodes []string) error {
	expanded := macros.Expand(gcodes)
	for _, code := range expanded {
		if err := sock.SendUnsequenced(ctx, protocol.RawLine{Value: code}); err != nil {
			return err
		}
	}
	return nil
}
