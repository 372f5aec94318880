package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// engineMetrics mirrors dittofs/pkg/metrics/prometheus's promauto-backed
// gauge/counter wrappers, scaled to the Command Engine's own surface: a
// nil *engineMetrics is valid and every method becomes a no-op, so
// cmd/gcodehostd can wire metrics in only when its config sets
// metrics.enabled.
type engineMetrics struct {
	commandsTotal  *prometheus.CounterVec
	linesSentTotal prometheus.Counter
	tasksActive    prometheus.Gauge
	connected      prometheus.Gauge
}

// newEngineMetrics registers gcodehost's engine-level series against reg.
// Pass a fresh *prometheus.Registry (not the global DefaultRegisterer) so
// that repeated CommandEngine construction in tests never double-registers.
func newEngineMetrics(reg prometheus.Registerer) *engineMetrics {
	return &engineMetrics{
		commandsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gcodehost_commands_total",
			Help: "DSL commands dispatched, by Kind.",
		}, []string{"kind"}),
		linesSentTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "gcodehost_lines_sent_total",
			Help: "Gcode lines sent by send and bare-gcode commands, after macro expansion (print and repeat tasks are not counted).",
		}),
		tasksActive: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "gcodehost_tasks_active",
			Help: "Running print/log/repeat tasks, sampled after each dispatched command.",
		}),
		connected: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "gcodehost_connected",
			Help: "1 if the session currently holds a live transport, else 0.",
		}),
	}
}

func (m *engineMetrics) observeCommand(kind Kind) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(kindLabel(kind)).Inc()
}

func (m *engineMetrics) observeLineSent() {
	if m == nil {
		return
	}
	m.linesSentTotal.Inc()
}

func (m *engineMetrics) observeTaskCount(n int) {
	if m == nil {
		return
	}
	m.tasksActive.Set(float64(n))
}

func (m *engineMetrics) observeConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
}

func kindLabel(k Kind) string {
	switch k {
	case KindGcodes:
		return "gcodes"
	case KindPrint:
		return "print"
	case KindLog:
		return "log"
	case KindRepeat:
		return "repeat"
	case KindSend:
		return "send"
	case KindMacro:
		return "macro"
	case KindMacros:
		return "macros"
	case KindDelMacro:
		return "delmacro"
	case KindStop:
		return "stop"
	case KindTasks:
		return "tasks"
	case KindConnect:
		return "connect"
	case KindDisconnect:
		return "disconnect"
	case KindHelp:
		return "help"
	case KindVersion:
		return "version"
	case KindClear:
		return "clear"
	case KindQuit:
		return "quit"
	default:
		return "unrecognized"
	}
}
