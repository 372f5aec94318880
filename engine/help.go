package engine

import (
	"sort"
	"strings"
)

// Version is reported by the `version` command.
const Version = "0.1.0"

// helpTopics holds one usage line and one description per keyword.
var helpTopics = map[string]struct {
	usage string
	about string
}{
	"print":      {"print <file>", "stream a gcode file to the device, line by line"},
	"log":        {"log <name> <pattern>", "start a background task recording pattern matches to <name>_<timestamp>.csv"},
	"repeat":     {"repeat <name> <gcode>[;<gcode>...]", "run a gcode sequence in an endless loop as task <name>"},
	"send":       {"send <gcode>[;<gcode>...]", "send one or more gcode commands without waiting for a task slot"},
	"macro":      {"macro <name> <gcode>[;<gcode>...]", "define a macro expanding to the given gcode sequence"},
	"macros":     {"macros", "list every defined macro and its expansion"},
	"delmacro":   {"delmacro <name>", "remove a macro"},
	"stop":       {"stop <name>", "cancel a running task"},
	"tasks":      {"tasks", "list running tasks"},
	"connect":    {"connect [auto|serial <port> [baud]|tcp <host>|mqtt <broker> [in] [out]]", "open a connection to the printer"},
	"disconnect": {"disconnect", "close the current connection"},
	"help":       {"help [command]", "list commands, or show detail on one command"},
	"version":    {"version", "print the engine version"},
	"clear":      {"clear", "clear the response log"},
	"quit":       {"quit", "exit"},
}

// Help renders help text: the full command list if topic is empty, or
// one command's usage/description if topic names a known keyword.
func Help(topic string) string {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		names := make([]string, 0, len(helpTopics))
		for name := range helpTopics {
			names = append(names, name)
		}
		sort.Strings(names)
		var b strings.Builder
		b.WriteString("available commands:\n")
		for _, name := range names {
			b.WriteString("  ")
			b.WriteString(helpTopics[name].usage)
			b.WriteString(" - ")
			b.WriteString(helpTopics[name].about)
			b.WriteString("\n")
		}
		b.WriteString("a bare line starting with a letter followed by a digit is sent as gcode")
		return b.String()
	}
	t, ok := helpTopics[topic]
	if !ok {
		return "no help for " + topic
	}
	return t.usage + " - " + t.about
}
