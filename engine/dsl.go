package engine

import (
	"strings"

	"github.com/gcodehost/gcodehost/corerr"
	"github.com/gcodehost/gcodehost/identifier"
)

// Kind identifies a parsed Command's shape. A single struct with a Kind
// discriminant covers every command instead of one type per keyword,
// since Go strings are already immutable views over shared backing
// arrays — there's no borrowed/owned split to preserve by keeping the
// variants separate.
type Kind int

const (
	KindGcodes Kind = iota
	KindPrint
	KindLog
	KindRepeat
	KindSend
	KindMacro
	KindMacros
	KindDelMacro
	KindStop
	KindTasks
	KindConnect
	KindDisconnect
	KindHelp
	KindVersion
	KindClear
	KindQuit
	KindUnrecognized
)

// ConnectMode selects which transport dialer a connect command targets.
type ConnectMode int

const (
	ConnectAuto ConnectMode = iota
	ConnectSerial
	ConnectTCP
	ConnectMQTT
)

// ConnectSpec carries a parsed connect command's transport arguments.
type ConnectSpec struct {
	Mode    ConnectMode
	Port    string // serial device path or tcp host[:port]
	Baud    string // raw, parsed later via parseBaud
	MQTTIn  string
	MQTTOut string
}

// Command is the parsed shape of one line of input to the command
// engine. Only the fields relevant to Kind are populated.
type Command struct {
	Kind     Kind
	Gcodes   []string // Gcodes, Send, Repeat/Macro step lists
	Name     string   // task or macro name
	Filename string   // print
	Pattern  string   // log pattern text, compiled later by the pattern package
	Connect  ConnectSpec
	HelpArg  string
	Raw      string // original input, for Unrecognized error messages
}

// ParseCommand parses one line of DSL input against the keyword
// vocabulary (print, log, repeat, send, macro, ...), falling back to a
// bare G-code command only when the input looks like G-code (a letter
// followed by a digit).
func ParseCommand(input string) (Command, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Command{Kind: KindUnrecognized, Raw: input}, nil
	}

	word, rest := splitFirstWord(trimmed)
	switch strings.ToLower(word) {
	case "print":
		return parsePrint(rest)
	case "log":
		return parseLog(rest)
	case "repeat":
		return parseRepeat(rest)
	case "send":
		return Command{Kind: KindSend, Gcodes: splitGcodes(rest)}, nil
	case "macro":
		return parseMacro(rest)
	case "macros":
		return Command{Kind: KindMacros}, nil
	case "delmacro":
		return parseDelMacro(rest)
	case "stop":
		return parseStop(rest)
	case "tasks":
		return Command{Kind: KindTasks}, nil
	case "connect":
		return parseConnect(rest)
	case "disconnect":
		return Command{Kind: KindDisconnect}, nil
	case "help":
		return Command{Kind: KindHelp, HelpArg: strings.TrimSpace(rest)}, nil
	case "version":
		return Command{Kind: KindVersion}, nil
	case "clear":
		return Command{Kind: KindClear}, nil
	case "quit", "exit":
		return Command{Kind: KindQuit}, nil
	}

	if identifier.LooksLikeGcode(trimmed) {
		return Command{Kind: KindGcodes, Gcodes: splitGcodes(trimmed)}, nil
	}
	return Command{Kind: KindUnrecognized, Raw: input}, nil
}

func parsePrint(rest string) (Command, error) {
	filename := strings.TrimSpace(rest)
	if filename == "" {
		return Command{}, corerr.BadInput("engine.dsl.print", "missing filename")
	}
	return Command{Kind: KindPrint, Filename: filename}, nil
}

func parseLog(rest string) (Command, error) {
	name, pattern := splitFirstWord(rest)
	if name == "" {
		return Command{}, corerr.BadInput("engine.dsl.log", "missing task name")
	}
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return Command{}, corerr.BadInput("engine.dsl.log", "missing pattern")
	}
	return Command{Kind: KindLog, Name: name, Pattern: pattern}, nil
}

func parseRepeat(rest string) (Command, error) {
	name, codes := splitFirstWord(rest)
	if name == "" {
		return Command{}, corerr.BadInput("engine.dsl.repeat", "missing task name")
	}
	gcodes := splitGcodes(codes)
	if len(gcodes) == 0 {
		return Command{}, corerr.BadInput("engine.dsl.repeat", "missing gcode steps")
	}
	return Command{Kind: KindRepeat, Name: name, Gcodes: gcodes}, nil
}

func parseMacro(rest string) (Command, error) {
	name, codes := splitFirstWord(rest)
	if !ValidMacroName(name) {
		return Command{}, corerr.BadInput("engine.dsl.macro", "invalid macro name: "+name)
	}
	gcodes := splitGcodes(codes)
	if len(gcodes) == 0 {
		return Command{}, corerr.BadInput("engine.dsl.macro", "missing macro steps")
	}
	return Command{Kind: KindMacro, Name: name, Gcodes: gcodes}, nil
}

func parseDelMacro(rest string) (Command, error) {
	name := strings.TrimSpace(rest)
	if name == "" {
		return Command{}, corerr.BadInput("engine.dsl.delmacro", "missing macro name")
	}
	return Command{Kind: KindDelMacro, Name: name}, nil
}

func parseStop(rest string) (Command, error) {
	name := strings.TrimSpace(rest)
	if name == "" {
		return Command{}, corerr.BadInput("engine.dsl.stop", "missing task name")
	}
	return Command{Kind: KindStop, Name: name}, nil
}

func parseConnect(rest string) (Command, error) {
	word, tail := splitFirstWord(rest)
	switch strings.ToLower(word) {
	case "auto", "":
		return Command{Kind: KindConnect, Connect: ConnectSpec{Mode: ConnectAuto}}, nil
	case "serial":
		port, baud := splitFirstWord(tail)
		if port == "" {
			return Command{}, corerr.BadInput("engine.dsl.connect", "missing serial port")
		}
		return Command{Kind: KindConnect, Connect: ConnectSpec{
			Mode: ConnectSerial,
			Port: port,
			Baud: strings.TrimSpace(baud),
		}}, nil
	case "tcp":
		host := strings.TrimSpace(tail)
		if host == "" {
			return Command{}, corerr.BadInput("engine.dsl.connect", "missing tcp host")
		}
		return Command{Kind: KindConnect, Connect: ConnectSpec{Mode: ConnectTCP, Port: host}}, nil
	case "mqtt":
		broker, topics := splitFirstWord(tail)
		if broker == "" {
			return Command{}, corerr.BadInput("engine.dsl.connect", "missing mqtt broker")
		}
		inTopic, outTopic := splitFirstWord(topics)
		return Command{Kind: KindConnect, Connect: ConnectSpec{
			Mode:    ConnectMQTT,
			Port:    broker,
			MQTTIn:  inTopic,
			MQTTOut: strings.TrimSpace(outTopic),
		}}, nil
	default:
		return Command{}, corerr.BadInput("engine.dsl.connect", "unknown transport: "+word)
	}
}

// splitFirstWord splits s into its first whitespace-delimited word and
// the untrimmed remainder of the line.
func splitFirstWord(s string) (word, rest string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+1:]
}

// splitGcodes splits a semicolon-separated gcode list, trimming and
// dropping empty entries.
func splitGcodes(s string) []string {
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
