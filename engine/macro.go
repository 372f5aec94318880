package engine

import (
	"sort"
	"strings"
	"sync"

	"github.com/gcodehost/gcodehost/corerr"
	"github.com/gcodehost/gcodehost/identifier"
)

// MacroTable maps an uppercase macro name to its fully-flattened expansion
// sequence. Expansion happens at insertion time with a cycle check, so
// later lookups (expand(gcodes) at send/repeat time) only ever need a
// single-level lookup per token instead of re-walking nested macros.
type MacroTable struct {
	mu    sync.Mutex
	steps map[string][]string
}

// NewMacroTable returns an empty macro table.
func NewMacroTable() *MacroTable {
	return &MacroTable{steps: make(map[string][]string)}
}

// Add fully expands steps against the table by recursive descent,
// tracking the set of macro names visited on the current expansion path.
// A name only counts as "on the path" once it is actually a stored macro
// being recursed into — a step that merely repeats the name being defined
// is ordinary literal text until some other macro's stored expansion
// later turns it into a genuine self-reference.
func (t *MacroTable) Add(name string, steps []string) error {
	if !ValidMacroName(name) {
		return corerr.BadInput("engine.macro.add", "invalid macro name: "+name)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	upper := strings.ToUpper(name)
	flat, err := t.expand(steps, map[string]bool{upper: true})
	if err != nil {
		return err
	}
	t.steps[upper] = flat
	return nil
}

func (t *MacroTable) expand(steps []string, visited map[string]bool) ([]string, error) {
	out := make([]string, 0, len(steps))
	for _, tok := range steps {
		upper := strings.ToUpper(tok)
		stored, ok := t.steps[upper]
		if !ok {
			out = append(out, tok)
			continue
		}
		if visited[upper] {
			return nil, corerr.BadInput("engine.macro.add", "macro cycle through "+upper)
		}
		nested := make(map[string]bool, len(visited)+1)
		for k := range visited {
			nested[k] = true
		}
		nested[upper] = true
		sub, err := t.expand(stored, nested)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// Expand performs a single-level macro lookup per token, since stored
// expansions are already flat.
func (t *MacroTable) Expand(gcodes []string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(gcodes))
	for _, tok := range gcodes {
		if stored, ok := t.steps[strings.ToUpper(tok)]; ok {
			out = append(out, stored...)
		} else {
			out = append(out, tok)
		}
	}
	return out
}

// Delete removes name from the table. It reports whether name existed.
func (t *MacroTable) Delete(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	upper := strings.ToUpper(name)
	if _, ok := t.steps[upper]; !ok {
		return false
	}
	delete(t.steps, upper)
	return true
}

// MacroEntry pairs a macro name with its flattened step list, in the
// order `macros` should render them (alphabetical, for determinism).
type MacroEntry struct {
	Name  string
	Steps []string
}

// List returns every macro, sorted by name.
func (t *MacroTable) List() []MacroEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]MacroEntry, 0, len(t.steps))
	for name, steps := range t.steps {
		cp := make([]string, len(steps))
		copy(cp, steps)
		out = append(out, MacroEntry{Name: name, Steps: cp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ValidMacroName reports whether s is a legal macro name: non-empty,
// alphanumeric plus -_. , and not itself parseable as a bare G-code
// token.
func ValidMacroName(s string) bool {
	return identifier.Valid(s)
}
