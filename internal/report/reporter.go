package report

import (
	"fmt"
	"sort"
	"sync"

	"depwatch/internal/deprecated"
	"depwatch/internal/shared/observability"
	"depwatch/internal/syntax"
)

// Message templates per diagnostic kind; args are positional.
var templates = map[deprecated.Kind]string{
	deprecated.DeprecatedMethod:   "Using deprecated method %s()",
	deprecated.DeprecatedArgument: "Using deprecated argument %s of method %s()",
	deprecated.DeprecatedModule:   "Uses of a deprecated module %q",
	deprecated.DeprecatedClass:    "Using deprecated class %s of module %s",
}

type Diagnostic struct {
	Kind     deprecated.Kind
	Message  string
	Args     []string
	Location syntax.Location
}

// Collector implements the checker's Emitter: it gates disabled kinds,
// renders messages, and accumulates diagnostics for the writers. Safe
// for concurrent emission.
type Collector struct {
	mu          sync.Mutex
	disabled    map[deprecated.Kind]bool
	diagnostics []Diagnostic
}

var _ deprecated.Emitter = (*Collector)(nil)

func NewCollector(disabledKinds []string) *Collector {
	disabled := make(map[deprecated.Kind]bool, len(disabledKinds))
	for _, k := range disabledKinds {
		disabled[deprecated.Kind(k)] = true
	}
	return &Collector{disabled: disabled}
}

func (c *Collector) Enabled(kind deprecated.Kind) bool {
	return !c.disabled[kind]
}

func (c *Collector) Emit(kind deprecated.Kind, loc syntax.Location, args ...string) {
	if !c.Enabled(kind) {
		return
	}

	tmpl, ok := templates[kind]
	if !ok {
		tmpl = string(kind)
	}
	anyArgs := make([]interface{}, len(args))
	for i, a := range args {
		anyArgs[i] = a
	}

	c.mu.Lock()
	c.diagnostics = append(c.diagnostics, Diagnostic{
		Kind:     kind,
		Message:  fmt.Sprintf(tmpl, anyArgs...),
		Args:     args,
		Location: loc,
	})
	c.mu.Unlock()

	observability.DiagnosticsTotal.WithLabelValues(string(kind)).Inc()
}

// Diagnostics returns the collected diagnostics ordered by location.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	out := make([]Diagnostic, len(c.diagnostics))
	copy(out, c.diagnostics)
	c.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Location, out[j].Location
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return out
}

func (c *Collector) CountsByKind() map[deprecated.Kind]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts := make(map[deprecated.Kind]int)
	for _, d := range c.diagnostics {
		counts[d.Kind]++
	}
	return counts
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.diagnostics)
}

// Reset clears collected diagnostics between watch-mode runs.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.diagnostics = nil
	c.mu.Unlock()
}
