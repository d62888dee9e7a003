// Package deprecated flags call sites that invoke deprecated functions
// or methods, calls passing deprecated arguments, imports of deprecated
// modules, and references to deprecated classes. It is driven one node
// at a time by an external traversal and never fails a scan: whatever
// cannot be resolved or classified is skipped silently.
package deprecated

import (
	"errors"
	"strings"

	"depwatch/internal/syntax"
)

// Kind identifies a diagnostic family.
type Kind string

const (
	DeprecatedMethod   Kind = "deprecated-method"
	DeprecatedArgument Kind = "deprecated-argument"
	DeprecatedModule   Kind = "deprecated-module"
	DeprecatedClass    Kind = "deprecated-class"
)

// ResolvedKind tags a symbol-resolution candidate.
type ResolvedKind int

const (
	ResolvedBoundMethod ResolvedKind = iota
	ResolvedUnboundMethod
	ResolvedFunction
	ResolvedClass
	ResolvedOther
)

// acceptable reports whether a resolved candidate participates in
// method/argument matching at all.
func (k ResolvedKind) acceptable() bool {
	switch k {
	case ResolvedBoundMethod, ResolvedUnboundMethod, ResolvedFunction, ResolvedClass:
		return true
	}
	return false
}

// ResolvedDefinition is one symbol-resolution candidate for a callee.
type ResolvedDefinition struct {
	QualifiedName string
	Kind          ResolvedKind
}

// ErrUnresolved marks the one failure the checker is allowed to
// swallow: symbol inference could not complete for a callee. Resolvers
// wrap it so callers can test with errors.Is.
var ErrUnresolved = errors.New("callee cannot be resolved")

// Resolver produces candidate definitions for a call's callee
// expression.
type Resolver interface {
	ResolveCallee(file *syntax.File, callee syntax.Callee) ([]ResolvedDefinition, error)
}

// Emitter records diagnostics. Enabled lets the checker skip the work
// behind a diagnostic family that nobody listens to; it is an
// optimization, not a correctness gate, so Emit must apply the same
// filtering itself.
type Emitter interface {
	Enabled(kind Kind) bool
	Emit(kind Kind, loc syntax.Location, args ...string)
}

// Checker correlates classified call/import sites against the Registry.
// It is stateless across nodes; a single instance may serve concurrent
// traversals as long as registry data is read-only.
type Checker struct {
	registry Registry
	resolver Resolver
	emitter  Emitter
}

func NewChecker(registry Registry, resolver Resolver, emitter Emitter) *Checker {
	return &Checker{
		registry: registry,
		resolver: resolver,
		emitter:  emitter,
	}
}

// OnCall handles one call site. A callee that cannot be resolved yields
// no diagnostics; any other resolver failure is returned to the host.
func (c *Checker) OnCall(file *syntax.File, call syntax.CallSite) error {
	if c.emitter.Enabled(DeprecatedClass) {
		c.checkDeprecatedClassInCall(call)
	}

	if !c.emitter.Enabled(DeprecatedMethod) && !c.emitter.Enabled(DeprecatedArgument) {
		return nil
	}

	if call.Callee.Kind == syntax.CalleeUnsupported {
		return nil
	}

	candidates, err := c.resolver.ResolveCallee(file, call.Callee)
	if err != nil {
		if errors.Is(err, ErrUnresolved) {
			return nil
		}
		return err
	}

	for _, candidate := range candidates {
		c.checkDeprecatedMethod(call, candidate)
	}
	return nil
}

// OnImport handles "import a.b, c as d".
func (c *Checker) OnImport(imp syntax.ImportSite) {
	if !c.emitter.Enabled(DeprecatedModule) && !c.emitter.Enabled(DeprecatedClass) {
		return
	}

	for _, path := range imp.Paths {
		c.checkDeprecatedModule(imp.Location, path)
		if i := strings.Index(path, "."); i >= 0 {
			// "import a.b" also references class b of module a.
			c.checkDeprecatedClass(imp.Location, path[:i], path[i+1:])
		}
	}
}

// OnImportFrom handles "from m import a, b".
func (c *Checker) OnImportFrom(imp syntax.FromImportSite) {
	if !c.emitter.Enabled(DeprecatedModule) && !c.emitter.Enabled(DeprecatedClass) {
		return
	}

	c.checkDeprecatedModule(imp.Location, imp.Module)
	c.checkDeprecatedClass(imp.Location, imp.Module, imp.Names...)
}

func (c *Checker) checkDeprecatedModule(loc syntax.Location, path string) {
	for _, name := range c.registry.DeprecatedModules() {
		if path == name || strings.HasPrefix(path, name+".") {
			c.emitter.Emit(DeprecatedModule, loc, path)
		}
	}
}

func (c *Checker) checkDeprecatedMethod(call syntax.CallSite, candidate ResolvedDefinition) {
	if !candidate.Kind.acceptable() {
		return
	}

	funcName := call.Callee.UnqualifiedName()
	if funcName == "" {
		return
	}

	qname := candidate.QualifiedName
	methods := c.registry.DeprecatedMethods()
	for _, name := range [2]string{qname, funcName} {
		if _, ok := methods[name]; ok {
			c.emitter.Emit(DeprecatedMethod, call.Location, funcName)
			return
		}
	}

	c.checkDeprecatedArguments(call, funcName, qname)
}

// checkDeprecatedArguments looks up specs under the unqualified and the
// qualified name and evaluates the concatenation; a spec registered
// under both names is intentionally evaluated twice.
func (c *Checker) checkDeprecatedArguments(call syntax.CallSite, funcName, qname string) {
	specs := c.registry.DeprecatedArguments(funcName)
	specs = append(specs[:len(specs):len(specs)], c.registry.DeprecatedArguments(qname)...)

	for _, spec := range specs {
		if _, ok := call.Keywords[spec.Name]; ok {
			// called with the deprecated argument as a keyword
			c.emitter.Emit(DeprecatedArgument, call.Location, spec.Name, funcName)
		} else if spec.Position != nil && *spec.Position < call.Positional {
			// called with the deprecated argument positionally; the
			// declared position is only compared against the supplied
			// count, not the real callee signature
			c.emitter.Emit(DeprecatedArgument, call.Location, spec.Name, funcName)
		}
	}
}

func (c *Checker) checkDeprecatedClass(loc syntax.Location, module string, classNames ...string) {
	classes := c.registry.DeprecatedClasses(module)
	for _, name := range classNames {
		if _, ok := classes[name]; ok {
			c.emitter.Emit(DeprecatedClass, loc, name, module)
		}
	}
}

// checkDeprecatedClassInCall treats "base.Attr(...)" with a bare-name
// base as a possible module-qualified class reference. The base may
// just as well be an object whose attribute shares a deprecated class
// name, so this is approximate by construction; it runs before and
// independent of symbol resolution.
func (c *Checker) checkDeprecatedClassInCall(call syntax.CallSite) {
	if call.Callee.Kind != syntax.CalleeAttribute || !call.Callee.BaseIsName {
		return
	}
	c.checkDeprecatedClass(call.Location, call.Callee.Base, call.Callee.Name)
}
