// Package resolver attributes callee expressions to project
// definitions. It is deliberately approximate: it follows import
// bindings and local definitions, not data flow, and reports
// deprecated.ErrUnresolved whenever a name cannot be pinned to any
// indexed definition.
package resolver

import (
	"fmt"
	"strings"
	"sync"

	"depwatch/internal/deprecated"
	"depwatch/internal/shared/observability"
	"depwatch/internal/syntax"
)

// unresolved wraps deprecated.ErrUnresolved and counts the miss.
func unresolved(format string, args ...interface{}) error {
	observability.UnresolvedCalleesTotal.Inc()
	args = append(args, deprecated.ErrUnresolved)
	return fmt.Errorf(format+": %w", args...)
}

// Index holds every parsed file keyed by module path. Reads and writes
// are guarded so watch mode can reindex single files while a scan is
// reading.
type Index struct {
	mu      sync.RWMutex
	files   map[string]*syntax.File                 // file path -> file
	modules map[string]*syntax.File                 // module path -> file
	defs    map[string]map[string]syntax.Definition // module path -> local name -> def
}

func NewIndex() *Index {
	return &Index{
		files:   make(map[string]*syntax.File),
		modules: make(map[string]*syntax.File),
		defs:    make(map[string]map[string]syntax.Definition),
	}
}

func (ix *Index) Add(file *syntax.File) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if old, ok := ix.files[file.Path]; ok {
		delete(ix.modules, old.Module)
		delete(ix.defs, old.Module)
	}

	ix.files[file.Path] = file
	ix.modules[file.Module] = file

	defs := make(map[string]syntax.Definition, len(file.Definitions))
	for _, def := range file.Definitions {
		local := strings.TrimPrefix(def.QualifiedName, file.Module+".")
		defs[local] = def
	}
	ix.defs[file.Module] = defs
}

func (ix *Index) Remove(path string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if old, ok := ix.files[path]; ok {
		delete(ix.modules, old.Module)
		delete(ix.defs, old.Module)
		delete(ix.files, path)
	}
}

func (ix *Index) FileCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.files)
}

// definition looks up a module-level name ("foo" or "Class.foo") inside
// a module known to the index.
func (ix *Index) definition(module, name string) (syntax.Definition, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	def, ok := ix.defs[module][name]
	return def, ok
}

func (ix *Index) hasModule(module string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.modules[module]
	return ok
}

// methodsNamed returns every class method with the given name across
// the index, used as the candidate set for attribute calls on objects.
func (ix *Index) methodsNamed(name string) []syntax.Definition {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []syntax.Definition
	for _, defs := range ix.defs {
		for local, def := range defs {
			if def.Kind == syntax.KindMethod && strings.HasSuffix(local, "."+name) {
				out = append(out, def)
			}
		}
	}
	return out
}

type Resolver struct {
	index *Index
}

func New(index *Index) *Resolver {
	return &Resolver{index: index}
}

var _ deprecated.Resolver = (*Resolver)(nil)

// ResolveCallee maps a call's callee expression to candidate
// definitions. Failure to attribute the name is reported as a wrapped
// deprecated.ErrUnresolved, never as a hard error.
func (r *Resolver) ResolveCallee(file *syntax.File, callee syntax.Callee) ([]deprecated.ResolvedDefinition, error) {
	switch callee.Kind {
	case syntax.CalleeName:
		return r.resolveName(file, callee.Name)
	case syntax.CalleeAttribute:
		return r.resolveAttribute(file, callee)
	}
	return nil, unresolved("unsupported callee shape")
}

func (r *Resolver) resolveName(file *syntax.File, name string) ([]deprecated.ResolvedDefinition, error) {
	// Same module first.
	if def, ok := r.index.definition(file.Module, name); ok {
		return []deprecated.ResolvedDefinition{resolved(def, false)}, nil
	}

	// from m import name
	var candidates []deprecated.ResolvedDefinition
	for _, imp := range file.FromImports {
		if !contains(imp.Names, name) {
			continue
		}
		if def, ok := r.index.definition(imp.Module, name); ok {
			candidates = append(candidates, resolved(def, false))
		}
	}
	if len(candidates) > 0 {
		return candidates, nil
	}

	return nil, unresolved("resolve %q in %s", name, file.Path)
}

func (r *Resolver) resolveAttribute(file *syntax.File, callee syntax.Callee) ([]deprecated.ResolvedDefinition, error) {
	if callee.BaseIsName {
		// import m / import long.path as m: base names a module.
		if module, ok := r.moduleForBase(file, callee.Base); ok {
			if def, ok := r.index.definition(module, callee.Name); ok {
				return []deprecated.ResolvedDefinition{resolved(def, false)}, nil
			}
			return nil, unresolved("resolve %s.%s", module, callee.Name)
		}
	}

	// Anything else is an attribute call on some object; without type
	// inference every class method with this name is a candidate.
	if methods := r.index.methodsNamed(callee.Name); len(methods) > 0 {
		candidates := make([]deprecated.ResolvedDefinition, 0, len(methods))
		for _, def := range methods {
			candidates = append(candidates, resolved(def, true))
		}
		return candidates, nil
	}

	return nil, unresolved("resolve .%s in %s", callee.Name, file.Path)
}

// moduleForBase maps a bare base name to the module it binds in this
// file, via direct imports and their aliases.
func (r *Resolver) moduleForBase(file *syntax.File, base string) (string, bool) {
	for _, imp := range file.Imports {
		for _, path := range imp.Paths {
			if alias, ok := imp.Aliases[path]; ok {
				if alias == base && r.index.hasModule(path) {
					return path, true
				}
				continue
			}
			// "import a.b" binds "a"; a bare "import a" binds "a".
			top := path
			if i := strings.Index(path, "."); i >= 0 {
				top = path[:i]
			}
			if top == base && r.index.hasModule(path) {
				return path, true
			}
		}
	}
	return "", false
}

func resolved(def syntax.Definition, bound bool) deprecated.ResolvedDefinition {
	kind := deprecated.ResolvedOther
	switch def.Kind {
	case syntax.KindFunction:
		kind = deprecated.ResolvedFunction
	case syntax.KindClass:
		kind = deprecated.ResolvedClass
	case syntax.KindMethod:
		if bound {
			kind = deprecated.ResolvedBoundMethod
		} else {
			kind = deprecated.ResolvedUnboundMethod
		}
	}
	return deprecated.ResolvedDefinition{
		QualifiedName: def.QualifiedName,
		Kind:          kind,
	}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
