package syntax

import (
	"time"
)

// File is the per-file extraction result delivered to the analysis stages.
type File struct {
	Path         string
	Module       string // Dotted module path derived from the file path
	Imports      []ImportSite
	FromImports  []FromImportSite
	Calls        []CallSite
	Definitions  []Definition
	LocalSymbols []string // Variables bound in local scope (vars, params, loop targets)
	ParsedAt     time.Time
}

type CalleeKind int

const (
	CalleeName CalleeKind = iota // bare reference: foo(...)
	CalleeAttribute              // attribute access: obj.foo(...)
	CalleeUnsupported            // subscript, lambda, nested call, ...
)

// Callee is the canonical shape of a call's function expression.
// For CalleeAttribute, Base holds the source text of the object
// expression and BaseIsName reports whether that expression is a
// bare identifier.
type Callee struct {
	Kind       CalleeKind
	Name       string // attribute name or bare reference name
	Base       string
	BaseIsName bool
}

// UnqualifiedName returns the name written at the call site, or "" for
// unsupported callee shapes.
func (c Callee) UnqualifiedName() string {
	if c.Kind == CalleeUnsupported {
		return ""
	}
	return c.Name
}

type CallSite struct {
	Callee     Callee
	Positional int                 // count of positional arguments
	Keywords   map[string]struct{} // keyword argument names
	Location   Location
}

// ImportSite covers a direct import statement; one Path entry per
// imported dotted name ("import a.b, c" yields two).
type ImportSite struct {
	Paths    []string
	Aliases  map[string]string // dotted path -> local alias, when present
	Location Location
}

// FromImportSite covers "from M import a, b". Wildcard imports carry an
// empty Names list. Relative imports keep the module path with leading
// dots trimmed, matching how the index keys modules.
type FromImportSite struct {
	Module     string
	Names      []string
	IsRelative bool
	Location   Location
}

type Definition struct {
	Name          string
	QualifiedName string // module.Class.name or module.name
	Kind          DefinitionKind
	Location      Location
}

type DefinitionKind int

const (
	KindFunction DefinitionKind = iota
	KindClass
	KindMethod
)

type Location struct {
	File   string
	Line   int
	Column int
}
