package deprecated

// ArgumentSpec describes one deprecated argument of a method or
// function. Position is the argument's position in the definition;
// nil marks a keyword-only argument.
type ArgumentSpec struct {
	Position *int
	Name     string
}

// Registry is the pluggable source of deprecation facts. Entries are
// treated as immutable; the checker only reads them, so a Registry may
// be shared across goroutines as long as its backing data never changes
// during analysis.
type Registry interface {
	// DeprecatedMethods returns deprecated function/method names, both
	// unqualified ("bar") and qualified ("pkg.mod.bar") forms.
	DeprecatedMethods() map[string]struct{}

	// DeprecatedArguments returns the deprecated arguments of the named
	// method or function, if any.
	DeprecatedArguments(method string) []ArgumentSpec

	// DeprecatedModules returns deprecated module paths. A path matches
	// if equal to a returned name or nested below it ("old.mod" matches
	// "old.mod.sub").
	DeprecatedModules() []string

	// DeprecatedClasses returns the deprecated classes of the named
	// module.
	DeprecatedClasses(module string) map[string]struct{}
}

// UnimplementedRegistry answers "nothing is deprecated" for every
// lookup. Embed it to implement only the lookups a rule needs.
type UnimplementedRegistry struct{}

var _ Registry = UnimplementedRegistry{}

func (UnimplementedRegistry) DeprecatedMethods() map[string]struct{} { return nil }

func (UnimplementedRegistry) DeprecatedArguments(string) []ArgumentSpec { return nil }

func (UnimplementedRegistry) DeprecatedModules() []string { return nil }

func (UnimplementedRegistry) DeprecatedClasses(string) map[string]struct{} { return nil }

// RuleRegistry is a value-backed Registry, typically filled from
// configuration.
type RuleRegistry struct {
	Methods   map[string]struct{}
	Arguments map[string][]ArgumentSpec
	Modules   []string
	Classes   map[string]map[string]struct{}
}

var _ Registry = (*RuleRegistry)(nil)

func NewRuleRegistry(methods []string, arguments map[string][]ArgumentSpec, modules []string, classes map[string][]string) *RuleRegistry {
	r := &RuleRegistry{
		Methods:   make(map[string]struct{}, len(methods)),
		Arguments: arguments,
		Modules:   modules,
		Classes:   make(map[string]map[string]struct{}, len(classes)),
	}
	for _, m := range methods {
		r.Methods[m] = struct{}{}
	}
	for mod, names := range classes {
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			set[n] = struct{}{}
		}
		r.Classes[mod] = set
	}
	return r
}

func (r *RuleRegistry) DeprecatedMethods() map[string]struct{} { return r.Methods }

func (r *RuleRegistry) DeprecatedArguments(method string) []ArgumentSpec {
	return r.Arguments[method]
}

func (r *RuleRegistry) DeprecatedModules() []string { return r.Modules }

func (r *RuleRegistry) DeprecatedClasses(module string) map[string]struct{} {
	return r.Classes[module]
}
