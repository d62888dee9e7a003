package deprecated

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"depwatch/internal/syntax"
)

type fakeResolver struct {
	defs []ResolvedDefinition
	err  error
}

func (f fakeResolver) ResolveCallee(_ *syntax.File, _ syntax.Callee) ([]ResolvedDefinition, error) {
	return f.defs, f.err
}

type event struct {
	kind Kind
	args []string
}

type recordingEmitter struct {
	disabled map[Kind]bool
	events   []event
}

func (r *recordingEmitter) Enabled(kind Kind) bool {
	return !r.disabled[kind]
}

func (r *recordingEmitter) Emit(kind Kind, _ syntax.Location, args ...string) {
	if r.disabled[kind] {
		return
	}
	r.events = append(r.events, event{kind: kind, args: args})
}

func intp(i int) *int { return &i }

// testRegistry is the shared scenario set: methods {"bar"}, arguments
// for "quux" = [(1,"x"), (None,"y")], modules {"old.mod"}, classes of
// "old.mod" = {"Thing"}.
func testRegistry() *RuleRegistry {
	return NewRuleRegistry(
		[]string{"bar"},
		map[string][]ArgumentSpec{
			"quux": {{Position: intp(1), Name: "x"}, {Position: nil, Name: "y"}},
		},
		[]string{"old.mod"},
		map[string][]string{"old.mod": {"Thing"}},
	)
}

func nameCall(name string, positional int, keywords ...string) syntax.CallSite {
	call := syntax.CallSite{
		Callee:     syntax.Callee{Kind: syntax.CalleeName, Name: name},
		Positional: positional,
		Keywords:   make(map[string]struct{}),
	}
	for _, kw := range keywords {
		call.Keywords[kw] = struct{}{}
	}
	return call
}

func attrCall(base, name string, positional int) syntax.CallSite {
	return syntax.CallSite{
		Callee: syntax.Callee{
			Kind:       syntax.CalleeAttribute,
			Name:       name,
			Base:       base,
			BaseIsName: true,
		},
		Positional: positional,
		Keywords:   make(map[string]struct{}),
	}
}

func TestDeprecatedMethodStopsArgumentCheck(t *testing.T) {
	reg := NewRuleRegistry(
		[]string{"bar"},
		map[string][]ArgumentSpec{"bar": {{Position: intp(0), Name: "x"}}},
		nil, nil,
	)
	emitter := &recordingEmitter{}
	checker := NewChecker(reg, fakeResolver{
		defs: []ResolvedDefinition{{QualifiedName: "pkg.Klass.bar", Kind: ResolvedBoundMethod}},
	}, emitter)

	if err := checker.OnCall(&syntax.File{}, attrCall("obj", "bar", 2)); err != nil {
		t.Fatal(err)
	}

	want := []event{{kind: DeprecatedMethod, args: []string{"bar"}}}
	if !reflect.DeepEqual(emitter.events, want) {
		t.Errorf("events = %v, want %v", emitter.events, want)
	}
}

func TestDeprecatedMethodMatchesQualifiedName(t *testing.T) {
	reg := NewRuleRegistry([]string{"pkg.mod.bar"}, nil, nil, nil)
	emitter := &recordingEmitter{}
	checker := NewChecker(reg, fakeResolver{
		defs: []ResolvedDefinition{{QualifiedName: "pkg.mod.bar", Kind: ResolvedFunction}},
	}, emitter)

	if err := checker.OnCall(&syntax.File{}, nameCall("bar", 0)); err != nil {
		t.Fatal(err)
	}

	// The emitted argument is the name written at the call site.
	want := []event{{kind: DeprecatedMethod, args: []string{"bar"}}}
	if !reflect.DeepEqual(emitter.events, want) {
		t.Errorf("events = %v, want %v", emitter.events, want)
	}
}

func TestDeprecatedArgumentPositional(t *testing.T) {
	emitter := &recordingEmitter{}
	checker := NewChecker(testRegistry(), fakeResolver{
		defs: []ResolvedDefinition{{QualifiedName: "pkg.quux", Kind: ResolvedFunction}},
	}, emitter)

	// quux(1, 2): position 1 < 2 supplied positional args.
	if err := checker.OnCall(&syntax.File{}, nameCall("quux", 2)); err != nil {
		t.Fatal(err)
	}

	want := []event{{kind: DeprecatedArgument, args: []string{"x", "quux"}}}
	if !reflect.DeepEqual(emitter.events, want) {
		t.Errorf("events = %v, want %v", emitter.events, want)
	}
}

func TestDeprecatedArgumentKeyword(t *testing.T) {
	emitter := &recordingEmitter{}
	checker := NewChecker(testRegistry(), fakeResolver{
		defs: []ResolvedDefinition{{QualifiedName: "pkg.quux", Kind: ResolvedFunction}},
	}, emitter)

	// quux(1, y=5): keyword match on the keyword-only spec.
	if err := checker.OnCall(&syntax.File{}, nameCall("quux", 1, "y")); err != nil {
		t.Fatal(err)
	}

	want := []event{{kind: DeprecatedArgument, args: []string{"y", "quux"}}}
	if !reflect.DeepEqual(emitter.events, want) {
		t.Errorf("events = %v, want %v", emitter.events, want)
	}
}

func TestDeprecatedArgumentTooFewPositionals(t *testing.T) {
	emitter := &recordingEmitter{}
	checker := NewChecker(testRegistry(), fakeResolver{
		defs: []ResolvedDefinition{{QualifiedName: "pkg.quux", Kind: ResolvedFunction}},
	}, emitter)

	// quux(1): position 1 is not reached, keyword-only "y" not named.
	if err := checker.OnCall(&syntax.File{}, nameCall("quux", 1)); err != nil {
		t.Fatal(err)
	}

	if len(emitter.events) != 0 {
		t.Errorf("expected no diagnostics, got %v", emitter.events)
	}
}

func TestDeprecatedArgumentSpecUnderBothNamesEmitsTwice(t *testing.T) {
	reg := NewRuleRegistry(nil, map[string][]ArgumentSpec{
		"quux":     {{Position: intp(0), Name: "x"}},
		"pkg.quux": {{Position: intp(0), Name: "x"}},
	}, nil, nil)
	emitter := &recordingEmitter{}
	checker := NewChecker(reg, fakeResolver{
		defs: []ResolvedDefinition{{QualifiedName: "pkg.quux", Kind: ResolvedFunction}},
	}, emitter)

	if err := checker.OnCall(&syntax.File{}, nameCall("quux", 1)); err != nil {
		t.Fatal(err)
	}

	// Lookups are concatenated, not de-duplicated.
	if len(emitter.events) != 2 {
		t.Fatalf("expected 2 diagnostics, got %v", emitter.events)
	}
}

func TestMultipleCandidatesCheckedIndependently(t *testing.T) {
	reg := NewRuleRegistry([]string{"a.bar", "b.bar"}, nil, nil, nil)
	emitter := &recordingEmitter{}
	checker := NewChecker(reg, fakeResolver{
		defs: []ResolvedDefinition{
			{QualifiedName: "a.bar", Kind: ResolvedFunction},
			{QualifiedName: "b.bar", Kind: ResolvedUnboundMethod},
			{QualifiedName: "c.bar", Kind: ResolvedOther}, // ignored kind
		},
	}, emitter)

	if err := checker.OnCall(&syntax.File{}, nameCall("bar", 0)); err != nil {
		t.Fatal(err)
	}

	if len(emitter.events) != 2 {
		t.Fatalf("expected 2 diagnostics, got %v", emitter.events)
	}
	for _, ev := range emitter.events {
		if ev.kind != DeprecatedMethod {
			t.Errorf("unexpected kind %s", ev.kind)
		}
	}
}

func TestUnresolvedCalleeIsSilent(t *testing.T) {
	emitter := &recordingEmitter{}
	checker := NewChecker(testRegistry(), fakeResolver{
		err: fmt.Errorf("inferring %q: %w", "bar", ErrUnresolved),
	}, emitter)

	if err := checker.OnCall(&syntax.File{}, nameCall("bar", 2)); err != nil {
		t.Fatalf("resolution failure must be suppressed, got %v", err)
	}
	if len(emitter.events) != 0 {
		t.Errorf("expected no diagnostics, got %v", emitter.events)
	}
}

func TestResolverErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	checker := NewChecker(testRegistry(), fakeResolver{err: boom}, &recordingEmitter{})

	if err := checker.OnCall(&syntax.File{}, nameCall("bar", 0)); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestUnsupportedCalleeSkipped(t *testing.T) {
	emitter := &recordingEmitter{}
	checker := NewChecker(testRegistry(), fakeResolver{err: errors.New("resolver must not be called")}, emitter)

	call := syntax.CallSite{Callee: syntax.Callee{Kind: syntax.CalleeUnsupported}}
	if err := checker.OnCall(&syntax.File{}, call); err != nil {
		t.Fatal(err)
	}
	if len(emitter.events) != 0 {
		t.Errorf("expected no diagnostics, got %v", emitter.events)
	}
}

func TestDeprecatedClassInCallHeuristic(t *testing.T) {
	reg := NewRuleRegistry(nil, nil, nil, map[string][]string{"oldmod": {"Thing"}})
	emitter := &recordingEmitter{}
	checker := NewChecker(reg, fakeResolver{err: ErrUnresolved}, emitter)

	// oldmod.Thing(): class check fires even though resolution fails.
	if err := checker.OnCall(&syntax.File{}, attrCall("oldmod", "Thing", 0)); err != nil {
		t.Fatal(err)
	}

	want := []event{{kind: DeprecatedClass, args: []string{"Thing", "oldmod"}}}
	if !reflect.DeepEqual(emitter.events, want) {
		t.Errorf("events = %v, want %v", emitter.events, want)
	}
}

func TestOnImportModulePrefix(t *testing.T) {
	tests := []struct {
		path string
		want int
	}{
		{"old.mod", 1},
		{"old.mod.sub", 1},
		{"old.modbar", 0}, // shared string prefix without dot boundary
		{"other.mod", 0},
	}

	for _, tt := range tests {
		emitter := &recordingEmitter{}
		checker := NewChecker(testRegistry(), fakeResolver{}, emitter)

		checker.OnImport(syntax.ImportSite{Paths: []string{tt.path}})

		got := 0
		for _, ev := range emitter.events {
			if ev.kind == DeprecatedModule {
				got++
				if ev.args[0] != tt.path {
					t.Errorf("import %s: arg = %s", tt.path, ev.args[0])
				}
			}
		}
		if got != tt.want {
			t.Errorf("import %s: %d deprecated-module diagnostics, want %d", tt.path, got, tt.want)
		}
	}
}

func TestOnImportSplitsClassFromDottedPath(t *testing.T) {
	reg := NewRuleRegistry(nil, nil, nil, map[string][]string{"old": {"Thing"}})
	emitter := &recordingEmitter{}
	checker := NewChecker(reg, fakeResolver{}, emitter)

	// "import old.Thing" also checks class "Thing" of module "old";
	// only the first dot splits, so deeper paths keep their tail.
	checker.OnImport(syntax.ImportSite{Paths: []string{"old.Thing"}})

	want := []event{{kind: DeprecatedClass, args: []string{"Thing", "old"}}}
	if !reflect.DeepEqual(emitter.events, want) {
		t.Errorf("events = %v, want %v", emitter.events, want)
	}
}

func TestOnImportFrom(t *testing.T) {
	emitter := &recordingEmitter{}
	checker := NewChecker(testRegistry(), fakeResolver{}, emitter)

	checker.OnImportFrom(syntax.FromImportSite{
		Module: "old.mod",
		Names:  []string{"Thing", "Other"},
	})

	want := []event{
		{kind: DeprecatedModule, args: []string{"old.mod"}},
		{kind: DeprecatedClass, args: []string{"Thing", "old.mod"}},
	}
	if !reflect.DeepEqual(emitter.events, want) {
		t.Errorf("events = %v, want %v", emitter.events, want)
	}
}

func TestOverlappingModuleRulesEachEmit(t *testing.T) {
	reg := NewRuleRegistry(nil, nil, []string{"old", "old.mod"}, nil)
	emitter := &recordingEmitter{}
	checker := NewChecker(reg, fakeResolver{}, emitter)

	checker.OnImport(syntax.ImportSite{Paths: []string{"old.mod.sub"}})

	if len(emitter.events) != 2 {
		t.Errorf("expected one diagnostic per matching rule, got %v", emitter.events)
	}
}

func TestDisabledKindsSkipWork(t *testing.T) {
	emitter := &recordingEmitter{disabled: map[Kind]bool{
		DeprecatedMethod:   true,
		DeprecatedArgument: true,
		DeprecatedClass:    true,
	}}
	checker := NewChecker(testRegistry(), fakeResolver{err: errors.New("resolver must not be called")}, emitter)

	if err := checker.OnCall(&syntax.File{}, nameCall("bar", 2)); err != nil {
		t.Fatal(err)
	}
	if len(emitter.events) != 0 {
		t.Errorf("expected no diagnostics, got %v", emitter.events)
	}
}

func TestEmptyRegistryIsSilent(t *testing.T) {
	emitter := &recordingEmitter{}
	checker := NewChecker(UnimplementedRegistry{}, fakeResolver{
		defs: []ResolvedDefinition{{QualifiedName: "pkg.bar", Kind: ResolvedFunction}},
	}, emitter)

	if err := checker.OnCall(&syntax.File{}, nameCall("bar", 3, "x", "y")); err != nil {
		t.Fatal(err)
	}
	checker.OnImport(syntax.ImportSite{Paths: []string{"old.mod"}})
	checker.OnImportFrom(syntax.FromImportSite{Module: "old.mod", Names: []string{"Thing"}})

	if len(emitter.events) != 0 {
		t.Errorf("expected no diagnostics, got %v", emitter.events)
	}
}
