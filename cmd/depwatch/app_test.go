package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"depwatch/internal/config"
	"depwatch/internal/deprecated"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func intp(v int) *int { return &v }

func TestAppScan(t *testing.T) {
	tmpDir := t.TempDir()

	writeFixture(t, tmpDir, "utils.py", `
def helper(a, b):
    return a + b

class Greeter:
    def greet(self, name, formal=False):
        return name
`)
	mainPath := writeFixture(t, tmpDir, "main.py", `
import utils
import old.mod.sub
from old.mod import Thing
from utils import helper

helper(1, 2)
utils.helper(3, 4)
g = utils.Greeter()
g.greet("x", formal=True)
`)

	cfg := &config.Config{
		Paths: []string{tmpDir},
		Rules: config.Rules{
			Methods: []string{"utils.helper"},
			Arguments: []config.ArgumentRule{
				{Method: "greet", Name: "formal"},
			},
			Modules: []string{"old.mod"},
			Classes: map[string][]string{"old.mod": {"Thing"}},
		},
		Output: config.Output{
			TSV:   filepath.Join(tmpDir, "report.tsv"),
			SARIF: filepath.Join(tmpDir, "report.sarif"),
		},
	}

	app, err := NewApp(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	count, err := app.RunScan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 6 {
		for _, d := range app.Collector.Diagnostics() {
			t.Logf("%s:%d %s: %s", d.Location.File, d.Location.Line, d.Kind, d.Message)
		}
		t.Fatalf("Expected 6 diagnostics, got %d", count)
	}

	counts := app.Collector.CountsByKind()
	expected := map[deprecated.Kind]int{
		deprecated.DeprecatedMethod:   2, // helper() and utils.helper()
		deprecated.DeprecatedArgument: 1, // formal=True
		deprecated.DeprecatedModule:   2, // old.mod.sub and old.mod
		deprecated.DeprecatedClass:    1, // Thing
	}
	for kind, want := range expected {
		if counts[kind] != want {
			t.Errorf("Expected %d %s, got %d", want, kind, counts[kind])
		}
	}

	if err := app.WriteReports(tmpDir); err != nil {
		t.Fatal(err)
	}
	tsv, err := os.ReadFile(cfg.Output.TSV)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(tsv), "deprecated-method") {
		t.Error("TSV report missing method diagnostic")
	}
	if _, err := os.Stat(cfg.Output.SARIF); err != nil {
		t.Error("SARIF report was not generated")
	}

	// A changed file is reparsed and the whole project re-checked.
	writeFixture(t, tmpDir, "main.py", `
import utils
import old.mod.sub
from old.mod import Thing
from utils import helper

helper(1, 2)
utils.helper(3, 4)
utils.helper(5, 6)
g = utils.Greeter()
g.greet("x", formal=True)
`)
	count, err = app.Rescan(context.Background(), []string{mainPath})
	if err != nil {
		t.Fatal(err)
	}
	if count != 7 {
		t.Errorf("Expected 7 diagnostics after rescan, got %d", count)
	}

	// A deleted file drops out of the index.
	if err := os.Remove(mainPath); err != nil {
		t.Fatal(err)
	}
	count, err = app.Rescan(context.Background(), []string{mainPath})
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("Expected 0 diagnostics after removal, got %d", count)
	}
}

func TestAppDisabledKinds(t *testing.T) {
	tmpDir := t.TempDir()

	writeFixture(t, tmpDir, "app.py", `
import old.mod
from lib import legacy

def run():
    legacy(1)
`)
	writeFixture(t, tmpDir, "lib.py", `
def legacy(x):
    return x
`)

	cfg := &config.Config{
		Paths:   []string{tmpDir},
		Disable: []string{string(deprecated.DeprecatedModule)},
		Rules: config.Rules{
			Modules: []string{"old.mod"},
			Arguments: []config.ArgumentRule{
				{Method: "legacy", Name: "x", Position: intp(0)},
			},
		},
	}

	app, err := NewApp(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	count, err := app.RunScan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// The module diagnostic is disabled; only the argument remains.
	if count != 1 {
		t.Fatalf("Expected 1 diagnostic, got %d", count)
	}
	if got := app.Collector.Diagnostics()[0].Kind; got != deprecated.DeprecatedArgument {
		t.Errorf("Expected argument diagnostic, got %s", got)
	}
}

func TestApplyOutputFlags(t *testing.T) {
	cfg := &config.Config{
		Output: config.Output{TSV: "config.tsv", SARIF: "config.sarif"},
	}

	// Empty flags keep the configured targets.
	applyOutputFlags(cfg, "", "")
	if cfg.Output.TSV != "config.tsv" || cfg.Output.SARIF != "config.sarif" {
		t.Errorf("config targets overwritten: %+v", cfg.Output)
	}

	applyOutputFlags(cfg, "cli.tsv", "cli.sarif")
	if cfg.Output.TSV != "cli.tsv" {
		t.Errorf("tsv flag not applied, got %s", cfg.Output.TSV)
	}
	if cfg.Output.SARIF != "cli.sarif" {
		t.Errorf("sarif flag not applied, got %s", cfg.Output.SARIF)
	}
}

func TestAppHistory(t *testing.T) {
	tmpDir := t.TempDir()

	writeFixture(t, tmpDir, "m.py", "import old\n")

	cfg := &config.Config{
		Paths:   []string{tmpDir},
		Rules:   config.Rules{Modules: []string{"old"}},
		History: config.History{Path: filepath.Join(tmpDir, "history.db")},
	}

	app, err := NewApp(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	if _, err := app.RunScan(context.Background()); err != nil {
		t.Fatal(err)
	}

	runs, err := app.History.RecentRuns(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 recorded run, got %d", len(runs))
	}
	if runs[0].ModuleCount != 1 {
		t.Errorf("Expected 1 module diagnostic recorded, got %d", runs[0].ModuleCount)
	}
	if runs[0].FilesScanned != 1 {
		t.Errorf("Expected 1 file scanned, got %d", runs[0].FilesScanned)
	}
}
