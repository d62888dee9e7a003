package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"depwatch/internal/config"
	"depwatch/internal/core/errors"
	"depwatch/internal/deprecated"
	"depwatch/internal/history"
	"depwatch/internal/report"
	"depwatch/internal/resolver"
	"depwatch/internal/shared/observability"
	"depwatch/internal/syntax"
)

type App struct {
	Config    *config.Config
	Parser    *syntax.Parser
	Index     *resolver.Index
	Checker   *deprecated.Checker
	Collector *report.Collector
	History   *history.Store

	// Parsed files by path, re-read on every scan so watch mode can
	// re-check unchanged files against an updated index.
	files map[string]*syntax.File
}

func NewApp(cfg *config.Config) (*App, error) {
	parser := syntax.NewParser(syntax.NewGrammarLoader())
	parser.RegisterExtractor("python", &syntax.PythonExtractor{})

	index := resolver.NewIndex()
	collector := report.NewCollector(cfg.Disable)

	app := &App{
		Config:    cfg,
		Parser:    parser,
		Index:     index,
		Checker:   deprecated.NewChecker(cfg.Registry(), resolver.New(index), collector),
		Collector: collector,
		files:     make(map[string]*syntax.File),
	}

	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, errors.AddContext(err, errors.CtxPath, cfg.History.Path)
		}
		app.History = store
	}

	return app, nil
}

func (a *App) Close() error {
	if a.History != nil {
		return a.History.Close()
	}
	return nil
}

// RunScan parses every configured path, rebuilds the index, and checks
// all sites. It returns the number of diagnostics found.
func (a *App) RunScan(ctx context.Context) (int, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.RunScan")
	defer span.End()

	start := time.Now()

	paths, err := a.ScanDirectories(a.Config.Paths, a.Config.Exclude.Dirs, a.Config.Exclude.Files)
	if err != nil {
		return 0, errors.AddContext(err, errors.CtxOperation, "scan_directories")
	}

	for _, path := range paths {
		if err := a.ProcessFile(path); err != nil {
			slog.Warn("failed to process file", "path", path, "error", err)
		}
	}

	count := a.analyze(ctx)

	duration := time.Since(start)
	observability.AnalysisDuration.WithLabelValues("scan").Observe(duration.Seconds())

	if a.History != nil {
		if _, err := a.History.RecordRun(ctx, len(a.files), a.Collector.CountsByKind(), duration); err != nil {
			slog.Warn("failed to record run history", "error", err)
		}
	}

	slog.Info("scan complete", "files", len(a.files), "diagnostics", count, "duration", duration)
	return count, nil
}

// Rescan reparses only the given files, then re-checks the whole
// project against the refreshed index.
func (a *App) Rescan(ctx context.Context, changed []string) (int, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Rescan")
	defer span.End()

	start := time.Now()

	// The watcher reports absolute paths; index keys use the scan's
	// working-directory-relative form.
	cwd, _ := os.Getwd()

	for _, path := range changed {
		if cwd != "" {
			if rel, err := filepath.Rel(cwd, path); err == nil && !strings.HasPrefix(rel, "..") {
				path = rel
			}
		}
		if _, err := os.Stat(path); err != nil {
			a.Index.Remove(path)
			delete(a.files, path)
			continue
		}
		if err := a.ProcessFile(path); err != nil {
			slog.Warn("failed to process file", "path", path, "error", err)
		}
	}

	count := a.analyze(ctx)
	observability.AnalysisDuration.WithLabelValues("rescan").Observe(time.Since(start).Seconds())
	return count, nil
}

func (a *App) ProcessFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	file, err := a.Parser.ParseFile(path, a.moduleFor(path), content)
	if err != nil {
		return err
	}

	a.files[path] = file
	a.Index.Add(file)
	observability.FilesScannedTotal.Inc()
	return nil
}

// moduleFor derives a dotted module path for a file. Each configured
// scan root acts as a Python package root, so "src/pkg/mod.py" scanned
// under "src" becomes "pkg.mod".
func (a *App) moduleFor(path string) string {
	for _, root := range a.Config.Paths {
		rel, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		return syntax.ModuleFromPath(rel)
	}
	return syntax.ModuleFromPath(path)
}

// analyze drives the checker over every known site. Resolution
// failures are already swallowed by the checker; anything else is
// logged and the scan continues.
func (a *App) analyze(ctx context.Context) int {
	_, span := observability.Tracer.Start(ctx, "app.analyze")
	defer span.End()

	a.Collector.Reset()

	for _, file := range a.files {
		for _, imp := range file.Imports {
			a.Checker.OnImport(imp)
		}
		for _, imp := range file.FromImports {
			a.Checker.OnImportFrom(imp)
		}
		for _, call := range file.Calls {
			if err := a.Checker.OnCall(file, call); err != nil {
				slog.Warn("call check failed", "path", file.Path, "error", err)
			}
		}
	}

	return a.Collector.Len()
}

func (a *App) ScanDirectories(paths []string, excludeDirs, excludeFiles []string) ([]string, error) {
	var files []string

	dirGlobs := make([]glob.Glob, 0, len(excludeDirs))
	for _, p := range excludeDirs {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude dir pattern %q: %w", p, err)
		}
		dirGlobs = append(dirGlobs, g)
	}

	fileGlobs := make([]glob.Glob, 0, len(excludeFiles))
	for _, p := range excludeFiles {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude file pattern %q: %w", p, err)
		}
		fileGlobs = append(fileGlobs, g)
	}

	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			base := filepath.Base(path)

			if d.IsDir() {
				for _, g := range dirGlobs {
					if g.Match(base) {
						return filepath.SkipDir
					}
				}
				return nil
			}

			if filepath.Ext(path) != ".py" {
				return nil
			}

			for _, g := range fileGlobs {
				if g.Match(base) {
					return nil
				}
			}

			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}

// WriteReports renders the collected diagnostics to stdout and to the
// configured TSV/SARIF targets.
func (a *App) WriteReports(projectRoot string) error {
	diagnostics := a.Collector.Diagnostics()

	fmt.Print(report.GenerateText(diagnostics))

	if a.Config.Output.TSV != "" {
		if err := os.WriteFile(a.Config.Output.TSV, []byte(report.GenerateTSV(diagnostics)), 0644); err != nil {
			return errors.AddContext(err, errors.CtxPath, a.Config.Output.TSV)
		}
	}

	if a.Config.Output.SARIF != "" {
		data, err := report.GenerateSARIF(projectRoot, Version, diagnostics)
		if err != nil {
			return err
		}
		if err := os.WriteFile(a.Config.Output.SARIF, data, 0644); err != nil {
			return errors.AddContext(err, errors.CtxPath, a.Config.Output.SARIF)
		}
	}

	return nil
}
