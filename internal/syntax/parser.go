package syntax

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"depwatch/internal/core/errors"
	"depwatch/internal/shared/observability"
)

type Parser struct {
	loader     *GrammarLoader
	extractors map[string]Extractor // language -> extractor
}

type Extractor interface {
	Extract(node *sitter.Node, source []byte, filePath, module string) (*File, error)
}

func NewParser(loader *GrammarLoader) *Parser {
	return &Parser{
		loader:     loader,
		extractors: make(map[string]Extractor),
	}
}

func (p *Parser) RegisterExtractor(lang string, e Extractor) {
	p.extractors[lang] = e
}

// ParseFile parses content and extracts the file's imports, calls and
// definitions. module is the dotted module path the file's definitions
// are qualified under; callers derive it from the path relative to the
// scan root so that imports resolve against it.
func (p *Parser) ParseFile(path, module string, content []byte) (*File, error) {
	lang := p.detectLanguage(path)
	if lang == "" {
		return nil, errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported language"), errors.CtxPath, path)
	}

	grammar := p.loader.Language(lang)
	if grammar == nil {
		return nil, errors.New(errors.CodeInternal, fmt.Sprintf("grammar not loaded: %s", lang))
	}

	start := time.Now()

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, errors.AddContext(errors.New(errors.CodeInternal, "parse failed"), errors.CtxPath, path)
	}
	defer tree.Close()

	extractor := p.extractors[lang]
	if extractor == nil {
		return nil, errors.New(errors.CodeNotSupported, fmt.Sprintf("no extractor for: %s", lang))
	}

	file, err := extractor.Extract(tree.RootNode(), content, path, module)
	if err != nil {
		return nil, err
	}

	observability.ParsingDuration.WithLabelValues(lang).Observe(time.Since(start).Seconds())

	return file, nil
}

func (p *Parser) detectLanguage(path string) string {
	if filepath.Ext(path) == ".py" {
		return "python"
	}
	return ""
}

// ModuleFromPath converts a file path into a dotted module path:
// "pkg/sub/mod.py" -> "pkg.sub.mod", "pkg/__init__.py" -> "pkg".
func ModuleFromPath(path string) string {
	p := filepath.ToSlash(path)
	p = strings.TrimSuffix(p, ".py")
	p = strings.TrimSuffix(p, "/__init__")
	p = strings.TrimPrefix(p, "./")
	return strings.ReplaceAll(p, "/", ".")
}
