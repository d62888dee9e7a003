package syntax

import (
	"strings"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type PythonExtractor struct{}

func (e *PythonExtractor) Extract(root *sitter.Node, source []byte, filePath, module string) (*File, error) {
	file := &File{
		Path:     filePath,
		Module:   module,
		ParsedAt: time.Now(),
	}

	e.walk(root, source, file, "")

	return file, nil
}

// walk visits every node once; classScope carries the enclosing class
// chain ("Outer.Inner") so method definitions get proper qualified names.
func (e *PythonExtractor) walk(node *sitter.Node, source []byte, file *File, classScope string) {
	nodeKind := node.Kind()

	switch nodeKind {
	case "import_statement":
		e.extractImport(node, source, file)
	case "import_from_statement":
		e.extractFromImport(node, source, file)
	case "function_definition":
		e.extractFunction(node, source, file, classScope)
	case "class_definition":
		e.extractClass(node, source, file, classScope)
		if name := e.getChildText(node, "identifier", source); name != "" {
			scope := name
			if classScope != "" {
				scope = classScope + "." + name
			}
			for i := uint(0); i < node.ChildCount(); i++ {
				e.walk(node.Child(i), source, file, scope)
			}
			return
		}
	case "assignment", "augmented_assignment":
		if left := node.ChildByFieldName("left"); left != nil {
			e.collectLocalSymbols(left, source, file)
		}
	case "for_statement":
		if left := node.ChildByFieldName("left"); left != nil {
			e.collectLocalSymbols(left, source, file)
		}
	case "call":
		e.extractCall(node, source, file)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		e.walk(node.Child(i), source, file, classScope)
	}
}

func (e *PythonExtractor) extractCall(node *sitter.Node, source []byte, file *File) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return
	}

	call := CallSite{
		Keywords: make(map[string]struct{}),
		Location: e.getLocation(node, file.Path),
	}

	switch fn.Kind() {
	case "identifier":
		call.Callee = Callee{Kind: CalleeName, Name: e.getText(fn, source)}
	case "attribute":
		obj := fn.ChildByFieldName("object")
		attr := fn.ChildByFieldName("attribute")
		if obj == nil || attr == nil {
			return
		}
		call.Callee = Callee{
			Kind:       CalleeAttribute,
			Name:       e.getText(attr, source),
			Base:       e.getText(obj, source),
			BaseIsName: obj.Kind() == "identifier",
		}
	default:
		// Subscripts, lambdas, chained calls: kept so downstream
		// stages can count them, but never matched.
		call.Callee = Callee{Kind: CalleeUnsupported}
	}

	if args := node.ChildByFieldName("arguments"); args != nil {
		for i := uint(0); i < args.ChildCount(); i++ {
			child := args.Child(i)
			switch child.Kind() {
			case "keyword_argument":
				if name := child.ChildByFieldName("name"); name != nil {
					call.Keywords[e.getText(name, source)] = struct{}{}
				}
			case "(", ")", ",", "comment":
				// punctuation
			case "list_splat", "dictionary_splat":
				// *args / **kwargs at the call site carry no usable
				// position or name
			default:
				call.Positional++
			}
		}
	}

	file.Calls = append(file.Calls, call)
}

func (e *PythonExtractor) extractImport(node *sitter.Node, source []byte, file *File) {
	imp := ImportSite{
		Aliases:  make(map[string]string),
		Location: e.getLocation(node, file.Path),
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)

		switch child.Kind() {
		case "dotted_name", "identifier":
			imp.Paths = append(imp.Paths, e.getText(child, source))
		case "aliased_import":
			name := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			if name == nil {
				continue
			}
			path := e.getText(name, source)
			imp.Paths = append(imp.Paths, path)
			if alias != nil {
				imp.Aliases[path] = e.getText(alias, source)
				file.LocalSymbols = append(file.LocalSymbols, e.getText(alias, source))
			}
		}
	}

	if len(imp.Paths) > 0 {
		file.Imports = append(file.Imports, imp)
	}
}

func (e *PythonExtractor) extractFromImport(node *sitter.Node, source []byte, file *File) {
	imp := FromImportSite{Location: e.getLocation(node, file.Path)}

	if mod := node.ChildByFieldName("module_name"); mod != nil {
		if mod.Kind() == "relative_import" {
			imp.IsRelative = true
			imp.Module = strings.TrimLeft(e.getText(mod, source), ".")
		} else {
			imp.Module = e.getText(mod, source)
		}
	}

	seenImport := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "import":
			seenImport = true
		case "wildcard_import":
			// "from m import *" names nothing checkable
		case "dotted_name", "identifier":
			if seenImport {
				imp.Names = append(imp.Names, e.getText(child, source))
			}
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				imp.Names = append(imp.Names, e.getText(name, source))
			}
			if alias := child.ChildByFieldName("alias"); alias != nil {
				file.LocalSymbols = append(file.LocalSymbols, e.getText(alias, source))
			}
		}
	}

	file.FromImports = append(file.FromImports, imp)
}

func (e *PythonExtractor) extractFunction(node *sitter.Node, source []byte, file *File, classScope string) {
	name := e.getChildText(node, "identifier", source)
	if name == "" {
		return
	}

	if params := node.ChildByFieldName("parameters"); params != nil {
		e.collectLocalSymbols(params, source, file)
	}

	kind := KindFunction
	qualified := file.Module + "." + name
	if classScope != "" {
		kind = KindMethod
		qualified = file.Module + "." + classScope + "." + name
	}

	file.Definitions = append(file.Definitions, Definition{
		Name:          name,
		QualifiedName: qualified,
		Kind:          kind,
		Location:      e.getLocation(node, file.Path),
	})
}

func (e *PythonExtractor) extractClass(node *sitter.Node, source []byte, file *File, classScope string) {
	name := e.getChildText(node, "identifier", source)
	if name == "" {
		return
	}

	qualified := file.Module + "." + name
	if classScope != "" {
		qualified = file.Module + "." + classScope + "." + name
	}

	file.Definitions = append(file.Definitions, Definition{
		Name:          name,
		QualifiedName: qualified,
		Kind:          KindClass,
		Location:      e.getLocation(node, file.Path),
	})
}

func (e *PythonExtractor) collectLocalSymbols(node *sitter.Node, source []byte, file *File) {
	if node.Kind() == "identifier" {
		file.LocalSymbols = append(file.LocalSymbols, e.getText(node, source))
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		e.collectLocalSymbols(node.Child(i), source, file)
	}
}

func (e *PythonExtractor) getChildText(node *sitter.Node, kind string, source []byte) string {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == kind {
			return e.getText(child, source)
		}
	}
	return ""
}

func (e *PythonExtractor) getLocation(node *sitter.Node, filePath string) Location {
	return Location{
		File:   filePath,
		Line:   int(node.StartPosition().Row) + 1,
		Column: int(node.StartPosition().Column) + 1,
	}
}

func (e *PythonExtractor) getText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}
