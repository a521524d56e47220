package analyze

import (
	"go/ast"
	"go/parser"
	"go/token"
	"path"
	"strings"

	"github.com/samueljklee/codescout/internal/store"
)

// GoAnalyzer parses Go files with the standard library AST parser.
type GoAnalyzer struct{}

func (a *GoAnalyzer) Language() Language { return LangGo }

// Parse extracts top-level declarations, import edges, call edges from
// function bodies, embedded-type inherits edges, and type-reference edges
// from signatures. Declarations appear in source order, so re-parsing
// unchanged content yields identical results.
func (a *GoAnalyzer) Parse(filePath string, content []byte) (*ParseResult, error) {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, filePath, content, parser.ParseComments)
	if err != nil {
		return nil, &ParseFailure{Path: filePath, Err: err}
	}

	lines := splitLines(content)
	result := &ParseResult{}

	// Module symbol anchors import edges.
	modName := moduleName(filePath)
	modID := symbolID(filePath, modName, 1)
	result.Symbols = append(result.Symbols, store.Symbol{
		SymbolID:  modID,
		FilePath:  filePath,
		Lang:      string(LangGo),
		Name:      modName,
		Kind:      "module",
		Signature: "package " + node.Name.Name,
		StartLine: 1,
		EndLine:   len(lines),
	})

	for _, imp := range node.Imports {
		importPath := strings.Trim(imp.Path.Value, `"`)
		target := path.Base(importPath)
		if imp.Name != nil && imp.Name.Name != "_" && imp.Name.Name != "." {
			target = imp.Name.Name
		}
		result.Edges = append(result.Edges, store.Edge{
			FilePath:   filePath,
			SourceID:   modID,
			TargetName: target,
			Type:       store.EdgeImport,
			Line:       fset.Position(imp.Pos()).Line,
		})
	}

	for _, decl := range node.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			a.collectFunc(fset, filePath, lines, d, result)
		case *ast.GenDecl:
			a.collectGen(fset, filePath, lines, d, result)
		}
	}

	return result, nil
}

func (a *GoAnalyzer) collectFunc(fset *token.FileSet, filePath string, lines []string, d *ast.FuncDecl, result *ParseResult) {
	startPos := fset.Position(d.Pos())
	endPos := fset.Position(d.End())

	funcName := d.Name.Name
	if d.Recv != nil && len(d.Recv.List) > 0 {
		funcName = "(" + formatType(d.Recv.List[0].Type) + ")." + d.Name.Name
	}

	docstring := ""
	if d.Doc != nil {
		docstring = strings.TrimSpace(d.Doc.Text())
	}

	id := symbolID(filePath, funcName, startPos.Line)
	result.Symbols = append(result.Symbols, store.Symbol{
		SymbolID:  id,
		FilePath:  filePath,
		Lang:      string(LangGo),
		Name:      funcName,
		Kind:      "function",
		Signature: extractLines(lines, startPos.Line, startPos.Line),
		StartLine: startPos.Line,
		EndLine:   endPos.Line,
		Docstring: docstring,
	})

	result.Chunks = append(result.Chunks, store.Chunk{
		ChunkID:    chunkID(filePath, startPos.Line, endPos.Line),
		FilePath:   filePath,
		Lang:       string(LangGo),
		SymbolID:   id,
		SymbolName: funcName,
		Kind:       "function",
		StartLine:  startPos.Line,
		EndLine:    endPos.Line,
		Text:       extractLines(lines, startPos.Line, endPos.Line),
	})

	// Type references from the signature.
	seen := make(map[string]bool)
	for _, name := range signatureTypes(d.Type) {
		if seen[name] {
			continue
		}
		seen[name] = true
		result.Edges = append(result.Edges, store.Edge{
			FilePath:   filePath,
			SourceID:   id,
			TargetName: name,
			Type:       store.EdgeTypeRef,
			Line:       startPos.Line,
		})
	}

	// Call edges from the function body.
	if d.Body != nil {
		seenCalls := make(map[string]bool)
		ast.Inspect(d.Body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			name := calleeName(call.Fun)
			if name == "" || seenCalls[name] {
				return true
			}
			seenCalls[name] = true
			result.Edges = append(result.Edges, store.Edge{
				FilePath:   filePath,
				SourceID:   id,
				TargetName: name,
				Type:       store.EdgeCall,
				Line:       fset.Position(call.Pos()).Line,
			})
			return true
		})
	}
}

func (a *GoAnalyzer) collectGen(fset *token.FileSet, filePath string, lines []string, d *ast.GenDecl, result *ParseResult) {
	if d.Tok != token.TYPE && d.Tok != token.VAR && d.Tok != token.CONST {
		return
	}

	for _, spec := range d.Specs {
		switch ts := spec.(type) {
		case *ast.TypeSpec:
			startPos := fset.Position(ts.Pos())
			endPos := fset.Position(d.End())

			docstring := ""
			if d.Doc != nil {
				docstring = strings.TrimSpace(d.Doc.Text())
			}

			id := symbolID(filePath, ts.Name.Name, startPos.Line)
			result.Symbols = append(result.Symbols, store.Symbol{
				SymbolID:  id,
				FilePath:  filePath,
				Lang:      string(LangGo),
				Name:      ts.Name.Name,
				Kind:      "type",
				Signature: extractLines(lines, startPos.Line, startPos.Line),
				StartLine: startPos.Line,
				EndLine:   endPos.Line,
				Docstring: docstring,
			})

			result.Chunks = append(result.Chunks, store.Chunk{
				ChunkID:    chunkID(filePath, startPos.Line, endPos.Line),
				FilePath:   filePath,
				Lang:       string(LangGo),
				SymbolID:   id,
				SymbolName: ts.Name.Name,
				Kind:       "type",
				StartLine:  startPos.Line,
				EndLine:    endPos.Line,
				Text:       extractLines(lines, startPos.Line, endPos.Line),
			})

			// Embedded fields become inherits edges.
			for _, base := range embeddedTypes(ts.Type) {
				result.Edges = append(result.Edges, store.Edge{
					FilePath:   filePath,
					SourceID:   id,
					TargetName: base,
					Type:       store.EdgeInherit,
					Line:       startPos.Line,
				})
			}

		case *ast.ValueSpec:
			for _, name := range ts.Names {
				if name.Name == "_" {
					continue
				}
				startPos := fset.Position(name.Pos())
				result.Symbols = append(result.Symbols, store.Symbol{
					SymbolID:  symbolID(filePath, name.Name, startPos.Line),
					FilePath:  filePath,
					Lang:      string(LangGo),
					Name:      name.Name,
					Kind:      "variable",
					Signature: extractLines(lines, startPos.Line, startPos.Line),
					StartLine: startPos.Line,
					EndLine:   startPos.Line,
				})
			}
		}
	}
}

// calleeName extracts the called identifier from a call expression.
// For selector calls (x.Foo()) the selected name is used, matching the
// by-name resolution the graph index performs.
func calleeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return t.Sel.Name
	case *ast.IndexExpr:
		return calleeName(t.X)
	}
	return ""
}

// signatureTypes collects named types referenced in a function signature.
func signatureTypes(ft *ast.FuncType) []string {
	var names []string
	collect := func(fl *ast.FieldList) {
		if fl == nil {
			return
		}
		for _, f := range fl.List {
			if name := namedType(f.Type); name != "" {
				names = append(names, name)
			}
		}
	}
	collect(ft.Params)
	collect(ft.Results)
	return names
}

// namedType unwraps pointers, slices, and selectors down to a type name.
// Builtins are skipped.
func namedType(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		if isBuiltinType(t.Name) {
			return ""
		}
		return t.Name
	case *ast.StarExpr:
		return namedType(t.X)
	case *ast.ArrayType:
		return namedType(t.Elt)
	case *ast.SelectorExpr:
		return t.Sel.Name
	case *ast.MapType:
		return namedType(t.Value)
	}
	return ""
}

// embeddedTypes returns the names of embedded fields in a struct or
// embedded interfaces in an interface type.
func embeddedTypes(expr ast.Expr) []string {
	var bases []string
	fields := func(fl *ast.FieldList) {
		if fl == nil {
			return
		}
		for _, f := range fl.List {
			if len(f.Names) != 0 {
				continue
			}
			if name := namedType(f.Type); name != "" {
				bases = append(bases, name)
			}
		}
	}
	switch t := expr.(type) {
	case *ast.StructType:
		fields(t.Fields)
	case *ast.InterfaceType:
		fields(t.Methods)
	}
	return bases
}

func formatType(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + formatType(t.X)
	case *ast.SelectorExpr:
		return formatType(t.X) + "." + t.Sel.Name
	case *ast.IndexExpr:
		return formatType(t.X)
	default:
		return "?"
	}
}

func isBuiltinType(name string) bool {
	switch name {
	case "string", "bool", "byte", "rune", "error", "any",
		"int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64", "uintptr",
		"float32", "float64", "complex64", "complex128":
		return true
	}
	return false
}
