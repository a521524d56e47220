package analyze

import (
	"regexp"
	"strings"

	"github.com/samueljklee/codescout/internal/store"
)

// PythonAnalyzer extracts symbols and edges from Python sources with
// line-oriented patterns. Good enough for indexing; a full grammar is an
// external capability this engine deliberately does not own.
type PythonAnalyzer struct{}

var (
	pyDefPattern    = regexp.MustCompile(`^def\s+(\w+)\s*\(`)
	pyClassPattern  = regexp.MustCompile(`^class\s+(\w+)\s*(?:\(([^)]*)\))?\s*:`)
	pyImportPattern = regexp.MustCompile(`^\s*import\s+([\w.,\s]+)`)
	pyFromPattern   = regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import\s+`)
	pyCallPattern   = regexp.MustCompile(`(?:^|[^.\w])(\w+)\s*\(`)
)

var pyKeywords = map[string]bool{
	"def": true, "class": true, "if": true, "elif": true, "while": true,
	"for": true, "with": true, "return": true, "yield": true, "lambda": true,
	"assert": true, "except": true, "raise": true, "not": true, "and": true,
	"or": true, "in": true, "is": true, "del": true,
}

func (a *PythonAnalyzer) Language() Language { return LangPython }

func (a *PythonAnalyzer) Parse(filePath string, content []byte) (*ParseResult, error) {
	lines := splitLines(content)
	result := &ParseResult{}

	modName := moduleName(filePath)
	modID := symbolID(filePath, modName, 1)
	result.Symbols = append(result.Symbols, store.Symbol{
		SymbolID:  modID,
		FilePath:  filePath,
		Lang:      string(LangPython),
		Name:      modName,
		Kind:      "module",
		Signature: "module " + modName,
		StartLine: 1,
		EndLine:   len(lines),
	})

	// First pass: top-level defs and classes with their line ranges.
	type span struct {
		id        string
		name      string
		kind      string
		bases     []string
		startLine int
		endLine   int
	}
	var spans []*span

	closePrev := func(endLine int) {
		if len(spans) > 0 && spans[len(spans)-1].endLine == 0 {
			spans[len(spans)-1].endLine = endLine
		}
	}

	for i, line := range lines {
		lineNum := i + 1
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent != 0 {
			continue
		}

		if m := pyDefPattern.FindStringSubmatch(line); m != nil {
			closePrev(lineNum - 1)
			spans = append(spans, &span{
				id:        symbolID(filePath, m[1], lineNum),
				name:      m[1],
				kind:      "function",
				startLine: lineNum,
			})
		} else if m := pyClassPattern.FindStringSubmatch(line); m != nil {
			closePrev(lineNum - 1)
			s := &span{
				id:        symbolID(filePath, m[1], lineNum),
				name:      m[1],
				kind:      "class",
				startLine: lineNum,
			}
			for _, base := range strings.Split(m[2], ",") {
				base = strings.TrimSpace(base)
				if base != "" && base != "object" {
					s.bases = append(s.bases, base)
				}
			}
			spans = append(spans, s)
		} else if strings.TrimSpace(line) != "" && !strings.HasPrefix(strings.TrimSpace(line), "#") {
			// Non-definition top-level statement ends the previous block.
			closePrev(lineNum - 1)
		}
	}
	closePrev(len(lines))

	for _, s := range spans {
		result.Symbols = append(result.Symbols, store.Symbol{
			SymbolID:  s.id,
			FilePath:  filePath,
			Lang:      string(LangPython),
			Name:      s.name,
			Kind:      s.kind,
			Signature: extractLines(lines, s.startLine, s.startLine),
			StartLine: s.startLine,
			EndLine:   s.endLine,
		})
		result.Chunks = append(result.Chunks, store.Chunk{
			ChunkID:    chunkID(filePath, s.startLine, s.endLine),
			FilePath:   filePath,
			Lang:       string(LangPython),
			SymbolID:   s.id,
			SymbolName: s.name,
			Kind:       s.kind,
			StartLine:  s.startLine,
			EndLine:    s.endLine,
			Text:       extractLines(lines, s.startLine, s.endLine),
		})
		for _, base := range s.bases {
			result.Edges = append(result.Edges, store.Edge{
				FilePath:   filePath,
				SourceID:   s.id,
				TargetName: base,
				Type:       store.EdgeInherit,
				Line:       s.startLine,
			})
		}
	}

	// enclosing returns the symbol a line belongs to, defaulting to the module.
	enclosing := func(lineNum int) string {
		for _, s := range spans {
			if lineNum >= s.startLine && lineNum <= s.endLine {
				return s.id
			}
		}
		return modID
	}

	// Second pass: imports and calls.
	for i, line := range lines {
		lineNum := i + 1

		if m := pyFromPattern.FindStringSubmatch(line); m != nil {
			result.Edges = append(result.Edges, store.Edge{
				FilePath:   filePath,
				SourceID:   modID,
				TargetName: rootModule(m[1]),
				Type:       store.EdgeImport,
				Line:       lineNum,
			})
			continue
		}
		if m := pyImportPattern.FindStringSubmatch(line); m != nil {
			for _, mod := range strings.Split(m[1], ",") {
				mod = strings.TrimSpace(mod)
				if mod == "" {
					continue
				}
				result.Edges = append(result.Edges, store.Edge{
					FilePath:   filePath,
					SourceID:   modID,
					TargetName: rootModule(mod),
					Type:       store.EdgeImport,
					Line:       lineNum,
				})
			}
			continue
		}

		sourceID := enclosing(lineNum)
		seen := make(map[string]bool)
		for _, m := range pyCallPattern.FindAllStringSubmatch(line, -1) {
			name := m[1]
			if pyKeywords[name] || seen[name] {
				continue
			}
			// Skip the definition line itself.
			if pyDefPattern.MatchString(strings.TrimLeft(line, " \t")) &&
				strings.Contains(line, "def "+name) {
				continue
			}
			seen[name] = true
			result.Edges = append(result.Edges, store.Edge{
				FilePath:   filePath,
				SourceID:   sourceID,
				TargetName: name,
				Type:       store.EdgeCall,
				Line:       lineNum,
			})
		}
	}

	// No structural symbols beyond the module: fall back to windows so the
	// semantic index still gets content.
	if len(spans) == 0 {
		fallback := NewWindowChunker(DefaultWindowLines, DefaultWindowOverlap)
		result.Chunks = fallback.Chunk(filePath, string(LangPython), content).Chunks
	}

	return result, nil
}

// rootModule reduces a dotted module path to its first element, the name
// import edges resolve against.
func rootModule(mod string) string {
	if i := strings.Index(mod, "."); i > 0 {
		return mod[:i]
	}
	return mod
}
