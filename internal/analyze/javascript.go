package analyze

import (
	"regexp"
	"strings"

	"github.com/samueljklee/codescout/internal/store"
)

// ScriptAnalyzer covers JavaScript and TypeScript with shared patterns; the
// two grammars are close enough that one pass serves both.
type ScriptAnalyzer struct {
	lang Language
}

func NewScriptAnalyzer(lang Language) *ScriptAnalyzer {
	return &ScriptAnalyzer{lang: lang}
}

var (
	jsFuncPattern   = regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(\w+)\s*\(`)
	jsArrowPattern  = regexp.MustCompile(`^(?:export\s+)?(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s+)?(?:\([^)]*\)|\w+)\s*=>`)
	jsClassPattern  = regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+(\w+)(?:\s+extends\s+([\w.]+))?`)
	jsImportPattern = regexp.MustCompile(`^\s*import\s+(?:[\w{}*,\s]+\s+from\s+)?['"]([^'"]+)['"]`)
	jsRequireRe     = regexp.MustCompile(`require\s*\(\s*['"]([^'"]+)['"]\s*\)`)
	jsCallPattern   = regexp.MustCompile(`(?:^|[^.\w])(\w+)\s*\(`)
	tsIfacePattern  = regexp.MustCompile(`^(?:export\s+)?interface\s+(\w+)(?:\s+extends\s+([\w,\s.]+))?`)
)

var jsKeywords = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "switch": true,
	"catch": true, "function": true, "return": true, "typeof": true,
	"new": true, "await": true, "async": true, "constructor": true,
	"super": true, "require": true, "import": true, "export": true,
}

func (a *ScriptAnalyzer) Language() Language { return a.lang }

func (a *ScriptAnalyzer) Parse(filePath string, content []byte) (*ParseResult, error) {
	lines := splitLines(content)
	result := &ParseResult{}

	modName := moduleName(filePath)
	modID := symbolID(filePath, modName, 1)
	result.Symbols = append(result.Symbols, store.Symbol{
		SymbolID:  modID,
		FilePath:  filePath,
		Lang:      string(a.lang),
		Name:      modName,
		Kind:      "module",
		Signature: "module " + modName,
		StartLine: 1,
		EndLine:   len(lines),
	})

	type span struct {
		id        string
		startLine int
		endLine   int
	}
	var spans []*span

	addSymbol := func(name, kind, extends string, lineNum int) *span {
		id := symbolID(filePath, name, lineNum)
		end := blockEnd(lines, lineNum)
		result.Symbols = append(result.Symbols, store.Symbol{
			SymbolID:  id,
			FilePath:  filePath,
			Lang:      string(a.lang),
			Name:      name,
			Kind:      kind,
			Signature: strings.TrimSpace(lines[lineNum-1]),
			StartLine: lineNum,
			EndLine:   end,
		})
		result.Chunks = append(result.Chunks, store.Chunk{
			ChunkID:    chunkID(filePath, lineNum, end),
			FilePath:   filePath,
			Lang:       string(a.lang),
			SymbolID:   id,
			SymbolName: name,
			Kind:       kind,
			StartLine:  lineNum,
			EndLine:    end,
			Text:       extractLines(lines, lineNum, end),
		})
		if extends != "" {
			for _, base := range strings.Split(extends, ",") {
				base = strings.TrimSpace(base)
				if base == "" {
					continue
				}
				result.Edges = append(result.Edges, store.Edge{
					FilePath:   filePath,
					SourceID:   id,
					TargetName: base,
					Type:       store.EdgeInherit,
					Line:       lineNum,
				})
			}
		}
		s := &span{id: id, startLine: lineNum, endLine: end}
		spans = append(spans, s)
		return s
	}

	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed != line {
			continue // only top-level declarations become symbols
		}

		if m := jsFuncPattern.FindStringSubmatch(line); m != nil {
			addSymbol(m[1], "function", "", lineNum)
		} else if m := jsArrowPattern.FindStringSubmatch(line); m != nil {
			addSymbol(m[1], "function", "", lineNum)
		} else if m := jsClassPattern.FindStringSubmatch(line); m != nil {
			addSymbol(m[1], "class", m[2], lineNum)
		} else if a.lang == LangTypeScript {
			if m := tsIfacePattern.FindStringSubmatch(line); m != nil {
				addSymbol(m[1], "interface", m[2], lineNum)
			}
		}
	}

	enclosing := func(lineNum int) string {
		for _, s := range spans {
			if lineNum >= s.startLine && lineNum <= s.endLine {
				return s.id
			}
		}
		return modID
	}

	for i, line := range lines {
		lineNum := i + 1

		if m := jsImportPattern.FindStringSubmatch(line); m != nil {
			result.Edges = append(result.Edges, store.Edge{
				FilePath:   filePath,
				SourceID:   modID,
				TargetName: importedModule(m[1]),
				Type:       store.EdgeImport,
				Line:       lineNum,
			})
			continue
		}
		for _, m := range jsRequireRe.FindAllStringSubmatch(line, -1) {
			result.Edges = append(result.Edges, store.Edge{
				FilePath:   filePath,
				SourceID:   modID,
				TargetName: importedModule(m[1]),
				Type:       store.EdgeImport,
				Line:       lineNum,
			})
		}

		sourceID := enclosing(lineNum)
		seen := make(map[string]bool)
		for _, m := range jsCallPattern.FindAllStringSubmatch(line, -1) {
			name := m[1]
			if jsKeywords[name] || seen[name] {
				continue
			}
			if jsFuncPattern.MatchString(line) && strings.Contains(line, "function "+name) {
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

	if len(spans) == 0 {
		fallback := NewWindowChunker(DefaultWindowLines, DefaultWindowOverlap)
		result.Chunks = fallback.Chunk(filePath, string(a.lang), content).Chunks
	}

	return result, nil
}

// blockEnd finds the closing brace matching the first opening brace on or
// after startLine. Declarations without braces span one line.
func blockEnd(lines []string, startLine int) int {
	depth := 0
	opened := false
	for i := startLine - 1; i < len(lines); i++ {
		for _, ch := range lines[i] {
			switch ch {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
				if opened && depth == 0 {
					return i + 1
				}
			}
		}
		if !opened && i >= startLine {
			return startLine
		}
	}
	return len(lines)
}

// importedModule normalizes a module specifier to the name it resolves
// against: relative paths keep their basename, packages their first segment.
func importedModule(spec string) string {
	if strings.HasPrefix(spec, ".") {
		base := spec[strings.LastIndex(spec, "/")+1:]
		return strings.TrimSuffix(strings.TrimSuffix(base, ".ts"), ".js")
	}
	if strings.HasPrefix(spec, "@") {
		return spec
	}
	if i := strings.Index(spec, "/"); i > 0 {
		return spec[:i]
	}
	return spec
}
