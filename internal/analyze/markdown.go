package analyze

import (
	"regexp"
	"strings"

	"github.com/samueljklee/codescout/internal/store"
)

// MarkdownAnalyzer splits documents at headers so each section becomes one
// chunk. Headers double as lightweight symbols for structural lookup.
type MarkdownAnalyzer struct{}

var mdHeaderPattern = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

func (a *MarkdownAnalyzer) Language() Language { return LangMarkdown }

func (a *MarkdownAnalyzer) Parse(filePath string, content []byte) (*ParseResult, error) {
	lines := splitLines(content)
	result := &ParseResult{}

	type section struct {
		title     string
		startLine int
		endLine   int
	}
	var sections []*section

	inFence := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if m := mdHeaderPattern.FindStringSubmatch(line); m != nil {
			if len(sections) > 0 {
				sections[len(sections)-1].endLine = i
			}
			sections = append(sections, &section{
				title:     strings.TrimSpace(m[2]),
				startLine: i + 1,
			})
		}
	}
	if len(sections) > 0 {
		sections[len(sections)-1].endLine = len(lines)
	}

	if len(sections) == 0 {
		fallback := NewWindowChunker(DefaultWindowLines, DefaultWindowOverlap)
		result.Chunks = fallback.Chunk(filePath, string(LangMarkdown), content).Chunks
		return result, nil
	}

	for _, s := range sections {
		id := symbolID(filePath, s.title, s.startLine)
		result.Symbols = append(result.Symbols, store.Symbol{
			SymbolID:  id,
			FilePath:  filePath,
			Lang:      string(LangMarkdown),
			Name:      s.title,
			Kind:      "section",
			Signature: s.title,
			StartLine: s.startLine,
			EndLine:   s.endLine,
		})
		result.Chunks = append(result.Chunks, store.Chunk{
			ChunkID:    chunkID(filePath, s.startLine, s.endLine),
			FilePath:   filePath,
			Lang:       string(LangMarkdown),
			SymbolID:   id,
			SymbolName: s.title,
			Kind:       "section",
			StartLine:  s.startLine,
			EndLine:    s.endLine,
			Text:       extractLines(lines, s.startLine, s.endLine),
		})
	}

	return result, nil
}
