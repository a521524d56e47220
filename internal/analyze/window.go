package analyze

import (
	"strings"

	"github.com/samueljklee/codescout/internal/store"
)

const (
	DefaultWindowLines   = 40
	DefaultWindowOverlap = 8
)

// FallbackChunks windows a file that could not be parsed structurally, so
// it stays searchable by content.
func FallbackChunks(path, lang string, content []byte) *ParseResult {
	return NewWindowChunker(DefaultWindowLines, DefaultWindowOverlap).Chunk(path, lang, content)
}

// WindowChunker is the fallback for files no analyzer claims: fixed-size
// overlapping line windows, no symbols, no edges.
type WindowChunker struct {
	windowLines int
	overlap     int
}

func NewWindowChunker(windowLines, overlap int) *WindowChunker {
	if windowLines <= 0 {
		windowLines = DefaultWindowLines
	}
	if overlap < 0 || overlap >= windowLines {
		overlap = DefaultWindowOverlap
	}
	return &WindowChunker{windowLines: windowLines, overlap: overlap}
}

func (w *WindowChunker) Chunk(filePath, lang string, content []byte) *ParseResult {
	lines := splitLines(content)
	result := &ParseResult{}

	step := w.windowLines - w.overlap
	for start := 1; start <= len(lines); start += step {
		end := start + w.windowLines - 1
		if end > len(lines) {
			end = len(lines)
		}
		text := extractLines(lines, start, end)
		if len(strings.TrimSpace(text)) == 0 {
			if end == len(lines) {
				break
			}
			continue
		}
		result.Chunks = append(result.Chunks, store.Chunk{
			ChunkID:   chunkID(filePath, start, end),
			FilePath:  filePath,
			Lang:      lang,
			Kind:      "window",
			StartLine: start,
			EndLine:   end,
			Text:      text,
		})
		if end == len(lines) {
			break
		}
	}

	return result
}
