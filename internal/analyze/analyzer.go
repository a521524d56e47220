package analyze

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samueljklee/codescout/internal/store"
)

// Language identifies a supported source language.
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangTypeScript Language = "ts"
	LangJavaScript Language = "js"
	LangMarkdown   Language = "markdown"
	LangText       Language = "text"
)

// ParseResult holds everything one file contributes to the local indexes:
// its symbols, its outgoing dependency edges, and its embeddable chunks.
type ParseResult struct {
	Symbols []store.Symbol
	Edges   []store.Edge
	Chunks  []store.Chunk
}

// ParseFailure reports a file that could not be structurally parsed. The
// file is excluded from the structural and graph indexes but stays in the
// literal and semantic indexes via the window fallback.
type ParseFailure struct {
	Path string
	Err  error
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("parse failure in %s: %v", e.Path, e.Err)
}

func (e *ParseFailure) Unwrap() error { return e.Err }

// Analyzer extracts symbols, edges, and chunks from one file.
// Parsing is deterministic: the same content always yields the same result.
type Analyzer interface {
	Language() Language
	Parse(path string, content []byte) (*ParseResult, error)
}

// Registry dispatches files to a fixed set of language analyzers by
// extension. The set is closed: analyzers are registered at construction,
// never discovered at runtime.
type Registry struct {
	byLang   map[Language]Analyzer
	byExt    map[string]Language
	fallback *WindowChunker
}

// NewRegistry builds the registry with every built-in analyzer.
func NewRegistry() *Registry {
	r := &Registry{
		byLang: make(map[Language]Analyzer),
		byExt: map[string]Language{
			".go":  LangGo,
			".py":  LangPython,
			".ts":  LangTypeScript,
			".tsx": LangTypeScript,
			".js":  LangJavaScript,
			".jsx": LangJavaScript,
			".md":  LangMarkdown,
			".txt": LangText,
			".rst": LangText,
		},
		fallback: NewWindowChunker(DefaultWindowLines, DefaultWindowOverlap),
	}

	for _, a := range []Analyzer{
		&GoAnalyzer{},
		&PythonAnalyzer{},
		NewScriptAnalyzer(LangJavaScript),
		NewScriptAnalyzer(LangTypeScript),
		&MarkdownAnalyzer{},
	} {
		r.byLang[a.Language()] = a
	}
	return r
}

// Detect returns the language for a path, or "" for files we don't index.
func (r *Registry) Detect(path string) Language {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := r.byExt[ext]; ok {
		return lang
	}
	return ""
}

// Parse analyzes a file with the analyzer for its language. Languages with
// no structural analyzer (plain text) fall back to fixed-size windows with
// overlap, contributing chunks only.
func (r *Registry) Parse(path string, content []byte) (*ParseResult, error) {
	lang := r.Detect(path)
	if a, ok := r.byLang[lang]; ok {
		return a.Parse(path, content)
	}
	return r.fallback.Chunk(path, string(lang), content), nil
}

// symbolID builds a deterministic symbol identifier.
func symbolID(path, name string, line int) string {
	return fmt.Sprintf("%s:%s:%d", path, name, line)
}

// chunkID builds a deterministic content-addressed chunk identifier.
func chunkID(path string, startLine, endLine int) string {
	key := fmt.Sprintf("%s:%d:%d", path, startLine, endLine)
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", hash)
}

// moduleName derives the module symbol name for a file: the base name
// without extension. Import edges target this name.
func moduleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func extractLines(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

func splitLines(content []byte) []string {
	return strings.Split(string(content), "\n")
}
