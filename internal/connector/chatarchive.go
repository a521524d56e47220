package connector

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// ChatMessage is one line of a JSONL chat export.
type ChatMessage struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"ts"`
	Permalink string    `json:"permalink,omitempty"`
}

// ChatArchiveConnector searches exported chat history through a full-text
// index. Exports are JSONL files, one message per line; the whole archive
// is indexed in memory at startup.
type ChatArchiveConnector struct {
	name  string
	index bleve.Index
	count int
}

// NewChatArchiveConnector indexes every *.jsonl file under dir. Malformed
// lines are skipped with a log line rather than failing the whole archive.
func NewChatArchiveConnector(name, dir string) (*ChatArchiveConnector, error) {
	index, err := bleve.NewMemOnly(buildChatMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create chat index: %w", err)
	}

	c := &ChatArchiveConnector{name: name, index: index}

	files, err := filepath.Glob(filepath.Join(dir, "*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan archive dir: %w", err)
	}
	for _, f := range files {
		if err := c.loadExport(f); err != nil {
			return nil, err
		}
	}
	log.Printf("💬 Chat archive %s: indexed %d messages from %d exports", name, c.count, len(files))
	return c, nil
}

func (c *ChatArchiveConnector) loadExport(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open export %s: %w", path, err)
	}
	defer f.Close()

	batch := c.index.NewBatch()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		var msg ChatMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			log.Printf("⚠️  Skipping malformed message %s:%d: %v", path, lineNo, err)
			continue
		}
		if msg.ID == "" {
			msg.ID = fmt.Sprintf("%s:%d", filepath.Base(path), lineNo)
		}
		doc := map[string]interface{}{
			"channel":   msg.Channel,
			"author":    msg.Author,
			"text":      msg.Text,
			"ts":        msg.Timestamp.Format(time.RFC3339),
			"permalink": msg.Permalink,
		}
		if err := batch.Index(msg.ID, doc); err != nil {
			return fmt.Errorf("failed to batch message %s: %w", msg.ID, err)
		}
		c.count++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read export %s: %w", path, err)
	}
	return c.index.Batch(batch)
}

func buildChatMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	channelField := bleve.NewTextFieldMapping()
	channelField.Analyzer = keyword.Name
	channelField.Store = true
	docMapping.AddFieldMappingsAt("channel", channelField)

	authorField := bleve.NewTextFieldMapping()
	authorField.Analyzer = keyword.Name
	authorField.Store = true
	docMapping.AddFieldMappingsAt("author", authorField)

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name
	textField.Store = true
	docMapping.AddFieldMappingsAt("text", textField)

	tsField := bleve.NewTextFieldMapping()
	tsField.Analyzer = keyword.Name
	tsField.Store = true
	docMapping.AddFieldMappingsAt("ts", tsField)

	linkField := bleve.NewTextFieldMapping()
	linkField.Analyzer = keyword.Name
	linkField.Store = true
	linkField.Index = false
	docMapping.AddFieldMappingsAt("permalink", linkField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func (c *ChatArchiveConnector) Name() string { return "chat:" + c.name }
func (c *ChatArchiveConnector) Kind() Kind   { return KindChat }

func (c *ChatArchiveConnector) Search(ctx context.Context, text string, constraints Constraints) ([]Match, error) {
	var q query.Query = bleve.NewMatchQuery(text)
	if len(constraints.Channels) > 0 {
		// Channel names are indexed verbatim, so an exact term query per
		// channel, any of which may match.
		channels := bleve.NewDisjunctionQuery()
		for _, ch := range constraints.Channels {
			tq := bleve.NewTermQuery(strings.TrimPrefix(ch, "#"))
			tq.SetField("channel")
			channels.AddQuery(tq)
		}
		q = bleve.NewConjunctionQuery(q, channels)
	}
	req := bleve.NewSearchRequest(q)
	req.Size = constraints.Limit
	if req.Size <= 0 {
		req.Size = 20
	}
	req.Fields = []string{"channel", "author", "text", "ts", "permalink"}

	result, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, &UnavailableError{Connector: c.Name(), Err: err}
	}

	matches := make([]Match, 0, len(result.Hits))
	for _, hit := range result.Hits {
		m := Match{
			Connector: c.Name(),
			Kind:      KindChat,
			Ref:       hit.ID,
			Score:     hit.Score,
		}
		if channel, ok := hit.Fields["channel"].(string); ok {
			m.Title = "#" + channel
		}
		if author, ok := hit.Fields["author"].(string); ok {
			m.Author = author
		}
		if text, ok := hit.Fields["text"].(string); ok {
			m.Snippet = truncateSnippet(text, 240)
		}
		if link, ok := hit.Fields["permalink"].(string); ok {
			m.URL = link
		}
		if ts, ok := hit.Fields["ts"].(string); ok {
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				m.UpdatedAt = t
			}
		}
		if !constraints.Since.IsZero() && m.UpdatedAt.Before(constraints.Since) {
			continue
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// MessageCount reports how many messages are indexed.
func (c *ChatArchiveConnector) MessageCount() int { return c.count }

func (c *ChatArchiveConnector) Close() error { return c.index.Close() }
