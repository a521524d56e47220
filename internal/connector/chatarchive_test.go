package connector

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExport(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestChatArchiveSearch(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "eng.jsonl",
		`{"id":"m1","channel":"eng","author":"dana","text":"the retry backoff in the uploader is broken","ts":"2024-03-01T10:00:00Z","permalink":"https://chat/m1"}
{"id":"m2","channel":"eng","author":"sam","text":"deploy went fine","ts":"2024-03-02T10:00:00Z"}
`)

	c, err := NewChatArchiveConnector("test", dir)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, 2, c.MessageCount())
	assert.Equal(t, "chat:test", c.Name())
	assert.Equal(t, KindChat, c.Kind())

	matches, err := c.Search(context.Background(), "retry backoff", Constraints{Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	top := matches[0]
	assert.Equal(t, "m1", top.Ref)
	assert.Equal(t, "#eng", top.Title)
	assert.Equal(t, "dana", top.Author)
	assert.Equal(t, "https://chat/m1", top.URL)
	assert.Contains(t, top.Snippet, "retry backoff")
}

func TestChatArchiveSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "bad.jsonl",
		`{"id":"ok","channel":"x","author":"a","text":"valid message content","ts":"2024-01-01T00:00:00Z"}
not json at all
{"id":"ok2","channel":"x","author":"b","text":"another valid message","ts":"2024-01-02T00:00:00Z"}
`)

	c, err := NewChatArchiveConnector("test", dir)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, 2, c.MessageCount())
}

func TestChatArchiveSinceConstraint(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "hist.jsonl",
		`{"id":"old","channel":"c","author":"a","text":"flaky test discussion","ts":"2020-01-01T00:00:00Z"}
{"id":"new","channel":"c","author":"a","text":"flaky test discussion again","ts":"2024-01-01T00:00:00Z"}
`)

	c, err := NewChatArchiveConnector("test", dir)
	require.NoError(t, err)
	defer c.Close()

	since := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	matches, err := c.Search(context.Background(), "flaky test", Constraints{Limit: 10, Since: since})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new", matches[0].Ref)
}

func TestChatArchiveChannelConstraint(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "all.jsonl",
		`{"id":"b1","channel":"backend","author":"dana","text":"deploy pipeline is stuck","ts":"2024-03-01T10:00:00Z"}
{"id":"f1","channel":"frontend","author":"sam","text":"deploy pipeline looks green","ts":"2024-03-01T11:00:00Z"}
`)

	c, err := NewChatArchiveConnector("test", dir)
	require.NoError(t, err)
	defer c.Close()

	matches, err := c.Search(context.Background(), "deploy pipeline", Constraints{Limit: 10, Channels: []string{"backend"}})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b1", matches[0].Ref)

	// A leading # is how people write channel names; tolerate it.
	matches, err = c.Search(context.Background(), "deploy pipeline", Constraints{Limit: 10, Channels: []string{"#frontend"}})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "f1", matches[0].Ref)

	matches, err = c.Search(context.Background(), "deploy pipeline", Constraints{Limit: 10, Channels: []string{"backend", "frontend"}})
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestChatArchiveEmptyDir(t *testing.T) {
	c, err := NewChatArchiveConnector("empty", t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	matches, err := c.Search(context.Background(), "anything at all", Constraints{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestUnavailableErrorWrapping(t *testing.T) {
	inner := os.ErrDeadlineExceeded
	err := &UnavailableError{Connector: "github:o/r:tickets", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "github:o/r:tickets")
}
