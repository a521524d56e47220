package connector

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestProjectInScope(t *testing.T) {
	assert.True(t, projectInScope("acme", "api", nil))
	assert.True(t, projectInScope("acme", "api", []string{"api"}))
	assert.True(t, projectInScope("acme", "api", []string{"acme/api"}))
	assert.True(t, projectInScope("acme", "api", []string{"web", "api"}))
	assert.False(t, projectInScope("acme", "api", []string{"web"}))
	assert.False(t, projectInScope("acme", "api", []string{"other/api"}))
}

func TestTruncateSnippetKeepsRunesWhole(t *testing.T) {
	short := "fits as is"
	assert.Equal(t, short, truncateSnippet(short, 240))

	long := "issue " + strings.Repeat("résumé", 60)
	got := truncateSnippet(long, 240)
	assert.True(t, utf8.ValidString(got), "truncated snippet must stay valid UTF-8: %q", got)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Less(t, len(got), len(long))
}
