package connector

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
)

const githubTimeout = 30 * time.Second

// GitHubConnector searches a repository's issues or pull requests through
// the GitHub search API. One instance serves one repo in one mode: issues
// act as the ticket tracker, pull requests as the review system.
type GitHubConnector struct {
	owner   string
	repo    string
	kind    Kind
	client  *gh.Client
	limiter *rateLimiter
}

// NewGitHubConnector builds a connector for owner/repo. kind selects what
// it searches: KindTickets for issues, KindReviews for pull requests.
func NewGitHubConnector(ctx context.Context, owner, repo, token string, kind Kind) *GitHubConnector {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = githubTimeout

	return &GitHubConnector{
		owner:   owner,
		repo:    repo,
		kind:    kind,
		client:  gh.NewClient(tc),
		limiter: newRateLimiter(),
	}
}

func (c *GitHubConnector) Name() string {
	return fmt.Sprintf("github:%s/%s:%s", c.owner, c.repo, c.kind)
}

func (c *GitHubConnector) Kind() Kind { return c.kind }

func (c *GitHubConnector) Search(ctx context.Context, query string, constraints Constraints) ([]Match, error) {
	// Each connector covers exactly one repository; a project constraint
	// that names other repos means this one has nothing to contribute.
	if !projectInScope(c.owner, c.repo, constraints.Channels) {
		return nil, nil
	}
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}

	q := fmt.Sprintf("%s repo:%s/%s", query, c.owner, c.repo)
	if c.kind == KindReviews {
		q += " is:pr"
	} else {
		q += " is:issue"
	}
	if !constraints.Since.IsZero() {
		q += " updated:>=" + constraints.Since.Format("2006-01-02")
	}

	perPage := constraints.Limit
	if perPage <= 0 || perPage > 50 {
		perPage = 50
	}
	opts := &gh.SearchOptions{
		Sort:        "updated",
		Order:       "desc",
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	result, resp, err := c.client.Search.Issues(ctx, q, opts)
	if resp != nil && resp.Response != nil {
		c.limiter.update(resp.Response)
	}
	if err != nil {
		return nil, &UnavailableError{Connector: c.Name(), Err: err}
	}

	matches := make([]Match, 0, len(result.Issues))
	for i, issue := range result.Issues {
		if constraints.Limit > 0 && i >= constraints.Limit {
			break
		}
		matches = append(matches, Match{
			Connector: c.Name(),
			Kind:      c.kind,
			Ref:       fmt.Sprintf("#%d", issue.GetNumber()),
			Title:     issue.GetTitle(),
			Snippet:   truncateSnippet(issue.GetBody(), 240),
			URL:       issue.GetHTMLURL(),
			Author:    issue.GetUser().GetLogin(),
			UpdatedAt: issue.GetUpdatedAt().Time,
			// The API returns relevance order without scores; decay by
			// rank so downstream normalization has something to work with.
			Score: 1.0 / float64(i+1),
		})
	}
	return matches, nil
}

// projectInScope reports whether the constraint names this repository,
// by bare name or owner/name. An empty constraint allows every project.
func projectInScope(owner, repo string, projects []string) bool {
	if len(projects) == 0 {
		return true
	}
	full := owner + "/" + repo
	for _, p := range projects {
		if p == repo || p == full {
			return true
		}
	}
	return false
}

func truncateSnippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Back up so the cut lands on a rune boundary.
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}
