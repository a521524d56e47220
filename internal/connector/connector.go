// Package connector integrates external knowledge sources behind one
// search interface. Connectors are queried alongside the code indexes;
// a connector that is down degrades the response, never fails it.
package connector

import (
	"context"
	"fmt"
	"time"
)

// Kind classifies what a connector searches.
type Kind string

const (
	KindTickets Kind = "tickets"
	KindChat    Kind = "chat"
	KindReviews Kind = "reviews"
)

// Match is one external result, normalized across sources.
type Match struct {
	Connector string
	Kind      Kind
	Ref       string // source-native identifier (issue number, message ID)
	Title     string
	Snippet   string
	URL       string
	Author    string
	UpdatedAt time.Time
	Score     float64
}

// Constraints bound a connector search.
type Constraints struct {
	Limit int
	Since time.Time
	// Channels names the chat channels or tracker projects to search.
	// Empty means everything the connector covers.
	Channels []string
}

// Connector searches one external source.
type Connector interface {
	Name() string
	Kind() Kind
	Search(ctx context.Context, query string, c Constraints) ([]Match, error)
}

// UnavailableError reports a connector that could not be reached. The
// search carries on without it and the response says which sources are
// missing.
type UnavailableError struct {
	Connector string
	Err       error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("connector %s unavailable: %v", e.Connector, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
