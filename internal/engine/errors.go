package engine

import (
	"fmt"
	"time"
)

// QueryTimeoutError reports a query that hit its deadline before every
// source answered. Whatever arrived in time is still returned; the
// diagnostics name the sources that were abandoned.
type QueryTimeoutError struct {
	QueryID  string
	Deadline time.Duration
	Pending  []string
}

func (e *QueryTimeoutError) Error() string {
	return fmt.Sprintf("query %s exceeded %v with %d sources pending", e.QueryID, e.Deadline, len(e.Pending))
}

// ValidationError reports a request that failed schema validation.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid request: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid request: %d problems, first: %s", len(e.Problems), e.Problems[0])
}
