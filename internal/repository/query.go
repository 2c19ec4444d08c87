package repository

import (
	"errors"
	"fmt"
	"log/slog"
)

// Fields a Query can match on.
const (
	StatusField    QueryField = "status"
	EventTypeField QueryField = "event_type"
)

// ErrInvalidPageToken is returned by ApplyPagination for a token that does not decode.
var ErrInvalidPageToken = errors.New("invalid page token")

// Query selects one page of resources. Values are matched for equality.
type Query struct {
	Values map[QueryField]string

	Limit int

	// Paginator continues after the last record of the previous page.
	Paginator *Paginator

	// Ascending returns the oldest records first. The default is newest first.
	Ascending bool

	// Lock claims the returned rows until the surrounding transaction ends,
	// skipping rows another transaction holds.
	Lock bool
}

type QueryField string

func NewQuery() *Query {
	return &Query{
		Values: map[QueryField]string{},
	}
}

// With adds an equality match on field.
func (q *Query) With(field QueryField, val string) *Query {
	q.Values[field] = val
	return q
}

// ApplyPagination sets the page size, capped at the maximum and defaulted
// when not positive, and decodes the page token when one is given.
func (q *Query) ApplyPagination(limit int32, token string) error {
	q.Limit = DefaultPaginationLimit
	if limit > 0 {
		q.Limit = min(maxPaginationLimit, int(limit))
	}

	if token == "" {
		return nil
	}

	paginator, err := DecodePageToken(token)
	if err != nil {
		slog.Warn("Failed to decode page token", slog.Any("err", err), slog.String("token", token))
		return fmt.Errorf("%w: %w", ErrInvalidPageToken, err)
	}
	q.Paginator = paginator
	return nil
}
