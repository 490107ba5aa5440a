// Package store defines the document store the lifecycle engine runs on: a
// hierarchical, path-addressed store with upsert, partial update, delete,
// filtered/ordered queries and push-based snapshot subscriptions.
package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a referenced document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidPath is returned for malformed document or collection paths.
	ErrInvalidPath = errors.New("invalid document path")
	// ErrInvalidQuery is returned for queries the store cannot route.
	ErrInvalidQuery = errors.New("invalid query")
)

// Sentinel marks a field value that the store resolves at write time.
type Sentinel string

const (
	// FieldDelete removes the field from the document.
	FieldDelete Sentinel = "__field_delete__"
	// ServerTimestamp is replaced by the store clock at commit time.
	ServerTimestamp Sentinel = "__server_timestamp__"
)

// Fields is the field set of a document.
type Fields map[string]any

// Bool returns the boolean value of key, false when absent.
func (f Fields) Bool(key string) bool {
	v, _ := f[key].(bool)
	return v
}

// String returns the string value of key, "" when absent.
func (f Fields) String(key string) string {
	v, _ := f[key].(string)
	return v
}

// Time returns the timestamp stored under key. Stores that round-trip through
// JSON hand timestamps back as RFC 3339 strings, so both forms are accepted.
func (f Fields) Time(key string) *time.Time {
	switch v := f[key].(type) {
	case time.Time:
		t := v.UTC()
		return &t
	case *time.Time:
		if v == nil {
			return nil
		}
		t := v.UTC()
		return &t
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil
		}
		t = t.UTC()
		return &t
	default:
		return nil
	}
}

// Has reports whether key is present.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Clone returns a shallow copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Document is a stored document and its location.
type Document struct {
	Path   string
	ID     string
	Fields Fields
}

// Filter is an exact-match equality predicate.
type Filter struct {
	Field string
	Value any
}

// Order is a single-field ordering. Documents lacking the field are excluded
// from ordered results.
type Order struct {
	Field      string
	Descending bool
}

// Query selects documents either from one collection (Collection is a full
// collection path) or from every collection sharing a name (Group) below Root.
type Query struct {
	Collection string
	Group      string
	Root       string
	Filters    []Filter
	OrderBy    Order
}

// Where appends an equality filter.
func (q Query) Where(field string, value any) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Field: field, Value: value})
	return q
}

// OrderByDesc sets a descending order on field.
func (q Query) OrderByDesc(field string) Query {
	q.OrderBy = Order{Field: field, Descending: true}
	return q
}

// Topic returns the change-feed topic the query listens on.
func (q Query) Topic() (string, error) {
	switch {
	case q.Collection != "":
		return Root(q.Collection), nil
	case q.Group != "" && q.Root != "":
		return q.Root, nil
	default:
		return "", ErrInvalidQuery
	}
}

// Matches reports whether the document at path with fields satisfies q.
func (q Query) Matches(path string, fields Fields) bool {
	if q.Collection != "" {
		if Parent(path) != q.Collection {
			return false
		}
	} else {
		if Group(path) != q.Group {
			return false
		}
		if q.Root != "" && !strings.HasPrefix(path, q.Root+"/") {
			return false
		}
	}
	for _, f := range q.Filters {
		if !valuesEqual(fields[f.Field], f.Value) {
			return false
		}
	}
	if q.OrderBy.Field != "" && !fields.Has(q.OrderBy.Field) {
		return false
	}
	return true
}

func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case float64:
		switch bv := b.(type) {
		case float64:
			return av == bv
		case int:
			return av == float64(bv)
		}
		return false
	default:
		return a == b
	}
}

// Store is the document store contract.
type Store interface {
	// NewID allocates a document identifier.
	NewID() string
	Get(ctx context.Context, path string) (Document, error)
	// Set writes the full field set, creating or replacing the document.
	Set(ctx context.Context, path string, fields Fields) error
	// Update merges fields into an existing document; ErrNotFound otherwise.
	Update(ctx context.Context, path string, fields Fields) error
	// Delete removes the document. Deleting an absent document is a no-op.
	Delete(ctx context.Context, path string) error
	Query(ctx context.Context, q Query) ([]Document, error)
	// Subscribe pushes the full result set of q now and after every change.
	Subscribe(ctx context.Context, q Query) (*Subscription, error)
}

// WriteOp enumerates batched write kinds.
type WriteOp int

const (
	OpSet WriteOp = iota + 1
	OpUpdate
	OpDelete
)

// Write is one operation of an atomic batch.
type Write struct {
	Op     WriteOp
	Path   string
	Fields Fields
}

// Batcher is implemented by stores able to commit several writes atomically.
type Batcher interface {
	CommitBatch(ctx context.Context, writes []Write) error
}

// ChangeFeed carries change notifications between writers and subscribers.
type ChangeFeed interface {
	Publish(ctx context.Context, topic string) error
	Listen(ctx context.Context, topic string) (<-chan struct{}, func(), error)
}

// ResolveFields replaces sentinels for a full write: FieldDelete drops the
// key, ServerTimestamp becomes now.
func ResolveFields(fields Fields, now time.Time) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		s, _ := v.(Sentinel)
		switch s {
		case FieldDelete:
			continue
		case ServerTimestamp:
			out[k] = now.UTC()
		default:
			out[k] = v
		}
	}
	return out
}

// SplitPatch separates an update into the fields to merge and the keys to remove.
func SplitPatch(fields Fields, now time.Time) (Fields, []string) {
	merge := make(Fields, len(fields))
	var removed []string
	for k, v := range fields {
		s, _ := v.(Sentinel)
		switch s {
		case FieldDelete:
			removed = append(removed, k)
		case ServerTimestamp:
			merge[k] = now.UTC()
		default:
			merge[k] = v
		}
	}
	return merge, removed
}
