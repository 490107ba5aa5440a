// Package postgres implements the document store on a single jsonb table.
// Change notifications go through an injected change feed (Redis in production).
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/notevault-api/internal/store"
)

// timeLayout is fixed width so that lexical jsonb ordering is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Schema creates the documents table and its indexes.
const Schema = `CREATE TABLE IF NOT EXISTS documents (
	path TEXT PRIMARY KEY,
	parent TEXT NOT NULL,
	collection_group TEXT NOT NULL,
	root TEXT NOT NULL,
	data JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_parent_idx ON documents (parent);
CREATE INDEX IF NOT EXISTS documents_group_root_idx ON documents (collection_group, root);
CREATE INDEX IF NOT EXISTS documents_data_idx ON documents USING GIN (data jsonb_path_ops);`

type docRow struct {
	Path string `db:"path"`
	Data []byte `db:"data"`
}

// Store persists documents in PostgreSQL.
type Store struct {
	db     *sqlx.DB
	feed   store.ChangeFeed
	clock  func() time.Time
	logger *zap.Logger
}

// New constructs the store. feed may be shared by several API instances.
func New(db *sqlx.DB, feed store.ChangeFeed, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, feed: feed, clock: time.Now, logger: logger}
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate documents: %w", err)
	}
	return nil
}

func (s *Store) NewID() string { return uuid.NewString() }

func (s *Store) Get(ctx context.Context, path string) (store.Document, error) {
	if err := store.ValidateDocPath(path); err != nil {
		return store.Document{}, err
	}
	const query = `SELECT path, data FROM documents WHERE path = $1`
	var row docRow
	if err := s.db.GetContext(ctx, &row, query, path); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Document{}, fmt.Errorf("get %s: %w", path, store.ErrNotFound)
		}
		return store.Document{}, fmt.Errorf("get document %s: %w", path, err)
	}
	return decodeRow(row)
}

func (s *Store) Set(ctx context.Context, path string, fields store.Fields) error {
	if err := store.ValidateDocPath(path); err != nil {
		return err
	}
	if err := s.set(ctx, s.db, path, fields, s.clock().UTC()); err != nil {
		return err
	}
	s.publish(ctx, store.Root(path))
	return nil
}

func (s *Store) Update(ctx context.Context, path string, fields store.Fields) error {
	if err := store.ValidateDocPath(path); err != nil {
		return err
	}
	if err := s.update(ctx, s.db, path, fields, s.clock().UTC()); err != nil {
		return err
	}
	s.publish(ctx, store.Root(path))
	return nil
}

// Delete removes the row; an absent row is not an error.
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := store.ValidateDocPath(path); err != nil {
		return err
	}
	affected, err := s.delete(ctx, s.db, path)
	if err != nil {
		return err
	}
	if affected > 0 {
		s.publish(ctx, store.Root(path))
	}
	return nil
}

func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Document, error) {
	query, args, err := buildQuery(q)
	if err != nil {
		return nil, err
	}
	var rows []docRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	docs := make([]store.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Store) Subscribe(ctx context.Context, q store.Query) (*store.Subscription, error) {
	topic, err := q.Topic()
	if err != nil {
		return nil, err
	}
	if _, _, err := buildQuery(q); err != nil {
		return nil, err
	}
	return store.Watch(ctx, s.feed, topic, func(ctx context.Context) ([]store.Document, error) {
		return s.Query(ctx, q)
	})
}

// CommitBatch applies all writes in one transaction.
func (s *Store) CommitBatch(ctx context.Context, writes []store.Write) (err error) {
	for _, w := range writes {
		if err := store.ValidateDocPath(w.Path); err != nil {
			return err
		}
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := s.clock().UTC()
	topics := make(map[string]struct{})
	for _, w := range writes {
		switch w.Op {
		case store.OpSet:
			err = s.set(ctx, tx, w.Path, w.Fields, now)
		case store.OpUpdate:
			err = s.update(ctx, tx, w.Path, w.Fields, now)
		case store.OpDelete:
			_, err = s.delete(ctx, tx, w.Path)
		default:
			err = fmt.Errorf("batch: unknown op %d", w.Op)
		}
		if err != nil {
			return err
		}
		topics[store.Root(w.Path)] = struct{}{}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	for topic := range topics {
		s.publish(ctx, topic)
	}
	return nil
}

func (s *Store) set(ctx context.Context, exec sqlx.ExecerContext, path string, fields store.Fields, now time.Time) error {
	payload, err := encodeFields(store.ResolveFields(fields, now))
	if err != nil {
		return err
	}
	const query = `INSERT INTO documents (path, parent, collection_group, root, data, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
	if _, err := exec.ExecContext(ctx, query, path, store.Parent(path), store.Group(path), store.Root(path), payload, now); err != nil {
		return fmt.Errorf("set document %s: %w", path, err)
	}
	return nil
}

func (s *Store) update(ctx context.Context, exec sqlx.ExecerContext, path string, fields store.Fields, now time.Time) error {
	merge, removed := store.SplitPatch(fields, now)
	payload, err := encodeFields(merge)
	if err != nil {
		return err
	}
	if removed == nil {
		removed = []string{}
	}
	const query = `UPDATE documents SET data = (data || $2::jsonb) - $3::text[], updated_at = $4 WHERE path = $1`
	res, err := exec.ExecContext(ctx, query, path, payload, pq.Array(removed), now)
	if err != nil {
		return fmt.Errorf("update document %s: %w", path, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check update rows %s: %w", path, err)
	}
	if affected == 0 {
		return fmt.Errorf("update %s: %w", path, store.ErrNotFound)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, exec sqlx.ExecerContext, path string) (int64, error) {
	const query = `DELETE FROM documents WHERE path = $1`
	res, err := exec.ExecContext(ctx, query, path)
	if err != nil {
		return 0, fmt.Errorf("delete document %s: %w", path, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check delete rows %s: %w", path, err)
	}
	return affected, nil
}

func (s *Store) publish(ctx context.Context, topic string) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, topic); err != nil {
		s.logger.Warn("change feed publish failed", zap.String("topic", topic), zap.Error(err))
	}
}

func buildQuery(q store.Query) (string, []interface{}, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT path, data FROM documents`)
	args := make([]interface{}, 0, 4)
	conditions := make([]string, 0, 4)

	switch {
	case q.Collection != "":
		args = append(args, q.Collection)
		conditions = append(conditions, fmt.Sprintf("parent = $%d", len(args)))
	case q.Group != "":
		args = append(args, q.Group)
		conditions = append(conditions, fmt.Sprintf("collection_group = $%d", len(args)))
		if q.Root != "" {
			args = append(args, q.Root)
			conditions = append(conditions, fmt.Sprintf("root = $%d", len(args)))
		}
	default:
		return "", nil, store.ErrInvalidQuery
	}

	if len(q.Filters) > 0 {
		match := make(store.Fields, len(q.Filters))
		for _, f := range q.Filters {
			match[f.Field] = f.Value
		}
		payload, err := encodeFields(match)
		if err != nil {
			return "", nil, err
		}
		args = append(args, payload)
		conditions = append(conditions, fmt.Sprintf("data @> $%d::jsonb", len(args)))
	}

	order := "path"
	if q.OrderBy.Field != "" {
		args = append(args, q.OrderBy.Field)
		conditions = append(conditions, fmt.Sprintf("data->>$%d IS NOT NULL", len(args)))
		order = fmt.Sprintf("data->>$%d", len(args))
		if q.OrderBy.Descending {
			order += " DESC"
		}
		order += ", path"
	}

	builder.WriteString(" WHERE ")
	builder.WriteString(strings.Join(conditions, " AND "))
	builder.WriteString(" ORDER BY ")
	builder.WriteString(order)
	return builder.String(), args, nil
}

func encodeFields(fields store.Fields) ([]byte, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch tv := v.(type) {
		case time.Time:
			out[k] = tv.UTC().Format(timeLayout)
		case *time.Time:
			if tv == nil {
				out[k] = nil
			} else {
				out[k] = tv.UTC().Format(timeLayout)
			}
		default:
			out[k] = v
		}
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return payload, nil
}

func decodeRow(row docRow) (store.Document, error) {
	fields := store.Fields{}
	if err := json.Unmarshal(row.Data, &fields); err != nil {
		return store.Document{}, fmt.Errorf("decode document %s: %w", row.Path, err)
	}
	return store.Document{Path: row.Path, ID: store.Base(row.Path), Fields: fields}, nil
}
