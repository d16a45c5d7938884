package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"docflow/backend/internal/document"
)

const documentColumns = `collection, id, data, created_at, updated_at`

func scanDocument(row pgx.Row) (*document.Document, error) {
	var d document.Document
	if err := row.Scan(&d.Collection, &d.ID, &d.Data, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDocuments(rows pgx.Rows) ([]*document.Document, error) {
	defer rows.Close()
	var docs []*document.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// filterSQL compiles f into a WHERE fragment, appending its parameters to args.
// Payload fields are compared as text through the #>> path operator.
func filterSQL(f document.Filter, args *[]any) string {
	var parts []string
	for _, sub := range f.And {
		parts = append(parts, "("+filterSQL(sub, args)+")")
	}
	if len(f.Or) > 0 {
		ors := make([]string, 0, len(f.Or))
		for _, sub := range f.Or {
			ors = append(ors, "("+filterSQL(sub, args)+")")
		}
		parts = append(parts, "("+strings.Join(ors, " OR ")+")")
	}
	if f.Field != "" {
		col := "id"
		if f.Field != "id" {
			*args = append(*args, strings.Split(f.Field, "."))
			col = fmt.Sprintf("data #>> $%d", len(*args))
		}
		if f.Op == document.OpIn {
			values := make([]string, len(f.Values))
			for i, v := range f.Values {
				values[i] = document.ScalarText(v)
			}
			*args = append(*args, values)
			parts = append(parts, fmt.Sprintf("%s = ANY($%d)", col, len(*args)))
		} else {
			*args = append(*args, document.ScalarText(f.Value))
			parts = append(parts, fmt.Sprintf("%s = $%d", col, len(*args)))
		}
	}
	if len(parts) == 0 {
		return "TRUE"
	}
	return strings.Join(parts, " AND ")
}

// Find returns the documents of a collection matching q.
func (s *PostgresStore) Find(ctx context.Context, collection string, q document.Query) (*document.FindResult, error) {
	args := []any{collection}
	where := "collection = $1 AND " + filterSQL(q.Filter, &args)

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE `+where, args...).Scan(&total); err != nil {
		return nil, wrap("count documents", err)
	}

	query := `SELECT ` + documentColumns + ` FROM documents WHERE ` + where + ` ORDER BY created_at, id`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("find documents", err)
	}
	docs, err := scanDocuments(rows)
	if err != nil {
		return nil, wrap("scan documents", err)
	}
	return &document.FindResult{Docs: docs, TotalDocs: total}, nil
}

// FindByID returns one document.
func (s *PostgresStore) FindByID(ctx context.Context, collection, id string) (*document.Document, error) {
	d, err := scanDocument(s.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE collection = $1 AND id = $2`, collection, id))
	if err != nil {
		if isNoRows(err) {
			return nil, document.ErrNotFound
		}
		return nil, wrap("find document", err)
	}
	return d, nil
}

// Create stores a new document.
func (s *PostgresStore) Create(ctx context.Context, collection string, data map[string]any) (*document.Document, error) {
	id, data := documentID(data)
	d, err := scanDocument(s.db.QueryRow(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
		 RETURNING `+documentColumns, collection, id, data))
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrConflict
		}
		return nil, wrap("create document", err)
	}
	return d, nil
}

// Update merges data into an existing document.
func (s *PostgresStore) Update(ctx context.Context, collection, id string, data map[string]any) (*document.Document, error) {
	d, err := scanDocument(s.db.QueryRow(ctx,
		`UPDATE documents SET data = data || $3::jsonb, updated_at = NOW()
		 WHERE collection = $1 AND id = $2
		 RETURNING `+documentColumns, collection, id, withoutID(data)))
	if err != nil {
		if isNoRows(err) {
			return nil, document.ErrNotFound
		}
		return nil, wrap("update document", err)
	}
	return d, nil
}

// UpdateWhere merges data into every document matching f.
func (s *PostgresStore) UpdateWhere(ctx context.Context, collection string, f document.Filter, data map[string]any) ([]*document.Document, error) {
	args := []any{collection, withoutID(data)}
	rows, err := s.db.Query(ctx,
		`UPDATE documents SET data = data || $2::jsonb, updated_at = NOW()
		 WHERE collection = $1 AND `+filterSQL(f, &args)+`
		 RETURNING `+documentColumns, args...)
	if err != nil {
		return nil, wrap("update documents", err)
	}
	docs, err := scanDocuments(rows)
	if err != nil {
		return nil, wrap("update documents", err)
	}
	return docs, nil
}

// Delete removes one document.
func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return wrap("delete document", err)
	}
	if tag.RowsAffected() == 0 {
		return document.ErrNotFound
	}
	return nil
}

// DeleteWhere removes every document matching f.
func (s *PostgresStore) DeleteWhere(ctx context.Context, collection string, f document.Filter) (int, error) {
	args := []any{collection}
	tag, err := s.db.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND `+filterSQL(f, &args), args...)
	if err != nil {
		return 0, wrap("delete documents", err)
	}
	return int(tag.RowsAffected()), nil
}

// documentID takes the id from data or generates one, and returns a copy of
// data carrying that id.
func documentID(data map[string]any) (string, map[string]any) {
	id, _ := data["id"].(string)
	if id == "" {
		id = uuid.New().String()
	}
	out := make(map[string]any, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out["id"] = id
	return id, out
}

// withoutID drops the id key so updates cannot rename a document.
func withoutID(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if k != "id" {
			out[k] = v
		}
	}
	return out
}
