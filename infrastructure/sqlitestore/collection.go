package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/reglet-dev/cligate/domain/entities"
	domainerrors "github.com/reglet-dev/cligate/domain/errors"
	"github.com/reglet-dev/cligate/domain/ports"
	"github.com/reglet-dev/cligate/internal/docquery"
)

// Collection is one named collection of a Store.
type Collection struct {
	db    *sql.DB
	name  string
	newID func() any
}

var _ ports.Collection = (*Collection)(nil)

type row struct {
	seq int64
	doc entities.Document
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (c *Collection) fail(op string, err error) error {
	return &domainerrors.StoreError{Collection: c.name, Op: op, Err: err}
}

// scalarID returns the identifier a query pins with plain equality, which
// lets the load use the unique key instead of a collection scan.
func scalarID(query entities.Query) (any, bool) {
	id, ok := query[entities.FieldID]
	if !ok || id == nil {
		return nil, false
	}
	if m, ok := id.(map[string]any); ok {
		if eq, ok := m["$eq"]; ok && len(m) == 1 {
			return eq, eq != nil
		}
		return nil, false
	}
	return id, true
}

func (c *Collection) load(ctx context.Context, q querier, query entities.Query) ([]row, error) {
	var rows *sql.Rows
	var err error
	if id, ok := scalarID(query); ok {
		rows, err = q.QueryContext(ctx,
			`SELECT seq, body FROM documents WHERE collection = ? AND doc_id = ? ORDER BY seq`,
			c.name, docKey(id))
	} else {
		rows, err = q.QueryContext(ctx,
			`SELECT seq, body FROM documents WHERE collection = ? ORDER BY seq`, c.name)
	}
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var out []row
	for rows.Next() {
		var r row
		var body string
		if err := rows.Scan(&r.seq, &body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if r.doc, err = decode(body); err != nil {
			return nil, err
		}
		ok, err := docquery.Match(r.doc, query)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, rows.Err()
}

func docsOf(rows []row) []entities.Document {
	docs := make([]entities.Document, len(rows))
	for i, r := range rows {
		docs[i] = r.doc
	}
	return docs
}

// Find implements ports.Collection.
func (c *Collection) Find(ctx context.Context, query entities.Query, opts *entities.FindOptions) ([]entities.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := c.load(ctx, c.db, query)
	if err != nil {
		return nil, c.fail("find", err)
	}
	docs := docsOf(rows)
	if opts != nil {
		docquery.Sort(docs, opts.Sort)
		docs = docquery.Page(docs, opts.Offset, opts.Limit)
	}
	return docs, nil
}

// FindOne implements ports.Collection.
func (c *Collection) FindOne(ctx context.Context, query entities.Query, opts *entities.FindOptions) (entities.Document, error) {
	o := entities.FindOptions{Limit: 1}
	if opts != nil {
		o.Sort = opts.Sort
		o.Offset = opts.Offset
	}
	docs, err := c.Find(ctx, query, &o)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

// FindEx implements ports.Collection.
func (c *Collection) FindEx(ctx context.Context, query entities.Query, opts *entities.FindOptions) ([]entities.Document, error) {
	if opts == nil {
		opts = &entities.FindOptions{}
	}
	return c.Find(ctx, query, opts)
}

// Count implements ports.Collection.
func (c *Collection) Count(ctx context.Context, query entities.Query) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(query) == 0 {
		var n int
		err := c.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM documents WHERE collection = ?`, c.name).Scan(&n)
		if err != nil {
			return 0, c.fail("count", err)
		}
		return n, nil
	}
	rows, err := c.load(ctx, c.db, query)
	if err != nil {
		return 0, c.fail("count", err)
	}
	return len(rows), nil
}

// By implements ports.Collection.
func (c *Collection) By(ctx context.Context, id any) (entities.Document, error) {
	return c.FindOne(ctx, entities.Query{entities.FieldID: id}, nil)
}

func (c *Collection) insert(ctx context.Context, q querier, d entities.Document) (entities.Document, error) {
	doc := entities.CloneDocument(d)
	if doc == nil {
		doc = entities.Document{}
	}
	if id, ok := doc[entities.FieldID]; !ok || id == nil {
		doc[entities.FieldID] = c.newID()
	}
	body, err := encode(doc)
	if err != nil {
		return nil, err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO documents (collection, doc_id, body) VALUES (?, ?, ?)`,
		c.name, docKey(doc[entities.FieldID]), body)
	if err != nil {
		if isConstraintViolation(err) {
			return nil, fmt.Errorf("duplicate %s %v", entities.FieldID, doc[entities.FieldID])
		}
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return doc, nil
}

// Insert implements ports.Collection. All documents are stored in one
// transaction.
func (c *Collection) Insert(ctx context.Context, docs ...entities.Document) ([]entities.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var stored []entities.Document
	err := c.inTx(ctx, func(tx *sql.Tx) error {
		for _, d := range docs {
			doc, err := c.insert(ctx, tx, d)
			if err != nil {
				return err
			}
			stored = append(stored, doc)
		}
		return nil
	})
	if err != nil {
		return nil, c.fail("insert", err)
	}
	return stored, nil
}

func (c *Collection) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (c *Collection) replace(ctx context.Context, q querier, seq int64, doc entities.Document) error {
	body, err := encode(doc)
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, `UPDATE documents SET body = ? WHERE seq = ?`, body, seq); err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

// Update implements ports.Collection.
func (c *Collection) Update(ctx context.Context, query entities.Query, update entities.UpdateDoc, params *entities.UpdateParams) (entities.UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return entities.UpdateResult{}, err
	}
	res := entities.UpdateResult{OK: 1}
	err := c.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := c.load(ctx, tx, query)
		if err != nil {
			return err
		}
		for _, r := range rows {
			next, changed, err := docquery.Apply(r.doc, update)
			if err != nil {
				return err
			}
			res.N++
			if !changed {
				continue
			}
			if err := c.replace(ctx, tx, r.seq, next); err != nil {
				return err
			}
			res.NModified++
		}
		if res.N == 0 && params != nil && params.Upsert {
			doc, _, err := docquery.Apply(docquery.SeedFromQuery(query), update)
			if err != nil {
				return err
			}
			if _, err := c.insert(ctx, tx, doc); err != nil {
				return err
			}
			res.N = 1
		}
		return nil
	})
	if err != nil {
		return entities.UpdateResult{}, c.fail("update", err)
	}
	return res, nil
}

// RemoveWhere implements ports.Collection.
func (c *Collection) RemoveWhere(ctx context.Context, query entities.Query) (entities.RemoveResult, error) {
	if err := ctx.Err(); err != nil {
		return entities.RemoveResult{}, err
	}
	res := entities.RemoveResult{OK: 1}
	err := c.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := c.load(ctx, tx, query)
		if err != nil {
			return err
		}
		for _, r := range rows {
			if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE seq = ?`, r.seq); err != nil {
				return fmt.Errorf("delete document: %w", err)
			}
			res.N++
		}
		return nil
	})
	if err != nil {
		return entities.RemoveResult{}, c.fail("removeWhere", err)
	}
	return res, nil
}

// Clear implements ports.Collection.
func (c *Collection) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, c.name); err != nil {
		return c.fail("clear", err)
	}
	return nil
}

// EnsureIndex implements ports.Collection. The field is recorded; matching
// happens on decoded documents.
func (c *Collection) EnsureIndex(ctx context.Context, field string) error {
	if field == "" {
		return c.fail("ensureIndex", fmt.Errorf("empty field"))
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO document_indexes (collection, field) VALUES (?, ?)`, c.name, field)
	if err != nil {
		return c.fail("ensureIndex", err)
	}
	return nil
}

// Bulk implements ports.Collection. The batch is one transaction.
func (c *Collection) Bulk(ctx context.Context, ops []entities.BulkOp) (entities.BulkResult, error) {
	if err := ctx.Err(); err != nil {
		return entities.BulkResult{}, err
	}
	var res entities.BulkResult
	err := c.inTx(ctx, func(tx *sql.Tx) error {
		for _, op := range ops {
			switch op.Op {
			case "insert":
				if _, err := c.insert(ctx, tx, op.Data); err != nil {
					return err
				}
				res.Inserted++
			case "update":
				rows, err := c.load(ctx, tx, entities.Query{entities.FieldID: op.ID})
				if err != nil {
					return err
				}
				for _, r := range rows {
					next, _, err := docquery.Apply(r.doc, op.Update)
					if err != nil {
						return err
					}
					if err := c.replace(ctx, tx, r.seq, next); err != nil {
						return err
					}
					res.Updated++
				}
			case "remove":
				out, err := tx.ExecContext(ctx,
					`DELETE FROM documents WHERE collection = ? AND doc_id = ?`, c.name, docKey(op.ID))
				if err != nil {
					return fmt.Errorf("delete document: %w", err)
				}
				n, _ := out.RowsAffected()
				res.Removed += int(n)
			default:
				return fmt.Errorf("unknown bulk op %q", op.Op)
			}
		}
		return nil
	})
	if err != nil {
		return entities.BulkResult{}, c.fail("bulk", err)
	}
	res.OK = 1
	return res, nil
}
