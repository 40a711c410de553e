package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/marketplace-service/internal/query"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// identPattern restricts field names that get interpolated into SQL. Values
// always travel as bound parameters; only identifiers are checked here.
var identPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// PostgresCollection stores documents as JSONB rows, one table per
// collection, and compiles descriptors into parameterized SQL.
type PostgresCollection[T Document] struct {
	pool    *pgxpool.Pool
	opts    Options
	factory func() T
	now     func() time.Time
}

// NewPostgresCollection wraps a table managed by RunMigrations.
func NewPostgresCollection[T Document](pool *pgxpool.Pool, opts Options, factory func() T) *PostgresCollection[T] {
	return &PostgresCollection[T]{pool: pool, opts: opts, factory: factory, now: time.Now}
}

// Find executes the descriptor against the collection table.
func (c *PostgresCollection[T]) Find(ctx context.Context, d query.Descriptor) ([]T, error) {
	args := []any{}
	clauses, err := c.buildClauses(d.Conditions, &args)
	if err != nil {
		return nil, err
	}

	orderBy, err := c.buildOrderBy(d.SortKeys)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf("SELECT doc FROM %s WHERE %s%s", c.opts.Name, strings.Join(clauses, " AND "), orderBy)
	args = append(args, d.Skip)
	sql += fmt.Sprintf(" OFFSET $%d", len(args))
	if d.Limit > 0 {
		args = append(args, d.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]T, 0, 16)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		typed, err := c.decodeRaw(raw, d.Fields, false)
		if err != nil {
			return nil, err
		}
		results = append(results, typed)
	}
	return results, rows.Err()
}

// FindOne returns the first document matching every condition.
func (c *PostgresCollection[T]) FindOne(ctx context.Context, conditions []query.Condition, opts ...FindOption) (T, error) {
	var zero T
	settings := applyFindOptions(opts)

	args := []any{}
	clauses, err := c.buildClauses(conditions, &args)
	if err != nil {
		return zero, err
	}

	sql := fmt.Sprintf("SELECT doc FROM %s WHERE %s LIMIT 1", c.opts.Name, strings.Join(clauses, " AND "))

	var raw []byte
	if err := c.pool.QueryRow(ctx, sql, args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, notFound(c.opts.Name)
		}
		return zero, err
	}
	return c.decodeRaw(raw, nil, settings.includeHidden)
}

// FindByID loads one document by id, post soft-delete filtering.
func (c *PostgresCollection[T]) FindByID(ctx context.Context, id string, opts ...FindOption) (T, error) {
	var zero T
	settings := applyFindOptions(opts)

	if err := validateID(id); err != nil {
		return zero, err
	}

	sql := fmt.Sprintf("SELECT doc FROM %s WHERE id=$1", c.opts.Name)
	if c.opts.SoftDelete {
		sql += softDeleteClause
	}

	var raw []byte
	if err := c.pool.QueryRow(ctx, sql, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, notFound(c.opts.Name)
		}
		return zero, err
	}
	return c.decodeRaw(raw, nil, settings.includeHidden)
}

// Create validates and inserts a new document, assigning an id when absent.
func (c *PostgresCollection[T]) Create(ctx context.Context, doc T) error {
	doc.Touch(c.now())
	if doc.DocID() == "" {
		doc.SetDocID(uuid.NewString())
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	sql := fmt.Sprintf("INSERT INTO %s (id, doc) VALUES ($1, $2)", c.opts.Name)
	if _, err := c.pool.Exec(ctx, sql, doc.DocID(), raw); err != nil {
		return translatePGError(err)
	}
	return nil
}

// UpdateByID merges the patch into the stored document, revalidates the full
// document and persists it.
func (c *PostgresCollection[T]) UpdateByID(ctx context.Context, id string, patch map[string]any) (T, error) {
	var zero T

	if err := validateID(id); err != nil {
		return zero, err
	}

	current, err := c.FindByID(ctx, id, WithHidden())
	if err != nil {
		return zero, err
	}
	merged, err := encodeDoc(current)
	if err != nil {
		return zero, err
	}
	for key, value := range patch {
		if key == "id" {
			continue
		}
		if value == nil {
			delete(merged, key)
			continue
		}
		merged[key] = value
	}

	typed, err := decodeDoc(merged, c.factory)
	if err != nil {
		return zero, apperrors.NewValidationError("invalid patch", nil)
	}
	if err := typed.Validate(); err != nil {
		return zero, err
	}

	raw, err := json.Marshal(typed)
	if err != nil {
		return zero, err
	}

	sql := fmt.Sprintf("UPDATE %s SET doc=$2, updated_at=NOW() WHERE id=$1", c.opts.Name)
	cmd, err := c.pool.Exec(ctx, sql, id, raw)
	if err != nil {
		return zero, translatePGError(err)
	}
	if cmd.RowsAffected() == 0 {
		return zero, notFound(c.opts.Name)
	}
	return c.decodeRaw(raw, nil, false)
}

// DeleteByID removes a document, or flips its active flag for soft-deleting
// collections.
func (c *PostgresCollection[T]) DeleteByID(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	var sql string
	if c.opts.SoftDelete {
		sql = fmt.Sprintf("UPDATE %s SET doc=jsonb_set(doc, '{active}', 'false'::jsonb), updated_at=NOW() WHERE id=$1%s",
			c.opts.Name, softDeleteClause)
	} else {
		sql = fmt.Sprintf("DELETE FROM %s WHERE id=$1", c.opts.Name)
	}

	cmd, err := c.pool.Exec(ctx, sql, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return notFound(c.opts.Name)
	}
	return nil
}

const softDeleteClause = " AND (doc->>'active') IS DISTINCT FROM 'false'"

func (c *PostgresCollection[T]) buildClauses(conditions []query.Condition, args *[]any) ([]string, error) {
	clauses := []string{"1=1"}
	if c.opts.SoftDelete {
		clauses = append(clauses, "(doc->>'active') IS DISTINCT FROM 'false'")
	}

	for _, cond := range conditions {
		if !identPattern.MatchString(cond.Field) {
			return nil, apperrors.NewValidationError("invalid filter field", map[string]any{"field": cond.Field})
		}

		op, ok := sqlOps[cond.Op]
		if !ok {
			return nil, apperrors.NewValidationError("invalid filter operator", nil)
		}

		num, numErr := strconv.ParseFloat(cond.Value, 64)

		// Equality on a numeric-looking value must match stored JSON numbers
		// the way the memory collection does; jsonb equality avoids casting a
		// non-numeric column and still falls back to text comparison.
		if numErr == nil && cond.Op == query.OpEq {
			*args = append(*args, num)
			numArg := len(*args)
			*args = append(*args, cond.Value)
			clauses = append(clauses, fmt.Sprintf("(doc->'%s' = to_jsonb($%d::numeric) OR doc->>'%s' = $%d)",
				cond.Field, numArg, cond.Field, len(*args)))
			continue
		}

		if numErr == nil {
			*args = append(*args, num)
			clauses = append(clauses, fmt.Sprintf("(doc->>'%s')::numeric %s $%d", cond.Field, op, len(*args)))
			continue
		}

		*args = append(*args, cond.Value)
		clauses = append(clauses, fmt.Sprintf("doc->>'%s' %s $%d", cond.Field, op, len(*args)))
	}
	return clauses, nil
}

// buildOrderBy sorts on the JSONB values directly so numbers order
// numerically and RFC3339 timestamps order chronologically.
func (c *PostgresCollection[T]) buildOrderBy(keys []query.SortKey) (string, error) {
	if len(keys) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		if !identPattern.MatchString(key.Field) {
			return "", apperrors.NewValidationError("invalid sort field", map[string]any{"field": key.Field})
		}
		dir := "ASC"
		if key.Descending {
			dir = "DESC"
		}
		parts = append(parts, fmt.Sprintf("doc->'%s' %s", key.Field, dir))
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

var sqlOps = map[query.Op]string{
	query.OpEq:  "=",
	query.OpGT:  ">",
	query.OpGTE: ">=",
	query.OpLT:  "<",
	query.OpLTE: "<=",
}

func (c *PostgresCollection[T]) decodeRaw(raw []byte, fields []string, includeHidden bool) (T, error) {
	var zero T
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return zero, err
	}
	return decodeDoc(projectDoc(m, fields, c.opts.HiddenFields, includeHidden), c.factory)
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("invalid id %q", id), nil)
	}
	return nil
}

func translatePGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperrors.NewDuplicateValue(pgErr.ConstraintName)
	}
	return err
}
