package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/shankerdev/campus/core"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// psql builds queries with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// trapNoRowsErr maps "no rows" to a not found error of entity.
func trapNoRowsErr(err error, entity, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return core.NewNotFoundError(entity)
	}
	return errors.Wrap(err, msg)
}

// violates reports whether err is a postgres error of code on the named constraint (any constraint when empty).
func violates(err error, code pq.ErrorCode, constraint string) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	if !ok || pqErr.Code != code {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

func get(ctx context.Context, exec sqlx.QueryerContext, dest interface{}, b sq.Sqlizer) error {
	q, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.GetContext(ctx, exec, dest, q, args...)
}

func selectAll(ctx context.Context, exec sqlx.QueryerContext, dest interface{}, b sq.Sqlizer) error {
	q, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.SelectContext(ctx, exec, dest, q, args...)
}

func exec(ctx context.Context, ex sqlx.ExecerContext, b sq.Sqlizer) (sql.Result, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	return ex.ExecContext(ctx, q, args...)
}

// withTx runs fn in a transaction, committed only if fn succeeds.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = errors.Wrap(tx.Commit(), "committing transaction")
	}()
	return fn(tx)
}

func orderBy(ordering []core.DBOrdering) []string {
	list := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		list = append(list, ord.String())
	}
	return list
}

// nullString maps "" to NULL.
func nullString(s string) null.String {
	return null.NewString(s, s != "")
}
