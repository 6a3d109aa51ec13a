package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/fee"
)

type feeRepository struct {
	db *sqlx.DB
}

var _ fee.Repository = (*feeRepository)(nil) // interface compliance check

func NewFeeRepository(db *sqlx.DB) *feeRepository {
	return &feeRepository{db: db}
}

func (repo *feeRepository) CreateDue(ctx context.Context, d fee.Due) (fee.Due, error) {
	b := psql.Insert("fee_dues").
		Columns("student_id", "amount_cents", "due_date", "created_at").
		Values(d.StudentID, d.AmountCents, d.DueDate, d.CreatedAt.UTC()).
		Suffix("RETURNING id")
	if err := get(ctx, repo.db, &d.ID, b); err != nil {
		if violates(err, foreignKeyViolation, "") {
			return fee.Due{}, core.NewNotFoundError("student")
		}
		return fee.Due{}, errors.Wrap(err, "inserting fee due")
	}
	return d, nil
}

func (repo *feeRepository) QueryDues(ctx context.Context, filter fee.Filter) ([]fee.Due, error) {
	b := psql.Select("id", "student_id", "amount_cents", "due_date", "created_at").
		From("fee_dues").
		OrderBy("due_date", "id")
	if filter.StudentID != "" {
		b = b.Where(sq.Eq{"student_id": filter.StudentID})
	}
	if !filter.DueFrom.IsZero() {
		b = b.Where(sq.GtOrEq{"due_date": filter.DueFrom})
	}
	if !filter.DueTo.IsZero() {
		b = b.Where(sq.LtOrEq{"due_date": filter.DueTo})
	}
	ds := make([]fee.Due, 0)
	if err := selectAll(ctx, repo.db, &ds, b); err != nil {
		return nil, errors.Wrap(err, "querying fee dues")
	}
	return ds, nil
}
