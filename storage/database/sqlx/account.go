package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
)

var accountColumns = []string{
	"id", "email", "phone", "name", "role", "is_approved",
	"password_hash", "created_at", "updated_at", "last_login",
}

type accountRepository struct {
	db *sqlx.DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *sqlx.DB) *accountRepository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) CheckUniqueness(ctx context.Context, email, phone, excludedID string) error {
	cond := sq.Or{sq.Eq{"email": email}}
	if phone != "" {
		cond = append(cond, sq.Eq{"phone": phone})
	}
	b := psql.Select("email").From("accounts").Where(cond)
	if excludedID != "" {
		b = b.Where(sq.NotEq{"id": excludedID})
	}

	var emails []string
	if err := selectAll(ctx, repo.db, &emails, b); err != nil {
		return errors.Wrap(err, "checking account uniqueness")
	}
	for _, e := range emails {
		if e == email {
			return account.ErrEmailExists
		}
	}
	if len(emails) > 0 {
		return account.ErrPhoneExists
	}
	return nil
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	b := psql.Insert("accounts").Columns(accountColumns...).Values(
		acc.ID, acc.Email, acc.Phone, acc.Name, acc.Role, acc.IsApproved,
		acc.PasswordHash, acc.CreatedAt.UTC(), acc.UpdatedAt.UTC(), acc.LastLogin,
	)
	if _, err := exec(ctx, repo.db, b); err != nil {
		switch {
		case violates(err, uniqueViolation, "accounts_email_key"):
			return account.Account{}, account.ErrEmailExists
		case violates(err, uniqueViolation, "accounts_phone_key"):
			return account.Account{}, account.ErrPhoneExists
		}
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return acc, nil
}

func (repo *accountRepository) GetAccount(ctx context.Context, id string) (account.Account, error) {
	var acc account.Account
	err := get(ctx, repo.db, &acc, psql.Select(accountColumns...).From("accounts").Where(sq.Eq{"id": id}))
	if err != nil {
		return account.Account{}, trapNoRowsErr(err, "account", "finding account")
	}
	return acc, nil
}

func (repo *accountRepository) GetAccountByLogin(ctx context.Context, login string) (account.Account, error) {
	var acc account.Account
	b := psql.Select(accountColumns...).From("accounts").
		Where(sq.Or{sq.Eq{"email": login}, sq.Eq{"phone": login}}).
		Limit(1)
	if err := get(ctx, repo.db, &acc, b); err != nil {
		return account.Account{}, trapNoRowsErr(err, "account", "finding account by login")
	}
	return acc, nil
}

func filterAccounts(b sq.SelectBuilder, filter *account.QueryFilter) sq.SelectBuilder {
	if filter == nil {
		return b
	}
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		b = b.Where(sq.Or{
			sq.ILike{"name": val},
			sq.ILike{"email": val},
			sq.ILike{"phone": val},
		})
	}
	if filter.Role != "" {
		b = b.Where(sq.Eq{"role": filter.Role})
	}
	if filter.IsApproved != nil {
		b = b.Where(sq.Eq{"is_approved": *filter.IsApproved})
	}
	return b
}

func (repo *accountRepository) QueryAccounts(ctx context.Context, filter *account.QueryFilter, ordering []core.DBOrdering) ([]account.Account, error) {
	b := filterAccounts(psql.Select(accountColumns...).From("accounts"), filter)
	if len(ordering) > 0 {
		b = b.OrderBy(orderBy(ordering)...)
	}
	b = b.OrderBy("id")

	accs := make([]account.Account, 0)
	if err := selectAll(ctx, repo.db, &accs, b); err != nil {
		return nil, errors.Wrap(err, "querying accounts")
	}
	return accs, nil
}

func (repo *accountRepository) CountAccounts(ctx context.Context, filter *account.QueryFilter) (int, error) {
	var n int
	if err := get(ctx, repo.db, &n, filterAccounts(psql.Select("COUNT(*)").From("accounts"), filter)); err != nil {
		return 0, errors.Wrap(err, "counting accounts")
	}
	return n, nil
}

func (repo *accountRepository) UpdateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	b := psql.Update("accounts").SetMap(map[string]interface{}{
		"email":         acc.Email,
		"phone":         acc.Phone,
		"name":          acc.Name,
		"role":          acc.Role,
		"is_approved":   acc.IsApproved,
		"password_hash": acc.PasswordHash,
		"updated_at":    acc.UpdatedAt.UTC(),
		"last_login":    acc.LastLogin,
	}).Where(sq.Eq{"id": acc.ID})

	res, err := exec(ctx, repo.db, b)
	if err != nil {
		switch {
		case violates(err, uniqueViolation, "accounts_email_key"):
			return account.Account{}, account.ErrEmailExists
		case violates(err, uniqueViolation, "accounts_phone_key"):
			return account.Account{}, account.ErrPhoneExists
		}
		return account.Account{}, errors.Wrap(err, "updating account")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return account.Account{}, core.NewNotFoundError("account")
	}
	return acc, nil
}
