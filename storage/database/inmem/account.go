package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
)

type accountRepository struct {
	db *DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) *accountRepository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) CheckUniqueness(_ context.Context, email, phone, excludedID string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, acc := range repo.db.accounts {
		if acc.ID == excludedID {
			continue
		}
		if acc.Email == email {
			return account.ErrEmailExists
		}
		if phone != "" && acc.Phone.Valid && acc.Phone.String == phone {
			return account.ErrPhoneExists
		}
	}
	return nil
}

func (repo *accountRepository) CreateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, a := range repo.db.accounts {
		if a.Email == acc.Email {
			return account.Account{}, account.ErrEmailExists
		}
		if acc.Phone.Valid && a.Phone.Valid && a.Phone.String == acc.Phone.String {
			return account.Account{}, account.ErrPhoneExists
		}
	}
	repo.db.accounts[acc.ID] = &acc
	return acc, nil
}

func (repo *accountRepository) GetAccount(_ context.Context, id string) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if acc, ok := repo.db.accounts[id]; ok {
		return *acc, nil
	}
	return account.Account{}, core.NewNotFoundError("account")
}

func (repo *accountRepository) GetAccountByLogin(_ context.Context, login string) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, acc := range repo.db.accounts {
		if acc.Email == login || (acc.Phone.Valid && acc.Phone.String == login) {
			return *acc, nil
		}
	}
	return account.Account{}, core.NewNotFoundError("account")
}

func matchAccount(acc *account.Account, filter *account.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Role != "" && acc.Role != filter.Role {
		return false
	}
	if filter.IsApproved != nil && acc.IsApproved != *filter.IsApproved {
		return false
	}
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(acc.Name), s) &&
			!strings.Contains(strings.ToLower(acc.Email), s) &&
			!strings.Contains(acc.Phone.String, s) {
			return false
		}
	}
	return true
}

func (repo *accountRepository) QueryAccounts(_ context.Context, filter *account.QueryFilter, ordering []core.DBOrdering) ([]account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	accs := make([]account.Account, 0, len(repo.db.accounts))
	for _, acc := range repo.db.accounts {
		if matchAccount(acc, filter) {
			accs = append(accs, *acc)
		}
	}
	sort.SliceStable(accs, func(i, j int) bool { return accs[i].ID < accs[j].ID })
	for k := len(ordering) - 1; k >= 0; k-- {
		ord := ordering[k]
		sort.SliceStable(accs, func(i, j int) bool {
			less, greater := compareAccounts(accs[i], accs[j], ord.Field)
			if ord.Ascending {
				return less
			}
			return greater
		})
	}
	return accs, nil
}

func compareAccounts(a, b account.Account, field string) (less, greater bool) {
	switch field {
	case "name":
		return a.Name < b.Name, a.Name > b.Name
	case "email":
		return a.Email < b.Email, a.Email > b.Email
	case "role":
		return a.Role < b.Role, a.Role > b.Role
	case "last_login":
		return a.LastLogin.Time.Before(b.LastLogin.Time), a.LastLogin.Time.After(b.LastLogin.Time)
	default:
		return a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.After(b.CreatedAt)
	}
}

func (repo *accountRepository) CountAccounts(_ context.Context, filter *account.QueryFilter) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var n int
	for _, acc := range repo.db.accounts {
		if matchAccount(acc, filter) {
			n++
		}
	}
	return n, nil
}

func (repo *accountRepository) UpdateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.accounts[acc.ID]; !ok {
		return account.Account{}, core.NewNotFoundError("account")
	}
	repo.db.accounts[acc.ID] = &acc
	return acc, nil
}
