package inmemdb

import (
	"context"
	"sort"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/fee"
)

type feeRepository struct {
	db *DB
}

var _ fee.Repository = (*feeRepository)(nil) // interface compliance check

func NewFeeRepository(db *DB) *feeRepository {
	return &feeRepository{db: db}
}

func (repo *feeRepository) CreateDue(_ context.Context, d fee.Due) (fee.Due, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.accounts[d.StudentID]; !ok {
		return fee.Due{}, core.NewNotFoundError("student")
	}
	d.ID = repo.db.nextID()
	repo.db.dues[d.ID] = &d
	return d, nil
}

func (repo *feeRepository) QueryDues(_ context.Context, filter fee.Filter) ([]fee.Due, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ds := make([]fee.Due, 0)
	for _, d := range repo.db.dues {
		if filter.StudentID != "" && d.StudentID != filter.StudentID {
			continue
		}
		if !filter.DueFrom.IsZero() && d.DueDate.Before(filter.DueFrom) {
			continue
		}
		if !filter.DueTo.IsZero() && d.DueDate.After(filter.DueTo) {
			continue
		}
		ds = append(ds, *d)
	}
	sort.Slice(ds, func(i, j int) bool {
		if !ds[i].DueDate.Equal(ds[j].DueDate) {
			return ds[i].DueDate.Before(ds[j].DueDate)
		}
		return ds[i].ID < ds[j].ID
	})
	return ds, nil
}
