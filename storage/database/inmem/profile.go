package inmemdb

import (
	"context"
	"sort"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/profile"
)

type profileRepository struct {
	db *DB
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *DB) *profileRepository {
	return &profileRepository{db: db}
}

func (repo *profileRepository) GetOrCreateProfile(_ context.Context, accountID string) (profile.StudentProfile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.accounts[accountID]; !ok {
		return profile.StudentProfile{}, core.NewNotFoundError("account")
	}
	p, ok := repo.db.profiles[accountID]
	if !ok {
		p = &profile.StudentProfile{AccountID: accountID}
		repo.db.profiles[accountID] = p
	}
	return *p, nil
}

func (repo *profileRepository) UpdateProfile(_ context.Context, p profile.StudentProfile) (profile.StudentProfile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.profiles[p.AccountID]; !ok {
		return profile.StudentProfile{}, core.NewNotFoundError("profile")
	}
	repo.db.profiles[p.AccountID] = &p
	return p, nil
}

func (repo *profileRepository) ListProfiles(_ context.Context, filter profile.Filter) ([]profile.StudentProfile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ps := make([]profile.StudentProfile, 0)
	for _, p := range repo.db.profiles {
		if filter.Semester != 0 && (!p.Semester.Valid || p.Semester.Int != filter.Semester) {
			continue
		}
		ps = append(ps, *p)
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].AccountID < ps[j].AccountID })
	return ps, nil
}

func (repo *profileRepository) SetTeacherSubjects(_ context.Context, teacherID string, subjectIDs []int64) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	ids := make([]int64, 0, len(subjectIDs))
	seen := make(map[int64]bool, len(subjectIDs))
	for _, id := range subjectIDs {
		if _, ok := repo.db.subjects[id]; !ok {
			return core.NewNotFoundError("subject")
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	repo.db.teacherSubjects[teacherID] = ids
	return nil
}

func (repo *profileRepository) TeacherSubjectIDs(_ context.Context, teacherID string) ([]int64, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := make([]int64, len(repo.db.teacherSubjects[teacherID]))
	copy(ids, repo.db.teacherSubjects[teacherID])
	return ids, nil
}
