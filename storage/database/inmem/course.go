package inmemdb

import (
	"context"
	"sort"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = repo.db.nextID()
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id int64) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return course.Course{}, core.NewNotFoundError("course")
}

func (repo *courseRepository) ListCourses(_ context.Context) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	cs := make([]course.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		cs = append(cs, *c)
	}
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Name != cs[j].Name {
			return cs[i].Name < cs[j].Name
		}
		return cs[i].ID < cs[j].ID
	})
	return cs, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[c.ID]; !ok {
		return course.Course{}, core.NewNotFoundError("course")
	}
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) CreateFaculty(_ context.Context, f course.Faculty) (course.Faculty, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	f.ID = repo.db.nextID()
	repo.db.faculties[f.ID] = &f
	return f, nil
}

func (repo *courseRepository) GetFaculty(_ context.Context, id int64) (course.Faculty, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if f, ok := repo.db.faculties[id]; ok {
		return *f, nil
	}
	return course.Faculty{}, core.NewNotFoundError("faculty")
}

func (repo *courseRepository) ListFaculties(_ context.Context) ([]course.Faculty, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	fs := make([]course.Faculty, 0, len(repo.db.faculties))
	for _, f := range repo.db.faculties {
		fs = append(fs, *f)
	}
	sort.Slice(fs, func(i, j int) bool { return fs[i].Name < fs[j].Name })
	return fs, nil
}

func (repo *courseRepository) CreateSubject(_ context.Context, s course.Subject) (course.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.faculties[s.FacultyID]; !ok {
		return course.Subject{}, core.NewNotFoundError("faculty")
	}
	s.ID = repo.db.nextID()
	repo.db.subjects[s.ID] = &s
	return s, nil
}

func (repo *courseRepository) GetSubject(_ context.Context, id int64) (course.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.subjects[id]; ok {
		return *s, nil
	}
	return course.Subject{}, core.NewNotFoundError("subject")
}

func (repo *courseRepository) ListSubjects(_ context.Context, filter course.SubjectFilter) ([]course.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var ids map[int64]bool
	if len(filter.IDs) > 0 {
		ids = make(map[int64]bool, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = true
		}
	}
	ss := make([]course.Subject, 0)
	for _, s := range repo.db.subjects {
		if filter.Semester != 0 && s.Semester != filter.Semester {
			continue
		}
		if filter.FacultyID != 0 && s.FacultyID != filter.FacultyID {
			continue
		}
		if ids != nil && !ids[s.ID] {
			continue
		}
		ss = append(ss, *s)
	}
	sort.Slice(ss, func(i, j int) bool {
		if ss[i].Semester != ss[j].Semester {
			return ss[i].Semester < ss[j].Semester
		}
		if ss[i].Name != ss[j].Name {
			return ss[i].Name < ss[j].Name
		}
		return ss[i].ID < ss[j].ID
	})
	return ss, nil
}
