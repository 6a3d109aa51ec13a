package inmemdb

import (
	"context"
	"sort"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/coursework"
)

type courseworkRepository struct {
	db *DB
}

var _ coursework.Repository = (*courseworkRepository)(nil) // interface compliance check

func NewCourseworkRepository(db *DB) *courseworkRepository {
	return &courseworkRepository{db: db}
}

// submissionCount must be called with the lock held.
func (repo *courseworkRepository) submissionCount(assignmentID int64) int {
	var n int
	for _, s := range repo.db.submissions {
		if s.AssignmentID == assignmentID {
			n++
		}
	}
	return n
}

func (repo *courseworkRepository) CreateAssignment(_ context.Context, a coursework.Assignment) (coursework.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.subjects[a.SubjectID]; !ok {
		return coursework.Assignment{}, core.NewNotFoundError("subject")
	}
	a.ID = repo.db.nextID()
	a.SubmissionCount = 0
	repo.db.assignments[a.ID] = &a
	return a, nil
}

func (repo *courseworkRepository) GetAssignment(_ context.Context, id int64) (coursework.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	a, ok := repo.db.assignments[id]
	if !ok {
		return coursework.Assignment{}, core.NewNotFoundError("assignment")
	}
	res := *a
	res.SubmissionCount = repo.submissionCount(id)
	return res, nil
}

func (repo *courseworkRepository) UpdateAssignment(_ context.Context, a coursework.Assignment) (coursework.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assignments[a.ID]; !ok {
		return coursework.Assignment{}, core.NewNotFoundError("assignment")
	}
	a.SubmissionCount = 0
	repo.db.assignments[a.ID] = &a
	a.SubmissionCount = repo.submissionCount(a.ID)
	return a, nil
}

// DeleteAssignment drops the submissions of the assignment with it.
func (repo *courseworkRepository) DeleteAssignment(_ context.Context, id int64) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assignments[id]; !ok {
		return core.NewNotFoundError("assignment")
	}
	delete(repo.db.assignments, id)
	for sid, s := range repo.db.submissions {
		if s.AssignmentID == id {
			delete(repo.db.submissions, sid)
		}
	}
	return nil
}

func (repo *courseworkRepository) QueryAssignments(_ context.Context, filter coursework.AssignmentFilter) ([]coursework.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	as := make([]coursework.Assignment, 0)
	for _, a := range repo.db.assignments {
		if filter.TeacherID != "" && a.TeacherID != filter.TeacherID {
			continue
		}
		if filter.Semester != 0 && a.Semester != filter.Semester {
			continue
		}
		if !filter.DueFrom.IsZero() && a.DueDate.Before(filter.DueFrom) {
			continue
		}
		res := *a
		res.SubmissionCount = repo.submissionCount(a.ID)
		as = append(as, res)
	}
	sort.Slice(as, func(i, j int) bool {
		if !as[i].DueDate.Equal(as[j].DueDate) {
			return as[i].DueDate.Before(as[j].DueDate)
		}
		return as[i].ID < as[j].ID
	})
	return as, nil
}

func (repo *courseworkRepository) CreateSubmission(_ context.Context, s coursework.Submission) (coursework.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assignments[s.AssignmentID]; !ok {
		return coursework.Submission{}, core.NewNotFoundError("assignment")
	}
	for _, cur := range repo.db.submissions {
		if cur.AssignmentID == s.AssignmentID && cur.StudentID == s.StudentID {
			return coursework.Submission{}, coursework.ErrAlreadySubmitted
		}
	}
	s.ID = repo.db.nextID()
	repo.db.submissions[s.ID] = &s
	return s, nil
}

func (repo *courseworkRepository) QuerySubmissions(_ context.Context, assignmentID int64) ([]coursework.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ss := make([]coursework.Submission, 0)
	for _, s := range repo.db.submissions {
		if s.AssignmentID == assignmentID {
			ss = append(ss, *s)
		}
	}
	sort.Slice(ss, func(i, j int) bool {
		if !ss[i].SubmittedAt.Equal(ss[j].SubmittedAt) {
			return ss[i].SubmittedAt.After(ss[j].SubmittedAt)
		}
		return ss[i].ID > ss[j].ID
	})
	return ss, nil
}
