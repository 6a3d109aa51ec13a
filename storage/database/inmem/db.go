package inmemdb

import (
	"sync"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/attendance"
	"github.com/shankerdev/campus/core/calendar"
	"github.com/shankerdev/campus/core/course"
	"github.com/shankerdev/campus/core/coursework"
	"github.com/shankerdev/campus/core/fee"
	"github.com/shankerdev/campus/core/notification"
	"github.com/shankerdev/campus/core/profile"
)

type (
	// DB keeps every table behind a single lock, so a write spanning several
	// tables is atomic like a SQL transaction.
	DB struct {
		sync.RWMutex
		seq int64

		accounts        map[string]*account.Account
		profiles        map[string]*profile.StudentProfile
		teacherSubjects map[string][]int64

		records        map[recordKey]*attendance.Record
		teacherRecords map[recordKey]*attendance.TeacherRecord

		notifications map[int64]*notification.Notification
		trackers      map[trackerKey]core.Date

		courses   map[int64]*course.Course
		faculties map[int64]*course.Faculty
		subjects  map[int64]*course.Subject

		assignments map[int64]*coursework.Assignment
		submissions map[int64]*coursework.Submission

		dues     map[int64]*fee.Due
		routines map[int64]*calendar.ExamRoutine
		events   map[int64]*calendar.Event
	}

	// recordKey is (account, day).
	recordKey struct {
		accountID string
		date      string
	}

	trackerKey struct {
		userID string
		kind   notification.Kind
	}
)

func Open() *DB {
	return &DB{
		accounts:        make(map[string]*account.Account),
		profiles:        make(map[string]*profile.StudentProfile),
		teacherSubjects: make(map[string][]int64),
		records:         make(map[recordKey]*attendance.Record),
		teacherRecords:  make(map[recordKey]*attendance.TeacherRecord),
		notifications:   make(map[int64]*notification.Notification),
		trackers:        make(map[trackerKey]core.Date),
		courses:         make(map[int64]*course.Course),
		faculties:       make(map[int64]*course.Faculty),
		subjects:        make(map[int64]*course.Subject),
		assignments:     make(map[int64]*coursework.Assignment),
		submissions:     make(map[int64]*coursework.Submission),
		dues:            make(map[int64]*fee.Due),
		routines:        make(map[int64]*calendar.ExamRoutine),
		events:          make(map[int64]*calendar.Event),
	}
}

// nextID must be called with the lock held.
func (db *DB) nextID() int64 {
	db.seq++
	return db.seq
}

func inRange(d, from, to core.Date) bool {
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !to.IsZero() && !d.Before(to) {
		return false
	}
	return true
}
