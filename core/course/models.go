package course

import "github.com/shankerdev/campus/core"

type Course struct {
	ID             int64  `json:"id" db:"id"`
	Name           string `json:"name" db:"name"`
	Description    string `json:"description" db:"description"`
	Duration       string `json:"duration" db:"duration"`
	Location       string `json:"location" db:"location"`
	AvailableSeats int    `json:"available_seats" db:"available_seats"`
}

type NewCourse struct {
	Name           string `json:"name" validate:"required,max=100"`
	Description    string `json:"description" validate:"max=500"`
	Duration       string `json:"duration" validate:"max=50"`
	Location       string `json:"location" validate:"max=200"`
	AvailableSeats int    `json:"available_seats" validate:"min=0"`
}

func (nc *NewCourse) Clean() {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	nc.Duration = core.CleanString(nc.Duration)
	nc.Location = core.CleanString(nc.Location)
	if nc.Description == "" {
		nc.Description = "No description available"
	}
}

type UpdateSeats struct {
	AvailableSeats *int `json:"available_seats" validate:"required,min=0"`
}

type Faculty struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type NewFaculty struct {
	Name string `json:"name" validate:"required,max=100"`
}

type Subject struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	FacultyID int64  `json:"faculty_id" db:"faculty_id"`
	Semester  int    `json:"semester" db:"semester"`
}

type NewSubject struct {
	Name      string `json:"name" validate:"required,max=100"`
	FacultyID int64  `json:"faculty_id" validate:"required"`
	Semester  int    `json:"semester" validate:"required,min=1,max=8"`
}

// SubjectFilter applies AND operation on its non-zero fields.
type SubjectFilter struct {
	Semester  int     `query:"semester"`
	FacultyID int64   `query:"faculty_id"`
	IDs       []int64 `query:"-"`
}
