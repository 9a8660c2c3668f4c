package models

import "time"

// Batch is a cohort of students that owns timetables.
type Batch struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Department string    `db:"department" json:"department"`
	Year       int       `db:"year" json:"year"`
	Semester   int       `db:"semester" json:"semester"`
	Section    string    `db:"section" json:"section"`
	Strength   int       `db:"strength" json:"strength"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
