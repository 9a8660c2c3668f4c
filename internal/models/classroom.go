package models

import (
	"time"

	"github.com/lib/pq"
)

// ClassroomKind describes what a room is equipped for.
type ClassroomKind string

const (
	ClassroomKindLecture ClassroomKind = "lecture"
	ClassroomKindLab     ClassroomKind = "lab"
	ClassroomKindSeminar ClassroomKind = "seminar"
)

// Classroom is a bookable room shared across departments.
type Classroom struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Building  string         `db:"building" json:"building"`
	Capacity  int            `db:"capacity" json:"capacity"`
	Kind      ClassroomKind  `db:"type" json:"type"`
	Equipment pq.StringArray `db:"equipment" json:"equipment"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}
