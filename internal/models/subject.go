package models

import "time"

// SubjectKind classifies a subject for slot kind routing.
type SubjectKind string

const (
	SubjectKindCore     SubjectKind = "core"
	SubjectKindElective SubjectKind = "elective"
	SubjectKindLab      SubjectKind = "lab"
)

// Subject represents a course offered by a department.
type Subject struct {
	ID         string      `db:"id" json:"id"`
	Name       string      `db:"name" json:"name"`
	Code       string      `db:"code" json:"code"`
	Department string      `db:"department" json:"department"`
	Credits    int         `db:"credits" json:"credits"`
	Kind       SubjectKind `db:"type" json:"type"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}
