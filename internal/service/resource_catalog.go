package service

import (
	"context"

	"github.com/AltamashPatel/edu-schedule-wiz/internal/models"
	appErrors "github.com/AltamashPatel/edu-schedule-wiz/pkg/errors"
)

// DefaultSubjectLimit bounds the distinct subjects a generated week uses.
const DefaultSubjectLimit = 6

type subjectLister interface {
	ListByDepartment(ctx context.Context, department string, limit int) ([]models.Subject, error)
}

type facultyLister interface {
	ListByDepartment(ctx context.Context, department string) ([]models.Faculty, error)
}

type classroomLister interface {
	ListByKinds(ctx context.Context, kinds []models.ClassroomKind) ([]models.Classroom, error)
}

// generationClassroomKinds are the rooms the generator may book. Rooms are
// shared between departments.
var generationClassroomKinds = []models.ClassroomKind{models.ClassroomKindLecture, models.ClassroomKindLab}

// ResourcePool is the ordered candidate set for one generation run.
type ResourcePool struct {
	Subjects   []models.Subject
	Faculty    []models.Faculty
	Classrooms []models.Classroom
}

// ResourceCatalog loads department scoped resources for generation.
type ResourceCatalog struct {
	subjects     subjectLister
	faculty      facultyLister
	classrooms   classroomLister
	subjectLimit int
}

// NewResourceCatalog wires catalog readers. A non-positive subjectLimit uses
// DefaultSubjectLimit.
func NewResourceCatalog(subjects subjectLister, faculty facultyLister, classrooms classroomLister, subjectLimit int) *ResourceCatalog {
	if subjectLimit <= 0 {
		subjectLimit = DefaultSubjectLimit
	}
	return &ResourceCatalog{subjects: subjects, faculty: faculty, classrooms: classrooms, subjectLimit: subjectLimit}
}

// Load returns the department's pool or EMPTY_RESOURCE_POOL when any list is
// empty. Lists are checked in subject, faculty, classroom order.
func (c *ResourceCatalog) Load(ctx context.Context, department string) (*ResourcePool, error) {
	subjects, err := c.subjects.ListByDepartment(ctx, department, c.subjectLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	if len(subjects) == 0 {
		return nil, appErrors.Clone(appErrors.ErrEmptyResourcePool, "no subjects found for this department")
	}

	faculty, err := c.faculty.ListByDepartment(ctx, department)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	if len(faculty) == 0 {
		return nil, appErrors.Clone(appErrors.ErrEmptyResourcePool, "no faculty found for this department")
	}

	classrooms, err := c.classrooms.ListByKinds(ctx, generationClassroomKinds)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classrooms")
	}
	if len(classrooms) == 0 {
		return nil, appErrors.Clone(appErrors.ErrEmptyResourcePool, "no classrooms available")
	}

	if len(subjects) > c.subjectLimit {
		subjects = subjects[:c.subjectLimit]
	}
	return &ResourcePool{Subjects: subjects, Faculty: faculty, Classrooms: classrooms}, nil
}
