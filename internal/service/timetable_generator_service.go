package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/AltamashPatel/edu-schedule-wiz/internal/dto"
	"github.com/AltamashPatel/edu-schedule-wiz/internal/models"
	appErrors "github.com/AltamashPatel/edu-schedule-wiz/pkg/errors"
	"github.com/AltamashPatel/edu-schedule-wiz/pkg/events"
	"github.com/AltamashPatel/edu-schedule-wiz/pkg/validation"
)

const pqUniqueViolation = "23505"

type timetableReader interface {
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
}

type batchReader interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
}

type slotStore interface {
	ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetableSlot, error)
	ListByTerm(ctx context.Context, academicYear string, semester int, excludeTimetableID string) ([]models.TermSlot, error)
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.TimetableSlot) error
}

type resourceLoader interface {
	Load(ctx context.Context, department string) (*ResourcePool, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, evt events.Event) error
}

// TimetableGeneratorConfig governs generator behaviour.
type TimetableGeneratorConfig struct {
	BlockedCells    []GridCell
	DefaultMaxHours int
}

// TimetableGeneratorService fills draft timetables with conflict-free slots.
type TimetableGeneratorService struct {
	timetables timetableReader
	batches    batchReader
	slots      slotStore
	resources  resourceLoader
	tx         txProvider
	events     eventPublisher
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	template   SlotTemplate
	maxHours   int
}

// NewTimetableGeneratorService wires generator dependencies. A nil
// BlockedCells slice uses DefaultBlockedCells; an empty one blocks nothing.
func NewTimetableGeneratorService(
	timetables timetableReader,
	batches batchReader,
	slots slotStore,
	resources resourceLoader,
	tx txProvider,
	publisher eventPublisher,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableGeneratorConfig,
) *TimetableGeneratorService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BlockedCells == nil {
		cfg.BlockedCells = DefaultBlockedCells
	}
	if cfg.DefaultMaxHours <= 0 {
		cfg.DefaultMaxHours = models.DefaultMaxHoursPerWeek
	}
	return &TimetableGeneratorService{
		timetables: timetables,
		batches:    batches,
		slots:      slots,
		resources:  resources,
		tx:         tx,
		events:     publisher,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		template:   NewSlotTemplate(cfg.BlockedCells),
		maxHours:   cfg.DefaultMaxHours,
	}
}

// GenerateSlots walks the weekly template for the timetable's batch and
// commits every conflict-free candidate in one transaction. Either all
// candidates are stored or none are.
func (s *TimetableGeneratorService) GenerateSlots(ctx context.Context, req dto.GenerateSlotsRequest) (result *dto.GenerateSlotsResult, err error) {
	started := time.Now()
	defer func() {
		if result != nil {
			s.metrics.ObserveGeneration(true, time.Since(started), result.SlotsCreated, skipCounts(result.SkippedCells))
			return
		}
		s.metrics.ObserveGeneration(false, time.Since(started), 0, nil)
	}()

	if err := s.validator.Struct(req); err != nil {
		return nil, validation.Error(err)
	}

	timetable, err := s.timetables.FindByID(ctx, req.TimetableID)
	if err != nil {
		return nil, notFoundOrInternal(err, "timetable not found", "failed to load timetable")
	}
	batch, err := s.batches.FindByID(ctx, req.BatchID)
	if err != nil {
		return nil, notFoundOrInternal(err, "batch not found", "failed to load batch")
	}
	if timetable.BatchID != batch.ID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timetable does not belong to batch")
	}
	if timetable.Status != models.TimetableStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrInvalidStateTransition, "slots can only be generated for draft timetables")
	}

	department := strings.TrimSpace(req.Department)
	if department == "" {
		department = batch.Department
	}

	pool, err := s.resources.Load(ctx, department)
	if err != nil {
		return nil, err
	}

	tracker := newConflictTracker()
	committed, err := s.slots.ListByTimetable(ctx, timetable.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load committed slots")
	}
	tracker.SeedTimetable(batch.ID, committed)

	termSlots, err := s.slots.ListByTerm(ctx, timetable.AcademicYear, timetable.Semester, timetable.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term slots")
	}
	tracker.SeedTerm(termSlots)

	plan := planSlots(s.template, pool, newAvailabilityIndex(pool.Faculty), tracker, timetable.ID, batch.ID)

	if len(plan.Slots) > 0 {
		if err := s.persist(ctx, plan.Slots); err != nil {
			return nil, err
		}
		// The slot grid is cached only outside draft, but a rejected timetable
		// may carry an entry from its review period.
		if err := s.cache.Invalidate(ctx, SlotsCacheKey(timetable.ID)); err != nil {
			s.logger.Warn("failed to drop cached slots", zap.String("timetable_id", timetable.ID), zap.Error(err))
		}
	}

	result = &dto.GenerateSlotsResult{
		TimetableID:     timetable.ID,
		SlotsCreated:    len(plan.Slots),
		CellsConsidered: s.template.CellCount(),
		SkippedCells:    plan.Skipped,
		Advisories:      s.loadAdvisories(pool.Faculty, tracker),
	}

	for _, advisory := range result.Advisories {
		s.logger.Warn("faculty booked beyond weekly cap",
			zap.String("timetable_id", timetable.ID),
			zap.String("faculty_id", advisory.FacultyID),
			zap.Float64("scheduled_hours", advisory.ScheduledHours),
			zap.Int("max_hours_per_week", advisory.MaxHoursPerWeek),
		)
	}
	s.metrics.RecordFacultyOverloads(len(result.Advisories))

	s.logger.Info("timetable slots generated",
		zap.String("timetable_id", timetable.ID),
		zap.String("batch_id", batch.ID),
		zap.String("department", department),
		zap.Int("slots_created", result.SlotsCreated),
		zap.Int("cells_skipped", len(result.SkippedCells)),
		zap.Duration("elapsed", time.Since(started)),
	)

	s.publish(ctx, events.Event{
		Type:        events.TimetableSlotsGenerated,
		TimetableID: timetable.ID,
		ActorID:     req.ActorID,
		Data: map[string]interface{}{
			"slots_created": result.SlotsCreated,
			"cells_skipped": len(result.SkippedCells),
		},
	})

	return result, nil
}

func (s *TimetableGeneratorService) persist(ctx context.Context, slots []models.TimetableSlot) (err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.slots.InsertBatch(ctx, tx, slots); err != nil {
		err = persistenceError(err)
		return err
	}
	if err = tx.Commit(); err != nil {
		err = persistenceError(err)
		return err
	}
	return nil
}

// persistenceError maps a unique violation to 409; anything else is a 500.
func persistenceError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
		return appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, http.StatusConflict, "slot already booked by a concurrent change")
	}
	return appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, appErrors.ErrPersistenceFailure.Message)
}

func (s *TimetableGeneratorService) loadAdvisories(faculty []models.Faculty, tracker *conflictTracker) []dto.FacultyLoadAdvisory {
	var advisories []dto.FacultyLoadAdvisory
	for _, member := range faculty {
		limit := member.MaxHoursPerWeek
		if limit <= 0 {
			limit = s.maxHours
		}
		hours := tracker.FacultyHours(member.ID)
		if hours > float64(limit) {
			advisories = append(advisories, dto.FacultyLoadAdvisory{
				FacultyID:       member.ID,
				ScheduledHours:  hours,
				MaxHoursPerWeek: limit,
			})
		}
	}
	return advisories
}

func (s *TimetableGeneratorService) publish(ctx context.Context, evt events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.logger.Warn("failed to publish timetable event", zap.String("type", string(evt.Type)), zap.Error(err))
	}
}

// slotPlan is the outcome of one pass over the template.
type slotPlan struct {
	Slots   []models.TimetableSlot
	Skipped []dto.SkippedCell
}

// planSlots assigns resources round-robin: for window i on day d the base
// picks are subject i mod S, faculty i mod F and classroom (i+d) mod R. A
// faculty or classroom clash advances that index through at most one full
// cycle of its pool before the cell is skipped. Classrooms matching the
// subject's slot kind are tried before the rest.
func planSlots(template SlotTemplate, pool *ResourcePool, availability availabilityIndex, tracker *conflictTracker, timetableID, batchID string) slotPlan {
	var plan slotPlan
	subjectCount := len(pool.Subjects)
	facultyCount := len(pool.Faculty)
	classroomCount := len(pool.Classrooms)

	for _, day := range template.Days() {
		for i, window := range template.Windows() {
			skip := func(reason string) {
				plan.Skipped = append(plan.Skipped, dto.SkippedCell{
					DayOfWeek:   day,
					WindowIndex: i,
					StartTime:   window.Start,
					Reason:      reason,
				})
			}

			if template.Blocked(day, i) {
				skip(dto.SkipReasonBlocked)
				continue
			}
			if tracker.BatchBooked(batchID, day, window.Start) {
				skip(dto.SkipReasonBatchConflict)
				continue
			}

			faculty, ok := pickFaculty(pool.Faculty, i, facultyCount, func(member models.Faculty) bool {
				return availability.IsAvailable(member.ID, day, window.Start) && !tracker.FacultyBooked(member.ID, day, window.Start)
			})
			if !ok {
				skip(dto.SkipReasonFacultyUnavailable)
				continue
			}

			subject := pool.Subjects[i%subjectCount]
			kind := slotKindFor(subject)
			classroom, ok := pickClassroom(pool.Classrooms, i+day, classroomCount, kind, func(room models.Classroom) bool {
				return !tracker.ClassroomBooked(room.ID, day, window.Start)
			})
			if !ok {
				skip(dto.SkipReasonClassroomConflict)
				continue
			}

			slot := models.TimetableSlot{
				TimetableID: timetableID,
				DayOfWeek:   day,
				StartTime:   window.Start,
				EndTime:     window.End,
				SubjectID:   subject.ID,
				FacultyID:   faculty.ID,
				ClassroomID: classroom.ID,
				Kind:        kind,
			}
			tracker.Reserve(batchID, slot)
			plan.Slots = append(plan.Slots, slot)
		}
	}
	return plan
}

func pickFaculty(faculty []models.Faculty, base, count int, ok func(models.Faculty) bool) (models.Faculty, bool) {
	for k := 0; k < count; k++ {
		candidate := faculty[(base+k)%count]
		if ok(candidate) {
			return candidate, true
		}
	}
	return models.Faculty{}, false
}

// pickClassroom walks the pool from base twice: first for a free room suited
// to kind (labs in lab rooms, lectures outside them), then for any free room.
func pickClassroom(rooms []models.Classroom, base, count int, kind models.SlotKind, ok func(models.Classroom) bool) (models.Classroom, bool) {
	for k := 0; k < count; k++ {
		candidate := rooms[(base+k)%count]
		if roomSuits(candidate, kind) && ok(candidate) {
			return candidate, true
		}
	}
	for k := 0; k < count; k++ {
		candidate := rooms[(base+k)%count]
		if ok(candidate) {
			return candidate, true
		}
	}
	return models.Classroom{}, false
}

func roomSuits(room models.Classroom, kind models.SlotKind) bool {
	if kind == models.SlotKindLab {
		return room.Kind == models.ClassroomKindLab
	}
	return room.Kind != models.ClassroomKindLab
}

func slotKindFor(subject models.Subject) models.SlotKind {
	if subject.Kind == models.SubjectKindLab {
		return models.SlotKindLab
	}
	return models.SlotKindLecture
}

func skipCounts(cells []dto.SkippedCell) map[string]int {
	counts := make(map[string]int)
	for _, cell := range cells {
		counts[cell.Reason]++
	}
	return counts
}

func notFoundOrInternal(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}
