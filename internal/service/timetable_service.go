package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/AltamashPatel/edu-schedule-wiz/internal/dto"
	"github.com/AltamashPatel/edu-schedule-wiz/internal/models"
	appErrors "github.com/AltamashPatel/edu-schedule-wiz/pkg/errors"
	"github.com/AltamashPatel/edu-schedule-wiz/pkg/events"
	"github.com/AltamashPatel/edu-schedule-wiz/pkg/validation"
)

type timetableStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	FindDetailByID(ctx context.Context, id string) (*models.TimetableWithBatch, error)
	List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableWithBatch, int, error)
	UpdateDetails(ctx context.Context, timetable *models.Timetable) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable, from models.TimetableStatus) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) ([]models.TimetableStatusCount, error)
}

type timetableSlotReader interface {
	ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetableSlot, error)
}

// timetableTransitions lists the legal lifecycle edges.
var timetableTransitions = map[models.TimetableStatus][]models.TimetableStatus{
	models.TimetableStatusDraft:       {models.TimetableStatusUnderReview},
	models.TimetableStatusUnderReview: {models.TimetableStatusApproved, models.TimetableStatusDraft},
	models.TimetableStatusApproved:    {models.TimetableStatusPublished},
}

// CanTransition reports whether a timetable may move from one status to another.
func CanTransition(from, to models.TimetableStatus) bool {
	for _, next := range timetableTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TimetableService implements the timetable lifecycle.
type TimetableService struct {
	timetables timetableStore
	batches    batchReader
	slots      timetableSlotReader
	cache      *CacheService
	events     eventPublisher
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewTimetableService wires timetable dependencies.
func NewTimetableService(
	timetables timetableStore,
	batches batchReader,
	slots timetableSlotReader,
	cache *CacheService,
	publisher eventPublisher,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *TimetableService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		timetables: timetables,
		batches:    batches,
		slots:      slots,
		cache:      cache,
		events:     publisher,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// --- Queries ---

// List returns timetables with their batch summary and pagination metadata.
func (s *TimetableService) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableWithBatch, *models.Pagination, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid status filter")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	items, total, err := s.timetables.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a timetable with its batch summary.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.TimetableWithBatch, error) {
	timetable, err := s.timetables.FindDetailByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "timetable not found", "failed to load timetable")
	}
	return timetable, nil
}

// Summary counts timetables per status. Every status is present in the result.
func (s *TimetableService) Summary(ctx context.Context) (*dto.TimetableSummary, error) {
	counts, err := s.timetables.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count timetables")
	}
	summary := &dto.TimetableSummary{
		ByStatus: map[models.TimetableStatus]int{
			models.TimetableStatusDraft:       0,
			models.TimetableStatusUnderReview: 0,
			models.TimetableStatusApproved:    0,
			models.TimetableStatusPublished:   0,
		},
	}
	for _, count := range counts {
		summary.ByStatus[count.Status] += count.Total
		summary.Total += count.Total
	}
	return summary, nil
}

// ListSlots returns the committed slots of a timetable. Drafts are read from
// the database every time since generation can change them at any moment;
// later statuses are read through the cache.
func (s *TimetableService) ListSlots(ctx context.Context, timetableID string) ([]models.TimetableSlot, error) {
	timetable, err := s.timetables.FindByID(ctx, timetableID)
	if err != nil {
		return nil, notFoundOrInternal(err, "timetable not found", "failed to load timetable")
	}
	cacheable := timetable.Status != models.TimetableStatusDraft

	key := SlotsCacheKey(timetableID)
	if cacheable {
		var cached []models.TimetableSlot
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return cached, nil
		}
	}

	slots, err := s.slots.ListByTimetable(ctx, timetableID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable slots")
	}
	if slots == nil {
		slots = []models.TimetableSlot{}
	}
	if cacheable {
		_ = s.cache.Set(ctx, key, slots, 0)
	}
	return slots, nil
}

// --- Commands ---

// Create stores a new draft timetable for a batch.
func (s *TimetableService) Create(ctx context.Context, req dto.CreateTimetableRequest, actorID string) (*models.Timetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validation.Error(err)
	}
	if _, err := s.batches.FindByID(ctx, req.BatchID); err != nil {
		return nil, notFoundOrInternal(err, "batch not found", "failed to load batch")
	}

	timetable := &models.Timetable{
		Name:         strings.TrimSpace(req.Name),
		BatchID:      req.BatchID,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
		Status:       models.TimetableStatusDraft,
		CreatedBy:    actorID,
	}
	if err := s.timetables.Create(ctx, nil, timetable); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
	}

	s.publish(ctx, events.Event{Type: events.TimetableCreated, TimetableID: timetable.ID, ActorID: actorID})
	return timetable, nil
}

// Update edits the descriptive fields of a draft timetable.
func (s *TimetableService) Update(ctx context.Context, id string, req dto.UpdateTimetableRequest, actorID string) (*models.Timetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validation.Error(err)
	}
	timetable, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "timetable not found", "failed to load timetable")
	}
	if timetable.Status != models.TimetableStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrInvalidStateTransition, "only draft timetables can be edited")
	}

	timetable.Name = strings.TrimSpace(req.Name)
	timetable.AcademicYear = req.AcademicYear
	timetable.Semester = req.Semester
	if err := s.timetables.UpdateDetails(ctx, timetable); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.staleTransition(ctx, id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timetable")
	}

	s.publish(ctx, events.Event{Type: events.TimetableUpdated, TimetableID: timetable.ID, ActorID: actorID})
	return timetable, nil
}

// Delete removes a timetable in any status together with its slots.
func (s *TimetableService) Delete(ctx context.Context, id, actorID string) error {
	if err := s.timetables.Delete(ctx, id); err != nil {
		return notFoundOrInternal(err, "timetable not found", "failed to delete timetable")
	}
	if err := s.cache.Invalidate(ctx, SlotsCacheKey(id)); err != nil {
		s.logger.Warn("failed to drop cached slots", zap.String("timetable_id", id), zap.Error(err))
	}
	s.publish(ctx, events.Event{Type: events.TimetableDeleted, TimetableID: id, ActorID: actorID})
	return nil
}

// TransitionStatus moves a timetable along a legal lifecycle edge. Approval
// records the actor as approver, rejection clears it and publishing stamps
// the publish time.
func (s *TimetableService) TransitionStatus(ctx context.Context, id string, to models.TimetableStatus, actorID string) (*models.Timetable, error) {
	if !to.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown timetable status")
	}
	current, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "timetable not found", "failed to load timetable")
	}
	from := current.Status
	if !CanTransition(from, to) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStateTransition, fmt.Sprintf("cannot move timetable from %s to %s", from, to))
	}

	updated := *current
	updated.Status = to
	switch {
	case to == models.TimetableStatusApproved:
		approver := actorID
		updated.ApprovedBy = &approver
	case from == models.TimetableStatusUnderReview && to == models.TimetableStatusDraft:
		updated.ApprovedBy = nil
	case to == models.TimetableStatusPublished:
		publishedAt := s.now()
		updated.PublishedAt = &publishedAt
	}

	if err := s.timetables.UpdateStatus(ctx, nil, &updated, from); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.staleTransition(ctx, id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timetable status")
	}

	s.metrics.RecordStatusTransition(string(from), string(to))
	s.logger.Info("timetable status changed",
		zap.String("timetable_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor_id", actorID),
	)
	s.publish(ctx, events.Event{
		Type:        events.TimetableStatusChanged,
		TimetableID: id,
		ActorID:     actorID,
		Data:        map[string]interface{}{"from": from, "to": to},
	})
	return &updated, nil
}

// staleTransition explains a status-guarded update that matched no row: the
// timetable was deleted or its status moved underneath us.
func (s *TimetableService) staleTransition(ctx context.Context, id string) error {
	if _, err := s.timetables.FindByID(ctx, id); err != nil {
		return notFoundOrInternal(err, "timetable not found", "failed to load timetable")
	}
	return appErrors.Clone(appErrors.ErrInvalidStateTransition, "timetable status changed concurrently")
}

func (s *TimetableService) publish(ctx context.Context, evt events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.logger.Warn("failed to publish timetable event", zap.String("type", string(evt.Type)), zap.Error(err))
	}
}
