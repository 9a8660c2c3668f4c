package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AltamashPatel/edu-schedule-wiz/internal/dto"
	"github.com/AltamashPatel/edu-schedule-wiz/internal/models"
	appErrors "github.com/AltamashPatel/edu-schedule-wiz/pkg/errors"
	"github.com/AltamashPatel/edu-schedule-wiz/pkg/events"
)

// --- stubs ---

type timetableReaderStub struct {
	timetable *models.Timetable
	err       error
}

func (s timetableReaderStub) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.timetable == nil || s.timetable.ID != id {
		return nil, sql.ErrNoRows
	}
	clone := *s.timetable
	return &clone, nil
}

type batchReaderStub struct {
	batches map[string]*models.Batch
}

func (s batchReaderStub) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	batch, ok := s.batches[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return batch, nil
}

type slotStoreStub struct {
	committed   []models.TimetableSlot
	term        []models.TermSlot
	insertErr   error
	insertCalls int
	stored      []models.TimetableSlot
}

func (s *slotStoreStub) ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetableSlot, error) {
	return append(append([]models.TimetableSlot(nil), s.committed...), s.stored...), nil
}

func (s *slotStoreStub) ListByTerm(ctx context.Context, academicYear string, semester int, excludeTimetableID string) ([]models.TermSlot, error) {
	return s.term, nil
}

func (s *slotStoreStub) InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.TimetableSlot) error {
	s.insertCalls++
	if exec == nil {
		return errors.New("insert outside transaction")
	}
	if s.insertErr != nil {
		return s.insertErr
	}
	s.stored = append(s.stored, slots...)
	return nil
}

type resourceLoaderStub struct {
	pool       *ResourcePool
	err        error
	department string
}

func (s *resourceLoaderStub) Load(ctx context.Context, department string) (*ResourcePool, error) {
	s.department = department
	if s.err != nil {
		return nil, s.err
	}
	return s.pool, nil
}

type publisherStub struct {
	events []events.Event
}

func (p *publisherStub) Publish(ctx context.Context, evt events.Event) error {
	p.events = append(p.events, evt)
	return nil
}

type txMock struct {
	db *sqlx.DB
}

func (t *txMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func newTxMock(t *testing.T) (*txMock, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

// --- fixtures ---

func testPool(subjects, faculty, classrooms int) *ResourcePool {
	pool := &ResourcePool{}
	for i := 0; i < subjects; i++ {
		pool.Subjects = append(pool.Subjects, models.Subject{ID: fmt.Sprintf("sub-%d", i), Kind: models.SubjectKindCore})
	}
	for i := 0; i < faculty; i++ {
		availability := models.DefaultAvailability()
		pool.Faculty = append(pool.Faculty, models.Faculty{ID: fmt.Sprintf("fac-%d", i), MaxHoursPerWeek: 40, Availability: &availability})
	}
	for i := 0; i < classrooms; i++ {
		pool.Classrooms = append(pool.Classrooms, models.Classroom{ID: fmt.Sprintf("room-%d", i), Kind: models.ClassroomKindLecture})
	}
	return pool
}

type generatorFixture struct {
	service   *TimetableGeneratorService
	slots     *slotStoreStub
	resources *resourceLoaderStub
	publisher *publisherStub
	mock      sqlmock.Sqlmock
}

type generatorFixtureConfig struct {
	timetable *models.Timetable
	pool      *ResourcePool
	loadErr   error
	slots     *slotStoreStub
	blocked   []GridCell
}

func newGeneratorFixture(t *testing.T, cfg generatorFixtureConfig) generatorFixture {
	t.Helper()
	timetable := cfg.timetable
	if timetable == nil {
		timetable = &models.Timetable{ID: "tt-1", BatchID: "batch-1", AcademicYear: "2024-2025", Semester: 1, Status: models.TimetableStatusDraft}
	}
	pool := cfg.pool
	if pool == nil {
		pool = testPool(6, 6, 6)
	}
	slots := cfg.slots
	if slots == nil {
		slots = &slotStoreStub{}
	}
	resources := &resourceLoaderStub{pool: pool, err: cfg.loadErr}
	publisher := &publisherStub{}
	tx, mock := newTxMock(t)
	batches := batchReaderStub{batches: map[string]*models.Batch{
		"batch-1": {ID: "batch-1", Department: "CSE"},
		"batch-2": {ID: "batch-2", Department: "ECE"},
	}}

	svc := NewTimetableGeneratorService(
		timetableReaderStub{timetable: timetable},
		batches,
		slots,
		resources,
		tx,
		publisher,
		nil,
		nil,
		nil,
		zap.NewNop(),
		TimetableGeneratorConfig{BlockedCells: cfg.blocked},
	)
	return generatorFixture{service: svc, slots: slots, resources: resources, publisher: publisher, mock: mock}
}

func generateRequest() dto.GenerateSlotsRequest {
	return dto.GenerateSlotsRequest{TimetableID: "tt-1", BatchID: "batch-1", ActorID: "user-1"}
}

func assertNoDoubleBooking(t *testing.T, slots []models.TimetableSlot) {
	t.Helper()
	faculty := map[string]bool{}
	rooms := map[string]bool{}
	cells := map[string]bool{}
	for _, slot := range slots {
		cell := fmt.Sprintf("%d@%s", slot.DayOfWeek, slot.StartTime)
		assert.False(t, cells[cell], "batch double booked at %s", cell)
		assert.False(t, faculty[cell+slot.FacultyID], "faculty %s double booked at %s", slot.FacultyID, cell)
		assert.False(t, rooms[cell+slot.ClassroomID], "classroom %s double booked at %s", slot.ClassroomID, cell)
		cells[cell] = true
		faculty[cell+slot.FacultyID] = true
		rooms[cell+slot.ClassroomID] = true
	}
}

// --- tests ---

func TestTimetableGeneratorHonoursBlockedCells(t *testing.T) {
	fx := newGeneratorFixture(t, generatorFixtureConfig{})
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	result, err := fx.service.GenerateSlots(context.Background(), generateRequest())
	require.NoError(t, err)

	assert.Equal(t, 28, result.SlotsCreated)
	assert.Equal(t, 30, result.CellsConsidered)
	assert.Len(t, fx.slots.stored, 28)
	require.Len(t, result.SkippedCells, 2)
	assert.Equal(t, dto.SkippedCell{DayOfWeek: 1, WindowIndex: 3, StartTime: "12:30", Reason: dto.SkipReasonBlocked}, result.SkippedCells[0])
	assert.Equal(t, dto.SkippedCell{DayOfWeek: 3, WindowIndex: 4, StartTime: "14:30", Reason: dto.SkipReasonBlocked}, result.SkippedCells[1])

	for _, slot := range fx.slots.stored {
		assert.False(t, slot.DayOfWeek == 1 && slot.StartTime == "12:30")
		assert.False(t, slot.DayOfWeek == 3 && slot.StartTime == "14:30")
		assert.Equal(t, "tt-1", slot.TimetableID)
	}
	assertNoDoubleBooking(t, fx.slots.stored)
	assert.Equal(t, "CSE", fx.resources.department, "department defaults to the batch department")
	assert.NoError(t, fx.mock.ExpectationsWereMet())

	require.Len(t, fx.publisher.events, 1)
	assert.Equal(t, events.TimetableSlotsGenerated, fx.publisher.events[0].Type)
	assert.Equal(t, "user-1", fx.publisher.events[0].ActorID)
}

func TestTimetableGeneratorRoundRobinIsDeterministic(t *testing.T) {
	run := func() []models.TimetableSlot {
		fx := newGeneratorFixture(t, generatorFixtureConfig{pool: testPool(2, 3, 4), blocked: []GridCell{}})
		fx.mock.ExpectBegin()
		fx.mock.ExpectCommit()
		_, err := fx.service.GenerateSlots(context.Background(), generateRequest())
		require.NoError(t, err)
		return fx.slots.stored
	}

	first := run()
	second := run()
	require.Len(t, first, 30)
	require.Equal(t, len(first), len(second))

	for idx, slot := range first {
		window := idx % 6
		day := idx/6 + 1
		assert.Equal(t, day, slot.DayOfWeek)
		assert.Equal(t, fmt.Sprintf("sub-%d", window%2), slot.SubjectID)
		assert.Equal(t, fmt.Sprintf("fac-%d", window%3), slot.FacultyID)
		assert.Equal(t, fmt.Sprintf("room-%d", (window+day)%4), slot.ClassroomID)

		assert.Equal(t, slot.SubjectID, second[idx].SubjectID)
		assert.Equal(t, slot.FacultyID, second[idx].FacultyID)
		assert.Equal(t, slot.ClassroomID, second[idx].ClassroomID)
	}
}

func TestTimetableGeneratorAdvancesPastTermConflicts(t *testing.T) {
	slots := &slotStoreStub{term: []models.TermSlot{{
		BatchID: "batch-2",
		TimetableSlot: models.TimetableSlot{
			TimetableID: "tt-other", DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00",
			FacultyID: "fac-0", ClassroomID: "room-1",
		},
	}}}
	fx := newGeneratorFixture(t, generatorFixtureConfig{pool: testPool(2, 2, 3), slots: slots})
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	_, err := fx.service.GenerateSlots(context.Background(), generateRequest())
	require.NoError(t, err)

	first := fx.slots.stored[0]
	assert.Equal(t, 1, first.DayOfWeek)
	assert.Equal(t, "09:00", first.StartTime)
	assert.Equal(t, "fac-1", first.FacultyID, "booked faculty is skipped for the next in the pool")
	assert.Equal(t, "room-2", first.ClassroomID, "booked classroom is skipped for the next in the pool")

	for _, slot := range fx.slots.stored {
		if slot.DayOfWeek == 1 && slot.StartTime == "09:00" {
			assert.NotEqual(t, "fac-0", slot.FacultyID)
			assert.NotEqual(t, "room-1", slot.ClassroomID)
		}
	}
	assertNoDoubleBooking(t, fx.slots.stored)
}

func TestTimetableGeneratorSkipsWhenPoolsExhausted(t *testing.T) {
	slots := &slotStoreStub{
		committed: []models.TimetableSlot{
			{TimetableID: "tt-1", DayOfWeek: 2, StartTime: "09:00", EndTime: "10:00", FacultyID: "fac-9", ClassroomID: "room-9"},
		},
		term: []models.TermSlot{
			{BatchID: "batch-2", TimetableSlot: models.TimetableSlot{DayOfWeek: 1, StartTime: "10:00", EndTime: "11:00", FacultyID: "fac-0", ClassroomID: "room-5"}},
			{BatchID: "batch-2", TimetableSlot: models.TimetableSlot{DayOfWeek: 1, StartTime: "11:30", EndTime: "12:30", FacultyID: "fac-5", ClassroomID: "room-0"}},
		},
	}
	fx := newGeneratorFixture(t, generatorFixtureConfig{pool: testPool(1, 1, 1), slots: slots})
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	result, err := fx.service.GenerateSlots(context.Background(), generateRequest())
	require.NoError(t, err)

	reasons := map[string]string{}
	for _, cell := range result.SkippedCells {
		reasons[fmt.Sprintf("%d:%d", cell.DayOfWeek, cell.WindowIndex)] = cell.Reason
	}
	assert.Equal(t, dto.SkipReasonBatchConflict, reasons["2:0"])
	assert.Equal(t, dto.SkipReasonFacultyUnavailable, reasons["1:1"])
	assert.Equal(t, dto.SkipReasonClassroomConflict, reasons["1:2"])
	assert.Equal(t, dto.SkipReasonBlocked, reasons["1:3"])
	assert.Equal(t, 30-5, result.SlotsCreated)
	assertNoDoubleBooking(t, fx.slots.stored)
}

func TestTimetableGeneratorFacultyAvailability(t *testing.T) {
	pool := testPool(1, 2, 2)
	mornings := models.Availability{}
	for day := 1; day <= 5; day++ {
		mornings[day] = models.DayAvailability{Morning: true}
	}
	pool.Faculty[0].Availability = &mornings
	pool.Faculty[1].Availability = nil

	fx := newGeneratorFixture(t, generatorFixtureConfig{pool: pool, blocked: []GridCell{}})
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	result, err := fx.service.GenerateSlots(context.Background(), generateRequest())
	require.NoError(t, err)

	// Only the three windows starting before noon remain bookable each day.
	assert.Equal(t, 15, result.SlotsCreated)
	for _, slot := range fx.slots.stored {
		assert.Equal(t, "fac-0", slot.FacultyID)
		assert.Contains(t, []string{"09:00", "10:00", "11:30"}, slot.StartTime)
	}
	for _, cell := range result.SkippedCells {
		assert.Equal(t, dto.SkipReasonFacultyUnavailable, cell.Reason)
	}
}

func TestTimetableGeneratorNothingToCommit(t *testing.T) {
	pool := testPool(1, 1, 1)
	pool.Faculty[0].Availability = nil
	fx := newGeneratorFixture(t, generatorFixtureConfig{pool: pool})

	result, err := fx.service.GenerateSlots(context.Background(), generateRequest())
	require.NoError(t, err)
	assert.Zero(t, result.SlotsCreated)
	assert.Len(t, result.SkippedCells, 30)
	assert.Zero(t, fx.slots.insertCalls)
	assert.NoError(t, fx.mock.ExpectationsWereMet(), "no transaction is opened")
}

func TestTimetableGeneratorLabRouting(t *testing.T) {
	pool := testPool(3, 6, 6)
	pool.Subjects[0].Kind = models.SubjectKindCore
	pool.Subjects[1].Kind = models.SubjectKindLab
	pool.Subjects[2].Kind = models.SubjectKindElective

	fx := newGeneratorFixture(t, generatorFixtureConfig{pool: pool})
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	_, err := fx.service.GenerateSlots(context.Background(), generateRequest())
	require.NoError(t, err)
	require.NotEmpty(t, fx.slots.stored)
	for _, slot := range fx.slots.stored {
		if slot.SubjectID == "sub-1" {
			assert.Equal(t, models.SlotKindLab, slot.Kind)
		} else {
			assert.Equal(t, models.SlotKindLecture, slot.Kind)
		}
	}
}

func TestTimetableGeneratorPrefersMatchingRooms(t *testing.T) {
	pool := testPool(2, 6, 4)
	pool.Subjects[1].Kind = models.SubjectKindLab
	pool.Classrooms[3].Kind = models.ClassroomKindLab

	fx := newGeneratorFixture(t, generatorFixtureConfig{pool: pool, blocked: []GridCell{}})
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	_, err := fx.service.GenerateSlots(context.Background(), generateRequest())
	require.NoError(t, err)
	require.Len(t, fx.slots.stored, 30)
	for _, slot := range fx.slots.stored {
		if slot.Kind == models.SlotKindLab {
			assert.Equal(t, "room-3", slot.ClassroomID, "lab on day %d at %s", slot.DayOfWeek, slot.StartTime)
		} else {
			assert.NotEqual(t, "room-3", slot.ClassroomID, "lecture on day %d at %s", slot.DayOfWeek, slot.StartTime)
		}
	}
	assertNoDoubleBooking(t, fx.slots.stored)
}

func TestTimetableGeneratorLabFallsBackToAnyFreeRoom(t *testing.T) {
	pool := testPool(1, 2, 2)
	pool.Subjects[0].Kind = models.SubjectKindLab
	pool.Classrooms[1].Kind = models.ClassroomKindLab
	slots := &slotStoreStub{term: []models.TermSlot{{
		BatchID:         "batch-2",
		TimetableStatus: models.TimetableStatusPublished,
		TimetableSlot: models.TimetableSlot{
			TimetableID: "tt-other", DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00",
			FacultyID: "fac-9", ClassroomID: "room-1",
		},
	}}}

	fx := newGeneratorFixture(t, generatorFixtureConfig{pool: pool, slots: slots, blocked: []GridCell{}})
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	_, err := fx.service.GenerateSlots(context.Background(), generateRequest())
	require.NoError(t, err)
	require.Len(t, fx.slots.stored, 30)
	first := fx.slots.stored[0]
	assert.Equal(t, "09:00", first.StartTime)
	assert.Equal(t, "room-0", first.ClassroomID, "the only lab room is taken, so a lecture room hosts the lab")
	assert.Equal(t, "room-1", fx.slots.stored[1].ClassroomID)
}

func TestTimetableGeneratorSiblingDraftDoesNotBlockBatch(t *testing.T) {
	slots := &slotStoreStub{term: []models.TermSlot{}}
	for day := 1; day <= 5; day++ {
		for _, start := range []string{"09:00", "10:00", "11:30", "12:30", "14:30", "15:30"} {
			slots.term = append(slots.term, models.TermSlot{
				BatchID:         "batch-1",
				TimetableStatus: models.TimetableStatusDraft,
				TimetableSlot: models.TimetableSlot{
					TimetableID: "tt-earlier-draft", DayOfWeek: day, StartTime: start,
					FacultyID: "fac-90", ClassroomID: "room-90",
				},
			})
		}
	}

	fx := newGeneratorFixture(t, generatorFixtureConfig{slots: slots})
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	result, err := fx.service.GenerateSlots(context.Background(), generateRequest())
	require.NoError(t, err)
	assert.Equal(t, 28, result.SlotsCreated)
	for _, cell := range result.SkippedCells {
		assert.Equal(t, dto.SkipReasonBlocked, cell.Reason)
	}
}

func TestTimetableGeneratorEmptyPoolFailsBeforeWrites(t *testing.T) {
	subjects := &subjectListerStub{items: []models.Subject{{ID: "sub-1"}}}
	faculty := &facultyListerStub{}
	rooms := &classroomListerStub{items: []models.Classroom{{ID: "room-1"}}}
	catalog := NewResourceCatalog(subjects, faculty, rooms, 0)

	slots := &slotStoreStub{}
	tx, mock := newTxMock(t)
	svc := NewTimetableGeneratorService(
		timetableReaderStub{timetable: &models.Timetable{ID: "tt-1", BatchID: "batch-1", Status: models.TimetableStatusDraft}},
		batchReaderStub{batches: map[string]*models.Batch{"batch-1": {ID: "batch-1", Department: "CSE"}}},
		slots, catalog, tx, nil, nil, nil, nil, nil, TimetableGeneratorConfig{},
	)

	result, err := svc.GenerateSlots(context.Background(), generateRequest())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, appErrors.ErrEmptyResourcePool.Code, appErrors.FromError(err).Code)
	assert.Equal(t, "no faculty found for this department", appErrors.FromError(err).Message)
	assert.Zero(t, slots.insertCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableGeneratorAtomicCommit(t *testing.T) {
	existing := []models.TimetableSlot{{TimetableID: "tt-1", DayOfWeek: 5, StartTime: "15:30", EndTime: "16:30", FacultyID: "fac-0", ClassroomID: "room-0"}}
	slots := &slotStoreStub{committed: existing, insertErr: errors.New("disk full")}
	fx := newGeneratorFixture(t, generatorFixtureConfig{slots: slots})
	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()

	before, _ := slots.ListByTimetable(context.Background(), "tt-1")
	result, err := fx.service.GenerateSlots(context.Background(), generateRequest())
	require.Error(t, err)
	assert.Nil(t, result)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPersistenceFailure.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, 1, slots.insertCalls)

	after, _ := slots.ListByTimetable(context.Background(), "tt-1")
	assert.Equal(t, before, after)
	assert.Empty(t, fx.publisher.events)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestTimetableGeneratorUniqueViolationIsConflict(t *testing.T) {
	slots := &slotStoreStub{insertErr: fmt.Errorf("insert timetable slots: %w", &pq.Error{Code: "23505", Constraint: "uq_timetable_slots_faculty"})}
	fx := newGeneratorFixture(t, generatorFixtureConfig{slots: slots})
	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()

	_, err := fx.service.GenerateSlots(context.Background(), generateRequest())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPersistenceFailure.Code, appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestTimetableGeneratorCommitFailure(t *testing.T) {
	fx := newGeneratorFixture(t, generatorFixtureConfig{})
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	_, err := fx.service.GenerateSlots(context.Background(), generateRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPersistenceFailure.Code, appErrors.FromError(err).Code)
}

func TestTimetableGeneratorPreconditions(t *testing.T) {
	t.Run("timetable missing", func(t *testing.T) {
		fx := newGeneratorFixture(t, generatorFixtureConfig{})
		req := generateRequest()
		req.TimetableID = "missing"
		_, err := fx.service.GenerateSlots(context.Background(), req)
		assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	})

	t.Run("batch missing", func(t *testing.T) {
		fx := newGeneratorFixture(t, generatorFixtureConfig{})
		req := generateRequest()
		req.BatchID = "missing"
		_, err := fx.service.GenerateSlots(context.Background(), req)
		assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	})

	t.Run("batch mismatch", func(t *testing.T) {
		fx := newGeneratorFixture(t, generatorFixtureConfig{})
		req := generateRequest()
		req.BatchID = "batch-2"
		_, err := fx.service.GenerateSlots(context.Background(), req)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	})

	t.Run("not draft", func(t *testing.T) {
		fx := newGeneratorFixture(t, generatorFixtureConfig{timetable: &models.Timetable{ID: "tt-1", BatchID: "batch-1", Status: models.TimetableStatusApproved}})
		_, err := fx.service.GenerateSlots(context.Background(), generateRequest())
		assert.Equal(t, appErrors.ErrInvalidStateTransition.Code, appErrors.FromError(err).Code)
	})

	t.Run("missing ids", func(t *testing.T) {
		fx := newGeneratorFixture(t, generatorFixtureConfig{})
		_, err := fx.service.GenerateSlots(context.Background(), dto.GenerateSlotsRequest{})
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		assert.NotNil(t, appErr.Details)
	})

	t.Run("explicit department", func(t *testing.T) {
		fx := newGeneratorFixture(t, generatorFixtureConfig{loadErr: appErrors.Clone(appErrors.ErrEmptyResourcePool, "no subjects found for this department")})
		req := generateRequest()
		req.Department = "  MECH "
		_, err := fx.service.GenerateSlots(context.Background(), req)
		assert.Equal(t, appErrors.ErrEmptyResourcePool.Code, appErrors.FromError(err).Code)
		assert.Equal(t, "MECH", fx.resources.department)
	})
}

func TestTimetableGeneratorLoadAdvisories(t *testing.T) {
	pool := testPool(1, 1, 2)
	pool.Faculty[0].MaxHoursPerWeek = 10
	fx := newGeneratorFixture(t, generatorFixtureConfig{pool: pool})
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	result, err := fx.service.GenerateSlots(context.Background(), generateRequest())
	require.NoError(t, err)
	require.Len(t, result.Advisories, 1)
	assert.Equal(t, "fac-0", result.Advisories[0].FacultyID)
	assert.Equal(t, 10, result.Advisories[0].MaxHoursPerWeek)
	assert.InDelta(t, float64(result.SlotsCreated), result.Advisories[0].ScheduledHours, 0.001)
	assert.Equal(t, 28, result.SlotsCreated, "advisories never block generation")
}
