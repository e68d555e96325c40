package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/uniportal-api/internal/models"
	"github.com/campusworks/uniportal-api/internal/selection"
	appErrors "github.com/campusworks/uniportal-api/pkg/errors"
)

type memorySelectionStore struct {
	sessions map[string][]byte
}

func newMemorySelectionStore() *memorySelectionStore {
	return &memorySelectionStore{sessions: make(map[string][]byte)}
}

func (m *memorySelectionStore) Get(_ context.Context, studentID string) (*selection.Session, error) {
	raw, ok := m.sessions[studentID]
	if !ok {
		return nil, appErrors.ErrCacheMiss
	}
	var sess selection.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (m *memorySelectionStore) Save(_ context.Context, sess *selection.Session, expectedRevision int64) error {
	raw, ok := m.sessions[sess.StudentID]
	if !ok {
		if expectedRevision != 0 {
			return appErrors.ErrStaleRevision
		}
	} else {
		var stored selection.Session
		if err := json.Unmarshal(raw, &stored); err != nil {
			return err
		}
		if stored.Revision != expectedRevision {
			return appErrors.ErrStaleRevision
		}
	}
	sess.Revision = expectedRevision + 1
	sess.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	m.sessions[sess.StudentID] = payload
	return nil
}

func (m *memorySelectionStore) Delete(_ context.Context, studentID string) error {
	delete(m.sessions, studentID)
	return nil
}

type stubEnrollmentStore struct {
	baseCredits int
	created     []models.Enrollment
	createErr   error
	rows        []models.EnrollmentDetail
	byID        map[string]*models.Enrollment
	updated     map[string]models.EnrollmentStatus
}

func (s *stubEnrollmentStore) List(_ context.Context, _ models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return s.rows, len(s.rows), nil
}

func (s *stubEnrollmentStore) FindByID(_ context.Context, id string) (*models.Enrollment, error) {
	if row, ok := s.byID[id]; ok {
		return row, nil
	}
	return nil, errors.New("sql: no rows in result set")
}

func (s *stubEnrollmentStore) SumActiveCredits(_ context.Context, _, _ string) (int, error) {
	return s.baseCredits, nil
}

func (s *stubEnrollmentStore) CreateBatch(_ context.Context, enrollments []models.Enrollment) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, enrollments...)
	return nil
}

func (s *stubEnrollmentStore) UpdateStatus(_ context.Context, id string, status models.EnrollmentStatus, _ *time.Time) error {
	if s.updated == nil {
		s.updated = map[string]models.EnrollmentStatus{}
	}
	s.updated[id] = status
	return nil
}

type stubCourseFinder struct {
	courses map[string]models.CourseOffering
}

func (s *stubCourseFinder) FindByCode(_ context.Context, code string) (*models.CourseOffering, error) {
	if c, ok := s.courses[code]; ok {
		return &c, nil
	}
	return nil, errors.New("sql: no rows in result set")
}

type stubStudentFinder struct {
	student models.Student
}

func (s *stubStudentFinder) FindByID(_ context.Context, _ string) (*models.Student, error) {
	st := s.student
	return &st, nil
}

type stubWindow struct {
	open       bool
	maxCredits int
	semester   string
}

func (s *stubWindow) Window(_ context.Context) (bool, int, string, error) {
	return s.open, s.maxCredits, s.semester, nil
}

func course(code string, credits int, typ models.CourseType) models.CourseOffering {
	return models.CourseOffering{Code: code, Title: "Course " + code, Credits: credits, Type: typ, Enrollable: true, Semester: "2026-1"}
}

func lockedCourse(code string, credits int) models.CourseOffering {
	c := course(code, credits, models.CourseTypeCore)
	c.Enrollable = false
	return c
}

type enrollmentFixture struct {
	svc      *EnrollmentService
	store    *memorySelectionStore
	enroll   *stubEnrollmentStore
	finder   *stubCourseFinder
	students *stubStudentFinder
	window   *stubWindow
}

func newEnrollmentFixture(student models.Student, baseCredits, maxCredits int, courses ...models.CourseOffering) *enrollmentFixture {
	byCode := map[string]models.CourseOffering{}
	for _, c := range courses {
		byCode[c.Code] = c
	}
	store := newMemorySelectionStore()
	enroll := &stubEnrollmentStore{baseCredits: baseCredits}
	finder := &stubCourseFinder{courses: byCode}
	students := &stubStudentFinder{student: student}
	window := &stubWindow{open: true, maxCredits: maxCredits, semester: "2026-1"}
	svc := NewEnrollmentService(store, enroll, finder, students, window, 0, nil, nil)
	return &enrollmentFixture{svc: svc, store: store, enroll: enroll, finder: finder, students: students, window: window}
}

func trackedStudent() models.Student {
	track := "Software Engineering"
	major := "Computer Science"
	return models.Student{ID: "stu-1", FullName: "Alex Doe", Number: "2023001", CurrentYear: 3, Major: &major, Track: &track, Status: models.StudentStatusActive}
}

func TestStartOrGetCreatesSessionWithFreshBaseCredits(t *testing.T) {
	fx := newEnrollmentFixture(trackedStudent(), 15, 18)
	ctx := context.Background()

	view, err := fx.svc.StartOrGet(ctx, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 15, view.Summary.BaseCredits)
	assert.Equal(t, 15, view.Summary.TotalCredits)
	assert.False(t, view.Summary.OverLimit)
	assert.Equal(t, selection.StateIdle, view.Session.State)
	assert.EqualValues(t, 1, view.Session.Revision)
}

func TestSummaryOverLimitBlocksCommit(t *testing.T) {
	// A student holding 15 committed credits against an 18 credit ceiling
	// picks a 4 credit course: the total reaches 19 and the gate blocks the
	// commit until the overflow is resolved.
	fx := newEnrollmentFixture(trackedStudent(), 15, 18, course("CS401", 4, models.CourseTypeCore))
	ctx := context.Background()

	view, err := fx.svc.StartOrGet(ctx, "stu-1")
	require.NoError(t, err)

	view, err = fx.svc.Toggle(ctx, "stu-1", "CS401", view.Session.Revision)
	require.NoError(t, err)
	assert.Equal(t, 19, view.Summary.TotalCredits)
	assert.True(t, view.Summary.OverLimit)
	assert.Equal(t, 1, view.Summary.CreditsOver)
	assert.True(t, view.Session.PanelOpen)
	assert.False(t, view.Gate.CanCommit)

	_, err = fx.svc.Commit(ctx, "stu-1", view.Session.Revision)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrCreditLimit.Code, appErr.Code)
}

func TestRecommendationDropFlowThenCommit(t *testing.T) {
	fx := newEnrollmentFixture(trackedStudent(), 12, 18,
		course("CS401", 4, models.CourseTypeCore),
		course("CS102", 3, models.CourseTypeCore),
		course("EL101", 2, models.CourseTypeElective),
	)
	ctx := context.Background()

	view, err := fx.svc.StartOrGet(ctx, "stu-1")
	require.NoError(t, err)
	for _, code := range []string{"CS401", "CS102", "EL101"} {
		view, err = fx.svc.Toggle(ctx, "stu-1", code, view.Session.Revision)
		require.NoError(t, err)
	}
	assert.Equal(t, 21, view.Summary.TotalCredits)
	assert.Equal(t, 3, view.Summary.CreditsOver)

	rec, err := fx.svc.Recommendation(ctx, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.CreditsToDrop)
	require.NotNil(t, rec.Elective)
	assert.Equal(t, "EL101", rec.Elective.Code, "cheapest elective is nominated first")
	assert.Equal(t, []string{"EL101", "CS102"}, rec.SelectedCodes)

	// Dropping the suggested set brings the total back under the limit.
	view, err = fx.svc.ApplyDrops(ctx, "stu-1", rec.SelectedCodes, view.Session.Revision)
	require.NoError(t, err)
	assert.False(t, view.Summary.OverLimit)
	assert.Equal(t, 16, view.Summary.TotalCredits)
	require.Equal(t, 1, view.Session.Size())
	assert.True(t, view.Gate.CanCommit)

	result, err := fx.svc.Commit(ctx, "stu-1", view.Session.Revision)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.RoutingCommit, result.Routing)
	require.Len(t, fx.enroll.created, 1)
	assert.Equal(t, "CS401", fx.enroll.created[0].CourseCode)
	assert.Equal(t, "2026-1", fx.enroll.created[0].Semester)

	// The session is gone after a successful commit.
	_, err = fx.svc.Summary(ctx, "stu-1")
	require.Error(t, err)
}

func TestRecommendationHonorsConfiguredCap(t *testing.T) {
	offerings := []models.CourseOffering{
		course("CS101", 2, models.CourseTypeCore),
		course("CS202", 2, models.CourseTypeCore),
		course("CS303", 2, models.CourseTypeCore),
		course("CS404", 2, models.CourseTypeCore),
	}
	byCode := map[string]models.CourseOffering{}
	for _, c := range offerings {
		byCode[c.Code] = c
	}
	store := newMemorySelectionStore()
	enroll := &stubEnrollmentStore{baseCredits: 20}
	window := &stubWindow{open: true, maxCredits: 24, semester: "2026-1"}
	svc := NewEnrollmentService(store, enroll, &stubCourseFinder{courses: byCode}, &stubStudentFinder{student: trackedStudent()}, window, 1, nil, nil)
	ctx := context.Background()

	view, err := svc.StartOrGet(ctx, "stu-1")
	require.NoError(t, err)
	for _, c := range offerings {
		view, err = svc.Toggle(ctx, "stu-1", c.Code, view.Session.Revision)
		require.NoError(t, err)
	}
	require.Equal(t, 4, view.Summary.CreditsOver)

	rec, err := svc.Recommendation(ctx, "stu-1")
	require.NoError(t, err)
	assert.Nil(t, rec.Elective)
	assert.Len(t, rec.Others, 1)
}

func TestToggleLockedCourseIsSilentNoOp(t *testing.T) {
	fx := newEnrollmentFixture(trackedStudent(), 0, 18, lockedCourse("CS999", 3))
	ctx := context.Background()

	view, err := fx.svc.StartOrGet(ctx, "stu-1")
	require.NoError(t, err)
	before := view.Session.Revision

	view, err = fx.svc.Toggle(ctx, "stu-1", "CS999", before)
	require.NoError(t, err)
	assert.Zero(t, view.Session.Size())
	assert.False(t, view.Session.PanelOpen)
	assert.Equal(t, before, view.Session.Revision)
}

func TestToggleWhileWindowClosedIsSilentNoOp(t *testing.T) {
	fx := newEnrollmentFixture(trackedStudent(), 0, 18, course("CS101", 3, models.CourseTypeCore))
	ctx := context.Background()

	view, err := fx.svc.StartOrGet(ctx, "stu-1")
	require.NoError(t, err)
	fx.window.open = false

	view, err = fx.svc.Toggle(ctx, "stu-1", "CS101", view.Session.Revision)
	require.NoError(t, err)
	assert.Zero(t, view.Session.Size())
}

func TestToggleRemovalWorksForCourseLockedAfterSelection(t *testing.T) {
	fx := newEnrollmentFixture(trackedStudent(), 0, 18, course("CS101", 3, models.CourseTypeCore))
	ctx := context.Background()

	view, err := fx.svc.StartOrGet(ctx, "stu-1")
	require.NoError(t, err)
	view, err = fx.svc.Toggle(ctx, "stu-1", "CS101", view.Session.Revision)
	require.NoError(t, err)
	require.Equal(t, 1, view.Session.Size())

	// Catalog flips the course to non-enrollable; removal must still work.
	fx.finder.courses["CS101"] = lockedCourse("CS101", 3)
	view, err = fx.svc.Toggle(ctx, "stu-1", "CS101", view.Session.Revision)
	require.NoError(t, err)
	assert.Zero(t, view.Session.Size())
	assert.True(t, view.Session.PanelOpen, "panel stays open after removal")
}

func TestToggleStaleRevisionRejected(t *testing.T) {
	fx := newEnrollmentFixture(trackedStudent(), 0, 18, course("CS101", 3, models.CourseTypeCore))
	ctx := context.Background()

	view, err := fx.svc.StartOrGet(ctx, "stu-1")
	require.NoError(t, err)
	_, err = fx.svc.Toggle(ctx, "stu-1", "CS101", view.Session.Revision)
	require.NoError(t, err)

	// A second writer still holding the old revision loses.
	_, err = fx.svc.Toggle(ctx, "stu-1", "CS101", view.Session.Revision)
	require.ErrorIs(t, err, appErrors.ErrStaleRevision)
}

func TestCommitEmptySelectionRejected(t *testing.T) {
	fx := newEnrollmentFixture(trackedStudent(), 0, 18)
	ctx := context.Background()

	view, err := fx.svc.StartOrGet(ctx, "stu-1")
	require.NoError(t, err)

	_, err = fx.svc.Commit(ctx, "stu-1", view.Session.Revision)
	require.ErrorIs(t, err, appErrors.ErrEmptySelection)
}

func TestCommitClosedWindowRejected(t *testing.T) {
	fx := newEnrollmentFixture(trackedStudent(), 0, 18, course("CS101", 3, models.CourseTypeCore))
	ctx := context.Background()

	view, err := fx.svc.StartOrGet(ctx, "stu-1")
	require.NoError(t, err)
	view, err = fx.svc.Toggle(ctx, "stu-1", "CS101", view.Session.Revision)
	require.NoError(t, err)

	fx.window.open = false
	_, err = fx.svc.Commit(ctx, "stu-1", view.Session.Revision)
	require.ErrorIs(t, err, appErrors.ErrWindowClosed)
}

func TestCommitRoutesNewStudentToTrackSelection(t *testing.T) {
	student := models.Student{ID: "stu-2", FullName: "Sam Lee", Number: "2026010", CurrentYear: 1, New: true, Status: models.StudentStatusActive}
	fx := newEnrollmentFixture(student, 0, 24, course("MJ301", 3, models.CourseTypeMajor))
	ctx := context.Background()

	view, err := fx.svc.StartOrGet(ctx, "stu-2")
	require.NoError(t, err)
	view, err = fx.svc.Toggle(ctx, "stu-2", "MJ301", view.Session.Revision)
	require.NoError(t, err)
	assert.Equal(t, models.RoutingSelectTrack, view.Gate.Routing)
	assert.True(t, view.Gate.CanCommit)

	result, err := fx.svc.Commit(ctx, "stu-2", view.Session.Revision)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, models.RoutingSelectTrack, result.Routing)
	assert.Empty(t, fx.enroll.created)

	// The session survives so it can be committed after the track flow.
	_, err = fx.svc.Summary(ctx, "stu-2")
	require.NoError(t, err)
}

func TestCommitSucceedsAfterTrackSelection(t *testing.T) {
	student := models.Student{ID: "stu-2", FullName: "Sam Lee", Number: "2026010", CurrentYear: 1, New: true, Status: models.StudentStatusActive}
	fx := newEnrollmentFixture(student, 0, 24, course("MJ301", 3, models.CourseTypeMajor))
	ctx := context.Background()

	view, err := fx.svc.StartOrGet(ctx, "stu-2")
	require.NoError(t, err)
	view, err = fx.svc.Toggle(ctx, "stu-2", "MJ301", view.Session.Revision)
	require.NoError(t, err)

	result, err := fx.svc.Commit(ctx, "stu-2", view.Session.Revision)
	require.NoError(t, err)
	require.Equal(t, models.RoutingSelectTrack, result.Routing)

	// Track selection clears the new-student flag and records major and
	// track, same as StudentService.SelectTrack persists them.
	major, track := "Computer Science", "Software Engineering"
	fx.students.student.Major = &major
	fx.students.student.Track = &track
	fx.students.student.New = false

	view, err = fx.svc.Summary(ctx, "stu-2")
	require.NoError(t, err)
	assert.Equal(t, models.RoutingCommit, view.Gate.Routing)

	result, err = fx.svc.Commit(ctx, "stu-2", view.Session.Revision)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.RoutingCommit, result.Routing)
	assert.NotEmpty(t, fx.enroll.created)
}

func TestCommitRevertsSessionWhenBatchWriteFails(t *testing.T) {
	fx := newEnrollmentFixture(trackedStudent(), 0, 18, course("CS101", 3, models.CourseTypeCore))
	fx.enroll.createErr = errors.New("db down")
	ctx := context.Background()

	view, err := fx.svc.StartOrGet(ctx, "stu-1")
	require.NoError(t, err)
	view, err = fx.svc.Toggle(ctx, "stu-1", "CS101", view.Session.Revision)
	require.NoError(t, err)

	_, err = fx.svc.Commit(ctx, "stu-1", view.Session.Revision)
	require.Error(t, err)

	after, err := fx.store.Get(ctx, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, selection.StateIdle, after.State)
}

func TestDropEnforcesOwnershipAndWindow(t *testing.T) {
	fx := newEnrollmentFixture(trackedStudent(), 0, 18)
	fx.enroll.byID = map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", StudentID: "stu-1", Status: models.EnrollmentStatusActive},
	}
	ctx := context.Background()

	err := fx.svc.Drop(ctx, "enr-1", "stu-other")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	require.NoError(t, fx.svc.Drop(ctx, "enr-1", "stu-1"))
	assert.Equal(t, models.EnrollmentStatusDropped, fx.enroll.updated["enr-1"])

	fx.window.open = false
	fx.enroll.byID["enr-2"] = &models.Enrollment{ID: "enr-2", StudentID: "stu-1", Status: models.EnrollmentStatusActive}
	err = fx.svc.Drop(ctx, "enr-2", "stu-1")
	require.ErrorIs(t, err, appErrors.ErrWindowClosed)
}
