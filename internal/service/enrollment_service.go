package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/campusworks/uniportal-api/internal/models"
	"github.com/campusworks/uniportal-api/internal/selection"
	appErrors "github.com/campusworks/uniportal-api/pkg/errors"
)

type selectionStore interface {
	Get(ctx context.Context, studentID string) (*selection.Session, error)
	Save(ctx context.Context, sess *selection.Session, expectedRevision int64) error
	Delete(ctx context.Context, studentID string) error
}

type enrollmentStore interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	SumActiveCredits(ctx context.Context, studentID, semester string) (int, error)
	CreateBatch(ctx context.Context, enrollments []models.Enrollment) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, droppedAt *time.Time) error
}

type courseFinder interface {
	FindByCode(ctx context.Context, code string) (*models.CourseOffering, error)
}

type studentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type windowResolver interface {
	Window(ctx context.Context) (open bool, maxCredits int, semester string, err error)
}

// SelectionView is the full selection state returned to the client after
// every read or mutation: the session itself, the derived credit summary
// and the evaluated commit gate. The client renders it; it never derives
// its own totals.
type SelectionView struct {
	Session    *selection.Session `json:"session"`
	Summary    selection.Summary  `json:"summary"`
	Gate       selection.Gate     `json:"gate"`
	WindowOpen bool               `json:"window_open"`
}

// EnrollmentService owns the selection workflow: the server-side session
// registry, the credit summary, drop recommendations and the finalization
// gate. All mutations are compare-and-set on the session revision.
type EnrollmentService struct {
	selections         selectionStore
	enrollments        enrollmentStore
	courses            courseFinder
	students           studentFinder
	settings           windowResolver
	recommendationSize int
	metrics            *MetricsService
	logger             *zap.Logger
	now                func() time.Time
}

// NewEnrollmentService constructs the service. recommendationSize caps the
// non-elective part of drop recommendations; zero means no cap.
func NewEnrollmentService(selections selectionStore, enrollments enrollmentStore, courses courseFinder, students studentFinder, settings windowResolver, recommendationSize int, metrics *MetricsService, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		selections:         selections,
		enrollments:        enrollments,
		courses:            courses,
		students:           students,
		settings:           settings,
		recommendationSize: recommendationSize,
		metrics:            metrics,
		logger:             logger,
		now:                func() time.Time { return time.Now().UTC() },
	}
}

// StartOrGet returns the student's selection session, creating an empty one
// when none exists. Base credits are re-read from committed enrollments on
// every call so the summary never trusts a stale snapshot.
func (s *EnrollmentService) StartOrGet(ctx context.Context, studentID string) (*SelectionView, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	windowOpen, maxCredits, semester, err := s.settings.Window(ctx)
	if err != nil {
		return nil, err
	}

	sess, err := s.selections.Get(ctx, studentID)
	switch {
	case errors.Is(err, appErrors.ErrCacheMiss):
		base, err := s.enrollments.SumActiveCredits(ctx, studentID, semester)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute base credits")
		}
		sess = selection.NewSession(studentID, semester, base)
		if err := s.selections.Save(ctx, sess, 0); err != nil && !errors.Is(err, appErrors.ErrStaleRevision) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist selection")
		}
	case err != nil:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load selection")
	default:
		base, err := s.enrollments.SumActiveCredits(ctx, studentID, sess.Semester)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute base credits")
		}
		if base != sess.BaseCredits {
			sess.BaseCredits = base
			if err := s.selections.Save(ctx, sess, sess.Revision); err != nil && !errors.Is(err, appErrors.ErrStaleRevision) {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist selection")
			}
		}
	}

	return s.view(sess, *student, maxCredits, windowOpen), nil
}

// Toggle flips the presence of a course in the selection. Per the registry
// rules a toggle against a locked course or a closed window is a silent
// no-op: the current view is returned unchanged and no error is raised.
func (s *EnrollmentService) Toggle(ctx context.Context, studentID, courseCode string, revision int64) (*SelectionView, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	course, err := s.courses.FindByCode(ctx, courseCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	windowOpen, maxCredits, _, err := s.settings.Window(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := s.loadSession(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if sess.Revision != revision {
		return nil, appErrors.ErrStaleRevision
	}

	if changed := sess.Toggle(*course, windowOpen); changed {
		if err := s.selections.Save(ctx, sess, revision); err != nil {
			if errors.Is(err, appErrors.ErrStaleRevision) {
				return nil, appErrors.ErrStaleRevision
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist selection")
		}
	}
	return s.view(sess, *student, maxCredits, windowOpen), nil
}

// Summary returns the current selection view without mutating it.
func (s *EnrollmentService) Summary(ctx context.Context, studentID string) (*SelectionView, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	windowOpen, maxCredits, _, err := s.settings.Window(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := s.loadSession(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return s.view(sess, *student, maxCredits, windowOpen), nil
}

// Recommendation computes a drop suggestion for an over-limit selection.
// The result is ephemeral and recomputed on every call.
func (s *EnrollmentService) Recommendation(ctx context.Context, studentID string) (*models.DropRecommendation, error) {
	_, maxCredits, _, err := s.settings.Window(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := s.loadSession(ctx, studentID)
	if err != nil {
		return nil, err
	}
	rec := selection.Recommend(sess, maxCredits, s.recommendationSize)
	return &rec, nil
}

// ApplyDrops removes exactly the given course codes from the selection in
// one batch.
func (s *EnrollmentService) ApplyDrops(ctx context.Context, studentID string, codes []string, revision int64) (*SelectionView, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	windowOpen, maxCredits, _, err := s.settings.Window(ctx)
	if err != nil {
		return nil, err
	}
	if !windowOpen {
		return nil, appErrors.ErrWindowClosed
	}
	sess, err := s.loadSession(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if sess.State == selection.StateCommitted {
		return nil, appErrors.ErrAlreadyCommitted
	}
	if sess.Revision != revision {
		return nil, appErrors.ErrStaleRevision
	}

	if removed := sess.Remove(codes); removed > 0 {
		if err := s.selections.Save(ctx, sess, revision); err != nil {
			if errors.Is(err, appErrors.ErrStaleRevision) {
				return nil, appErrors.ErrStaleRevision
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist selection")
		}
	}
	return s.view(sess, *student, maxCredits, windowOpen), nil
}

// Commit finalizes the selection. When routing resolves to track selection
// no enrollments are written and the session is kept; the caller is told to
// run the track flow first. On the normal path the gate must pass, rows are
// written in one batch with credits snapshotted, and the session is
// removed.
func (s *EnrollmentService) Commit(ctx context.Context, studentID string, revision int64) (*models.CommitResult, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	windowOpen, maxCredits, semester, err := s.settings.Window(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := s.loadSession(ctx, studentID)
	if err != nil {
		return nil, err
	}

	if sess.State == selection.StateCommitted {
		return nil, appErrors.ErrAlreadyCommitted
	}
	if sess.Size() == 0 {
		return nil, appErrors.ErrEmptySelection
	}
	if !windowOpen {
		return nil, appErrors.ErrWindowClosed
	}
	if sess.Revision != revision {
		return nil, appErrors.ErrStaleRevision
	}

	sum := sess.Summarize(maxCredits)
	gate := selection.Evaluate(sess, *student, sum, windowOpen)
	if !gate.CanCommit {
		if sum.OverLimit {
			return nil, appErrors.ErrCreditLimit
		}
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, gate.Reason)
	}

	if gate.Routing == models.RoutingSelectTrack {
		s.metrics.RecordCommit(string(models.RoutingSelectTrack))
		return &models.CommitResult{
			Success: false,
			Message: "major track selection is required before the selection can be committed",
			Routing: models.RoutingSelectTrack,
		}, nil
	}

	// Claim the session before writing rows so a concurrent commit or
	// toggle loses the race at the revision check, not at the database.
	sess.State = selection.StateValidating
	if err := s.selections.Save(ctx, sess, revision); err != nil {
		if errors.Is(err, appErrors.ErrStaleRevision) {
			return nil, appErrors.ErrStaleRevision
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist selection")
	}

	now := s.now()
	rows := make([]models.Enrollment, 0, sess.Size())
	details := make([]models.EnrollmentDetail, 0, sess.Size())
	for _, c := range sess.Selected {
		row := models.Enrollment{
			StudentID:  studentID,
			CourseCode: c.Code,
			Semester:   semester,
			Credits:    c.Credits,
			Status:     models.EnrollmentStatusActive,
			EnrolledAt: now,
		}
		rows = append(rows, row)
		details = append(details, models.EnrollmentDetail{
			Enrollment:    row,
			CourseTitle:   c.Title,
			StudentName:   student.FullName,
			StudentNumber: student.Number,
		})
	}
	if err := s.enrollments.CreateBatch(ctx, rows); err != nil {
		sess.State = selection.StateIdle
		if revertErr := s.selections.Save(ctx, sess, sess.Revision); revertErr != nil {
			s.logger.Warn("failed to revert selection state", zap.String("student_id", studentID), zap.Error(revertErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write enrollments")
	}
	for i := range details {
		details[i].ID = rows[i].ID
	}

	if err := s.selections.Delete(ctx, studentID); err != nil {
		s.logger.Warn("failed to remove committed selection", zap.String("student_id", studentID), zap.Error(err))
	}
	s.metrics.RecordCommit(string(models.RoutingCommit))

	return &models.CommitResult{
		Success:     true,
		Message:     "enrollment committed",
		Routing:     models.RoutingCommit,
		Enrollments: details,
	}, nil
}

// List returns committed enrollments for staff and student views.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	rows, total, err := s.enrollments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return rows, pagination, nil
}

// Drop marks a committed enrollment as dropped. When actorStudentID is
// non-empty the enrollment must belong to that student.
func (s *EnrollmentService) Drop(ctx context.Context, enrollmentID, actorStudentID string) error {
	row, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if actorStudentID != "" && row.StudentID != actorStudentID {
		return appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another student")
	}
	if row.Status == models.EnrollmentStatusDropped {
		return appErrors.Clone(appErrors.ErrConflict, "enrollment already dropped")
	}
	windowOpen, _, _, err := s.settings.Window(ctx)
	if err != nil {
		return err
	}
	if !windowOpen {
		return appErrors.ErrWindowClosed
	}
	droppedAt := s.now()
	if err := s.enrollments.UpdateStatus(ctx, enrollmentID, models.EnrollmentStatusDropped, &droppedAt); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop enrollment")
	}
	return nil
}

func (s *EnrollmentService) loadStudent(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *EnrollmentService) loadSession(ctx context.Context, studentID string) (*selection.Session, error) {
	sess, err := s.selections.Get(ctx, studentID)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no selection in progress")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load selection")
	}
	return sess, nil
}

func (s *EnrollmentService) view(sess *selection.Session, student models.Student, maxCredits int, windowOpen bool) *SelectionView {
	sum := sess.Summarize(maxCredits)
	gate := selection.Evaluate(sess, student, sum, windowOpen)
	return &SelectionView{Session: sess, Summary: sum, Gate: gate, WindowOpen: windowOpen}
}
