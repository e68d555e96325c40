package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/uniportal-api/internal/middleware"
	"github.com/campusworks/uniportal-api/internal/models"
	"github.com/campusworks/uniportal-api/internal/selection"
	"github.com/campusworks/uniportal-api/internal/service"
)

type enrollmentServiceMock struct {
	view      *service.SelectionView
	viewErr   error
	commit    *models.CommitResult
	commitErr error

	lastStudentID  string
	lastCourseCode string
	lastCodes      []string
	lastRevision   int64
	lastFilter     models.EnrollmentFilter
	lastActor      string
	lastDropID     string
}

func (m *enrollmentServiceMock) StartOrGet(_ context.Context, studentID string) (*service.SelectionView, error) {
	m.lastStudentID = studentID
	return m.view, m.viewErr
}

func (m *enrollmentServiceMock) Toggle(_ context.Context, studentID, courseCode string, revision int64) (*service.SelectionView, error) {
	m.lastStudentID = studentID
	m.lastCourseCode = courseCode
	m.lastRevision = revision
	return m.view, m.viewErr
}

func (m *enrollmentServiceMock) Summary(_ context.Context, studentID string) (*service.SelectionView, error) {
	m.lastStudentID = studentID
	return m.view, m.viewErr
}

func (m *enrollmentServiceMock) Recommendation(_ context.Context, studentID string) (*models.DropRecommendation, error) {
	m.lastStudentID = studentID
	return &models.DropRecommendation{}, nil
}

func (m *enrollmentServiceMock) ApplyDrops(_ context.Context, studentID string, codes []string, revision int64) (*service.SelectionView, error) {
	m.lastStudentID = studentID
	m.lastCodes = codes
	m.lastRevision = revision
	return m.view, m.viewErr
}

func (m *enrollmentServiceMock) Commit(_ context.Context, studentID string, revision int64) (*models.CommitResult, error) {
	m.lastStudentID = studentID
	m.lastRevision = revision
	return m.commit, m.commitErr
}

func (m *enrollmentServiceMock) List(_ context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	m.lastFilter = filter
	return nil, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (m *enrollmentServiceMock) Drop(_ context.Context, enrollmentID, actorStudentID string) error {
	m.lastDropID = enrollmentID
	m.lastActor = actorStudentID
	return nil
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent, StudentID: "stu-1"}
}

func selectionViewFixture() *service.SelectionView {
	sess := selection.NewSession("stu-1", "2026-1", 12)
	return &service.SelectionView{Session: sess, Summary: sess.Summarize(18), WindowOpen: true}
}

func TestStartSelectionRequiresStudentProfile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEnrollmentHandler(&enrollmentServiceMock{})

	c, w := newGinContext(http.MethodPost, "/enrollment/selection", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	handler.StartSelection(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestStartSelectionStaffActsViaQueryParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{view: selectionViewFixture()}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/enrollment/selection?student_id=stu-9", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff})

	handler.StartSelection(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "stu-9", mockSvc.lastStudentID)
}

func TestToggleNormalizesCourseCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{view: selectionViewFixture()}
	handler := NewEnrollmentHandler(mockSvc)

	payload, _ := json.Marshal(toggleRequest{CourseCode: "cs101", Revision: 3})
	c, w := newGinContext(http.MethodPost, "/enrollment/selection/toggle", payload)
	c.Set(middleware.ContextUserKey, studentClaims())

	handler.Toggle(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "CS101", mockSvc.lastCourseCode)
	require.Equal(t, int64(3), mockSvc.lastRevision)
}

func TestCommitReturnsRoutingDecision(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{
		commit: &models.CommitResult{Success: false, Routing: models.RoutingSelectTrack},
	}
	handler := NewEnrollmentHandler(mockSvc)

	payload, _ := json.Marshal(commitRequest{Revision: 2})
	c, w := newGinContext(http.MethodPost, "/enrollment/selection/commit", payload)
	c.Set(middleware.ContextUserKey, studentClaims())

	handler.Commit(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), string(models.RoutingSelectTrack))
	require.Equal(t, int64(2), mockSvc.lastRevision)
}

func TestListScopesStudentsToOwnRows(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/enrollments?student_id=stu-9", nil)
	c.Set(middleware.ContextUserKey, studentClaims())

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "stu-1", mockSvc.lastFilter.StudentID, "student_id query is ignored for students")
}

func TestDropPassesOwnershipActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newGinContext(http.MethodDelete, "/enrollments/enr-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}
	c.Set(middleware.ContextUserKey, studentClaims())

	handler.Drop(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "enr-1", mockSvc.lastDropID)
	require.Equal(t, "stu-1", mockSvc.lastActor)

	c, w = newGinContext(http.MethodDelete, "/enrollments/enr-2", nil)
	c.Params = gin.Params{{Key: "id", Value: "enr-2"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.Drop(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, mockSvc.lastActor, "admins are not ownership constrained")
}
