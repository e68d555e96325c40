package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/uniportal-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositorySumActiveCredits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(credits), 0) FROM enrollments WHERE student_id = $1 AND semester = $2 AND status = $3")).
		WithArgs("stu-1", "2026-1", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(15))

	total, err := repo.SumActiveCredits(context.Background(), "stu-1", "2026-1")
	require.NoError(t, err)
	require.Equal(t, 15, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListActiveCodes(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"course_code"}).AddRow("CS101").AddRow("CS202")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT course_code FROM enrollments WHERE student_id = $1 AND semester = $2 AND status = $3")).
		WithArgs("stu-1", "2026-1", models.EnrollmentStatusActive).
		WillReturnRows(rows)

	codes, err := repo.ListActiveCodes(context.Background(), "stu-1", "2026-1")
	require.NoError(t, err)
	require.Equal(t, []string{"CS101", "CS202"}, codes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateBatchCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO enrollments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO enrollments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	batch := []models.Enrollment{
		{StudentID: "stu-1", CourseCode: "CS101", Semester: "2026-1", Credits: 3},
		{StudentID: "stu-1", CourseCode: "CS202", Semester: "2026-1", Credits: 4},
	}
	err := repo.CreateBatch(context.Background(), batch)
	require.NoError(t, err)
	require.NotEmpty(t, batch[0].ID)
	require.Equal(t, models.EnrollmentStatusActive, batch[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	droppedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, dropped_at = $3 WHERE id = $1")).
		WithArgs("enr-1", models.EnrollmentStatusDropped, &droppedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "enr-1", models.EnrollmentStatusDropped, &droppedAt)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
