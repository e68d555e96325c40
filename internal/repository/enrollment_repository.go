package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusworks/uniportal-api/internal/models"
)

// EnrollmentRepository handles persistence of committed enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN course_offerings c ON c.code = e.course_code
LEFT JOIN students s ON s.id = e.student_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseCode != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_code = $%d", len(args)+1))
		args = append(args, filter.CourseCode)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("e.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"enrolled_at":  "e.enrolled_at",
		"course_code":  "e.course_code",
		"student_name": "s.full_name",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "enrolled_at"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "e.enrolled_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.course_code, e.semester, e.credits, e.status, e.enrolled_at, e.dropped_at,
        c.title AS course_title, s.full_name AS student_name, s.student_number AS student_number
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_code, semester, credits, status, enrolled_at, dropped_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// SumActiveCredits returns the total credits a student already holds for
// the semester. Feeds the credit accumulator as base credits.
func (r *EnrollmentRepository) SumActiveCredits(ctx context.Context, studentID, semester string) (int, error) {
	const query = `SELECT COALESCE(SUM(credits), 0) FROM enrollments WHERE student_id = $1 AND semester = $2 AND status = $3`
	var total int
	if err := r.db.GetContext(ctx, &total, query, studentID, semester, models.EnrollmentStatusActive); err != nil {
		return 0, fmt.Errorf("sum active credits: %w", err)
	}
	return total, nil
}

// ListActiveCodes returns course codes the student is already enrolled in
// for the semester. Used to lock already-taken courses in the catalog view.
func (r *EnrollmentRepository) ListActiveCodes(ctx context.Context, studentID, semester string) ([]string, error) {
	const query = `SELECT course_code FROM enrollments WHERE student_id = $1 AND semester = $2 AND status = $3`
	var codes []string
	if err := r.db.SelectContext(ctx, &codes, query, studentID, semester, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list active course codes: %w", err)
	}
	return codes, nil
}

// CreateBatch persists one enrollment row per selected course in a single
// transaction. All rows commit or none do.
func (r *EnrollmentRepository) CreateBatch(ctx context.Context, enrollments []models.Enrollment) error {
	if len(enrollments) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment batch: %w", err)
	}
	const query = `INSERT INTO enrollments (id, student_id, course_code, semester, credits, status, enrolled_at, dropped_at)
        VALUES (:id, :student_id, :course_code, :semester, :credits, :status, :enrolled_at, :dropped_at)`
	for i := range enrollments {
		e := &enrollments[i]
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.EnrolledAt.IsZero() {
			e.EnrolledAt = time.Now().UTC()
		}
		if e.Status == "" {
			e.Status = models.EnrollmentStatusActive
		}
		if _, err := tx.NamedExecContext(ctx, query, e); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("create enrollment %s: %w", e.CourseCode, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment batch: %w", err)
	}
	return nil
}

// UpdateStatus updates status and dropped_at for an enrollment.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, droppedAt *time.Time) error {
	const query = `UPDATE enrollments SET status = $2, dropped_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, droppedAt); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}
