package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusworks/uniportal-api/internal/models"
)

// GradeRepository handles persistence of awarded grades.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// ListByStudent returns the student's grades joined with course titles,
// optionally scoped to one semester.
func (r *GradeRepository) ListByStudent(ctx context.Context, studentID, semester string) ([]models.TranscriptRow, error) {
	query := `SELECT g.id, g.student_id, g.course_code, g.semester, g.credits, g.letter, g.updated_at,
        COALESCE(c.title, g.course_code) AS course_title
        FROM grades g
        LEFT JOIN course_offerings c ON c.code = g.course_code
        WHERE g.student_id = $1`
	args := []interface{}{studentID}
	if semester != "" {
		query += " AND g.semester = $2"
		args = append(args, semester)
	}
	query += " ORDER BY g.semester, g.course_code"

	var rows []models.TranscriptRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return rows, nil
}

// Upsert creates or replaces a grade for a student and course.
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	grade.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO grades (id, student_id, course_code, semester, credits, letter, updated_at)
        VALUES (:id, :student_id, :course_code, :semester, :credits, :letter, :updated_at)
        ON CONFLICT (student_id, course_code, semester) DO UPDATE SET
        credits = EXCLUDED.credits, letter = EXCLUDED.letter, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	return nil
}
