package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campusworks/uniportal-api/internal/models"
)

// CourseRepository handles persistence of course offerings.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `code, title, credits, type, enrollable, schedule, error_reason, semester, created_at, updated_at`

// List returns offerings filtered by the provided criteria.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseOffering, int, error) {
	base := `FROM course_offerings`
	var conditions []string
	var args []interface{}

	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.Enrollable != nil {
		conditions = append(conditions, fmt.Sprintf("enrollable = $%d", len(args)+1))
		args = append(args, *filter.Enrollable)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(code ILIKE $%d OR title ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"code":    "code",
		"title":   "title",
		"credits": "credits",
		"type":    "type",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "code"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "code"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		courseColumns, base+clause, orderBy, order, size, offset)

	var courses []models.CourseOffering
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByCode returns a single offering by its course code.
func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*models.CourseOffering, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_offerings WHERE code = $1`, courseColumns)
	var course models.CourseOffering
	if err := r.db.GetContext(ctx, &course, query, code); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindByCodes returns the offerings for the given codes, keyed by code.
func (r *CourseRepository) FindByCodes(ctx context.Context, codes []string) (map[string]models.CourseOffering, error) {
	if len(codes) == 0 {
		return map[string]models.CourseOffering{}, nil
	}
	placeholders := make([]string, len(codes))
	args := make([]interface{}, len(codes))
	for i, code := range codes {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = code
	}
	query := fmt.Sprintf(`SELECT %s FROM course_offerings WHERE code IN (%s)`,
		courseColumns, strings.Join(placeholders, ","))

	var courses []models.CourseOffering
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("find courses by codes: %w", err)
	}
	result := make(map[string]models.CourseOffering, len(courses))
	for _, c := range courses {
		result[c.Code] = c
	}
	return result, nil
}

// Create persists a new offering.
func (r *CourseRepository) Create(ctx context.Context, course *models.CourseOffering) error {
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO course_offerings (code, title, credits, type, enrollable, schedule, error_reason, semester, created_at, updated_at)
        VALUES (:code, :title, :credits, :type, :enrollable, :schedule, :error_reason, :semester, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of an offering.
func (r *CourseRepository) Update(ctx context.Context, course *models.CourseOffering) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE course_offerings SET title = :title, credits = :credits, type = :type,
        enrollable = :enrollable, schedule = :schedule, error_reason = :error_reason, updated_at = :updated_at
        WHERE code = :code`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}
