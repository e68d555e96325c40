package models

import "time"

// GradeLetter is the letter grade awarded for a completed course.
type GradeLetter string

const (
	GradeA GradeLetter = "A"
	GradeB GradeLetter = "B"
	GradeC GradeLetter = "C"
	GradeD GradeLetter = "D"
	GradeE GradeLetter = "E"
)

// Point maps a letter grade to its grade-point value.
func (g GradeLetter) Point() float64 {
	switch g {
	case GradeA:
		return 4.0
	case GradeB:
		return 3.0
	case GradeC:
		return 2.0
	case GradeD:
		return 1.0
	default:
		return 0.0
	}
}

// Grade records an awarded grade for a student and course.
type Grade struct {
	ID         string      `db:"id" json:"id"`
	StudentID  string      `db:"student_id" json:"student_id"`
	CourseCode string      `db:"course_code" json:"course_code"`
	Semester   string      `db:"semester" json:"semester"`
	Credits    int         `db:"credits" json:"credits"`
	Letter     GradeLetter `db:"letter" json:"letter"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}

// TranscriptRow joins a grade with its course title for display.
type TranscriptRow struct {
	Grade
	CourseTitle string `db:"course_title" json:"course_title"`
}

// Transcript aggregates a student's grades with the derived GPA.
type Transcript struct {
	StudentID    string          `json:"student_id"`
	Rows         []TranscriptRow `json:"rows"`
	TotalCredits int             `json:"total_credits"`
	GPA          float64         `json:"gpa"`
}
