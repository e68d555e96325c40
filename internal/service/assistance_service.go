package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/campusworks/uniportal-api/internal/models"
	appErrors "github.com/campusworks/uniportal-api/pkg/errors"
)

type catalogLister interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseOffering, int, error)
}

// AssistanceServiceConfig tunes the suggestion engine.
type AssistanceServiceConfig struct {
	Enabled        bool
	MaxSuggestions int
	Semester       string
}

// AssistanceService matches free-text help requests against the catalog.
// Scoring is plain keyword overlap over code, title and schedule; it runs
// on every request and stores nothing.
type AssistanceService struct {
	courses catalogLister
	logger  *zap.Logger
	cfg     AssistanceServiceConfig
}

// NewAssistanceService constructs the service.
func NewAssistanceService(courses catalogLister, logger *zap.Logger, cfg AssistanceServiceConfig) *AssistanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = 5
	}
	return &AssistanceService{courses: courses, logger: logger, cfg: cfg}
}

// Enabled reports whether the assistance endpoint is active.
func (s *AssistanceService) Enabled() bool {
	return s != nil && s.cfg.Enabled
}

// Suggest scores enrollable offerings against the query and returns the
// top matches.
func (s *AssistanceService) Suggest(ctx context.Context, query string) ([]models.AssistanceSuggestion, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "query must not be empty")
	}

	enrollable := true
	courses, _, err := s.courses.List(ctx, models.CourseFilter{
		Semester:   s.cfg.Semester,
		Enrollable: &enrollable,
		PageSize:   200,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
	}

	var suggestions []models.AssistanceSuggestion
	for _, course := range courses {
		score, matched := scoreCourse(course, terms)
		if score == 0 {
			continue
		}
		suggestions = append(suggestions, models.AssistanceSuggestion{
			Course: course,
			Score:  score,
			Reason: fmt.Sprintf("matched %s", strings.Join(matched, ", ")),
		})
	}
	sort.SliceStable(suggestions, func(i, j int) bool { return suggestions[i].Score > suggestions[j].Score })
	if len(suggestions) > s.cfg.MaxSuggestions {
		suggestions = suggestions[:s.cfg.MaxSuggestions]
	}
	return suggestions, nil
}

func tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'")
		if len(f) >= 2 {
			terms = append(terms, f)
		}
	}
	return terms
}

func scoreCourse(course models.CourseOffering, terms []string) (int, []string) {
	code := strings.ToLower(course.Code)
	title := strings.ToLower(course.Title)
	schedule := strings.ToLower(course.Schedule)

	score := 0
	var matched []string
	for _, term := range terms {
		switch {
		case code == term:
			score += 5
			matched = append(matched, term)
		case strings.Contains(title, term):
			score += 3
			matched = append(matched, term)
		case strings.Contains(code, term):
			score += 2
			matched = append(matched, term)
		case strings.Contains(schedule, term):
			score++
			matched = append(matched, term)
		}
	}
	return score, matched
}
