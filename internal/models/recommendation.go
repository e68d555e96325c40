package models

// DropRecommendation is a transient suggestion of selected courses to
// remove so the selection fits the credit ceiling. It has no identity and
// is recomputed on every request, never stored.
type DropRecommendation struct {
	Elective      *CourseOffering  `json:"elective"`
	Others        []CourseOffering `json:"others"`
	CreditsToDrop int              `json:"credits_to_drop"`
	Message       string           `json:"message"`
	// SelectedCodes seeds the client's pre-checked drop set.
	SelectedCodes []string `json:"drop_selected_codes"`
}

// AssistanceSuggestion is one scored catalog match for a free-text
// assistance request.
type AssistanceSuggestion struct {
	Course CourseOffering `json:"course"`
	Score  int            `json:"score"`
	Reason string         `json:"reason"`
}
