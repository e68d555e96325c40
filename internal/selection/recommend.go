package selection

import (
	"fmt"
	"sort"

	"github.com/campusworks/uniportal-api/internal/models"
)

// Recommend computes a drop suggestion for an over-limit session: at most
// one elective (the cheapest) is nominated first, then further selected
// courses by ascending credits until dropping the suggested set would
// bring the total back under the ceiling. maxOthers caps the non-elective
// part of the list; zero means no cap. The result is ephemeral and
// deterministic for a given session.
func Recommend(sess *Session, maxCredits, maxOthers int) models.DropRecommendation {
	sum := sess.Summarize(maxCredits)
	if !sum.OverLimit {
		return models.DropRecommendation{Message: "selection is within the credit limit"}
	}

	rec := models.DropRecommendation{CreditsToDrop: sum.CreditsOver}
	remaining := sum.CreditsOver

	pool := sess.Values()
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Credits < pool[j].Credits })

	for i, c := range pool {
		if c.Type == models.CourseTypeElective {
			elective := pool[i]
			rec.Elective = &elective
			rec.SelectedCodes = append(rec.SelectedCodes, elective.Code)
			remaining -= elective.Credits
			pool = append(pool[:i], pool[i+1:]...)
			break
		}
	}

	for _, c := range pool {
		if remaining <= 0 {
			break
		}
		if maxOthers > 0 && len(rec.Others) >= maxOthers {
			break
		}
		rec.Others = append(rec.Others, c)
		rec.SelectedCodes = append(rec.SelectedCodes, c.Code)
		remaining -= c.Credits
	}

	rec.Message = fmt.Sprintf("selection exceeds the %d credit limit by %d; drop the suggested courses to continue", maxCredits, sum.CreditsOver)
	return rec
}
