package identity

import "time"

// CohortLayout is the date-only label format for cohorts.
const CohortLayout = "2006-01-02"

// CohortID labels the week containing t by its Monday, on or before t, in t's location.
func CohortID(t time.Time) string {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	monday := time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
	return monday.Format(CohortLayout)
}
