package search

import (
	"sort"
	"time"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
)

const daysPerYear = 365.25

type interval struct{ start, end time.Time }

// ExperienceYears sums the union of the given work periods, in years.
// Open-ended periods, and periods ending in the future, run until now.
// Periods without a start date, or ending before they start, are ignored.
func ExperienceYears(periods []domain.WorkPeriod, now time.Time) float64 {
	ivs := make([]interval, 0, len(periods))
	for _, p := range periods {
		if p.Start.IsZero() || p.Start.After(now) {
			continue
		}
		end := now
		if p.End != nil && !p.End.IsZero() && p.End.Before(now) {
			end = p.End.Time
		}
		if end.Before(p.Start.Time) {
			continue
		}
		ivs = append(ivs, interval{start: p.Start.Time, end: end})
	}
	if len(ivs) == 0 {
		return 0
	}
	sort.Slice(ivs, func(i, j int) bool { return ivs[i].start.Before(ivs[j].start) })

	var total time.Duration
	cur := ivs[0]
	for _, iv := range ivs[1:] {
		if !iv.start.After(cur.end) {
			if iv.end.After(cur.end) {
				cur.end = iv.end
			}
			continue
		}
		total += cur.end.Sub(cur.start)
		cur = iv
	}
	total += cur.end.Sub(cur.start)
	return total.Hours() / 24 / daysPerYear
}
