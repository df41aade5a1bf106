package scheduling

import "time"

// Overlaps reports whether the half-open intervals [start1, end1) and
// [start2, end2) intersect. Intervals that merely touch do not overlap, so a
// follow-up appointment can begin the minute the previous one ends. Empty
// intervals overlap nothing.
func Overlaps(start1, end1, start2, end2 time.Time) bool {
	if !start1.Before(end1) || !start2.Before(end2) {
		return false
	}
	return start1.Before(end2) && start2.Before(end1)
}
