package scraper

import "time"

// DateRange is an inclusive window of calendar dates.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether d falls inside the window, ignoring time of day.
func (r DateRange) Contains(d time.Time) bool {
	d = Day(d)
	return !d.Before(Day(r.From)) && !d.After(Day(r.To))
}

func (r DateRange) String() string {
	return r.From.Format(dateFormat) + ".." + r.To.Format(dateFormat)
}

// Planner splits [from, to] into fetchable windows.
type Planner func(from, to time.Time) []DateRange

// SplitDateRange splits [from, to] into consecutive windows of at most
// chunkDays days.
func SplitDateRange(from, to time.Time, chunkDays int) []DateRange {
	if from.After(to) || chunkDays <= 0 {
		return nil
	}

	var chunks []DateRange
	for cur := from; !cur.After(to); cur = cur.AddDate(0, 0, chunkDays) {
		end := cur.AddDate(0, 0, chunkDays-1)
		if end.After(to) {
			end = to
		}
		chunks = append(chunks, DateRange{From: cur, To: end})
	}
	return chunks
}

// SplitMonths splits [from, to] at calendar month boundaries. The first and
// last windows are clipped to from and to.
func SplitMonths(from, to time.Time) []DateRange {
	if from.After(to) {
		return nil
	}

	var chunks []DateRange
	for cur := from; !cur.After(to); {
		next := time.Date(cur.Year(), cur.Month()+1, 1, 0, 0, 0, 0, cur.Location())
		end := next.AddDate(0, 0, -1)
		if end.After(to) {
			end = to
		}
		chunks = append(chunks, DateRange{From: cur, To: end})
		cur = next
	}
	return chunks
}

// DayPlanner returns a Planner that uses fixed windows of chunkDays days, or
// calendar months when chunkDays is not positive.
func DayPlanner(chunkDays int) Planner {
	if chunkDays <= 0 {
		return SplitMonths
	}
	return func(from, to time.Time) []DateRange {
		return SplitDateRange(from, to, chunkDays)
	}
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
