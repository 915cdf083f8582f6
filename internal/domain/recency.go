package domain

import (
	"time"
)

// Recency bucket labels, in display order.
const (
	BucketToday     = "Today"
	BucketYesterday = "Yesterday"
	BucketLastWeek  = "Last 7 Days"
	BucketOlder     = "Older"
)

// RecencyGroup is one sidebar bucket: a label and the sessions that fall into it.
type RecencyGroup struct {
	Label    string    `json:"label"`
	Sessions []Session `json:"sessions"`
}

// GroupByRecency buckets sessions by the calendar day of their UpdatedAt,
// relative to now and in now's location. Buckets appear in the fixed order
// Today, Yesterday, Last 7 Days, Older; empty buckets are omitted and the
// input order is preserved within each bucket.
func GroupByRecency(now time.Time, sessions []Session) []RecencyGroup {
	today := startOfDay(now)
	yesterday := today.AddDate(0, 0, -1)
	weekAgo := today.AddDate(0, 0, -7)

	buckets := map[string][]Session{}
	for _, s := range sessions {
		day := startOfDay(s.UpdatedAt.In(now.Location()))
		var label string
		switch {
		case day.Equal(today):
			label = BucketToday
		case day.Equal(yesterday):
			label = BucketYesterday
		case !day.Before(weekAgo):
			label = BucketLastWeek
		default:
			label = BucketOlder
		}
		buckets[label] = append(buckets[label], s)
	}

	var out []RecencyGroup
	for _, label := range []string{BucketToday, BucketYesterday, BucketLastWeek, BucketOlder} {
		if group := buckets[label]; len(group) > 0 {
			out = append(out, RecencyGroup{Label: label, Sessions: group})
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
