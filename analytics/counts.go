// Package analytics computes the aggregates served by the dashboard:
// category counts over flattened rows, monthly and cumulative notification
// counts, the originator-vs-issuer cross-tabulation and the GDP correlation.
package analytics

import (
	"sort"
	"time"

	"stsdash/normalization"
)

// CountItem is one bar of a categorical count.
type CountItem struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// PublicOnly filters to publicly notified securitisations. Most dashboard
// views exclude private deals because their register entries carry too little
// data to aggregate.
func PublicOnly(rows []normalization.Row) []normalization.Row {
	var out []normalization.Row
	for _, r := range rows {
		if r.PrivateOrPublic == "Public" {
			out = append(out, r)
		}
	}
	return out
}

// CountDistinct counts securitisations rather than rows: derived flatten
// copies have their identifier cleared and are skipped.
func CountDistinct(rows []normalization.Row) int {
	n := 0
	for _, r := range rows {
		if r.USI != "" {
			n++
		}
	}
	return n
}

// CountBy flattens rows on col and counts them per member value. A row with
// a Combo of two countries therefore contributes one count to each country.
// Missing values are not a category. Results are ordered by count descending,
// label ascending on ties.
func CountBy(rows []normalization.Row, col normalization.Column) []CountItem {
	flat := normalization.FlattenBy(rows, col)
	counts := make(map[string]int)
	for _, r := range flat {
		v := col.Get(&r)
		if v.IsMissing() {
			continue
		}
		counts[v.Key()]++
	}
	return sorted(counts)
}

// CountByField counts rows per value of a plain string field such as the
// asset class or ABCP status. Empty values are not a category.
func CountByField(rows []normalization.Row, get func(normalization.Row) string) []CountItem {
	counts := make(map[string]int)
	for _, r := range rows {
		if v := get(r); v != "" {
			counts[v]++
		}
	}
	return sorted(counts)
}

func sorted(counts map[string]int) []CountItem {
	items := make([]CountItem, 0, len(counts))
	for label, n := range counts {
		items = append(items, CountItem{Label: label, Count: n})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Label < items[j].Label
	})
	return items
}

// monthLabel renders a month the way the dashboard axes show it.
func monthLabel(t time.Time) string {
	return t.Format("Jan 2006")
}

// MonthlyCounts counts new notifications per calendar month, in
// chronological order. Months inside the covered span with no notifications
// appear with a zero count so the series has no gaps. Rows without a
// notification date are skipped.
func MonthlyCounts(rows []normalization.Row) []CountItem {
	perMonth := make(map[time.Time]int)
	var first, last time.Time
	for _, r := range rows {
		if r.NotificationDate.IsZero() {
			continue
		}
		m := time.Date(r.NotificationDate.Year(), r.NotificationDate.Month(), 1, 0, 0, 0, 0, time.UTC)
		perMonth[m]++
		if first.IsZero() || m.Before(first) {
			first = m
		}
		if m.After(last) {
			last = m
		}
	}
	if first.IsZero() {
		return nil
	}

	var items []CountItem
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		items = append(items, CountItem{Label: monthLabel(m), Count: perMonth[m]})
	}
	return items
}

// DateCount is one point of the cumulative notification series.
type DateCount struct {
	Date  time.Time `json:"date"`
	Total int       `json:"total"`
}

// CumulativeCounts returns the running total of notifications per
// notification date, ascending. Rows without a notification date are
// skipped.
func CumulativeCounts(rows []normalization.Row) []DateCount {
	perDate := make(map[time.Time]int)
	for _, r := range rows {
		if r.NotificationDate.IsZero() {
			continue
		}
		perDate[r.NotificationDate]++
	}
	dates := make([]time.Time, 0, len(perDate))
	for d := range perDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := make([]DateCount, 0, len(dates))
	total := 0
	for _, d := range dates {
		total += perDate[d]
		out = append(out, DateCount{Date: d, Total: total})
	}
	return out
}
