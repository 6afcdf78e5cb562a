package report

import (
	"fmt"
	"strings"
)

// FormatTotals renders totals on one line.
func FormatTotals(t Totals) string {
	return fmt.Sprintf("%.0f kcal  P %.1fg  C %.1fg  F %.1fg", t.Calories, t.Protein, t.Carbs, t.Fat)
}

// DaySummary renders a day as plain text, one entry per line.
func DaySummary(d DayTotal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", d.Date)
	if len(d.Entries) == 0 {
		b.WriteString("  no entries\n")
	}
	for _, e := range d.Entries {
		fmt.Fprintf(&b, "  #%d %s, %g%s: %.0f kcal\n", e.ID, e.Name, e.Quantity, e.Unit, e.Calories)
	}
	fmt.Fprintf(&b, "Total: %s\n", FormatTotals(d.Totals))
	return b.String()
}

// WeekSummary renders seven day totals.
func WeekSummary(days []DayTotal) string {
	var b strings.Builder
	var total Totals
	for _, d := range days {
		fmt.Fprintf(&b, "%s  %s\n", d.Date, FormatTotals(d.Totals))
		total = total.Add(d.Totals)
	}
	fmt.Fprintf(&b, "Week: %s\n", FormatTotals(total))
	return b.String()
}

// MonthSummary renders ISO-week buckets.
func MonthSummary(buckets []WeekBucket) string {
	var b strings.Builder
	for _, w := range buckets {
		fmt.Fprintf(&b, "W%02d (from %s, %d days)  %s  avg %.0f kcal/day\n",
			w.ISOWeek, w.StartDate(), w.DaysInMonth, FormatTotals(w.Totals), w.DailyAverage.Calories)
	}
	if len(buckets) == 0 {
		b.WriteString("no weeks\n")
	}
	return b.String()
}
