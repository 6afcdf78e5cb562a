package report

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jwulff/calo/internal/db"
)

type memReader struct {
	mu    sync.Mutex
	days  map[string][]db.FoodEntry
	reads []string
	fail  string
}

func (m *memReader) EntriesForDate(_ context.Context, date string) ([]db.FoodEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = append(m.reads, date)
	if date == m.fail {
		return nil, errors.New("read failed")
	}
	return append([]db.FoodEntry{}, m.days[date]...), nil
}

func entry(date string, kcal float64) db.FoodEntry {
	return db.FoodEntry{Date: date, Name: "x", Calories: kcal, Protein: kcal / 10, Carbs: kcal / 20, Fat: kcal / 40}
}

func TestSumEntriesEmpty(t *testing.T) {
	if got := SumEntries(nil); got != (Totals{}) {
		t.Errorf("SumEntries(nil) = %+v, want zero", got)
	}
}

func TestSumEntries(t *testing.T) {
	got := SumEntries([]db.FoodEntry{entry("2024-06-03", 100), entry("2024-06-03", 250)})
	if got.Calories != 350 || got.Protein != 35 {
		t.Errorf("got %+v", got)
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct{ in, want string }{
		{"2024-06-03", "2024-06-03"}, // Monday
		{"2024-06-05", "2024-06-03"},
		{"2024-06-09", "2024-06-03"}, // Sunday
		{"2024-06-10", "2024-06-10"},
		{"2025-01-01", "2024-12-30"},
	}
	for _, tt := range tests {
		d, _ := ParseDate(tt.in)
		if got := FormatDate(WeekStart(d)); got != tt.want {
			t.Errorf("WeekStart(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestWeekHasSevenDays(t *testing.T) {
	r := &memReader{days: map[string][]db.FoodEntry{
		"2024-06-05": {entry("2024-06-05", 500)},
	}}

	days, err := Week(context.Background(), r, "2024-06-07")
	if err != nil {
		t.Fatalf("Week: %v", err)
	}
	if len(days) != 7 {
		t.Fatalf("got %d days, want 7", len(days))
	}
	if days[0].Date != "2024-06-03" || days[6].Date != "2024-06-09" {
		t.Errorf("range = %s..%s", days[0].Date, days[6].Date)
	}
	for i, d := range days {
		want := 0.0
		if d.Date == "2024-06-05" {
			want = 500
		}
		if d.Totals.Calories != want {
			t.Errorf("days[%d] %s calories = %v, want %v", i, d.Date, d.Totals.Calories, want)
		}
	}
}

func TestWeekBadDate(t *testing.T) {
	if _, err := Week(context.Background(), &memReader{}, "june third"); err == nil {
		t.Error("expected parse error")
	}
}

func TestMonthBucketsByISOWeek(t *testing.T) {
	r := &memReader{days: map[string][]db.FoodEntry{
		"2024-06-03": {entry("2024-06-03", 150)},
		"2024-06-04": {entry("2024-06-04", 200)},
	}}

	buckets, err := Month(context.Background(), r, 2024, time.June)
	if err != nil {
		t.Fatalf("Month: %v", err)
	}
	if len(r.reads) != 30 {
		t.Errorf("read %d days, want 30", len(r.reads))
	}

	// June 2024: Sat 1 and Sun 2 fall in ISO week 22, then weeks 23..26.
	if len(buckets) != 5 {
		t.Fatalf("got %d buckets, want 5", len(buckets))
	}
	if buckets[0].ISOWeek != 22 || buckets[0].DaysInMonth != 2 || buckets[0].StartDate() != "2024-05-27" {
		t.Errorf("first bucket = %+v", buckets[0])
	}

	w23 := buckets[1]
	if w23.ISOWeek != 23 || w23.StartDate() != "2024-06-03" {
		t.Fatalf("second bucket = %+v", w23)
	}
	if w23.Totals.Calories != 350 {
		t.Errorf("week 23 calories = %v, want 350", w23.Totals.Calories)
	}
	if math.Abs(w23.DailyAverage.Calories-50) > 1e-9 {
		t.Errorf("week 23 average = %v, want 50", w23.DailyAverage.Calories)
	}
	for _, b := range buckets {
		if b.ISOWeek != 23 && b.Totals.Calories != 0 {
			t.Errorf("week %d calories = %v, want 0", b.ISOWeek, b.Totals.Calories)
		}
	}
	for i := 1; i < len(buckets); i++ {
		if !buckets[i-1].Start.Before(buckets[i].Start) {
			t.Errorf("buckets out of order at %d", i)
		}
	}
}

func TestMonthPartialWeekAveragesOverSeven(t *testing.T) {
	r := &memReader{days: map[string][]db.FoodEntry{
		"2024-06-01": {entry("2024-06-01", 700)},
	}}

	buckets, err := Month(context.Background(), r, 2024, time.June)
	if err != nil {
		t.Fatalf("Month: %v", err)
	}
	if got := buckets[0].DailyAverage.Calories; got != 100 {
		t.Errorf("average = %v, want 100", got)
	}
}

func TestMonthReadError(t *testing.T) {
	r := &memReader{fail: "2024-02-14"}
	if _, err := Month(context.Background(), r, 2024, time.February); err == nil {
		t.Error("expected error")
	}
}

func TestDaysOfMonth(t *testing.T) {
	if got := len(DaysOfMonth(2024, time.February)); got != 29 {
		t.Errorf("Feb 2024 has %d days, want 29", got)
	}
	if got := len(DaysOfMonth(2023, time.February)); got != 28 {
		t.Errorf("Feb 2023 has %d days, want 28", got)
	}
}

func TestParseMonth(t *testing.T) {
	y, m, err := ParseMonth("2024-06")
	if err != nil || y != 2024 || m != time.June {
		t.Errorf("ParseMonth = %d %v %v", y, m, err)
	}
	if _, _, err := ParseMonth("June"); err == nil {
		t.Error("expected error")
	}
}

func TestDaySummary(t *testing.T) {
	d := DayTotal{
		Date:    "2024-06-03",
		Entries: []db.FoodEntry{{ID: 4, Name: "egg", Quantity: 50, Unit: "g", Calories: 72}},
		Totals:  Totals{Calories: 72},
	}
	out := DaySummary(d)
	if !strings.Contains(out, "#4 egg, 50g: 72 kcal") || !strings.Contains(out, "Total: 72 kcal") {
		t.Errorf("summary = %q", out)
	}
}
