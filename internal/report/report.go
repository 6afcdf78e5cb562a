// Package report aggregates logged entries into day, week and month views.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jwulff/calo/internal/db"
	"golang.org/x/sync/errgroup"
)

// monthFetchLimit bounds concurrent day reads in Month.
const monthFetchLimit = 4

// DayReader loads the entries of one day.
type DayReader interface {
	EntriesForDate(ctx context.Context, date string) ([]db.FoodEntry, error)
}

// Totals are summed calories and macros.
type Totals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Add returns t + o.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		Calories: t.Calories + o.Calories,
		Protein:  t.Protein + o.Protein,
		Carbs:    t.Carbs + o.Carbs,
		Fat:      t.Fat + o.Fat,
	}
}

// Div returns t with every field divided by n.
func (t Totals) Div(n float64) Totals {
	return Totals{
		Calories: t.Calories / n,
		Protein:  t.Protein / n,
		Carbs:    t.Carbs / n,
		Fat:      t.Fat / n,
	}
}

// SumEntries totals a list of entries. An empty list sums to zero.
func SumEntries(entries []db.FoodEntry) Totals {
	var t Totals
	for _, e := range entries {
		t.Calories += e.Calories
		t.Protein += e.Protein
		t.Carbs += e.Carbs
		t.Fat += e.Fat
	}
	return t
}

// DayTotal is one day of a week view.
type DayTotal struct {
	Date    string         `json:"date"`
	Totals  Totals         `json:"totals"`
	Entries []db.FoodEntry `json:"entries"`
}

// Day loads and totals a single day.
func Day(ctx context.Context, r DayReader, date string) (DayTotal, error) {
	entries, err := r.EntriesForDate(ctx, date)
	if err != nil {
		return DayTotal{}, fmt.Errorf("load %s: %w", date, err)
	}
	return DayTotal{Date: date, Totals: SumEntries(entries), Entries: entries}, nil
}

// Week returns the seven days, Monday first, of the week containing date.
func Week(ctx context.Context, r DayReader, date string) ([]DayTotal, error) {
	t, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	start := WeekStart(t)

	days := make([]DayTotal, 0, 7)
	for i := 0; i < 7; i++ {
		d, err := Day(ctx, r, FormatDate(start.AddDate(0, 0, i)))
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}

// WeekBucket is the part of an ISO week that falls inside a month.
type WeekBucket struct {
	ISOYear int       `json:"iso_year"`
	ISOWeek int       `json:"iso_week"`
	Start   time.Time `json:"start"` // the week's Monday, possibly in the previous month
	Totals  Totals    `json:"totals"`

	// DailyAverage is Totals/7 even when fewer than seven days of the week
	// fall in the month.
	DailyAverage Totals `json:"daily_average"`
	DaysInMonth  int    `json:"days_in_month"`
}

// StartDate returns the bucket's Monday as YYYY-MM-DD.
func (b WeekBucket) StartDate() string {
	return FormatDate(b.Start)
}

// Month loads every day of the month and buckets the totals by ISO week.
func Month(ctx context.Context, r DayReader, year int, month time.Month) ([]WeekBucket, error) {
	days := DaysOfMonth(year, month)
	totals := make([]Totals, len(days))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(monthFetchLimit)
	for i, d := range days {
		g.Go(func() error {
			day, err := Day(gctx, r, FormatDate(d))
			if err != nil {
				return err
			}
			totals[i] = day.Totals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	type key struct{ year, week int }
	buckets := map[key]*WeekBucket{}
	for i, d := range days {
		y, w := d.ISOWeek()
		k := key{y, w}
		b, ok := buckets[k]
		if !ok {
			b = &WeekBucket{ISOYear: y, ISOWeek: w, Start: WeekStart(d)}
			buckets[k] = b
		}
		b.Totals = b.Totals.Add(totals[i])
		b.DaysInMonth++
	}

	out := make([]WeekBucket, 0, len(buckets))
	for _, b := range buckets {
		b.DailyAverage = b.Totals.Div(7)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}
