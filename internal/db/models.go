// Package db provides SQLite persistence for logged food entries.
package db

import "time"

// FoodEntry is one logged food item for a calendar day.
//
// Calories, Protein, Carbs and Fat are absolute totals for Quantity. They are
// derived from the per-100 values and must be recomputed through SetQuantity
// whenever Quantity changes.
type FoodEntry struct {
	ID       int64   `json:"id"`
	Date     string  `json:"date"` // YYYY-MM-DD
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`

	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`

	KcalPer100    float64 `json:"kcal_100"`
	ProteinPer100 float64 `json:"protein_100"`
	CarbsPer100   float64 `json:"carbs_100"`
	FatPer100     float64 `json:"fat_100"`

	CreatedAt time.Time `json:"created_at"`
}

// SetQuantity changes the quantity and recomputes every derived total.
func (e *FoodEntry) SetQuantity(q float64) {
	e.Quantity = q
	e.Calories = e.KcalPer100 * q / 100
	e.Protein = e.ProteinPer100 * q / 100
	e.Carbs = e.CarbsPer100 * q / 100
	e.Fat = e.FatPer100 * q / 100
}
