package db

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

// TestLiveDatabase opens the real calo database and prints the last week of entries.
// Skipped if the database doesn't exist.
func TestLiveDatabase(t *testing.T) {
	dbPath := DefaultDBPath()
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Skip("database not found at", dbPath)
	}

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	to := time.Now().Format(dateLayout)
	from := time.Now().AddDate(0, 0, -6).Format(dateLayout)

	dates, err := store.Dates(ctx, from, to)
	if err != nil {
		t.Fatalf("Dates: %v", err)
	}
	if len(dates) == 0 {
		fmt.Println("No entries in the last 7 days")
		return
	}

	for _, d := range dates {
		entries, err := store.EntriesForDate(ctx, d)
		if err != nil {
			t.Fatalf("EntriesForDate(%s): %v", d, err)
		}
		fmt.Printf("%s: %d entries\n", d, len(entries))
		for _, e := range entries {
			fmt.Printf("  #%d %s %.0f%s %.0f kcal\n", e.ID, e.Name, e.Quantity, e.Unit, e.Calories)
		}
	}
}
