package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned by Get and Update when no entry has the id.
	ErrNotFound = errors.New("food entry not found")
	// ErrDateImmutable is returned by Update when the entry would move to another day.
	ErrDateImmutable = errors.New("food entry date cannot change")
	// ErrInvalidEntry is returned when an entry fails validation.
	ErrInvalidEntry = errors.New("invalid food entry")
)

const dateLayout = "2006-01-02"

const schema = `
	CREATE TABLE IF NOT EXISTS food_entries (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		date         TEXT NOT NULL,
		name         TEXT NOT NULL,
		quantity     REAL NOT NULL,
		unit         TEXT NOT NULL DEFAULT 'g',
		calories     REAL NOT NULL DEFAULT 0,
		protein      REAL NOT NULL DEFAULT 0,
		carbs        REAL NOT NULL DEFAULT 0,
		fat          REAL NOT NULL DEFAULT 0,
		kcal_100g    REAL NOT NULL DEFAULT 0,
		protein_100g REAL NOT NULL DEFAULT 0,
		carbs_100g   REAL NOT NULL DEFAULT 0,
		fat_100g     REAL NOT NULL DEFAULT 0,
		created_at   REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_food_entries_date ON food_entries(date);
`

const entryColumns = `id, date, name, quantity, unit, calories, protein, carbs, fat,
	kcal_100g, protein_100g, carbs_100g, fat_100g, created_at`

// Store provides read-write access to the calo SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "calo", "calo.sqlite")
}

// Open opens (creating if needed) the database at path in WAL mode and
// migrates the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

// Create persists a new entry and returns it with its assigned id.
// Any id already set on e is ignored.
func (s *Store) Create(ctx context.Context, e FoodEntry) (FoodEntry, error) {
	if err := validate(e); err != nil {
		return FoodEntry{}, err
	}
	if e.Unit == "" {
		e.Unit = "g"
	}
	e.CreatedAt = s.now()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO food_entries (date, name, quantity, unit, calories, protein, carbs, fat,
			kcal_100g, protein_100g, carbs_100g, fat_100g, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Date, e.Name, e.Quantity, e.Unit, e.Calories, e.Protein, e.Carbs, e.Fat,
		e.KcalPer100, e.ProteinPer100, e.CarbsPer100, e.FatPer100, unixFromTime(e.CreatedAt))
	if err != nil {
		return FoodEntry{}, fmt.Errorf("insert entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return FoodEntry{}, fmt.Errorf("read entry id: %w", err)
	}
	e.ID = id
	e.CreatedAt = timeFromUnix(unixFromTime(e.CreatedAt))
	return e, nil
}

// EntriesForDate returns all entries logged on date, ordered by id.
func (s *Store) EntriesForDate(ctx context.Context, date string) ([]FoodEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM food_entries
		WHERE date = ?
		ORDER BY id ASC
	`, date)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []FoodEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the entry with id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (FoodEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM food_entries
		WHERE id = ?
	`, id)

	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return FoodEntry{}, ErrNotFound
		}
		return FoodEntry{}, err
	}
	return e, nil
}

// Update replaces the stored entry with the same id. The nutrient totals are
// recomputed from e.Quantity and the per-100 values. It fails with
// ErrNotFound for an unknown id and ErrDateImmutable if e.Date differs from
// the stored date.
func (s *Store) Update(ctx context.Context, e FoodEntry) (FoodEntry, error) {
	if err := validate(e); err != nil {
		return FoodEntry{}, err
	}
	e.SetQuantity(e.Quantity)

	current, err := s.Get(ctx, e.ID)
	if err != nil {
		return FoodEntry{}, err
	}
	if current.Date != e.Date {
		return FoodEntry{}, ErrDateImmutable
	}
	if e.Unit == "" {
		e.Unit = "g"
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE food_entries
		SET name = ?, quantity = ?, unit = ?, calories = ?, protein = ?, carbs = ?, fat = ?,
			kcal_100g = ?, protein_100g = ?, carbs_100g = ?, fat_100g = ?
		WHERE id = ? AND date = ?
	`, e.Name, e.Quantity, e.Unit, e.Calories, e.Protein, e.Carbs, e.Fat,
		e.KcalPer100, e.ProteinPer100, e.CarbsPer100, e.FatPer100, e.ID, e.Date)
	if err != nil {
		return FoodEntry{}, fmt.Errorf("update entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return FoodEntry{}, ErrNotFound
	}

	e.CreatedAt = current.CreatedAt
	return e, nil
}

// UpdateQuantity sets the quantity of entry id and recomputes its totals
// from the stored per-100 values.
func (s *Store) UpdateQuantity(ctx context.Context, id int64, quantity float64) (FoodEntry, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return FoodEntry{}, err
	}
	e.SetQuantity(quantity)
	return s.Update(ctx, e)
}

// Delete removes the entry with id. Deleting a missing id is not an error.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM food_entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// Dates returns the distinct days between from and to (inclusive) that have
// at least one entry, in ascending order.
func (s *Store) Dates(ctx context.Context, from, to string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT date
		FROM food_entries
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (FoodEntry, error) {
	var e FoodEntry
	var createdAt float64
	if err := row.Scan(&e.ID, &e.Date, &e.Name, &e.Quantity, &e.Unit,
		&e.Calories, &e.Protein, &e.Carbs, &e.Fat,
		&e.KcalPer100, &e.ProteinPer100, &e.CarbsPer100, &e.FatPer100,
		&createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return FoodEntry{}, err
		}
		return FoodEntry{}, fmt.Errorf("scan entry: %w", err)
	}
	e.CreatedAt = timeFromUnix(createdAt)
	return e, nil
}

func validate(e FoodEntry) error {
	if _, err := time.Parse(dateLayout, e.Date); err != nil {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidEntry, e.Date)
	}
	if e.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidEntry)
	}
	if math.IsNaN(e.Quantity) || math.IsInf(e.Quantity, 0) {
		return fmt.Errorf("%w: quantity %v is not finite", ErrInvalidEntry, e.Quantity)
	}
	if e.Quantity < 0 {
		return fmt.Errorf("%w: negative quantity %v", ErrInvalidEntry, e.Quantity)
	}
	return nil
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
