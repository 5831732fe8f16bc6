package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/daybook/apiserver/types"
	"github.com/google/uuid"
)

const journalColumns = `id, entry_date, content, mood, created_date, modified_date, user_id`

// JournalRepository handles persistence for journal entries.
type JournalRepository struct {
	db *sql.DB
}

func NewJournalRepository(db *sql.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

func (r *JournalRepository) List(ctx context.Context) ([]types.JournalEntry, error) {
	const query = `
		SELECT ` + journalColumns + `
		FROM journals
		ORDER BY entry_date DESC`
	return r.queryEntries(ctx, query)
}

func (r *JournalRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]types.JournalEntry, error) {
	const query = `
		SELECT ` + journalColumns + `
		FROM journals
		WHERE user_id = $1
		ORDER BY entry_date DESC`
	return r.queryEntries(ctx, query, userID)
}

func (r *JournalRepository) Get(ctx context.Context, id int) (types.JournalEntry, error) {
	const query = `
		SELECT ` + journalColumns + `
		FROM journals
		WHERE id = $1`
	entry, err := scanJournalEntry(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.JournalEntry{}, ErrNotFound
		}
		return types.JournalEntry{}, err
	}
	return entry, nil
}

// GetByDate returns the entry for the given calendar date, regardless of
// owner. Only the date part of the argument is compared.
func (r *JournalRepository) GetByDate(ctx context.Context, date time.Time) (types.JournalEntry, error) {
	const query = `
		SELECT ` + journalColumns + `
		FROM journals
		WHERE entry_date::date = $1::date
		LIMIT 1`
	entry, err := scanJournalEntry(r.db.QueryRowContext(ctx, query, date))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.JournalEntry{}, ErrNotFound
		}
		return types.JournalEntry{}, err
	}
	return entry, nil
}

// GetByUserAndDate returns the user's entry for the given calendar date.
func (r *JournalRepository) GetByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (types.JournalEntry, error) {
	const query = `
		SELECT ` + journalColumns + `
		FROM journals
		WHERE user_id = $1 AND entry_date::date = $2::date
		LIMIT 1`
	entry, err := scanJournalEntry(r.db.QueryRowContext(ctx, query, userID, date))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.JournalEntry{}, ErrNotFound
		}
		return types.JournalEntry{}, err
	}
	return entry, nil
}

func (r *JournalRepository) ExistsForDate(ctx context.Context, date time.Time) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM journals WHERE entry_date::date = $1::date)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, date).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *JournalRepository) ExistsForUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM journals WHERE user_id = $1 AND entry_date::date = $2::date)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, date).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *JournalRepository) Create(ctx context.Context, entry types.JournalEntry) (types.JournalEntry, error) {
	const query = `
		INSERT INTO journals (entry_date, content, mood, created_date, modified_date, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		entry.EntryDate,
		entry.Content,
		entry.Mood,
		entry.CreatedDate,
		entry.ModifiedDate,
		entry.UserID,
	).Scan(&entry.ID); err != nil {
		return types.JournalEntry{}, err
	}
	return entry, nil
}

func (r *JournalRepository) Update(ctx context.Context, entry types.JournalEntry) (types.JournalEntry, error) {
	const query = `
		UPDATE journals
		SET entry_date = $1,
			content = $2,
			mood = $3,
			modified_date = $4,
			user_id = $5
		WHERE id = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		entry.EntryDate,
		entry.Content,
		entry.Mood,
		entry.ModifiedDate,
		entry.UserID,
		entry.ID,
	)
	if err != nil {
		return types.JournalEntry{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.JournalEntry{}, err
	}
	if affected == 0 {
		return types.JournalEntry{}, ErrNotFound
	}
	return entry, nil
}

func (r *JournalRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM journals WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDates returns the distinct calendar dates in the given month that
// have an entry, ascending.
func (r *JournalRepository) ListDates(ctx context.Context, year int, month time.Month) ([]time.Time, error) {
	const query = `
		SELECT DISTINCT entry_date::date
		FROM journals
		WHERE EXTRACT(YEAR FROM entry_date) = $1 AND EXTRACT(MONTH FROM entry_date) = $2
		ORDER BY entry_date::date`
	return r.queryDates(ctx, query, year, int(month))
}

// ListDatesByUser is ListDates scoped to one owner.
func (r *JournalRepository) ListDatesByUser(ctx context.Context, userID uuid.UUID, year int, month time.Month) ([]time.Time, error) {
	const query = `
		SELECT DISTINCT entry_date::date
		FROM journals
		WHERE user_id = $1 AND EXTRACT(YEAR FROM entry_date) = $2 AND EXTRACT(MONTH FROM entry_date) = $3
		ORDER BY entry_date::date`
	return r.queryDates(ctx, query, userID, year, int(month))
}

// ListMonth returns all entries in the given month, earliest first.
func (r *JournalRepository) ListMonth(ctx context.Context, year int, month time.Month) ([]types.JournalEntry, error) {
	const query = `
		SELECT ` + journalColumns + `
		FROM journals
		WHERE EXTRACT(YEAR FROM entry_date) = $1 AND EXTRACT(MONTH FROM entry_date) = $2
		ORDER BY entry_date`
	return r.queryEntries(ctx, query, year, int(month))
}

// ListMonthByUser is ListMonth scoped to one owner.
func (r *JournalRepository) ListMonthByUser(ctx context.Context, userID uuid.UUID, year int, month time.Month) ([]types.JournalEntry, error) {
	const query = `
		SELECT ` + journalColumns + `
		FROM journals
		WHERE user_id = $1 AND EXTRACT(YEAR FROM entry_date) = $2 AND EXTRACT(MONTH FROM entry_date) = $3
		ORDER BY entry_date`
	return r.queryEntries(ctx, query, userID, year, int(month))
}

func (r *JournalRepository) queryEntries(ctx context.Context, query string, args ...any) ([]types.JournalEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]types.JournalEntry, 0)
	for rows.Next() {
		entry, err := scanJournalEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *JournalRepository) queryDates(ctx context.Context, query string, args ...any) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dates := make([]time.Time, 0)
	for rows.Next() {
		var date time.Time
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		dates = append(dates, date)
	}
	return dates, rows.Err()
}

func scanJournalEntry(row rowScanner) (types.JournalEntry, error) {
	var entry types.JournalEntry
	err := row.Scan(
		&entry.ID,
		&entry.EntryDate,
		&entry.Content,
		&entry.Mood,
		&entry.CreatedDate,
		&entry.ModifiedDate,
		&entry.UserID,
	)
	return entry, err
}
