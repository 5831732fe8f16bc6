package services

import (
	"context"
	"time"

	"github.com/daybook/apiserver/types"
	"github.com/google/uuid"
)

// JournalRepository defines persistence operations for journal entries.
type JournalRepository interface {
	List(ctx context.Context) ([]types.JournalEntry, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]types.JournalEntry, error)
	Get(ctx context.Context, id int) (types.JournalEntry, error)
	GetByDate(ctx context.Context, date time.Time) (types.JournalEntry, error)
	GetByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (types.JournalEntry, error)
	ExistsForDate(ctx context.Context, date time.Time) (bool, error)
	ExistsForUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (bool, error)
	Create(ctx context.Context, entry types.JournalEntry) (types.JournalEntry, error)
	Update(ctx context.Context, entry types.JournalEntry) (types.JournalEntry, error)
	Delete(ctx context.Context, id int) error
	ListDates(ctx context.Context, year int, month time.Month) ([]time.Time, error)
	ListDatesByUser(ctx context.Context, userID uuid.UUID, year int, month time.Month) ([]time.Time, error)
	ListMonth(ctx context.Context, year int, month time.Month) ([]types.JournalEntry, error)
	ListMonthByUser(ctx context.Context, userID uuid.UUID, year int, month time.Month) ([]types.JournalEntry, error)
}

// JournalService encapsulates journal use-cases and enforces the
// one-entry-per-calendar-date rule: per owner for owned entries, global for
// unowned ones.
type JournalService struct {
	repo   JournalRepository
	events *EventPublisher
}

func NewJournalService(repo JournalRepository, events *EventPublisher) *JournalService {
	return &JournalService{repo: repo, events: events}
}

func (s *JournalService) ListAll(ctx context.Context) ([]types.JournalEntry, error) {
	return s.repo.List(ctx)
}

func (s *JournalService) ListForUser(ctx context.Context, userID uuid.UUID) ([]types.JournalEntry, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *JournalService) GetByID(ctx context.Context, id int) (types.JournalEntry, error) {
	return s.repo.Get(ctx, id)
}

// GetByDate returns the entry for the calendar date, ignoring time of day.
func (s *JournalService) GetByDate(ctx context.Context, date time.Time) (types.JournalEntry, error) {
	return s.repo.GetByDate(ctx, date)
}

// GetForUserByDate returns the user's entry for the calendar date.
func (s *JournalService) GetForUserByDate(ctx context.Context, userID uuid.UUID, date time.Time) (types.JournalEntry, error) {
	return s.repo.GetByUserAndDate(ctx, userID, date)
}

func (s *JournalService) ExistsForDate(ctx context.Context, date time.Time) (bool, error) {
	return s.repo.ExistsForDate(ctx, date)
}

func (s *JournalService) ExistsForUserByDate(ctx context.Context, userID uuid.UUID, date time.Time) (bool, error) {
	return s.repo.ExistsForUserAndDate(ctx, userID, date)
}

// Add persists a new entry after checking date uniqueness within the
// entry's scope, and stamps its creation time. Duplicate dates fail with
// ErrDuplicateDate before anything is written.
func (s *JournalService) Add(ctx context.Context, entry types.JournalEntry) (types.JournalEntry, error) {
	exists, err := s.dateTaken(ctx, entry.UserID, entry.EntryDate)
	if err != nil {
		return types.JournalEntry{}, err
	}
	if exists {
		return types.JournalEntry{}, ErrDuplicateDate
	}

	entry.CreatedDate = time.Now()
	entry.ModifiedDate = nil
	created, err := s.repo.Create(ctx, entry)
	if err != nil {
		return types.JournalEntry{}, err
	}

	s.events.JournalCreated(ctx, created.UserID, created.EntryDate)
	return created, nil
}

// Update replaces the entry's mutable fields and stamps the modification
// time. Uniqueness is re-checked only when the calendar date actually
// changed versus the stored record.
func (s *JournalService) Update(ctx context.Context, entry types.JournalEntry) (types.JournalEntry, error) {
	existing, err := s.repo.Get(ctx, entry.ID)
	if err != nil {
		return types.JournalEntry{}, err
	}

	if !sameDate(existing.EntryDate, entry.EntryDate) {
		exists, err := s.dateTaken(ctx, entry.UserID, entry.EntryDate)
		if err != nil {
			return types.JournalEntry{}, err
		}
		if exists {
			return types.JournalEntry{}, ErrDuplicateDate
		}
	}

	now := time.Now()
	entry.CreatedDate = existing.CreatedDate
	entry.ModifiedDate = &now
	return s.repo.Update(ctx, entry)
}

// Delete removes the entry. Unknown ids surface as store.ErrNotFound with
// no store mutation.
func (s *JournalService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

// ListDatesWithEntries returns the distinct calendar dates in the month
// that have an entry, for calendar-view rendering. A nil userID means the
// unscoped view.
func (s *JournalService) ListDatesWithEntries(ctx context.Context, year int, month time.Month, userID *uuid.UUID) ([]time.Time, error) {
	if userID != nil {
		return s.repo.ListDatesByUser(ctx, *userID, year, month)
	}
	return s.repo.ListDates(ctx, year, month)
}

// ListForMonth returns the month's entries ordered by date ascending.
func (s *JournalService) ListForMonth(ctx context.Context, year int, month time.Month, userID *uuid.UUID) ([]types.JournalEntry, error) {
	if userID != nil {
		return s.repo.ListMonthByUser(ctx, *userID, year, month)
	}
	return s.repo.ListMonth(ctx, year, month)
}

func (s *JournalService) dateTaken(ctx context.Context, userID *uuid.UUID, date time.Time) (bool, error) {
	if userID != nil {
		return s.repo.ExistsForUserAndDate(ctx, *userID, date)
	}
	return s.repo.ExistsForDate(ctx, date)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
