package services

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/daybook/apiserver/internal/store"
	"github.com/daybook/apiserver/types"
	"github.com/google/uuid"
)

type fakeJournalRepo struct {
	entries map[int]types.JournalEntry
	nextID  int
}

func newFakeJournalRepo() *fakeJournalRepo {
	return &fakeJournalRepo{entries: make(map[int]types.JournalEntry), nextID: 1}
}

func (r *fakeJournalRepo) List(ctx context.Context) ([]types.JournalEntry, error) {
	out := make([]types.JournalEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryDate.After(out[j].EntryDate) })
	return out, nil
}

func (r *fakeJournalRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]types.JournalEntry, error) {
	all, _ := r.List(ctx)
	out := all[:0]
	for _, entry := range all {
		if entry.UserID != nil && *entry.UserID == userID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *fakeJournalRepo) Get(ctx context.Context, id int) (types.JournalEntry, error) {
	entry, ok := r.entries[id]
	if !ok {
		return types.JournalEntry{}, store.ErrNotFound
	}
	return entry, nil
}

func (r *fakeJournalRepo) GetByDate(ctx context.Context, date time.Time) (types.JournalEntry, error) {
	for _, entry := range r.entries {
		if sameDate(entry.EntryDate, date) {
			return entry, nil
		}
	}
	return types.JournalEntry{}, store.ErrNotFound
}

func (r *fakeJournalRepo) GetByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (types.JournalEntry, error) {
	for _, entry := range r.entries {
		if entry.UserID != nil && *entry.UserID == userID && sameDate(entry.EntryDate, date) {
			return entry, nil
		}
	}
	return types.JournalEntry{}, store.ErrNotFound
}

func (r *fakeJournalRepo) ExistsForDate(ctx context.Context, date time.Time) (bool, error) {
	_, err := r.GetByDate(ctx, date)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *fakeJournalRepo) ExistsForUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (bool, error) {
	_, err := r.GetByUserAndDate(ctx, userID, date)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *fakeJournalRepo) Create(ctx context.Context, entry types.JournalEntry) (types.JournalEntry, error) {
	entry.ID = r.nextID
	r.nextID++
	r.entries[entry.ID] = entry
	return entry, nil
}

func (r *fakeJournalRepo) Update(ctx context.Context, entry types.JournalEntry) (types.JournalEntry, error) {
	if _, ok := r.entries[entry.ID]; !ok {
		return types.JournalEntry{}, store.ErrNotFound
	}
	r.entries[entry.ID] = entry
	return entry, nil
}

func (r *fakeJournalRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.entries[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.entries, id)
	return nil
}

func (r *fakeJournalRepo) ListDates(ctx context.Context, year int, month time.Month) ([]time.Time, error) {
	seen := make(map[time.Time]bool)
	for _, entry := range r.entries {
		y, m, d := entry.EntryDate.Date()
		if y == year && m == month {
			seen[time.Date(y, m, d, 0, 0, 0, 0, time.Local)] = true
		}
	}
	out := make([]time.Time, 0, len(seen))
	for date := range seen {
		out = append(out, date)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (r *fakeJournalRepo) ListDatesByUser(ctx context.Context, userID uuid.UUID, year int, month time.Month) ([]time.Time, error) {
	scoped := newFakeJournalRepo()
	for id, entry := range r.entries {
		if entry.UserID != nil && *entry.UserID == userID {
			scoped.entries[id] = entry
		}
	}
	return scoped.ListDates(ctx, year, month)
}

func (r *fakeJournalRepo) ListMonth(ctx context.Context, year int, month time.Month) ([]types.JournalEntry, error) {
	out := []types.JournalEntry{}
	for _, entry := range r.entries {
		y, m, _ := entry.EntryDate.Date()
		if y == year && m == month {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryDate.Before(out[j].EntryDate) })
	return out, nil
}

func (r *fakeJournalRepo) ListMonthByUser(ctx context.Context, userID uuid.UUID, year int, month time.Month) ([]types.JournalEntry, error) {
	all, _ := r.ListMonth(ctx, year, month)
	out := all[:0]
	for _, entry := range all {
		if entry.UserID != nil && *entry.UserID == userID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func TestJournalAddRejectsDuplicateDate(t *testing.T) {
	ctx := context.Background()
	svc := NewJournalService(newFakeJournalRepo(), nil)
	alice := uuid.New()

	morning := time.Date(2026, time.April, 10, 8, 0, 0, 0, time.Local)
	evening := time.Date(2026, time.April, 10, 21, 45, 0, 0, time.Local)

	created, err := svc.Add(ctx, types.JournalEntry{EntryDate: morning, Content: "first", UserID: &alice})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if created.CreatedDate.IsZero() {
		t.Fatal("expected creation time to be stamped")
	}
	if created.ModifiedDate != nil {
		t.Fatal("expected no modification time on a new entry")
	}

	// Same calendar date, different time of day.
	if _, err := svc.Add(ctx, types.JournalEntry{EntryDate: evening, Content: "second", UserID: &alice}); !errors.Is(err, ErrDuplicateDate) {
		t.Fatalf("expected ErrDuplicateDate, got %v", err)
	}

	nextDay := morning.AddDate(0, 0, 1)
	if _, err := svc.Add(ctx, types.JournalEntry{EntryDate: nextDay, Content: "third", UserID: &alice}); err != nil {
		t.Fatalf("add on next day: %v", err)
	}
}

func TestJournalDateUniquenessIsPerUser(t *testing.T) {
	ctx := context.Background()
	svc := NewJournalService(newFakeJournalRepo(), nil)
	alice := uuid.New()
	bob := uuid.New()

	date := time.Date(2026, time.April, 10, 12, 0, 0, 0, time.Local)
	if _, err := svc.Add(ctx, types.JournalEntry{EntryDate: date, Content: "alice", UserID: &alice}); err != nil {
		t.Fatalf("add for alice: %v", err)
	}
	if _, err := svc.Add(ctx, types.JournalEntry{EntryDate: date, Content: "bob", UserID: &bob}); err != nil {
		t.Fatalf("add for bob on the same date: %v", err)
	}
}

func TestJournalUnownedEntriesUseGlobalUniqueness(t *testing.T) {
	ctx := context.Background()
	svc := NewJournalService(newFakeJournalRepo(), nil)

	date := time.Date(2026, time.April, 11, 12, 0, 0, 0, time.Local)
	if _, err := svc.Add(ctx, types.JournalEntry{EntryDate: date, Content: "first"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Add(ctx, types.JournalEntry{EntryDate: date, Content: "second"}); !errors.Is(err, ErrDuplicateDate) {
		t.Fatalf("expected ErrDuplicateDate, got %v", err)
	}
}

func TestJournalUpdate(t *testing.T) {
	ctx := context.Background()
	svc := NewJournalService(newFakeJournalRepo(), nil)
	alice := uuid.New()

	day1 := time.Date(2026, time.May, 1, 9, 0, 0, 0, time.Local)
	day2 := time.Date(2026, time.May, 2, 9, 0, 0, 0, time.Local)

	first, err := svc.Add(ctx, types.JournalEntry{EntryDate: day1, Content: "one", UserID: &alice})
	if err != nil {
		t.Fatalf("add day1: %v", err)
	}
	second, err := svc.Add(ctx, types.JournalEntry{EntryDate: day2, Content: "two", UserID: &alice})
	if err != nil {
		t.Fatalf("add day2: %v", err)
	}

	// Editing content while keeping the date does not trip the duplicate
	// check against the entry's own row.
	first.Content = "one, revised"
	updated, err := svc.Update(ctx, first)
	if err != nil {
		t.Fatalf("update same date: %v", err)
	}
	if updated.ModifiedDate == nil {
		t.Fatal("expected modification time to be stamped")
	}
	if !updated.CreatedDate.Equal(first.CreatedDate) {
		t.Fatal("creation time must survive updates")
	}

	// Moving onto an occupied date is rejected.
	second.EntryDate = day1.Add(3 * time.Hour)
	if _, err := svc.Update(ctx, second); !errors.Is(err, ErrDuplicateDate) {
		t.Fatalf("expected ErrDuplicateDate, got %v", err)
	}

	// Moving onto a free date succeeds.
	second.EntryDate = day2.AddDate(0, 0, 1)
	if _, err := svc.Update(ctx, second); err != nil {
		t.Fatalf("update to free date: %v", err)
	}

	if _, err := svc.Update(ctx, types.JournalEntry{ID: 99, EntryDate: day1}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound, got %v", err)
	}
}

func TestJournalDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewJournalService(newFakeJournalRepo(), nil)

	created, err := svc.Add(ctx, types.JournalEntry{EntryDate: time.Now(), Content: "bye"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound for repeated delete, got %v", err)
	}
}

func TestJournalMonthViews(t *testing.T) {
	ctx := context.Background()
	svc := NewJournalService(newFakeJournalRepo(), nil)
	alice := uuid.New()
	bob := uuid.New()

	add := func(day int, userID *uuid.UUID) {
		t.Helper()
		date := time.Date(2026, time.June, day, 10, 0, 0, 0, time.Local)
		if _, err := svc.Add(ctx, types.JournalEntry{EntryDate: date, Content: "entry", UserID: userID}); err != nil {
			t.Fatalf("add day %d: %v", day, err)
		}
	}
	add(3, &alice)
	add(12, &alice)
	add(12, &bob)
	add(25, &alice)

	dates, err := svc.ListDatesWithEntries(ctx, 2026, time.June, &alice)
	if err != nil {
		t.Fatalf("list dates: %v", err)
	}
	if len(dates) != 3 {
		t.Fatalf("expected 3 dates for alice, got %d", len(dates))
	}
	for i, day := range []int{3, 12, 25} {
		if dates[i].Day() != day {
			t.Fatalf("dates[%d] = %v, want day %d", i, dates[i], day)
		}
	}

	entries, err := svc.ListForMonth(ctx, 2026, time.June, &alice)
	if err != nil {
		t.Fatalf("list month: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries for alice, got %d", len(entries))
	}
	if !sort.SliceIsSorted(entries, func(i, j int) bool { return entries[i].EntryDate.Before(entries[j].EntryDate) }) {
		t.Fatal("expected entries ordered by date ascending")
	}

	other, err := svc.ListForMonth(ctx, 2026, time.July, &alice)
	if err != nil {
		t.Fatalf("list other month: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no entries in july, got %d", len(other))
	}
}
