package reminder

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"kinship/internal/reminders/models"
	dErrors "kinship/pkg/domain-errors"
)

// InMemoryStore keeps reminder records in a mutex-guarded map.
// It backs tests and database-less deployments.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.Reminder
}

func New() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*models.Reminder),
	}
}

func (s *InMemoryStore) Create(_ context.Context, reminder *models.Reminder) (*models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *reminder
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	if _, exists := s.records[stored.ID]; exists {
		return nil, dErrors.New(dErrors.CodeConflict, "reminder already exists")
	}
	s.records[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id string) (*models.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if record, exists := s.records[id]; exists {
		out := *record
		return &out, nil
	}
	return nil, nil
}

func (s *InMemoryStore) GetByContactID(_ context.Context, contactID string, opts models.ListOptions) ([]*models.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Reminder
	for _, record := range s.records {
		if record.ContactID != contactID {
			continue
		}
		if !matches(record, opts) {
			continue
		}
		out := *record
		matched = append(matched, &out)
	}
	return page(matched, opts), nil
}

func (s *InMemoryStore) List(_ context.Context, opts models.ListOptions) ([]*models.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Reminder
	for _, record := range s.records {
		if !matches(record, opts) {
			continue
		}
		out := *record
		matched = append(matched, &out)
	}
	return page(matched, opts), nil
}

// GetDue returns pending reminders scheduled at or before now.
// The cutoff is provided by the caller to keep clock ownership out of the store.
func (s *InMemoryStore) GetDue(_ context.Context, now time.Time) ([]*models.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []*models.Reminder
	for _, record := range s.records {
		if record.Status != models.StatusPending || record.ScheduledFor.After(now) {
			continue
		}
		out := *record
		due = append(due, &out)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledFor.Before(due[j].ScheduledFor) })
	return due, nil
}

func (s *InMemoryStore) Update(_ context.Context, reminder *models.Reminder) (*models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[reminder.ID]; !exists {
		return nil, dErrors.New(dErrors.CodeNotFound, "reminder not found")
	}
	stored := *reminder
	s.records[reminder.ID] = &stored

	out := stored
	return &out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[id]; !exists {
		return dErrors.New(dErrors.CodeNotFound, "reminder not found")
	}
	delete(s.records, id)
	return nil
}

// DeleteByContactAndTypes removes the contact's reminders of the given types
// and statuses, returning how many were deleted.
func (s *InMemoryStore) DeleteByContactAndTypes(_ context.Context, contactID string, types []models.ReminderType, statuses []models.ReminderStatus) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, record := range s.records {
		if record.ContactID != contactID {
			continue
		}
		if !containsType(types, record.Type) || !containsStatus(statuses, record.Status) {
			continue
		}
		delete(s.records, id)
		deleted++
	}
	return deleted, nil
}

// DeleteByTypeAndStatus removes every reminder of the given type and status,
// returning how many were deleted. Used by the global refresh.
func (s *InMemoryStore) DeleteByTypeAndStatus(_ context.Context, t models.ReminderType, status models.ReminderStatus) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, record := range s.records {
		if record.Type != t || record.Status != status {
			continue
		}
		delete(s.records, id)
		deleted++
	}
	return deleted, nil
}

// DeleteOlderThan removes reminders in the given statuses whose ScheduledFor
// predates the cutoff, returning how many were deleted.
func (s *InMemoryStore) DeleteOlderThan(_ context.Context, statuses []models.ReminderStatus, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, record := range s.records {
		if !containsStatus(statuses, record.Status) || !record.ScheduledFor.Before(cutoff) {
			continue
		}
		delete(s.records, id)
		deleted++
	}
	return deleted, nil
}

// MarkMultipleAsSent transitions the given pending reminders to sent,
// stamping sentAt. Non-pending or unknown IDs are skipped.
func (s *InMemoryStore) MarkMultipleAsSent(_ context.Context, ids []string, sentAt time.Time) (int, error) {
	return s.transitionMultiple(ids, models.StatusSent, sentAt), nil
}

// DismissMultiple transitions the given pending reminders to dismissed.
// The closure time is recorded in SentAt.
func (s *InMemoryStore) DismissMultiple(_ context.Context, ids []string, dismissedAt time.Time) (int, error) {
	return s.transitionMultiple(ids, models.StatusDismissed, dismissedAt), nil
}

func (s *InMemoryStore) transitionMultiple(ids []string, next models.ReminderStatus, at time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for _, id := range ids {
		record, exists := s.records[id]
		if !exists || !record.Status.CanTransitionTo(next) {
			continue
		}
		record.Status = next
		stamp := at
		record.SentAt = &stamp
		updated++
	}
	return updated
}

func matches(record *models.Reminder, opts models.ListOptions) bool {
	if opts.Type != "" && record.Type != opts.Type {
		return false
	}
	if !opts.MatchesStatus(record.Status) {
		return false
	}
	if opts.ScheduledFrom != nil && record.ScheduledFor.Before(*opts.ScheduledFrom) {
		return false
	}
	if opts.ScheduledTo != nil && record.ScheduledFor.After(*opts.ScheduledTo) {
		return false
	}
	return true
}

func page(records []*models.Reminder, opts models.ListOptions) []*models.Reminder {
	desc := opts.SortOrder == models.SortDesc
	byCreated := opts.SortBy == "created_at"
	sort.SliceStable(records, func(i, j int) bool {
		var before bool
		if byCreated {
			before = records[i].CreatedAt.Before(records[j].CreatedAt)
		} else {
			before = records[i].ScheduledFor.Before(records[j].ScheduledFor)
		}
		if desc {
			return !before
		}
		return before
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(records) {
			return nil
		}
		records = records[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(records) {
		records = records[:opts.Limit]
	}
	return records
}

func containsType(types []models.ReminderType, t models.ReminderType) bool {
	if len(types) == 0 {
		return true
	}
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func containsStatus(statuses []models.ReminderStatus, s models.ReminderStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}
