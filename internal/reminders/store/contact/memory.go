package contact

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"kinship/internal/reminders/models"
	dErrors "kinship/pkg/domain-errors"
)

// InMemoryStore keeps contact records in a mutex-guarded map.
// The engine treats contacts as read-only; the write methods exist for
// seeding and tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.Contact
}

func New() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*models.Contact),
	}
}

func (s *InMemoryStore) GetAll(_ context.Context) ([]*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contacts := make([]*models.Contact, 0, len(s.records))
	for _, record := range s.records {
		out := *record
		contacts = append(contacts, &out)
	}
	sort.Slice(contacts, func(i, j int) bool { return contacts[i].Name < contacts[j].Name })
	return contacts, nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id string) (*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if record, exists := s.records[id]; exists {
		out := *record
		return &out, nil
	}
	return nil, nil
}

func (s *InMemoryStore) Create(_ context.Context, contact *models.Contact) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *contact
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	if _, exists := s.records[stored.ID]; exists {
		return nil, dErrors.New(dErrors.CodeConflict, "contact already exists")
	}
	s.records[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (s *InMemoryStore) Update(_ context.Context, contact *models.Contact) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[contact.ID]; !exists {
		return nil, dErrors.New(dErrors.CodeNotFound, "contact not found")
	}
	stored := *contact
	s.records[contact.ID] = &stored

	out := stored
	return &out, nil
}
