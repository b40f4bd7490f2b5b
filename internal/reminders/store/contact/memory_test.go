package contact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"kinship/internal/reminders/models"
	dErrors "kinship/pkg/domain-errors"
)

type InMemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = New()
}

func (s *InMemoryStoreSuite) TestCreateAndGet() {
	created, err := s.store.Create(s.ctx, &models.Contact{Name: "Ada", Birthday: "03-14"})
	s.Require().NoError(err)
	s.NotEmpty(created.ID)
	s.False(created.CreatedAt.IsZero())

	found, err := s.store.GetByID(s.ctx, created.ID)
	s.NoError(err)
	s.Require().NotNil(found)
	s.Equal("Ada", found.Name)

	missing, err := s.store.GetByID(s.ctx, "missing")
	s.NoError(err)
	s.Nil(missing)
}

func (s *InMemoryStoreSuite) TestCreateDuplicateConflicts() {
	created, err := s.store.Create(s.ctx, &models.Contact{Name: "Ada"})
	s.Require().NoError(err)

	_, err = s.store.Create(s.ctx, &models.Contact{ID: created.ID, Name: "Impostor"})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *InMemoryStoreSuite) TestGetAllSortedByName() {
	for _, name := range []string{"Zo", "Ada", "Mia"} {
		_, err := s.store.Create(s.ctx, &models.Contact{Name: name})
		s.Require().NoError(err)
	}

	all, err := s.store.GetAll(s.ctx)
	s.NoError(err)
	s.Require().Len(all, 3)
	s.Equal("Ada", all[0].Name)
	s.Equal("Mia", all[1].Name)
	s.Equal("Zo", all[2].Name)
}

func (s *InMemoryStoreSuite) TestUpdate() {
	created, err := s.store.Create(s.ctx, &models.Contact{Name: "Ada"})
	s.Require().NoError(err)

	created.RemindersPaused = true
	updated, err := s.store.Update(s.ctx, created)
	s.NoError(err)
	s.True(updated.RemindersPaused)

	_, err = s.store.Update(s.ctx, &models.Contact{ID: "missing"})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
