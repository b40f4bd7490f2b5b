// Package seeder populates in-memory stores with demo contacts so the
// service is explorable without a database.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kinship/internal/reminders/models"
)

// ContactStore defines the methods needed for seeding contacts.
type ContactStore interface {
	Create(ctx context.Context, contact *models.Contact) (*models.Contact, error)
}

// Seeder populates stores with demo data.
type Seeder struct {
	contacts ContactStore
	logger   *slog.Logger
}

// New creates a new seeder.
func New(contacts ContactStore, logger *slog.Logger) *Seeder {
	return &Seeder{
		contacts: contacts,
		logger:   logger,
	}
}

// SeedAll populates the contact store with demo relationships covering the
// interesting policy cases: due soon, overdue, paused, no cadence, and a
// leap-day birthday.
func (s *Seeder) SeedAll(ctx context.Context) error {
	s.logger.Info("seeding demo contacts...")

	now := time.Now()
	daysAgo := func(d int) *time.Time {
		t := now.AddDate(0, 0, -d)
		return &t
	}

	demo := []*models.Contact{
		{
			Name:                   "Alice Hart",
			CommunicationFrequency: models.FrequencyMonthly,
			LastContactedAt:        daysAgo(26),
			Birthday:               "03-14",
		},
		{
			Name:                   "Bruno Keller",
			CommunicationFrequency: models.FrequencyWeekly,
			LastContactedAt:        daysAgo(11),
		},
		{
			Name:                   "Chiara Voss",
			CommunicationFrequency: models.FrequencyQuarterly,
			LastContactedAt:        daysAgo(30),
			Birthday:               "02-29",
		},
		{
			Name:            "Dmitri Aslanov",
			RemindersPaused: false,
			Birthday:        "11-02",
		},
		{
			Name:                   "Elena Brandt",
			CommunicationFrequency: models.FrequencyAnnually,
			LastContactedAt:        daysAgo(360),
			RemindersPaused:        true,
		},
	}

	for _, contact := range demo {
		if _, err := s.contacts.Create(ctx, contact); err != nil {
			return fmt.Errorf("failed to seed contact %q: %w", contact.Name, err)
		}
	}

	s.logger.Info("demo contacts seeded", "count", len(demo))
	return nil
}
