package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kinship/internal/platform/clock"
	"kinship/internal/reminders/lifecycle"
	"kinship/internal/reminders/models"
	contactstore "kinship/internal/reminders/store/contact"
	reminderstore "kinship/internal/reminders/store/reminder"
	dErrors "kinship/pkg/domain-errors"
)

// flakyReminderStore fails contact queries for one contact id, for batch
// isolation tests.
type flakyReminderStore struct {
	*reminderstore.InMemoryStore
	failContactID string
}

func (f *flakyReminderStore) GetByContactID(ctx context.Context, contactID string, opts models.ListOptions) ([]*models.Reminder, error) {
	if contactID == f.failContactID {
		return nil, errors.New("store offline")
	}
	return f.InMemoryStore.GetByContactID(ctx, contactID, opts)
}

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	reminders *reminderstore.InMemoryStore
	contacts  *contactstore.InMemoryStore
	lifecycle *lifecycle.Service
	svc       *Service
	now       time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.reminders = reminderstore.New()
	s.contacts = contactstore.New()
	s.now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fixed := clock.Fixed{Instant: s.now}

	lc, err := lifecycle.New(s.reminders, lifecycle.WithLogger(logger), lifecycle.WithClock(fixed))
	s.Require().NoError(err)
	s.lifecycle = lc

	svc, err := New(s.reminders, s.contacts, lc,
		WithLogger(logger),
		WithClock(fixed),
		WithConcurrency(2),
	)
	s.Require().NoError(err)
	s.svc = svc
}

func (s *ServiceSuite) addContact(contact models.Contact) *models.Contact {
	created, err := s.contacts.Create(s.ctx, &contact)
	s.Require().NoError(err)
	return created
}

func (s *ServiceSuite) contactedDaysAgo(d int) *time.Time {
	t := s.now.AddDate(0, 0, -d)
	return &t
}

func (s *ServiceSuite) pendingFor(contactID string) []*models.Reminder {
	records, err := s.reminders.GetByContactID(s.ctx, contactID, models.ListOptions{
		Statuses: []models.ReminderStatus{models.StatusPending},
	})
	s.Require().NoError(err)
	return records
}

func (s *ServiceSuite) TestGenerateForContact() {
	s.Run("creates a reminder when the due date is within the window", func() {
		c := s.addContact(models.Contact{
			Name:                   "Ada",
			CommunicationFrequency: models.FrequencyMonthly,
			LastContactedAt:        s.contactedDaysAgo(25),
		})

		created, err := s.svc.GenerateForContact(s.ctx, c)

		s.Require().NoError(err)
		s.Require().NotNil(created)
		s.Equal(models.TypeCommunication, created.Type)
		s.Equal(models.StatusPending, created.Status)
		s.True(created.ScheduledFor.Equal(s.contactedDaysAgo(25).AddDate(0, 0, 30)))
		s.Equal("Time to reach out to Ada. You usually connect monthly.", created.Message)
	})

	s.Run("never-contacted contact is due a full interval from now", func() {
		c := s.addContact(models.Contact{
			Name:                   "New",
			CommunicationFrequency: models.FrequencyWeekly,
		})

		created, err := s.svc.GenerateForContact(s.ctx, c)

		s.Require().NoError(err)
		s.Require().NotNil(created)
		s.True(created.ScheduledFor.Equal(s.now.AddDate(0, 0, 7)))
	})

	s.Run("paused contact is skipped", func() {
		c := s.addContact(models.Contact{
			Name:                   "Paused",
			CommunicationFrequency: models.FrequencyWeekly,
			RemindersPaused:        true,
		})

		created, err := s.svc.GenerateForContact(s.ctx, c)

		s.NoError(err)
		s.Nil(created)
		s.Empty(s.pendingFor(c.ID))
	})

	s.Run("contact without a cadence is skipped", func() {
		c := s.addContact(models.Contact{Name: "NoCadence"})

		created, err := s.svc.GenerateForContact(s.ctx, c)

		s.NoError(err)
		s.Nil(created)
		s.Empty(s.pendingFor(c.ID))
	})

	s.Run("due date beyond the lead time is skipped", func() {
		c := s.addContact(models.Contact{
			Name:                   "Future",
			CommunicationFrequency: models.FrequencyMonthly,
			LastContactedAt:        s.contactedDaysAgo(10),
		})

		created, err := s.svc.GenerateForContact(s.ctx, c)

		s.NoError(err)
		s.Nil(created)
	})

	s.Run("overdue contact never gets a reminder in the past", func() {
		c := s.addContact(models.Contact{
			Name:                   "Overdue",
			CommunicationFrequency: models.FrequencyMonthly,
			LastContactedAt:        s.contactedDaysAgo(40),
		})

		created, err := s.svc.GenerateForContact(s.ctx, c)

		s.NoError(err)
		s.Nil(created)
		s.Empty(s.pendingFor(c.ID))
	})
}

func (s *ServiceSuite) TestGenerateIsIdempotent() {
	c := s.addContact(models.Contact{
		Name:                   "Ada",
		CommunicationFrequency: models.FrequencyMonthly,
		LastContactedAt:        s.contactedDaysAgo(25),
	})

	first, err := s.svc.GenerateForContact(s.ctx, c)
	s.Require().NoError(err)
	s.Require().NotNil(first)

	second, err := s.svc.GenerateForContact(s.ctx, c)
	s.NoError(err)
	s.Nil(second)

	s.Len(s.pendingFor(c.ID), 1)
}

func (s *ServiceSuite) TestDismissedReminderSuppressesRegeneration() {
	c := s.addContact(models.Contact{
		Name:                   "Ada",
		CommunicationFrequency: models.FrequencyMonthly,
		LastContactedAt:        s.contactedDaysAgo(25),
	})

	created, err := s.svc.GenerateForContact(s.ctx, c)
	s.Require().NoError(err)
	s.Require().NotNil(created)

	_, err = s.lifecycle.Dismiss(s.ctx, created.ID)
	s.Require().NoError(err)

	again, err := s.svc.GenerateForContact(s.ctx, c)
	s.NoError(err)
	s.Nil(again)
	s.Empty(s.pendingFor(c.ID))
}

func (s *ServiceSuite) TestGenerateForContactID() {
	s.Run("resolves the contact", func() {
		c := s.addContact(models.Contact{
			Name:                   "Ada",
			CommunicationFrequency: models.FrequencyWeekly,
		})

		created, err := s.svc.GenerateForContactID(s.ctx, c.ID)
		s.NoError(err)
		s.NotNil(created)
	})

	s.Run("unknown contact is not found", func() {
		_, err := s.svc.GenerateForContactID(s.ctx, "missing")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestGenerateAll() {
	s.addContact(models.Contact{
		Name:                   "Eligible",
		CommunicationFrequency: models.FrequencyMonthly,
		LastContactedAt:        s.contactedDaysAgo(25),
	})
	s.addContact(models.Contact{
		Name:                   "Paused",
		CommunicationFrequency: models.FrequencyWeekly,
		RemindersPaused:        true,
	})
	s.addContact(models.Contact{Name: "NoCadence"})
	s.addContact(models.Contact{
		Name:                   "TooFar",
		CommunicationFrequency: models.FrequencyAnnually,
		LastContactedAt:        s.contactedDaysAgo(10),
	})

	result, err := s.svc.GenerateAll(s.ctx)

	s.Require().NoError(err)
	s.Equal(4, result.Processed)
	s.Equal(1, result.Created)
	s.Equal(3, result.Skipped)
	s.Empty(result.Errors)
}

func (s *ServiceSuite) TestGenerateAllIsolatesFailures() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fixed := clock.Fixed{Instant: s.now}

	bad := s.addContact(models.Contact{
		Name:                   "Bad",
		CommunicationFrequency: models.FrequencyMonthly,
		LastContactedAt:        s.contactedDaysAgo(25),
	})
	good := s.addContact(models.Contact{
		Name:                   "Good",
		CommunicationFrequency: models.FrequencyMonthly,
		LastContactedAt:        s.contactedDaysAgo(25),
	})

	flaky := &flakyReminderStore{InMemoryStore: s.reminders, failContactID: bad.ID}
	svc, err := New(flaky, s.contacts, s.lifecycle,
		WithLogger(logger), WithClock(fixed), WithConcurrency(1))
	s.Require().NoError(err)

	result, err := svc.GenerateAll(s.ctx)

	s.Require().NoError(err)
	s.Equal(2, result.Processed)
	s.Equal(1, result.Created)
	s.Require().Len(result.Errors, 1)
	s.Equal(bad.ID, result.Errors[0].ContactID)
	s.Len(s.pendingFor(good.ID), 1)
}

func (s *ServiceSuite) TestRefreshAll() {
	for i := 0; i < 3; i++ {
		s.addContact(models.Contact{
			Name:                   fmt.Sprintf("Contact %d", i),
			CommunicationFrequency: models.FrequencyMonthly,
			LastContactedAt:        s.contactedDaysAgo(25),
		})
	}

	first, err := s.svc.GenerateAll(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, first.Created)

	refreshed, err := s.svc.RefreshAll(s.ctx)

	s.Require().NoError(err)
	s.Equal(3, refreshed.Deleted)
	s.Equal(3, refreshed.Created)
	s.Equal(3, refreshed.ContactsProcessed)
	s.Empty(refreshed.Errors)
}

func (s *ServiceSuite) TestCleanup() {
	s.Run("deletes closed reminders past the cutoff", func() {
		seed := func(status models.ReminderStatus, daysAgo int) {
			_, err := s.reminders.Create(s.ctx, &models.Reminder{
				ContactID:    "c1",
				Type:         models.TypeCommunication,
				Status:       status,
				ScheduledFor: s.now.AddDate(0, 0, -daysAgo),
				Message:      "old",
			})
			s.Require().NoError(err)
		}
		seed(models.StatusSent, 40)
		seed(models.StatusDismissed, 35)
		seed(models.StatusPending, 40)
		seed(models.StatusSent, 5)

		deleted, err := s.svc.Cleanup(s.ctx, 30)
		s.NoError(err)
		s.Equal(2, deleted)
	})

	s.Run("rejects negative age", func() {
		_, err := s.svc.Cleanup(s.ctx, -1)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestRegenerateBirthdayReminders() {
	s.Run("replaces pending birthday reminders with future occurrences", func() {
		c := s.addContact(models.Contact{Name: "Ada", Birthday: "03-14"})
		_, err := s.reminders.Create(s.ctx, &models.Reminder{
			ContactID:    c.ID,
			Type:         models.TypeBirthdayWeek,
			Status:       models.StatusPending,
			ScheduledFor: s.now.AddDate(0, 0, 1),
			Message:      "stale",
		})
		s.Require().NoError(err)

		created, err := s.svc.RegenerateBirthdayReminders(s.ctx, c)

		s.Require().NoError(err)
		s.Equal(2, created)

		records := s.pendingFor(c.ID)
		s.Require().Len(records, 2)
		for _, r := range records {
			s.NotEqual("stale", r.Message)
			s.True(r.ScheduledFor.After(s.now))
		}
	})

	s.Run("keeps only the future part of a split window", func() {
		// Birthday three days out: this year's week-before has passed, this
		// year's day-of and both of next year's remain.
		c := s.addContact(models.Contact{Name: "Soon", Birthday: "06-18"})

		created, err := s.svc.RegenerateBirthdayReminders(s.ctx, c)

		s.Require().NoError(err)
		s.Equal(3, created)
	})

	s.Run("leap-day birthdays land on feb 28 in non-leap years", func() {
		c := s.addContact(models.Contact{Name: "Leap", Birthday: "02-29"})

		created, err := s.svc.RegenerateBirthdayReminders(s.ctx, c)

		s.Require().NoError(err)
		s.Equal(2, created)

		records := s.pendingFor(c.ID)
		s.Require().Len(records, 2)
		for _, r := range records {
			if r.Type == models.TypeBirthdayDay {
				s.True(r.ScheduledFor.Equal(time.Date(2027, 2, 28, 0, 0, 0, 0, time.UTC)))
			}
		}
	})

	s.Run("contact without a birthday only clears stale records", func() {
		c := s.addContact(models.Contact{Name: "NoBirthday"})
		_, err := s.reminders.Create(s.ctx, &models.Reminder{
			ContactID:    c.ID,
			Type:         models.TypeBirthdayDay,
			Status:       models.StatusPending,
			ScheduledFor: s.now.AddDate(0, 0, 1),
			Message:      "stale",
		})
		s.Require().NoError(err)

		created, err := s.svc.RegenerateBirthdayReminders(s.ctx, c)

		s.NoError(err)
		s.Equal(0, created)
		s.Empty(s.pendingFor(c.ID))
	})
}

func (s *ServiceSuite) TestRegenerateBirthdayRemindersForID() {
	_, err := s.svc.RegenerateBirthdayRemindersForID(s.ctx, "missing")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestRegenerateAllBirthdayReminders() {
	s.addContact(models.Contact{Name: "Ada", Birthday: "03-14"})
	s.addContact(models.Contact{Name: "NoBirthday"})

	result, err := s.svc.RegenerateAllBirthdayReminders(s.ctx)

	s.Require().NoError(err)
	s.Equal(2, result.Processed)
	s.Equal(1, result.Created)
	s.Equal(1, result.Skipped)
	s.Empty(result.Errors)
}

func (s *ServiceSuite) TestWorkload() {
	s.addContact(models.Contact{Name: "A", CommunicationFrequency: models.FrequencyWeekly})
	s.addContact(models.Contact{Name: "B", CommunicationFrequency: models.FrequencyMonthly})
	s.addContact(models.Contact{Name: "C"})

	w, err := s.svc.Workload(s.ctx)

	s.Require().NoError(err)
	s.Equal(2, w.ActiveContacts)
	s.InDelta(365.0/7+365.0/30, w.ContactsPerYear, 1e-9)
}

func (s *ServiceSuite) TestBirthdayQueries() {
	s.Run("upcoming sorted soonest first", func() {
		s.addContact(models.Contact{Name: "Today", Birthday: "06-15"})
		s.addContact(models.Contact{Name: "Soon", Birthday: "06-20"})
		s.addContact(models.Contact{Name: "Far", Birthday: "12-25"})

		got, err := s.svc.UpcomingBirthdays(s.ctx, 30)
		s.Require().NoError(err)
		s.Require().Len(got, 2)
		s.Equal("Today", got[0].Contact.Name)
		s.Equal("Soon", got[1].Contact.Name)
	})

	s.Run("negative horizon is invalid", func() {
		_, err := s.svc.UpcomingBirthdays(s.ctx, -1)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("todays birthdays match exactly", func() {
		s.addContact(models.Contact{Name: "Birthday", Birthday: "06-15"})
		got, err := s.svc.TodaysBirthdays(s.ctx)
		s.Require().NoError(err)
		s.Require().NotEmpty(got)
		for _, c := range got {
			s.Equal("06-15", c.Birthday)
		}
	})
}
