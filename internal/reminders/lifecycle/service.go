// Package lifecycle owns validation and the status state machine for
// individual reminder records: create, mark-sent, dismiss, and archive.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kinship/internal/platform/clock"
	"kinship/internal/reminders/models"
	dErrors "kinship/pkg/domain-errors"
	"kinship/pkg/platform/validation"
)

// Store is the reminder persistence consumed by the lifecycle service.
type Store interface {
	Create(ctx context.Context, reminder *models.Reminder) (*models.Reminder, error)
	GetByID(ctx context.Context, id string) (*models.Reminder, error)
	GetByContactID(ctx context.Context, contactID string, opts models.ListOptions) ([]*models.Reminder, error)
	List(ctx context.Context, opts models.ListOptions) ([]*models.Reminder, error)
	GetDue(ctx context.Context, now time.Time) ([]*models.Reminder, error)
	Update(ctx context.Context, reminder *models.Reminder) (*models.Reminder, error)
	DeleteOlderThan(ctx context.Context, statuses []models.ReminderStatus, cutoff time.Time) (int, error)
	MarkMultipleAsSent(ctx context.Context, ids []string, sentAt time.Time) (int, error)
	DismissMultiple(ctx context.Context, ids []string, dismissedAt time.Time) (int, error)
}

// CreateInput carries the fields required to create a pending reminder.
type CreateInput struct {
	ContactID    string              `json:"contact_id"`
	Type         models.ReminderType `json:"type"`
	ScheduledFor time.Time           `json:"scheduled_for"`
	Message      string              `json:"message"`
}

// Validate enforces the creation invariants against the given reference time.
func (in CreateInput) Validate(now time.Time) error {
	if err := validation.CheckRequiredString("contact_id", in.ContactID); err != nil {
		return err
	}
	if !in.Type.IsValid() {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("invalid reminder type %q", in.Type))
	}
	if !in.ScheduledFor.After(now) {
		return dErrors.New(dErrors.CodeValidation, "scheduled_for must be in the future")
	}
	if err := validation.CheckRequiredString("message", in.Message); err != nil {
		return err
	}
	return validation.CheckStringLength("message", in.Message, validation.MaxMessageLength)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// Service applies the reminder state machine on top of a Store.
type Service struct {
	store  Store
	logger *slog.Logger
	clock  clock.Clock
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("reminder store is required")
	}
	svc := &Service{
		store:  store,
		logger: slog.Default(),
		clock:  clock.Real{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create validates the input and persists a new pending reminder.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Reminder, error) {
	if err := in.Validate(s.clock.Now()); err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, &models.Reminder{
		ContactID:    in.ContactID,
		Type:         in.Type,
		ScheduledFor: in.ScheduledFor,
		Status:       models.StatusPending,
		Message:      in.Message,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create reminder")
	}
	return created, nil
}

// MarkSent transitions a pending reminder to sent, stamping SentAt.
func (s *Service) MarkSent(ctx context.Context, id string) (*models.Reminder, error) {
	return s.transition(ctx, id, models.StatusSent)
}

// Dismiss transitions a pending reminder to dismissed. The closure time is
// recorded in SentAt; there is no separate closed-at field.
func (s *Service) Dismiss(ctx context.Context, id string) (*models.Reminder, error) {
	return s.transition(ctx, id, models.StatusDismissed)
}

func (s *Service) transition(ctx context.Context, id string, next models.ReminderStatus) (*models.Reminder, error) {
	record, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load reminder")
	}
	if record == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "reminder not found")
	}
	if !record.Status.CanTransitionTo(next) {
		return nil, dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("cannot transition reminder from %s to %s", record.Status, next))
	}

	now := s.clock.Now()
	record.Status = next
	record.SentAt = &now

	updated, err := s.store.Update(ctx, record)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update reminder")
	}
	return updated, nil
}

// MarkMultipleAsSent applies the pending→sent transition to every given id,
// returning how many records changed. Unknown and already-closed reminders
// are silently skipped.
func (s *Service) MarkMultipleAsSent(ctx context.Context, ids []string) (int, error) {
	if err := validation.CheckSliceCount("ids", len(ids), validation.MaxBulkIDs); err != nil {
		return 0, err
	}
	updated, err := s.store.MarkMultipleAsSent(ctx, ids, s.clock.Now())
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark reminders as sent")
	}
	return updated, nil
}

// DismissMultiple applies the pending→dismissed transition to every given id.
func (s *Service) DismissMultiple(ctx context.Context, ids []string) (int, error) {
	if err := validation.CheckSliceCount("ids", len(ids), validation.MaxBulkIDs); err != nil {
		return 0, err
	}
	updated, err := s.store.DismissMultiple(ctx, ids, s.clock.Now())
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to dismiss reminders")
	}
	return updated, nil
}

// Archive hard-deletes sent and dismissed reminders whose ScheduledFor
// predates now minus daysOld days. SentAt is deliberately not consulted.
func (s *Service) Archive(ctx context.Context, daysOld int) (int, error) {
	if daysOld < 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "daysOld cannot be negative")
	}
	cutoff := s.clock.Now().AddDate(0, 0, -daysOld)
	deleted, err := s.store.DeleteOlderThan(ctx,
		[]models.ReminderStatus{models.StatusSent, models.StatusDismissed}, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to archive reminders")
	}

	s.logger.InfoContext(ctx, "reminders_archived",
		"deleted", deleted,
		"cutoff", cutoff,
	)
	return deleted, nil
}

// GetByContactID lists a contact's reminders with the given filters.
func (s *Service) GetByContactID(ctx context.Context, contactID string, opts models.ListOptions) ([]*models.Reminder, error) {
	records, err := s.store.GetByContactID(ctx, contactID, opts)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list contact reminders")
	}
	return records, nil
}

// List lists reminders across contacts with the given filters.
func (s *Service) List(ctx context.Context, opts models.ListOptions) ([]*models.Reminder, error) {
	records, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list reminders")
	}
	return records, nil
}

// GetDue returns pending reminders whose scheduled time has arrived.
func (s *Service) GetDue(ctx context.Context) ([]*models.Reminder, error) {
	records, err := s.store.GetDue(ctx, s.clock.Now())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to get due reminders")
	}
	return records, nil
}
