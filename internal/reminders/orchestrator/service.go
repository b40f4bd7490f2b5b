// Package orchestrator coordinates reminder generation: it iterates
// contacts, applies the dedup and lead-time policies against the reminder
// store, and owns the refresh, cleanup, and birthday regeneration
// maintenance operations.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"kinship/internal/platform/clock"
	"kinship/internal/reminders/birthday"
	"kinship/internal/reminders/frequency"
	"kinship/internal/reminders/lifecycle"
	"kinship/internal/reminders/metrics"
	"kinship/internal/reminders/models"
	dErrors "kinship/pkg/domain-errors"
	psync "kinship/pkg/platform/sync"
)

// Policy constants. The dedup window is the tolerance around a due date
// within which an existing pending or dismissed reminder suppresses a new
// one; the lead-time window is the horizon within which a communication
// reminder is eligible for creation at all.
const (
	DedupWindowDays = 2
	LeadTimeDays    = 7
)

// ReminderStore is the reminder persistence consumed by the orchestrator.
// Creation goes through the Lifecycle so its validation applies everywhere.
type ReminderStore interface {
	GetByContactID(ctx context.Context, contactID string, opts models.ListOptions) ([]*models.Reminder, error)
	DeleteByContactAndTypes(ctx context.Context, contactID string, types []models.ReminderType, statuses []models.ReminderStatus) (int, error)
	DeleteByTypeAndStatus(ctx context.Context, t models.ReminderType, status models.ReminderStatus) (int, error)
	DeleteOlderThan(ctx context.Context, statuses []models.ReminderStatus, cutoff time.Time) (int, error)
}

// ContactStore is the read-only contact collaborator.
type ContactStore interface {
	GetAll(ctx context.Context) ([]*models.Contact, error)
	GetByID(ctx context.Context, id string) (*models.Contact, error)
}

// Lifecycle is the record-creation service the orchestrator persists through.
type Lifecycle interface {
	Create(ctx context.Context, in lifecycle.CreateInput) (*models.Reminder, error)
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

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithConcurrency bounds how many contacts a batch processes in parallel.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// Service is the stateful coordination layer of the engine.
type Service struct {
	reminders ReminderStore
	contacts  ContactStore
	lifecycle Lifecycle

	logger      *slog.Logger
	clock       clock.Clock
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	concurrency int

	// locks serializes generation per contact: the dedup check and the
	// subsequent create are two store calls, and without serialization two
	// concurrent invocations for the same contact can both pass the check.
	locks *psync.ShardedMutex
}

func New(reminders ReminderStore, contacts ContactStore, lc Lifecycle, opts ...Option) (*Service, error) {
	if reminders == nil {
		return nil, fmt.Errorf("reminder store is required")
	}
	if contacts == nil {
		return nil, fmt.Errorf("contact store is required")
	}
	if lc == nil {
		return nil, fmt.Errorf("lifecycle service is required")
	}

	svc := &Service{
		reminders:   reminders,
		contacts:    contacts,
		lifecycle:   lc,
		logger:      slog.Default(),
		clock:       clock.Real{},
		tracer:      otel.Tracer("kinship/reminders"),
		concurrency: 4,
		locks:       psync.NewShardedMutex(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Skip reasons surfaced in logs and metrics.
const (
	skipPaused      = "paused"
	skipNoFrequency = "no_frequency"
	skipDedup       = "dedup"
	skipLeadTime    = "lead_time"
)

// GenerateForContact applies the generation policy to a single contact and
// returns the created reminder, or nil when the policy decided to skip.
func (s *Service) GenerateForContact(ctx context.Context, contact *models.Contact) (*models.Reminder, error) {
	created, _, err := s.generateForContact(ctx, contact)
	return created, err
}

// GenerateForContactID resolves the contact first; unknown ids are a
// not_found error.
func (s *Service) GenerateForContactID(ctx context.Context, contactID string) (*models.Reminder, error) {
	contact, err := s.contacts.GetByID(ctx, contactID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load contact")
	}
	if contact == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "contact not found")
	}
	return s.GenerateForContact(ctx, contact)
}

func (s *Service) generateForContact(ctx context.Context, contact *models.Contact) (*models.Reminder, string, error) {
	if contact.RemindersPaused {
		return nil, s.skipped(ctx, contact, skipPaused), nil
	}
	if !contact.HasFrequency() {
		return nil, s.skipped(ctx, contact, skipNoFrequency), nil
	}

	s.locks.Lock(contact.ID)
	defer s.locks.Unlock(contact.ID)

	now := s.clock.Now()
	nextDue := frequency.NextDueDate(contact.CommunicationFrequency, contact.LastContactedAt, now)

	// Dedup looks at every reminder type: a recently dismissed record near
	// the due date means the user already decided about this window.
	existing, err := s.reminders.GetByContactID(ctx, contact.ID, models.ListOptions{
		Statuses: []models.ReminderStatus{models.StatusPending, models.StatusDismissed},
	})
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to query existing reminders")
	}
	for _, record := range existing {
		if withinDedupWindow(record.ScheduledFor, nextDue) {
			return nil, s.skipped(ctx, contact, skipDedup), nil
		}
	}

	daysUntil := frequency.DaysUntilDue(contact.CommunicationFrequency, contact.LastContactedAt, now)
	if daysUntil < 0 || daysUntil > LeadTimeDays || !nextDue.After(now) {
		// Too far out, or already overdue. Overdue contacts are surfaced at
		// read time through the due-reminders query, not by creating records
		// in the past.
		return nil, s.skipped(ctx, contact, skipLeadTime), nil
	}

	created, err := s.lifecycle.Create(ctx, lifecycle.CreateInput{
		ContactID:    contact.ID,
		Type:         models.TypeCommunication,
		ScheduledFor: nextDue,
		Message:      communicationMessage(contact),
	})
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to create communication reminder")
	}

	if s.metrics != nil {
		s.metrics.RemindersCreatedTotal.WithLabelValues(string(models.TypeCommunication)).Inc()
	}
	s.logger.InfoContext(ctx, "reminder_created",
		"contact_id", contact.ID,
		"type", models.TypeCommunication,
		"scheduled_for", created.ScheduledFor,
	)
	return created, "", nil
}

func (s *Service) skipped(ctx context.Context, contact *models.Contact, reason string) string {
	if s.metrics != nil {
		s.metrics.GenerationSkippedTotal.WithLabelValues(reason).Inc()
	}
	s.logger.DebugContext(ctx, "reminder_generation_skipped",
		"contact_id", contact.ID,
		"reason", reason,
	)
	return reason
}

// GenerateAll runs the generation policy over every contact. Per-contact
// failures are absorbed into the result; the batch always completes.
func (s *Service) GenerateAll(ctx context.Context) (*models.BatchResult, error) {
	ctx, span := s.tracer.Start(ctx, "reminders.generate_all")
	defer span.End()

	contacts, err := s.contacts.GetAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list contacts")
	}
	span.SetAttributes(attribute.Int("contacts.count", len(contacts)))

	result := s.runBatch(ctx, contacts, func(ctx context.Context, contact *models.Contact) (bool, error) {
		created, _, err := s.generateForContact(ctx, contact)
		return created != nil, err
	})

	s.logger.InfoContext(ctx, "reminder_generation_completed",
		"processed", result.Processed,
		"created", result.Created,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
	)
	return result, nil
}

// RefreshAll bulk-deletes every pending communication reminder and
// regenerates from scratch. Destructive global recompute for periodic
// consistency correction, not for steady-state use.
func (s *Service) RefreshAll(ctx context.Context) (*models.RefreshResult, error) {
	ctx, span := s.tracer.Start(ctx, "reminders.refresh_all")
	defer span.End()

	deleted, err := s.reminders.DeleteByTypeAndStatus(ctx, models.TypeCommunication, models.StatusPending)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete pending communication reminders")
	}
	if s.metrics != nil {
		s.metrics.RemindersDeletedTotal.WithLabelValues("refresh").Add(float64(deleted))
	}

	batch, err := s.GenerateAll(ctx)
	if err != nil {
		return nil, err
	}

	result := &models.RefreshResult{
		Deleted:           deleted,
		Created:           batch.Created,
		ContactsProcessed: batch.Processed,
		Errors:            batch.Errors,
	}
	s.logger.InfoContext(ctx, "reminder_refresh_completed",
		"deleted", result.Deleted,
		"created", result.Created,
		"contacts_processed", result.ContactsProcessed,
	)
	return result, nil
}

// Cleanup hard-deletes dismissed and sent reminders scheduled more than
// daysOld days ago. Pure garbage collection; dedup correctness does not
// depend on it.
func (s *Service) Cleanup(ctx context.Context, daysOld int) (int, error) {
	if daysOld < 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "daysOld cannot be negative")
	}
	cutoff := s.clock.Now().AddDate(0, 0, -daysOld)
	deleted, err := s.reminders.DeleteOlderThan(ctx,
		[]models.ReminderStatus{models.StatusDismissed, models.StatusSent}, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clean up reminders")
	}

	if s.metrics != nil {
		s.metrics.RemindersDeletedTotal.WithLabelValues("cleanup").Add(float64(deleted))
	}
	s.logger.InfoContext(ctx, "reminder_cleanup_completed",
		"deleted", deleted,
		"cutoff", cutoff,
	)
	return deleted, nil
}

// RegenerateBirthdayReminders deletes the contact's pending birthday
// reminders and recreates them from the current reminder window, keeping
// only future occurrences.
func (s *Service) RegenerateBirthdayReminders(ctx context.Context, contact *models.Contact) (int, error) {
	s.locks.Lock(contact.ID)
	defer s.locks.Unlock(contact.ID)

	deleted, err := s.reminders.DeleteByContactAndTypes(ctx, contact.ID,
		models.BirthdayTypes(), []models.ReminderStatus{models.StatusPending})
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete pending birthday reminders")
	}
	if s.metrics != nil && deleted > 0 {
		s.metrics.RemindersDeletedTotal.WithLabelValues("birthday_regenerate").Add(float64(deleted))
	}

	if contact.Birthday == "" {
		return 0, nil
	}

	now := s.clock.Now()
	created := 0
	for _, descriptor := range birthday.ReminderWindow(contact, now) {
		if !descriptor.ScheduledFor.After(now) {
			continue
		}
		if _, err := s.lifecycle.Create(ctx, lifecycle.CreateInput{
			ContactID:    contact.ID,
			Type:         descriptor.Type,
			ScheduledFor: descriptor.ScheduledFor,
			Message:      descriptor.Message,
		}); err != nil {
			return created, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create birthday reminder")
		}
		if s.metrics != nil {
			s.metrics.RemindersCreatedTotal.WithLabelValues(string(descriptor.Type)).Inc()
		}
		created++
	}

	s.logger.InfoContext(ctx, "birthday_reminders_regenerated",
		"contact_id", contact.ID,
		"deleted", deleted,
		"created", created,
	)
	return created, nil
}

// RegenerateBirthdayRemindersForID resolves the contact first; unknown ids
// are a not_found error.
func (s *Service) RegenerateBirthdayRemindersForID(ctx context.Context, contactID string) (int, error) {
	contact, err := s.contacts.GetByID(ctx, contactID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load contact")
	}
	if contact == nil {
		return 0, dErrors.New(dErrors.CodeNotFound, "contact not found")
	}
	return s.RegenerateBirthdayReminders(ctx, contact)
}

// RegenerateAllBirthdayReminders applies birthday regeneration to every
// contact with the same per-contact failure isolation as GenerateAll.
func (s *Service) RegenerateAllBirthdayReminders(ctx context.Context) (*models.BatchResult, error) {
	ctx, span := s.tracer.Start(ctx, "reminders.regenerate_birthdays")
	defer span.End()

	contacts, err := s.contacts.GetAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list contacts")
	}
	span.SetAttributes(attribute.Int("contacts.count", len(contacts)))

	result := s.runBatch(ctx, contacts, func(ctx context.Context, contact *models.Contact) (bool, error) {
		if contact.Birthday == "" {
			return false, nil
		}
		created, err := s.RegenerateBirthdayReminders(ctx, contact)
		return created > 0, err
	})

	s.logger.InfoContext(ctx, "birthday_regeneration_completed",
		"processed", result.Processed,
		"created", result.Created,
		"errors", len(result.Errors),
	)
	return result, nil
}

// runBatch iterates contacts with bounded parallelism, absorbing per-contact
// failures into the aggregate result.
func (s *Service) runBatch(ctx context.Context, contacts []*models.Contact, work func(context.Context, *models.Contact) (bool, error)) *models.BatchResult {
	result := &models.BatchResult{Processed: len(contacts)}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, contact := range contacts {
		g.Go(func() error {
			created, err := work(ctx, contact)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Errors = append(result.Errors, models.BatchError{ContactID: contact.ID, Err: err})
				if s.metrics != nil {
					s.metrics.BatchErrorsTotal.Inc()
				}
				s.logger.ErrorContext(ctx, "batch_contact_failed",
					"contact_id", contact.ID,
					"error", err,
				)
			case created:
				result.Created++
			default:
				result.Skipped++
			}
			// Per-contact failures never abort the batch.
			return nil
		})
	}
	_ = g.Wait()
	return result
}

// Workload summarizes expected outreach volume across all contacts.
func (s *Service) Workload(ctx context.Context) (*models.Workload, error) {
	contacts, err := s.contacts.GetAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list contacts")
	}
	w := frequency.ComputeWorkload(contacts)
	return &w, nil
}

// UpcomingBirthdays returns contacts with a birthday within daysAhead days,
// soonest first.
func (s *Service) UpcomingBirthdays(ctx context.Context, daysAhead int) ([]models.BirthdayOccurrence, error) {
	if daysAhead < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "daysAhead cannot be negative")
	}
	contacts, err := s.contacts.GetAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list contacts")
	}
	return birthday.Upcoming(contacts, daysAhead, s.clock.Now()), nil
}

// TodaysBirthdays returns contacts whose birthday is today.
func (s *Service) TodaysBirthdays(ctx context.Context) ([]*models.Contact, error) {
	contacts, err := s.contacts.GetAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list contacts")
	}
	return birthday.Today(contacts, s.clock.Now()), nil
}

func withinDedupWindow(existing, candidate time.Time) bool {
	diff := existing.Sub(candidate)
	if diff < 0 {
		diff = -diff
	}
	return diff <= DedupWindowDays*24*time.Hour
}

func communicationMessage(contact *models.Contact) string {
	return fmt.Sprintf("Time to reach out to %s. You usually connect %s.",
		contact.Name, contact.CommunicationFrequency)
}
