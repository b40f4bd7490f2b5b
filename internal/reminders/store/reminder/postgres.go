package reminder

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"kinship/internal/reminders/models"
)

// PostgresStore persists reminder records in PostgreSQL.
// This store is pure I/O; dedup windows, lead times, and status rules belong
// in the services. The partial unique index on (contact_id, type, window)
// is the storage half of the duplicate-creation defense.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed reminder store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const reminderColumns = `id, contact_id, type, scheduled_for, status, message, sent_at, created_at`

func (s *PostgresStore) Create(ctx context.Context, reminder *models.Reminder) (*models.Reminder, error) {
	id := reminder.ID
	if id == "" {
		id = uuid.NewString()
	}
	query := `
		INSERT INTO reminders (id, contact_id, type, scheduled_for, status, message, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + reminderColumns
	record, err := scanReminder(s.db.QueryRowContext(ctx, query,
		id,
		reminder.ContactID,
		reminder.Type,
		reminder.ScheduledFor,
		reminder.Status,
		reminder.Message,
		reminder.SentAt,
	))
	if err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*models.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = $1`
	record, err := scanReminder(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get reminder: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) GetByContactID(ctx context.Context, contactID string, opts models.ListOptions) ([]*models.Reminder, error) {
	where, args := buildFilter(opts, []string{"contact_id = $1"}, []any{contactID})
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE ` + where + orderClause(opts) + limitClause(opts)
	records, err := s.queryReminders(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get reminders by contact: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) List(ctx context.Context, opts models.ListOptions) ([]*models.Reminder, error) {
	where, args := buildFilter(opts, []string{"TRUE"}, nil)
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE ` + where + orderClause(opts) + limitClause(opts)
	records, err := s.queryReminders(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return records, nil
}

// GetDue returns pending reminders scheduled at or before now.
// The cutoff is provided by the caller to keep clock ownership out of the store.
func (s *PostgresStore) GetDue(ctx context.Context, now time.Time) ([]*models.Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for ASC`
	records, err := s.queryReminders(ctx, query, models.StatusPending, now)
	if err != nil {
		return nil, fmt.Errorf("get due reminders: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Update(ctx context.Context, reminder *models.Reminder) (*models.Reminder, error) {
	query := `
		UPDATE reminders
		SET type = $2, scheduled_for = $3, status = $4, message = $5, sent_at = $6
		WHERE id = $1
		RETURNING ` + reminderColumns
	record, err := scanReminder(s.db.QueryRowContext(ctx, query,
		reminder.ID,
		reminder.Type,
		reminder.ScheduledFor,
		reminder.Status,
		reminder.Message,
		reminder.SentAt,
	))
	if err != nil {
		return nil, fmt.Errorf("update reminder: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteByContactAndTypes(ctx context.Context, contactID string, types []models.ReminderType, statuses []models.ReminderStatus) (int, error) {
	query := `
		DELETE FROM reminders
		WHERE contact_id = $1
		  AND type = ANY($2)
		  AND status = ANY($3)`
	res, err := s.db.ExecContext(ctx, query, contactID, typeStrings(types), statusStrings(statuses))
	if err != nil {
		return 0, fmt.Errorf("delete reminders by contact and types: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted reminders: %w", err)
	}
	return int(affected), nil
}

func (s *PostgresStore) DeleteByTypeAndStatus(ctx context.Context, t models.ReminderType, status models.ReminderStatus) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE type = $1 AND status = $2`, t, status)
	if err != nil {
		return 0, fmt.Errorf("delete reminders by type and status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted reminders: %w", err)
	}
	return int(affected), nil
}

func (s *PostgresStore) DeleteOlderThan(ctx context.Context, statuses []models.ReminderStatus, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM reminders WHERE status = ANY($1) AND scheduled_for < $2`,
		statusStrings(statuses), cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old reminders: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted reminders: %w", err)
	}
	return int(affected), nil
}

func (s *PostgresStore) MarkMultipleAsSent(ctx context.Context, ids []string, sentAt time.Time) (int, error) {
	return s.transitionMultiple(ctx, ids, models.StatusSent, sentAt)
}

func (s *PostgresStore) DismissMultiple(ctx context.Context, ids []string, dismissedAt time.Time) (int, error) {
	return s.transitionMultiple(ctx, ids, models.StatusDismissed, dismissedAt)
}

// transitionMultiple applies a bulk pending→next transition in one statement.
// The status guard in the WHERE clause enforces the state machine in storage.
func (s *PostgresStore) transitionMultiple(ctx context.Context, ids []string, next models.ReminderStatus, at time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET status = $1, sent_at = $2 WHERE id = ANY($3) AND status = $4`,
		next, at, ids, models.StatusPending)
	if err != nil {
		return 0, fmt.Errorf("bulk transition reminders: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count transitioned reminders: %w", err)
	}
	return int(affected), nil
}

func (s *PostgresStore) queryReminders(ctx context.Context, query string, args ...any) ([]*models.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.Reminder
	for rows.Next() {
		record, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func buildFilter(opts models.ListOptions, conditions []string, args []any) (string, []any) {
	if opts.Type != "" {
		args = append(args, opts.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if len(opts.Statuses) > 0 {
		args = append(args, statusStrings(opts.Statuses))
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if opts.ScheduledFrom != nil {
		args = append(args, *opts.ScheduledFrom)
		conditions = append(conditions, fmt.Sprintf("scheduled_for >= $%d", len(args)))
	}
	if opts.ScheduledTo != nil {
		args = append(args, *opts.ScheduledTo)
		conditions = append(conditions, fmt.Sprintf("scheduled_for <= $%d", len(args)))
	}
	return strings.Join(conditions, " AND "), args
}

func orderClause(opts models.ListOptions) string {
	column := "scheduled_for"
	if opts.SortBy == "created_at" {
		column = "created_at"
	}
	direction := "ASC"
	if opts.SortOrder == models.SortDesc {
		direction = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", column, direction)
}

func limitClause(opts models.ListOptions) string {
	clause := ""
	if opts.Limit > 0 {
		clause += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		clause += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}
	return clause
}

func typeStrings(types []models.ReminderType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func statusStrings(statuses []models.ReminderStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

type reminderRow interface {
	Scan(dest ...any) error
}

func scanReminder(row reminderRow) (*models.Reminder, error) {
	var record models.Reminder
	var sentAt sql.NullTime
	if err := row.Scan(
		&record.ID,
		&record.ContactID,
		&record.Type,
		&record.ScheduledFor,
		&record.Status,
		&record.Message,
		&sentAt,
		&record.CreatedAt,
	); err != nil {
		return nil, err
	}
	if sentAt.Valid {
		record.SentAt = &sentAt.Time
	}
	return &record, nil
}
