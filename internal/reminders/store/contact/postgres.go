package contact

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"kinship/internal/reminders/models"
)

// PostgresStore reads contact records from PostgreSQL.
// Contacts are owned by the surrounding application; this store only adds
// the writes needed for seeding and integration tests.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed contact store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const contactColumns = `id, name, communication_frequency, last_contacted_at, reminders_paused, birthday, created_at`

func (s *PostgresStore) GetAll(ctx context.Context) ([]*models.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*models.Contact
	for rows.Next() {
		record, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, record)
	}
	return contacts, rows.Err()
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	record, err := scanContact(s.db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Create(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	id := contact.ID
	if id == "" {
		id = uuid.NewString()
	}
	query := `
		INSERT INTO contacts (id, name, communication_frequency, last_contacted_at, reminders_paused, birthday)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''))
		RETURNING ` + contactColumns
	record, err := scanContact(s.db.QueryRowContext(ctx, query,
		id,
		contact.Name,
		string(contact.CommunicationFrequency),
		contact.LastContactedAt,
		contact.RemindersPaused,
		contact.Birthday,
	))
	if err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Update(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	query := `
		UPDATE contacts
		SET name = $2,
		    communication_frequency = NULLIF($3, ''),
		    last_contacted_at = $4,
		    reminders_paused = $5,
		    birthday = NULLIF($6, '')
		WHERE id = $1
		RETURNING ` + contactColumns
	record, err := scanContact(s.db.QueryRowContext(ctx, query,
		contact.ID,
		contact.Name,
		string(contact.CommunicationFrequency),
		contact.LastContactedAt,
		contact.RemindersPaused,
		contact.Birthday,
	))
	if err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}
	return record, nil
}

type contactRow interface {
	Scan(dest ...any) error
}

func scanContact(row contactRow) (*models.Contact, error) {
	var record models.Contact
	var frequency, birthday sql.NullString
	var lastContactedAt sql.NullTime
	if err := row.Scan(
		&record.ID,
		&record.Name,
		&frequency,
		&lastContactedAt,
		&record.RemindersPaused,
		&birthday,
		&record.CreatedAt,
	); err != nil {
		return nil, err
	}
	if frequency.Valid {
		record.CommunicationFrequency = models.Frequency(frequency.String)
	}
	if lastContactedAt.Valid {
		record.LastContactedAt = &lastContactedAt.Time
	}
	if birthday.Valid {
		record.Birthday = birthday.String
	}
	return &record, nil
}
