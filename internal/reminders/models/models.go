// Package models defines the contact and reminder records the engine
// operates on, together with the enumerations governing their lifecycle.
package models

import (
	"time"

	dErrors "kinship/pkg/domain-errors"
)

// Frequency is the user-chosen contact cadence.
type Frequency string

const (
	FrequencyWeekly     Frequency = "weekly"
	FrequencyMonthly    Frequency = "monthly"
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencyBiannually Frequency = "biannually"
	FrequencyAnnually   Frequency = "annually"
)

// Frequencies returns every valid cadence in ascending interval order.
// The order doubles as the tie-break rule for frequency suggestions.
func Frequencies() []Frequency {
	return []Frequency{
		FrequencyWeekly,
		FrequencyMonthly,
		FrequencyQuarterly,
		FrequencyBiannually,
		FrequencyAnnually,
	}
}

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyBiannually, FrequencyAnnually:
		return true
	}
	return false
}

func (f Frequency) String() string {
	return string(f)
}

// ParseFrequency creates a Frequency from a string, validating it.
func ParseFrequency(s string) (Frequency, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "frequency cannot be empty")
	}
	f := Frequency(s)
	if !f.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid frequency: must be weekly, monthly, quarterly, biannually, or annually")
	}
	return f, nil
}

// Priority expresses how urgently a contact is due for outreach.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Rank orders priorities from low (0) to urgent (3).
func (p Priority) Rank() int {
	switch p {
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityUrgent:
		return 3
	default:
		return 0
	}
}

// ReminderType distinguishes cadence-driven reminders from birthday ones.
type ReminderType string

const (
	TypeCommunication ReminderType = "communication"
	TypeBirthdayWeek  ReminderType = "birthday_week"
	TypeBirthdayDay   ReminderType = "birthday_day"
)

func (t ReminderType) IsValid() bool {
	switch t {
	case TypeCommunication, TypeBirthdayWeek, TypeBirthdayDay:
		return true
	}
	return false
}

// BirthdayTypes lists the reminder types owned by birthday regeneration.
func BirthdayTypes() []ReminderType {
	return []ReminderType{TypeBirthdayWeek, TypeBirthdayDay}
}

// ReminderStatus is the state of a reminder record.
type ReminderStatus string

const (
	StatusPending   ReminderStatus = "pending"
	StatusSent      ReminderStatus = "sent"
	StatusDismissed ReminderStatus = "dismissed"
)

func (s ReminderStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusDismissed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status machine permits moving to next.
// The only legal transitions are pending→sent and pending→dismissed.
func (s ReminderStatus) CanTransitionTo(next ReminderStatus) bool {
	if s != StatusPending {
		return false
	}
	return next == StatusSent || next == StatusDismissed
}

// Contact is the external relationship record, read-only to this engine.
type Contact struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// CommunicationFrequency is empty when the user has not chosen a cadence.
	CommunicationFrequency Frequency  `json:"communication_frequency,omitempty"`
	LastContactedAt        *time.Time `json:"last_contacted_at,omitempty"`
	RemindersPaused        bool       `json:"reminders_paused"`

	// Birthday is "MM-DD", empty when unknown. Feb 29 is a valid symbolic
	// leap-day marker.
	Birthday string `json:"birthday,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// HasFrequency reports whether a cadence is set.
func (c *Contact) HasFrequency() bool {
	return c.CommunicationFrequency != ""
}

// Reminder is the record this engine owns.
type Reminder struct {
	ID           string         `json:"id"`
	ContactID    string         `json:"contact_id"`
	Type         ReminderType   `json:"type"`
	ScheduledFor time.Time      `json:"scheduled_for"`
	Status       ReminderStatus `json:"status"`
	Message      string         `json:"message"`

	// SentAt is stamped when the reminder leaves pending. For dismissed
	// reminders it records the dismissal time; there is no separate closed-at
	// field.
	SentAt    *time.Time `json:"sent_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsClosed reports whether the reminder has left the pending state.
func (r *Reminder) IsClosed() bool {
	return r.Status == StatusSent || r.Status == StatusDismissed
}

// SortOrder controls listing direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ListOptions filters and pages reminder queries.
// Zero values mean "no constraint"; Limit 0 means no limit.
type ListOptions struct {
	Type          ReminderType
	Statuses      []ReminderStatus
	ScheduledFrom *time.Time
	ScheduledTo   *time.Time
	SortBy        string
	SortOrder     SortOrder
	Limit         int
	Offset        int
}

// MatchesStatus reports whether the given status passes the filter.
func (o ListOptions) MatchesStatus(status ReminderStatus) bool {
	if len(o.Statuses) == 0 {
		return true
	}
	for _, s := range o.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// BatchError records a single contact's failure inside a batch operation.
type BatchError struct {
	ContactID string `json:"contact_id"`
	Err       error  `json:"-"`
}

// BatchResult aggregates the outcome of a continue-on-error batch run.
type BatchResult struct {
	Processed int          `json:"processed"`
	Created   int          `json:"created"`
	Skipped   int          `json:"skipped"`
	Errors    []BatchError `json:"errors,omitempty"`
}

// RefreshResult aggregates the outcome of a destructive global recompute.
type RefreshResult struct {
	Deleted           int          `json:"deleted"`
	Created           int          `json:"created"`
	ContactsProcessed int          `json:"contacts_processed"`
	Errors            []BatchError `json:"errors,omitempty"`
}

// FrequencySuggestion is a cadence derived from interaction history.
type FrequencySuggestion struct {
	Frequency    Frequency `json:"frequency"`
	Confidence   float64   `json:"confidence"`
	SampleCount  int       `json:"sample_count"`
	MeanInterval float64   `json:"mean_interval_days"`
}

// Workload summarizes expected outreach volume across active contacts.
type Workload struct {
	ActiveContacts  int               `json:"active_contacts"`
	ContactsPerYear float64           `json:"contacts_per_year"`
	PerWeek         float64           `json:"per_week"`
	PerMonth        float64           `json:"per_month"`
	ByFrequency     map[Frequency]int `json:"by_frequency"`
}

// BirthdayOccurrence pairs a contact with their next birthday occurrence.
type BirthdayOccurrence struct {
	Contact    *Contact  `json:"contact"`
	Occurrence time.Time `json:"occurrence"`
	DaysUntil  int       `json:"days_until"`
}

// ReminderDescriptor is a candidate reminder computed by the birthday
// scheduler before eligibility filtering and persistence.
type ReminderDescriptor struct {
	Type         ReminderType `json:"type"`
	ScheduledFor time.Time    `json:"scheduled_for"`
	Message      string       `json:"message"`
}
