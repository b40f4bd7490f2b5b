// Package frequency contains the pure cadence arithmetic: due dates,
// overdue amounts, outreach priority, and cadence suggestions derived from
// interaction history. No I/O; every time-relative function takes an
// explicit reference instant so callers own the clock.
package frequency

import (
	"math"
	"sort"
	"time"

	"kinship/internal/reminders/models"
)

const hoursPerDay = 24

// intervalTable maps each cadence to a fixed day count. A "month" is always
// 30 days; the table is deliberately not calendar-aware.
var intervalTable = map[models.Frequency]int{
	models.FrequencyWeekly:     7,
	models.FrequencyMonthly:    30,
	models.FrequencyQuarterly:  90,
	models.FrequencyBiannually: 180,
	models.FrequencyAnnually:   365,
}

// IntervalDays returns the fixed day interval for a cadence.
// Unknown cadences return 0.
func IntervalDays(f models.Frequency) int {
	return intervalTable[f]
}

// NextDueDate returns when the contact is next due for outreach:
// the last contact time plus the cadence interval. Contacts never reached
// out to are treated as contacted now.
func NextDueDate(f models.Frequency, lastContactedAt *time.Time, now time.Time) time.Time {
	base := now
	if lastContactedAt != nil {
		base = *lastContactedAt
	}
	return base.Add(time.Duration(IntervalDays(f)) * hoursPerDay * time.Hour)
}

// DaysUntilDue returns whole days until the next due date.
// Negative values mean the contact is overdue.
func DaysUntilDue(f models.Frequency, lastContactedAt *time.Time, now time.Time) int {
	due := NextDueDate(f, lastContactedAt, now)
	return int(due.Sub(now).Hours() / hoursPerDay)
}

// DaysOverdue returns how many whole days past due the contact is, or 0.
func DaysOverdue(f models.Frequency, lastContactedAt *time.Time, now time.Time) int {
	if until := DaysUntilDue(f, lastContactedAt, now); until < 0 {
		return -until
	}
	return 0
}

// PriorityFor derives outreach priority from the overdue ratio
// (days overdue divided by the cadence interval). The thresholds are
// 2 (urgent), 1 (high), and 0.5 (medium); anything below is low.
func PriorityFor(f models.Frequency, lastContactedAt *time.Time, now time.Time) models.Priority {
	interval := IntervalDays(f)
	if interval == 0 {
		return models.PriorityLow
	}
	ratio := float64(DaysOverdue(f, lastContactedAt, now)) / float64(interval)
	switch {
	case ratio >= 2:
		return models.PriorityUrgent
	case ratio >= 1:
		return models.PriorityHigh
	case ratio >= 0.5:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// Suggest derives a cadence from past interaction dates. With fewer than two
// dates there is nothing to measure, so it falls back to monthly at low
// confidence. Otherwise it averages consecutive intervals and picks the
// cadence whose interval is numerically closest, breaking ties toward the
// shorter cadence. Confidence grows with interval consistency and is capped
// at 0.9.
func Suggest(interactionDates []time.Time) models.FrequencySuggestion {
	if len(interactionDates) < 2 {
		return models.FrequencySuggestion{
			Frequency:   models.FrequencyMonthly,
			Confidence:  0.3,
			SampleCount: len(interactionDates),
		}
	}

	dates := make([]time.Time, len(interactionDates))
	copy(dates, interactionDates)
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	intervals := make([]float64, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		intervals = append(intervals, dates[i].Sub(dates[i-1]).Hours()/hoursPerDay)
	}

	mean := 0.0
	for _, v := range intervals {
		mean += v
	}
	mean /= float64(len(intervals))

	variance := 0.0
	for _, v := range intervals {
		variance += (v - mean) * (v - mean)
	}
	stddev := math.Sqrt(variance / float64(len(intervals)))

	consistency := 0.0
	if mean > 0 {
		consistency = math.Max(0, 1-stddev/mean)
	}
	confidence := math.Min(0.9, 0.5+0.4*consistency)

	best := models.FrequencyWeekly
	bestDist := math.Inf(1)
	for _, f := range models.Frequencies() {
		dist := math.Abs(mean - float64(IntervalDays(f)))
		// Strict comparison keeps the earlier table entry on ties.
		if dist < bestDist {
			best = f
			bestDist = dist
		}
	}

	return models.FrequencySuggestion{
		Frequency:    best,
		Confidence:   confidence,
		SampleCount:  len(interactionDates),
		MeanInterval: mean,
	}
}

// ComputeWorkload estimates yearly outreach volume across the given
// contacts. Paused contacts and contacts without a cadence contribute
// nothing.
func ComputeWorkload(contacts []*models.Contact) models.Workload {
	w := models.Workload{
		ByFrequency: make(map[models.Frequency]int),
	}
	for _, c := range contacts {
		if c.RemindersPaused || !c.HasFrequency() {
			continue
		}
		interval := IntervalDays(c.CommunicationFrequency)
		if interval == 0 {
			continue
		}
		w.ActiveContacts++
		w.ContactsPerYear += 365 / float64(interval)
		w.ByFrequency[c.CommunicationFrequency]++
	}
	w.PerWeek = w.ContactsPerYear / 52
	w.PerMonth = w.ContactsPerYear / 12
	return w
}
