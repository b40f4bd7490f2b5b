// Package birthday contains the pure calendar arithmetic for birthday
// reminders: occurrence dates across year boundaries, leap-day handling,
// and the reminder descriptors an occurrence implies. No I/O.
package birthday

import (
	"fmt"
	"sort"
	"time"

	"kinship/internal/reminders/models"
)

// WeekBeforeOffset is how far ahead of the occurrence the week reminder lands.
const WeekBeforeOffset = 7 * 24 * time.Hour

var daysInMonth = [13]int{0, 31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// IsLeapYear implements the Gregorian leap year rule.
func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// IsValidBirthday reports whether s is a valid "MM-DD" birthday string.
// February 29 is accepted as a symbolic leap-day marker.
func IsValidBirthday(s string) bool {
	month, day, ok := splitMonthDay(s)
	if !ok {
		return false
	}
	return month >= 1 && month <= 12 && day >= 1 && day <= daysInMonth[month]
}

// OccurrenceDate returns the concrete date the birthday falls on in the
// given year. A February 29 birthday resolves to February 28 in non-leap
// years. Dates are anchored at midnight UTC.
func OccurrenceDate(month, day, year int) time.Time {
	if month == 2 && day == 29 && !IsLeapYear(year) {
		day = 28
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// ReminderWindow computes the candidate reminder descriptors for a contact's
// birthday: a week-before and a day-of reminder for both the current and the
// following year. Descriptors are returned unconditionally; callers persist
// only those scheduled strictly after their reference time.
func ReminderWindow(contact *models.Contact, now time.Time) []models.ReminderDescriptor {
	month, day, ok := splitMonthDay(contact.Birthday)
	if !ok || !IsValidBirthday(contact.Birthday) {
		return nil
	}

	descriptors := make([]models.ReminderDescriptor, 0, 4)
	for _, year := range []int{now.Year(), now.Year() + 1} {
		occurrence := OccurrenceDate(month, day, year)
		descriptors = append(descriptors,
			models.ReminderDescriptor{
				Type:         models.TypeBirthdayWeek,
				ScheduledFor: occurrence.Add(-WeekBeforeOffset),
				Message:      fmt.Sprintf("%s's birthday is in one week", contact.Name),
			},
			models.ReminderDescriptor{
				Type:         models.TypeBirthdayDay,
				ScheduledFor: occurrence,
				Message:      fmt.Sprintf("Today is %s's birthday!", contact.Name),
			},
		)
	}
	return descriptors
}

// NextOccurrence returns the nearest occurrence of the birthday that is not
// before today, rolling to next year when this year's date has passed.
func NextOccurrence(month, day int, now time.Time) time.Time {
	today := startOfDay(now)
	occurrence := OccurrenceDate(month, day, now.Year())
	if occurrence.Before(today) {
		occurrence = OccurrenceDate(month, day, now.Year()+1)
	}
	return occurrence
}

// Upcoming returns contacts whose next birthday occurrence falls within
// daysAhead days, sorted soonest first. Contacts without a valid birthday
// are skipped.
func Upcoming(contacts []*models.Contact, daysAhead int, now time.Time) []models.BirthdayOccurrence {
	var upcoming []models.BirthdayOccurrence
	for _, c := range contacts {
		month, day, ok := splitMonthDay(c.Birthday)
		if !ok || !IsValidBirthday(c.Birthday) {
			continue
		}
		occurrence := NextOccurrence(month, day, now)
		daysUntil := wholeDaysBetween(startOfDay(now), occurrence)
		if daysUntil > daysAhead {
			continue
		}
		upcoming = append(upcoming, models.BirthdayOccurrence{
			Contact:    c,
			Occurrence: occurrence,
			DaysUntil:  daysUntil,
		})
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].DaysUntil < upcoming[j].DaysUntil
	})
	return upcoming
}

// Today returns contacts whose stored birthday exactly matches today's
// "MM-DD". A February 29 birthday therefore only matches in leap years.
func Today(contacts []*models.Contact, now time.Time) []*models.Contact {
	key := now.UTC().Format("01-02")
	var matched []*models.Contact
	for _, c := range contacts {
		if c.Birthday == key {
			matched = append(matched, c)
		}
	}
	return matched
}

func splitMonthDay(s string) (month, day int, ok bool) {
	if len(s) != 5 || s[2] != '-' {
		return 0, 0, false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, 0, false
		}
	}
	month = int(s[0]-'0')*10 + int(s[1]-'0')
	day = int(s[3]-'0')*10 + int(s[4]-'0')
	return month, day, true
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func wholeDaysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
