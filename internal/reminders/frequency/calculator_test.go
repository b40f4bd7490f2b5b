package frequency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kinship/internal/reminders/models"
)

type CalculatorSuite struct {
	suite.Suite
	now time.Time
}

func TestCalculatorSuite(t *testing.T) {
	suite.Run(t, new(CalculatorSuite))
}

func (s *CalculatorSuite) SetupTest() {
	s.now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
}

func (s *CalculatorSuite) daysAgo(d int) *time.Time {
	t := s.now.AddDate(0, 0, -d)
	return &t
}

func (s *CalculatorSuite) TestIntervalDays() {
	s.Run("fixed table", func() {
		s.Equal(7, IntervalDays(models.FrequencyWeekly))
		s.Equal(30, IntervalDays(models.FrequencyMonthly))
		s.Equal(90, IntervalDays(models.FrequencyQuarterly))
		s.Equal(180, IntervalDays(models.FrequencyBiannually))
		s.Equal(365, IntervalDays(models.FrequencyAnnually))
	})

	s.Run("unknown cadence yields zero", func() {
		s.Equal(0, IntervalDays(models.Frequency("fortnightly")))
	})
}

func (s *CalculatorSuite) TestNextDueDate() {
	s.Run("adds exactly the interval to the last contact", func() {
		for _, f := range models.Frequencies() {
			last := s.daysAgo(3)
			want := last.AddDate(0, 0, IntervalDays(f))
			s.True(want.Equal(NextDueDate(f, last, s.now)), "frequency %s", f)
		}
	})

	s.Run("never-contacted falls back to now", func() {
		due := NextDueDate(models.FrequencyWeekly, nil, s.now)
		s.True(s.now.AddDate(0, 0, 7).Equal(due))
	})
}

func (s *CalculatorSuite) TestDaysUntilAndOverdue() {
	s.Run("due in the future", func() {
		s.Equal(5, DaysUntilDue(models.FrequencyMonthly, s.daysAgo(25), s.now))
		s.Equal(0, DaysOverdue(models.FrequencyMonthly, s.daysAgo(25), s.now))
	})

	s.Run("monthly cadence 40 days after last contact is 10 days overdue", func() {
		s.Equal(-10, DaysUntilDue(models.FrequencyMonthly, s.daysAgo(40), s.now))
		s.Equal(10, DaysOverdue(models.FrequencyMonthly, s.daysAgo(40), s.now))
	})

	s.Run("due exactly now is neither early nor overdue", func() {
		s.Equal(0, DaysUntilDue(models.FrequencyWeekly, s.daysAgo(7), s.now))
		s.Equal(0, DaysOverdue(models.FrequencyWeekly, s.daysAgo(7), s.now))
	})
}

func (s *CalculatorSuite) TestPriorityThresholds() {
	s.Run("ratio below 0.5 is low", func() {
		// 10 days overdue on a 30-day interval: ratio 0.33
		s.Equal(models.PriorityLow, PriorityFor(models.FrequencyMonthly, s.daysAgo(40), s.now))
	})

	s.Run("ratio at least 0.5 is medium", func() {
		// 18 days overdue: ratio 0.6
		s.Equal(models.PriorityMedium, PriorityFor(models.FrequencyMonthly, s.daysAgo(48), s.now))
	})

	s.Run("ratio at least 1 is high", func() {
		// 35 days overdue: ratio 1.17
		s.Equal(models.PriorityHigh, PriorityFor(models.FrequencyMonthly, s.daysAgo(65), s.now))
	})

	s.Run("ratio at least 2 is urgent", func() {
		// 75 days overdue: ratio 2.5
		s.Equal(models.PriorityUrgent, PriorityFor(models.FrequencyMonthly, s.daysAgo(105), s.now))
	})

	s.Run("not overdue is low", func() {
		s.Equal(models.PriorityLow, PriorityFor(models.FrequencyWeekly, s.daysAgo(2), s.now))
	})

	s.Run("priority is monotone across boundaries", func() {
		prev := -1
		for _, overdueDays := range []int{0, 14, 18, 29, 31, 59, 61, 90} {
			p := PriorityFor(models.FrequencyMonthly, s.daysAgo(30+overdueDays), s.now)
			s.GreaterOrEqual(p.Rank(), prev, "rank must not decrease at %d days overdue", overdueDays)
			prev = p.Rank()
		}
	})
}

func (s *CalculatorSuite) TestSuggest() {
	date := func(day int) time.Time {
		return time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC)
	}

	s.Run("fewer than two dates falls back to monthly at low confidence", func() {
		got := Suggest([]time.Time{date(1)})
		s.Equal(models.FrequencyMonthly, got.Frequency)
		s.InDelta(0.3, got.Confidence, 1e-9)
		s.Equal(1, got.SampleCount)
	})

	s.Run("perfectly regular weekly history is weekly at max confidence", func() {
		got := Suggest([]time.Time{date(1), date(8), date(15), date(22)})
		s.Equal(models.FrequencyWeekly, got.Frequency)
		s.InDelta(0.9, got.Confidence, 1e-9)
		s.InDelta(7, got.MeanInterval, 1e-9)
	})

	s.Run("input order does not matter", func() {
		got := Suggest([]time.Time{date(22), date(1), date(15), date(8)})
		s.Equal(models.FrequencyWeekly, got.Frequency)
	})

	s.Run("mean interval near 30 suggests monthly", func() {
		dates := []time.Time{
			time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		}
		got := Suggest(dates)
		s.Equal(models.FrequencyMonthly, got.Frequency)
	})

	s.Run("irregular history lowers confidence", func() {
		dates := []time.Time{date(1), date(3), date(30)}
		got := Suggest(dates)
		s.Less(got.Confidence, 0.9)
		s.GreaterOrEqual(got.Confidence, 0.5)
	})

	s.Run("equidistant mean breaks ties toward the shorter cadence", func() {
		// Mean of 18.5 days is equidistant from weekly (7) and monthly (30).
		dates := []time.Time{date(1), date(1).AddDate(0, 0, 18), date(1).AddDate(0, 0, 37)}
		got := Suggest(dates)
		s.Equal(models.FrequencyWeekly, got.Frequency)
	})
}

func (s *CalculatorSuite) TestComputeWorkload() {
	contacts := []*models.Contact{
		{ID: "1", CommunicationFrequency: models.FrequencyWeekly},
		{ID: "2", CommunicationFrequency: models.FrequencyMonthly},
		{ID: "3", CommunicationFrequency: models.FrequencyMonthly, RemindersPaused: true},
		{ID: "4"}, // no cadence
	}

	w := ComputeWorkload(contacts)

	s.Equal(2, w.ActiveContacts)
	s.InDelta(365.0/7+365.0/30, w.ContactsPerYear, 1e-9)
	s.InDelta(w.ContactsPerYear/52, w.PerWeek, 1e-9)
	s.InDelta(w.ContactsPerYear/12, w.PerMonth, 1e-9)
	s.Equal(1, w.ByFrequency[models.FrequencyWeekly])
	s.Equal(1, w.ByFrequency[models.FrequencyMonthly])
	s.NotContains(w.ByFrequency, models.FrequencyQuarterly)
}
