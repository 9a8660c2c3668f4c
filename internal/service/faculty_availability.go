package service

import (
	"github.com/AltamashPatel/edu-schedule-wiz/internal/models"
)

const (
	afternoonStartsAt = 12 * 60
	eveningStartsAt   = 17 * 60
)

// periodForStart buckets a start time: before 12:00 is morning, 12:00 up to
// 17:00 is afternoon, 17:00 onwards is evening.
func periodForStart(start string) (models.Period, bool) {
	minutes, ok := clockMinutes(start)
	if !ok {
		return "", false
	}
	switch {
	case minutes < afternoonStartsAt:
		return models.PeriodMorning, true
	case minutes < eveningStartsAt:
		return models.PeriodAfternoon, true
	default:
		return models.PeriodEvening, true
	}
}

// availabilityIndex answers availability questions for one generation run.
// Faculty without an availability record are never available.
type availabilityIndex map[string]*models.Availability

func newAvailabilityIndex(faculty []models.Faculty) availabilityIndex {
	idx := make(availabilityIndex, len(faculty))
	for i := range faculty {
		idx[faculty[i].ID] = faculty[i].Availability
	}
	return idx
}

// IsAvailable reports whether facultyID may teach a slot starting at start on day.
func (a availabilityIndex) IsAvailable(facultyID string, day int, start string) bool {
	availability := a[facultyID]
	if availability == nil {
		return false
	}
	period, ok := periodForStart(start)
	if !ok {
		return false
	}
	return availability.Allows(day, period)
}
