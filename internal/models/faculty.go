package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// DefaultMaxHoursPerWeek applies when a faculty record carries no cap.
const DefaultMaxHoursPerWeek = 40

// Period is a part of the teaching day.
type Period string

const (
	PeriodMorning   Period = "morning"
	PeriodAfternoon Period = "afternoon"
	PeriodEvening   Period = "evening"
)

// DayAvailability flags which periods of one weekday can be taught.
type DayAvailability struct {
	Morning   bool `json:"morning"`
	Afternoon bool `json:"afternoon"`
	Evening   bool `json:"evening"`
}

// Allows reports whether the period is open.
func (d DayAvailability) Allows(p Period) bool {
	switch p {
	case PeriodMorning:
		return d.Morning
	case PeriodAfternoon:
		return d.Afternoon
	case PeriodEvening:
		return d.Evening
	default:
		return false
	}
}

// Availability is indexed by time.Weekday (Sunday = 0). Days that are absent
// from the stored document are closed.
type Availability [7]DayAvailability

var weekdayKeys = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// DefaultAvailability opens Monday to Friday mornings and afternoons.
func DefaultAvailability() Availability {
	var a Availability
	for day := time.Monday; day <= time.Friday; day++ {
		a[day] = DayAvailability{Morning: true, Afternoon: true}
	}
	return a
}

// Allows reports whether the weekday/period pair is open. Out of range days
// are closed.
func (a Availability) Allows(day int, p Period) bool {
	if day < 0 || day >= len(a) {
		return false
	}
	return a[day].Allows(p)
}

// ParseAvailability decodes the weekday keyed JSON document, rejecting
// unknown day names.
func ParseAvailability(raw []byte) (Availability, error) {
	var a Availability
	if len(raw) == 0 || string(raw) == "null" {
		return a, nil
	}
	var doc map[string]DayAvailability
	if err := json.Unmarshal(raw, &doc); err != nil {
		return a, fmt.Errorf("decode availability: %w", err)
	}
	for key, day := range doc {
		idx := weekdayIndex(key)
		if idx < 0 {
			return a, fmt.Errorf("decode availability: unknown weekday %q", key)
		}
		a[idx] = day
	}
	return a, nil
}

func weekdayIndex(key string) int {
	key = strings.ToLower(strings.TrimSpace(key))
	for i, name := range weekdayKeys {
		if name == key {
			return i
		}
	}
	return -1
}

// MarshalJSON renders the weekday keyed document; closed days are omitted.
func (a Availability) MarshalJSON() ([]byte, error) {
	doc := make(map[string]DayAvailability, len(a))
	for i, day := range a {
		if day == (DayAvailability{}) {
			continue
		}
		doc[weekdayKeys[i]] = day
	}
	return json.Marshal(doc)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Availability) UnmarshalJSON(raw []byte) error {
	parsed, err := ParseAvailability(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Scan implements sql.Scanner for JSONB columns.
func (a *Availability) Scan(src interface{}) error {
	var raw types.JSONText
	if err := raw.Scan(src); err != nil {
		return err
	}
	return a.UnmarshalJSON(raw)
}

// Value implements driver.Valuer.
func (a Availability) Value() (driver.Value, error) {
	raw, err := a.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return types.JSONText(raw).Value()
}

// Faculty is a teaching staff member scoped to a department.
type Faculty struct {
	ID              string         `db:"id" json:"id"`
	UserID          string         `db:"user_id" json:"user_id"`
	EmployeeID      string         `db:"employee_id" json:"employee_id"`
	Department      string         `db:"department" json:"department"`
	Specializations pq.StringArray `db:"specialization" json:"specialization"`
	MaxHoursPerWeek int            `db:"max_hours_per_week" json:"max_hours_per_week"`
	Availability    *Availability  `db:"availability" json:"availability,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}
