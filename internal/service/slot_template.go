package service

import (
	"time"
)

// SlotWindow is one bookable time range of a teaching day, as "HH:MM".
type SlotWindow struct {
	Start string
	End   string
}

// GridCell addresses a (weekday, window index) cell of the weekly grid.
type GridCell struct {
	Day    int
	Window int
}

// DefaultSlotWindows leaves 11:00-11:30 and 13:30-14:30 unscheduled as breaks.
var DefaultSlotWindows = []SlotWindow{
	{Start: "09:00", End: "10:00"},
	{Start: "10:00", End: "11:00"},
	{Start: "11:30", End: "12:30"},
	{Start: "12:30", End: "13:30"},
	{Start: "14:30", End: "15:30"},
	{Start: "15:30", End: "16:30"},
}

// DefaultBlockedCells are the free periods kept open in every generated week.
var DefaultBlockedCells = []GridCell{{Day: 1, Window: 3}, {Day: 3, Window: 4}}

// SlotTemplate is the weekly grid walked by the generator: every window of
// every teaching day, minus the blocked cells.
type SlotTemplate struct {
	days    []int
	windows []SlotWindow
	blocked map[GridCell]struct{}
}

// NewSlotTemplate builds the Monday to Friday template over the default
// windows.
func NewSlotTemplate(blocked []GridCell) SlotTemplate {
	days := make([]int, 0, 5)
	for day := time.Monday; day <= time.Friday; day++ {
		days = append(days, int(day))
	}
	set := make(map[GridCell]struct{}, len(blocked))
	for _, cell := range blocked {
		set[cell] = struct{}{}
	}
	return SlotTemplate{days: days, windows: DefaultSlotWindows, blocked: set}
}

// Days returns the weekdays in iteration order.
func (t SlotTemplate) Days() []int { return t.days }

// Windows returns the windows in iteration order.
func (t SlotTemplate) Windows() []SlotWindow { return t.windows }

// Blocked reports whether the cell is a deliberate free period.
func (t SlotTemplate) Blocked(day, window int) bool {
	_, ok := t.blocked[GridCell{Day: day, Window: window}]
	return ok
}

// CellCount is days × windows, blocked cells included.
func (t SlotTemplate) CellCount() int {
	return len(t.days) * len(t.windows)
}

// windowMinutes returns the length of a window, or zero when unparseable.
func windowMinutes(w SlotWindow) int {
	start, okStart := clockMinutes(w.Start)
	end, okEnd := clockMinutes(w.End)
	if !okStart || !okEnd || end <= start {
		return 0
	}
	return end - start
}

// clockMinutes parses "HH:MM" (optionally "HH:MM:SS") into minutes after midnight.
func clockMinutes(value string) (int, bool) {
	layout := "15:04"
	if len(value) == len("15:04:05") {
		layout = "15:04:05"
	}
	parsed, err := time.Parse(layout, value)
	if err != nil {
		return 0, false
	}
	return parsed.Hour()*60 + parsed.Minute(), true
}
