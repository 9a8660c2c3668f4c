package service

import (
	"fmt"

	"github.com/AltamashPatel/edu-schedule-wiz/internal/models"
)

type slotKey struct {
	Day   int
	Start string
}

// newSlotKey normalises start so "09:00" and "09:00:00" address the same cell.
func newSlotKey(day int, start string) slotKey {
	if minutes, ok := clockMinutes(start); ok {
		start = fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
	}
	return slotKey{Day: day, Start: start}
}

type occupancy map[slotKey]map[string]struct{}

func (o occupancy) has(key slotKey, id string) bool {
	_, ok := o[key][id]
	return ok
}

func (o occupancy) add(key slotKey, id string) {
	if o[key] == nil {
		o[key] = make(map[string]struct{})
	}
	o[key][id] = struct{}{}
}

// conflictTracker records which faculty, classrooms and batches are booked at
// each (day, start) during one generation run. It is not safe for concurrent
// use; every run owns its own tracker.
type conflictTracker struct {
	faculty        occupancy
	classrooms     occupancy
	batches        occupancy
	facultyMinutes map[string]int
}

func newConflictTracker() *conflictTracker {
	return &conflictTracker{
		faculty:        make(occupancy),
		classrooms:     make(occupancy),
		batches:        make(occupancy),
		facultyMinutes: make(map[string]int),
	}
}

func (c *conflictTracker) FacultyBooked(facultyID string, day int, start string) bool {
	return c.faculty.has(newSlotKey(day, start), facultyID)
}

func (c *conflictTracker) ClassroomBooked(classroomID string, day int, start string) bool {
	return c.classrooms.has(newSlotKey(day, start), classroomID)
}

func (c *conflictTracker) BatchBooked(batchID string, day int, start string) bool {
	return c.batches.has(newSlotKey(day, start), batchID)
}

// Reserve books every resource of slot for the batch that owns it.
func (c *conflictTracker) Reserve(batchID string, slot models.TimetableSlot) {
	key := newSlotKey(slot.DayOfWeek, slot.StartTime)
	c.faculty.add(key, slot.FacultyID)
	c.classrooms.add(key, slot.ClassroomID)
	if batchID != "" {
		c.batches.add(key, batchID)
	}
	c.facultyMinutes[slot.FacultyID] += windowMinutes(SlotWindow{Start: slot.StartTime, End: slot.EndTime})
}

// SeedTimetable marks the already committed slots of the timetable being generated.
func (c *conflictTracker) SeedTimetable(batchID string, slots []models.TimetableSlot) {
	for _, slot := range slots {
		c.Reserve(batchID, slot)
	}
}

// SeedTerm marks committed slots of other timetables sharing the academic term.
// Faculty and classrooms are shared by every timetable, but a batch may keep
// several competing drafts, so batch occupancy comes only from timetables that
// left draft.
func (c *conflictTracker) SeedTerm(slots []models.TermSlot) {
	for _, slot := range slots {
		batchID := slot.BatchID
		if slot.TimetableStatus == models.TimetableStatusDraft {
			batchID = ""
		}
		c.Reserve(batchID, slot.TimetableSlot)
	}
}

// FacultyHours returns the weekly hours booked for facultyID so far.
func (c *conflictTracker) FacultyHours(facultyID string) float64 {
	return float64(c.facultyMinutes[facultyID]) / 60
}
