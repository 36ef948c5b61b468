// Package availability implements the slot-occupancy rules for a single
// day of a resource's weekly schedule. All functions are pure over the
// slot slice; callers persist the mutated slots back themselves.
//
// Services and sport fields deliberately use different matching rules:
// a service reservation targets the one slot whose start time equals the
// requested start, while a field reservation spans every slot overlapping
// the requested [start, end) range.
package availability

import (
	"strings"
	"time"

	"github.com/flexmatch/flexmatch-api/internal/models"
)

// DayKey maps a calendar date to the weekday key used by slot schedules.
func DayKey(date time.Time) string {
	return strings.ToLower(date.Weekday().String())
}

// overlaps reports whether a slot intersects the requested [start, end)
// range. Slot times are zero-padded "HH:MM" strings, so string comparison
// is chronological.
func overlaps(slotStart, slotEnd, start, end string) bool {
	return (slotStart >= start && slotStart < end) ||
		(slotEnd > start && slotEnd <= end) ||
		(slotStart <= start && slotEnd >= end)
}

// SlotFree implements service semantics: the day must contain an unbooked
// slot whose start time exactly matches the requested start.
func SlotFree(slots []models.Slot, start string) bool {
	for _, s := range slots {
		if s.StartTime == start && !s.IsBooked {
			return true
		}
	}
	return false
}

// RangeFree implements field semantics: no slot overlapping [start, end)
// may already be booked.
func RangeFree(slots []models.Slot, start, end string) bool {
	for _, s := range slots {
		if s.IsBooked && overlaps(s.StartTime, s.EndTime, start, end) {
			return false
		}
	}
	return true
}

// Commit books the single service slot matching start. It returns the
// indices of mutated slots and false when no free matching slot exists,
// which callers running under a resource lock treat as a lost race.
func Commit(slots []models.Slot, start string, bookingID uint) ([]int, bool) {
	for i := range slots {
		if slots[i].StartTime != start {
			continue
		}
		if slots[i].IsBooked {
			return nil, false
		}
		id := bookingID
		slots[i].IsBooked = true
		slots[i].BookingID = &id
		return []int{i}, true
	}
	return nil, false
}

// CommitRange books every field slot overlapping [start, end). It fails
// without mutating anything if any overlapping slot is already booked.
func CommitRange(slots []models.Slot, start, end string, bookingID uint) ([]int, bool) {
	var matched []int
	for i := range slots {
		if overlaps(slots[i].StartTime, slots[i].EndTime, start, end) {
			if slots[i].IsBooked {
				return nil, false
			}
			matched = append(matched, i)
		}
	}
	for _, i := range matched {
		id := bookingID
		slots[i].IsBooked = true
		slots[i].BookingID = &id
	}
	return matched, len(matched) > 0
}

// Release frees the service slot matching start, but only if bookingID is
// the booking that committed it. A booking that never committed (abandoned
// online checkout) must not free a slot another booking holds.
func Release(slots []models.Slot, start string, bookingID uint) []int {
	for i := range slots {
		if slots[i].StartTime == start && heldBy(slots[i], bookingID) {
			slots[i].IsBooked = false
			slots[i].BookingID = nil
			return []int{i}
		}
	}
	return nil
}

// ReleaseRange frees every field slot overlapping [start, end) that is held
// by bookingID.
func ReleaseRange(slots []models.Slot, start, end string, bookingID uint) []int {
	var changed []int
	for i := range slots {
		if overlaps(slots[i].StartTime, slots[i].EndTime, start, end) && heldBy(slots[i], bookingID) {
			slots[i].IsBooked = false
			slots[i].BookingID = nil
			changed = append(changed, i)
		}
	}
	return changed
}

func heldBy(s models.Slot, bookingID uint) bool {
	return s.BookingID != nil && *s.BookingID == bookingID
}
