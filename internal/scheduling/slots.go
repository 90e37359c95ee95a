package scheduling

import (
	"errors"
	"time"
)

var ErrInvalidWorkingHours = errors.New("invalid working hours")

// WorkingHours describes the bookable window of a day, [Open, Close),
// cut into slots of SlotLength.
type WorkingHours struct {
	Open       TimeOfDay
	Close      TimeOfDay
	SlotLength time.Duration
}

// DefaultWorkingHours is 09:00-17:00 in 30 minute slots
var DefaultWorkingHours = WorkingHours{
	Open:       TimeOfDay{minutes: 9 * 60},
	Close:      TimeOfDay{minutes: 17 * 60},
	SlotLength: 30 * time.Minute,
}

func (h WorkingHours) Validate() error {
	if !h.Open.Before(h.Close) {
		return ErrInvalidWorkingHours
	}
	if h.SlotLength < time.Minute || h.SlotLength%time.Minute != 0 {
		return ErrInvalidWorkingHours
	}
	return nil
}

// Len returns how many slots a full day holds
func (h WorkingHours) Len() int {
	if h.Validate() != nil {
		return 0
	}
	step := int(h.SlotLength / time.Minute)
	return (h.Close.Minutes() - h.Open.Minutes()) / step
}

// GenerateSlots returns the bookable slot starts of date in chronological
// order. A slot is kept only when it fits entirely before Close and starts
// strictly after now. now also fixes the location in which date is read.
func GenerateSlots(date Date, hours WorkingHours, now time.Time) []TimeOfDay {
	if date.IsZero() || hours.Validate() != nil {
		return []TimeOfDay{}
	}

	today := DateOf(now)
	if date.Before(today) {
		return []TimeOfDay{}
	}

	step := int(hours.SlotLength / time.Minute)
	slots := make([]TimeOfDay, 0, hours.Len())
	for m := hours.Open.Minutes(); m+step <= hours.Close.Minutes(); m += step {
		slot := TimeOfDay{minutes: m}
		if date.Equal(today) && !date.At(slot, now.Location()).After(now) {
			continue
		}
		slots = append(slots, slot)
	}
	return slots
}

// GenerateSlotsFor is GenerateSlots for a raw YYYY-MM-DD string.
// A malformed date yields an empty sequence instead of an error.
func GenerateSlotsFor(rawDate string, hours WorkingHours, now time.Time) []TimeOfDay {
	date, err := ParseDate(rawDate)
	if err != nil {
		return []TimeOfDay{}
	}
	return GenerateSlots(date, hours, now)
}

// FilterAvailable removes every occupied time from candidates, keeping the
// candidates' order.
func FilterAvailable(candidates, occupied []TimeOfDay) []TimeOfDay {
	taken := make(map[TimeOfDay]struct{}, len(occupied))
	for _, t := range occupied {
		taken[t] = struct{}{}
	}

	available := make([]TimeOfDay, 0, len(candidates))
	for _, slot := range candidates {
		if _, ok := taken[slot]; ok {
			continue
		}
		available = append(available, slot)
	}
	return available
}

// Contains reports whether t is one of slots
func Contains(slots []TimeOfDay, t TimeOfDay) bool {
	for _, s := range slots {
		if s == t {
			return true
		}
	}
	return false
}

// Strings formats slots as HH:MM strings
func Strings(slots []TimeOfDay) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.String()
	}
	return out
}
