package service

import (
	"fmt"
	"strconv"
	"strings"
)

func parseClock(v string) (int, error) {
	parts := strings.Split(v, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q", v)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid time %q", v)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q", v)
	}
	return h*60 + m, nil
}

// durationHours returns the span between two "HH:MM" clocks in fractional
// hours, so partial hours price correctly (10:00-11:30 is 1.5).
func durationHours(start, end string) (float64, error) {
	s, err := parseClock(start)
	if err != nil {
		return 0, err
	}
	e, err := parseClock(end)
	if err != nil {
		return 0, err
	}
	if e <= s {
		return 0, fmt.Errorf("end time %q is not after start time %q", end, start)
	}
	return float64(e-s) / 60, nil
}

// fieldPrice is the sport-field pricing rule: hourly rate times duration.
// Services have a fixed price and never go through here.
func fieldPrice(hourlyRate float64, start, end string) (float64, error) {
	hours, err := durationHours(start, end)
	if err != nil {
		return 0, err
	}
	return hourlyRate * hours, nil
}
