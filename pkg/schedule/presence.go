package schedule

import (
	"socialsim/pkg/persona"
	"socialsim/pkg/world"
)

// Contains reports whether hour falls in the half-open window, handling
// windows that wrap past midnight.
func Contains(w persona.Window, hour int) bool {
	if w.Start <= w.End {
		return w.Start <= hour && hour < w.End
	}
	return hour >= w.Start || hour < w.End
}

// ActiveWindows picks the window list that applies to a reading.
func ActiveWindows(s *persona.Schedule, r Reading) []persona.Window {
	if s.Empty() {
		return nil
	}

	days := s.YearRound
	if s.Seasonal() {
		days = s.SchoolYear
		if r.IsSummer {
			days = s.Summer
		}
	}
	if days == nil {
		return nil
	}
	if r.DayType == Weekend {
		return days.Weekend
	}
	return days.Weekday
}

// IsReachable applies the persona's schedule only. Personas without a
// schedule are always reachable.
func IsReachable(p persona.Persona, r Reading) bool {
	if p.Schedule.Empty() {
		return true
	}
	for _, w := range ActiveWindows(p.Schedule, r) {
		if Contains(w, r.Hour) {
			return true
		}
	}
	return false
}

// IsReachableFor also honours the user's moderation state: a persona that
// blocked the user is never reachable.
func IsReachableFor(p persona.Persona, s *world.State, r Reading) bool {
	if s != nil && s.Blocked(p.Key) {
		return false
	}
	return IsReachable(p, r)
}

// Around lists the personas reachable right now, in catalog order.
func Around(catalog *persona.Catalog, s *world.State, r Reading) []persona.Persona {
	var out []persona.Persona
	for _, p := range catalog.All() {
		if IsReachableFor(p, s, r) {
			out = append(out, p)
		}
	}
	return out
}
