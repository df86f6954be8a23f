package journey

import (
	"slices"
	"time"
)

// Summary describes a sequenced journey for listings and logs.
type Summary struct {
	Legs        int
	Waypoints   int
	DroppedLegs int
	Warnings    map[WarningKind]int
	Countries   []string
	FirstDate   time.Time
	LastDate    time.Time
}

func (j *Journey) Summary() Summary {
	s := Summary{
		Legs:      len(j.Legs),
		Waypoints: len(j.Waypoints),
		Warnings:  make(map[WarningKind]int),
	}
	for _, w := range j.Warnings {
		s.Warnings[w.Kind]++
		if w.Kind == WarnDroppedLeg {
			s.DroppedLegs++
		}
	}
	seen := make(map[string]bool)
	for _, wp := range j.Waypoints {
		if wp.Country != "" && !seen[wp.Country] {
			seen[wp.Country] = true
			s.Countries = append(s.Countries, wp.Country)
		}
	}
	slices.Sort(s.Countries)
	if n := len(j.Waypoints); n > 0 {
		s.FirstDate = j.Waypoints[0].Date
		s.LastDate = j.Waypoints[n-1].Date
	}
	return s
}
