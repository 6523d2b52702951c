package scheduling

import "time"

type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether a and b collide once b is widened by buffer on
// both sides. Touching the widened edge is not a collision.
func Overlaps(a, b Interval, buffer time.Duration) bool {
	return a.Start.Before(b.End.Add(buffer)) && a.End.After(b.Start.Add(-buffer))
}

// FindConflict returns the first appointment in existing that candidate
// collides with, ignoring cancelled appointments and candidate itself.
func FindConflict(candidate *Appointment, existing []*Appointment, buffer time.Duration) *Appointment {
	iv := candidate.Interval()
	for _, ex := range existing {
		if ex.Status == StatusCancelled {
			continue
		}
		if candidate.ID != 0 && ex.ID == candidate.ID {
			continue
		}
		if Overlaps(iv, ex.Interval(), buffer) {
			return ex
		}
	}
	return nil
}
