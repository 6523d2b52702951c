package scheduling

import "time"

const (
	StatusScheduled  = "SCHEDULED"
	StatusCheckedIn  = "CHECKED_IN"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
	StatusNoShow     = "NO_SHOW"
)

var validStatuses = map[string]bool{
	StatusScheduled: true, StatusCheckedIn: true, StatusInProgress: true,
	StatusCompleted: true, StatusCancelled: true, StatusNoShow: true,
}

// ValidStatus reports whether s is one of the six appointment statuses.
func ValidStatus(s string) bool { return validStatuses[s] }

type Appointment struct {
	ID          int64     `json:"appt_id"`
	ApptNo      string    `json:"appt_no"`
	PatientID   int64     `json:"patient_id"`
	DoctorID    int64     `json:"doctor_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	DurationMin int       `json:"duration_min"`
	Status      string    `json:"status"`
	Remarks     string    `json:"remarks"`
}

func (a *Appointment) End() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMin) * time.Minute)
}

func (a *Appointment) Interval() Interval {
	return Interval{Start: a.ScheduledAt, End: a.End()}
}

// AppointmentView is an appointment joined with the patient and doctor
// fields the front desk displays.
type AppointmentView struct {
	Appointment
	PatientName string `json:"patient_name"`
	MRN         string `json:"mrn"`
	MobileNo    string `json:"mobile_no"`
	DoctorName  string `json:"doctor_name"`
	Specialty   string `json:"specialty"`
}

// Filter narrows appointment listings. Zero fields match everything; From is
// inclusive and To exclusive.
type Filter struct {
	PatientID int64
	DoctorID  int64
	From      time.Time
	To        time.Time
}

// DayFilter covers the calendar day containing day, in day's location.
func DayFilter(day time.Time) Filter {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return Filter{From: start, To: start.AddDate(0, 0, 1)}
}

func (f Filter) Matches(a *Appointment) bool {
	if f.PatientID != 0 && a.PatientID != f.PatientID {
		return false
	}
	if f.DoctorID != 0 && a.DoctorID != f.DoctorID {
		return false
	}
	if !f.From.IsZero() && a.ScheduledAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !a.ScheduledAt.Before(f.To) {
		return false
	}
	return true
}
