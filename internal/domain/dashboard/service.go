// Package dashboard summarises the clinic's day for the front desk.
package dashboard

import (
	"context"
	"time"

	"github.com/dentaldesk/clinic/internal/domain/billing"
	"github.com/dentaldesk/clinic/internal/domain/identity"
	"github.com/dentaldesk/clinic/internal/domain/scheduling"
	"github.com/dentaldesk/clinic/internal/platform/apperr"
)

const (
	upcomingLimit = 5
	trendDays     = 7
)

type AppointmentLister interface {
	ListAppointments(ctx context.Context, f scheduling.Filter) ([]*scheduling.AppointmentView, error)
}

type DoctorLister interface {
	ListDoctors(ctx context.Context) ([]*identity.Doctor, error)
}

type InvoiceLister interface {
	ListInvoices(ctx context.Context) ([]*billing.InvoiceSummary, error)
}

// DayCount is the number of non-cancelled appointments on one day.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Stats struct {
	Date          string                        `json:"date"`
	Appointments  int                           `json:"appointments"`
	Pending       int                           `json:"pending"`
	Scheduled     int                           `json:"scheduled"`
	Checked       int                           `json:"checked"`
	Cancelled     int                           `json:"cancelled"`
	ActiveDoctors int                           `json:"active_doctors"`
	BilledTotal   float64                       `json:"billed_total"`
	Invoices      int                           `json:"invoices"`
	Upcoming      []*scheduling.AppointmentView `json:"upcoming"`
	Trend         []DayCount                    `json:"trend"`
}

type Service struct {
	appts    AppointmentLister
	doctors  DoctorLister
	invoices InvoiceLister
	now      func() time.Time
}

func NewService(appts AppointmentLister, doctors DoctorLister, invoices InvoiceLister) *Service {
	return &Service{appts: appts, doctors: doctors, invoices: invoices, now: time.Now}
}

// Today computes the front-desk counters for the current local day.
// Pending counts SCHEDULED and CHECKED_IN; Scheduled counts SCHEDULED only;
// Checked counts CHECKED_IN, IN_PROGRESS and COMPLETED; Cancelled counts
// CANCELLED and NO_SHOW.
func (s *Service) Today(ctx context.Context) (*Stats, error) {
	const op = "dashboard.Today"
	now := s.now()
	day := scheduling.DayFilter(now)

	todays, err := s.appts.ListAppointments(ctx, day)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	st := &Stats{
		Date:         day.From.Format("2006-01-02"),
		Appointments: len(todays),
		Upcoming:     make([]*scheduling.AppointmentView, 0, upcomingLimit),
	}
	for _, a := range todays {
		switch a.Status {
		case scheduling.StatusScheduled:
			st.Pending++
			st.Scheduled++
		case scheduling.StatusCheckedIn:
			st.Pending++
			st.Checked++
		case scheduling.StatusInProgress, scheduling.StatusCompleted:
			st.Checked++
		case scheduling.StatusCancelled, scheduling.StatusNoShow:
			st.Cancelled++
		}
		if len(st.Upcoming) < upcomingLimit {
			st.Upcoming = append(st.Upcoming, a)
		}
	}

	doctors, err := s.doctors.ListDoctors(ctx)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	for _, d := range doctors {
		if d.IsActive() {
			st.ActiveDoctors++
		}
	}

	invoices, err := s.invoices.ListInvoices(ctx)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	for _, inv := range invoices {
		at := inv.InvoiceDate.In(now.Location())
		if !at.Before(day.From) && at.Before(day.To) && inv.Status != billing.StatusCancelled {
			st.BilledTotal += inv.TotalAmount
			st.Invoices++
		}
	}

	st.Trend, err = s.trend(ctx, day.From)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	return st, nil
}

// trend counts non-cancelled appointments for the trendDays days ending on
// today, oldest first.
func (s *Service) trend(ctx context.Context, today time.Time) ([]DayCount, error) {
	start := today.AddDate(0, 0, -(trendDays - 1))
	appts, err := s.appts.ListAppointments(ctx, scheduling.Filter{From: start, To: today.AddDate(0, 0, 1)})
	if err != nil {
		return nil, err
	}
	out := make([]DayCount, trendDays)
	for i := range out {
		out[i].Date = start.AddDate(0, 0, i).Format("2006-01-02")
	}
	for _, a := range appts {
		if a.Status == scheduling.StatusCancelled || a.Status == scheduling.StatusNoShow {
			continue
		}
		at := a.ScheduledAt.In(today.Location())
		d := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, today.Location())
		if i := int(d.Sub(start).Hours()/24 + 0.5); i >= 0 && i < trendDays {
			out[i].Count++
		}
	}
	return out, nil
}
