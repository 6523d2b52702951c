package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the narrow view of the collector that domain services use.
type Recorder interface {
	PatientRegistered()
	AppointmentBooked()
	SchedulingConflict()
	AppointmentStatusChanged(status string)
	InvoiceIssued(amount float64)
	LoginAttempt(role, result string)
}

// Nop discards everything. Handy in tests.
type Nop struct{}

func (Nop) PatientRegistered()              {}
func (Nop) AppointmentBooked()              {}
func (Nop) SchedulingConflict()             {}
func (Nop) AppointmentStatusChanged(string) {}
func (Nop) InvoiceIssued(float64)           {}
func (Nop) LoginAttempt(string, string)     {}

type Collector struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	PatientsRegisteredTotal prometheus.Counter
	AppointmentsBookedTotal prometheus.Counter
	SchedulingConflicts     prometheus.Counter
	AppointmentStatusTotal  *prometheus.CounterVec
	InvoicesIssuedTotal     prometheus.Counter
	InvoicedAmountTotal     prometheus.Counter
	LoginAttemptsTotal      *prometheus.CounterVec
}

// NewCollector registers every metric on a private registry so that tests
// can build more than one collector per process.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Collector{
		registry: reg,

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "route"}),

		InFlightGauge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		PatientsRegisteredTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clinic",
			Name:      "patients_registered_total",
			Help:      "Total number of patient records created.",
		}),

		AppointmentsBookedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clinic",
			Name:      "appointments_booked_total",
			Help:      "Total appointments successfully booked.",
		}),

		SchedulingConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clinic",
			Name:      "scheduling_conflicts_total",
			Help:      "Bookings rejected by the overlap-with-buffer rule.",
		}),

		AppointmentStatusTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clinic",
			Name:      "appointment_status_changes_total",
			Help:      "Appointment status transitions by target status.",
		}, []string{"status"}),

		InvoicesIssuedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "invoices_issued_total",
			Help:      "Total invoices generated from finalized visits.",
		}),

		InvoicedAmountTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "invoiced_amount_total",
			Help:      "Sum of invoice totals issued.",
		}),

		LoginAttemptsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts by role and result.",
		}, []string{"role", "result"}),
	}
}

func (c *Collector) PatientRegistered()  { c.PatientsRegisteredTotal.Inc() }
func (c *Collector) AppointmentBooked()  { c.AppointmentsBookedTotal.Inc() }
func (c *Collector) SchedulingConflict() { c.SchedulingConflicts.Inc() }

func (c *Collector) AppointmentStatusChanged(status string) {
	c.AppointmentStatusTotal.WithLabelValues(status).Inc()
}

func (c *Collector) InvoiceIssued(amount float64) {
	c.InvoicesIssuedTotal.Inc()
	if amount > 0 {
		c.InvoicedAmountTotal.Add(amount)
	}
}

func (c *Collector) LoginAttempt(role, result string) {
	c.LoginAttemptsTotal.WithLabelValues(role, result).Inc()
}

// Registry exposes the underlying registry for tests and extra collectors.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
