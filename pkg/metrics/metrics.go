package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set bundles the collectors the collaboration hub reports into. All
// methods are nil-receiver safe so callers can run without metrics.
type Set struct {
	reg *prometheus.Registry

	rooms        prometheus.Gauge
	participants prometheus.Gauge
	events       *prometheus.CounterVec
	chatFailures prometheus.Counter
}

// New builds a standalone registry so tests can hold independent sets.
func New() *Set {
	s := &Set{
		reg: prometheus.NewRegistry(),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collab_active_rooms",
			Help: "Number of live collaboration rooms.",
		}),
		participants: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collab_participants",
			Help: "Number of room memberships across all rooms.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collab_events_total",
			Help: "Dispatched realtime events by type.",
		}, []string{"type"}),
		chatFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collab_chat_persist_failures_total",
			Help: "Chat messages dropped because persistence failed.",
		}),
	}
	s.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		s.rooms, s.participants, s.events, s.chatFailures,
	)
	return s
}

// Handler exposes the set for /metrics.
func (s *Set) Handler() http.Handler {
	if s == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})
}

func (s *Set) SetRooms(n int) {
	if s != nil {
		s.rooms.Set(float64(n))
	}
}

func (s *Set) SetParticipants(n int64) {
	if s != nil {
		s.participants.Set(float64(n))
	}
}

func (s *Set) Event(typ string) {
	if s != nil {
		s.events.WithLabelValues(typ).Inc()
	}
}

func (s *Set) ChatPersistFailure() {
	if s != nil {
		s.chatFailures.Inc()
	}
}
