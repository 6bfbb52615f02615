// Package metrics defines Prometheus metrics for the authentication core.
//
// Metric naming follows Prometheus conventions:
//   - inventory_auth_ prefix for all custom metrics
//   - _total suffix for counters
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// LoginsTotal counts login attempts by outcome.
	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_auth_logins_total",
			Help: "Total login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// RefreshesTotal counts refresh-token exchanges by outcome.
	RefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_auth_refreshes_total",
			Help: "Total refresh token exchanges by outcome.",
		},
		[]string{"outcome"},
	)

	// RegistrationsTotal counts registration attempts by outcome.
	RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_auth_registrations_total",
			Help: "Total registration attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// GateRejectionsTotal counts requests rejected by the auth gate by reason.
	GateRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_auth_gate_rejections_total",
			Help: "Total requests rejected by the access-token gate.",
		},
		[]string{"reason"},
	)

	// RoleDenialsTotal counts authorization denials by route.
	RoleDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_auth_role_denials_total",
			Help: "Total requests denied by role checks.",
		},
		[]string{"route"},
	)

	// LogoutsTotal counts successful logouts.
	LogoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_auth_logouts_total",
			Help: "Total successful logouts.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		LoginsTotal,
		RefreshesTotal,
		RegistrationsTotal,
		GateRejectionsTotal,
		RoleDenialsTotal,
		LogoutsTotal,
	)
}

// RecordLogin increments the login counter for outcome.
func RecordLogin(outcome string) { LoginsTotal.WithLabelValues(outcome).Inc() }

// RecordRefresh increments the refresh counter for outcome.
func RecordRefresh(outcome string) { RefreshesTotal.WithLabelValues(outcome).Inc() }

// RecordRegistration increments the registration counter for outcome.
func RecordRegistration(outcome string) { RegistrationsTotal.WithLabelValues(outcome).Inc() }

// RecordGateRejection increments the gate rejection counter for reason.
func RecordGateRejection(reason string) { GateRejectionsTotal.WithLabelValues(reason).Inc() }

// RecordRoleDenial increments the role denial counter for route.
func RecordRoleDenial(route string) { RoleDenialsTotal.WithLabelValues(route).Inc() }

// RecordLogout increments the logout counter.
func RecordLogout() { LogoutsTotal.Inc() }
