// Package metrics registers the bot's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpdatesTotal counts inbound platform updates by event kind.
	UpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "concierge",
		Name:      "updates_total",
		Help:      "Inbound updates received, by event kind.",
	}, []string{"kind"})

	// DeliveriesTotal counts direct-message delivery attempts by outcome.
	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "concierge",
		Name:      "deliveries_total",
		Help:      "DM-first delivery attempts, by outcome.",
	}, []string{"outcome"})

	// OnboardingSubmissions counts completed designer onboarding flows.
	OnboardingSubmissions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "concierge",
		Name:      "onboarding_submissions_total",
		Help:      "Designer onboarding flows that reached submission.",
	})

	// BroadcastRecipients counts broadcast fan-out attempts by result.
	BroadcastRecipients = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "concierge",
		Name:      "broadcast_recipients_total",
		Help:      "Broadcast recipients attempted, by result.",
	}, []string{"result"})

	// DroppedEvents counts events discarded because the worker queue was full.
	DroppedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "concierge",
		Name:      "dropped_events_total",
		Help:      "Inbound events dropped due to a full dispatch queue.",
	})
)
