// Package metrics registers the prometheus collectors shared by the
// refresh and detection pipelines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProfilesRefreshed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vacstatus",
		Name:      "profiles_refreshed_total",
		Help:      "Profiles merged from upstream by the refresh batcher",
	})

	SteamCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vacstatus",
		Name:      "steam_calls_total",
		Help:      "Batched upstream steam api calls issued",
	}, []string{"kind"})

	DetectorPasses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vacstatus",
		Name:      "detector_passes_total",
		Help:      "Completed change detection passes",
	})

	NotificationsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vacstatus",
		Name:      "notifications_emitted_total",
		Help:      "Change notifications handed to the dispatcher",
	})

	AliasesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vacstatus",
		Name:      "aliases_recorded_total",
		Help:      "Alias history entries written",
	})
)
