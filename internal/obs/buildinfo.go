package obs

import "github.com/prometheus/client_golang/prometheus"

// InitBuildInfo publishes a constant build_info gauge so dashboards can
// correlate behaviour changes with deploys. Call it once at startup.
func InitBuildInfo(version, commit string) {
	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata for the running rooflens-api binary.",
		},
		[]string{"version", "commit"},
	)
	prometheus.MustRegister(gauge)
	gauge.WithLabelValues(version, commit).Set(1)
}
