package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfoOnce sync.Once

	// build_info is a constant 1 gauge labelled with version and commit.
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "adminpanel_build_info",
			Help: "Admin console build information.",
		},
		[]string{"component", "version", "commit"},
	)
)

// InitBuildInfo registers build_info once and sets the value for component.
func InitBuildInfo(component, version, commit string) {
	buildInfoOnce.Do(func() {
		prometheus.MustRegister(buildInfo)
	})
	buildInfo.WithLabelValues(component, version, commit).Set(1)
}
