package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every gh-scoped-creds collector. It is kept separate from the
// default registry so textfile exports contain no Go runtime metrics.
var Registry = prometheus.NewRegistry()

var (
	DeviceFlowPolls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gh_scoped_creds_device_flow_polls_total",
		Help: "Total number of token endpoint polls grouped by outcome",
	}, []string{"result"})
	DeviceFlowResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gh_scoped_creds_device_flow_results_total",
		Help: "Total number of completed device flows grouped by terminal result",
	}, []string{"result"})
	DeviceFlowDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gh_scoped_creds_device_flow_duration_seconds",
		Help:    "Wall-clock time between device code issue and the terminal poll",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 900},
	})
	CredentialWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gh_scoped_creds_credential_writes_total",
		Help: "Total number of credential persistence attempts grouped by mode and result",
	}, []string{"mode", "result"})
)

func init() {
	Registry.MustRegister(DeviceFlowPolls)
	Registry.MustRegister(DeviceFlowResults)
	Registry.MustRegister(DeviceFlowDuration)
	Registry.MustRegister(CredentialWrites)
}

// WriteTextfile writes the current state of Registry to path in the
// Prometheus text exposition format.
func WriteTextfile(path string) error {
	if path == "" {
		return errors.New("metrics textfile path is required")
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
