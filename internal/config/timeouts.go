package config

import (
	"os"
	"strconv"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Timeouts holds the delays the reconciliation engine waits on.
// Values are written as Go durations ("5s") in the config file.
type Timeouts struct {
	// UnscheduledRequeue is how long a pod without an assigned node waits before retry.
	UnscheduledRequeue metav1.Duration `json:"unscheduledRequeue"`
	// SwitchUnconnectedRequeue is how long an attachment waits for a switch
	// that is not yet known to the SDN controller.
	SwitchUnconnectedRequeue metav1.Duration `json:"switchUnconnectedRequeue"`
	// SDN bounds every call to the SDN controller.
	SDN metav1.Duration `json:"sdn"`
	// DBConnect bounds the wait for the database at startup.
	DBConnect metav1.Duration `json:"dbConnect"`
}

// DefaultTimeouts returns the built-in timeout values.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		UnscheduledRequeue:       metav1.Duration{Duration: 5 * time.Second},
		SwitchUnconnectedRequeue: metav1.Duration{Duration: 10 * time.Second},
		SDN:                      metav1.Duration{Duration: 10 * time.Second},
		DBConnect:                metav1.Duration{Duration: 60 * time.Second},
	}
}

// applyEnv overrides timeouts from environment variables.
//
// Environment Variables:
//   - L2NET_UNSCHEDULED_REQUEUE (default: 5s)
//   - L2NET_SWITCH_UNCONNECTED_REQUEUE (default: 10s)
//   - L2NET_SDN_TIMEOUT (default: 10s)
//   - L2NET_DB_CONNECT_TIMEOUT (default: 60s)
func (t *Timeouts) applyEnv() {
	t.UnscheduledRequeue.Duration = parseDuration("L2NET_UNSCHEDULED_REQUEUE", t.UnscheduledRequeue.Duration)
	t.SwitchUnconnectedRequeue.Duration = parseDuration("L2NET_SWITCH_UNCONNECTED_REQUEUE", t.SwitchUnconnectedRequeue.Duration)
	t.SDN.Duration = parseDuration("L2NET_SDN_TIMEOUT", t.SDN.Duration)
	t.DBConnect.Duration = parseDuration("L2NET_DB_CONNECT_TIMEOUT", t.DBConnect.Duration)
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}

// parseString returns the first non-empty environment variable of envVars,
// or defaultVal when none is set.
func parseString(defaultVal string, envVars ...string) string {
	for _, envVar := range envVars {
		if val := os.Getenv(envVar); val != "" {
			return val
		}
	}
	return defaultVal
}
