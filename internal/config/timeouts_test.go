package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clearTimeoutEnvVars(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"L2NET_UNSCHEDULED_REQUEUE",
		"L2NET_SWITCH_UNCONNECTED_REQUEUE",
		"L2NET_SDN_TIMEOUT",
		"L2NET_DB_CONNECT_TIMEOUT",
	} {
		t.Setenv(v, "")
	}
}

func TestTimeouts_Defaults(t *testing.T) {
	clearTimeoutEnvVars(t)

	timeouts := DefaultTimeouts()
	timeouts.applyEnv()

	assert.Equal(t, 5*time.Second, timeouts.UnscheduledRequeue.Duration)
	assert.Equal(t, 10*time.Second, timeouts.SwitchUnconnectedRequeue.Duration)
	assert.Equal(t, 10*time.Second, timeouts.SDN.Duration)
	assert.Equal(t, 60*time.Second, timeouts.DBConnect.Duration)
}

func TestTimeouts_EnvOverride(t *testing.T) {
	clearTimeoutEnvVars(t)
	t.Setenv("L2NET_UNSCHEDULED_REQUEUE", "1s")
	t.Setenv("L2NET_SDN_TIMEOUT", "3s")

	timeouts := DefaultTimeouts()
	timeouts.applyEnv()

	assert.Equal(t, time.Second, timeouts.UnscheduledRequeue.Duration)
	assert.Equal(t, 3*time.Second, timeouts.SDN.Duration)
	assert.Equal(t, 10*time.Second, timeouts.SwitchUnconnectedRequeue.Duration)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		defaultVal time.Duration
		expected   time.Duration
	}{
		{"empty uses default", "", 5 * time.Second, 5 * time.Second},
		{"valid seconds", "30s", 5 * time.Second, 30 * time.Second},
		{"valid minutes", "2m", 5 * time.Second, 2 * time.Minute},
		{"invalid uses default", "soon", 5 * time.Second, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("L2NET_TEST_DURATION", tt.value)
			assert.Equal(t, tt.expected, parseDuration("L2NET_TEST_DURATION", tt.defaultVal))
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		defaultVal int
		expected   int
	}{
		{"empty uses default", "", 10, 10},
		{"valid", "16", 10, 16},
		{"invalid uses default", "ten", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("L2NET_TEST_INT", tt.value)
			assert.Equal(t, tt.expected, parseInt("L2NET_TEST_INT", tt.defaultVal))
		})
	}
}

func TestParseString_FirstSetWins(t *testing.T) {
	t.Setenv("L2NET_TEST_A", "")
	t.Setenv("L2NET_TEST_B", "b")
	assert.Equal(t, "b", parseString("fallback", "L2NET_TEST_A", "L2NET_TEST_B"))

	t.Setenv("L2NET_TEST_A", "a")
	assert.Equal(t, "a", parseString("fallback", "L2NET_TEST_A", "L2NET_TEST_B"))

	t.Setenv("L2NET_TEST_A", "")
	t.Setenv("L2NET_TEST_B", "")
	assert.Equal(t, "fallback", parseString("fallback", "L2NET_TEST_A", "L2NET_TEST_B"))
}
