// Package config handles application configuration loading and validation.
package config

import "time"

// Default configuration values.
const (
	DefaultTickInterval         = 15 * time.Second
	DefaultPollInterval         = 300 * time.Second
	DefaultDelayNotifyThreshold = 1800 * time.Second

	DefaultMaintenanceMaxAge  = 7 * 24 * time.Hour
	DefaultMaintenanceMaxRuns = 30
	DefaultKeepLast           = 30

	DefaultContainerRuntime = "docker"
	DefaultStagingRoot      = "/var/lib/highball/restore"

	DefaultRetryMaxAttempts  = 3
	DefaultRetryInitialDelay = 5 * time.Second
	DefaultRetryMaxDelay     = 30 * time.Second

	DefaultMetricsEnabled        = false
	DefaultMetricsPushgatewayURL = ""

	DefaultAppriseEnabled = false
	DefaultAppriseURL     = ""
	DefaultAppriseKey     = ""
	DefaultAppriseNotify  = NotifyError

	DefaultLogLevel     = "info"
	DefaultLogMaxSizeMB = 10
)

// NotifyLevel represents when to send notifications.
type NotifyLevel string

const (
	// NotifyError sends notifications only on errors.
	NotifyError NotifyLevel = "error"
	// NotifyWarning sends notifications on errors and warnings.
	NotifyWarning NotifyLevel = "warning"
	// NotifyAlways sends notifications on every run.
	NotifyAlways NotifyLevel = "always"
)

// IsValid returns true if the notify level is valid.
func (n NotifyLevel) IsValid() bool {
	switch n {
	case NotifyError, NotifyWarning, NotifyAlways:
		return true
	default:
		return false
	}
}

// String returns the string representation of the notify level.
func (n NotifyLevel) String() string {
	return string(n)
}
