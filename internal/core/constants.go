// Package core provides shared constants, date handling, and logging
// setup for the ESIOS CLI.
package core

import (
	"os"
	"path/filepath"
)

// API configuration
const (
	APIBaseURL     = "https://api.esios.ree.es"
	APIKeyEnvVar   = "ESIOS_API_KEY"
	CacheDirEnvVar = "ESIOS_CACHE_DIR"
	DefaultTZ      = "Europe/Madrid"
)

// Date formats
const (
	DateFmt        = "2006-01-02"
	DatetimeFmt    = "2006-01-02 15:04:05"
	DateKeyDaily   = "20060102"
	DateKeyMonthly = "200601"
)

// Endpoint names. Indicators and offer indicators share the same cache
// and handle machinery; archives have their own directory tree.
const (
	EndpointIndicators      = "indicators"
	EndpointOfferIndicators = "offer_indicators"
	EndpointArchives        = "archives"
)

// ESIOS limits indicator responses to roughly three weeks of data per
// request; offer indicators are capped far lower.
const (
	ChunkMaxDays   = 21
	OfferChunkDays = 3
)

// Cache freshness defaults
const (
	RecentTTLHours  = 48
	MetaTTLDays     = 7
	CatalogTTLHours = 24
)

// Transport defaults
const (
	DefaultTimeoutSeconds = 30
	MaxRetries            = 3
	RetryMinWaitSeconds   = 2
	RetryMaxWaitSeconds   = 10
	RequestsPerSecond     = 5
)

// CacheRoot returns the default cache directory, honouring
// ESIOS_CACHE_DIR and XDG_CACHE_HOME overrides.
func CacheRoot() string {
	if dir := os.Getenv(CacheDirEnvVar); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "esios")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".cache", "esios")
}

// ConfigDir returns the user configuration directory, honouring
// XDG_CONFIG_HOME.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "esios")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "esios")
}

// Version is the current CLI version.
const Version = "0.4.0"
