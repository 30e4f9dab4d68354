package config

import "time"

// AppName is the canonical application name used for directories and logs.
const AppName = "Driftwall"

// AppVersion is the current release version, bumped at tag time.
const AppVersion = "0.3.1"

// Log file locations and naming.
const (
	LogSubDir    = ".driftwall/logs"
	LogWinSubDir = "Driftwall/logs"
	LogExt       = ".log"
)

// Defaults applied when the config file or persisted settings are missing.
const (
	DefaultShuffleInterval = 30 * time.Minute
	DefaultPollInterval    = 6 * time.Hour
	DefaultMaxHistory      = 12
	DefaultCacheMaxBytes   = 512 << 20 // 512 MiB
	DefaultPrefetchCount   = 3
)

// HTTP client tuning for the cloud connector: generous end-to-end timeout,
// tight dial/TLS budgets.
const (
	HTTPClientRequestTimeout        = 90 * time.Second
	HTTPClientDialerTimeout         = 10 * time.Second
	HTTPClientKeepAlive             = 30 * time.Second
	HTTPClientResponseHeaderTimeout = 30 * time.Second
	HTTPClientTLSHandshakeTimeout   = 10 * time.Second
)
